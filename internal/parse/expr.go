package parse

import (
	"github.com/harborlang/uscc/internal/ast"
	"github.com/harborlang/uscc/internal/symtab"
	"github.com/harborlang/uscc/internal/token"
)

// The expression grammar is a fixed tower of six precedence levels, from
// lowest to highest: || , && , relational (== != < >), additive (+ -),
// multiplicative (* / %), and unary (!). USC has no user-definable
// operators, so each level gets its own small parser instead of a
// generic precedence table, following ParseExpr.cpp's parseExpr /
// parseAndTerm / parseRelExpr / parseNumExpr / parseTerm / parseValue
// chain (spec.md §4.3, §3).

func (p *Parser) parseExpr() ast.Expr { return p.parseOrExpr() }

func (p *Parser) parseOrExpr() ast.Expr {
	lhs := p.parseAndExpr()
	if lhs == nil {
		return nil
	}
	for p.at(token.OrOr) {
		pos := p.tok.Pos
		p.next()
		rhs := p.parseAndExpr()
		if rhs == nil {
			p.syntaxErrorf("expected an operand after '||'")
			rhs = ast.NewBadExpr(pos)
		}
		lhs = p.finalizeLogical(ast.NewLogicalOr(pos, lhs, rhs), lhs, rhs)
	}
	return lhs
}

func (p *Parser) parseAndExpr() ast.Expr {
	lhs := p.parseRelExpr()
	if lhs == nil {
		return nil
	}
	for p.at(token.AndAnd) {
		pos := p.tok.Pos
		p.next()
		rhs := p.parseRelExpr()
		if rhs == nil {
			p.syntaxErrorf("expected an operand after '&&'")
			rhs = ast.NewBadExpr(pos)
		}
		lhs = p.finalizeLogicalAnd(ast.NewLogicalAnd(pos, lhs, rhs), lhs, rhs)
	}
	return lhs
}

func isRelOp(k token.Kind) bool {
	return k == token.Lt || k == token.Gt || k == token.Eq || k == token.Neq
}

func (p *Parser) parseRelExpr() ast.Expr {
	lhs := p.parseAddExpr()
	if lhs == nil {
		return nil
	}
	for isRelOp(p.tok.Kind) {
		op := p.tok.Kind
		pos := p.tok.Pos
		p.next()
		rhs := p.parseAddExpr()
		if rhs == nil {
			p.syntaxErrorf("expected an operand after '%s'", op)
			rhs = ast.NewBadExpr(pos)
		}
		n := ast.NewBinaryCmp(pos, op, lhs, rhs)
		if lhs.ExprType() != symtab.Int || rhs.ExprType() != symtab.Int {
			p.errorfAt(pos, "cannot perform op between type %s and %s", lhs.ExprType(), rhs.ExprType())
		}
		n.SetType(symtab.Int)
		lhs = n
	}
	return lhs
}

func isAddOp(k token.Kind) bool { return k == token.Add || k == token.Sub }
func isMulOp(k token.Kind) bool { return k == token.Mul || k == token.Div || k == token.Mod }

func (p *Parser) parseAddExpr() ast.Expr {
	lhs := p.parseMulExpr()
	if lhs == nil {
		return nil
	}
	for isAddOp(p.tok.Kind) {
		op := p.tok.Kind
		pos := p.tok.Pos
		p.next()
		rhs := p.parseMulExpr()
		if rhs == nil {
			p.syntaxErrorf("expected an operand after '%s'", op)
			rhs = ast.NewBadExpr(pos)
		}
		lhs = p.finalizeMath(ast.NewBinaryMath(pos, op, lhs, rhs), lhs, rhs)
	}
	return lhs
}

func (p *Parser) parseMulExpr() ast.Expr {
	lhs := p.parseUnaryExpr()
	if lhs == nil {
		return nil
	}
	for isMulOp(p.tok.Kind) {
		op := p.tok.Kind
		pos := p.tok.Pos
		p.next()
		rhs := p.parseUnaryExpr()
		if rhs == nil {
			p.syntaxErrorf("expected an operand after '%s'", op)
			rhs = ast.NewBadExpr(pos)
		}
		lhs = p.finalizeMath(ast.NewBinaryMath(pos, op, lhs, rhs), lhs, rhs)
	}
	return lhs
}

// parseUnaryExpr parses `! Factor`, deferring everything else to
// parseFactor (spec.md §4.3's Value production).
func (p *Parser) parseUnaryExpr() ast.Expr {
	if p.at(token.Not) {
		pos := p.tok.Pos
		p.next()
		x := p.parseFactor()
		if x == nil {
			p.syntaxErrorf("'!' must be followed by an expression")
			x = ast.NewBadExpr(pos)
		}
		n := ast.NewNot(pos, x)
		n.SetType(symtab.Int)
		return n
	}
	return p.parseFactor()
}

func (p *Parser) finalizeMath(n *ast.BinaryMath, lhs, rhs ast.Expr) ast.Expr {
	if lhs.ExprType() != symtab.Int || rhs.ExprType() != symtab.Int {
		p.errorfAt(n.Pos(), "cannot perform op between type %s and %s", lhs.ExprType(), rhs.ExprType())
	}
	n.SetType(symtab.Int)
	return n
}

func (p *Parser) finalizeLogical(n *ast.LogicalOr, lhs, rhs ast.Expr) ast.Expr {
	if lhs.ExprType() != symtab.Int || rhs.ExprType() != symtab.Int {
		p.errorfAt(n.Pos(), "cannot perform op between type %s and %s", lhs.ExprType(), rhs.ExprType())
	}
	n.SetType(symtab.Int)
	return n
}

func (p *Parser) finalizeLogicalAnd(n *ast.LogicalAnd, lhs, rhs ast.Expr) ast.Expr {
	if lhs.ExprType() != symtab.Int || rhs.ExprType() != symtab.Int {
		p.errorfAt(n.Pos(), "cannot perform op between type %s and %s", lhs.ExprType(), rhs.ExprType())
	}
	n.SetType(symtab.Int)
	return n
}

// parseFactor tries each terminal expression form in turn. Identifier
// forms are tried first so a pending unusedIdent/unusedArraySub from
// parseAssignStmt is always drained before any other rule runs (spec.md
// §4.3, grounded on ParseExpr.cpp's parseFactor).
func (p *Parser) parseFactor() ast.Expr {
	if e := p.parseIdentFactor(); e != nil {
		return e
	}
	if e := p.parseConstantFactor(); e != nil {
		return e
	}
	if e := p.parseStringFactor(); e != nil {
		return e
	}
	if e := p.parseParenFactor(); e != nil {
		return e
	}
	if e := p.parseIncFactor(); e != nil {
		return e
	}
	if e := p.parseDecFactor(); e != nil {
		return e
	}
	if e := p.parseAddrOfArrayFactor(); e != nil {
		return e
	}
	return nil
}

func (p *Parser) parseConstantFactor() ast.Expr {
	v, ok := decodeConstant(p.tok)
	if !ok {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	return ast.NewConstant(pos, symtab.Int, v)
}

func (p *Parser) parseStringFactor() ast.Expr {
	if !p.at(token.StrLit) {
		return nil
	}
	pos := p.tok.Pos
	ref := p.Strings.Get(p.tok.Text)
	p.next()
	return ast.NewString(pos, ref)
}

func (p *Parser) parseParenFactor() ast.Expr {
	if !p.at(token.LParen) {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	x := p.parseExpr()
	if x == nil {
		p.syntaxErrorf("expected an expression inside parentheses")
		x = ast.NewBadExpr(pos)
	}
	p.want(token.RParen)
	return x
}

func (p *Parser) parseIncFactor() ast.Expr {
	if !p.at(token.Inc) {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	if !p.at(token.Ident) {
		p.syntaxErrorf("'++' must be followed by an identifier")
		return ast.NewBadExpr(pos)
	}
	ident := p.getVariable(p.tok.Pos, p.tok.Text)
	p.next()
	return readScalar(pos, ast.NewInc(pos, ident))
}

func (p *Parser) parseDecFactor() ast.Expr {
	if !p.at(token.Dec) {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	if !p.at(token.Ident) {
		p.syntaxErrorf("'--' must be followed by an identifier")
		return ast.NewBadExpr(pos)
	}
	ident := p.getVariable(p.tok.Pos, p.tok.Text)
	p.next()
	return readScalar(pos, ast.NewDec(pos, ident))
}

// parseAddrOfArrayFactor parses `& ident [ Constant ]`, USC's only
// pointer-producing form: the address of one fixed array element.
func (p *Parser) parseAddrOfArrayFactor() ast.Expr {
	if !p.at(token.Amp) {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	if !p.at(token.Ident) {
		p.syntaxErrorf("'&' must be followed by an identifier")
		return ast.NewBadExpr(pos)
	}
	ident := p.getVariable(p.tok.Pos, p.tok.Text)
	p.next()
	p.want(token.LBrack)
	idx, ok := p.parseIntLiteral()
	if !ok {
		p.syntaxErrorf("expected a constant array index")
		idx = 0
	}
	p.want(token.RBrack)
	sub := p.arraySub(pos, ident, ast.NewConstant(pos, symtab.Int, idx))
	return ast.NewAddrOfArray(pos, sub)
}

// parseIdentFactor parses a plain identifier read, an array element
// read, or a function call, draining any unusedIdent/unusedArraySub left
// behind by parseAssignStmt first (spec.md §4.3, grounded on
// ParseExpr.cpp's parseIdentFactor).
func (p *Parser) parseIdentFactor() ast.Expr {
	if p.unusedArraySub != nil {
		sub := p.unusedArraySub
		p.unusedArraySub = nil
		return readScalar(sub.Pos(), ast.NewArrayElem(sub.Pos(), sub))
	}

	var ident *symtab.Identifier
	var pos token.Pos
	if p.unusedIdent != nil {
		ident = p.unusedIdent
		pos = ident.Pos
		p.unusedIdent = nil
	} else {
		if !p.at(token.Ident) {
			return nil
		}
		pos = p.tok.Pos
		ident = p.getVariable(pos, p.tok.Text)
		p.next()
	}

	switch {
	case p.at(token.LBrack):
		p.next()
		idx := p.parseExpr()
		if idx == nil {
			p.syntaxErrorf("expected an expression inside '['")
			idx = ast.NewBadExpr(pos)
		}
		p.want(token.RBrack)
		sub := p.arraySub(pos, ident, idx)
		return readScalar(pos, ast.NewArrayElem(pos, sub))

	case p.at(token.LParen):
		return p.parseCallArgs(pos, ident)

	default:
		return readScalar(pos, ast.NewIdent(pos, ident))
	}
}

// parseCallArgs parses the `( arg, arg, ... )` suffix of a function call,
// checking argument count and per-argument type against the callee's
// declared signature, with a hardcoded rule for printf (at least one
// argument, the first a char[], any further ones unchecked) since it
// has no ast.Function of its own (spec.md §4.4, grounded on
// ParseExpr.cpp's printf special case).
func (p *Parser) parseCallArgs(pos token.Pos, ident *symtab.Identifier) ast.Expr {
	p.next() // consume '('

	if !ident.IsDummy() && ident.Type != symtab.Function {
		p.errorfAt(pos, "'%s' is not a function", ident.Name)
		p.consumeUntil(token.RParen)
		p.want(token.RParen)
		return ast.NewIdent(pos, p.Symbols.DummyVariable())
	}

	var fn *ast.Function
	if f, ok := ident.FuncDecl.(*ast.Function); ok {
		fn = f
	}
	isPrintf := ident.Name == "printf"
	if isPrintf {
		p.needPrintf = true
	}

	var args []ast.Expr
	if !p.at(token.RParen) {
		for {
			argPos := p.tok.Pos
			arg := p.parseExpr()
			if arg == nil {
				p.syntaxErrorf("expected an argument expression")
				break
			}
			args = append(args, p.checkCallArg(argPos, ident, fn, isPrintf, len(args)+1, arg))
			if !p.got(token.Comma) {
				break
			}
		}
	}
	p.want(token.RParen)

	if !ident.IsDummy() {
		if isPrintf {
			if len(args) == 0 {
				p.errorfAt(pos, "printf requires a minimum of one argument")
			}
		} else if fn != nil && len(args) < len(fn.Args) {
			p.errorfAt(pos, "function '%s' requires %d arguments", ident.Name, len(fn.Args))
		}
	}

	return readScalar(pos, ast.NewFuncCall(pos, ident, args, funcReturnType(ident, fn)))
}

// funcReturnType resolves a callee's return type: printf is a special
// case with no ast.Function of its own, and returns int like the C
// library function it wraps (spec.md §4.4).
func funcReturnType(ident *symtab.Identifier, fn *ast.Function) symtab.Kind {
	if ident.Name == "printf" {
		return symtab.Int
	}
	if fn != nil {
		return fn.Ret
	}
	return symtab.Int
}

// checkCallArg validates one call argument against the callee's
// declared parameter type (or printf's char[]-first-argument rule),
// inserting an int→char conversion where that is the only mismatch.
func (p *Parser) checkCallArg(pos token.Pos, ident *symtab.Identifier, fn *ast.Function, isPrintf bool, argNum int, arg ast.Expr) ast.Expr {
	if ident.IsDummy() {
		return arg
	}
	if isPrintf {
		if argNum == 1 && arg.ExprType() != symtab.CharArray {
			p.errorfAt(pos, "the first argument to printf must be a char[]")
		}
		return arg
	}
	if fn == nil {
		return arg
	}
	if argNum > len(fn.Args) {
		p.errorfAt(pos, "function '%s' takes only %d arguments", ident.Name, len(fn.Args))
		return arg
	}
	want := fn.Args[argNum-1].Ident.Type
	converted, ok := assignable(pos, want, arg)
	if !ok {
		p.errorfAt(pos, "expected an expression of type %s", want)
		return arg
	}
	return converted
}
