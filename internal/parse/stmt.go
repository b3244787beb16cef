package parse

import (
	"github.com/harborlang/uscc/internal/ast"
	"github.com/harborlang/uscc/internal/symtab"
	"github.com/harborlang/uscc/internal/token"
)

// parseCompoundStmt parses `{ Decl* Stmt* }`. isFuncBody suppresses the
// scope push/pop, since the caller (parseFunction) already entered the
// function's scope to hold its arguments (spec.md §4.3, grounded on
// ParseStmt.cpp's parseCompoundStmt). It reports whether the block ends
// with a return statement, which parseFunction uses to decide whether a
// non-void function is missing one.
func (p *Parser) parseCompoundStmt(isFuncBody bool) (*ast.Compound, bool) {
	if !p.at(token.LBrace) {
		return nil, false
	}
	pos := p.tok.Pos
	p.next()
	if !isFuncBody {
		p.Symbols.EnterScope()
	}

	c := ast.NewCompound(pos)
	for d := p.parseDecl(); d != nil; d = p.parseDecl() {
		c.Decls = append(c.Decls, d)
	}

	hasReturn := false
	for s := p.parseStmt(); s != nil; s = p.parseStmt() {
		_, hasReturn = s.(*ast.Return)
		c.Stmts = append(c.Stmts, s)
	}

	if isFuncBody && !hasReturn && p.curReturnType != symtab.Void {
		p.errorfAt(pos, "non-void functions must end with a return statement")
	}

	p.want(token.RBrace)
	if !isFuncBody {
		p.Symbols.ExitScope()
	}
	return c, hasReturn
}

// parseStmt tries each statement production in turn, returning nil if
// none match (spec.md §4.3, grounded on ParseStmt.cpp's parseStmt).
// parseAssignStmt must run before parseExprStmt: both start with an
// identifier, and parseAssignStmt pushes back what it consumed via the
// unusedIdent/unusedArraySub one-slot buffer when it turns out not to be
// an assignment (see parseAssignStmt).
func (p *Parser) parseStmt() ast.Stmt {
	if c, _ := p.parseCompoundStmt(false); c != nil {
		return c
	}
	if s := p.parseAssignStmt(); s != nil {
		return s
	}
	if s := p.parseReturnStmt(); s != nil {
		return s
	}
	if s := p.parseWhileStmt(); s != nil {
		return s
	}
	if s := p.parseExprStmt(); s != nil {
		return s
	}
	if s := p.parseIfStmt(); s != nil {
		return s
	}
	if s := p.parseNullStmt(); s != nil {
		return s
	}
	if p.at(token.KwInt) || p.at(token.KwChar) {
		pos := p.tok.Pos
		p.syntaxErrorf("declarations are only allowed at the start of a block")
		p.consumeUntil(token.Semi)
		p.got(token.Semi)
		return ast.NewNullStmt(pos)
	}
	return nil
}

// parseAssignStmt parses `ident = expr;` or `ident[expr] = expr;`. It
// first scans the common `ident` / `ident[expr]` prefix shared with a
// bare expression statement (a call, `++i`, etc). If no `=` follows, it
// stashes what it already consumed in p.unusedIdent/p.unusedArraySub so
// the factor-level expression parser can pick up from there instead of
// re-lexing (spec.md §4.3, grounded on ParseStmt.cpp's parseAssignStmt
// and its mUnusedIdent/mUnusedArraySub fields).
func (p *Parser) parseAssignStmt() ast.Stmt {
	if !p.at(token.Ident) {
		return nil
	}
	pos := p.tok.Pos
	name := p.tok.Text
	ident := p.getVariable(pos, name)
	p.next()

	var sub *ast.ArraySub
	if p.got(token.LBrack) {
		idx := p.parseExpr()
		if idx == nil {
			p.syntaxErrorf("expected an expression inside '['")
			idx = ast.NewBadExpr(pos)
		}
		p.want(token.RBrack)
		sub = p.arraySub(pos, ident, idx)
	}

	if !p.got(token.Assign) {
		// Not an assignment: push the prefix back for parseFactor.
		if sub != nil {
			p.unusedArraySub = sub
		} else {
			p.unusedIdent = ident
		}
		return nil
	}

	val := p.parseExpr()
	if val == nil {
		p.syntaxErrorf("expected an expression after '='")
		val = ast.NewBadExpr(pos)
	}

	var stmt ast.Stmt
	if sub != nil {
		elemKind := sub.Id.Type.ElemKind()
		converted, ok := assignable(pos, elemKind, val)
		if !ok {
			p.errorfAt(pos, "cannot assign an expression of type %s to %s", val.ExprType(), elemKind)
			converted = val
		}
		stmt = ast.NewAssignArray(pos, sub, converted)
	} else if ident.Type.IsArray() {
		p.errorfAt(pos, "reassignment of arrays is not allowed")
		stmt = ast.NewAssign(pos, ident, val)
	} else {
		converted, ok := assignable(pos, ident.Type, val)
		if !ok {
			p.errorfAt(pos, "cannot assign an expression of type %s to %s", val.ExprType(), ident.Type)
			converted = val
		}
		stmt = ast.NewAssign(pos, ident, converted)
	}

	p.want(token.Semi)
	return stmt
}

// parseIfStmt parses `if ( expr ) stmt [else stmt]`.
func (p *Parser) parseIfStmt() ast.Stmt {
	if !p.at(token.KwIf) {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	p.want(token.LParen)
	cond := p.parseExpr()
	if cond == nil {
		p.syntaxErrorf("expected a condition expression")
		cond = ast.NewBadExpr(pos)
	}
	p.want(token.RParen)

	then := p.parseStmt()
	if then == nil {
		p.syntaxErrorf("expected a statement for the if body")
		then = ast.NewNullStmt(pos)
	}

	var els ast.Stmt
	if p.got(token.KwElse) {
		els = p.parseStmt()
		if els == nil {
			p.syntaxErrorf("expected a statement for the else body")
			els = ast.NewNullStmt(pos)
		}
	}
	return ast.NewIf(pos, cond, then, els)
}

// parseWhileStmt parses `while ( expr ) stmt`.
func (p *Parser) parseWhileStmt() ast.Stmt {
	if !p.at(token.KwWhile) {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	p.want(token.LParen)
	cond := p.parseExpr()
	if cond == nil {
		p.syntaxErrorf("expected a condition expression")
		cond = ast.NewBadExpr(pos)
	}
	p.want(token.RParen)

	body := p.parseStmt()
	if body == nil {
		body = ast.NewNullStmt(pos)
	}
	return ast.NewWhile(pos, cond, body)
}

// parseReturnStmt parses `return [expr];`. A void function's return must
// be bare; a non-void function's return must carry an expression
// convertible to its declared return type (spec.md §4.3).
func (p *Parser) parseReturnStmt() ast.Stmt {
	if !p.at(token.KwReturn) {
		return nil
	}
	pos := p.tok.Pos
	p.next()

	if p.at(token.Semi) {
		if p.curReturnType != symtab.Void {
			p.errorfAt(pos, "invalid empty return in non-void function")
		}
		p.next()
		return ast.NewReturn(pos, nil)
	}

	val := p.parseExpr()
	if val == nil {
		p.syntaxErrorf("expected an expression after return")
		val = ast.NewBadExpr(pos)
	}

	if p.curReturnType == symtab.Void {
		p.errorfAt(pos, "void function cannot return a value")
	} else if converted, ok := assignable(pos, p.curReturnType, val); ok {
		val = converted
	} else {
		p.errorfAt(pos, "expected an expression of type %s in return statement", p.curReturnType)
	}

	p.want(token.Semi)
	if p.curReturnType == symtab.Void {
		return ast.NewReturn(pos, nil)
	}
	return ast.NewReturn(pos, val)
}

// parseExprStmt parses a bare expression evaluated for effect, e.g. a
// function call or `++i`. Preserves the original's unconditional
// consume-next-token after the expression instead of matching `;`
// explicitly (spec.md §9 Open Questions; grounded on ParseStmt.cpp's
// parseExprStmt, which calls consumeToken() assuming the next token is
// always the semicolon).
func (p *Parser) parseExprStmt() ast.Stmt {
	pos := p.tok.Pos
	x := p.parseExpr()
	if x == nil {
		return nil
	}
	p.next()
	return ast.NewExprStmt(pos, x)
}

// parseNullStmt parses a lone `;`.
func (p *Parser) parseNullStmt() ast.Stmt {
	if !p.at(token.Semi) {
		return nil
	}
	pos := p.tok.Pos
	p.next()
	return ast.NewNullStmt(pos)
}
