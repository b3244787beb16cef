// Package parse implements USC's recursive-descent parser. It builds the
// typed internal/ast tree directly during parsing, running the same
// checks -- redeclaration, undeclared-identifier, argument count and
// type, assignment/return conversion legality -- inline as each
// construct is recognized, in the style of the teacher's types2 checker
// but folded into the parse itself (spec.md §4.3).
package parse

import (
	"io"

	"github.com/harborlang/uscc/internal/ast"
	"github.com/harborlang/uscc/internal/diag"
	"github.com/harborlang/uscc/internal/lexer"
	"github.com/harborlang/uscc/internal/symtab"
	"github.com/harborlang/uscc/internal/token"
)

// Parser turns a token stream into an *ast.Program, reporting diagnostics
// through errs as it goes rather than stopping at the first problem.
type Parser struct {
	lex  *lexer.Lexer
	errs *diag.Sink

	tok token.Token // current lookahead token

	Symbols *symtab.Table
	Strings *symtab.StringTable

	curReturnType symtab.Kind
	needPrintf    bool

	// unusedIdent/unusedArraySub hold a partially-scanned "id" or
	// "id[expr]" that parseAssignStmt peeked at, found no following '=',
	// and pushed back for parseFactor to pick up. See parseAssignStmt.
	unusedIdent    *symtab.Identifier
	unusedArraySub *ast.ArraySub
}

// New creates a Parser reading from src. filename is used in diagnostics
// and re-reads of source lines (diag.Fprint, spec.md §5).
func New(filename string, src io.Reader, errs *diag.Sink) (*Parser, error) {
	lx, err := lexer.New(filename, src, errs)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		lex:     lx,
		errs:    errs,
		Symbols: symtab.NewTable(),
		Strings: symtab.NewStringTable(),
	}
	p.next()
	return p, nil
}

// NeedsPrintf reports whether the parsed program calls printf, so the
// caller can decide whether to declare its external signature.
func (p *Parser) NeedsPrintf() bool { return p.needPrintf }

// ----------------------------------------------------------------------
// Token navigation

func (p *Parser) next() { p.tok = p.lex.Next() }

func (p *Parser) at(k token.Kind) bool { return p.tok.Kind == k }

// got consumes the current token and returns true if it matches k.
func (p *Parser) got(k token.Kind) bool {
	if p.tok.Kind == k {
		p.next()
		return true
	}
	return false
}

// want requires the current token to be k, reporting a syntax error and
// leaving the token stream unconsumed otherwise.
func (p *Parser) want(k token.Kind) bool {
	if p.got(k) {
		return true
	}
	p.syntaxErrorf("expected %s but found %s", k, p.tok.Kind)
	return false
}

// consumeUntil skips tokens up to (but not including) the first
// occurrence of k or EOF, used to resynchronize after a malformed
// construct (spec.md §4.3 "resynchronize... at statement or declaration
// boundaries").
func (p *Parser) consumeUntil(k token.Kind) {
	for p.tok.Kind != k && p.tok.Kind != token.EOF {
		p.next()
	}
}

// ----------------------------------------------------------------------
// Diagnostics

func (p *Parser) syntaxErrorf(format string, args ...interface{}) {
	p.errs.Errorf(p.tok.Pos, format, args...)
}

func (p *Parser) errorfAt(pos token.Pos, format string, args ...interface{}) {
	p.errs.Errorf(pos, format, args...)
}

// getVariable resolves name against the symbol table, reporting an
// undeclared-identifier error and substituting the dummy variable so the
// parse can continue (spec.md §4.3, grounded on Parse.cpp getVariable).
func (p *Parser) getVariable(pos token.Pos, name string) *symtab.Identifier {
	id := p.Symbols.GetIdentifier(name)
	if id == nil {
		p.errorfAt(pos, "use of undeclared identifier '%s'", name)
		return p.Symbols.DummyVariable()
	}
	return id
}

// decodeConstant reads the int value of an IntLit or CharLit token.
// Constants are always evaluated as 32-bit ints in USC (spec.md §3): a
// char literal's numeric value is exactly its byte value, and any
// narrowing to char happens only at an assignment or return boundary.
func decodeConstant(tok token.Token) (int, bool) {
	switch tok.Kind {
	case token.IntLit:
		n := 0
		for _, r := range tok.Text {
			n = n*10 + int(r-'0')
		}
		return n, true
	case token.CharLit:
		return int(tok.Text[0]), true
	default:
		return 0, false
	}
}

// arraySub builds an ArraySub for ident[index], substituting the shared
// dummy array placeholder (and reporting an error) if ident is not
// actually an array type (spec.md §4.3, grounded on ParseExpr.cpp's
// "'%s' is not an array" check).
func (p *Parser) arraySub(pos token.Pos, ident *symtab.Identifier, index ast.Expr) *ast.ArraySub {
	if !ident.Type.IsArray() {
		if !ident.IsDummy() {
			p.errorfAt(pos, "'%s' is not an array", ident.Name)
		}
		ident = p.Symbols.DummyArray()
	}
	return ast.NewArraySub(pos, ident, index)
}

// ----------------------------------------------------------------------
// Implicit conversions (spec.md §9)
//
// Every read of a char-typed value that isn't itself an assignment
// target is promoted to int at the point the value is produced (readScalar,
// called from the factor-level parsers). toChar performs the narrowing
// conversion needed only at assignment and return boundaries, undoing a
// redundant ToInt wrapper instead of stacking one on top of the other.

func readScalar(pos token.Pos, e ast.Expr) ast.Expr {
	if e.ExprType() == symtab.Char {
		return ast.NewToInt(pos, e)
	}
	return e
}

func toChar(pos token.Pos, e ast.Expr) ast.Expr {
	if e.ExprType() == symtab.Char {
		return e
	}
	if wrapped, ok := e.(*ast.ToInt); ok {
		return wrapped.X
	}
	return ast.NewToChar(pos, e)
}

// assignable reports whether a value of type src can be stored into a
// variable of type dst, and if so returns the (possibly wrapped)
// expression to store. It implements the family of assignment/return/
// argument compatibility checks spec.md §4.3 spells out per-context in
// the original: int accepts int or char, char accepts int or char, and
// arrays only accept an initializer of the identical array kind.
func assignable(pos token.Pos, dst symtab.Kind, src ast.Expr) (ast.Expr, bool) {
	switch {
	case dst == symtab.Int && (src.ExprType() == symtab.Int || src.ExprType() == symtab.Char):
		return readScalar(pos, src), true
	case dst == symtab.Char && (src.ExprType() == symtab.Int || src.ExprType() == symtab.Char):
		return toChar(pos, src), true
	case dst == symtab.CharArray && src.ExprType() == symtab.CharArray:
		return src, true
	case dst == symtab.IntArray && src.ExprType() == symtab.IntArray:
		return src, true
	default:
		return src, false
	}
}

// ----------------------------------------------------------------------
// Program / function grammar

// ParseProgram parses a full translation unit: zero or more function
// declarations followed by end of file (spec.md §3 Program).
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for fn := p.parseFunction(); fn != nil; fn = p.parseFunction() {
		prog.Funcs = append(prog.Funcs, fn)
	}
	if !p.at(token.EOF) {
		p.syntaxErrorf("expected a function declaration but found %s", p.tok.Kind)
	}
	return prog
}

func retKind(k token.Kind) symtab.Kind {
	switch k {
	case token.KwInt:
		return symtab.Int
	case token.KwChar:
		return symtab.Char
	default:
		return symtab.Void
	}
}

// parseFunction parses one function: return type, name, argument list,
// and compound-statement body (spec.md §3 Function, §4.3 Declarations).
func (p *Parser) parseFunction() *ast.Function {
	if !p.at(token.KwVoid) && !p.at(token.KwInt) && !p.at(token.KwChar) {
		return nil
	}
	pos := p.tok.Pos
	retType := retKind(p.tok.Kind)
	p.next()

	if p.got(token.LBrack) {
		p.errorfAt(pos, "functions cannot return array types")
		p.consumeUntil(token.RBrack)
		p.want(token.RBrack)
	}

	var ident *symtab.Identifier
	if !p.at(token.Ident) {
		p.syntaxErrorf("expected a function name but found %s", p.tok.Kind)
		ident = p.Symbols.DummyFunction()
		p.consumeUntil(token.LParen)
	} else {
		name := p.tok.Text
		if p.Symbols.DeclaredInScope(name) {
			p.errorfAt(p.tok.Pos, "invalid redeclaration of function '%s'", name)
			ident = p.Symbols.DummyFunction()
		} else {
			ident = p.Symbols.CreateIdentifier(name)
			ident.Type = symtab.Function
			ident.Pos = p.tok.Pos
			if name == "main" && retType != symtab.Int {
				p.errorfAt(p.tok.Pos, "function 'main' must return an int")
			}
		}
		p.next()
	}

	scope := p.Symbols.EnterScope()
	fn := ast.NewFunction(pos, ident, retType, nil, scope)
	if !ident.IsDummy() {
		ident.FuncDecl = fn
	}

	if p.want(token.LParen) {
		if !p.at(token.RParen) {
			for {
				arg := p.parseArgDecl()
				if arg == nil {
					break
				}
				fn.Args = append(fn.Args, arg)
				if !p.got(token.Comma) {
					break
				}
			}
		}
		p.want(token.RParen)
		if ident.Name == "main" && len(fn.Args) != 0 {
			p.errorfAt(pos, "function 'main' cannot take any arguments")
		}
	} else {
		p.consumeUntil(token.LBrace)
	}

	prevReturn := p.curReturnType
	p.curReturnType = retType
	body, hasReturn := p.parseCompoundStmt(true)
	p.curReturnType = prevReturn
	p.Symbols.ExitScope()

	if body == nil {
		body = &ast.Compound{}
	}
	if retType == symtab.Void && !hasReturn {
		body.Stmts = append(body.Stmts, ast.NewReturn(pos, nil))
		fn.NeedsSyntheticReturn = true
	}
	fn.Body = body

	return fn
}

// parseArgDecl parses one formal parameter: `int x` / `char c` /
// `int a[]` (array size is never given for parameters; spec.md §3).
func (p *Parser) parseArgDecl() *ast.ArgDecl {
	if !p.at(token.KwInt) && !p.at(token.KwChar) {
		return nil
	}
	pos := p.tok.Pos
	base := retKind(p.tok.Kind)
	p.next()

	if !p.at(token.Ident) {
		p.syntaxErrorf("expected a parameter name but found %s", p.tok.Kind)
		return nil
	}
	name := p.tok.Text
	namePos := p.tok.Pos
	if p.Symbols.DeclaredInScope(name) {
		p.errorfAt(namePos, "invalid redeclaration of identifier '%s'", name)
	}
	ident := p.Symbols.CreateIdentifier(name)
	ident.Pos = namePos
	p.next()

	kind := base
	if p.got(token.LBrack) {
		p.want(token.RBrack)
		kind = symtab.ArrayKindOf(base)
		ident.ArrayCount = symtab.ArrayCountUnspecified
	}
	ident.Type = kind

	return ast.NewArgDecl(pos, ident)
}
