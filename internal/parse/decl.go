package parse

import (
	"github.com/harborlang/uscc/internal/ast"
	"github.com/harborlang/uscc/internal/symtab"
	"github.com/harborlang/uscc/internal/token"
)

// arrayCountBounds mirrors the original implementation's fixed array
// size limits (spec.md §4.3 edge cases): between 1 and 65536 elements.
const (
	minArrayCount = 1
	maxArrayCount = 65536
)

// parseDecl parses one local declaration: `int x;`, `char buf[16];`,
// `int y = 4;`, or `char msg[] = "hi";`. Declarations only appear at the
// start of a Compound, before any statement (spec.md §4.3).
func (p *Parser) parseDecl() *ast.Decl {
	if !p.at(token.KwInt) && !p.at(token.KwChar) {
		return nil
	}
	pos := p.tok.Pos
	base := retKind(p.tok.Kind)
	p.next()

	if !p.at(token.Ident) {
		p.syntaxErrorf("expected an identifier after type but found %s", p.tok.Kind)
		return ast.NewDecl(pos, p.Symbols.DummyVariable(), nil)
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
	haveSize := false
	size := 0
	if p.got(token.LBrack) {
		kind = symtab.ArrayKindOf(base)
		if !p.at(token.RBrack) {
			if c, ok := p.parseIntLiteral(); ok {
				haveSize = true
				size = c
				if size < minArrayCount || size > maxArrayCount {
					p.errorfAt(namePos, "arrays must have between %d and %d elements", minArrayCount, maxArrayCount)
				}
			} else {
				p.errorfAt(namePos, "int arrays must have a constant declared size")
			}
		} else if base == symtab.Int {
			p.errorfAt(namePos, "int arrays must have a constant declared size")
		}
		p.want(token.RBrack)
	}
	ident.Type = kind
	if haveSize {
		ident.ArrayCount = size
	} else if kind.IsArray() {
		ident.ArrayCount = 0 // resolved from a string initializer below, or an error
	}

	decl := ast.NewDecl(pos, ident, nil)

	if p.got(token.Assign) {
		if kind == symtab.IntArray {
			p.errorfAt(namePos, "USC does not allow assignment in int array declarations")
		}
		init := p.parseExpr()
		if init == nil {
			p.syntaxErrorf("expected an expression after '=' in declaration")
			return decl
		}
		if kind == symtab.CharArray {
			if str, ok := init.(*ast.String); ok {
				need := len(str.Ref.Text) + 1
				if ident.ArrayCount == 0 {
					ident.ArrayCount = need
				} else if ident.ArrayCount < need {
					p.errorfAt(namePos, "declared array cannot fit string")
				}
			} else {
				p.errorfAt(namePos, "cannot assign an expression of type %s to %s", init.ExprType(), kind)
			}
			decl.Init = init
		} else {
			converted, ok := assignable(pos, kind, init)
			if !ok {
				p.errorfAt(namePos, "cannot assign an expression of type %s to %s", init.ExprType(), kind)
				converted = init
			}
			decl.Init = converted
		}
	} else if kind == symtab.CharArray && ident.ArrayCount == 0 {
		p.errorfAt(namePos, "char array must have a declared size if there is no initializer")
	}

	p.want(token.Semi)
	return decl
}

// parseIntLiteral recognizes a bare integer or character literal token,
// used for array sizes, which the grammar restricts to a constant rather
// than a general expression (spec.md §4.3, grounded on Parse.cpp's
// parseConstantFactor call for array bounds).
func (p *Parser) parseIntLiteral() (int, bool) {
	n, ok := decodeConstant(p.tok)
	if !ok {
		return 0, false
	}
	p.next()
	return n, true
}
