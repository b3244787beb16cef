package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/harborlang/uscc/internal/symtab"
)

// Fprint writes prog back out as USC source text. It is used by the
// CLI's -emit-ast flag and by the parse-print-reparse property test
// (spec.md §8, property 5): re-parsing this output must yield a
// structurally equal AST.
func Fprint(w io.Writer, prog *Program) {
	p := &printer{w: w}
	for i, fn := range prog.Funcs {
		if i > 0 {
			p.printf("\n")
		}
		p.function(fn)
	}
}

type printer struct {
	w      io.Writer
	indent int
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) ind() string { return strings.Repeat("    ", p.indent) }

func kindName(k symtab.Kind) string {
	switch k {
	case symtab.Void:
		return "void"
	case symtab.Int, symtab.IntArray:
		return "int"
	case symtab.Char, symtab.CharArray:
		return "char"
	default:
		return "int"
	}
}

func (p *printer) function(fn *Function) {
	p.printf("%s %s(", kindName(fn.Ret), fn.Ident.Name)
	for i, a := range fn.Args {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s %s", kindName(a.Ident.Type), a.Ident.Name)
		if a.Ident.Type.IsArray() {
			p.printf("[]")
		}
	}
	p.printf(") ")
	p.compound(fn.Body)
	p.printf("\n")
}

func (p *printer) compound(c *Compound) {
	p.printf("{\n")
	p.indent++
	for _, d := range c.Decls {
		p.decl(d)
	}
	for _, s := range c.Stmts {
		p.stmt(s)
	}
	p.indent--
	p.printf("%s}\n", p.ind())
}

func (p *printer) decl(d *Decl) {
	p.printf("%s%s %s", p.ind(), kindName(d.Ident.Type), d.Ident.Name)
	if d.Ident.Type.IsArray() && d.Ident.ArrayCount != symtab.ArrayCountUnspecified {
		p.printf("[%d]", d.Ident.ArrayCount)
	} else if d.Ident.Type.IsArray() {
		p.printf("[]")
	}
	if d.Init != nil {
		p.printf(" = ")
		p.expr(d.Init)
	}
	p.printf(";\n")
}

func (p *printer) stmt(s Stmt) {
	switch n := s.(type) {
	case *Compound:
		p.printf("%s", p.ind())
		p.compound(n)
	case *Assign:
		p.printf("%s%s = ", p.ind(), n.Ident.Name)
		p.expr(n.Value)
		p.printf(";\n")
	case *AssignArray:
		p.printf("%s%s[", p.ind(), n.Sub.Id.Name)
		p.expr(n.Sub.Index)
		p.printf("] = ")
		p.expr(n.Value)
		p.printf(";\n")
	case *If:
		p.printf("%sif (", p.ind())
		p.expr(n.Cond)
		p.printf(") ")
		p.stmtInline(n.Then)
		if n.Else != nil {
			p.printf("%selse ", p.ind())
			p.stmtInline(n.Else)
		}
	case *While:
		p.printf("%swhile (", p.ind())
		p.expr(n.Cond)
		p.printf(") ")
		p.stmtInline(n.Body)
	case *Return:
		p.printf("%sreturn", p.ind())
		if n.Value != nil {
			p.printf(" ")
			p.expr(n.Value)
		}
		p.printf(";\n")
	case *ExprStmt:
		p.printf("%s", p.ind())
		p.expr(n.X)
		p.printf(";\n")
	case *NullStmt:
		p.printf("%s;\n", p.ind())
	default:
		panic(fmt.Sprintf("ast.Fprint: unhandled statement %T", n))
	}
}

// stmtInline prints a statement that follows "if (...) " or "while (...) "
// on the same line when it is a block, and on its own indented line
// otherwise.
func (p *printer) stmtInline(s Stmt) {
	if c, ok := s.(*Compound); ok {
		p.compound(c)
		return
	}
	p.printf("\n")
	p.indent++
	p.stmt(s)
	p.indent--
}

func (p *printer) expr(e Expr) {
	switch n := e.(type) {
	case *BadExpr:
		p.printf("/*bad*/")
	case *LogicalAnd:
		p.binop(n.Lhs, "&&", n.Rhs)
	case *LogicalOr:
		p.binop(n.Lhs, "||", n.Rhs)
	case *BinaryCmp:
		p.binop(n.Lhs, n.Op.String(), n.Rhs)
	case *BinaryMath:
		p.binop(n.Lhs, n.Op.String(), n.Rhs)
	case *Not:
		p.printf("!")
		p.expr(n.X)
	case *Constant:
		p.printf("%d", n.Value)
	case *String:
		p.printf("%q", n.Ref.Text)
	case *Ident:
		p.printf("%s", n.Id.Name)
	case *ArrayElem:
		p.printf("%s[", n.Sub.Id.Name)
		p.expr(n.Sub.Index)
		p.printf("]")
	case *FuncCall:
		p.printf("%s(", n.Id.Name)
		for i, a := range n.Args {
			if i > 0 {
				p.printf(", ")
			}
			p.expr(a)
		}
		p.printf(")")
	case *Inc:
		p.printf("++%s", n.Id.Name)
	case *Dec:
		p.printf("--%s", n.Id.Name)
	case *AddrOfArray:
		p.printf("&%s[", n.Sub.Id.Name)
		p.expr(n.Sub.Index)
		p.printf("]")
	case *ToInt:
		p.expr(n.X)
	case *ToChar:
		p.expr(n.X)
	default:
		panic(fmt.Sprintf("ast.Fprint: unhandled expression %T", n))
	}
}

func (p *printer) binop(lhs Expr, op string, rhs Expr) {
	p.printf("(")
	p.expr(lhs)
	p.printf(" %s ", op)
	p.expr(rhs)
	p.printf(")")
}
