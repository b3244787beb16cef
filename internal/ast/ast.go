// Package ast defines USC's typed abstract syntax tree: the expression,
// statement, declaration, function, and program node families of
// spec.md §3. Nodes are plain data; the two operations the design calls
// for (pretty-printing and IR emission) are external visitors — Fprint in
// this package, and the emitter in package irgen — dispatching by type
// switch, exactly as the teacher's own syntax/print.go and ssa/build.go
// do for the Yoru AST. This keeps ast free of any dependency on the IR
// framework.
package ast

import (
	"github.com/harborlang/uscc/internal/symtab"
	"github.com/harborlang/uscc/internal/token"
)

// Node is implemented by every AST node.
type Node interface {
	Pos() token.Pos
}

type node struct{ pos token.Pos }

func (n node) Pos() token.Pos { return n.pos }

// Program is the root of a parsed source file: a list of functions
// (spec.md §3).
type Program struct {
	Funcs []*Function
}

// Function is a function declaration: identifier, return type, argument
// list, its own scope, and body (spec.md §3).
type Function struct {
	node
	Ident *symtab.Identifier
	Ret   symtab.Kind
	Args  []*ArgDecl
	Scope *symtab.Scope
	Body  *Compound

	// NeedsSyntheticReturn records that the parser appended a synthetic
	// bare return to a void function that fell off the end of its body
	// without one (spec.md §4.3 "Non-void functions must end with a
	// return...").
	NeedsSyntheticReturn bool
}

// NewFunction constructs a Function node at pos.
func NewFunction(pos token.Pos, ident *symtab.Identifier, ret symtab.Kind, args []*ArgDecl, scope *symtab.Scope) *Function {
	return &Function{node: node{pos}, Ident: ident, Ret: ret, Args: args, Scope: scope}
}

// ArgDecl is one formal parameter (spec.md §3).
type ArgDecl struct {
	node
	Ident *symtab.Identifier
}

// NewArgDecl constructs an ArgDecl at pos.
func NewArgDecl(pos token.Pos, ident *symtab.Identifier) *ArgDecl {
	return &ArgDecl{node: node{pos}, Ident: ident}
}

// Decl is a local variable/array declaration inside a Compound
// statement, with an optional initializer expression (spec.md §3).
type Decl struct {
	node
	Ident *symtab.Identifier
	Init  Expr // nil if uninitialized
}

// NewDecl constructs a Decl at pos.
func NewDecl(pos token.Pos, ident *symtab.Identifier, init Expr) *Decl {
	return &Decl{node: node{pos}, Ident: ident, Init: init}
}

// ----------------------------------------------------------------------
// Statements

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	aStmt()
}

type stmt struct{ node }

func (stmt) aStmt() {}

// Compound is a block: `{ Decl* Stmt* }` (spec.md §3).
type Compound struct {
	stmt
	Decls []*Decl
	Stmts []Stmt
}

// Assign assigns to a scalar identifier: `ident = expr;`.
type Assign struct {
	stmt
	Ident *symtab.Identifier
	Value Expr
}

// AssignArray assigns to an array element: `ident[expr] = expr;`.
type AssignArray struct {
	stmt
	Sub   *ArraySub
	Value Expr
}

// If is an if/else statement; Else is nil when there is no else branch.
type If struct {
	stmt
	Cond Expr
	Then Stmt
	Else Stmt
}

// While is a while loop.
type While struct {
	stmt
	Cond Expr
	Body Stmt
}

// Return is a return statement; Value is nil for a bare `return;`.
type Return struct {
	stmt
	Value Expr
}

// ExprStmt is an expression evaluated for its side effects, e.g. a bare
// function call or `++i;`.
type ExprStmt struct {
	stmt
	X Expr
}

// NullStmt is a lone `;`.
type NullStmt struct{ stmt }

// Constructors for statement nodes. Compound is built up field-by-field
// by its caller rather than through a constructor, since its Decls and
// Stmts slices are appended to incrementally during parsing.

func NewCompound(pos token.Pos) *Compound {
	return &Compound{stmt: stmt{node{pos}}}
}

func NewAssign(pos token.Pos, ident *symtab.Identifier, value Expr) *Assign {
	return &Assign{stmt: stmt{node{pos}}, Ident: ident, Value: value}
}

func NewAssignArray(pos token.Pos, sub *ArraySub, value Expr) *AssignArray {
	return &AssignArray{stmt: stmt{node{pos}}, Sub: sub, Value: value}
}

func NewIf(pos token.Pos, cond Expr, then, els Stmt) *If {
	return &If{stmt: stmt{node{pos}}, Cond: cond, Then: then, Else: els}
}

func NewWhile(pos token.Pos, cond Expr, body Stmt) *While {
	return &While{stmt: stmt{node{pos}}, Cond: cond, Body: body}
}

func NewReturn(pos token.Pos, value Expr) *Return {
	return &Return{stmt: stmt{node{pos}}, Value: value}
}

func NewExprStmt(pos token.Pos, x Expr) *ExprStmt {
	return &ExprStmt{stmt: stmt{node{pos}}, X: x}
}

func NewNullStmt(pos token.Pos) *NullStmt {
	return &NullStmt{stmt{node{pos}}}
}

// ----------------------------------------------------------------------
// Expressions

// Expr is implemented by every expression node. Every Expr carries its
// resolved Type, computed by finalizeOp for binary/logical nodes or at
// construction for leaves (spec.md §3 invariants).
type Expr interface {
	Node
	aExpr()
	ExprType() symtab.Kind
}

type expr struct {
	node
	Type symtab.Kind
}

func (expr) aExpr()                    {}
func (e expr) ExprType() symtab.Kind   { return e.Type }
func newExpr(pos token.Pos, t symtab.Kind) expr { return expr{node{pos}, t} }

// BadExpr stands in for an expression that could not be parsed or
// type-checked, so downstream code stays total (spec.md §3).
type BadExpr struct{ expr }

func NewBadExpr(pos token.Pos) *BadExpr { return &BadExpr{newExpr(pos, symtab.Int)} }

// LogicalAnd is `lhs && rhs` (short-circuit).
type LogicalAnd struct {
	expr
	Lhs, Rhs Expr
}

// LogicalOr is `lhs || rhs` (short-circuit).
type LogicalOr struct {
	expr
	Lhs, Rhs Expr
}

// BinaryCmp is a comparison: `<`, `>`, `==`, `!=`.
type BinaryCmp struct {
	expr
	Op       token.Kind
	Lhs, Rhs Expr
}

// BinaryMath is an arithmetic op: `+ - * / %`.
type BinaryMath struct {
	expr
	Op       token.Kind
	Lhs, Rhs Expr
}

// Not is `!expr`.
type Not struct {
	expr
	X Expr
}

// Constant is an integer or character literal folded to its int value.
type Constant struct {
	expr
	Value int
}

// String is a reference to an interned string constant.
type String struct {
	expr
	Ref *symtab.StringConst
}

// Ident is a read of a scalar or array-base identifier.
type Ident struct {
	expr
	Id *symtab.Identifier
}

// ArraySub computes the address of ident[index] (spec.md §3: "helper").
type ArraySub struct {
	expr
	Id    *symtab.Identifier
	Index Expr
}

// ArrayElem reads the value addressed by Sub.
type ArrayElem struct {
	expr
	Sub *ArraySub
}

// FuncCall is a function call with resolved argument expressions
// (implicit conversions, if any, already inserted).
type FuncCall struct {
	expr
	Id   *symtab.Identifier
	Args []Expr
}

// Inc is `++ident`, evaluating to the identifier's new value.
type Inc struct {
	expr
	Id *symtab.Identifier
}

// Dec is `--ident`, evaluating to the identifier's new value.
type Dec struct {
	expr
	Id *symtab.Identifier
}

// AddrOfArray is `&ident[constant]`.
type AddrOfArray struct {
	expr
	Sub *ArraySub
}

// ToInt is an implicit char→int widening conversion inserted on every
// read of a char value used in an int context (spec.md §9).
type ToInt struct {
	expr
	X Expr
}

// ToChar is an implicit int→char narrowing conversion inserted only at
// assignment or return boundaries (spec.md §9).
type ToChar struct {
	expr
	X Expr
}

// Constructors below stamp Type at construction, matching spec.md §3's
// invariant that leaves get their type at construction while
// binary/logical nodes get theirs from finalizeOp in the parser.

func NewConstant(pos token.Pos, t symtab.Kind, v int) *Constant {
	return &Constant{newExpr(pos, t), v}
}

func NewString(pos token.Pos, ref *symtab.StringConst) *String {
	return &String{newExpr(pos, symtab.CharArray), ref}
}

func NewIdent(pos token.Pos, id *symtab.Identifier) *Ident {
	return &Ident{newExpr(pos, id.Type), id}
}

func NewArraySub(pos token.Pos, id *symtab.Identifier, index Expr) *ArraySub {
	return &ArraySub{newExpr(pos, symtab.ArrayKindOf(id.Type.ElemKind())), id, index}
}

func NewArrayElem(pos token.Pos, sub *ArraySub) *ArrayElem {
	return &ArrayElem{newExpr(pos, sub.Id.Type.ElemKind()), sub}
}

func NewFuncCall(pos token.Pos, id *symtab.Identifier, args []Expr, ret symtab.Kind) *FuncCall {
	return &FuncCall{newExpr(pos, ret), id, args}
}

func NewInc(pos token.Pos, id *symtab.Identifier) *Inc { return &Inc{newExpr(pos, id.Type), id} }
func NewDec(pos token.Pos, id *symtab.Identifier) *Dec { return &Dec{newExpr(pos, id.Type), id} }

func NewAddrOfArray(pos token.Pos, sub *ArraySub) *AddrOfArray {
	return &AddrOfArray{newExpr(pos, symtab.ArrayKindOf(sub.Id.Type.ElemKind())), sub}
}

func NewToInt(pos token.Pos, x Expr) *ToInt   { return &ToInt{newExpr(pos, symtab.Int), x} }
func NewToChar(pos token.Pos, x Expr) *ToChar { return &ToChar{newExpr(pos, symtab.Char), x} }

// NewLogicalAnd/NewLogicalOr/NewBinaryCmp/NewBinaryMath/NewNot leave Type
// as symtab.Void until finalizeOp (in package parse) computes and sets
// it via SetType, matching spec.md §3's "computed Type after finalizeOp".

func NewLogicalAnd(pos token.Pos, lhs, rhs Expr) *LogicalAnd {
	return &LogicalAnd{newExpr(pos, symtab.Void), lhs, rhs}
}

func NewLogicalOr(pos token.Pos, lhs, rhs Expr) *LogicalOr {
	return &LogicalOr{newExpr(pos, symtab.Void), lhs, rhs}
}

func NewBinaryCmp(pos token.Pos, op token.Kind, lhs, rhs Expr) *BinaryCmp {
	return &BinaryCmp{newExpr(pos, symtab.Void), op, lhs, rhs}
}

func NewBinaryMath(pos token.Pos, op token.Kind, lhs, rhs Expr) *BinaryMath {
	return &BinaryMath{newExpr(pos, symtab.Void), op, lhs, rhs}
}

func NewNot(pos token.Pos, x Expr) *Not { return &Not{newExpr(pos, symtab.Void), x} }

// SetType finalizes the resolved type of a binary/logical node once
// finalizeOp has determined it.
func (e *LogicalAnd) SetType(t symtab.Kind)  { e.Type = t }
func (e *LogicalOr) SetType(t symtab.Kind)   { e.Type = t }
func (e *BinaryCmp) SetType(t symtab.Kind)   { e.Type = t }
func (e *BinaryMath) SetType(t symtab.Kind)  { e.Type = t }
func (e *Not) SetType(t symtab.Kind)         { e.Type = t }
