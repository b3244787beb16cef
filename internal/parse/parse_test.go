package parse

import (
	"strings"
	"testing"

	"github.com/harborlang/uscc/internal/ast"
	"github.com/harborlang/uscc/internal/diag"
	"github.com/harborlang/uscc/internal/symtab"
)

// ----------------------------------------------------------------------
// Test helpers

func parseSrc(t *testing.T, src string) (*ast.Program, *diag.Sink) {
	t.Helper()
	errs := &diag.Sink{}
	p, err := New("test.usc", strings.NewReader(src), errs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	prog := p.ParseProgram()
	if prog == nil {
		t.Fatal("ParseProgram returned nil")
	}
	return prog, errs
}

func parseSrcOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := parseSrc(t, src)
	if !errs.OK() {
		var msgs []string
		for _, d := range errs.All() {
			msgs = append(msgs, d.Message)
		}
		t.Fatalf("unexpected errors: %v", msgs)
	}
	return prog
}

func errMessages(errs *diag.Sink) []string {
	var msgs []string
	for _, d := range errs.All() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func containsSubstr(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------
// Function and declaration parsing

func TestParseEmptyProgram(t *testing.T) {
	prog := parseSrcOK(t, "")
	if len(prog.Funcs) != 0 {
		t.Fatalf("got %d functions, want 0", len(prog.Funcs))
	}
}

func TestParseVoidFunction(t *testing.T) {
	prog := parseSrcOK(t, "void f() { }")
	if len(prog.Funcs) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Funcs))
	}
	fn := prog.Funcs[0]
	if fn.Ident.Name != "f" {
		t.Errorf("name = %q, want f", fn.Ident.Name)
	}
	if fn.Ret != symtab.Void {
		t.Errorf("ret = %s, want void", fn.Ret)
	}
	if !fn.NeedsSyntheticReturn {
		t.Error("expected a synthesized return for a void function with no explicit one")
	}
}

func TestParseMainMustReturnInt(t *testing.T) {
	_, errs := parseSrc(t, "void main() { }")
	if !containsSubstr(errMessages(errs), "must return an int") {
		t.Errorf("expected 'must return an int' error, got %v", errMessages(errs))
	}
}

func TestParseMainCannotTakeArgs(t *testing.T) {
	_, errs := parseSrc(t, "int main(int x) { return 0; }")
	if !containsSubstr(errMessages(errs), "cannot take any arguments") {
		t.Errorf("expected 'cannot take any arguments' error, got %v", errMessages(errs))
	}
}

func TestParseFunctionArgs(t *testing.T) {
	prog := parseSrcOK(t, "int add(int a, int b) { return a + b; }")
	fn := prog.Funcs[0]
	if len(fn.Args) != 2 {
		t.Fatalf("got %d args, want 2", len(fn.Args))
	}
	if fn.Args[0].Ident.Name != "a" || fn.Args[1].Ident.Name != "b" {
		t.Errorf("unexpected arg names: %q, %q", fn.Args[0].Ident.Name, fn.Args[1].Ident.Name)
	}
}

func TestParseArrayArgHasUnspecifiedCount(t *testing.T) {
	prog := parseSrcOK(t, "void f(int a[]) { }")
	fn := prog.Funcs[0]
	arg := fn.Args[0]
	if arg.Ident.Type != symtab.IntArray {
		t.Fatalf("arg type = %s, want IntArray", arg.Ident.Type)
	}
	if arg.Ident.ArrayCount != symtab.ArrayCountUnspecified {
		t.Errorf("arg array count = %d, want unspecified", arg.Ident.ArrayCount)
	}
}

func TestParseNonVoidFunctionRequiresReturn(t *testing.T) {
	_, errs := parseSrc(t, "int f() { }")
	if !containsSubstr(errMessages(errs), "must end with a return statement") {
		t.Errorf("expected missing-return error, got %v", errMessages(errs))
	}
}

func TestParseRedeclaredFunction(t *testing.T) {
	_, errs := parseSrc(t, "void f() { } void f() { }")
	if !containsSubstr(errMessages(errs), "invalid redeclaration") {
		t.Errorf("expected redeclaration error, got %v", errMessages(errs))
	}
}

func TestParseFunctionCannotReturnArray(t *testing.T) {
	_, errs := parseSrc(t, "int[] f() { return 0; }")
	if !containsSubstr(errMessages(errs), "cannot return array types") {
		t.Errorf("expected array-return error, got %v", errMessages(errs))
	}
}

// ----------------------------------------------------------------------
// Declarations

func TestParseDecl(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind symtab.Kind
		wantInit bool
	}{
		{"scalar", "int x;", symtab.Int, false},
		{"scalar_init", "int x = 1;", symtab.Int, true},
		{"char", "char c;", symtab.Char, false},
		{"int_array", "int a[10];", symtab.IntArray, false},
		{"char_array", "char buf[16];", symtab.CharArray, false},
		{"char_array_from_string", `char msg[] = "hi";`, symtab.CharArray, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parseSrcOK(t, "void f() { "+tt.src+" }")
			decls := prog.Funcs[0].Body.Decls
			if len(decls) != 1 {
				t.Fatalf("got %d decls, want 1", len(decls))
			}
			d := decls[0]
			if d.Ident.Type != tt.wantKind {
				t.Errorf("kind = %s, want %s", d.Ident.Type, tt.wantKind)
			}
			if (d.Init != nil) != tt.wantInit {
				t.Errorf("init set = %v, want %v", d.Init != nil, tt.wantInit)
			}
		})
	}
}

func TestParseIntArrayRejectsInitializer(t *testing.T) {
	_, errs := parseSrc(t, "void f() { int a[4] = 1; }")
	if !containsSubstr(errMessages(errs), "does not allow assignment in int array") {
		t.Errorf("expected int-array-initializer error, got %v", errMessages(errs))
	}
}

func TestParseIntArrayRequiresConstantSize(t *testing.T) {
	_, errs := parseSrc(t, "void f() { int n; int a[n]; }")
	if !containsSubstr(errMessages(errs), "constant declared size") {
		t.Errorf("expected constant-size error, got %v", errMessages(errs))
	}
}

func TestParseArraySizeBounds(t *testing.T) {
	_, errs := parseSrc(t, "void f() { int a[0]; }")
	if !containsSubstr(errMessages(errs), "between") {
		t.Errorf("expected size-bounds error, got %v", errMessages(errs))
	}
}

func TestParseCharArrayNeedsSizeOrInit(t *testing.T) {
	_, errs := parseSrc(t, "void f() { char buf[]; }")
	if !containsSubstr(errMessages(errs), "must have a declared size") {
		t.Errorf("expected declared-size error, got %v", errMessages(errs))
	}
}

func TestParseRedeclaredIdentifier(t *testing.T) {
	_, errs := parseSrc(t, "void f() { int x; int x; }")
	if !containsSubstr(errMessages(errs), "invalid redeclaration") {
		t.Errorf("expected redeclaration error, got %v", errMessages(errs))
	}
}

// ----------------------------------------------------------------------
// Statements

func TestParseStatementKinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"assign", "int x; x = 1;", "*ast.Assign"},
		{"assign_array", "int a[4]; a[0] = 1;", "*ast.AssignArray"},
		{"if", "int x; if (x) x = 1;", "*ast.If"},
		{"if_else", "int x; if (x) x = 1; else x = 2;", "*ast.If"},
		{"while", "int x; while (x) x = 0;", "*ast.While"},
		{"return_bare", "return;", "*ast.Return"},
		{"expr_stmt", "printf(\"hi\");", "*ast.ExprStmt"},
		{"null", ";", "*ast.NullStmt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parseSrcOK(t, "void f() { "+tt.src+" }")
			body := prog.Funcs[0].Body
			if len(body.Stmts) == 0 {
				t.Fatal("no statements parsed")
			}
			got := stmtTypeName(body.Stmts[len(body.Stmts)-1])
			if got != tt.want {
				t.Errorf("stmt type = %s, want %s", got, tt.want)
			}
		})
	}
}

func stmtTypeName(s ast.Stmt) string {
	switch s.(type) {
	case *ast.Compound:
		return "*ast.Compound"
	case *ast.Assign:
		return "*ast.Assign"
	case *ast.AssignArray:
		return "*ast.AssignArray"
	case *ast.If:
		return "*ast.If"
	case *ast.While:
		return "*ast.While"
	case *ast.Return:
		return "*ast.Return"
	case *ast.ExprStmt:
		return "*ast.ExprStmt"
	case *ast.NullStmt:
		return "*ast.NullStmt"
	default:
		return "unknown"
	}
}

func TestParseAssignToArrayIdentifierIsError(t *testing.T) {
	_, errs := parseSrc(t, "void f() { int a[4]; a = 1; }")
	if !containsSubstr(errMessages(errs), "reassignment of arrays is not allowed") {
		t.Errorf("expected array-reassignment error, got %v", errMessages(errs))
	}
}

func TestParseSubscriptOfNonArrayIsError(t *testing.T) {
	_, errs := parseSrc(t, "void f() { int x; x[0] = 1; }")
	if !containsSubstr(errMessages(errs), "is not an array") {
		t.Errorf("expected not-an-array error, got %v", errMessages(errs))
	}
}

func TestParseVoidReturnWithValueIsError(t *testing.T) {
	_, errs := parseSrc(t, "void f() { return 1; }")
	if !containsSubstr(errMessages(errs), "cannot return a value") {
		t.Errorf("expected void-return-value error, got %v", errMessages(errs))
	}
}

func TestParseNonVoidBareReturnIsError(t *testing.T) {
	_, errs := parseSrc(t, "int f() { return; }")
	if !containsSubstr(errMessages(errs), "invalid empty return in non-void function") {
		t.Errorf("expected missing-return-value error, got %v", errMessages(errs))
	}
}

func TestParseDeclarationAfterStatementIsError(t *testing.T) {
	_, errs := parseSrc(t, "void f() { ; int x; }")
	if !containsSubstr(errMessages(errs), "only allowed at the start of a block") {
		t.Errorf("expected misplaced-declaration error, got %v", errMessages(errs))
	}
}

// ----------------------------------------------------------------------
// Expressions and implicit conversions

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "Math{+,1,Math{*,2,3}}"},
		{"1 * 2 + 3", "Math{+,Math{*,1,2},3}"},
		{"1 < 2 && 3 > 4", "And{Cmp{<,1,2},Cmp{>,3,4}}"},
		{"1 && 2 || 3 && 4", "Or{And{1,2},And{3,4}}"},
		{"1 + 2 + 3", "Math{+,Math{+,1,2},3}"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			prog := parseSrcOK(t, "void f() { int x; x = "+tt.src+"; }")
			assign := prog.Funcs[0].Body.Stmts[0].(*ast.Assign)
			got := exprSummary(assign.Value)
			if got != tt.want {
				t.Errorf("precedence:\ngot:  %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func exprSummary(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.Constant:
		return itoa(x.Value)
	case *ast.Ident:
		return x.Id.Name
	case *ast.ToInt:
		return exprSummary(x.X)
	case *ast.ToChar:
		return exprSummary(x.X)
	case *ast.BinaryMath:
		return "Math{" + x.Op.String() + "," + exprSummary(x.Lhs) + "," + exprSummary(x.Rhs) + "}"
	case *ast.BinaryCmp:
		return "Cmp{" + x.Op.String() + "," + exprSummary(x.Lhs) + "," + exprSummary(x.Rhs) + "}"
	case *ast.LogicalAnd:
		return "And{" + exprSummary(x.Lhs) + "," + exprSummary(x.Rhs) + "}"
	case *ast.LogicalOr:
		return "Or{" + exprSummary(x.Lhs) + "," + exprSummary(x.Rhs) + "}"
	case *ast.Not:
		return "Not{" + exprSummary(x.X) + "}"
	default:
		return "<unknown>"
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func TestParseCharReadIsPromotedToInt(t *testing.T) {
	prog := parseSrcOK(t, "void f() { char c; int x; x = c; }")
	assign := prog.Funcs[0].Body.Stmts[0].(*ast.Assign)
	if _, ok := assign.Value.(*ast.ToInt); !ok {
		t.Fatalf("value is %T, want *ast.ToInt", assign.Value)
	}
}

func TestParseIntNarrowedToCharOnAssign(t *testing.T) {
	prog := parseSrcOK(t, "void f() { char c; c = 1; }")
	assign := prog.Funcs[0].Body.Stmts[0].(*ast.Assign)
	if _, ok := assign.Value.(*ast.ToChar); !ok {
		t.Fatalf("value is %T, want *ast.ToChar", assign.Value)
	}
}

func TestParseRedundantToIntUnwrappedOnNarrow(t *testing.T) {
	// c2 = c1 reads c1 (char -> ToInt), then narrows back to char for the
	// assignment: the redundant ToInt should be unwrapped rather than
	// double-wrapped.
	prog := parseSrcOK(t, "void f() { char c1; char c2; c2 = c1; }")
	assign := prog.Funcs[0].Body.Stmts[0].(*ast.Assign)
	ident, ok := assign.Value.(*ast.Ident)
	if !ok {
		t.Fatalf("value is %T, want *ast.Ident (unwrapped)", assign.Value)
	}
	if ident.Id.Name != "c1" {
		t.Errorf("ident = %q, want c1", ident.Id.Name)
	}
}

func TestParseUndeclaredIdentifier(t *testing.T) {
	_, errs := parseSrc(t, "void f() { x = 1; }")
	if !containsSubstr(errMessages(errs), "use of undeclared identifier") {
		t.Errorf("expected undeclared-identifier error, got %v", errMessages(errs))
	}
}

func TestParseArrayElementReadPromotesLikeAnyOtherRead(t *testing.T) {
	prog := parseSrcOK(t, "void f() { char a[4]; int x; x = a[0] + 1; }")
	assign := prog.Funcs[0].Body.Stmts[0].(*ast.Assign)
	if assign.Value.ExprType() != symtab.Int {
		t.Errorf("result type = %s, want int", assign.Value.ExprType())
	}
}

// ----------------------------------------------------------------------
// The unused-identifier lookahead buffer

func TestParseBareFunctionCallStatement(t *testing.T) {
	prog := parseSrcOK(t, "void g() { } void f() { g(); }")
	body := prog.Funcs[1].Body
	if len(body.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(body.Stmts))
	}
	es, ok := body.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("stmt is %T, want *ast.ExprStmt", body.Stmts[0])
	}
	if _, ok := es.X.(*ast.FuncCall); !ok {
		t.Fatalf("expr is %T, want *ast.FuncCall", es.X)
	}
}

func TestParseIncrementStatement(t *testing.T) {
	prog := parseSrcOK(t, "void f() { char c; ++c; }")
	body := prog.Funcs[0].Body
	es, ok := body.Stmts[len(body.Stmts)-1].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("stmt is %T, want *ast.ExprStmt", body.Stmts[len(body.Stmts)-1])
	}
	if _, ok := es.X.(*ast.ToInt); !ok {
		t.Fatalf("expr is %T, want *ast.ToInt wrapping an Inc (c is char)", es.X)
	}
}

func TestParseArrayReadStatement(t *testing.T) {
	prog := parseSrcOK(t, "void f() { int a[4]; a[0] = 1; a[0]; }")
	body := prog.Funcs[0].Body
	if len(body.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(body.Stmts))
	}
	if _, ok := body.Stmts[0].(*ast.AssignArray); !ok {
		t.Fatalf("stmt[0] is %T, want *ast.AssignArray", body.Stmts[0])
	}
	if _, ok := body.Stmts[1].(*ast.ExprStmt); !ok {
		t.Fatalf("stmt[1] is %T, want *ast.ExprStmt", body.Stmts[1])
	}
}

// ----------------------------------------------------------------------
// Function calls

func TestParseCallArgCount(t *testing.T) {
	_, errs := parseSrc(t, "int add(int a, int b) { return a + b; } void f() { add(1); }")
	if !containsSubstr(errMessages(errs), "requires 2 arguments") {
		t.Errorf("expected arity error, got %v", errMessages(errs))
	}
}

func TestParseCallTooManyArgs(t *testing.T) {
	_, errs := parseSrc(t, "int add(int a) { return a; } void f() { add(1, 2); }")
	if !containsSubstr(errMessages(errs), "takes only") {
		t.Errorf("expected excess-argument error, got %v", errMessages(errs))
	}
}

func TestParsePrintfRequiresCharArrayFirstArg(t *testing.T) {
	_, errs := parseSrc(t, `void f() { int x; printf(x); }`)
	if !containsSubstr(errMessages(errs), "first argument to printf must be a char[]") {
		t.Errorf("expected printf-arg error, got %v", errMessages(errs))
	}
}

func TestParsePrintfRequiresAtLeastOneArg(t *testing.T) {
	_, errs := parseSrc(t, `void f() { printf(); }`)
	if !containsSubstr(errMessages(errs), "minimum of one argument") {
		t.Errorf("expected printf-arity error, got %v", errMessages(errs))
	}
}

func TestParseSetsNeedsPrintf(t *testing.T) {
	errs := &diag.Sink{}
	p, err := New("test.usc", strings.NewReader(`void f() { printf("hi"); }`), errs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.ParseProgram()
	if !errs.OK() {
		t.Fatalf("unexpected errors: %v", errMessages(errs))
	}
	if !p.NeedsPrintf() {
		t.Error("expected NeedsPrintf to be true after calling printf")
	}
}

func TestParseCallToNonFunctionIsError(t *testing.T) {
	_, errs := parseSrc(t, "void f() { int x; x(); }")
	if !containsSubstr(errMessages(errs), "is not a function") {
		t.Errorf("expected not-a-function error, got %v", errMessages(errs))
	}
}

// ----------------------------------------------------------------------
// AddrOfArray

func TestParseAddrOfArrayExpression(t *testing.T) {
	prog := parseSrcOK(t, "int add(int a[]) { return a[0]; } void f() { int a[4]; add(&a[0]); }")
	body := prog.Funcs[1].Body
	es := body.Stmts[len(body.Stmts)-1].(*ast.ExprStmt)
	call, ok := es.X.(*ast.FuncCall)
	if !ok {
		t.Fatalf("expr is %T, want *ast.FuncCall", es.X)
	}
	if len(call.Args) != 1 {
		t.Fatalf("got %d args, want 1", len(call.Args))
	}
	if _, ok := call.Args[0].(*ast.AddrOfArray); !ok {
		t.Fatalf("arg is %T, want *ast.AddrOfArray", call.Args[0])
	}
}

// ----------------------------------------------------------------------
// Error recovery / no-panic

func TestParseNoPanic(t *testing.T) {
	badInputs := []string{
		"",
		"void",
		"void f(",
		"void f() {",
		"void f() { if (",
		"void f() { while (",
		"void f() { int a[",
		"int f() { return",
		";;;;;;;",
		"void f() { ((((((( }",
		"int main(",
	}
	for _, src := range badInputs {
		name := src
		if len(name) > 20 {
			name = name[:20]
		}
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("parser panicked on %q: %v", src, r)
				}
			}()
			errs := &diag.Sink{}
			p, err := New("test.usc", strings.NewReader(src), errs)
			if err != nil {
				return
			}
			p.ParseProgram()
		})
	}
}

// ----------------------------------------------------------------------
// Complete program

func TestParseCompleteProgram(t *testing.T) {
	src := `
int add(int a, int b) {
	return a + b;
}

int main() {
	int x;
	int a[4];
	char msg[] = "result: ";
	x = add(1, 2);
	a[0] = x;
	if (x > 0) {
		printf(msg);
	} else {
		printf(msg);
	}
	while (x > 0) {
		x = x - 1;
	}
	return 0;
}
`
	prog := parseSrcOK(t, src)
	if len(prog.Funcs) != 2 {
		t.Fatalf("got %d functions, want 2", len(prog.Funcs))
	}
	if prog.Funcs[1].Ident.Name != "main" {
		t.Errorf("second function = %q, want main", prog.Funcs[1].Ident.Name)
	}
}
