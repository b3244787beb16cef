package symtab

import (
	"github.com/harborlang/uscc/internal/token"
	"github.com/llir/llvm/ir/value"
)

// ArrayCountUnspecified marks an identifier whose declared type is not an
// array count-carrying array (a scalar, a function-parameter array, or a
// function symbol). spec.md §3.
const ArrayCountUnspecified = -1

// Identifier is the metadata the symbol table stores for one declared
// name (spec.md §3). AST nodes hold *Identifier pointers, never copies:
// the identifier is owned by its scope, shared by reference from every
// AST node that mentions the name.
type Identifier struct {
	Name       string
	Type       Kind
	ArrayCount int // element count for arrays; ArrayCountUnspecified otherwise

	// FuncDecl is the owning function AST node when Type == Function.
	// Typed as interface{} to avoid an import cycle between symtab and
	// ast (ast.Function embeds *Identifier as its name, and its address
	// is recorded back here once the function is declared).
	FuncDecl interface{}

	// IRValue is the SSA value handle bound during IR emission. It is
	// used only for function addresses and array base pointers per
	// spec.md §3; scalar values live in the SSA builder's per-block map,
	// never here.
	IRValue value.Value

	// Pos is the identifier's declaration position, used for diagnostics.
	Pos token.Pos
}

// IsDummy reports whether id is one of the error-recovery placeholders
// (spec.md §3, §9).
func (id *Identifier) IsDummy() bool {
	return id.Name == DummyVariableName || id.Name == DummyFunctionName || id.Name == DummyArrayName
}

// Reserved dummy names used as error-recovery placeholders so parsing
// may continue after semantic errors without cascading nils (spec.md §3).
// DummyArrayName stands in wherever an array subscript is required but
// the parsed identifier turned out not to be an array; it carries a
// valid IntArray type so ArraySub construction never has to special-case
// the recovery path.
const (
	DummyVariableName = "@@variable"
	DummyFunctionName = "@@function"
	DummyArrayName    = "@@array"
)
