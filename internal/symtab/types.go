// Package symtab implements USC's lexically nested scope tree and the
// interned string-constant table (spec.md §4.1, §4.2).
package symtab

import "fmt"

// Kind enumerates the USC type system: scalars, fixed-size arrays,
// void, and a marker for function-valued symbols (spec.md §3).
type Kind int

const (
	Void Kind = iota
	Int       // i32
	Char      // i8
	IntArray
	CharArray
	Function
)

var kindNames = [...]string{
	Void:      "void",
	Int:       "int",
	Char:      "char",
	IntArray:  "int[]",
	CharArray: "char[]",
	Function:  "function",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsArray reports whether k is one of the fixed-size array kinds.
func (k Kind) IsArray() bool { return k == IntArray || k == CharArray }

// IsScalar reports whether k is Int or Char.
func (k Kind) IsScalar() bool { return k == Int || k == Char }

// ElemKind returns the element kind of an array type (Int for IntArray,
// Char for CharArray); it panics if k is not an array kind.
func (k Kind) ElemKind() Kind {
	switch k {
	case IntArray:
		return Int
	case CharArray:
		return Char
	default:
		panic(fmt.Sprintf("symtab: ElemKind of non-array kind %s", k))
	}
}

// ArrayKindOf returns the array kind whose elements are elem.
func ArrayKindOf(elem Kind) Kind {
	switch elem {
	case Int:
		return IntArray
	case Char:
		return CharArray
	default:
		panic(fmt.Sprintf("symtab: ArrayKindOf non-scalar kind %s", elem))
	}
}
