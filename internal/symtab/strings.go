package symtab

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
)

// StringConst is one interned string literal (spec.md §3, §4.2). Its IR
// global is created lazily so that string interning during parsing never
// needs a Module to already exist.
type StringConst struct {
	Text  string
	Value *ir.Global // nil until EmitGlobals runs
}

// StringTable interns string literals by exact text (spec.md §4.2).
type StringTable struct {
	byText map[string]*StringConst
	order  []*StringConst // insertion order, for deterministic global emission
	next   int
}

// NewStringTable creates an empty string table.
func NewStringTable() *StringTable {
	return &StringTable{byText: make(map[string]*StringConst)}
}

// Get returns the existing interned entry for text, or inserts and
// returns a new one.
func (t *StringTable) Get(text string) *StringConst {
	if sc, ok := t.byText[text]; ok {
		return sc
	}
	sc := &StringConst{Text: text}
	t.byText[text] = sc
	t.order = append(t.order, sc)
	return sc
}

// EmitGlobals materializes one private, unnamed-address, 1-aligned byte
// array global per interned entry, containing the text plus a NUL
// terminator (spec.md §4.2). Call once, after parsing, before or during
// IR emission.
func (t *StringTable) EmitGlobals(m *ir.Module) {
	for _, sc := range t.order {
		if sc.Value != nil {
			continue
		}
		data := constant.NewCharArrayFromString(sc.Text + "\x00")
		g := m.NewGlobalDef(fmt.Sprintf(".str.%d", t.next), data)
		g.Linkage = enum.LinkagePrivate
		g.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
		g.Immutable = true
		g.Align = 1
		t.next++
		sc.Value = g
	}
}
