package opt

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// replaceAllUses rewrites every operand of fn's instructions and
// terminators that currently reads old to read new instead. llir/llvm,
// unlike the teacher's own ssa.Value, keeps no use list on a value, so
// each pass that eliminates a value walks the function once to fix up
// its remaining users -- the same shape as LLVM's own
// replaceAllUsesWith, just done by hand.
func replaceAllUses(fn *ir.Func, old, new value.Value) {
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			replaceOperands(inst, old, new)
		}
		replaceTermOperands(b.Term, old, new)
	}
}

func replaceOperands(inst ir.Instruction, old, new value.Value) {
	switch i := inst.(type) {
	case *ir.InstAdd:
		i.X, i.Y = swap2(i.X, i.Y, old, new)
	case *ir.InstSub:
		i.X, i.Y = swap2(i.X, i.Y, old, new)
	case *ir.InstMul:
		i.X, i.Y = swap2(i.X, i.Y, old, new)
	case *ir.InstSDiv:
		i.X, i.Y = swap2(i.X, i.Y, old, new)
	case *ir.InstSRem:
		i.X, i.Y = swap2(i.X, i.Y, old, new)
	case *ir.InstICmp:
		i.X, i.Y = swap2(i.X, i.Y, old, new)
	case *ir.InstSExt:
		i.From = swap1(i.From, old, new)
	case *ir.InstTrunc:
		i.From = swap1(i.From, old, new)
	case *ir.InstZExt:
		i.From = swap1(i.From, old, new)
	case *ir.InstLoad:
		i.Src = swap1(i.Src, old, new)
	case *ir.InstStore:
		i.Src = swap1(i.Src, old, new)
		i.Dst = swap1(i.Dst, old, new)
	case *ir.InstGetElementPtr:
		i.Src = swap1(i.Src, old, new)
		for j, idx := range i.Indices {
			i.Indices[j] = swap1(idx, old, new)
		}
	case *ir.InstCall:
		for j, arg := range i.Args {
			i.Args[j] = swap1(arg, old, new)
		}
	case *ir.InstPhi:
		for _, inc := range i.Incs {
			inc.X = swap1(inc.X, old, new)
		}
	}
}

func replaceTermOperands(term ir.Terminator, old, new value.Value) {
	switch t := term.(type) {
	case *ir.TermCondBr:
		t.Cond = swap1(t.Cond, old, new)
	case *ir.TermRet:
		if t.X != nil {
			t.X = swap1(t.X, old, new)
		}
	case *ir.TermSwitch:
		t.X = swap1(t.X, old, new)
	}
}

func swap1(v, old, new value.Value) value.Value {
	if v == old {
		return new
	}
	return v
}

func swap2(x, y, old, new value.Value) (value.Value, value.Value) {
	return swap1(x, old, new), swap1(y, old, new)
}

// operandsOf returns the value operands of the instruction kinds irgen
// and the earlier passes can produce, for LICM's invariance test.
func operandsOf(inst ir.Instruction) []value.Value {
	switch i := inst.(type) {
	case *ir.InstAdd:
		return []value.Value{i.X, i.Y}
	case *ir.InstSub:
		return []value.Value{i.X, i.Y}
	case *ir.InstMul:
		return []value.Value{i.X, i.Y}
	case *ir.InstSDiv:
		return []value.Value{i.X, i.Y}
	case *ir.InstSRem:
		return []value.Value{i.X, i.Y}
	case *ir.InstICmp:
		return []value.Value{i.X, i.Y}
	case *ir.InstSExt:
		return []value.Value{i.From}
	case *ir.InstTrunc:
		return []value.Value{i.From}
	case *ir.InstZExt:
		return []value.Value{i.From}
	case *ir.InstGetElementPtr:
		ops := make([]value.Value, 0, 1+len(i.Indices))
		ops = append(ops, i.Src)
		ops = append(ops, i.Indices...)
		return ops
	default:
		return nil
	}
}
