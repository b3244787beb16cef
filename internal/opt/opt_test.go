package opt

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

func TestConstantOpsFoldsAddOfTwoConstants(t *testing.T) {
	fn := ir.NewFunc("f", types.I32)
	entry := fn.NewBlock("entry")
	add := entry.NewAdd(constant.NewInt(types.I32, 2), constant.NewInt(types.I32, 3))
	entry.NewRet(add)

	changed := RunConstantOps(fn, newAnalyses(fn))
	if !changed {
		t.Fatalf("RunConstantOps reported no change folding 2+3")
	}
	ret, ok := entry.Term.(*ir.TermRet)
	if !ok {
		t.Fatalf("terminator = %T, want *ir.TermRet", entry.Term)
	}
	c, ok := ret.X.(*constant.Int)
	if !ok || c.X.Int64() != 5 {
		t.Fatalf("folded return value = %v, want constant 5", ret.X)
	}
}

func TestConstantBranchAndDeadBlocksTogetherPruneUnreachableArm(t *testing.T) {
	fn := ir.NewFunc("f", types.Void)
	entry := fn.NewBlock("entry")
	live := fn.NewBlock("live")
	dead := fn.NewBlock("dead")

	entry.NewCondBr(constant.NewInt(types.I1, 1), live, dead)
	live.NewRet(nil)
	dead.NewRet(nil)

	a := newAnalyses(fn)
	if !RunConstantBranch(fn, a) {
		t.Fatalf("RunConstantBranch reported no change on a constant condition")
	}
	a.invalidate()
	if !RunDeadBlocks(fn, a) {
		t.Fatalf("RunDeadBlocks reported no change with an unreachable block present")
	}
	if len(fn.Blocks) != 2 {
		t.Fatalf("fn has %d blocks after DeadBlocks, want 2 (entry, live)", len(fn.Blocks))
	}
	for _, b := range fn.Blocks {
		if b == dead {
			t.Fatalf("dead block survived RunDeadBlocks")
		}
	}
}

func TestLICMHoistsInvariantComputationOutOfLoopBody(t *testing.T) {
	fn := ir.NewFunc("f", types.Void)
	entry := fn.NewBlock("entry")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.NewBr(header)
	header.NewCondBr(constant.NewInt(types.I1, 1), body, exit)
	invariant := body.NewAdd(constant.NewInt(types.I32, 1), constant.NewInt(types.I32, 1))
	_ = invariant
	body.NewBr(header)
	exit.NewRet(nil)

	a := newAnalyses(fn)
	changed := RunLICM(fn, a)
	if !changed {
		t.Fatalf("RunLICM reported no change for a loop-invariant computation")
	}
	for _, inst := range entry.Insts {
		if inst == ir.Instruction(invariant) {
			return
		}
	}
	t.Fatalf("invariant add was not hoisted into the preheader (entry)")
}
