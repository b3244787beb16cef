package opt

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
)

// RunConstantBranch rewrites a conditional branch whose condition folded
// to a constant into an unconditional branch to the taken target,
// grounded on original_source/opt/ConstantBranch.cpp.
func RunConstantBranch(fn *ir.Func, _ *Analyses) bool {
	changed := false
	for _, b := range fn.Blocks {
		condBr, ok := b.Term.(*ir.TermCondBr)
		if !ok {
			continue
		}
		c, ok := condBr.Cond.(*constant.Int)
		if !ok {
			continue
		}
		target := condBr.TargetFalse
		if c.X.Sign() != 0 {
			target = condBr.TargetTrue
		}
		b.NewBr(target.(*ir.Block))
		changed = true
	}
	return changed
}
