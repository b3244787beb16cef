package opt

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/harborlang/uscc/internal/domtree"
)

// hoistable is exactly the instruction kinds original_source/opt/LICM.cpp
// permits (isSafeToHoistInstr: BinaryOperator, CastInst, GetElementPtr,
// CmpInst -- SelectInst has no USC equivalent, so it is omitted).
func hoistable(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.InstAdd, *ir.InstSub, *ir.InstMul, *ir.InstSDiv, *ir.InstSRem,
		*ir.InstICmp, *ir.InstSExt, *ir.InstTrunc, *ir.InstZExt, *ir.InstGetElementPtr:
		return true
	default:
		return false
	}
}

// RunLICM hoists loop-invariant, side-effect-free instructions out of
// each natural loop's body into its preheader (spec.md §4.6, §9
// "Preheader existence"). Grounded on original_source/opt/LICM.cpp's
// isSafeToHoistInstr + hasLoopInvariantOperands pairing, adapted to run
// as one function-wide pass over every loop found by package domtree
// rather than LLVM's per-loop pass manager.
func RunLICM(fn *ir.Func, a *Analyses) bool {
	loops := a.Loops()
	if len(loops) == 0 {
		return false
	}

	instBlock := make(map[ir.Instruction]*ir.Block)
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			instBlock[inst] = b
		}
	}

	changed := false
	for _, loop := range loops {
		if loop.Preheader == nil {
			continue
		}
		for b := range loop.Blocks {
			if b == loop.Header {
				continue // the header's own phis/condition stay put
			}
			var kept []ir.Instruction
			for _, inst := range b.Insts {
				if !hoistable(inst) || !invariant(inst, loop, instBlock) {
					kept = append(kept, inst)
					continue
				}
				loop.Preheader.Insts = append(loop.Preheader.Insts, inst)
				instBlock[inst] = loop.Preheader
				changed = true
			}
			b.Insts = kept
		}
	}
	return changed
}

func invariant(inst ir.Instruction, loop *domtree.Loop, instBlock map[ir.Instruction]*ir.Block) bool {
	for _, opnd := range operandsOf(inst) {
		if definedInLoop(opnd, loop, instBlock) {
			return false
		}
	}
	return true
}

func definedInLoop(v value.Value, loop *domtree.Loop, instBlock map[ir.Instruction]*ir.Block) bool {
	inst, ok := v.(ir.Instruction)
	if !ok {
		return false // a constant or a function parameter is always invariant
	}
	blk, ok := instBlock[inst]
	return ok && loop.Blocks[blk]
}
