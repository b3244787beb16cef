package opt

import (
	"github.com/llir/llvm/ir"
)

// RunDeadBlocks removes blocks unreachable from the entry block,
// grounded on original_source/opt/DeadBlocks.cpp's DFS-from-entry
// reachability walk. Any phi in a surviving block with an incoming edge
// from a removed block has that incoming value dropped, since ssa's
// trivial-phi removal (package ssa) only ever runs during construction
// and cannot see blocks a later pass deletes.
func RunDeadBlocks(fn *ir.Func, a *Analyses) bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	g := a.Graph()
	reached := make(map[*ir.Block]bool, len(fn.Blocks))
	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		if reached[b] {
			return
		}
		reached[b] = true
		for _, s := range g.Succs(b) {
			walk(s)
		}
	}
	walk(fn.Blocks[0])

	if len(reached) == len(fn.Blocks) {
		return false
	}

	var kept []*ir.Block
	for _, b := range fn.Blocks {
		if reached[b] {
			kept = append(kept, b)
		}
	}
	fn.Blocks = kept

	for _, b := range kept {
		for _, inst := range b.Insts {
			phi, ok := inst.(*ir.InstPhi)
			if !ok {
				continue
			}
			var live []*ir.Incoming
			for _, inc := range phi.Incs {
				if reached[inc.Pred.(*ir.Block)] {
					live = append(live, inc)
				}
			}
			phi.Incs = live
		}
	}
	return true
}
