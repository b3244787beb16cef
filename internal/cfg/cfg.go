// Package cfg supplies the control-flow-graph queries that
// github.com/llir/llvm does not itself maintain: llir/llvm models control
// flow only through each block's terminator instruction (*ir.TermBr,
// *ir.TermCondBr, *ir.TermRet, *ir.TermUnreachable, *ir.TermSwitch) and
// never tracks predecessors. This mirrors the teacher's own
// ssa.Block.Preds/Succs and ssa.ReversePostOrder, ported from the
// teacher's hand-rolled *ssa.Block onto *ir.Block.
package cfg

import (
	"github.com/llir/llvm/ir"
)

// Graph is the cached CFG of one function: successor and predecessor
// lists keyed by block, built in one linear pass over each block's
// terminator. It must be rebuilt (via Build) whenever a pass rewrites or
// removes a terminator, exactly as spec.md's §4.7 CFG-cache-invalidation
// rule requires.
type Graph struct {
	fn    *ir.Func
	succs map[*ir.Block][]*ir.Block
	preds map[*ir.Block][]*ir.Block
}

// Build computes the successor/predecessor lists for every block of fn
// by inspecting each block's terminator.
func Build(fn *ir.Func) *Graph {
	g := &Graph{
		fn:    fn,
		succs: make(map[*ir.Block][]*ir.Block, len(fn.Blocks)),
		preds: make(map[*ir.Block][]*ir.Block, len(fn.Blocks)),
	}
	for _, b := range fn.Blocks {
		g.succs[b] = successorsOf(b)
	}
	for _, b := range fn.Blocks {
		for _, s := range g.succs[b] {
			g.preds[s] = append(g.preds[s], b)
		}
	}
	return g
}

// successorsOf reads a block's terminator to determine its successors.
// llir/llvm's terminator types each expose their target blocks directly;
// a block with a nil terminator (still under construction) has none.
func successorsOf(b *ir.Block) []*ir.Block {
	switch term := b.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{term.Target.(*ir.Block)}
	case *ir.TermCondBr:
		return []*ir.Block{term.TargetTrue.(*ir.Block), term.TargetFalse.(*ir.Block)}
	case *ir.TermSwitch:
		succs := make([]*ir.Block, 0, 1+len(term.Cases))
		succs = append(succs, term.TargetDefault.(*ir.Block))
		for _, c := range term.Cases {
			succs = append(succs, c.Target.(*ir.Block))
		}
		return succs
	case *ir.TermRet, *ir.TermUnreachable:
		return nil
	default:
		return nil
	}
}

// Succs returns b's successor blocks, in terminator order.
func (g *Graph) Succs(b *ir.Block) []*ir.Block { return g.succs[b] }

// Preds returns b's predecessor blocks, in the order they were
// discovered during Build.
func (g *Graph) Preds(b *ir.Block) []*ir.Block { return g.preds[b] }

// ReversePostOrder returns fn's blocks in reverse postorder from the
// entry block, used by dominator construction (spec.md §4.8), grounded
// on the teacher's ssa.ReversePostOrder.
func (g *Graph) ReversePostOrder() []*ir.Block {
	if len(g.fn.Blocks) == 0 {
		return nil
	}
	entry := g.fn.Blocks[0]
	visited := make(map[*ir.Block]bool, len(g.fn.Blocks))
	var post []*ir.Block

	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range g.succs[b] {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)

	rpo := make([]*ir.Block, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}
