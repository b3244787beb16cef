// Package domtree computes dominator trees and natural loops over
// *ir.Func, neither of which github.com/llir/llvm supplies. LICM
// (spec.md §4.6) needs both. Grounded on the teacher's ssa.ComputeDom,
// itself an implementation of Cooper, Harvey & Kennedy's "A Simple, Fast
// Dominance Algorithm", ported from the teacher's *ssa.Block onto
// *ir.Block via an internal/cfg.Graph.
package domtree

import (
	"github.com/llir/llvm/ir"

	"github.com/harborlang/uscc/internal/cfg"
)

// Tree holds one function's immediate-dominator relation.
type Tree struct {
	fn    *ir.Func
	g     *cfg.Graph
	idom  map[*ir.Block]*ir.Block
	num   map[*ir.Block]int // reverse-postorder index, for intersect
	kids  map[*ir.Block][]*ir.Block
	entry *ir.Block
}

// Compute builds the dominator tree of fn using g's cached CFG.
func Compute(fn *ir.Func, g *cfg.Graph) *Tree {
	rpo := g.ReversePostOrder()
	if len(rpo) == 0 {
		return &Tree{fn: fn, g: g, idom: map[*ir.Block]*ir.Block{}, num: map[*ir.Block]int{}, kids: map[*ir.Block][]*ir.Block{}}
	}

	num := make(map[*ir.Block]int, len(rpo))
	for i, b := range rpo {
		num[b] = i
	}

	entry := rpo[0]
	idom := make(map[*ir.Block]*ir.Block, len(rpo))
	idom[entry] = entry // sentinel: entry dominates itself during the fixpoint

	intersect := func(b1, b2 *ir.Block) *ir.Block {
		for b1 != b2 {
			for num[b1] > num[b2] {
				b1 = idom[b1]
			}
			for num[b2] > num[b1] {
				b2 = idom[b2]
			}
		}
		return b1
	}

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			preds := g.Preds(b)
			var newIdom *ir.Block
			for _, p := range preds {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	idom[entry] = nil // entry has no dominator

	kids := make(map[*ir.Block][]*ir.Block, len(rpo))
	for _, b := range rpo {
		if p := idom[b]; p != nil {
			kids[p] = append(kids[p], b)
		}
	}

	return &Tree{fn: fn, g: g, idom: idom, num: num, kids: kids, entry: entry}
}

// IDom returns b's immediate dominator, or nil for the entry block.
func (t *Tree) IDom(b *ir.Block) *ir.Block { return t.idom[b] }

// Dominates reports whether a dominates b (every block dominates itself).
func (t *Tree) Dominates(a, b *ir.Block) bool {
	for cur := b; cur != nil; cur = t.idom[cur] {
		if cur == a {
			return true
		}
		if cur == t.entry {
			break
		}
	}
	return a == b
}

// Frontier computes the dominance frontier of every block (not the
// iterated frontier): the standard walk from each join node's predecessors up
// to (but excluding) the node's own immediate dominator, grounded on the
// teacher's ssa.ComputeDomFrontier.
func (t *Tree) Frontier() map[*ir.Block][]*ir.Block {
	df := make(map[*ir.Block][]*ir.Block)
	for _, b := range t.fn.Blocks {
		preds := t.g.Preds(b)
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != t.idom[b] {
				df[runner] = appendUnique(df[runner], b)
				runner = t.idom[runner]
				if runner == nil {
					break
				}
			}
		}
	}
	return df
}

func appendUnique(list []*ir.Block, b *ir.Block) []*ir.Block {
	for _, e := range list {
		if e == b {
			return list
		}
	}
	return append(list, b)
}

// Loop is one natural loop: its header, the set of blocks belonging to
// it, and its preheader (spec.md §4.8).
type Loop struct {
	Header    *ir.Block
	Blocks    map[*ir.Block]bool
	Preheader *ir.Block
}

// NaturalLoops finds every back edge u->h (h dominates u) and grows each
// loop body backward from the latch u to the header h along predecessor
// edges — the classical construction taught alongside Cooper's dominance
// algorithm, grounded on the same source as Tree itself.
func NaturalLoops(fn *ir.Func, t *Tree) []*Loop {
	var loops []*Loop
	for _, u := range fn.Blocks {
		for _, h := range t.g.Succs(u) {
			if !t.Dominates(h, u) {
				continue
			}
			loop := &Loop{Header: h, Blocks: map[*ir.Block]bool{h: true, u: true}}
			stack := []*ir.Block{u}
			for len(stack) > 0 {
				n := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, p := range t.g.Preds(n) {
					if !loop.Blocks[p] {
						loop.Blocks[p] = true
						stack = append(stack, p)
					}
				}
			}
			loop.Preheader = preheaderOf(t, h, u)
			loops = append(loops, loop)
		}
	}
	return loops
}

// preheaderOf returns h's unique non-latch predecessor. spec.md §9
// records that USC's while-loop lowering always gives the header exactly
// two predecessors (the pre-loop block and the back edge from the latch),
// so this is always well-defined for loops this front end emits.
func preheaderOf(t *Tree, h, latch *ir.Block) *ir.Block {
	for _, p := range t.g.Preds(h) {
		if p != latch {
			return p
		}
	}
	return nil
}
