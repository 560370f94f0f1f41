// Package reconstruct finds the shortest path from a content hash to a base
// blob across the delta graph maintained by a content store (§4.5).
//
// Grounded directly on _examples/original_source/graph.cc's
// get_reconstruction_path: parallel-path breadth-first search bounded to
// linear work in the reachable node count via a single shared "seen" set.
package reconstruct

import "monotone-sub001/pkg/vpath"

// Graph is the abstract delta graph a reconstruction path is searched
// over: nodes are content hashes, edges go from a stored delta to its
// base.
type Graph interface {
	// IsBase reports whether h has a full, non-delta blob stored.
	IsBase(h vpath.Hash) bool
	// Successors returns the hashes h has a stored delta against (h's
	// immediate bases in the delta chain).
	Successors(h vpath.Hash) []vpath.Hash
}

// path is one live BFS branch: the sequence of hashes visited so far.
type path struct {
	hashes []vpath.Hash
}

// GetReconstructionPath returns the shortest sequence [start, …, base]
// such that each consecutive pair is an edge in graph, and the final
// element is a base (§4.5). A start from which no base is reachable is a
// precondition violation and panics rather than returning an error. Cycles
// are not detected as such: the shared seen set keeps the search from
// revisiting a hash, so a cycle leads to a panic only when no base is
// reachable from start.
func GetReconstructionPath(start vpath.Hash, graph Graph) []vpath.Hash {
	if graph.IsBase(start) {
		return []vpath.Hash{start}
	}

	livePaths := []*path{{hashes: []vpath.Hash{start}}}
	seen := map[vpath.Hash]struct{}{start: {}}

	for len(livePaths) > 0 {
		var next []*path
		for _, p := range livePaths {
			tip := p.hashes[len(p.hashes)-1]
			for _, succ := range graph.Successors(tip) {
				if _, already := seen[succ]; already {
					continue
				}
				seen[succ] = struct{}{}
				extended := make([]vpath.Hash, len(p.hashes)+1)
				copy(extended, p.hashes)
				extended[len(p.hashes)] = succ
				np := &path{hashes: extended}
				if graph.IsBase(succ) {
					return np.hashes
				}
				next = append(next, np)
			}
		}
		livePaths = next
	}

	panic("reconstruct: no reconstruction path found (no base is reachable from start)")
}
