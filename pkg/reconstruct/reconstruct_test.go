package reconstruct

import (
	"reflect"
	"testing"

	"monotone-sub001/pkg/vpath"
)

func h(b byte) vpath.Hash {
	var x vpath.Hash
	x[0] = b
	return x
}

// mapGraph is a fixed adjacency-list Graph for testing.
type mapGraph struct {
	bases map[vpath.Hash]bool
	succs map[vpath.Hash][]vpath.Hash
}

func (g mapGraph) IsBase(h vpath.Hash) bool          { return g.bases[h] }
func (g mapGraph) Successors(h vpath.Hash) []vpath.Hash { return g.succs[h] }

func TestGetReconstructionPathDualPathGraph(t *testing.T) {
	// n0 <- n1 <- n2, and n0 <- n3 <- n2: two length-2 paths from n2 down
	// to base n0, both of the same length, so the search must terminate
	// returning a 3-element path ending at the base.
	n0, n1, n2, n3 := h(0), h(1), h(2), h(3)
	g := mapGraph{
		bases: map[vpath.Hash]bool{n0: true},
		succs: map[vpath.Hash][]vpath.Hash{
			n1: {n0},
			n2: {n1, n3},
			n3: {n0},
		},
	}
	got := GetReconstructionPath(n2, g)
	if len(got) != 3 {
		t.Fatalf("expected a 3-element path, got %v", got)
	}
	if got[0] != n2 {
		t.Fatalf("expected path to start at n2, got %v", got[0])
	}
	if got[len(got)-1] != n0 {
		t.Fatalf("expected path to end at base n0, got %v", got[len(got)-1])
	}
}

func TestGetReconstructionPathStartIsBase(t *testing.T) {
	n0 := h(0)
	g := mapGraph{bases: map[vpath.Hash]bool{n0: true}}
	got := GetReconstructionPath(n0, g)
	want := []vpath.Hash{n0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GetReconstructionPath(base) = %v, want %v", got, want)
	}
}

func TestGetReconstructionPathUnreachablePanics(t *testing.T) {
	n1, n2 := h(1), h(2)
	g := mapGraph{
		bases: map[vpath.Hash]bool{},
		succs: map[vpath.Hash][]vpath.Hash{n2: {n1}}, // n1 has no successors and is not a base
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic when no base is reachable")
		}
	}()
	GetReconstructionPath(n2, g)
}

func TestGetReconstructionPathPicksShorterBranch(t *testing.T) {
	// n2 -> n1 -> n0 (base), and n2 -> n0 directly: the direct edge must
	// win since BFS explores both branches level by level.
	n0, n1, n2 := h(0), h(1), h(2)
	g := mapGraph{
		bases: map[vpath.Hash]bool{n0: true},
		succs: map[vpath.Hash][]vpath.Hash{
			n2: {n0, n1},
			n1: {n0},
		},
	}
	got := GetReconstructionPath(n2, g)
	want := []vpath.Hash{n2, n0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GetReconstructionPath = %v, want %v", got, want)
	}
}
