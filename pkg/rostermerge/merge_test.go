package rostermerge

import (
	"testing"

	"monotone-sub001/pkg/roster"
	"monotone-sub001/pkg/vpath"
)

const rootID vpath.NodeID = 1

// newRootOnly builds a single-directory roster (the root) with a marking
// recording birth "base".
func newRootOnly() (*roster.Roster, roster.MarkingMap) {
	r := &roster.Roster{Nodes: map[vpath.NodeID]*roster.Node{
		rootID: {Self: rootID, Kind: roster.KindDir, Attrs: map[string]roster.AttrCell{}, BirthRevision: "base"},
	}, Root: rootID}
	m := roster.MarkingMap{rootID: roster.NewMarking("base", false)}
	return r, m
}

func TestMergeScalarWinByUncommonMark(t *testing.T) {
	// A file exists on both sides with the same (parent, name) but
	// different content; only the right side changed it since the common
	// point (its mark is in right's uncommon-ancestor set, left's mark is
	// not in left's uncommon-ancestor set), so the right content must win
	// cleanly with no conflict.
	const fileID vpath.NodeID = 2

	lroot, lmarks := newRootOnly()
	rroot, rmarks := newRootOnly()

	var h1, h2 vpath.Hash
	h1[0], h2[0] = 1, 2

	lroot.Nodes[fileID] = &roster.Node{Self: fileID, Parent: rootID, Name: "f", Kind: roster.KindFile, Content: h1, Attrs: map[string]roster.AttrCell{}}
	rroot.Nodes[fileID] = &roster.Node{Self: fileID, Parent: rootID, Name: "f", Kind: roster.KindFile, Content: h2, Attrs: map[string]roster.AttrCell{}}

	lm := roster.NewMarking("base", true)
	lm.ParentName = roster.NewRevisionSet("base")
	lm.FileContent = roster.NewRevisionSet("base")
	lmarks[fileID] = lm

	rm := roster.NewMarking("base", true)
	rm.ParentName = roster.NewRevisionSet("base")
	rm.FileContent = roster.NewRevisionSet("right1")
	rmarks[fileID] = rm

	left := Input{Roster: lroot, Markings: lmarks, UncommonAncestors: map[string]struct{}{}}
	right := Input{Roster: rroot, Markings: rmarks, UncommonAncestors: map[string]struct{}{"right1": {}}}

	result := Merge(left, right)
	if !result.IsClean() {
		t.Fatalf("expected a clean merge, got conflicts: %+v", result.Conflicts)
	}
	got := result.Roster.Nodes[fileID]
	if got.Content != h2 {
		t.Fatalf("expected right's content (only side with an uncommon mark) to win, got %v", got.Content)
	}
}

func TestMergeSymmetricRenameCollisionConflict(t *testing.T) {
	// Both sides rename the same node to different names since the common
	// point: each side's mark set lies in its own uncommon-ancestor set, so
	// neither side wins and this must produce a multiple_name_conflict
	// rather than a silent pick.
	const fileID vpath.NodeID = 2

	lroot, lmarks := newRootOnly()
	rroot, rmarks := newRootOnly()

	var h1 vpath.Hash
	h1[0] = 1

	lroot.Nodes[fileID] = &roster.Node{Self: fileID, Parent: rootID, Name: "left-name", Kind: roster.KindFile, Content: h1, Attrs: map[string]roster.AttrCell{}}
	rroot.Nodes[fileID] = &roster.Node{Self: fileID, Parent: rootID, Name: "right-name", Kind: roster.KindFile, Content: h1, Attrs: map[string]roster.AttrCell{}}

	lm := roster.NewMarking("base", true)
	lm.ParentName = roster.NewRevisionSet("left1")
	lm.FileContent = roster.NewRevisionSet("base")
	lmarks[fileID] = lm

	rm := roster.NewMarking("base", true)
	rm.ParentName = roster.NewRevisionSet("right1")
	rm.FileContent = roster.NewRevisionSet("base")
	rmarks[fileID] = rm

	left := Input{Roster: lroot, Markings: lmarks, UncommonAncestors: map[string]struct{}{"left1": {}}}
	right := Input{Roster: rroot, Markings: rmarks, UncommonAncestors: map[string]struct{}{"right1": {}}}

	result := Merge(left, right)
	found := false
	for _, c := range result.Conflicts {
		if c.Kind == MultipleNameConflict {
			found = true
			if c.LeftParentName == nil || c.LeftParentName.Name != "left-name" {
				t.Fatalf("expected LeftParentName to record left's rename target, got %+v", c.LeftParentName)
			}
			if c.RightParentName == nil || c.RightParentName.Name != "right-name" {
				t.Fatalf("expected RightParentName to record right's rename target, got %+v", c.RightParentName)
			}
		}
	}
	if !found {
		t.Fatalf("expected a multiple_name_conflict, got: %+v", result.Conflicts)
	}
}

func TestMergeDuplicateNameAddConflict(t *testing.T) {
	// Both sides independently create a new, distinct node under the same
	// name: this cannot be a scalar conflict (the two ids never coexisted
	// in a common ancestor) but must still be flagged as a structural
	// duplicate_name_conflict carrying both node ids.
	const leftFileID vpath.NodeID = 10
	const rightFileID vpath.NodeID = 20

	lroot, lmarks := newRootOnly()
	rroot, rmarks := newRootOnly()

	var h1 vpath.Hash
	h1[0] = 1

	lroot.Nodes[leftFileID] = &roster.Node{Self: leftFileID, Parent: rootID, Name: "same-name", Kind: roster.KindFile, Content: h1, Attrs: map[string]roster.AttrCell{}}
	lmarks[leftFileID] = roster.NewMarking("left1", true)

	rroot.Nodes[rightFileID] = &roster.Node{Self: rightFileID, Parent: rootID, Name: "same-name", Kind: roster.KindFile, Content: h1, Attrs: map[string]roster.AttrCell{}}
	rmarks[rightFileID] = roster.NewMarking("right1", true)

	left := Input{Roster: lroot, Markings: lmarks, UncommonAncestors: map[string]struct{}{"left1": {}}}
	right := Input{Roster: rroot, Markings: rmarks, UncommonAncestors: map[string]struct{}{"right1": {}}}

	result := Merge(left, right)
	found := false
	for _, c := range result.Conflicts {
		if c.Kind == DuplicateNameConflict {
			found = true
			if len(c.NodeIDs) != 2 {
				t.Fatalf("expected duplicate_name_conflict to carry both node ids, got %v", c.NodeIDs)
			}
		}
	}
	if !found {
		t.Fatalf("expected a duplicate_name_conflict, got: %+v", result.Conflicts)
	}
}

func TestMergeMissingRootDirConflict(t *testing.T) {
	left := Input{Roster: &roster.Roster{Nodes: map[vpath.NodeID]*roster.Node{}}, Markings: roster.MarkingMap{}, UncommonAncestors: map[string]struct{}{}}
	right := Input{Roster: &roster.Roster{Nodes: map[vpath.NodeID]*roster.Node{}}, Markings: roster.MarkingMap{}, UncommonAncestors: map[string]struct{}{}}

	result := Merge(left, right)
	if result.IsClean() {
		t.Fatal("expected an empty merge to be unclean (missing root)")
	}
	found := false
	for _, c := range result.Conflicts {
		if c.Kind == MissingRootDir {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a missing_root_dir conflict, got: %+v", result.Conflicts)
	}
}
