package roster

import (
	"testing"

	"monotone-sub001/pkg/vpath"
)

func mustHash(b byte) vpath.Hash {
	var h vpath.Hash
	h[0] = b
	return h
}

// buildSimpleTree creates root/, root/dir/, and root/dir/file via the
// editable-tree interface and returns the roster plus the ids allocated.
func buildSimpleTree(t *testing.T) (*Roster, vpath.NodeID, vpath.NodeID, vpath.NodeID) {
	t.Helper()
	r := New()
	ids := NewTrueIDSource(1)
	e := r.Editable(ids)

	rootID := e.CreateDirNode()
	if err := e.AttachNode(rootID, vpath.Path{}); err != nil {
		t.Fatalf("attach root: %v", err)
	}
	dirID := e.CreateDirNode()
	if err := e.AttachNode(dirID, vpath.Path{"dir"}); err != nil {
		t.Fatalf("attach dir: %v", err)
	}
	fileID := e.CreateFileNode(mustHash(1))
	if err := e.AttachNode(fileID, vpath.Path{"dir", "file"}); err != nil {
		t.Fatalf("attach file: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return r, rootID, dirID, fileID
}

func TestBuildAndLookup(t *testing.T) {
	r, rootID, dirID, fileID := buildSimpleTree(t)

	if id, ok := r.Lookup(vpath.Path{}); !ok || id != rootID {
		t.Fatalf("lookup root: %v %v", id, ok)
	}
	if id, ok := r.Lookup(vpath.Path{"dir"}); !ok || id != dirID {
		t.Fatalf("lookup dir: %v %v", id, ok)
	}
	if id, ok := r.Lookup(vpath.Path{"dir", "file"}); !ok || id != fileID {
		t.Fatalf("lookup file: %v %v", id, ok)
	}
	if _, ok := r.Lookup(vpath.Path{"nope"}); ok {
		t.Fatal("expected lookup of a nonexistent path to fail")
	}

	name, ok := r.GetName(fileID)
	if !ok || !name.Equal(vpath.Path{"dir", "file"}) {
		t.Fatalf("GetName(file) = %v, %v", name, ok)
	}

	if err := r.Sane(nil, false); err != nil {
		t.Fatalf("expected sane roster, got: %v", err)
	}
}

func TestDetachNonEmptyDirFails(t *testing.T) {
	r, _, _, _ := buildSimpleTree(t)
	e := r.Editable(NewTrueIDSource(100))
	if _, err := e.DetachNode(vpath.Path{"dir"}); err == nil {
		t.Fatal("expected detaching a non-empty directory to fail")
	}
}

func TestAttachDuplicateNameFails(t *testing.T) {
	r, _, _, _ := buildSimpleTree(t)
	e := r.Editable(NewTrueIDSource(100))
	dup := e.CreateDirNode()
	if err := e.AttachNode(dup, vpath.Path{"dir"}); err == nil {
		t.Fatal("expected attaching a duplicate name to fail")
	}
}

func TestWouldCreateLoopDetectsSelfAndAncestor(t *testing.T) {
	r, rootID, dirID, _ := buildSimpleTree(t)
	if !wouldCreateLoop(r, dirID, dirID) {
		t.Fatal("attaching a node under itself must be detected as a loop")
	}
	if !wouldCreateLoop(r, dirID, rootID) {
		t.Fatal("attaching the root under its own descendant must be detected as a loop")
	}
}

func TestApplyDeltaRequiresMatchingOld(t *testing.T) {
	r, _, _, _ := buildSimpleTree(t)
	e := r.Editable(NewTrueIDSource(100))
	wrongOld := mustHash(9)
	if err := e.ApplyDelta(vpath.Path{"dir", "file"}, wrongOld, mustHash(2)); err == nil {
		t.Fatal("expected apply_delta to fail on content mismatch")
	}
	if err := e.ApplyDelta(vpath.Path{"dir", "file"}, mustHash(1), mustHash(2)); err != nil {
		t.Fatalf("apply_delta with correct old hash failed: %v", err)
	}
}

func TestSetAttrRejectsNoOp(t *testing.T) {
	r, _, _, _ := buildSimpleTree(t)
	e := r.Editable(NewTrueIDSource(100))
	if err := e.SetAttr(vpath.Path{"dir", "file"}, "executable", "true"); err != nil {
		t.Fatalf("first set_attr: %v", err)
	}
	if err := e.SetAttr(vpath.Path{"dir", "file"}, "executable", "true"); err == nil {
		t.Fatal("expected setting an attr to its current value to fail")
	}
}

func TestClearAttrProducesDeadCell(t *testing.T) {
	r, _, _, fileID := buildSimpleTree(t)
	e := r.Editable(NewTrueIDSource(100))
	if err := e.SetAttr(vpath.Path{"dir", "file"}, "executable", "true"); err != nil {
		t.Fatalf("set_attr: %v", err)
	}
	if err := e.ClearAttr(vpath.Path{"dir", "file"}, "executable"); err != nil {
		t.Fatalf("clear_attr: %v", err)
	}
	cell := r.Nodes[fileID].Attrs["executable"]
	if cell.Live || cell.Value != "" {
		t.Fatalf("cleared cell = %#v, want live=false value=\"\"", cell)
	}
}

func TestSaneRejectsTempIDUnlessAllowed(t *testing.T) {
	r, _, _, _ := buildSimpleTree(t)
	e := r.Editable(NewTempIDSource())
	id := e.CreateDirNode()
	if err := e.AttachNode(id, vpath.Path{"temp"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := r.Sane(nil, false); err == nil {
		t.Fatal("expected Sane to reject a temp id when allowTemp is false")
	}
	if err := r.Sane(nil, true); err != nil {
		t.Fatalf("expected Sane to accept a temp id when allowTemp is true: %v", err)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	r, _, _, fileID := buildSimpleTree(t)
	cp := r.Copy()
	cp.Nodes[fileID].Content = mustHash(99)
	if r.Nodes[fileID].Content == mustHash(99) {
		t.Fatal("Copy must produce an independent node map")
	}
}

func TestIDSourceDiscipline(t *testing.T) {
	trueSrc := NewTrueIDSource(1)
	for i := 0; i < 3; i++ {
		if trueSrc.Next().IsTemp() {
			t.Fatal("a true id source must never produce a temp id")
		}
	}
	tempSrc := NewTempIDSource()
	for i := 0; i < 3; i++ {
		if !tempSrc.Next().IsTemp() {
			t.Fatal("a temp id source must always produce a temp id")
		}
	}
}
