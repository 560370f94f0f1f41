package roster

import (
	"testing"

	"monotone-sub001/pkg/vpath"
)

func structurallyEqual(t *testing.T, r1 *Roster, m1 MarkingMap, r2 *Roster, m2 MarkingMap) {
	t.Helper()
	if len(r1.Nodes) != len(r2.Nodes) {
		t.Fatalf("node count mismatch: %d vs %d", len(r1.Nodes), len(r2.Nodes))
	}
	for id, n1 := range r1.Nodes {
		path, ok := r1.GetName(id)
		if !ok {
			t.Fatalf("node %d has no resolvable path in r1", id)
		}
		id2, ok := r2.Lookup(path)
		if !ok {
			t.Fatalf("path %q from r1 does not resolve in r2", path)
		}
		n2 := r2.Nodes[id2]
		if n1.Kind != n2.Kind || n1.Content != n2.Content || n1.BirthRevision != n2.BirthRevision {
			t.Fatalf("node at %q differs: %#v vs %#v", path, n1, n2)
		}
		if len(n1.Attrs) != len(n2.Attrs) {
			t.Fatalf("node at %q: attr count differs", path)
		}
		for k, c1 := range n1.Attrs {
			if c2 := n2.Attrs[k]; c1 != c2 {
				t.Fatalf("node at %q attr %q differs: %#v vs %#v", path, k, c1, c2)
			}
		}
		mk1, mk2 := m1[id], m2[id2]
		if mk1.BirthRevision != mk2.BirthRevision || !mk1.ParentName.Equal(mk2.ParentName) || !mk1.FileContent.Equal(mk2.FileContent) {
			t.Fatalf("node at %q marking differs: %#v vs %#v", path, mk1, mk2)
		}
		if len(mk1.Attrs) != len(mk2.Attrs) {
			t.Fatalf("node at %q: mark attr count differs", path)
		}
		for k, set1 := range mk1.Attrs {
			if !set1.Equal(mk2.Attrs[k]) {
				t.Fatalf("node at %q mark attr %q differs", path, k)
			}
		}
	}
}

func TestPrintParseRoundTrip(t *testing.T) {
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
	if err := e.SetAttr(vpath.Path{"dir", "file"}, "executable", "true"); err != nil {
		t.Fatalf("set_attr: %v", err)
	}
	if err := e.SetAttr(vpath.Path{"dir", "file"}, "stale", "x"); err != nil {
		t.Fatalf("set_attr: %v", err)
	}
	if err := e.ClearAttr(vpath.Path{"dir", "file"}, "stale"); err != nil {
		t.Fatalf("clear_attr: %v", err)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	m := MarkingMap{
		rootID: NewMarking("rev1", false),
		dirID:  NewMarking("rev1", false),
		fileID: NewMarking("rev1", true),
	}
	m[fileID].Attrs["executable"] = NewRevisionSet("rev2")
	m[fileID].Attrs["stale"] = NewRevisionSet("rev2", "rev3")
	m[fileID].FileContent = NewRevisionSet("rev1", "rev2")

	text, err := Print(r, m)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty textual output")
	}

	gotR, gotM, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	structurallyEqual(t, r, m, gotR, gotM)

	text2, err := Print(gotR, gotM)
	if err != nil {
		t.Fatalf("Print (second pass): %v", err)
	}
	if text != text2 {
		t.Fatalf("re-printing the parsed roster produced different text:\n--- first ---\n%s\n--- second ---\n%s", text, text2)
	}
}

func TestParseRejectsOutOfOrderNodes(t *testing.T) {
	bad := "node \"\"\nbirth \"r\"\n\nnode \"b\"\nbirth \"r\"\n\nnode \"a\"\nbirth \"r\"\n\n"
	if _, _, err := Parse(bad); err == nil {
		t.Fatal("expected Parse to reject out-of-order node stanzas")
	}
}
