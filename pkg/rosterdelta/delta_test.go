package rosterdelta

import (
	"testing"

	"monotone-sub001/pkg/roster"
	"monotone-sub001/pkg/vpath"
)

const rootID vpath.NodeID = 1
const fileID vpath.NodeID = 2

func mkHash(b byte) vpath.Hash {
	var h vpath.Hash
	h[0] = b
	return h
}

func fromState() (*roster.Roster, roster.MarkingMap) {
	r := &roster.Roster{Root: rootID, Nodes: map[vpath.NodeID]*roster.Node{
		rootID: {Self: rootID, Kind: roster.KindDir, Attrs: map[string]roster.AttrCell{}, Children: map[vpath.Component]vpath.NodeID{"old": fileID}},
		fileID: {Self: fileID, Parent: rootID, Name: "old", Kind: roster.KindFile, Content: mkHash(1), Attrs: map[string]roster.AttrCell{}},
	}}
	m := roster.MarkingMap{
		rootID: roster.NewMarking("base", false),
		fileID: roster.NewMarking("base", true),
	}
	return r, m
}

func toState() (*roster.Roster, roster.MarkingMap) {
	r := &roster.Roster{Root: rootID, Nodes: map[vpath.NodeID]*roster.Node{
		rootID: {Self: rootID, Kind: roster.KindDir, Attrs: map[string]roster.AttrCell{}, Children: map[vpath.Component]vpath.NodeID{"new": fileID}},
		fileID: {Self: fileID, Parent: rootID, Name: "new", Kind: roster.KindFile, Content: mkHash(2), Attrs: map[string]roster.AttrCell{"executable": {Live: true, Value: "true"}}},
	}}
	fileMark := roster.NewMarking("base", true)
	fileMark.FileContent = roster.NewRevisionSet("rev2")
	fileMark.Attrs["executable"] = roster.NewRevisionSet("rev2")
	m := roster.MarkingMap{
		rootID: roster.NewMarking("base", false),
		fileID: fileMark,
	}
	return r, m
}

func TestComputeApplyRoundTrip(t *testing.T) {
	fromR, fromM := fromState()
	toR, toM := toState()

	d := Compute(fromR, toR, fromM, toM)
	gotR, gotM := Apply(d, fromR, fromM)

	gotName, ok := gotR.GetName(fileID)
	if !ok || !gotName.Equal(vpath.Path{"new"}) {
		t.Fatalf("expected renamed file at /new, got %v, %v", gotName, ok)
	}
	if gotR.Nodes[fileID].Content != mkHash(2) {
		t.Fatalf("expected content to become %v, got %v", mkHash(2), gotR.Nodes[fileID].Content)
	}
	cell := gotR.Nodes[fileID].Attrs["executable"]
	if !cell.Live || cell.Value != "true" {
		t.Fatalf("expected executable=true, got %#v", cell)
	}
	if !gotM[fileID].FileContent.Equal(toM[fileID].FileContent) {
		t.Fatalf("expected marking's file content set to match target, got %v want %v", gotM[fileID].FileContent, toM[fileID].FileContent)
	}

	// fromR/fromM must not have been mutated in place.
	if fromR.Nodes[fileID].Content != mkHash(1) {
		t.Fatal("Apply must not mutate its 'from' roster in place")
	}
}

func TestComputeOfIdenticalPairsIsEmpty(t *testing.T) {
	fromR, fromM := fromState()
	d := Compute(fromR, fromR, fromM, fromM)
	if len(d.Ops) != 0 {
		t.Fatalf("expected an empty delta for identical (roster, marking) pairs, got %d ops", len(d.Ops))
	}
}

func TestDeleteRoundTrip(t *testing.T) {
	fromR, fromM := fromState()
	toR := &roster.Roster{Root: rootID, Nodes: map[vpath.NodeID]*roster.Node{
		rootID: {Self: rootID, Kind: roster.KindDir, Attrs: map[string]roster.AttrCell{}},
	}}
	toM := roster.MarkingMap{rootID: roster.NewMarking("base", false)}

	d := Compute(fromR, toR, fromM, toM)
	gotR, gotM := Apply(d, fromR, fromM)

	if _, ok := gotR.Nodes[fileID]; ok {
		t.Fatal("expected the deleted file node to be gone")
	}
	if _, ok := gotM[fileID]; ok {
		t.Fatal("expected the deleted file's marking to be gone")
	}
}

func TestPrintProducesNonEmptyText(t *testing.T) {
	fromR, fromM := fromState()
	toR, toM := toState()
	d := Compute(fromR, toR, fromM, toM)
	text := Print(d)
	if text == "" {
		t.Fatal("expected Print to render a non-empty delta")
	}
}

func opsEqual(a, b Op) bool {
	if a.Kind != b.Kind || a.Node != b.Node || a.Parent != b.Parent || a.Name != b.Name ||
		a.Content != b.Content || a.OldContent != b.OldContent || a.AttrKey != b.AttrKey || a.AttrValue != b.AttrValue {
		return false
	}
	if (a.Marking == nil) != (b.Marking == nil) {
		return false
	}
	if a.Marking == nil {
		return true
	}
	return markingsEqual(a.Marking, b.Marking)
}

func TestPrintParseRoundTrip(t *testing.T) {
	fromR, fromM := fromState()
	toR, toM := toState()
	d := Compute(fromR, toR, fromM, toM)

	text := Print(d)
	got, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Ops) != len(d.Ops) {
		t.Fatalf("expected %d ops after round-trip, got %d", len(d.Ops), len(got.Ops))
	}
	for i := range d.Ops {
		if !opsEqual(d.Ops[i], got.Ops[i]) {
			t.Fatalf("op %d did not round-trip: got %#v, want %#v", i, got.Ops[i], d.Ops[i])
		}
	}
}
