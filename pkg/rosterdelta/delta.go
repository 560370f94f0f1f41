// Package rosterdelta implements the compact textual roster delta of §4.6:
// construction by parallel comparison of two (roster, markings) pairs, and
// application that reproduces the second from the first.
//
// Grounded on pkg/synchronization/core/diff.go's recursive base/target
// comparison shape, generalized to operate over node-id keyed maps via
// pkg/parallel (the "four components" building block, design notes)
// instead of mutagen's path-tree recursion, and on
// _examples/original_source/roster_delta.cc for the stanza set and
// application order.
package rosterdelta

import (
	"sort"
	"strconv"

	"monotone-sub001/pkg/parallel"
	"monotone-sub001/pkg/roster"
	"monotone-sub001/pkg/stanza"
	"monotone-sub001/pkg/vpath"
)

// OpKind discriminates one roster delta stanza.
type OpKind int

const (
	OpDeleted OpKind = iota
	OpRename
	OpAddDir
	OpAddFile
	OpDelta
	OpAttrCleared
	OpAttrChanged
	OpMarking
)

// Op is one roster delta stanza (§4.6).
type Op struct {
	Kind OpKind
	Node vpath.NodeID

	// Rename / add fields.
	Parent vpath.NodeID
	Name   vpath.Component
	Content vpath.Hash // add_file, delta (new content)

	// Delta field.
	OldContent vpath.Hash

	// Attribute fields.
	AttrKey   string
	AttrValue string

	// Marking field: the full new marking, rendered when a node's marking
	// changed or was added.
	Marking *roster.Marking
}

// Delta is an ordered list of roster delta operations.
type Delta struct {
	Ops []Op
}

func nodeIDLess(a, b vpath.NodeID) bool { return a < b }

// Compute builds the roster delta between (fromR, fromM) and (toR, toM),
// comparing both (node id → node) maps and both marking maps in parallel
// (§4.6).
func Compute(fromR, toR *roster.Roster, fromM, toM roster.MarkingMap) *Delta {
	d := &Delta{}

	it := parallel.New(fromR.Nodes, toR.Nodes, nodeIDLess)
	for it.Next() {
		id := it.Key()
		switch it.State() {
		case parallel.InLeft:
			d.Ops = append(d.Ops, Op{Kind: OpDeleted, Node: id})
		case parallel.InRight:
			toNode, _ := it.Right()
			if toNode.Kind == roster.KindDir {
				d.Ops = append(d.Ops, Op{Kind: OpAddDir, Node: id, Parent: toNode.Parent, Name: toNode.Name})
			} else {
				d.Ops = append(d.Ops, Op{Kind: OpAddFile, Node: id, Parent: toNode.Parent, Name: toNode.Name, Content: toNode.Content})
			}
			for key, cell := range toNode.Attrs {
				if cell.Live {
					d.Ops = append(d.Ops, Op{Kind: OpAttrChanged, Node: id, AttrKey: key, AttrValue: cell.Value})
				} else {
					d.Ops = append(d.Ops, Op{Kind: OpAttrCleared, Node: id, AttrKey: key})
				}
			}
		case parallel.InBoth:
			fromNode, _ := it.Left()
			toNode, _ := it.Right()
			if fromNode.Parent != toNode.Parent || fromNode.Name != toNode.Name {
				d.Ops = append(d.Ops, Op{Kind: OpRename, Node: id, Parent: toNode.Parent, Name: toNode.Name})
			}
			if toNode.Kind == roster.KindFile && fromNode.Content != toNode.Content {
				d.Ops = append(d.Ops, Op{Kind: OpDelta, Node: id, OldContent: fromNode.Content, Content: toNode.Content})
			}
			attrIt := parallel.New(fromNode.Attrs, toNode.Attrs, func(a, b string) bool { return a < b })
			for attrIt.Next() {
				key := attrIt.Key()
				switch attrIt.State() {
				case parallel.InLeft:
					d.Ops = append(d.Ops, Op{Kind: OpAttrCleared, Node: id, AttrKey: key})
				case parallel.InRight:
					cell, _ := attrIt.Right()
					if cell.Live {
						d.Ops = append(d.Ops, Op{Kind: OpAttrChanged, Node: id, AttrKey: key, AttrValue: cell.Value})
					} else {
						d.Ops = append(d.Ops, Op{Kind: OpAttrCleared, Node: id, AttrKey: key})
					}
				case parallel.InBoth:
					fromCell, _ := attrIt.Left()
					toCell, _ := attrIt.Right()
					if fromCell != toCell {
						if toCell.Live {
							d.Ops = append(d.Ops, Op{Kind: OpAttrChanged, Node: id, AttrKey: key, AttrValue: toCell.Value})
						} else {
							d.Ops = append(d.Ops, Op{Kind: OpAttrCleared, Node: id, AttrKey: key})
						}
					}
				}
			}
		}
	}

	markIt := parallel.New(fromM, toM, nodeIDLess)
	for markIt.Next() {
		id := markIt.Key()
		switch markIt.State() {
		case parallel.InRight:
			toMark, _ := markIt.Right()
			d.Ops = append(d.Ops, Op{Kind: OpMarking, Node: id, Marking: toMark})
		case parallel.InBoth:
			fromMark, _ := markIt.Left()
			toMark, _ := markIt.Right()
			if !markingsEqual(fromMark, toMark) {
				d.Ops = append(d.Ops, Op{Kind: OpMarking, Node: id, Marking: toMark})
			}
		}
	}

	sort.SliceStable(d.Ops, func(i, j int) bool { return d.Ops[i].Node < d.Ops[j].Node })
	return d
}

func markingsEqual(a, b *roster.Marking) bool {
	if a.BirthRevision != b.BirthRevision {
		return false
	}
	if !a.ParentName.Equal(b.ParentName) {
		return false
	}
	if !a.FileContent.Equal(b.FileContent) {
		return false
	}
	if len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for k, v := range a.Attrs {
		other, ok := b.Attrs[k]
		if !ok || !v.Equal(other) {
			return false
		}
	}
	return true
}

// Apply reverses Compute against from, reproducing the roster and marking
// map Compute's "to" argument described (§4.6): detach all to-be-deleted
// and to-be-moved nodes; drop deletions; create adds; attach adds, then
// rename targets; apply content and attribute changes; finally remove
// markings for deleted nodes and insert/overwrite changed markings.
func Apply(d *Delta, fromR *roster.Roster, fromM roster.MarkingMap) (*roster.Roster, roster.MarkingMap) {
	result := fromR.Copy()
	markings := fromM.Copy()

	var toDelete, toMove []vpath.NodeID
	for _, op := range d.Ops {
		switch op.Kind {
		case OpDeleted:
			toDelete = append(toDelete, op.Node)
		case OpRename:
			toMove = append(toMove, op.Node)
		}
	}
	for _, id := range toDelete {
		detach(result, id)
	}
	for _, id := range toMove {
		detach(result, id)
	}
	for _, id := range toDelete {
		delete(result.Nodes, id)
		delete(markings, id)
	}

	for _, op := range d.Ops {
		switch op.Kind {
		case OpAddDir:
			result.Nodes[op.Node] = &roster.Node{Self: op.Node, Kind: roster.KindDir, Attrs: make(map[string]roster.AttrCell), Children: make(map[vpath.Component]vpath.NodeID)}
		case OpAddFile:
			result.Nodes[op.Node] = &roster.Node{Self: op.Node, Kind: roster.KindFile, Attrs: make(map[string]roster.AttrCell), Content: op.Content}
		}
	}
	for _, op := range d.Ops {
		switch op.Kind {
		case OpAddDir, OpAddFile, OpRename:
			attach(result, op.Node, op.Parent, op.Name)
		}
	}
	for _, op := range d.Ops {
		switch op.Kind {
		case OpDelta:
			result.Nodes[op.Node].Content = op.Content
		case OpAttrCleared:
			result.Nodes[op.Node].Attrs[op.AttrKey] = roster.AttrCell{Live: false}
		case OpAttrChanged:
			result.Nodes[op.Node].Attrs[op.AttrKey] = roster.AttrCell{Live: true, Value: op.AttrValue}
		case OpMarking:
			markings[op.Node] = op.Marking.Copy()
		}
	}

	return result, markings
}

func detach(r *roster.Roster, id vpath.NodeID) {
	node, ok := r.Nodes[id]
	if !ok || node.Parent.IsNull() {
		return
	}
	if parent, ok := r.Nodes[node.Parent]; ok {
		delete(parent.Children, node.Name)
	}
	if id == r.Root {
		r.Root = vpath.NullNodeID
	}
	node.Parent, node.Name = vpath.NullNodeID, ""
}

func attach(r *roster.Roster, id, parentID vpath.NodeID, name vpath.Component) {
	node := r.Nodes[id]
	if parentID.IsNull() && name == "" {
		r.Root = id
		return
	}
	parent := r.Nodes[parentID]
	if parent.Children == nil {
		parent.Children = make(map[vpath.Component]vpath.NodeID)
	}
	parent.Children[name] = id
	node.Parent = parentID
	node.Name = name
}

// Print renders d in the textual roster delta format (§6): node ids are
// rendered as decimal integers.
func Print(d *Delta) string {
	var stanzas []stanza.Stanza
	for _, op := range d.Ops {
		s := stanza.Stanza{}
		switch op.Kind {
		case OpDeleted:
			s.PushStringPair("deleted", nodeIDString(op.Node))
		case OpRename:
			s.PushStringPair("rename", nodeIDString(op.Node))
			s.PushStringPair("parent", nodeIDString(op.Parent))
			s.PushStringPair("name", string(op.Name))
		case OpAddDir:
			s.PushStringPair("add_dir", nodeIDString(op.Node))
			s.PushStringPair("parent", nodeIDString(op.Parent))
			s.PushStringPair("name", string(op.Name))
		case OpAddFile:
			s.PushStringPair("add_file", nodeIDString(op.Node))
			s.PushStringPair("parent", nodeIDString(op.Parent))
			s.PushStringPair("name", string(op.Name))
			s.PushHexPair("content", op.Content.String())
		case OpDelta:
			s.PushStringPair("delta", nodeIDString(op.Node))
			s.PushHexPair("from", op.OldContent.String())
			s.PushHexPair("to", op.Content.String())
		case OpAttrCleared:
			s.PushStringPair("attr_cleared", nodeIDString(op.Node))
			s.PushStringPair("attr", op.AttrKey)
		case OpAttrChanged:
			s.PushStringPair("attr_changed", nodeIDString(op.Node))
			s.PushStringPair("attr", op.AttrKey)
			s.PushStringPair("value", op.AttrValue)
		case OpMarking:
			s.PushStringPair("marking", nodeIDString(op.Node))
			s.PushStringPair("birth", op.Marking.BirthRevision)
			for _, rev := range sortedRevisions(op.Marking.ParentName) {
				s.PushStringPair("parent_name", rev)
			}
			for _, rev := range sortedRevisions(op.Marking.FileContent) {
				s.PushStringPair("file_content", rev)
			}
			for _, key := range sortedAttrMarkKeys(op.Marking.Attrs) {
				s.PushStringPair("attr_mark", key)
				for _, rev := range sortedRevisions(op.Marking.Attrs[key]) {
					s.PushStringPair("mark", rev)
				}
			}
		}
		stanzas = append(stanzas, s)
	}
	return stanza.Print(stanzas)
}

// Parse decodes the textual format Print produces (§6). Stanzas appear in
// Compute's order — grouped by node id, not by kind — so Parse dispatches
// on each stanza's leading symbol rather than expecting per-kind blocks.
func Parse(input string) (*Delta, error) {
	p, err := stanza.NewParser(input)
	if err != nil {
		return nil, err
	}
	d := &Delta{}
	for !p.Done() {
		switch {
		case p.PeekSym("deleted"):
			p.ESym("deleted")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			d.Ops = append(d.Ops, Op{Kind: OpDeleted, Node: nid})

		case p.PeekSym("rename"):
			p.ESym("rename")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			parent, name, err := parseLoc(p)
			if err != nil {
				return nil, err
			}
			d.Ops = append(d.Ops, Op{Kind: OpRename, Node: nid, Parent: parent, Name: name})

		case p.PeekSym("add_dir"):
			p.ESym("add_dir")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			parent, name, err := parseLoc(p)
			if err != nil {
				return nil, err
			}
			d.Ops = append(d.Ops, Op{Kind: OpAddDir, Node: nid, Parent: parent, Name: name})

		case p.PeekSym("add_file"):
			p.ESym("add_file")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			parent, name, err := parseLoc(p)
			if err != nil {
				return nil, err
			}
			if err := p.ESym("content"); err != nil {
				return nil, err
			}
			hexStr, err := p.Hex()
			if err != nil {
				return nil, err
			}
			content, err := vpath.HashFromHex(hexStr)
			if err != nil {
				return nil, err
			}
			d.Ops = append(d.Ops, Op{Kind: OpAddFile, Node: nid, Parent: parent, Name: name, Content: content})

		case p.PeekSym("delta"):
			p.ESym("delta")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			if err := p.ESym("from"); err != nil {
				return nil, err
			}
			fromHex, err := p.Hex()
			if err != nil {
				return nil, err
			}
			if err := p.ESym("to"); err != nil {
				return nil, err
			}
			toHex, err := p.Hex()
			if err != nil {
				return nil, err
			}
			from, err := vpath.HashFromHex(fromHex)
			if err != nil {
				return nil, err
			}
			to, err := vpath.HashFromHex(toHex)
			if err != nil {
				return nil, err
			}
			d.Ops = append(d.Ops, Op{Kind: OpDelta, Node: nid, OldContent: from, Content: to})

		case p.PeekSym("attr_cleared"):
			p.ESym("attr_cleared")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			if err := p.ESym("attr"); err != nil {
				return nil, err
			}
			key, err := p.Str()
			if err != nil {
				return nil, err
			}
			d.Ops = append(d.Ops, Op{Kind: OpAttrCleared, Node: nid, AttrKey: key})

		case p.PeekSym("attr_changed"):
			p.ESym("attr_changed")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			if err := p.ESym("attr"); err != nil {
				return nil, err
			}
			key, err := p.Str()
			if err != nil {
				return nil, err
			}
			if err := p.ESym("value"); err != nil {
				return nil, err
			}
			value, err := p.Str()
			if err != nil {
				return nil, err
			}
			d.Ops = append(d.Ops, Op{Kind: OpAttrChanged, Node: nid, AttrKey: key, AttrValue: value})

		case p.PeekSym("marking"):
			p.ESym("marking")
			nid, err := parseNodeID(p)
			if err != nil {
				return nil, err
			}
			if err := p.ESym("birth"); err != nil {
				return nil, err
			}
			birth, err := p.Str()
			if err != nil {
				return nil, err
			}
			parentName := make(roster.RevisionSet)
			for p.PeekSym("parent_name") {
				p.ESym("parent_name")
				rev, err := p.Str()
				if err != nil {
					return nil, err
				}
				parentName[rev] = struct{}{}
			}
			fileContent := make(roster.RevisionSet)
			for p.PeekSym("file_content") {
				p.ESym("file_content")
				rev, err := p.Str()
				if err != nil {
					return nil, err
				}
				fileContent[rev] = struct{}{}
			}
			attrs := make(map[string]roster.RevisionSet)
			for p.PeekSym("attr_mark") {
				p.ESym("attr_mark")
				key, err := p.Str()
				if err != nil {
					return nil, err
				}
				set := make(roster.RevisionSet)
				for p.PeekSym("mark") {
					p.ESym("mark")
					rev, err := p.Str()
					if err != nil {
						return nil, err
					}
					set[rev] = struct{}{}
				}
				attrs[key] = set
			}
			d.Ops = append(d.Ops, Op{Kind: OpMarking, Node: nid, Marking: &roster.Marking{
				BirthRevision: birth,
				ParentName:    parentName,
				FileContent:   fileContent,
				Attrs:         attrs,
			}})

		default:
			return nil, invalidf("rosterdelta: unrecognized stanza at remaining input")
		}
	}
	return d, nil
}

func parseNodeID(p *stanza.Parser) (vpath.NodeID, error) {
	s, err := p.Str()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, invalidf("rosterdelta: invalid node id %q: %v", s, err)
	}
	return vpath.NodeID(v), nil
}

func parseLoc(p *stanza.Parser) (vpath.NodeID, vpath.Component, error) {
	if err := p.ESym("parent"); err != nil {
		return 0, "", err
	}
	parent, err := parseNodeID(p)
	if err != nil {
		return 0, "", err
	}
	if err := p.ESym("name"); err != nil {
		return 0, "", err
	}
	name, err := p.Str()
	if err != nil {
		return 0, "", err
	}
	return parent, vpath.Component(name), nil
}

func sortedRevisions(s roster.RevisionSet) []string {
	keys := make([]string, 0, len(s))
	for id := range s {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func sortedAttrMarkKeys(m map[string]roster.RevisionSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nodeIDString(id vpath.NodeID) string {
	return strconv.FormatUint(uint64(id), 10)
}
