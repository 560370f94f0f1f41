package rostermerge

import (
	"fmt"
	"sort"

	"monotone-sub001/pkg/parallel"
	"monotone-sub001/pkg/roster"
	"monotone-sub001/pkg/vpath"
)

// Input is one side's parent state: its roster, paired markings, and the
// set of revisions reachable only from that side since the merge's common
// point (§6, "ancestry oracle").
type Input struct {
	Roster          *roster.Roster
	Markings        roster.MarkingMap
	UncommonAncestors map[string]struct{}
}

// Result is the output of Merge: a merged roster, merged markings, and a
// conflict list (§4.4).
type Result struct {
	Roster      *roster.Roster
	Markings    roster.MarkingMap
	Conflicts   []Conflict
	missingRoot bool
}

// IsClean reports whether every conflict list is empty and no
// MissingRootDir was recorded (§4.4, "is_clean()").
func (r *Result) IsClean() bool {
	return len(r.Conflicts) == 0 && !r.missingRoot
}

func nodeIDLess(a, b vpath.NodeID) bool { return a < b }

// Merge runs phases 1–4 of the roster merge of §4.4 (lifecycle, scalar
// merge, structural attachment, global checks) against left and right. It
// does not unify node ids: a node present in both inputs must carry the
// same id on both sides.
func Merge(left, right Input) *Result {
	result := &roster.Roster{Nodes: make(map[vpath.NodeID]*roster.Node)}
	markings := make(roster.MarkingMap)
	var conflicts []Conflict

	// Phase 1: lifecycle (die-die-die).
	detachedParentName := make(map[vpath.NodeID]bool) // nodes whose (parent,name) scalar lost
	decided := make(map[vpath.NodeID]bool)             // present in the result after phase 1

	it := parallel.New(left.Roster.Nodes, right.Roster.Nodes, nodeIDLess)
	for it.Next() {
		id := it.Key()
		switch it.State() {
		case parallel.InBoth:
			leftNode, _ := it.Left()
			result.Nodes[id] = &roster.Node{Self: id, Kind: leftNode.Kind, Attrs: make(map[string]roster.AttrCell)}
			decided[id] = true
		case parallel.InLeft:
			node, _ := it.Left()
			m := left.Markings[id]
			if _, uncommon := left.UncommonAncestors[m.BirthRevision]; uncommon {
				result.Nodes[id] = node.Copy()
				markings[id] = m.Copy()
				decided[id] = true
			}
			// else: deleted on the right, drop silently (advisory warning
			// omitted: the core has no injected log sink wired to this
			// entry point — see pkg/logging for where a caller would add
			// one).
		case parallel.InRight:
			node, _ := it.Right()
			m := right.Markings[id]
			if _, uncommon := right.UncommonAncestors[m.BirthRevision]; uncommon {
				result.Nodes[id] = node.Copy()
				markings[id] = m.Copy()
				decided[id] = true
			}
		}
	}

	// Phase 2: scalar merge, for nodes present on both sides.
	for id, node := range result.Nodes {
		if _, both := left.Roster.Nodes[id]; !both {
			continue
		}
		if _, both := right.Roster.Nodes[id]; !both {
			continue
		}
		ln := left.Roster.Nodes[id]
		rn := right.Roster.Nodes[id]
		lm := left.Markings[id]
		rm := right.Markings[id]

		// (parent, name) scalar.
		parent, name, pnMarks, conflict := mergeParentName(ln, rn, lm, rm, left.UncommonAncestors, right.UncommonAncestors)
		if conflict != nil {
			conflict.NodeIDs = []vpath.NodeID{id}
			conflicts = append(conflicts, *conflict)
			detachedParentName[id] = true
		} else {
			node.Parent = parent
			node.Name = name
		}

		// File content scalar (files only).
		var contentMarks roster.RevisionSet
		if node.Kind == roster.KindFile {
			content, marks, conflict := mergeHashScalar(ln.Content, rn.Content, lm.FileContent, rm.FileContent, left.UncommonAncestors, right.UncommonAncestors)
			if conflict != nil {
				conflict.NodeIDs = []vpath.NodeID{id}
				conflicts = append(conflicts, *conflict)
			} else {
				node.Content = content
				contentMarks = marks
			}
		}

		// Attribute scalars: union of attr keys, merged independently.
		attrMarks := make(map[string]roster.RevisionSet)
		keys := unionAttrKeys(ln.Attrs, rn.Attrs)
		for _, key := range keys {
			lc, lok := ln.Attrs[key]
			rc, rok := rn.Attrs[key]
			switch {
			case lok && !rok:
				node.Attrs[key] = lc
				attrMarks[key] = lm.Attrs[key]
			case rok && !lok:
				node.Attrs[key] = rc
				attrMarks[key] = rm.Attrs[key]
			default:
				cell, marks, conflict := mergeAttrScalar(lc, rc, lm.Attrs[key], rm.Attrs[key], left.UncommonAncestors, right.UncommonAncestors)
				if conflict != nil {
					conflict.NodeIDs = []vpath.NodeID{id}
					conflict.AttrKey = key
					conflicts = append(conflicts, *conflict)
				} else {
					node.Attrs[key] = cell
					attrMarks[key] = marks
				}
			}
		}

		markings[id] = &roster.Marking{
			BirthRevision: lm.BirthRevision,
			ParentName:    pnMarks,
			FileContent:   contentMarks,
			Attrs:         attrMarks,
		}
	}

	// Phase 3: structural attachment.
	var rootID vpath.NodeID
	haveRoot := false
	// Stable order for deterministic conflict reporting.
	ids := make([]vpath.NodeID, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if detachedParentName[id] {
			continue
		}
		node := result.Nodes[id]
		if node.Parent.IsNull() && node.Name == "" {
			if !haveRoot {
				rootID = id
				haveRoot = true
				result.Root = id
			} else {
				conflicts = append(conflicts, Conflict{
					Kind:    DuplicateNameConflict,
					NodeIDs: []vpath.NodeID{rootID, id},
					Detail:  "two nodes both resolved to the root position",
				})
				node.Parent, node.Name = vpath.NullNodeID, ""
			}
			continue
		}
		if node.Parent.IsNull() {
			continue // not yet resolved (e.g. still pending attach below via siblings)
		}
		parentNode, ok := result.Nodes[node.Parent]
		if !ok || parentNode.Kind != roster.KindDir {
			conflicts = append(conflicts, Conflict{
				Kind:    OrphanedNodeConflict,
				NodeIDs: []vpath.NodeID{id},
				Detail:  fmt.Sprintf("node %d's resolved parent %d is missing or not a directory", id, node.Parent),
			})
			node.Parent, node.Name = vpath.NullNodeID, ""
			continue
		}
		if wouldLoop(result, node.Parent, id) {
			conflicts = append(conflicts, Conflict{
				Kind:    DirectoryLoopConflict,
				NodeIDs: []vpath.NodeID{id},
				Detail:  fmt.Sprintf("attaching node %d under %d would create a directory cycle", id, node.Parent),
			})
			node.Parent, node.Name = vpath.NullNodeID, ""
			continue
		}
		if parentNode.Children == nil {
			parentNode.Children = make(map[vpath.Component]vpath.NodeID)
		}
		if incumbent, collide := parentNode.Children[node.Name]; collide && incumbent != id {
			conflicts = append(conflicts, Conflict{
				Kind:    DuplicateNameConflict,
				NodeIDs: []vpath.NodeID{incumbent, id},
				Detail:  fmt.Sprintf("nodes %d and %d both claim name %q under %d", incumbent, id, node.Name, node.Parent),
			})
			delete(parentNode.Children, node.Name)
			if incNode, ok := result.Nodes[incumbent]; ok {
				incNode.Parent, incNode.Name = vpath.NullNodeID, ""
			}
			node.Parent, node.Name = vpath.NullNodeID, ""
			continue
		}
		parentNode.Children[node.Name] = id
	}

	// Phase 4: global checks.
	res := &Result{Roster: result, Markings: markings, Conflicts: conflicts}
	if !haveRoot {
		res.missingRoot = true
		res.Conflicts = append(res.Conflicts, Conflict{Kind: MissingRootDir, Detail: "no node resolved to the root position"})
	} else if root := result.Nodes[rootID]; root.Children != nil {
		if bad, ok := root.Children[vpath.BookkeepingName]; ok {
			delete(root.Children, vpath.BookkeepingName)
			if badNode, ok := result.Nodes[bad]; ok {
				badNode.Parent, badNode.Name = vpath.NullNodeID, ""
			}
			res.Conflicts = append(res.Conflicts, Conflict{
				Kind:    InvalidNameConflict,
				NodeIDs: []vpath.NodeID{bad},
				Detail:  "node landed at the reserved bookkeeping name under the root",
			})
		}
	}

	return res
}

func wouldLoop(r *roster.Roster, parentID, childID vpath.NodeID) bool {
	cur := parentID
	for {
		if cur == childID {
			return true
		}
		node, ok := r.Nodes[cur]
		if !ok || node.Parent.IsNull() {
			return false
		}
		cur = node.Parent
	}
}

// unionAttrKeys returns the union of a and b's attribute keys, ascending —
// this scalar merge's per-node name-union step (DESIGN.md, pkg/parallel),
// built on pkg/parallel.Iter rather than a hand-rolled seen-set.
func unionAttrKeys(a, b map[string]roster.AttrCell) []string {
	it := parallel.New(a, b, func(x, y string) bool { return x < y })
	keys := make([]string, 0, len(a)+len(b))
	for it.Next() {
		keys = append(keys, it.Key())
	}
	return keys
}

// aWins implements roster_merge.cc's a_wins: true iff none of marks is a
// member of uncommon (i.e. the foreign side did not actually change this
// scalar since the common point).
func aWins(marks roster.RevisionSet, uncommon map[string]struct{}) bool {
	for id := range marks {
		if _, ok := uncommon[id]; ok {
			return false
		}
	}
	return true
}

// mergeParentName performs the scalar merge of §4.4 phase 2 for the
// (parent, name) pair.
func mergeParentName(ln, rn *roster.Node, lm, rm *roster.Marking, leftUncommon, rightUncommon map[string]struct{}) (vpath.NodeID, vpath.Component, roster.RevisionSet, *Conflict) {
	if ln.Parent == rn.Parent && ln.Name == rn.Name {
		return ln.Parent, ln.Name, lm.ParentName.Union(rm.ParentName), nil
	}
	lWins := aWins(rm.ParentName, rightUncommon)
	rWins := aWins(lm.ParentName, leftUncommon)
	invariant(!(lWins && rWins), "mergeParentName: both sides won simultaneously")
	switch {
	case lWins:
		return ln.Parent, ln.Name, lm.ParentName, nil
	case rWins:
		return rn.Parent, rn.Name, rm.ParentName, nil
	default:
		return vpath.NullNodeID, "", nil, &Conflict{
			Kind:            MultipleNameConflict,
			LeftParentName:  &ParentName{Parent: ln.Parent, Name: ln.Name},
			RightParentName: &ParentName{Parent: rn.Parent, Name: rn.Name},
			Detail:          "both sides changed this node's (parent, name) since the common point",
		}
	}
}

// mergeHashScalar performs the scalar merge of §4.4 phase 2 for a content
// hash (file content).
func mergeHashScalar(lv, rv vpath.Hash, lmarks, rmarks roster.RevisionSet, leftUncommon, rightUncommon map[string]struct{}) (vpath.Hash, roster.RevisionSet, *Conflict) {
	if lv == rv {
		return lv, lmarks.Union(rmarks), nil
	}
	lWins := aWins(rmarks, rightUncommon)
	rWins := aWins(lmarks, leftUncommon)
	invariant(!(lWins && rWins), "mergeHashScalar: both sides won simultaneously")
	switch {
	case lWins:
		return lv, lmarks, nil
	case rWins:
		return rv, rmarks, nil
	default:
		return vpath.Hash{}, nil, &Conflict{Kind: FileContentConflict, Detail: "both sides changed this file's content since the common point"}
	}
}

// mergeAttrScalar performs the scalar merge of §4.4 phase 2 for an
// attribute cell present on both sides.
func mergeAttrScalar(lc, rc roster.AttrCell, lmarks, rmarks roster.RevisionSet, leftUncommon, rightUncommon map[string]struct{}) (roster.AttrCell, roster.RevisionSet, *Conflict) {
	if lc == rc {
		return lc, lmarks.Union(rmarks), nil
	}
	lWins := aWins(rmarks, rightUncommon)
	rWins := aWins(lmarks, leftUncommon)
	invariant(!(lWins && rWins), "mergeAttrScalar: both sides won simultaneously")
	switch {
	case lWins:
		return lc, lmarks, nil
	case rWins:
		return rc, rmarks, nil
	default:
		return roster.AttrCell{}, nil, &Conflict{Kind: AttributeConflict, Detail: "both sides changed this attribute since the common point"}
	}
}

func invariant(cond bool, msg string) {
	if !cond {
		panic("rostermerge: invariant violation: " + msg)
	}
}
