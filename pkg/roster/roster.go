package roster

import "monotone-sub001/pkg/vpath"

// Roster is a (node id → node) mapping with at most one root (§3).
type Roster struct {
	Nodes map[vpath.NodeID]*Node
	Root  vpath.NodeID // NullNodeID if no root is attached
}

// New returns an empty roster (no nodes, no root).
func New() *Roster {
	return &Roster{Nodes: make(map[vpath.NodeID]*Node)}
}

// Copy returns a deep copy of the roster, as required for merge working
// state (§4.4 phase 5, §5).
func (r *Roster) Copy() *Roster {
	cp := &Roster{Nodes: make(map[vpath.NodeID]*Node, len(r.Nodes)), Root: r.Root}
	for id, n := range r.Nodes {
		cp.Nodes[id] = n.Copy()
	}
	return cp
}

// AllNodes returns every node id in the roster. Order is unspecified;
// callers that need determinism should sort.
func (r *Roster) AllNodes() []vpath.NodeID {
	ids := make([]vpath.NodeID, 0, len(r.Nodes))
	for id := range r.Nodes {
		ids = append(ids, id)
	}
	return ids
}

// Lookup resolves a split path to a node id, descending from the root.
func (r *Roster) Lookup(p vpath.Path) (vpath.NodeID, bool) {
	if r.Root.IsNull() {
		return vpath.NullNodeID, false
	}
	cur := r.Root
	for _, comp := range p {
		node, ok := r.Nodes[cur]
		if !ok || node.Kind != KindDir {
			return vpath.NullNodeID, false
		}
		child, ok := node.Children[comp]
		if !ok {
			return vpath.NullNodeID, false
		}
		cur = child
	}
	return cur, true
}

// GetName reconstructs the split path of a node by walking Parent links to
// the root.
func (r *Roster) GetName(id vpath.NodeID) (vpath.Path, bool) {
	var comps []vpath.Component
	cur := id
	for {
		node, ok := r.Nodes[cur]
		if !ok {
			return nil, false
		}
		if node.Parent.IsNull() {
			if cur != r.Root {
				return nil, false
			}
			break
		}
		comps = append(comps, node.Name)
		cur = node.Parent
	}
	// comps was built leaf-to-root; reverse it.
	path := make(vpath.Path, len(comps))
	for i, c := range comps {
		path[len(comps)-1-i] = c
	}
	return path, true
}

// Sane reports whether the roster (and, if provided, its paired marking
// map) satisfies the invariants in §4.1: unique attached root, parent/name
// consistency, attribute cell well-formedness, bounded depth, and — when a
// marking map is supplied — a bijection between node set and marking set.
// A nil markings argument skips the marking checks.
func (r *Roster) Sane(markings MarkingMap, allowTemp bool) error {
	if !r.Root.IsNull() {
		root, ok := r.Nodes[r.Root]
		if !ok {
			return invalidf("sane: root id %d not present in node map", r.Root)
		}
		if root.Kind != KindDir {
			return invalidf("sane: root is not a directory")
		}
		if !root.Parent.IsNull() || root.Name != "" {
			return invalidf("sane: root has a non-null parent or name")
		}
	}
	for id, n := range r.Nodes {
		if id != n.Self {
			return invalidf("sane: node stored under id %d but self-reports %d", id, n.Self)
		}
		if !allowTemp && id.IsTemp() {
			return invalidf("sane: node %d has a temp id in a temp-clean roster", id)
		}
		if err := n.EnsureValid(); err != nil {
			return err
		}
		if n.Self == r.Root {
			continue
		}
		if n.Parent.IsNull() {
			// Detached node: permitted mid-merge, not part of the attached
			// tree, skip parent-consistency checks.
			continue
		}
		parent, ok := r.Nodes[n.Parent]
		if !ok || parent.Kind != KindDir {
			return invalidf("sane: node %d's parent %d is missing or not a directory", id, n.Parent)
		}
		if child, ok := parent.Children[n.Name]; !ok || child != id {
			return invalidf("sane: node %d's parent does not list it under its name %q", id, n.Name)
		}
		if depth := r.depth(id); depth > vpath.MaxDepth {
			return invalidf("sane: node %d exceeds maximum path depth %d", id, vpath.MaxDepth)
		}
	}
	if markings != nil {
		if len(markings) != len(r.Nodes) {
			return invalidf("sane: marking map has %d entries, roster has %d nodes", len(markings), len(r.Nodes))
		}
		for id := range r.Nodes {
			m, ok := markings[id]
			if !ok {
				return invalidf("sane: node %d has no marking", id)
			}
			if err := m.EnsureValid(r.Nodes[id].Kind); err != nil {
				return err
			}
		}
	}
	return nil
}

// depth walks parent links counting hops to the root, used for the bounded-
// depth check. Cycles are prevented by construction (attach_node rejects
// creating one); a defensive cap avoids an infinite loop if that invariant
// is ever violated upstream.
func (r *Roster) depth(id vpath.NodeID) int {
	d := 0
	cur := id
	for d <= vpath.MaxDepth+1 {
		n, ok := r.Nodes[cur]
		if !ok || n.Parent.IsNull() {
			return d
		}
		cur = n.Parent
		d++
	}
	return d
}
