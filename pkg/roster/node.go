// Package roster implements the content-addressed, node-identified tree
// snapshot described in §3–§4.1: nodes, rosters, markings, marking maps,
// node id sources, and the editable-tree mutation interface.
//
// Nodes use a tagged-variant pattern (Kind plus shared fields, switched on
// by callers) instead of separate file/dir types, and a node-id-keyed map
// for fast lookup by identity rather than by path.
package roster

import "monotone-sub001/pkg/vpath"

// Kind discriminates a node's type.
type Kind uint8

const (
	// KindDir marks a directory node, which carries Children.
	KindDir Kind = iota
	// KindFile marks a file node, which carries Content.
	KindFile
)

// String renders the kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// AttrCell is a single attribute cell: a liveness flag plus a value. A dead
// cell (Live == false) always carries an empty Value; this is the "cleared"
// state (§3, design note on the attribute cell's open question).
type AttrCell struct {
	Live  bool
	Value string
}

// Node is a tagged record: every node carries Self/Parent/Name/Attrs and a
// birth revision; KindDir nodes additionally carry Children, KindFile nodes
// additionally carry Content. Detached nodes have Parent == vpath.NullNodeID
// and Name == "" — enforced as parent=null ⇔ name=null ⇔ root or detached
// (§3).
type Node struct {
	Self          vpath.NodeID
	Parent        vpath.NodeID
	Name          vpath.Component
	Attrs         map[string]AttrCell
	BirthRevision string

	Kind     Kind
	Children map[vpath.Component]vpath.NodeID // KindDir only
	Content  vpath.Hash                        // KindFile only
}

// Detached reports whether the node is currently unattached (its parent is
// null). The root, before attachment, is also "detached" in this sense.
func (n *Node) Detached() bool {
	return n.Parent.IsNull()
}

// Copy returns a deep copy of n, suitable for the merge algorithm's working
// rosters (§4.4 phase 5, §5 "merge performs two deep copies").
func (n *Node) Copy() *Node {
	cp := *n
	cp.Attrs = make(map[string]AttrCell, len(n.Attrs))
	for k, v := range n.Attrs {
		cp.Attrs[k] = v
	}
	if n.Kind == KindDir {
		cp.Children = make(map[vpath.Component]vpath.NodeID, len(n.Children))
		for k, v := range n.Children {
			cp.Children[k] = v
		}
	}
	return &cp
}

// EnsureValid performs the node-local portion of the roster's sane
// predicate (§4.1): attribute cell well-formedness and kind/field
// consistency.
func (n *Node) EnsureValid() error {
	for key, cell := range n.Attrs {
		if !cell.Live && cell.Value != "" {
			return invalidf("node %d: dead attribute cell %q carries a non-empty value", n.Self, key)
		}
	}
	if n.Kind == KindDir && !n.Content.IsZero() {
		return invalidf("node %d: directory carries a content hash", n.Self)
	}
	if n.Kind == KindFile && n.Content.IsZero() {
		return invalidf("node %d: file carries a null content hash", n.Self)
	}
	if n.Parent.IsNull() != (n.Name == "") {
		return invalidf("node %d: parent-null/name-null mismatch", n.Self)
	}
	return nil
}
