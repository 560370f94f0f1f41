package roster

import "monotone-sub001/pkg/vpath"

// EditableTree is the abstract mutation target a cset can be applied to
// (§4.1). A *Roster implements it directly.
type EditableTree interface {
	DetachNode(p vpath.Path) (vpath.NodeID, error)
	DropDetachedNode(id vpath.NodeID) error
	CreateDirNode() vpath.NodeID
	CreateFileNode(content vpath.Hash) vpath.NodeID
	AttachNode(id vpath.NodeID, p vpath.Path) error
	ApplyDelta(p vpath.Path, old, next vpath.Hash) error
	ClearAttr(p vpath.Path, key string) error
	SetAttr(p vpath.Path, key, value string) error
	Commit() error
}

// editableRoster adapts a *Roster plus an IDSource into the EditableTree
// interface, matching the design note that rosters are mutated only
// through the editable-tree interface (§3, "Lifecycle").
type editableRoster struct {
	r   *Roster
	ids IDSource
}

// Editable returns an EditableTree backed by r, allocating new node ids
// from ids.
func (r *Roster) Editable(ids IDSource) EditableTree {
	return &editableRoster{r: r, ids: ids}
}

// DetachNode implements EditableTree.DetachNode. It fails if the path does
// not resolve or names a non-empty directory (§4.1).
func (e *editableRoster) DetachNode(p vpath.Path) (vpath.NodeID, error) {
	id, ok := e.r.Lookup(p)
	if !ok {
		return vpath.NullNodeID, invalidf("detach_node: path %q does not resolve", p)
	}
	node := e.r.Nodes[id]
	if node.Kind == KindDir && len(node.Children) > 0 {
		return vpath.NullNodeID, invalidf("detach_node: path %q names a non-empty directory", p)
	}
	if !node.Parent.IsNull() {
		parent := e.r.Nodes[node.Parent]
		delete(parent.Children, node.Name)
	}
	if id == e.r.Root {
		e.r.Root = vpath.NullNodeID
	}
	node.Parent = vpath.NullNodeID
	node.Name = ""
	return id, nil
}

// DropDetachedNode implements EditableTree.DropDetachedNode.
func (e *editableRoster) DropDetachedNode(id vpath.NodeID) error {
	node, ok := e.r.Nodes[id]
	if !ok {
		return invalidf("drop_detached_node: node %d does not exist", id)
	}
	if !node.Detached() {
		return invalidf("drop_detached_node: node %d is still attached", id)
	}
	delete(e.r.Nodes, id)
	return nil
}

// CreateDirNode implements EditableTree.CreateDirNode. The new node starts
// detached.
func (e *editableRoster) CreateDirNode() vpath.NodeID {
	id := e.ids.Next()
	e.r.Nodes[id] = &Node{
		Self:     id,
		Kind:     KindDir,
		Attrs:    make(map[string]AttrCell),
		Children: make(map[vpath.Component]vpath.NodeID),
	}
	return id
}

// CreateFileNode implements EditableTree.CreateFileNode. The new node
// starts detached.
func (e *editableRoster) CreateFileNode(content vpath.Hash) vpath.NodeID {
	id := e.ids.Next()
	e.r.Nodes[id] = &Node{
		Self:    id,
		Kind:    KindFile,
		Attrs:   make(map[string]AttrCell),
		Content: content,
	}
	return id
}

// AttachNode implements EditableTree.AttachNode. It fails if the path's
// parent does not exist or the target name already exists under that
// parent; attaching the root is permitted exactly when no root is present
// and the target is the empty split path (§4.1).
func (e *editableRoster) AttachNode(id vpath.NodeID, p vpath.Path) error {
	node, ok := e.r.Nodes[id]
	if !ok {
		return invalidf("attach_node: node %d does not exist", id)
	}
	if !node.Detached() {
		return invalidf("attach_node: node %d is already attached", id)
	}
	if p.IsRoot() {
		if !e.r.Root.IsNull() {
			return invalidf("attach_node: a root is already attached")
		}
		if node.Kind != KindDir {
			return invalidf("attach_node: root must be a directory")
		}
		e.r.Root = id
		return nil
	}
	parentPath, _ := p.Parent()
	leaf, _ := p.Leaf()
	parentID, ok := e.r.Lookup(parentPath)
	if !ok {
		return invalidf("attach_node: parent path %q does not resolve", parentPath)
	}
	parent := e.r.Nodes[parentID]
	if parent.Kind != KindDir {
		return invalidf("attach_node: parent %q is not a directory", parentPath)
	}
	if _, exists := parent.Children[leaf]; exists {
		return invalidf("attach_node: name %q already exists under %q", leaf, parentPath)
	}
	if wouldCreateLoop(e.r, parentID, id) {
		return invalidf("attach_node: attaching %d at %q would create a directory loop", id, p)
	}
	node.Parent = parentID
	node.Name = leaf
	parent.Children[leaf] = id
	return nil
}

// wouldCreateLoop reports whether attaching child under (the subtree
// rooted at) parentID would create a cycle, i.e. parentID is child or a
// descendant of child.
func wouldCreateLoop(r *Roster, parentID, childID vpath.NodeID) bool {
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

// ApplyDelta implements EditableTree.ApplyDelta. It fails if the path is
// not a file or its current content differs from old (§4.1).
func (e *editableRoster) ApplyDelta(p vpath.Path, old, next vpath.Hash) error {
	id, ok := e.r.Lookup(p)
	if !ok {
		return invalidf("apply_delta: path %q does not resolve", p)
	}
	node := e.r.Nodes[id]
	if node.Kind != KindFile {
		return invalidf("apply_delta: path %q is not a file", p)
	}
	if node.Content != old {
		return invalidf("apply_delta: path %q's content does not match the expected old hash", p)
	}
	node.Content = next
	return nil
}

// ClearAttr implements EditableTree.ClearAttr, setting the cell to
// (live=false, value="").
func (e *editableRoster) ClearAttr(p vpath.Path, key string) error {
	node, err := e.nodeAt(p)
	if err != nil {
		return err
	}
	node.Attrs[key] = AttrCell{Live: false, Value: ""}
	return nil
}

// SetAttr implements EditableTree.SetAttr, overwriting the cell to
// (live=true, value). Setting to the current value is forbidden (§4.1; the
// cset that would produce such a call is not normalized).
func (e *editableRoster) SetAttr(p vpath.Path, key, value string) error {
	node, err := e.nodeAt(p)
	if err != nil {
		return err
	}
	if cur, ok := node.Attrs[key]; ok && cur.Live && cur.Value == value {
		return invalidf("set_attr: %q is already set to the given value at %q", key, p)
	}
	node.Attrs[key] = AttrCell{Live: true, Value: value}
	return nil
}

func (e *editableRoster) nodeAt(p vpath.Path) (*Node, error) {
	id, ok := e.r.Lookup(p)
	if !ok {
		return nil, invalidf("path %q does not resolve", p)
	}
	return e.r.Nodes[id], nil
}

// Commit implements EditableTree.Commit. The in-memory roster has no
// separate commit-phase bookkeeping, so this is a no-op other than
// asserting the tree is in a sane, temp-clean-or-allowed state is left to
// the caller (§4.1 contract: commit finalizes the atomic mutation).
func (e *editableRoster) Commit() error {
	return nil
}
