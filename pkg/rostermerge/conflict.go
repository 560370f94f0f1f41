// Package rostermerge implements three-way roster merge with mark-driven
// conflict resolution (§4.4): lifecycle, scalar merge, structural
// attachment and global checks, and the conflict taxonomy they populate.
// Node ids are not unified: both inputs must already give every node they
// have in common the same id.
//
// Grounded on pkg/synchronization/core/reconcile.go's phased-reconciler
// shape (accumulator lists, a single top-level entry point) and on
// _examples/original_source/roster_merge.cc's merge_scalar/a_wins
// functions and its conflict struct hierarchy (translated from C++
// inheritance into Go tagged structs per the design notes).
package rostermerge

import "monotone-sub001/pkg/vpath"

// ConflictKind discriminates the conflict taxonomy of §3.
type ConflictKind int

const (
	MissingRootDir ConflictKind = iota
	InvalidNameConflict
	DirectoryLoopConflict
	OrphanedNodeConflict
	MultipleNameConflict
	DuplicateNameConflict
	AttributeConflict
	FileContentConflict
)

// String renders the conflict kind for diagnostics.
func (k ConflictKind) String() string {
	switch k {
	case MissingRootDir:
		return "missing_root_dir"
	case InvalidNameConflict:
		return "invalid_name_conflict"
	case DirectoryLoopConflict:
		return "directory_loop_conflict"
	case OrphanedNodeConflict:
		return "orphaned_node_conflict"
	case MultipleNameConflict:
		return "multiple_name_conflict"
	case DuplicateNameConflict:
		return "duplicate_name_conflict"
	case AttributeConflict:
		return "attribute_conflict"
	case FileContentConflict:
		return "file_content_conflict"
	default:
		return "unknown_conflict"
	}
}

// Conflict carries the identifying node id(s) and enough context to render
// a human-readable diagnostic (§3). Not every field is populated for every
// Kind; the field comments below say which kinds use them.
type Conflict struct {
	Kind ConflictKind

	// NodeIDs identifies the node(s) in contention. Most kinds carry one;
	// DuplicateNameConflict carries two.
	NodeIDs []vpath.NodeID

	// LeftParentName and RightParentName are populated for
	// MultipleNameConflict, one per contending side.
	LeftParentName  *ParentName
	RightParentName *ParentName

	// AttrKey is populated for AttributeConflict.
	AttrKey string

	// Detail is a human-readable explanation, always populated.
	Detail string
}

// ParentName is a (parent, name) pair, used to describe a node's
// requested placement in a MultipleNameConflict.
type ParentName struct {
	Parent vpath.NodeID
	Name   vpath.Component
}

func (c Conflict) Error() string {
	return "rostermerge: " + c.Kind.String() + ": " + c.Detail
}
