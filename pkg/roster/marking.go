package roster

import "monotone-sub001/pkg/vpath"

// RevisionSet is a non-empty antichain of revision ids (in practice: a set
// whose ancestor-closure equals the semantic antichain — redundant
// ancestors are tolerated, §3).
type RevisionSet map[string]struct{}

// NewRevisionSet constructs a RevisionSet from the given revision ids.
func NewRevisionSet(ids ...string) RevisionSet {
	s := make(RevisionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Union returns a new set containing every revision id in s or other. This
// is the clean-merge mark-union from §4.4 phase 2: no antichain reduction
// is performed, which is sound because mark sets are only ever tested for
// ancestor-set membership (Open Question #2, SPEC_FULL.md).
func (s RevisionSet) Union(other RevisionSet) RevisionSet {
	result := make(RevisionSet, len(s)+len(other))
	for id := range s {
		result[id] = struct{}{}
	}
	for id := range other {
		result[id] = struct{}{}
	}
	return result
}

// Has reports whether id is a member of s.
func (s RevisionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IntersectsAny reports whether any id in s is present in other.
func (s RevisionSet) IntersectsAny(other RevisionSet) bool {
	for id := range s {
		if other.Has(id) {
			return true
		}
	}
	return false
}

// Equal reports whether s and other contain the same revision ids.
func (s RevisionSet) Equal(other RevisionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Marking records, for one node, the provenance of each of its scalars
// (§3): the revision that created it, and for each mutable scalar the set
// of revisions that most recently "decided" it.
type Marking struct {
	BirthRevision string
	ParentName    RevisionSet // which revisions chose this node's (parent, name)
	FileContent   RevisionSet // empty for directories
	Attrs         map[string]RevisionSet
}

// NewMarking constructs a fresh marking for a newly created node, with
// every scalar marked by birth.
func NewMarking(birth string, isFile bool) *Marking {
	m := &Marking{
		BirthRevision: birth,
		ParentName:    NewRevisionSet(birth),
		Attrs:         make(map[string]RevisionSet),
	}
	if isFile {
		m.FileContent = NewRevisionSet(birth)
	}
	return m
}

// Copy returns a deep copy of the marking.
func (m *Marking) Copy() *Marking {
	cp := &Marking{BirthRevision: m.BirthRevision, ParentName: m.ParentName.Union(nil), Attrs: make(map[string]RevisionSet, len(m.Attrs))}
	if m.FileContent != nil {
		cp.FileContent = m.FileContent.Union(nil)
	}
	for k, v := range m.Attrs {
		cp.Attrs[k] = v.Union(nil)
	}
	return cp
}

// EnsureValid checks basic well-formedness: every mark set present for the
// node's kind must be non-empty.
func (m *Marking) EnsureValid(kind Kind) error {
	if len(m.ParentName) == 0 {
		return invalidf("marking: parent_name set is empty")
	}
	if kind == KindFile && len(m.FileContent) == 0 {
		return invalidf("marking: file_content set is empty for a file node")
	}
	if kind == KindDir && len(m.FileContent) != 0 {
		return invalidf("marking: file_content set is non-empty for a directory node")
	}
	for key, set := range m.Attrs {
		if len(set) == 0 {
			return invalidf("marking: attr %q has an empty mark set", key)
		}
	}
	return nil
}

// MarkingMap is a (node id → marking) mapping, one entry per node in a
// paired roster (§3).
type MarkingMap map[vpath.NodeID]*Marking

// Copy returns a deep copy of the marking map.
func (mm MarkingMap) Copy() MarkingMap {
	cp := make(MarkingMap, len(mm))
	for id, m := range mm {
		cp[id] = m.Copy()
	}
	return cp
}
