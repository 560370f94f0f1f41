package roster

import "monotone-sub001/pkg/vpath"

// IDSource produces fresh node ids (§3, "Node id source"). A "true" source
// allocates real ids; a "temp" source allocates ids with the high bit set.
// No real id is ever temp, and the discipline is enforced by construction
// here rather than by runtime checks at each call site.
type IDSource interface {
	Next() vpath.NodeID
}

// trueIDSource allocates small, dense, real node ids, as would normally be
// supplied by the external content store (§6, "Id allocator").
type trueIDSource struct {
	next vpath.NodeID
}

// NewTrueIDSource returns an IDSource that allocates real ids starting at
// start (start must not have its high bit set).
func NewTrueIDSource(start vpath.NodeID) IDSource {
	invariant(!start.IsTemp(), "true id source seeded with a temp id")
	return &trueIDSource{next: start}
}

func (s *trueIDSource) Next() vpath.NodeID {
	id := s.next
	invariant(!id.IsTemp(), "true id source produced a temp id")
	s.next++
	return id
}

// tempIDSource allocates ids with the high bit set, for use as working
// state during merge (§4.4 phase 5, §5 "temp sources in particular must be
// fresh per merge"). A fresh tempIDSource must be constructed per merge.
type tempIDSource struct {
	next vpath.NodeID
}

// tempBitValue is the high bit, matching vpath.NodeID's private tempBit;
// duplicated here since the bit is part of the NodeID contract, not an
// implementation detail of one source.
const tempBitValue vpath.NodeID = 1 << 63

// NewTempIDSource returns a fresh IDSource that allocates temp ids.
func NewTempIDSource() IDSource {
	return &tempIDSource{next: tempBitValue | 1}
}

func (s *tempIDSource) Next() vpath.NodeID {
	id := s.next
	invariant(id.IsTemp(), "temp id source produced a non-temp id")
	s.next++
	return id
}
