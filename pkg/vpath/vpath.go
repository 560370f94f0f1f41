// Package vpath defines the vocabulary shared by every other package in the
// core: content hashes, node identifiers, path components, and split paths.
//
// Grounded on pkg/synchronization/core/path.go (component comparison without
// allocation) and entry.go (kind discrimination), generalized to the node-id
// and content-hash model described in the data model.
package vpath

import (
	"encoding/hex"
	"strings"
)

// HashSize is the width, in bytes, of an opaque content hash. Both SHA-1 and
// SHA-256 digests are stored left-justified and zero-padded; the true width
// in use is tracked by the selected store.HashAlgorithm, not by this type.
const HashSize = 32

// Hash is a fixed-width, opaque content hash. Equality is byte-equality.
type Hash [HashSize]byte

// String renders the hash as lowercase hex, matching the textual stanza
// format's HEX token (square-bracketed hex digits) once bracketed by a
// stanza printer.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash (used as a sentinel for "no
// content" in contexts where a hash is optional).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromHex parses a hex string into a Hash, left-justifying and
// zero-padding shorter digests (e.g. SHA-1's 20 bytes) into the fixed width.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(raw) > HashSize {
		raw = raw[:HashSize]
	}
	copy(h[:], raw)
	return h, nil
}

// NodeID is an opaque integer identifying a node within a roster. The high
// bit distinguishes "temp" ids (allocated during merge working state) from
// "real" ids (allocated by the content store's true id source). This
// convention is load-bearing: IsTemp must remain a constant-time bit test
// (design notes, "Temp node ids").
type NodeID uint64

// tempBit is the high bit of a 64-bit node id.
const tempBit NodeID = 1 << 63

// NullNodeID represents the absence of a node id (a detached node's parent,
// or the root's parent).
const NullNodeID NodeID = 0

// IsTemp reports whether id was allocated by a temp id source.
func (id NodeID) IsTemp() bool {
	return id&tempBit != 0
}

// IsNull reports whether id is the null node id.
func (id NodeID) IsNull() bool {
	return id == NullNodeID
}

// Component is a single path component: a non-empty bytestring that does
// not contain '/' and is not the reserved bookkeeping name.
type Component string

// BookkeepingName is the reserved path component that may never appear as a
// direct child of the root in a committed roster (§6, "Bookkeeping name").
const BookkeepingName Component = ".core_bookkeeping"

// Valid reports whether c is a well-formed, non-bookkeeping path component.
// Callers that need to permit the bookkeeping name temporarily (e.g. while
// diagnosing an invalid_name_conflict) should check for it explicitly
// instead of relying on this method.
func (c Component) Valid() bool {
	return len(c) > 0 && c != BookkeepingName && !strings.ContainsRune(string(c), '/')
}

// Path is a split path: an ordered sequence of components from the
// synthetic empty root to a node. The empty Path denotes the root itself.
type Path []Component

// String renders the path with '/' separators, matching the textual stanza
// format's path rendering.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = string(c)
	}
	return strings.Join(parts, "/")
}

// Join returns a new path with leaf appended.
func (p Path) Join(leaf Component) Path {
	result := make(Path, len(p)+1)
	copy(result, p)
	result[len(p)] = leaf
	return result
}

// Parent returns the path's parent (all but the last component) and
// reports whether p was non-root (and thus had a parent to return).
func (p Path) Parent() (Path, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1], true
}

// Leaf returns the final component of p and reports whether p was
// non-root.
func (p Path) Leaf() (Component, bool) {
	if len(p) == 0 {
		return "", false
	}
	return p[len(p)-1], true
}

// IsRoot reports whether p denotes the root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Equal reports whether p and other denote the same split path.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Less orders paths component-wise, matching a depth-first traversal order:
// shorter paths that are prefixes of longer ones sort first, and otherwise
// components are compared lexicographically at the first point of
// divergence. Grounded on pkg/synchronization/core/path.go's pathLess.
func (p Path) Less(other Path) bool {
	n := len(p)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if p[i] != other[i] {
			return p[i] < other[i]
		}
	}
	return len(p) < len(other)
}

// SplitPath parses a '/'-joined string into a Path. An empty string yields
// the root path.
func SplitPath(s string) Path {
	if s == "" {
		return Path{}
	}
	parts := strings.Split(s, "/")
	result := make(Path, len(parts))
	for i, part := range parts {
		result[i] = Component(part)
	}
	return result
}

// MaxDepth is the configured bound on split path depth (§3, "maximum path
// depth is bounded by a configured constant"). It is overridable via
// pkg/config for embedders that need a different bound.
var MaxDepth = 256
