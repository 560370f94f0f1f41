// Package revision defines the opaque revision identifier and the ancestry
// oracle interface consumed by roster merge (§3, §6).
//
// The teacher's go.mod carries google/uuid but only exercises it for CLI
// license-manifest text (pkg/mutagen/legal.go); that file is out of scope
// (§1 excludes the CLI), so this package gives the dependency its first
// real domain use: revision ids are naturally opaque, globally-unique
// identifiers, which is exactly what a UUID is for (see DESIGN.md).
package revision

import (
	"github.com/google/uuid"

	"monotone-sub001/pkg/random"
)

// ID is an opaque revision identifier (§3, "revision id").
type ID = uuid.UUID

// New generates a fresh revision id, using the teacher's pkg/random
// (crypto/rand under the hood) as the entropy source rather than a time-
// or counter-based scheme.
func New() (ID, error) {
	raw, err := random.New(16)
	if err != nil {
		return ID{}, err
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return ID{}, err
	}
	// Stamp the UUID version/variant bits so the result is a well-formed
	// (if not cryptographically meaningful) v4-shaped UUID for display.
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id, nil
}

// AncestryOracle is the external collaborator (§6) that reports
// uncommon-ancestor sets for a pair of revisions: the two disjoint sets of
// revision ids reachable only from a and only from b.
type AncestryOracle interface {
	UncommonAncestors(a, b ID) (onlyA map[ID]struct{}, onlyB map[ID]struct{})
}
