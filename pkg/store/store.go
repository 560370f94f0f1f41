// Package store defines the content-addressed blob+delta store interface
// consumed by the core (§6) and a hash-algorithm selector grounded on the
// teacher's algorithm-dispatch pattern.
//
// Grounded on pkg/synchronization/hashing/algorithm.go (Algorithm enum with
// MarshalText/UnmarshalText/Factory) and pkg/synchronization/core/cache.go
// (fixed-width digest lookup maps), adapted to the abstract content store
// interface of §6 rather than mutagen's two-way synchronization cache.
package store

import (
	"hash"

	"github.com/pkg/errors"

	"monotone-sub001/pkg/reconstruct"
	"monotone-sub001/pkg/vpath"
)

// Store is the content store interface consumed by the core (§6): maps
// content hash to blob, with delta chains and reconstruction via
// pkg/reconstruct's breadth-first path search.
type Store interface {
	Exists(h vpath.Hash) bool
	GetFull(h vpath.Hash) ([]byte, error)
	GetDelta(from, to vpath.Hash) ([]byte, error)
	Reconstruct(h vpath.Hash) ([]byte, error)
	PutFull(h vpath.Hash, blob []byte) error
	PutDelta(from, to vpath.Hash, delta []byte) error
	IsBase(h vpath.Hash) bool
	Successors(h vpath.Hash) []vpath.Hash
}

// HashAlgorithm selects the hash function used to compute content hashes,
// matching the teacher's pkg/synchronization/hashing.Algorithm enum
// (xxh128 is dropped: it required a proprietary implementation with no
// home in this module — see DESIGN.md).
type HashAlgorithm uint8

const (
	// HashAlgorithmDefault resolves to HashAlgorithmSHA256.
	HashAlgorithmDefault HashAlgorithm = iota
	HashAlgorithmSHA1
	HashAlgorithmSHA256
)

// MarshalText implements encoding.TextMarshaler.
func (a HashAlgorithm) MarshalText() ([]byte, error) {
	switch a {
	case HashAlgorithmSHA1:
		return []byte("sha1"), nil
	case HashAlgorithmSHA256, HashAlgorithmDefault:
		return []byte("sha256"), nil
	default:
		return nil, errors.Errorf("store: unknown hash algorithm %d", a)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *HashAlgorithm) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sha1":
		*a = HashAlgorithmSHA1
	case "sha256", "":
		*a = HashAlgorithmSHA256
	default:
		return errors.Errorf("store: unknown hash algorithm specification: %s", text)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, so a HashAlgorithm can appear
// directly in a YAML configuration document.
func (a HashAlgorithm) MarshalYAML() (interface{}, error) {
	text, err := a.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *HashAlgorithm) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var text string
	if err := unmarshal(&text); err != nil {
		return err
	}
	return a.UnmarshalText([]byte(text))
}

// Factory returns a constructor for the selected algorithm's hash.Hash, in
// the same dispatch style as the teacher's Algorithm.Factory.
func (a HashAlgorithm) Factory() func() hash.Hash {
	switch a {
	case HashAlgorithmSHA1:
		return newSHA1
	case HashAlgorithmSHA256, HashAlgorithmDefault:
		return newSHA256
	default:
		panic("store: unknown hash algorithm")
	}
}

var _ reconstruct.Graph = (*MemoryStore)(nil)
