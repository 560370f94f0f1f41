package store

import (
	"sync"

	"github.com/pkg/errors"

	"monotone-sub001/pkg/reconstruct"
	"monotone-sub001/pkg/store/blockdelta"
	"monotone-sub001/pkg/vpath"
)

// deltaEdge records one stored delta: the operations needed to reconstruct
// "to" given "from" as a base (or as another delta's reconstruction).
type deltaEdge struct {
	from      vpath.Hash
	blockSize int
	ops       []blockdelta.Operation
}

// MemoryStore is a reference, in-memory implementation of Store, suitable
// for tests and embedders that don't need persistence. It satisfies
// reconstruct.Graph directly so Reconstruct can delegate to
// pkg/reconstruct's breadth-first path search (§4.5).
type MemoryStore struct {
	mu       sync.RWMutex
	full     map[vpath.Hash][]byte
	deltas   map[vpath.Hash]deltaEdge          // to -> edge
	fromIdx  map[vpath.Hash][]vpath.Hash       // from -> []to (successors in the "delta points at base" sense are reversed; see Successors)
	blockSize int
}

// NewMemoryStore returns an empty MemoryStore using the given block size
// for delta computation (pkg/config supplies the configured default).
func NewMemoryStore(blockSize int) *MemoryStore {
	if blockSize <= 0 {
		blockSize = blockdelta.DefaultBlockSize
	}
	return &MemoryStore{
		full:      make(map[vpath.Hash][]byte),
		deltas:    make(map[vpath.Hash]deltaEdge),
		fromIdx:   make(map[vpath.Hash][]vpath.Hash),
		blockSize: blockSize,
	}
}

// Exists implements Store.
func (s *MemoryStore) Exists(h vpath.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, full := s.full[h]
	_, delta := s.deltas[h]
	return full || delta
}

// GetFull implements Store.
func (s *MemoryStore) GetFull(h vpath.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.full[h]
	if !ok {
		return nil, errors.Errorf("store: no full blob for hash %s", h)
	}
	return blob, nil
}

// GetDelta implements Store, returning the encoded operation list stored
// for the (from, to) edge.
func (s *MemoryStore) GetDelta(from, to vpath.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edge, ok := s.deltas[to]
	if !ok || edge.from != from {
		return nil, errors.Errorf("store: no delta from %s to %s", from, to)
	}
	return blockdelta.EncodeOperations(edge.ops), nil
}

// PutFull implements Store, storing h as a base blob.
func (s *MemoryStore) PutFull(h vpath.Hash, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full[h] = append([]byte(nil), blob...)
	return nil
}

// PutDelta implements Store, computing and storing a block delta from a
// previously-stored "from" blob to the new "to" blob. The caller supplies
// the resulting bytes so the store doesn't need to re-derive "to" from the
// delta to validate it; PutDelta computes the operations itself using
// blockdelta.
func (s *MemoryStore) PutDelta(from, to vpath.Hash, toBlob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fromBlob, ok := s.full[from]
	if !ok {
		if edge, ok2 := s.deltas[from]; ok2 {
			var err error
			fromBlob, err = s.reconstructLocked(edge.from, from)
			if err != nil {
				return err
			}
		} else {
			return errors.Errorf("store: unknown base hash %s for delta", from)
		}
	}
	sig := blockdelta.ComputeSignature(fromBlob, s.blockSize)
	ops := blockdelta.Deltafy(sig, toBlob)
	s.deltas[to] = deltaEdge{from: from, blockSize: s.blockSize, ops: ops}
	s.fromIdx[from] = append(s.fromIdx[from], to)
	return nil
}

// IsBase implements Store and reconstruct.Graph: a hash is a base iff a
// full blob is stored for it.
func (s *MemoryStore) IsBase(h vpath.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isBaseLocked(h)
}

func (s *MemoryStore) isBaseLocked(h vpath.Hash) bool {
	_, ok := s.full[h]
	return ok
}

// Successors implements Store and reconstruct.Graph: the bases a stored
// delta for h points at.
func (s *MemoryStore) Successors(h vpath.Hash) []vpath.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.successorsLocked(h)
}

func (s *MemoryStore) successorsLocked(h vpath.Hash) []vpath.Hash {
	if edge, ok := s.deltas[h]; ok {
		return []vpath.Hash{edge.from}
	}
	return nil
}

// reconstructGraph adapts an already-locked MemoryStore to reconstruct.Graph
// without re-entering s.mu, since sync.RWMutex read locks are not safe to
// reacquire recursively while a writer may be waiting.
type reconstructGraph struct{ s *MemoryStore }

func (g reconstructGraph) IsBase(h vpath.Hash) bool           { return g.s.isBaseLocked(h) }
func (g reconstructGraph) Successors(h vpath.Hash) []vpath.Hash { return g.s.successorsLocked(h) }

// Reconstruct implements Store by finding the shortest delta-chain path to
// a base via pkg/reconstruct, then replaying the chain's operations in
// reverse (base outward).
func (s *MemoryStore) Reconstruct(h vpath.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path := reconstruct.GetReconstructionPath(h, reconstructGraph{s})
	base := path[len(path)-1]
	blob, ok := s.full[base]
	if !ok {
		return nil, errors.Errorf("store: reconstruction path ended at non-base hash %s", base)
	}
	for i := len(path) - 2; i >= 0; i-- {
		edge, ok := s.deltas[path[i]]
		if !ok {
			return nil, errors.Errorf("store: missing delta for %s", path[i])
		}
		blob = blockdelta.Patch(blob, edge.blockSize, edge.ops)
	}
	return blob, nil
}

func (s *MemoryStore) reconstructLocked(from, to vpath.Hash) ([]byte, error) {
	blob, ok := s.full[from]
	if !ok {
		prev, isDelta := s.deltas[from]
		if !isDelta {
			return nil, errors.Errorf("store: unknown base hash %s", from)
		}
		var err error
		if blob, err = s.reconstructLocked(prev.from, from); err != nil {
			return nil, err
		}
	}
	edge, ok := s.deltas[to]
	if !ok {
		return nil, errors.Errorf("store: unknown delta to %s", to)
	}
	return blockdelta.Patch(blob, edge.blockSize, edge.ops), nil
}
