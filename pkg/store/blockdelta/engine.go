// Package blockdelta computes and applies rolling-checksum block deltas
// between byte blobs, used by the reference in-memory content store
// (pkg/store) to implement get_delta/put_delta/reconstruct (§4.5, §6).
//
// Grounded on pkg/synchronization/rsync/engine.go's rolling weak/strong
// checksum algorithm (Signature/Deltafy/Patch). The teacher's Operation,
// Signature, and BlockHash types are protobuf-generated and absent from
// the retrieval pack (their .pb.go was not retrieved), so this package
// defines plain Go struct equivalents rather than depending on generated
// code that doesn't exist; the block-matching algorithm itself — rolling
// weak hash, strong hash confirmation, coalesced copy/insert operations —
// follows the teacher's engine.go line for line in spirit.
package blockdelta

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
)

// DefaultBlockSize is the block size used when the caller doesn't override
// it via pkg/config.
const DefaultBlockSize = 1024

// BlockHash is the weak/strong checksum pair for one block of a base blob,
// the plain-struct equivalent of the teacher's protobuf BlockHash message.
type BlockHash struct {
	Weak   uint32
	Strong [sha1.Size]byte
}

// Signature is an ordered list of block hashes computed over a base blob,
// plus the block size used to compute them.
type Signature struct {
	BlockSize uint64
	Hashes    []BlockHash
}

// OperationKind discriminates a delta operation.
type OperationKind uint8

const (
	// OpBlock copies one block (identified by index) from the base.
	OpBlock OperationKind = iota
	// OpData inserts literal bytes not found in the base.
	OpData
)

// Operation is one step of a delta: either "copy base block N" or "insert
// these literal bytes", the plain-struct equivalent of the teacher's
// protobuf Operation message.
type Operation struct {
	Kind        OperationKind
	BlockIndex  uint64
	Data        []byte
}

// strongHash computes the strong (SHA-1) checksum of a block.
func strongHash(block []byte) [sha1.Size]byte {
	return sha1.Sum(block)
}

// weakHash computes Adler-32-style rolling checksum seed for a block,
// matching the teacher's weakHash/rollWeakHash pairing (a two-part sum
// that can be rolled one byte at a time).
func weakHash(block []byte) (uint32, uint32, uint32) {
	var a, b uint32
	for i, c := range block {
		a += uint32(c)
		b += uint32(len(block)-i) * uint32(c)
	}
	return (b << 16) | (a & 0xffff), a, b
}

func rollWeakHash(a, b uint32, blockLen int, out, in byte) (uint32, uint32, uint32) {
	a = a - uint32(out) + uint32(in)
	b = b - uint32(blockLen)*uint32(out) + a
	return (b << 16) | (a & 0xffff), a, b
}

// ComputeSignature computes a block signature over base using the given block
// size (OptimalBlockSizeForBase-equivalent sizing is the caller's
// responsibility; this package just consumes whatever size it is given).
func ComputeSignature(base []byte, blockSize int) Signature {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	sig := Signature{BlockSize: uint64(blockSize)}
	for off := 0; off < len(base); off += blockSize {
		end := off + blockSize
		if end > len(base) {
			end = len(base)
		}
		block := base[off:end]
		weak, _, _ := weakHash(block)
		sig.Hashes = append(sig.Hashes, BlockHash{Weak: weak, Strong: strongHash(block)})
	}
	return sig
}

// Deltafy computes a sequence of operations that reconstruct target given
// base (identified only via its signature), using a rolling weak-hash scan
// with strong-hash confirmation on weak-hash hits, matching the teacher's
// Deltafy algorithm.
func Deltafy(sig Signature, target []byte) []Operation {
	blockSize := int(sig.BlockSize)
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	index := make(map[uint32][]int, len(sig.Hashes))
	for i, h := range sig.Hashes {
		index[h.Weak] = append(index[h.Weak], i)
	}

	var ops []Operation
	var literal bytes.Buffer
	flushLiteral := func() {
		if literal.Len() > 0 {
			ops = append(ops, Operation{Kind: OpData, Data: append([]byte(nil), literal.Bytes()...)})
			literal.Reset()
		}
	}

	n := len(target)
	pos := 0
	var weak, wa, wb uint32
	rolled := false // whether weak/wa/wb hold the hash of target[pos:pos+blockSize]
	for pos < n {
		end := pos + blockSize
		if end > n {
			end = n
		}
		block := target[pos:end]
		if len(block) == blockSize {
			if !rolled {
				weak, wa, wb = weakHash(block)
				rolled = true
			}
			if candidates, ok := index[weak]; ok {
				strong := strongHash(block)
				matched := -1
				for _, c := range candidates {
					if sig.Hashes[c].Strong == strong {
						matched = c
						break
					}
				}
				if matched >= 0 {
					flushLiteral()
					ops = append(ops, Operation{Kind: OpBlock, BlockIndex: uint64(matched)})
					pos += blockSize
					rolled = false
					continue
				}
			}
		} else if last := len(sig.Hashes) - 1; last >= 0 {
			// Only the base's final block can be shorter than blockSize.
			if tw, _, _ := weakHash(block); sig.Hashes[last].Weak == tw && sig.Hashes[last].Strong == strongHash(block) {
				flushLiteral()
				ops = append(ops, Operation{Kind: OpBlock, BlockIndex: uint64(last)})
				pos = n
				continue
			}
		}
		literal.WriteByte(target[pos])
		if rolled && pos+blockSize < n {
			weak, wa, wb = rollWeakHash(wa, wb, blockSize, target[pos], target[pos+blockSize])
		} else {
			rolled = false
		}
		pos++
	}
	flushLiteral()
	return ops
}

// Patch applies a sequence of operations against base, reproducing the
// target blob the operations were computed against.
func Patch(base []byte, blockSize int, ops []Operation) []byte {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	var out bytes.Buffer
	for _, op := range ops {
		switch op.Kind {
		case OpBlock:
			start := int(op.BlockIndex) * blockSize
			end := start + blockSize
			if end > len(base) {
				end = len(base)
			}
			out.Write(base[start:end])
		case OpData:
			out.Write(op.Data)
		}
	}
	return out.Bytes()
}

// EncodeOperations provides a compact binary encoding of an operation list,
// used when a store needs to persist a delta as an opaque byte blob rather
// than as structured Operation values.
func EncodeOperations(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		buf.WriteByte(byte(op.Kind))
		switch op.Kind {
		case OpBlock:
			var idx [8]byte
			binary.BigEndian.PutUint64(idx[:], op.BlockIndex)
			buf.Write(idx[:])
		case OpData:
			var ln [4]byte
			binary.BigEndian.PutUint32(ln[:], uint32(len(op.Data)))
			buf.Write(ln[:])
			buf.Write(op.Data)
		}
	}
	return buf.Bytes()
}

// DecodeOperations is the inverse of EncodeOperations.
func DecodeOperations(blob []byte) ([]Operation, error) {
	var ops []Operation
	i := 0
	for i < len(blob) {
		kind := OperationKind(blob[i])
		i++
		switch kind {
		case OpBlock:
			if i+8 > len(blob) {
				return nil, errShortBuffer
			}
			idx := binary.BigEndian.Uint64(blob[i : i+8])
			i += 8
			ops = append(ops, Operation{Kind: OpBlock, BlockIndex: idx})
		case OpData:
			if i+4 > len(blob) {
				return nil, errShortBuffer
			}
			ln := binary.BigEndian.Uint32(blob[i : i+4])
			i += 4
			if i+int(ln) > len(blob) {
				return nil, errShortBuffer
			}
			data := append([]byte(nil), blob[i:i+int(ln)]...)
			i += int(ln)
			ops = append(ops, Operation{Kind: OpData, Data: data})
		default:
			return nil, errUnknownOpKind
		}
	}
	return ops, nil
}
