// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"fmt"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
)

// Backend provides node hash storage for a mountain range.  Backends only
// store and retrieve hashes by position; all structural logic lives in the
// PMMR itself.
//
// A backend is not required to be durable until its owner flushes it, which
// is what allows an uncommitted extension of the chain state to be discarded
// without touching persisted data.
type Backend interface {
	// Append stores the provided node hashes at consecutive positions
	// beginning at pos, which must equal the current size.
	Append(pos uint64, hashes []chainhash.Hash) error

	// Hash returns the node hash at the provided position.  An error with
	// kind ErrMissingNode is returned when the node was compacted away or
	// is otherwise unavailable.
	Hash(pos uint64) (chainhash.Hash, error)

	// Rewind discards all nodes at or beyond the provided size.
	Rewind(size uint64) error

	// Remove physically discards the node hash at the provided position.
	// It is only invoked by compaction for nodes whose hash is
	// recomputable from a retained ancestor.
	Remove(pos uint64) error
}

// MemBackend is an in-memory Backend implementation.
type MemBackend struct {
	hashes  []chainhash.Hash
	removed map[uint64]struct{}
}

var _ Backend = (*MemBackend)(nil)

// NewMemBackend returns an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{removed: make(map[uint64]struct{})}
}

// Append stores the provided node hashes at consecutive positions.
//
// This is part of the Backend interface implementation.
func (b *MemBackend) Append(pos uint64, hashes []chainhash.Hash) error {
	if pos != uint64(len(b.hashes)) {
		str := fmt.Sprintf("append at position %d does not match backend "+
			"size %d", pos, len(b.hashes))
		return makeError(ErrInvalidSize, str)
	}
	b.hashes = append(b.hashes, hashes...)
	return nil
}

// Hash returns the node hash at the provided position.
//
// This is part of the Backend interface implementation.
func (b *MemBackend) Hash(pos uint64) (chainhash.Hash, error) {
	if pos >= uint64(len(b.hashes)) {
		str := fmt.Sprintf("position %d is beyond backend size %d", pos,
			len(b.hashes))
		return chainhash.Hash{}, makeError(ErrBeyondSize, str)
	}
	if _, ok := b.removed[pos]; ok {
		str := fmt.Sprintf("node at position %d has been compacted", pos)
		return chainhash.Hash{}, makeError(ErrMissingNode, str)
	}
	return b.hashes[pos], nil
}

// Rewind discards all nodes at or beyond the provided size.
//
// This is part of the Backend interface implementation.
func (b *MemBackend) Rewind(size uint64) error {
	if size > uint64(len(b.hashes)) {
		str := fmt.Sprintf("cannot rewind backend of size %d to larger "+
			"size %d", len(b.hashes), size)
		return makeError(ErrInvalidSize, str)
	}
	b.hashes = b.hashes[:size]
	for pos := range b.removed {
		if pos >= size {
			delete(b.removed, pos)
		}
	}
	return nil
}

// Remove physically discards the node hash at the provided position.
//
// This is part of the Backend interface implementation.
func (b *MemBackend) Remove(pos uint64) error {
	if pos >= uint64(len(b.hashes)) {
		str := fmt.Sprintf("position %d is beyond backend size %d", pos,
			len(b.hashes))
		return makeError(ErrBeyondSize, str)
	}
	b.removed[pos] = struct{}{}
	b.hashes[pos] = chainhash.Hash{}
	return nil
}
