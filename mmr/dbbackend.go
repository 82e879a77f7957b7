// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/database"
)

// Key layout under the backend's prefix:
//
//   <prefix>s          -> uint64 size of the persisted range
//   <prefix>h<be64 pos> -> 32 byte node hash
//
// Positions are big endian so the database's ordered iteration walks the
// range in position order.

// DBBackend is a Backend persisted through the database package.  All
// mutations are staged in memory and only reach the database when they are
// flushed into an atomic batch, so discarding an uncommitted view is a pure
// memory operation.
type DBBackend struct {
	db     database.DB
	prefix []byte

	// committedSize is the persisted size, only updated on flush.
	committedSize uint64

	// size is the staged size including appends and rewinds that have not
	// been flushed yet.
	size uint64

	// staged holds appended node hashes not yet flushed, keyed by
	// position.  removed holds staged compaction removals.
	staged  map[uint64]chainhash.Hash
	removed map[uint64]struct{}
}

var _ Backend = (*DBBackend)(nil)

// NewDBBackend returns a backend persisted under the provided key prefix,
// loading the current size from the database.
func NewDBBackend(db database.DB, prefix []byte) (*DBBackend, error) {
	b := &DBBackend{
		db:      db,
		prefix:  prefix,
		staged:  make(map[uint64]chainhash.Hash),
		removed: make(map[uint64]struct{}),
	}
	sizeRaw, err := db.Get(b.sizeKey())
	switch {
	case errors.Is(err, database.ErrKeyNotFound):
		// Fresh backend.
	case err != nil:
		return nil, err
	default:
		if len(sizeRaw) != 8 {
			str := fmt.Sprintf("corrupt size record (%d bytes)",
				len(sizeRaw))
			return nil, makeError(ErrMissingNode, str)
		}
		b.committedSize = binary.BigEndian.Uint64(sizeRaw)
		b.size = b.committedSize
	}
	return b, nil
}

// Size returns the staged size of the backend in nodes.
func (b *DBBackend) Size() uint64 {
	return b.size
}

func (b *DBBackend) sizeKey() []byte {
	return append(append([]byte(nil), b.prefix...), 's')
}

func (b *DBBackend) hashKey(pos uint64) []byte {
	key := make([]byte, 0, len(b.prefix)+9)
	key = append(key, b.prefix...)
	key = append(key, 'h')
	var posBytes [8]byte
	binary.BigEndian.PutUint64(posBytes[:], pos)
	return append(key, posBytes[:]...)
}

// Append stores the provided node hashes at consecutive positions.
//
// This is part of the Backend interface implementation.
func (b *DBBackend) Append(pos uint64, hashes []chainhash.Hash) error {
	if pos != b.size {
		str := fmt.Sprintf("append at position %d does not match backend "+
			"size %d", pos, b.size)
		return makeError(ErrInvalidSize, str)
	}
	for i, hash := range hashes {
		b.staged[pos+uint64(i)] = hash
	}
	b.size += uint64(len(hashes))
	return nil
}

// Hash returns the node hash at the provided position.
//
// This is part of the Backend interface implementation.
func (b *DBBackend) Hash(pos uint64) (chainhash.Hash, error) {
	if pos >= b.size {
		str := fmt.Sprintf("position %d is beyond backend size %d", pos,
			b.size)
		return chainhash.Hash{}, makeError(ErrBeyondSize, str)
	}
	if hash, ok := b.staged[pos]; ok {
		return hash, nil
	}
	if _, ok := b.removed[pos]; ok {
		str := fmt.Sprintf("node at position %d has been compacted", pos)
		return chainhash.Hash{}, makeError(ErrMissingNode, str)
	}
	raw, err := b.db.Get(b.hashKey(pos))
	if errors.Is(err, database.ErrKeyNotFound) {
		str := fmt.Sprintf("node at position %d has been compacted", pos)
		return chainhash.Hash{}, makeError(ErrMissingNode, str)
	}
	if err != nil {
		return chainhash.Hash{}, err
	}
	var hash chainhash.Hash
	if err := hash.SetBytes(raw); err != nil {
		str := fmt.Sprintf("corrupt node record at position %d: %v", pos,
			err)
		return chainhash.Hash{}, makeError(ErrMissingNode, str)
	}
	return hash, nil
}

// Rewind discards all staged and persisted nodes at or beyond the provided
// size.  Persisted nodes are only physically deleted when the backend is
// flushed.
//
// This is part of the Backend interface implementation.
func (b *DBBackend) Rewind(size uint64) error {
	if size > b.size {
		str := fmt.Sprintf("cannot rewind backend of size %d to larger "+
			"size %d", b.size, size)
		return makeError(ErrInvalidSize, str)
	}
	for pos := range b.staged {
		if pos >= size {
			delete(b.staged, pos)
		}
	}
	for pos := range b.removed {
		if pos >= size {
			delete(b.removed, pos)
		}
	}
	b.size = size
	return nil
}

// Remove physically discards the node hash at the provided position.
//
// This is part of the Backend interface implementation.
func (b *DBBackend) Remove(pos uint64) error {
	if pos >= b.size {
		str := fmt.Sprintf("position %d is beyond backend size %d", pos,
			b.size)
		return makeError(ErrBeyondSize, str)
	}
	delete(b.staged, pos)
	b.removed[pos] = struct{}{}
	return nil
}

// Flush writes all staged mutations into the provided batch and, assuming
// the caller commits the batch, marks the staged state as committed.  The
// caller must commit the batch before performing any further mutations.
func (b *DBBackend) Flush(batch database.Batch) error {
	// Delete persisted nodes beyond a staged rewind.
	if b.size < b.committedSize {
		for pos := b.size; pos < b.committedSize; pos++ {
			batch.Delete(b.hashKey(pos))
		}
	}
	for pos, hash := range b.staged {
		hash := hash
		batch.Put(b.hashKey(pos), hash[:])
	}
	for pos := range b.removed {
		batch.Delete(b.hashKey(pos))
	}

	var sizeRaw [8]byte
	binary.BigEndian.PutUint64(sizeRaw[:], b.size)
	batch.Put(b.sizeKey(), sizeRaw[:])

	b.committedSize = b.size
	b.staged = make(map[uint64]chainhash.Hash)
	b.removed = make(map[uint64]struct{})
	return nil
}

// Reset discards all staged mutations, returning the backend to the last
// flushed state.
func (b *DBBackend) Reset() {
	b.size = b.committedSize
	b.staged = make(map[uint64]chainhash.Hash)
	b.removed = make(map[uint64]struct{})
}
