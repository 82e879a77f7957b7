// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// memDB is a pure in-memory implementation of the DB interface.  It is
// primarily intended for use in tests and simulations where durability is
// not required.
type memDB struct {
	mtx    sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ DB = (*memDB)(nil)

// NewMemDB returns a new in-memory database instance.
func NewMemDB() DB {
	return &memDB{data: make(map[string][]byte)}
}

// Get returns the value for the given key.
//
// This is part of the DB interface implementation.
func (db *memDB) Get(key []byte) ([]byte, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	if db.closed {
		return nil, makeError(ErrDbNotOpen, "database is closed", nil)
	}
	value, ok := db.data[string(key)]
	if !ok {
		str := fmt.Sprintf("key %x does not exist", key)
		return nil, makeError(ErrKeyNotFound, str, nil)
	}
	ret := make([]byte, len(value))
	copy(ret, value)
	return ret, nil
}

// Has returns whether the given key exists.
//
// This is part of the DB interface implementation.
func (db *memDB) Has(key []byte) (bool, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	if db.closed {
		return false, makeError(ErrDbNotOpen, "database is closed", nil)
	}
	_, ok := db.data[string(key)]
	return ok, nil
}

// Put sets the value for the given key.
//
// This is part of the DB interface implementation.
func (db *memDB) Put(key, value []byte) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	if db.closed {
		return makeError(ErrDbNotOpen, "database is closed", nil)
	}
	v := make([]byte, len(value))
	copy(v, value)
	db.data[string(key)] = v
	return nil
}

// Delete removes the given key.
//
// This is part of the DB interface implementation.
func (db *memDB) Delete(key []byte) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	if db.closed {
		return makeError(ErrDbNotOpen, "database is closed", nil)
	}
	delete(db.data, string(key))
	return nil
}

// memBatchOp is a single queued mutation in a memBatch.
type memBatchOp struct {
	key    string
	value  []byte
	delete bool
}

// memBatch implements the Batch interface for the in-memory database.
type memBatch struct {
	db        *memDB
	ops       []memBatchOp
	committed bool
}

// Put queues a key/value pair for insertion or overwrite.
//
// This is part of the Batch interface implementation.
func (b *memBatch) Put(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	b.ops = append(b.ops, memBatchOp{key: string(key), value: v})
}

// Delete queues a key for removal.
//
// This is part of the Batch interface implementation.
func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, memBatchOp{key: string(key), delete: true})
}

// Commit atomically applies all queued mutations.
//
// This is part of the Batch interface implementation.
func (b *memBatch) Commit() error {
	if b.committed {
		return makeError(ErrBatchCommitted, "batch already committed", nil)
	}
	b.committed = true
	b.db.mtx.Lock()
	defer b.db.mtx.Unlock()
	if b.db.closed {
		return makeError(ErrDbNotOpen, "database is closed", nil)
	}
	for _, op := range b.ops {
		if op.delete {
			delete(b.db.data, op.key)
			continue
		}
		b.db.data[op.key] = op.value
	}
	return nil
}

// NewBatch returns a new atomic mutation batch.
//
// This is part of the DB interface implementation.
func (db *memDB) NewBatch() Batch {
	return &memBatch{db: db}
}

// IteratePrefix invokes f for each key that begins with the provided prefix
// in ascending key order.
//
// This is part of the DB interface implementation.
func (db *memDB) IteratePrefix(prefix []byte, f func(key, value []byte) error) error {
	db.mtx.RLock()
	if db.closed {
		db.mtx.RUnlock()
		return makeError(ErrDbNotOpen, "database is closed", nil)
	}
	keys := make([]string, 0, len(db.data))
	for k := range db.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	db.mtx.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		db.mtx.RLock()
		v, ok := db.data[k]
		db.mtx.RUnlock()
		if !ok {
			continue
		}
		if err := f([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Close cleanly shuts down the database.
//
// This is part of the DB interface implementation.
func (db *memDB) Close() error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.closed = true
	db.data = nil
	return nil
}
