// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

// Batch accumulates key/value mutations and applies them atomically.  Either
// every mutation in the batch is durably applied by Commit or none of them
// are.  A batch is not safe for concurrent use.
type Batch interface {
	// Put queues a key/value pair for insertion or overwrite.
	Put(key, value []byte)

	// Delete queues a key for removal.  Deleting a nonexistent key is not
	// an error.
	Delete(key []byte)

	// Commit atomically applies all queued mutations.  The batch must not
	// be used again after Commit returns.
	Commit() error
}

// DB is an ordered byte-keyed store with atomic batch commit.  All methods
// are safe for concurrent use, though the usual single-writer discipline of
// the chain state means batches are only ever built by one goroutine.
type DB interface {
	// Get returns the value for the given key.  An error with kind
	// ErrKeyNotFound is returned when the key does not exist.
	Get(key []byte) ([]byte, error)

	// Has returns whether the given key exists.
	Has(key []byte) (bool, error)

	// Put sets the value for the given key, overwriting any existing
	// value.
	Put(key, value []byte) error

	// Delete removes the given key.  Deleting a nonexistent key is not an
	// error.
	Delete(key []byte) error

	// NewBatch returns a new atomic mutation batch.
	NewBatch() Batch

	// IteratePrefix invokes f for each key that begins with the provided
	// prefix, in ascending key order.  Iteration stops early when f
	// returns an error, and that error is returned to the caller.  The
	// key and value slices are only valid for the duration of the call.
	IteratePrefix(prefix []byte, f func(key, value []byte) error) error

	// Close cleanly shuts down the database.
	Close() error
}
