// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"
)

// levelDB wraps a goleveldb instance to provide the DB interface.
type levelDB struct {
	ldb *leveldb.DB
}

var _ DB = (*levelDB)(nil)

// OpenLevelDB opens (creating if needed) a leveldb backed store rooted at
// the provided directory.
func OpenLevelDB(path string) (DB, error) {
	opts := opt.Options{
		ErrorIfExist: false,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
	}
	ldb, err := leveldb.OpenFile(path, &opts)
	if err != nil {
		str := fmt.Sprintf("failed to open database %s: %v", path, err)
		return nil, makeError(ErrDriver, str, err)
	}
	log.Infof("Opened database %s", path)
	return &levelDB{ldb: ldb}, nil
}

// convertErr converts a leveldb error into a database error with the
// appropriate kind.
func convertErr(desc string, ldbErr error) Error {
	kind := ErrDriver
	switch ldbErr {
	case leveldb.ErrNotFound:
		kind = ErrKeyNotFound
	case leveldb.ErrClosed:
		kind = ErrDbNotOpen
	}
	return makeError(kind, desc, ldbErr)
}

// Get returns the value for the given key.
//
// This is part of the DB interface implementation.
func (db *levelDB) Get(key []byte) ([]byte, error) {
	value, err := db.ldb.Get(key, nil)
	if err != nil {
		str := fmt.Sprintf("failed to get key %x", key)
		return nil, convertErr(str, err)
	}
	return value, nil
}

// Has returns whether the given key exists.
//
// This is part of the DB interface implementation.
func (db *levelDB) Has(key []byte) (bool, error) {
	exists, err := db.ldb.Has(key, nil)
	if err != nil {
		str := fmt.Sprintf("failed to check key %x", key)
		return false, convertErr(str, err)
	}
	return exists, nil
}

// Put sets the value for the given key.
//
// This is part of the DB interface implementation.
func (db *levelDB) Put(key, value []byte) error {
	err := db.ldb.Put(key, value, nil)
	if err != nil {
		str := fmt.Sprintf("failed to put key %x", key)
		return convertErr(str, err)
	}
	return nil
}

// Delete removes the given key.
//
// This is part of the DB interface implementation.
func (db *levelDB) Delete(key []byte) error {
	err := db.ldb.Delete(key, nil)
	if err != nil {
		str := fmt.Sprintf("failed to delete key %x", key)
		return convertErr(str, err)
	}
	return nil
}

// levelBatch implements the Batch interface over a leveldb write batch.
type levelBatch struct {
	db        *levelDB
	batch     leveldb.Batch
	committed bool
}

// Put queues a key/value pair for insertion or overwrite.
//
// This is part of the Batch interface implementation.
func (b *levelBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

// Delete queues a key for removal.
//
// This is part of the Batch interface implementation.
func (b *levelBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Commit atomically applies all queued mutations.  goleveldb write batches
// are applied through the write-ahead log, so the batch is all-or-nothing
// even across a crash.
//
// This is part of the Batch interface implementation.
func (b *levelBatch) Commit() error {
	if b.committed {
		return makeError(ErrBatchCommitted, "batch already committed", nil)
	}
	b.committed = true
	err := b.db.ldb.Write(&b.batch, &opt.WriteOptions{Sync: true})
	if err != nil {
		return convertErr("failed to commit batch", err)
	}
	return nil
}

// NewBatch returns a new atomic mutation batch.
//
// This is part of the DB interface implementation.
func (db *levelDB) NewBatch() Batch {
	return &levelBatch{db: db}
}

// IteratePrefix invokes f for each key that begins with the provided prefix
// in ascending key order.
//
// This is part of the DB interface implementation.
func (db *levelDB) IteratePrefix(prefix []byte, f func(key, value []byte) error) error {
	iter := db.ldb.NewIterator(ldbutil.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := f(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return convertErr("iteration failed", err)
	}
	return nil
}

// Close cleanly shuts down the database.
//
// This is part of the DB interface implementation.
func (db *levelDB) Close() error {
	err := db.ldb.Close()
	if err != nil {
		return convertErr("failed to close database", err)
	}
	log.Info("Database closed")
	return nil
}
