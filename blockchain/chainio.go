// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/database"
	"github.com/mimblenet/mnd/txhashset"
	"github.com/mimblenet/mnd/wire"
)

var (
	// blockIndexKeyPrefix is the key prefix block index entries are
	// stored under: the serialized header followed by the block status.
	blockIndexKeyPrefix = []byte("bidx")

	// blockKeyPrefix is the key prefix full block payloads are stored
	// under.
	blockKeyPrefix = []byte("blk")

	// undoKeyPrefix is the key prefix spend undo records are stored
	// under, keyed by the hash of the block whose connection produced
	// them.
	undoKeyPrefix = []byte("und")

	// bestChainStateKey is the key the current best chain tip hash is
	// stored under.
	bestChainStateKey = []byte("best")
)

// prefixedKey returns the provided prefix followed by the hash.
func prefixedKey(prefix []byte, hash *chainhash.Hash) []byte {
	key := make([]byte, 0, len(prefix)+chainhash.HashSize)
	key = append(key, prefix...)
	key = append(key, hash[:]...)
	return key
}

// dbPutBlockNode stages the provided block index entry into the batch.
func dbPutBlockNode(batch database.Batch, node *blockNode) error {
	header := node.Header()
	serialized, err := header.Bytes()
	if err != nil {
		return err
	}
	serialized = append(serialized, byte(node.status))
	batch.Put(prefixedKey(blockIndexKeyPrefix, &node.hash), serialized)
	return nil
}

// dbFetchBlockIndex loads every stored block index entry and links the
// nodes into a tree by their parent hashes.  The returned map is keyed by
// block hash.
func dbFetchBlockIndex(db database.DB) (map[chainhash.Hash]*blockNode, error) {
	type rawEntry struct {
		node     *blockNode
		prevHash chainhash.Hash
	}
	entries := make(map[chainhash.Hash]rawEntry)
	err := db.IteratePrefix(blockIndexKeyPrefix, func(key, value []byte) error {
		if len(value) < 1 {
			return AssertError("empty block index entry")
		}
		var header wire.BlockHeader
		if err := header.Deserialize(bytes.NewReader(value[:len(value)-1])); err != nil {
			return err
		}
		node := newBlockNode(&header, nil)
		node.status = blockStatus(value[len(value)-1])
		entries[node.hash] = rawEntry{node: node, prevHash: header.PrevBlock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	index := make(map[chainhash.Hash]*blockNode, len(entries))
	for hash, entry := range entries {
		if parent, ok := entries[entry.prevHash]; ok {
			entry.node.parent = parent.node
		} else if entry.node.height != 0 {
			str := fmt.Sprintf("block index entry %v references unknown "+
				"parent %v", hash, entry.prevHash)
			return nil, AssertError(str)
		}
		index[hash] = entry.node
	}
	return index, nil
}

// dbPutBlock stages the provided block payload into the batch.
func dbPutBlock(batch database.Batch, block *wire.MsgBlock) error {
	var buf bytes.Buffer
	buf.Grow(block.SerializeSize())
	if err := block.Serialize(&buf); err != nil {
		return err
	}
	blockHash := block.BlockHash()
	batch.Put(prefixedKey(blockKeyPrefix, &blockHash), buf.Bytes())
	return nil
}

// dbFetchBlock fetches the block payload with the provided hash.
func dbFetchBlock(db database.DB, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	serialized, err := db.Get(prefixedKey(blockKeyPrefix, hash))
	if err != nil {
		return nil, err
	}
	var block wire.MsgBlock
	if err := block.Deserialize(bytes.NewReader(serialized)); err != nil {
		return nil, err
	}
	return &block, nil
}

// dbPutUndoEntries stages the spend undo entries for the block with the
// provided hash into the batch.
func dbPutUndoEntries(batch database.Batch, hash *chainhash.Hash, entries []txhashset.OutputEntry) {
	serialized := make([]byte, 4+17*len(entries))
	binary.LittleEndian.PutUint32(serialized[0:4], uint32(len(entries)))
	offset := 4
	for i := range entries {
		binary.LittleEndian.PutUint64(serialized[offset:], entries[i].Pos)
		serialized[offset+8] = byte(entries[i].Features)
		binary.LittleEndian.PutUint64(serialized[offset+9:],
			entries[i].Height)
		offset += 17
	}
	batch.Put(prefixedKey(undoKeyPrefix, hash), serialized)
}

// dbFetchUndoEntries fetches the spend undo entries recorded when the
// block with the provided hash was connected.
func dbFetchUndoEntries(db database.DB, hash *chainhash.Hash) ([]txhashset.OutputEntry, error) {
	serialized, err := db.Get(prefixedKey(undoKeyPrefix, hash))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(serialized) < 4 {
		return nil, AssertError("short undo record")
	}
	count := binary.LittleEndian.Uint32(serialized[0:4])
	if uint32(len(serialized)-4) != count*17 {
		str := fmt.Sprintf("undo record for block %v has %d bytes for "+
			"%d entries", hash, len(serialized)-4, count)
		return nil, AssertError(str)
	}
	entries := make([]txhashset.OutputEntry, count)
	offset := 4
	for i := range entries {
		entries[i].Pos = binary.LittleEndian.Uint64(serialized[offset:])
		entries[i].Features = wire.OutputFeatures(serialized[offset+8])
		entries[i].Height = binary.LittleEndian.Uint64(serialized[offset+9:])
		offset += 17
	}
	return entries, nil
}

// dbPutBestState stages the best chain tip hash into the batch.
func dbPutBestState(batch database.Batch, hash *chainhash.Hash) {
	batch.Put(bestChainStateKey, hash[:])
}

// dbFetchBestState fetches the best chain tip hash.  It returns false with
// no error when no best state has been stored yet.
func dbFetchBestState(db database.DB) (chainhash.Hash, bool, error) {
	serialized, err := db.Get(bestChainStateKey)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return chainhash.Hash{}, false, nil
		}
		return chainhash.Hash{}, false, err
	}
	var hash chainhash.Hash
	if err := hash.SetBytes(serialized); err != nil {
		return chainhash.Hash{}, false, err
	}
	return hash, true, nil
}
