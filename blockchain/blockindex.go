// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"
	"time"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/wire"
)

// blockStatus is a bit field representing the validation state of the
// block.
type blockStatus byte

const (
	// statusDataStored indicates that the block's payload is stored on
	// disk.
	statusDataStored blockStatus = 1 << iota

	// statusValidated indicates that the block has been fully validated.
	statusValidated

	// statusValidateFailed indicates that the block has failed validation.
	statusValidateFailed

	// statusInvalidAncestor indicates that one of the ancestors of the
	// block has failed validation, thus the block is also invalid.
	statusInvalidAncestor
)

// HaveData returns whether the full block data is stored in the database.
func (status blockStatus) HaveData() bool {
	return status&statusDataStored != 0
}

// KnownValid returns whether the block is known to be valid.
func (status blockStatus) KnownValid() bool {
	return status&statusValidated != 0
}

// KnownInvalid returns whether the block is known to be invalid, either
// directly or through an invalid ancestor.
func (status blockStatus) KnownInvalid() bool {
	return status&(statusValidateFailed|statusInvalidAncestor) != 0
}

// blockNode represents a block within the block index.  The block index is
// an in-memory tree of every known block header, rooted at the genesis
// block.
type blockNode struct {
	// parent is the parent block for this node.
	parent *blockNode

	// hash is the hash of the block this node represents.
	hash chainhash.Hash

	// height is the position in the block chain.
	height uint64

	// totalDifficulty is the cumulative difficulty of the chain up to and
	// including this block.  It is what best chain selection compares.
	totalDifficulty uint64

	// Some fields from the block header to reconstruct it from memory.
	version           uint32
	bits              uint32
	nonce             uint64
	timestamp         int64
	outputRoot        chainhash.Hash
	rangeProofRoot    chainhash.Hash
	kernelRoot        chainhash.Hash
	totalKernelOffset [32]byte
	outputMMRSize     uint64
	kernelMMRSize     uint64

	// status is a bitfield representing the validation state of the
	// block.  It is not protected by a lock; all writes happen with the
	// chain lock held exclusively.
	status blockStatus
}

// newBlockNode returns a new block node for the given block header and
// parent node.
func newBlockNode(header *wire.BlockHeader, parent *blockNode) *blockNode {
	return &blockNode{
		parent:            parent,
		hash:              header.BlockHash(),
		height:            header.Height,
		totalDifficulty:   header.TotalDifficulty,
		version:           header.Version,
		bits:              header.Bits,
		nonce:             header.Nonce,
		timestamp:         header.Timestamp.Unix(),
		outputRoot:        header.OutputRoot,
		rangeProofRoot:    header.RangeProofRoot,
		kernelRoot:        header.KernelRoot,
		totalKernelOffset: header.TotalKernelOffset,
		outputMMRSize:     header.OutputMMRSize,
		kernelMMRSize:     header.KernelMMRSize,
	}
}

// Header constructs a block header from the node and returns it.
func (node *blockNode) Header() wire.BlockHeader {
	prevHash := chainhash.Hash{}
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return wire.BlockHeader{
		Version:           node.version,
		Height:            node.height,
		PrevBlock:         prevHash,
		Timestamp:         time.Unix(node.timestamp, 0),
		OutputRoot:        node.outputRoot,
		RangeProofRoot:    node.rangeProofRoot,
		KernelRoot:        node.kernelRoot,
		TotalKernelOffset: node.totalKernelOffset,
		OutputMMRSize:     node.outputMMRSize,
		KernelMMRSize:     node.kernelMMRSize,
		Bits:              node.bits,
		TotalDifficulty:   node.totalDifficulty,
		Nonce:             node.nonce,
	}
}

// Ancestor returns the ancestor block node at the provided height by
// following the chain backwards from this node.  The returned block will
// be nil when a height is requested that is higher than the height of the
// passed node.
func (node *blockNode) Ancestor(height uint64) *blockNode {
	if height > node.height {
		return nil
	}
	n := node
	for n != nil && n.height != height {
		n = n.parent
	}
	return n
}

// blockIndex provides facilities for keeping track of an in-memory index
// of the block chain.  It is not safe for concurrent access from multiple
// goroutines without external synchronization; the chain lock provides it.
type blockIndex struct {
	sync.RWMutex
	index map[chainhash.Hash]*blockNode
}

// newBlockIndex returns a new empty instance of a block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index: make(map[chainhash.Hash]*blockNode),
	}
}

// HaveBlock returns whether or not the block index contains the provided
// hash.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	_, hasBlock := bi.index[*hash]
	bi.RUnlock()
	return hasBlock
}

// LookupNode returns the block node identified by the provided hash.  It
// will return nil if there is no entry for the hash.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.RLock()
	node := bi.index[*hash]
	bi.RUnlock()
	return node
}

// AddNode adds the provided node to the block index.  Duplicate entries
// are not checked so it is up to the caller to avoid adding them.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	bi.index[node.hash] = node
	bi.Unlock()
}

// NodeStatus returns the status associated with the provided node.
func (bi *blockIndex) NodeStatus(node *blockNode) blockStatus {
	bi.RLock()
	status := node.status
	bi.RUnlock()
	return status
}

// SetStatusFlags sets the provided status flags for the given block node
// regardless of their previous state.
func (bi *blockIndex) SetStatusFlags(node *blockNode, flags blockStatus) {
	bi.Lock()
	node.status |= flags
	bi.Unlock()
}
