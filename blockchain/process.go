// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/wire"
)

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain.  It includes functionality such as rejecting
// duplicate blocks, ensuring blocks follow all rules, orphan handling, and
// insertion into the block chain along with best chain selection and
// reorganization.
//
// It returns whether or not the block ended up on the main chain.  A block
// whose parent is not yet known is held as an orphan and reported via
// ErrMissingParent; it is retried automatically once the parent arrives.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock) (bool, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	blockHash := block.Header.BlockHash()
	log.Tracef("Processing block %v", blockHash)

	// The block must not already be known, whether as part of the block
	// index or as an orphan awaiting its parent.
	if b.index.HaveBlock(&blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return false, ruleError(ErrDuplicateBlock, str)
	}
	if b.orphans.Exists(blockHash) {
		str := fmt.Sprintf("already have block (orphan) %v", blockHash)
		return false, ruleError(ErrDuplicateBlock, str)
	}

	// Perform preliminary sanity checks on the block and its kernels.
	if err := checkBlockSanity(block); err != nil {
		return false, err
	}

	// Handle orphan blocks.
	prevHash := &block.Header.PrevBlock
	prevNode := b.index.LookupNode(prevHash)
	if prevNode == nil {
		log.Infof("Adding orphan block %v with parent %v", blockHash,
			prevHash)
		b.orphans.Put(blockHash, block)

		str := fmt.Sprintf("parent block %v is not known", prevHash)
		return false, ruleError(ErrMissingParent, str)
	}

	// Reject descendants of known invalid blocks up front.
	if b.index.NodeStatus(prevNode).KnownInvalid() {
		str := fmt.Sprintf("block %v descends from known invalid block %v",
			blockHash, prevHash)
		return false, ruleError(ErrInvalidAncestorBlock, str)
	}

	onMainChain, err := b.maybeAcceptBlock(block, prevNode)
	if err != nil {
		return false, err
	}

	// Accept any orphan blocks that now have a known parent, potentially
	// accepting further descendants in turn.
	if err := b.processOrphans(&blockHash); err != nil {
		return false, err
	}

	return onMainChain, nil
}

// maybeAcceptBlock performs the contextual validation for a block whose
// parent is known, adds it to the block index and block database, and
// attempts to connect it to the best chain.  It returns whether the block
// ended up on the main chain.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) maybeAcceptBlock(block *wire.MsgBlock, prevNode *blockNode) (bool, error) {
	if err := b.checkBlockContext(block, prevNode); err != nil {
		return false, err
	}

	node := newBlockNode(&block.Header, prevNode)
	node.status = statusDataStored
	b.index.AddNode(node)

	// Persist the block data and index entry regardless of whether the
	// block extends the best chain, so side chain blocks are available
	// for a later reorganization.
	batch := b.db.NewBatch()
	if err := dbPutBlock(batch, block); err != nil {
		return false, err
	}
	if err := dbPutBlockNode(batch, node); err != nil {
		return false, err
	}
	if err := batch.Commit(); err != nil {
		return false, err
	}

	if err := b.connectBestChain(node, block); err != nil {
		return false, err
	}

	return b.bestChain == node || b.bestChain.Ancestor(node.height) == node,
		nil
}

// processOrphans determines if there are any orphans which depend on the
// passed block hash and processes them, repeating for any blocks accepted
// that way.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) processOrphans(hash *chainhash.Hash) error {
	// Start with processing at least the passed hash.  Rather than
	// recursing, new parents are appended and processed in order.
	processHashes := []chainhash.Hash{*hash}
	for len(processHashes) > 0 {
		processHash := processHashes[0]
		processHashes = processHashes[1:]

		for _, orphan := range b.orphanChildren(&processHash) {
			orphanHash := orphan.Header.BlockHash()
			b.orphans.Delete(orphanHash)

			prevNode := b.index.LookupNode(&processHash)
			if prevNode == nil {
				panicf("processOrphans parent %v missing from index",
					processHash)
			}
			if _, err := b.maybeAcceptBlock(orphan, prevNode); err != nil {
				// An invalid orphan is dropped; its own descendants
				// remain orphaned until evicted.
				var rerr RuleError
				if !errors.As(err, &rerr) {
					return err
				}
				log.Infof("Rejected orphan block %v: %v", orphanHash,
					err)
				continue
			}

			processHashes = append(processHashes, orphanHash)
		}
	}
	return nil
}

// orphanChildren returns the orphan blocks whose parent is the provided
// hash.
func (b *BlockChain) orphanChildren(parent *chainhash.Hash) []*wire.MsgBlock {
	var children []*wire.MsgBlock
	for _, orphan := range b.orphans.Values() {
		if orphan.Header.PrevBlock == *parent {
			children = append(children, orphan)
		}
	}
	return children
}
