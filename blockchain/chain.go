// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/container/lru"

	"github.com/mimblenet/mnd/chaincfg"
	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/database"
	"github.com/mimblenet/mnd/mmr"
	"github.com/mimblenet/mnd/pedersen"
	"github.com/mimblenet/mnd/txhashset"
	"github.com/mimblenet/mnd/wire"
)

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of
// view of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from
// under the caller when chain state changes occur as the function name
// implies.  However, the returned snapshot must be treated as immutable
// since it is shared by all callers.
type BestState struct {
	Hash              chainhash.Hash // The hash of the block.
	PrevHash          chainhash.Hash // The previous block hash.
	Height            uint64         // The height of the block.
	Bits              uint32         // The difficulty bits of the block.
	TotalDifficulty   uint64         // The cumulative chain difficulty.
	MedianTime        time.Time      // Median time per ruleset.
	OutputLeaves      uint64         // The number of output MMR leaves.
	KernelLeaves      uint64         // The number of kernel MMR leaves.
	TotalKernelOffset [32]byte       // The cumulative kernel offset.
}

// newBestState returns a new best stats instance for the given parameters.
func newBestState(node *blockNode) *BestState {
	prevHash := chainhash.Hash{}
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return &BestState{
		Hash:              node.hash,
		PrevHash:          prevHash,
		Height:            node.height,
		Bits:              node.bits,
		TotalDifficulty:   node.totalDifficulty,
		MedianTime:        medianAdjustedTime(node),
		OutputLeaves:      node.outputMMRSize,
		KernelLeaves:      node.kernelMMRSize,
		TotalKernelOffset: node.totalKernelOffset,
	}
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// DB defines the database which houses the blocks and will be used to
	// store all metadata created by this package.
	//
	// This field is required.
	DB database.DB

	// ChainParams identifies which chain parameters the chain is
	// associated with.
	//
	// This field is required.
	ChainParams *chaincfg.Params
}

// BlockChain provides functions for working with the chain of blocks.  It
// includes functionality such as rejecting duplicate blocks, ensuring
// blocks follow all rules, and best chain selection along with
// reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	chainParams *chaincfg.Params
	db          database.DB

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// index houses the entire block index in memory.
	index *blockIndex

	// hashSet houses the commitment accumulator state for the main chain.
	// All mutation happens with the chain lock held exclusively.
	hashSet *txhashset.TxHashSet

	// bestChain is the tip of the current best chain.
	bestChain *blockNode

	// orphans holds blocks whose parent is not yet known, so they can be
	// retried once the parent arrives.  Older orphans are evicted as the
	// pool fills.
	orphans *lru.Map[chainhash.Hash, *wire.MsgBlock]

	// These fields house a cached snapshot of the current best chain
	// state, protected by their own lock so readers do not contend with
	// long running chain operations.
	stateLock     sync.RWMutex
	stateSnapshot *BestState
}

// New returns a BlockChain instance using the provided configuration
// details.  A side effect of calling it with a database that has never
// been used before is that the genesis block is stored and becomes the
// best chain tip.
func New(config *Config) (*BlockChain, error) {
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}

	params := config.ChainParams
	hashSet, err := txhashset.New(config.DB)
	if err != nil {
		return nil, err
	}
	b := &BlockChain{
		chainParams: params,
		db:          config.DB,
		index:       newBlockIndex(),
		hashSet:     hashSet,
		orphans: lru.NewMap[chainhash.Hash, *wire.MsgBlock](
			uint32(params.MaxOrphanBlocks)),
	}

	tipHash, haveState, err := dbFetchBestState(b.db)
	if err != nil {
		return nil, err
	}
	if !haveState {
		if err := b.createChainState(); err != nil {
			return nil, err
		}
	} else {
		index, err := dbFetchBlockIndex(b.db)
		if err != nil {
			return nil, err
		}
		for _, node := range index {
			b.index.AddNode(node)
		}
		tip := b.index.LookupNode(&tipHash)
		if tip == nil {
			str := fmt.Sprintf("best state references unknown block %v",
				tipHash)
			return nil, AssertError(str)
		}
		b.bestChain = tip
	}
	b.stateSnapshot = newBestState(b.bestChain)

	log.Infof("Chain state (height %d, hash %v, total difficulty %d)",
		b.bestChain.height, b.bestChain.hash,
		b.bestChain.totalDifficulty)
	return b, nil
}

// createChainState initializes both the database and the chain state to
// the genesis block.
func (b *BlockChain) createChainState() error {
	genesisBlock := b.chainParams.GenesisBlock
	node := newBlockNode(&genesisBlock.Header, nil)
	node.status = statusDataStored | statusValidated
	b.index.AddNode(node)
	b.bestChain = node

	batch := b.db.NewBatch()
	if err := dbPutBlockNode(batch, node); err != nil {
		return err
	}
	if err := dbPutBlock(batch, genesisBlock); err != nil {
		return err
	}
	dbPutBestState(batch, &node.hash)
	return batch.Commit()
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance
// must be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// MainChainHasBlock returns whether or not the block with the given hash
// is in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(hash *chainhash.Hash) bool {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	node := b.index.LookupNode(hash)
	return node != nil && b.bestChain.Ancestor(node.height) == node
}

// IsUnspent returns whether the provided output commitment exists unspent
// in the current best chain state.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsUnspent(commit *pedersen.Commitment) bool {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.hashSet.IsUnspent(commit)
}

// FetchMerkleProof returns an inclusion proof for the provided unspent
// output commitment against the current best output accumulator root,
// along with the output's entry.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchMerkleProof(commit *pedersen.Commitment) (*mmr.Proof, txhashset.OutputEntry, error) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	proof, entry, err := b.hashSet.MerkleProof(commit)
	if err != nil {
		if errors.Is(err, txhashset.ErrOutputNotFound) {
			str := fmt.Sprintf("output %v does not exist unspent",
				commit)
			return nil, txhashset.OutputEntry{}, ruleError(
				ErrMissingInput, str)
		}
		return nil, txhashset.OutputEntry{}, err
	}
	return proof, entry, nil
}

// FetchBlock returns the block with the provided hash from the database.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return dbFetchBlock(b.db, hash)
}

// connectBlock handles connecting the passed node/block to the end of the
// main chain.  The block must already have been validated against the
// provided extension, which is committed along with all metadata in a
// single batch.
func (b *BlockChain) connectBlock(node *blockNode, block *wire.MsgBlock, ext *txhashset.Extension, undo []txhashset.OutputEntry) error {
	batch := b.db.NewBatch()
	if err := ext.Commit(batch); err != nil {
		return err
	}
	b.index.SetStatusFlags(node, statusValidated)
	if err := dbPutBlockNode(batch, node); err != nil {
		return err
	}
	dbPutUndoEntries(batch, &node.hash, undo)
	dbPutBestState(batch, &node.hash)
	if err := batch.Commit(); err != nil {
		return err
	}

	b.bestChain = node
	b.stateLock.Lock()
	b.stateSnapshot = newBestState(node)
	b.stateLock.Unlock()

	log.Infof("Block %v (height %d) connected with %d inputs, %d "+
		"outputs, %d kernels", node.hash, node.height, len(block.TxIn),
		len(block.TxOut), len(block.Kernels))
	return nil
}

// connectBestChain handles connecting the passed block to the chain while
// respecting proper chain selection according to the chain with the most
// cumulative proof of work.  In the typical case, the new block simply
// extends the main chain.  However, it may also be extending (or creating)
// a side chain which may or may not end up becoming the main chain
// depending on whether it accumulates enough difficulty.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) connectBestChain(node *blockNode, block *wire.MsgBlock) error {
	// We are extending the main (best) chain with a new block.  This is
	// the most common case.
	parentHash := &block.Header.PrevBlock
	if *parentHash == b.bestChain.hash {
		ext, err := b.hashSet.Extend()
		if err != nil {
			return err
		}
		undo, err := b.checkConnectBlockWrapped(node, block, ext)
		if err != nil {
			ext.Discard()
			return err
		}
		if err := b.connectBlock(node, block, ext, undo); err != nil {
			return err
		}
		return b.maybeCompact(node)
	}

	// The block is extending a side chain.  Reorganize only when its
	// chain has strictly more cumulative difficulty than the current best
	// chain; ties keep the chain seen first.
	if node.totalDifficulty <= b.bestChain.totalDifficulty {
		log.Infof("Block %v (height %d) extends a side chain with total "+
			"difficulty %d, best remains %v (%d)", node.hash,
			node.height, node.totalDifficulty, b.bestChain.hash,
			b.bestChain.totalDifficulty)
		return nil
	}

	if err := b.reorganizeChain(node); err != nil {
		return err
	}
	return b.maybeCompact(node)
}

// maybeCompact runs a compaction pass over the committed accumulator state
// when the tip height is a multiple of the cut-through horizon.  Spends
// recorded in the undo data of main chain blocks within the horizon are
// retained because a reorganization could still restore them; anything
// buried deeper is treated as final and its storage reclaimed.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) maybeCompact(node *blockNode) error {
	horizon := b.chainParams.CutThroughHorizon
	if node.height < horizon || node.height%horizon != 0 {
		return nil
	}

	retain := make(map[uint64]struct{})
	for n := node; n != nil && n.height+horizon > node.height; n = n.parent {
		entries, err := dbFetchUndoEntries(b.db, &n.hash)
		if err != nil {
			return err
		}
		for i := range entries {
			retain[mmr.PosToLeafIndex(entries[i].Pos)] = struct{}{}
		}
	}

	batch := b.db.NewBatch()
	if err := b.hashSet.Compact(batch, retain); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	log.Infof("Compacted accumulator state at height %d (%d recent "+
		"spends retained)", node.height, len(retain))
	return nil
}

// checkConnectBlockWrapped runs checkConnectBlock and, when it fails with
// a rule violation, marks the node as having failed validation.
func (b *BlockChain) checkConnectBlockWrapped(node *blockNode, block *wire.MsgBlock, ext *txhashset.Extension) ([]txhashset.OutputEntry, error) {
	undo, err := b.checkConnectBlock(node, block, ext)
	if err != nil {
		if _, ok := err.(RuleError); ok {
			b.index.SetStatusFlags(node, statusValidateFailed)
		}
		return nil, err
	}
	return undo, nil
}

// reorganizeChain reorganizes the block chain so the provided node becomes
// the tip of the main chain.  All of the accumulator mutation happens in a
// single extension: the blocks between the current tip and the fork point
// are disconnected newest first, the blocks from the fork point to the new
// tip are connected and validated oldest first, and the extension is then
// committed atomically.  Any failure discards the extension, leaving the
// original chain state untouched.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) reorganizeChain(targetTip *blockNode) error {
	// Find the fork point between the current tip and the target tip.
	fork := b.bestChain
	for fork != nil && targetTip.Ancestor(fork.height) != fork {
		fork = fork.parent
	}
	if fork == nil {
		str := fmt.Sprintf("block %v has no common ancestor with the "+
			"best chain", targetTip.hash)
		return AssertError(str)
	}

	// Collect the nodes to detach, newest first, and to attach, oldest
	// first.
	var detachNodes []*blockNode
	for n := b.bestChain; n != fork; n = n.parent {
		detachNodes = append(detachNodes, n)
	}
	var attachNodes []*blockNode
	for n := targetTip; n != fork; n = n.parent {
		attachNodes = append(attachNodes, nil)
		copy(attachNodes[1:], attachNodes)
		attachNodes[0] = n
	}

	log.Infof("Reorganize: fork point %v (height %d), detaching %d "+
		"blocks, attaching %d blocks", fork.hash, fork.height,
		len(detachNodes), len(attachNodes))

	ext, err := b.hashSet.Extend()
	if err != nil {
		return err
	}

	// Disconnect the detached blocks from the accumulator state.
	for _, n := range detachNodes {
		detachBlock, err := dbFetchBlock(b.db, &n.hash)
		if err != nil {
			ext.Discard()
			return err
		}
		undo, err := dbFetchUndoEntries(b.db, &n.hash)
		if err != nil {
			ext.Discard()
			return err
		}
		err = ext.DisconnectBlock(detachBlock, n.parent.outputMMRSize,
			n.parent.kernelMMRSize, undo)
		if err != nil {
			ext.Discard()
			return err
		}
	}

	// Connect and validate the attached blocks, recording each block's
	// undo entries for the final commit.
	attachUndo := make([][]txhashset.OutputEntry, 0, len(attachNodes))
	for _, n := range attachNodes {
		attachBlock, err := dbFetchBlock(b.db, &n.hash)
		if err != nil {
			ext.Discard()
			return err
		}
		undo, err := b.connectToExtension(n, attachBlock, ext)
		if err != nil {
			if _, ok := err.(RuleError); ok {
				b.index.SetStatusFlags(n, statusValidateFailed)
				b.markDescendantsInvalid(n, targetTip)
			}
			ext.Discard()
			return err
		}
		attachUndo = append(attachUndo, undo)
	}

	// Commit everything in one batch: the accumulator changes, the undo
	// entries of the attached blocks, the validation statuses, and the
	// new best state.
	batch := b.db.NewBatch()
	if err := ext.Commit(batch); err != nil {
		return err
	}
	for i, n := range attachNodes {
		b.index.SetStatusFlags(n, statusValidated)
		if err := dbPutBlockNode(batch, n); err != nil {
			return err
		}
		dbPutUndoEntries(batch, &n.hash, attachUndo[i])
	}
	dbPutBestState(batch, &targetTip.hash)
	if err := batch.Commit(); err != nil {
		return err
	}

	b.bestChain = targetTip
	b.stateLock.Lock()
	b.stateSnapshot = newBestState(targetTip)
	b.stateLock.Unlock()

	log.Infof("Reorganize complete: new best chain tip %v (height %d, "+
		"total difficulty %d)", targetTip.hash, targetTip.height,
		targetTip.totalDifficulty)
	return nil
}

// connectToExtension applies and validates a block against the provided
// extension, returning the undo entries its connection produced.  The
// sanity and header context checks already ran when the block was first
// accepted, so only the accumulator dependent validation remains.
func (b *BlockChain) connectToExtension(node *blockNode, block *wire.MsgBlock, ext *txhashset.Extension) ([]txhashset.OutputEntry, error) {
	return b.checkConnectBlock(node, block, ext)
}

// markDescendantsInvalid marks every node on the path from the provided
// failed node to the target tip as having an invalid ancestor.
func (b *BlockChain) markDescendantsInvalid(failed, tip *blockNode) {
	for n := tip; n != nil && n != failed; n = n.parent {
		b.index.SetStatusFlags(n, statusInvalidAncestor)
	}
}
