// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mimblenet/mnd/chaincfg"
	"github.com/mimblenet/mnd/database"
	"github.com/mimblenet/mnd/pedersen"
	"github.com/mimblenet/mnd/wire"
)

// spendableOutput tracks an output the test harness knows the opening of,
// so later blocks can spend it.
type spendableOutput struct {
	commit   pedersen.Commitment
	value    uint64
	blind    *secp256k1.ModNScalar
	height   uint64
	coinbase bool
}

// features returns the output features the spending input must declare.
func (o *spendableOutput) features() wire.OutputFeatures {
	if o.coinbase {
		return wire.OutputCoinbase
	}
	return wire.OutputPlain
}

// chainHarness wraps a chain instance with helpers that mine fully valid
// blocks: real commitments, range proofs, kernel signatures, and solved
// proof of work on the simulation network.
type chainHarness struct {
	t      *testing.T
	chain  *BlockChain
	params *chaincfg.Params

	// blocks holds every block mined through the harness in height
	// order, and coinbases the opening of each block's coinbase output.
	blocks    []*wire.MsgBlock
	coinbases []*spendableOutput
}

// newChainHarness returns a harness around a fresh simnet chain.
func newChainHarness(t *testing.T) *chainHarness {
	t.Helper()
	params := chaincfg.SimNetParams()
	chain, err := New(&Config{DB: database.NewMemDB(), ChainParams: params})
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}
	return &chainHarness{t: t, chain: chain, params: params}
}

// signKernel populates the kernel's excess signature using the provided
// excess key.
func signKernel(t *testing.T, kernel *wire.TxKernel, key *secp256k1.ModNScalar) {
	t.Helper()
	sigHash := kernel.SignatureHash()
	sig, err := pedersen.Sign(key, sigHash[:])
	if err != nil {
		t.Fatalf("Sign: unexpected error: %v", err)
	}
	kernel.ExcessSig = sig
}

// newOutput creates an output committing to the provided value under a
// fresh blinding factor, along with its range proof.
func newOutput(t *testing.T, value uint64, features wire.OutputFeatures) (*wire.TxOut, *secp256k1.ModNScalar) {
	t.Helper()
	blind := pedersen.NewBlind()
	commit, err := pedersen.Commit(value, blind)
	if err != nil {
		t.Fatalf("Commit: unexpected error: %v", err)
	}
	proof, err := pedersen.ProveRange(value, blind)
	if err != nil {
		t.Fatalf("ProveRange: unexpected error: %v", err)
	}
	return wire.NewTxOut(features, commit, proof), blind
}

// createSpendTx builds a transaction spending the provided output into a
// single new plain output, paying the given fee.  It returns the
// transaction and the opening of the new output.
func (h *chainHarness) createSpendTx(out *spendableOutput, fee uint64) (*wire.MsgTx, *spendableOutput) {
	h.t.Helper()
	newValue := out.value - fee
	txOut, newBlind := newOutput(h.t, newValue, wire.OutputPlain)

	offset := pedersen.NewBlind()
	excessKey := pedersen.BlindSum(
		[]*secp256k1.ModNScalar{newBlind},
		[]*secp256k1.ModNScalar{out.blind, offset})
	excess, err := pedersen.Commit(0, &excessKey)
	if err != nil {
		h.t.Fatalf("Commit: unexpected error: %v", err)
	}
	kernel := &wire.TxKernel{
		Features: wire.KernelPlain,
		Fee:      fee,
		Excess:   excess,
	}
	signKernel(h.t, kernel, &excessKey)

	tx := wire.NewMsgTx()
	tx.KernelOffset = offset.Bytes()
	tx.AddTxIn(wire.NewTxIn(out.features(), out.commit))
	tx.AddTxOut(txOut)
	tx.AddKernel(kernel)

	return tx, &spendableOutput{
		commit: txOut.Commitment,
		value:  newValue,
		blind:  newBlind,
	}
}

// buildBlock assembles a fully valid block on top of the current best
// chain tip containing the provided transactions, including a coinbase
// claiming the block subsidy plus fees and a solved proof of work.  The
// second return value is the opening of the coinbase output.
func (h *chainHarness) buildBlock(txs ...*wire.MsgTx) (*wire.MsgBlock, *spendableOutput) {
	h.t.Helper()
	tip := h.chain.bestChain
	height := tip.height + 1
	subsidy := chaincfg.BlockReward(height)

	var fees uint64
	for _, tx := range txs {
		fees += tx.TotalFee()
	}

	// The coinbase claims the subsidy and fees.  Its kernel excess
	// commits to zero under the coinbase blind less the block's own
	// offset contribution.
	cbOut, cbBlind := newOutput(h.t, subsidy+fees, wire.OutputCoinbase)
	cbOffset := pedersen.NewBlind()
	cbKey := pedersen.BlindSum(
		[]*secp256k1.ModNScalar{cbBlind},
		[]*secp256k1.ModNScalar{cbOffset})
	cbExcess, err := pedersen.Commit(0, &cbKey)
	if err != nil {
		h.t.Fatalf("Commit: unexpected error: %v", err)
	}
	cbKernel := &wire.TxKernel{
		Features: wire.KernelCoinbase,
		Excess:   cbExcess,
	}
	signKernel(h.t, cbKernel, &cbKey)

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			Height:    height,
			PrevBlock: tip.hash,
			Timestamp: time.Unix(tip.timestamp+60, 0),
		},
	}
	block.AddTxOut(cbOut)
	block.AddKernel(cbKernel)

	// Aggregate the transactions into the block body and their offsets
	// into the block's offset.
	blockOffset := *cbOffset
	for _, tx := range txs {
		block.TxIn = append(block.TxIn, tx.TxIn...)
		block.TxOut = append(block.TxOut, tx.TxOut...)
		block.Kernels = append(block.Kernels, tx.Kernels...)
		txOffset, err := scalarFromOffset(&tx.KernelOffset)
		if err != nil {
			h.t.Fatalf("scalarFromOffset: unexpected error: %v", err)
		}
		blockOffset.Add(txOffset)
	}
	prevTotal, err := scalarFromOffset(&tip.totalKernelOffset)
	if err != nil {
		h.t.Fatalf("scalarFromOffset: unexpected error: %v", err)
	}
	blockOffset.Add(prevTotal)
	block.Header.TotalKernelOffset = blockOffset.Bytes()

	// Fill in the commitments to the accumulator state the block
	// produces by staging it against the current chain state.
	header := &block.Header
	header.OutputMMRSize = tip.outputMMRSize + uint64(len(block.TxOut))
	header.KernelMMRSize = tip.kernelMMRSize + uint64(len(block.Kernels))
	ext, err := h.chain.hashSet.Extend()
	if err != nil {
		h.t.Fatalf("Extend: unexpected error: %v", err)
	}
	if _, err := ext.ConnectBlock(block); err == nil {
		roots, err := ext.Roots()
		if err != nil {
			h.t.Fatalf("Roots: unexpected error: %v", err)
		}
		header.OutputRoot = roots.Output
		header.RangeProofRoot = roots.RangeProof
		header.KernelRoot = roots.Kernel
	}
	ext.Discard()

	// The difficulty commitments and proof of work come last since the
	// nonce search depends on the final header contents.
	header.Bits = h.chain.bitsForDifficulty(
		h.chain.calcNextRequiredDifficulty(tip))
	header.TotalDifficulty = tip.totalDifficulty +
		h.chain.difficultyFromBits(header.Bits)
	h.solve(header)

	return block, &spendableOutput{
		commit:   cbOut.Commitment,
		value:    subsidy + fees,
		blind:    cbBlind,
		height:   height,
		coinbase: true,
	}
}

// solve searches for a nonce satisfying the header's target.  The simnet
// difficulty floor keeps the search trivial.
func (h *chainHarness) solve(header *wire.BlockHeader) {
	h.t.Helper()
	for nonce := uint64(0); ; nonce++ {
		header.Nonce = nonce
		if checkProofOfWork(header, h.params.PowLimit) == nil {
			return
		}
	}
}

// acceptBlock processes a block built elsewhere and requires it to land
// on the main chain.
func (h *chainHarness) acceptBlock(block *wire.MsgBlock) {
	h.t.Helper()
	onMainChain, err := h.chain.ProcessBlock(block)
	if err != nil {
		h.t.Fatalf("ProcessBlock(%d): unexpected error: %v",
			block.Header.Height, err)
	}
	if !onMainChain {
		h.t.Fatalf("ProcessBlock(%d): block not on main chain",
			block.Header.Height)
	}
}

// mineBlock builds a valid block with the provided transactions, processes
// it, and requires it to extend the main chain.
func (h *chainHarness) mineBlock(txs ...*wire.MsgTx) *wire.MsgBlock {
	h.t.Helper()
	block, coinbase := h.buildBlock(txs...)
	h.acceptBlock(block)
	h.blocks = append(h.blocks, block)
	h.coinbases = append(h.coinbases, coinbase)
	return block
}

// TestGenesisChainState ensures a fresh chain initializes to the genesis
// block with empty accumulators.
func TestGenesisChainState(t *testing.T) {
	h := newChainHarness(t)
	snapshot := h.chain.BestSnapshot()
	if snapshot.Hash != h.params.GenesisHash {
		t.Errorf("best hash: got %v want %v", snapshot.Hash,
			h.params.GenesisHash)
	}
	if snapshot.Height != 0 {
		t.Errorf("best height: got %d want 0", snapshot.Height)
	}
	if snapshot.OutputLeaves != 0 || snapshot.KernelLeaves != 0 {
		t.Errorf("accumulator leaves: got (%d, %d) want (0, 0)",
			snapshot.OutputLeaves, snapshot.KernelLeaves)
	}
	if !h.chain.MainChainHasBlock(&h.params.GenesisHash) {
		t.Errorf("genesis block not reported on the main chain")
	}
}

// TestMineAndSpend mines past the coinbase maturity window, spends a
// mature coinbase, and exercises the rejection paths for immature spends,
// double spends, duplicate blocks, and broken zero-sum balances.
func TestMineAndSpend(t *testing.T) {
	h := newChainHarness(t)

	// Mine one block past the maturity window so the first coinbase is
	// spendable in the next block.
	maturity := h.params.CoinbaseMaturity
	for i := uint64(0); i < maturity+1; i++ {
		h.mineBlock()
	}
	snapshot := h.chain.BestSnapshot()
	if snapshot.Height != maturity+1 {
		t.Fatalf("best height: got %d want %d", snapshot.Height,
			maturity+1)
	}

	// Spend the first coinbase with a fee paying transaction.
	const fee = 1000
	tx, change := h.createSpendTx(h.coinbases[0], fee)
	if err := h.chain.CheckTransaction(tx); err != nil {
		t.Fatalf("CheckTransaction: unexpected error: %v", err)
	}
	h.mineBlock(tx)

	spent := h.coinbases[0]
	if h.chain.IsUnspent(&spent.commit) {
		t.Errorf("spent coinbase still reported unspent")
	}
	if !h.chain.IsUnspent(&change.commit) {
		t.Errorf("new output not reported unspent")
	}
	proof, entry, err := h.chain.FetchMerkleProof(&change.commit)
	if err != nil {
		t.Fatalf("FetchMerkleProof: unexpected error: %v", err)
	}
	if proof == nil || entry.Height != maturity+2 {
		t.Errorf("merkle proof entry height: got %d want %d",
			entry.Height, maturity+2)
	}

	// A transaction spending a coinbase that has not matured yet must be
	// rejected both on its own and inside a block.
	immature := h.coinbases[len(h.coinbases)-1]
	immatureTx, _ := h.createSpendTx(immature, fee)
	err = h.chain.CheckTransaction(immatureTx)
	if !errors.Is(err, ErrImmatureCoinbase) {
		t.Errorf("immature spend via CheckTransaction: got %v want %v",
			err, ErrImmatureCoinbase)
	}
	immatureBlock, _ := h.buildBlock(immatureTx)
	_, err = h.chain.ProcessBlock(immatureBlock)
	if !errors.Is(err, ErrImmatureCoinbase) {
		t.Errorf("immature spend via block: got %v want %v", err,
			ErrImmatureCoinbase)
	}

	// Spending the same output again must fail since it is gone from the
	// unspent set.
	doubleTx, _ := h.createSpendTx(spent, fee)
	err = h.chain.CheckTransaction(doubleTx)
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("double spend via CheckTransaction: got %v want %v",
			err, ErrMissingInput)
	}
	doubleBlock, _ := h.buildBlock(doubleTx)
	_, err = h.chain.ProcessBlock(doubleBlock)
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("double spend via block: got %v want %v", err,
			ErrMissingInput)
	}

	// Reprocessing the current tip block is a duplicate.
	_, err = h.chain.ProcessBlock(h.blocks[len(h.blocks)-1])
	if !errors.Is(err, ErrDuplicateBlock) {
		t.Errorf("duplicate block: got %v want %v", err,
			ErrDuplicateBlock)
	}

	// Tampering with the committed kernel offset breaks the zero-sum
	// balance even with the proof of work re-solved.
	tampered, _ := h.buildBlock()
	offset, err := scalarFromOffset(&tampered.Header.TotalKernelOffset)
	if err != nil {
		t.Fatalf("scalarFromOffset: unexpected error: %v", err)
	}
	offset.Add(new(secp256k1.ModNScalar).SetInt(1))
	tampered.Header.TotalKernelOffset = offset.Bytes()
	h.solve(&tampered.Header)
	_, err = h.chain.ProcessBlock(tampered)
	if !errors.Is(err, ErrBadKernelSums) {
		t.Errorf("tampered kernel offset: got %v want %v", err,
			ErrBadKernelSums)
	}

	// The rejected blocks must not have disturbed the chain state.
	if got := h.chain.BestSnapshot().Height; got != maturity+2 {
		t.Errorf("best height after rejections: got %d want %d", got,
			maturity+2)
	}
	if !h.chain.IsUnspent(&change.commit) {
		t.Errorf("new output lost after rejected blocks")
	}
}

// TestOrphanProcessing ensures blocks arriving before their parents are
// held and connected automatically once the parents arrive.
func TestOrphanProcessing(t *testing.T) {
	// Mine a short chain on a donor harness, then replay it out of order
	// on a fresh chain.
	donor := newChainHarness(t)
	for i := 0; i < 3; i++ {
		donor.mineBlock()
	}

	h := newChainHarness(t)
	for _, block := range []*wire.MsgBlock{donor.blocks[1], donor.blocks[2]} {
		_, err := h.chain.ProcessBlock(block)
		if !errors.Is(err, ErrMissingParent) {
			t.Fatalf("orphan block %d: got %v want %v",
				block.Header.Height, err, ErrMissingParent)
		}
	}

	// A re-sent orphan is a duplicate.
	_, err := h.chain.ProcessBlock(donor.blocks[1])
	if !errors.Is(err, ErrDuplicateBlock) {
		t.Errorf("re-sent orphan: got %v want %v", err, ErrDuplicateBlock)
	}

	// The missing parent connects itself and both orphans.
	onMainChain, err := h.chain.ProcessBlock(donor.blocks[0])
	if err != nil {
		t.Fatalf("parent block: unexpected error: %v", err)
	}
	if !onMainChain {
		t.Fatalf("parent block did not land on the main chain")
	}
	snapshot := h.chain.BestSnapshot()
	if snapshot.Height != 3 {
		t.Errorf("best height: got %d want 3", snapshot.Height)
	}
	wantHash := donor.blocks[2].BlockHash()
	if snapshot.Hash != wantHash {
		t.Errorf("best hash: got %v want %v", snapshot.Hash, wantHash)
	}
}

// TestReorganization ensures a side chain with more cumulative difficulty
// takes over the main chain and that the accumulator state rewinds
// correctly, restoring outputs spent on the abandoned branch.
func TestReorganization(t *testing.T) {
	h := newChainHarness(t)

	// Mine past maturity and spend the first coinbase on the main chain.
	maturity := h.params.CoinbaseMaturity
	for i := uint64(0); i < maturity+1; i++ {
		h.mineBlock()
	}
	const fee = 500
	tx, change := h.createSpendTx(h.coinbases[0], fee)
	h.mineBlock(tx)
	tipHeight := maturity + 2

	if h.chain.IsUnspent(&h.coinbases[0].commit) {
		t.Fatalf("spent coinbase still reported unspent")
	}

	// Replay the common history onto a second chain and mine a longer
	// competing branch there that does not include the spend.
	side := newChainHarness(t)
	for _, block := range h.blocks[:tipHeight-1] {
		side.acceptBlock(block)
	}
	b1 := side.mineBlock()
	b2 := side.mineBlock()

	// The first competing block ties the cumulative difficulty, so the
	// original chain is kept.
	onMainChain, err := h.chain.ProcessBlock(b1)
	if err != nil {
		t.Fatalf("side chain block: unexpected error: %v", err)
	}
	if onMainChain {
		t.Fatalf("tying side chain block replaced the main chain")
	}
	if got := h.chain.BestSnapshot().Height; got != tipHeight {
		t.Fatalf("best height after tie: got %d want %d", got, tipHeight)
	}

	// The second competing block has strictly more cumulative difficulty
	// and forces a reorganization.
	onMainChain, err = h.chain.ProcessBlock(b2)
	if err != nil {
		t.Fatalf("reorganizing block: unexpected error: %v", err)
	}
	if !onMainChain {
		t.Fatalf("reorganizing block did not land on the main chain")
	}

	snapshot := h.chain.BestSnapshot()
	wantHash := b2.BlockHash()
	if snapshot.Hash != wantHash {
		t.Errorf("best hash: got %v want %v", snapshot.Hash, wantHash)
	}
	if snapshot.Height != tipHeight+1 {
		t.Errorf("best height: got %d want %d", snapshot.Height,
			tipHeight+1)
	}

	// The spend only existed on the abandoned branch: the coinbase is
	// unspent again and the change output is gone.
	if !h.chain.IsUnspent(&h.coinbases[0].commit) {
		t.Errorf("reorg did not restore the spent coinbase")
	}
	if h.chain.IsUnspent(&change.commit) {
		t.Errorf("abandoned branch output still reported unspent")
	}

	// The abandoned block remains available for a future reorganization
	// back.
	abandonedHash := h.blocks[len(h.blocks)-1].BlockHash()
	if _, err := h.chain.FetchBlock(&abandonedHash); err != nil {
		t.Errorf("abandoned block not fetchable: %v", err)
	}
	if h.chain.MainChainHasBlock(&abandonedHash) {
		t.Errorf("abandoned block still reported on the main chain")
	}
}

// TestChainRestart ensures the chain state survives a restart against the
// same database.
func TestChainRestart(t *testing.T) {
	h := newChainHarness(t)
	for i := 0; i < 5; i++ {
		h.mineBlock()
	}
	before := h.chain.BestSnapshot()

	restarted, err := New(&Config{DB: h.chain.db, ChainParams: h.params})
	if err != nil {
		t.Fatalf("New after restart: unexpected error: %v", err)
	}
	after := restarted.BestSnapshot()
	if after.Hash != before.Hash || after.Height != before.Height {
		t.Errorf("restarted best state: got (%v, %d) want (%v, %d)",
			after.Hash, after.Height, before.Hash, before.Height)
	}
	if after.TotalDifficulty != before.TotalDifficulty {
		t.Errorf("restarted total difficulty: got %d want %d",
			after.TotalDifficulty, before.TotalDifficulty)
	}
	if !restarted.IsUnspent(&h.coinbases[2].commit) {
		t.Errorf("coinbase output lost across restart")
	}
}

// TestCoinbaseMaturityBoundary ensures a coinbase becomes spendable at
// exactly its creation height plus the maturity window, and not one block
// sooner.
func TestCoinbaseMaturityBoundary(t *testing.T) {
	h := newChainHarness(t)
	maturity := h.params.CoinbaseMaturity

	// The first coinbase is created at height 1, so the earliest block
	// that may contain its spend is at height 1 + maturity.  Mine up to
	// the height just below that so the next block is one short.
	for i := uint64(0); i < maturity-1; i++ {
		h.mineBlock()
	}
	target := h.coinbases[0]

	const fee = 1000
	earlyTx, _ := h.createSpendTx(target, fee)
	err := h.chain.CheckTransaction(earlyTx)
	if !errors.Is(err, ErrImmatureCoinbase) {
		t.Errorf("spend one block early via CheckTransaction: got %v "+
			"want %v", err, ErrImmatureCoinbase)
	}
	earlyBlock, _ := h.buildBlock(earlyTx)
	_, err = h.chain.ProcessBlock(earlyBlock)
	if !errors.Is(err, ErrImmatureCoinbase) {
		t.Errorf("spend one block early via block: got %v want %v", err,
			ErrImmatureCoinbase)
	}

	// At exactly creation height plus maturity the spend connects.
	h.mineBlock()
	tx, change := h.createSpendTx(target, fee)
	if err := h.chain.CheckTransaction(tx); err != nil {
		t.Fatalf("CheckTransaction at maturity: unexpected error: %v",
			err)
	}
	block := h.mineBlock(tx)
	if got := block.Header.Height; got != target.height+maturity {
		t.Fatalf("spend connected at height %d, want %d", got,
			target.height+maturity)
	}
	if h.chain.IsUnspent(&target.commit) {
		t.Errorf("spent coinbase still reported unspent")
	}
	if !h.chain.IsUnspent(&change.commit) {
		t.Errorf("new output not reported unspent")
	}
}

// TestCompactionAcrossHorizon mines through multiple cut-through horizons
// with spends in the early blocks and ensures the periodic compaction
// passes leave the chain fully operational, inclusion proofs for unspent
// outputs included, across a database reload.
func TestCompactionAcrossHorizon(t *testing.T) {
	h := newChainHarness(t)
	maturity := h.params.CoinbaseMaturity
	horizon := h.params.CutThroughHorizon

	for i := uint64(0); i < maturity+1; i++ {
		h.mineBlock()
	}

	// Spend the two oldest coinbases so the leftmost output leaves are
	// tombstoned as a complete sibling pair.
	const fee = 1000
	tx1, change := h.createSpendTx(h.coinbases[0], fee)
	h.mineBlock(tx1)
	tx2, _ := h.createSpendTx(h.coinbases[1], fee)
	h.mineBlock(tx2)

	// Mine through two compaction triggers so the spends age beyond the
	// horizon, then one more block to confirm the chain still extends
	// over the compacted state.
	for h.chain.BestSnapshot().Height < 2*horizon {
		h.mineBlock()
	}
	h.mineBlock()

	if h.chain.IsUnspent(&h.coinbases[0].commit) {
		t.Errorf("compacted spend still reported unspent")
	}
	if !h.chain.IsUnspent(&change.commit) {
		t.Errorf("unspent output lost across compaction")
	}
	proof, _, err := h.chain.FetchMerkleProof(&change.commit)
	if err != nil {
		t.Fatalf("FetchMerkleProof after compaction: unexpected "+
			"error: %v", err)
	}
	if proof == nil {
		t.Fatal("FetchMerkleProof after compaction: nil proof")
	}

	// The compacted state must survive a reload from the same database.
	snapshot := h.chain.BestSnapshot()
	reloaded, err := New(&Config{DB: h.chain.db, ChainParams: h.params})
	if err != nil {
		t.Fatalf("New(reload): unexpected error: %v", err)
	}
	reSnapshot := reloaded.BestSnapshot()
	if reSnapshot.Hash != snapshot.Hash || reSnapshot.Height != snapshot.Height {
		t.Fatalf("reloaded snapshot: got (%v, %d), want (%v, %d)",
			reSnapshot.Hash, reSnapshot.Height, snapshot.Hash,
			snapshot.Height)
	}
	if !reloaded.IsUnspent(&change.commit) {
		t.Errorf("reloaded chain lost an unspent output")
	}
}
