// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mimblenet/mnd/chaincfg"
	"github.com/mimblenet/mnd/pedersen"
	"github.com/mimblenet/mnd/txhashset"
	"github.com/mimblenet/mnd/wire"
)

const (
	// maxTimeOffset is the maximum number of seconds a block time is
	// allowed to be ahead of the current time.
	maxTimeOffset = 2 * time.Hour

	// medianTimeBlocks is the number of previous blocks which should be
	// used to calculate the median time used to validate block timestamps.
	medianTimeBlocks = 11
)

// scalarFromOffset parses a serialized kernel offset into a scalar,
// rejecting non-canonical encodings.
func scalarFromOffset(offset *[32]byte) (*secp256k1.ModNScalar, error) {
	var s secp256k1.ModNScalar
	if overflow := s.SetBytes(offset); overflow != 0 {
		str := fmt.Sprintf("kernel offset %x is not a canonical scalar",
			*offset)
		return nil, ruleError(ErrBadKernelOffset, str)
	}
	return &s, nil
}

// checkKernelSanity performs context-free checks on a single kernel.
func checkKernelSanity(kernel *wire.TxKernel) error {
	switch kernel.Features {
	case wire.KernelPlain, wire.KernelCoinbase:
		if kernel.LockHeight != 0 {
			str := fmt.Sprintf("kernel %v carries lock height %d "+
				"without height locked features", &kernel.Excess,
				kernel.LockHeight)
			return ruleError(ErrBadKernel, str)
		}
	case wire.KernelHeightLocked:
		if kernel.LockHeight == 0 {
			str := fmt.Sprintf("kernel %v is height locked without a "+
				"lock height", &kernel.Excess)
			return ruleError(ErrBadKernel, str)
		}
	}
	if kernel.Features == wire.KernelCoinbase && kernel.Fee != 0 {
		str := fmt.Sprintf("coinbase kernel %v claims a fee of %d",
			&kernel.Excess, kernel.Fee)
		return ruleError(ErrBadKernel, str)
	}
	return nil
}

// checkDuplicateElements ensures a body does not reference the same input,
// output commitment, or kernel excess more than once.
func checkDuplicateElements(ins []*wire.TxIn, outs []*wire.TxOut, kernels []*wire.TxKernel) error {
	seenInputs := make(map[pedersen.Commitment]struct{}, len(ins))
	for _, in := range ins {
		if _, ok := seenInputs[in.Commitment]; ok {
			str := fmt.Sprintf("duplicate input %v", &in.Commitment)
			return ruleError(ErrDuplicateInput, str)
		}
		seenInputs[in.Commitment] = struct{}{}
	}

	seenOutputs := make(map[pedersen.Commitment]struct{}, len(outs))
	for _, out := range outs {
		if _, ok := seenOutputs[out.Commitment]; ok {
			str := fmt.Sprintf("duplicate output commitment %v",
				&out.Commitment)
			return ruleError(ErrDuplicateCommitment, str)
		}
		seenOutputs[out.Commitment] = struct{}{}
	}

	seenKernels := make(map[pedersen.Commitment]struct{}, len(kernels))
	for _, kernel := range kernels {
		if _, ok := seenKernels[kernel.Excess]; ok {
			str := fmt.Sprintf("duplicate kernel excess %v",
				&kernel.Excess)
			return ruleError(ErrDuplicateKernel, str)
		}
		seenKernels[kernel.Excess] = struct{}{}
	}
	return nil
}

// checkBlockSanity performs validation checks on a block that are context
// free: they depend only on the block itself and the consensus rules.
func checkBlockSanity(block *wire.MsgBlock) error {
	// Every block carries at least one kernel, since even an empty block
	// has a coinbase.
	if len(block.Kernels) == 0 {
		return ruleError(ErrNoKernels, "block carries no kernels")
	}

	// A block must not exceed the maximum allowed weight.
	weight := block.Weight()
	if weight > wire.MaxBlockWeight {
		str := fmt.Sprintf("block weight of %d exceeds the maximum of "+
			"%d", weight, wire.MaxBlockWeight)
		return ruleError(ErrBlockTooBig, str)
	}

	// A block carries exactly one coinbase output and one coinbase
	// kernel.
	var coinbaseOuts, coinbaseKernels int
	for _, out := range block.TxOut {
		if out.IsCoinbase() {
			coinbaseOuts++
		}
	}
	for _, kernel := range block.Kernels {
		if kernel.Features == wire.KernelCoinbase {
			coinbaseKernels++
		}
		if err := checkKernelSanity(kernel); err != nil {
			return err
		}
	}
	if coinbaseOuts != 1 || coinbaseKernels != 1 {
		str := fmt.Sprintf("block carries %d coinbase outputs and %d "+
			"coinbase kernels, expected exactly one of each",
			coinbaseOuts, coinbaseKernels)
		return ruleError(ErrBadCoinbase, str)
	}

	return checkDuplicateElements(block.TxIn, block.TxOut, block.Kernels)
}

// checkTransactionSanity performs validation checks on a transaction that
// are context free.
func checkTransactionSanity(tx *wire.MsgTx) error {
	if len(tx.Kernels) == 0 {
		return ruleError(ErrNoKernels, "transaction carries no kernels")
	}
	weight := tx.Weight()
	if weight > wire.MaxBlockWeight {
		str := fmt.Sprintf("transaction weight of %d exceeds the "+
			"maximum of %d", weight, wire.MaxBlockWeight)
		return ruleError(ErrBlockTooBig, str)
	}

	// Transactions never carry coinbase outputs or kernels.
	for _, out := range tx.TxOut {
		if out.IsCoinbase() {
			str := fmt.Sprintf("transaction carries coinbase output %v",
				&out.Commitment)
			return ruleError(ErrBadCoinbase, str)
		}
	}
	for _, kernel := range tx.Kernels {
		if kernel.Features == wire.KernelCoinbase {
			str := fmt.Sprintf("transaction carries coinbase kernel %v",
				&kernel.Excess)
			return ruleError(ErrBadCoinbase, str)
		}
		if err := checkKernelSanity(kernel); err != nil {
			return err
		}
	}

	return checkDuplicateElements(tx.TxIn, tx.TxOut, tx.Kernels)
}

// verifyRangeProofs verifies the range proof of every provided output.
func verifyRangeProofs(outs []*wire.TxOut) error {
	for _, out := range outs {
		if err := out.RangeProof.Verify(out.Commitment); err != nil {
			str := fmt.Sprintf("range proof for output %v does not "+
				"verify: %v", &out.Commitment, err)
			return ruleError(ErrBadRangeProof, str)
		}
	}
	return nil
}

// verifyKernelSignatures verifies the excess signature of every provided
// kernel.
func verifyKernelSignatures(kernels []*wire.TxKernel) error {
	for _, kernel := range kernels {
		sigHash := kernel.SignatureHash()
		err := kernel.ExcessSig.Verify(sigHash[:], kernel.Excess)
		if err != nil {
			str := fmt.Sprintf("excess signature for kernel %v does "+
				"not verify: %v", &kernel.Excess, err)
			return ruleError(ErrBadKernelSignature, str)
		}
	}
	return nil
}

// verifyKernelSums verifies the fundamental zero-sum balance: the sum of
// output commitments minus the sum of input commitments, with the overage
// folded in as an unblinded value, must equal the sum of the kernel excess
// commitments plus the kernel offset times the base generator.  A positive
// overage accounts for declared fees; a negative overage accounts for
// created coins.
func verifyKernelSums(ins []*wire.TxIn, outs []*wire.TxOut, kernels []*wire.TxKernel, overage int64, offset *secp256k1.ModNScalar) error {
	outCommits := make([]pedersen.Commitment, 0, len(outs))
	for _, out := range outs {
		outCommits = append(outCommits, out.Commitment)
	}
	inCommits := make([]pedersen.Commitment, 0, len(ins))
	for _, in := range ins {
		inCommits = append(inCommits, in.Commitment)
	}
	excesses := make([]pedersen.Commitment, 0, len(kernels))
	for _, kernel := range kernels {
		excesses = append(excesses, kernel.Excess)
	}

	utxoSum, err := pedersen.CommitSum(outCommits, inCommits, overage)
	if err != nil {
		return ruleError(ErrBadKernelSums, err.Error())
	}
	kernelSum, err := pedersen.CommitSumWithOffset(excesses, offset)
	if err != nil {
		return ruleError(ErrBadKernelSums, err.Error())
	}
	if utxoSum != kernelSum {
		str := fmt.Sprintf("output and input commitments sum to %v but "+
			"kernel excesses and offset sum to %v", utxoSum, kernelSum)
		return ruleError(ErrBadKernelSums, str)
	}
	return nil
}

// medianAdjustedTime returns the median timestamp of the several blocks
// prior to and including the provided node.
func medianAdjustedTime(node *blockNode) time.Time {
	timestamps := make([]int64, 0, medianTimeBlocks)
	for iterNode := node; iterNode != nil &&
		len(timestamps) < medianTimeBlocks; iterNode = iterNode.parent {

		timestamps = append(timestamps, iterNode.timestamp)
	}

	// Insertion sort is plenty for eleven entries.
	for i := 1; i < len(timestamps); i++ {
		for j := i; j > 0 && timestamps[j-1] > timestamps[j]; j-- {
			timestamps[j-1], timestamps[j] = timestamps[j],
				timestamps[j-1]
		}
	}
	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// checkBlockHeaderContext performs validation checks on the block header
// which depend on its position within the block chain.
func (b *BlockChain) checkBlockHeaderContext(header *wire.BlockHeader, prevNode *blockNode) error {
	// The height must be one more than the referenced previous block.
	if header.Height != prevNode.height+1 {
		str := fmt.Sprintf("block height %d is not one more than its "+
			"parent height %d", header.Height, prevNode.height)
		return ruleError(ErrBadBlockHeight, str)
	}

	// The timestamp must be after the median time of the last several
	// blocks and not too far in the future.
	medianTime := medianAdjustedTime(prevNode)
	if !header.Timestamp.After(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after the "+
			"median time of the previous blocks of %v",
			header.Timestamp, medianTime)
		return ruleError(ErrTimeTooOld, str)
	}
	maxTimestamp := time.Now().Add(maxTimeOffset)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	// The difficulty bits must match the calculated retarget and the
	// claimed cumulative difficulty must extend the parent's by exactly
	// the block's own difficulty.
	nextDiff := b.calcNextRequiredDifficulty(prevNode)
	wantBits := b.bitsForDifficulty(nextDiff)
	if header.Bits != wantBits {
		str := fmt.Sprintf("block difficulty of %08x is not the "+
			"expected value of %08x", header.Bits, wantBits)
		return ruleError(ErrUnexpectedDifficulty, str)
	}
	wantTotal := prevNode.totalDifficulty + b.difficultyFromBits(header.Bits)
	if header.TotalDifficulty != wantTotal {
		str := fmt.Sprintf("block cumulative difficulty of %d is not "+
			"the expected value of %d", header.TotalDifficulty,
			wantTotal)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The total kernel offset must be a canonical scalar.
	if _, err := scalarFromOffset(&header.TotalKernelOffset); err != nil {
		return err
	}

	return checkProofOfWork(header, b.chainParams.PowLimit)
}

// checkBlockContext performs validation checks on the block which depend
// on its position within the block chain but do not require the chain
// state accumulators.
func (b *BlockChain) checkBlockContext(block *wire.MsgBlock, prevNode *blockNode) error {
	header := &block.Header
	if err := b.checkBlockHeaderContext(header, prevNode); err != nil {
		return err
	}

	// The accumulator sizes a header commits to are implied by the parent
	// state and the block body.
	wantOutputLeaves := prevNode.outputMMRSize + uint64(len(block.TxOut))
	wantKernelLeaves := prevNode.kernelMMRSize + uint64(len(block.Kernels))
	if header.OutputMMRSize != wantOutputLeaves ||
		header.KernelMMRSize != wantKernelLeaves {

		str := fmt.Sprintf("block commits to accumulator sizes (%d, %d) "+
			"but the parent state and body imply (%d, %d)",
			header.OutputMMRSize, header.KernelMMRSize,
			wantOutputLeaves, wantKernelLeaves)
		return ruleError(ErrBadAccumulatorSize, str)
	}

	// Height locked kernels must not appear before their lock height.
	for _, kernel := range block.Kernels {
		if kernel.Features == wire.KernelHeightLocked &&
			kernel.LockHeight > header.Height {

			str := fmt.Sprintf("kernel %v is locked until height %d",
				&kernel.Excess, kernel.LockHeight)
			return ruleError(ErrImmatureTransaction, str)
		}
	}

	return nil
}

// blockKernelOffset returns the kernel offset contributed by the block
// alone: the total offset the header commits to minus the parent's total
// offset.
func blockKernelOffset(header *wire.BlockHeader, prevNode *blockNode) (*secp256k1.ModNScalar, error) {
	total, err := scalarFromOffset(&header.TotalKernelOffset)
	if err != nil {
		return nil, err
	}
	prevTotal, err := scalarFromOffset(&prevNode.totalKernelOffset)
	if err != nil {
		return nil, err
	}
	var negPrev secp256k1.ModNScalar
	negPrev.NegateVal(prevTotal)
	return total.Add(&negPrev), nil
}

// checkConnectBlock performs several checks to confirm connecting the
// passed block to the chain represented by the passed view does not
// violate any rules: every input spends an existing mature output, the
// cryptographic commitments balance, and the header's accumulator
// commitments match the resulting state.  The block is applied to the
// provided extension as a side effect; the caller discards the extension
// when an error is returned.  The returned entries describe the outputs
// the block spent, in input order, and serve as the undo data needed to
// disconnect the block later.
func (b *BlockChain) checkConnectBlock(node *blockNode, block *wire.MsgBlock, ext *txhashset.Extension) ([]txhashset.OutputEntry, error) {
	prevNode := node.parent
	if prevNode == nil {
		panicf("checkConnectBlock called with genesis block %v",
			node.hash)
	}

	// Apply the block to the extension.  Inputs that do not resolve to
	// unspent outputs and outputs that collide with existing unspent
	// commitments surface here.
	spentEntries, err := ext.ConnectBlock(block)
	if err != nil {
		switch {
		case errors.Is(err, txhashset.ErrOutputNotFound):
			return nil, ruleError(ErrMissingInput, err.Error())
		case errors.Is(err, txhashset.ErrDuplicateOutput):
			return nil, ruleError(ErrDuplicateCommitment, err.Error())
		}
		return nil, err
	}

	// Coinbase outputs must age before they can be spent.
	coinbaseMaturity := b.chainParams.CoinbaseMaturity
	for i, entry := range spentEntries {
		if !entry.IsCoinbase() {
			continue
		}
		if node.height < entry.Height+coinbaseMaturity {
			str := fmt.Sprintf("input %v spends coinbase output at "+
				"height %d before maturity at height %d",
				&block.TxIn[i].Commitment, entry.Height,
				entry.Height+coinbaseMaturity)
			return nil, ruleError(ErrImmatureCoinbase, str)
		}
	}

	// Verify the expensive cryptographic commitments: every output's
	// range proof, every kernel's excess signature, and the zero-sum
	// balance against the coins the block is allowed to create.
	if err := verifyRangeProofs(block.TxOut); err != nil {
		return nil, err
	}
	if err := verifyKernelSignatures(block.Kernels); err != nil {
		return nil, err
	}
	offset, err := blockKernelOffset(&block.Header, prevNode)
	if err != nil {
		return nil, err
	}
	subsidy := chaincfg.BlockReward(node.height)
	err = verifyKernelSums(block.TxIn, block.TxOut, block.Kernels,
		-int64(subsidy), offset)
	if err != nil {
		return nil, err
	}

	// The header must commit to the accumulator state the block produces.
	roots, err := ext.Roots()
	if err != nil {
		return nil, err
	}
	header := &block.Header
	if roots.Output != header.OutputRoot ||
		roots.RangeProof != header.RangeProofRoot ||
		roots.Kernel != header.KernelRoot {

		str := fmt.Sprintf("block commits to accumulator roots %v, %v, "+
			"%v but connecting it produces %v, %v, %v",
			header.OutputRoot, header.RangeProofRoot, header.KernelRoot,
			roots.Output, roots.RangeProof, roots.Kernel)
		return nil, ruleError(ErrBadAccumulatorRoot, str)
	}
	outputLeaves, kernelLeaves := ext.Sizes()
	if outputLeaves != header.OutputMMRSize ||
		kernelLeaves != header.KernelMMRSize {

		str := fmt.Sprintf("block commits to accumulator sizes (%d, %d) "+
			"but connecting it produces (%d, %d)", header.OutputMMRSize,
			header.KernelMMRSize, outputLeaves, kernelLeaves)
		return nil, ruleError(ErrBadAccumulatorSize, str)
	}

	return spentEntries, nil
}

// CheckTransaction performs validation checks on a transaction against the
// current best chain state: structural sanity, cryptographic balance, and
// spendability of every input.  It does not mutate any state.
//
// This function is safe for concurrent access.
func (b *BlockChain) CheckTransaction(tx *wire.MsgTx) error {
	if err := checkTransactionSanity(tx); err != nil {
		return err
	}
	if err := verifyRangeProofs(tx.TxOut); err != nil {
		return err
	}
	if err := verifyKernelSignatures(tx.Kernels); err != nil {
		return err
	}
	offset, err := scalarFromOffset(&tx.KernelOffset)
	if err != nil {
		return err
	}
	fee := tx.TotalFee()
	err = verifyKernelSums(tx.TxIn, tx.TxOut, tx.Kernels, int64(fee),
		offset)
	if err != nil {
		return err
	}

	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	// Every input must reference an unspent output, coinbase spends must
	// be mature at the next block height, and height locked kernels must
	// be ripe.
	nextHeight := b.bestChain.height + 1
	for _, in := range tx.TxIn {
		entry, err := b.hashSet.LookupOutput(&in.Commitment)
		if err != nil {
			if errors.Is(err, txhashset.ErrOutputNotFound) {
				str := fmt.Sprintf("input %v does not reference an "+
					"unspent output", &in.Commitment)
				return ruleError(ErrMissingInput, str)
			}
			return err
		}
		if entry.IsCoinbase() &&
			nextHeight < entry.Height+b.chainParams.CoinbaseMaturity {

			str := fmt.Sprintf("input %v spends an immature coinbase "+
				"output", &in.Commitment)
			return ruleError(ErrImmatureCoinbase, str)
		}
	}
	for _, out := range tx.TxOut {
		if b.hashSet.IsUnspent(&out.Commitment) {
			str := fmt.Sprintf("output commitment %v already exists "+
				"unspent", &out.Commitment)
			return ruleError(ErrDuplicateCommitment, str)
		}
	}
	for _, kernel := range tx.Kernels {
		if kernel.Features == wire.KernelHeightLocked &&
			kernel.LockHeight > nextHeight {

			str := fmt.Sprintf("kernel %v is locked until height %d",
				&kernel.Excess, kernel.LockHeight)
			return ruleError(ErrImmatureTransaction, str)
		}
	}

	return nil
}
