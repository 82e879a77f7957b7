// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txhashset

import (
	"fmt"

	"github.com/mimblenet/mnd/database"
	"github.com/mimblenet/mnd/mmr"
	"github.com/mimblenet/mnd/pedersen"
	"github.com/mimblenet/mnd/wire"
)

// Extension is a staged overlay over the committed transaction hash set.
// Blocks are connected and disconnected against it without touching the
// committed state, its roots and sizes are compared against the header
// under consideration, and the whole overlay is then either committed in a
// single database batch or discarded.
//
// An extension is not safe for concurrent use and only one may be open per
// hash set at a time.
type Extension struct {
	ths     *TxHashSet
	outputs *mmr.PMMR
	proofs  *mmr.PMMR
	kernels *mmr.PMMR
	spent   *mmr.PruneSet
	added   map[pedersen.Commitment]OutputEntry
	removed map[pedersen.Commitment]OutputEntry
	done    bool
}

// Extend opens a new extension over the committed state.
func (s *TxHashSet) Extend() (*Extension, error) {
	spent := s.spent.Clone()
	outputs, err := mmr.NewPMMR(s.outputBackend, s.outputBackend.Size(),
		spent)
	if err != nil {
		return nil, err
	}
	proofs, err := mmr.NewPMMR(s.proofBackend, s.proofBackend.Size(),
		spent)
	if err != nil {
		return nil, err
	}
	kernels, err := mmr.NewPMMR(s.kernelBackend, s.kernelBackend.Size(),
		nil)
	if err != nil {
		return nil, err
	}
	return &Extension{
		ths:     s,
		outputs: outputs,
		proofs:  proofs,
		kernels: kernels,
		spent:   spent,
		added:   make(map[pedersen.Commitment]OutputEntry),
		removed: make(map[pedersen.Commitment]OutputEntry),
	}, nil
}

// LookupOutput returns the entry for the provided commitment when it exists
// unspent as observed through the extension, staged changes included.
func (e *Extension) LookupOutput(commit *pedersen.Commitment) (OutputEntry, error) {
	if entry, ok := e.added[*commit]; ok {
		return entry, nil
	}
	if _, ok := e.removed[*commit]; ok {
		str := fmt.Sprintf("output %v does not exist unspent", commit)
		return OutputEntry{}, makeError(ErrOutputNotFound, str)
	}
	return e.ths.LookupOutput(commit)
}

// SpendOutput marks the output with the provided commitment spent and
// returns its entry so the caller can enforce maturity rules against it.
func (e *Extension) SpendOutput(commit *pedersen.Commitment) (OutputEntry, error) {
	entry, err := e.LookupOutput(commit)
	if err != nil {
		return OutputEntry{}, err
	}

	// Mark both the output leaf and its range proof leaf spent.  The two
	// ranges share leaf indexes and the prune set instance.
	if err := e.outputs.Prune(entry.Pos); err != nil {
		return OutputEntry{}, err
	}

	if _, ok := e.added[*commit]; ok {
		delete(e.added, *commit)
	} else {
		e.removed[*commit] = entry
	}
	return entry, nil
}

// AddOutput appends the provided output and its range proof, indexes its
// commitment at the new leaf position, and returns that position.  Adding
// a commitment that already exists unspent fails with ErrDuplicateOutput.
func (e *Extension) AddOutput(out *wire.TxOut, height uint64) (uint64, error) {
	if _, err := e.LookupOutput(&out.Commitment); err == nil {
		str := fmt.Sprintf("output %v already exists unspent",
			&out.Commitment)
		return 0, makeError(ErrDuplicateOutput, str)
	}

	pos, err := e.outputs.Push(outputLeafData(out.Features, &out.Commitment))
	if err != nil {
		return 0, err
	}
	proofPos, err := e.proofs.Push(out.RangeProof[:])
	if err != nil {
		return 0, err
	}
	if proofPos != pos {
		panicf("output leaf landed at position %d but its range proof "+
			"landed at %d", pos, proofPos)
	}

	delete(e.removed, out.Commitment)
	e.added[out.Commitment] = OutputEntry{
		Pos:      pos,
		Features: out.Features,
		Height:   height,
	}
	return pos, nil
}

// AddKernel appends the provided kernel to the kernel range.
func (e *Extension) AddKernel(kernel *wire.TxKernel) (uint64, error) {
	kernelHash := kernel.Hash()
	return e.kernels.PushHash(&kernelHash)
}

// ConnectBlock applies the provided block to the extension: every input
// spends an existing output, every output and range proof is appended, and
// every kernel is appended.  It returns the entries of the spent outputs
// in input order, which double as the block's undo data and as the basis
// for maturity checks.
func (e *Extension) ConnectBlock(block *wire.MsgBlock) ([]OutputEntry, error) {
	spentEntries := make([]OutputEntry, 0, len(block.TxIn))
	for _, in := range block.TxIn {
		entry, err := e.SpendOutput(&in.Commitment)
		if err != nil {
			return nil, err
		}
		spentEntries = append(spentEntries, entry)
	}
	for _, out := range block.TxOut {
		if _, err := e.AddOutput(out, block.Header.Height); err != nil {
			return nil, err
		}
	}
	for _, kernel := range block.Kernels {
		if _, err := e.AddKernel(kernel); err != nil {
			return nil, err
		}
	}
	return spentEntries, nil
}

// DisconnectBlock removes the provided block from the extension.  The
// output and kernel ranges are rewound to the leaf counts of the block's
// parent, the block's own outputs are dropped from the commitment index,
// and the outputs its inputs spent are restored using the undo entries
// recorded when the block was connected.
func (e *Extension) DisconnectBlock(block *wire.MsgBlock, prevOutputLeaves, prevKernelLeaves uint64, spentEntries []OutputEntry) error {
	if len(spentEntries) != len(block.TxIn) {
		str := fmt.Sprintf("block %v has %d inputs but %d undo entries",
			block.BlockHash(), len(block.TxIn), len(spentEntries))
		return makeError(ErrCorruptState, str)
	}

	// Drop the block's outputs from the index before the rewind discards
	// their leaves.
	for _, out := range block.TxOut {
		if _, ok := e.added[out.Commitment]; ok {
			delete(e.added, out.Commitment)
			continue
		}
		e.removed[out.Commitment] = OutputEntry{}
	}

	if err := e.outputs.Rewind(mmr.SizeForLeafCount(prevOutputLeaves)); err != nil {
		return err
	}
	if err := e.proofs.Rewind(mmr.SizeForLeafCount(prevOutputLeaves)); err != nil {
		return err
	}
	if err := e.kernels.Rewind(mmr.SizeForLeafCount(prevKernelLeaves)); err != nil {
		return err
	}

	// Restore the spent outputs: clear their spent marks and reindex
	// their commitments at the original positions.
	for i, in := range block.TxIn {
		entry := spentEntries[i]
		e.spent.Remove(mmr.PosToLeafIndex(entry.Pos))
		delete(e.removed, in.Commitment)
		e.added[in.Commitment] = entry
	}
	return nil
}

// Sizes returns the leaf counts of the output (and range proof) range and
// the kernel range as observed through the extension.
func (e *Extension) Sizes() (uint64, uint64) {
	return e.outputs.LeafCount(), e.kernels.LeafCount()
}

// Roots returns the accumulator roots as observed through the extension.
// These are the roots a header building on the extension must commit to.
func (e *Extension) Roots() (*Roots, error) {
	var roots Roots
	var err error
	if roots.Output, err = e.outputs.Root(); err != nil {
		return nil, err
	}
	if roots.RangeProof, err = e.proofs.Root(); err != nil {
		return nil, err
	}
	if roots.Kernel, err = e.kernels.Root(); err != nil {
		return nil, err
	}
	return &roots, nil
}

// MerkleProof returns an inclusion proof for the provided unspent
// commitment against the extension's output root.
func (e *Extension) MerkleProof(commit *pedersen.Commitment) (*mmr.Proof, error) {
	entry, err := e.LookupOutput(commit)
	if err != nil {
		return nil, err
	}
	return e.outputs.MerkleProof(entry.Pos)
}

// Commit stages the extension's changes into the provided batch: the
// appended and rewound MMR nodes, the spent bitmap, and the commitment
// index updates.  The committed in-memory state is updated as well, so the
// caller must commit the batch; a batch commit failure after this point
// leaves the database behind the in-memory state and is unrecoverable.
func (e *Extension) Commit(batch database.Batch) error {
	if e.done {
		return makeError(ErrCorruptState, "extension already finalized")
	}

	if err := e.ths.outputBackend.Flush(batch); err != nil {
		return err
	}
	if err := e.ths.proofBackend.Flush(batch); err != nil {
		return err
	}
	if err := e.ths.kernelBackend.Flush(batch); err != nil {
		return err
	}
	batch.Put(spentBitmapKey, e.spent.Bytes())
	for commit := range e.removed {
		commit := commit
		batch.Delete(outputIndexKey(&commit))
	}
	for commit, entry := range e.added {
		commit, entry := commit, entry
		batch.Put(outputIndexKey(&commit),
			serializeOutputEntry(&entry))
	}

	e.ths.spent = e.spent
	e.done = true

	outputLeaves, kernelLeaves := e.ths.Sizes()
	log.Debugf("Committed hash set extension (outputs %d, kernels %d, "+
		"spent %d)", outputLeaves, kernelLeaves, e.spent.Count())
	return nil
}

// Discard drops every staged change, returning the backends to the
// committed state.
func (e *Extension) Discard() {
	if e.done {
		return
	}
	e.ths.outputBackend.Reset()
	e.ths.proofBackend.Reset()
	e.ths.kernelBackend.Reset()
	e.done = true
}
