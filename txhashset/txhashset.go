// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txhashset

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/database"
	"github.com/mimblenet/mnd/mmr"
	"github.com/mimblenet/mnd/pedersen"
	"github.com/mimblenet/mnd/wire"
)

var (
	// outputMMRPrefix is the key prefix for output MMR node hashes.
	outputMMRPrefix = []byte("hso")

	// rangeProofMMRPrefix is the key prefix for range proof MMR node
	// hashes.
	rangeProofMMRPrefix = []byte("hsp")

	// kernelMMRPrefix is the key prefix for kernel MMR node hashes.
	kernelMMRPrefix = []byte("hsk")

	// spentBitmapKey is the key the spent output bitmap is stored under.
	spentBitmapKey = []byte("hsb")

	// outputIndexPrefix is the key prefix for the commitment to output
	// entry index.  Only unspent commitments have index entries.
	outputIndexPrefix = []byte("hsu")
)

// outputEntrySize is the serialized size of an OutputEntry.
const outputEntrySize = 8 + 1 + 8

// OutputEntry describes an unspent output: the leaf position it occupies in
// the output and range proof MMRs, its features, and the height of the
// block that created it.  The height is what coinbase maturity is enforced
// against.
type OutputEntry struct {
	Pos      uint64
	Features wire.OutputFeatures
	Height   uint64
}

// IsCoinbase returns whether the entry describes a coinbase output.
func (e *OutputEntry) IsCoinbase() bool {
	return e.Features == wire.OutputCoinbase
}

// serializeOutputEntry serializes an output entry into a fixed-size record.
func serializeOutputEntry(entry *OutputEntry) []byte {
	serialized := make([]byte, outputEntrySize)
	binary.LittleEndian.PutUint64(serialized[0:8], entry.Pos)
	serialized[8] = byte(entry.Features)
	binary.LittleEndian.PutUint64(serialized[9:17], entry.Height)
	return serialized
}

// deserializeOutputEntry parses an output entry record.
func deserializeOutputEntry(serialized []byte) (OutputEntry, error) {
	if len(serialized) != outputEntrySize {
		str := fmt.Sprintf("output entry record has length %d, expected "+
			"%d", len(serialized), outputEntrySize)
		return OutputEntry{}, makeError(ErrCorruptState, str)
	}
	return OutputEntry{
		Pos:      binary.LittleEndian.Uint64(serialized[0:8]),
		Features: wire.OutputFeatures(serialized[8]),
		Height:   binary.LittleEndian.Uint64(serialized[9:17]),
	}, nil
}

// outputIndexKey returns the index key for the provided commitment.
func outputIndexKey(commit *pedersen.Commitment) []byte {
	key := make([]byte, 0, len(outputIndexPrefix)+pedersen.CommitmentSize)
	key = append(key, outputIndexPrefix...)
	key = append(key, commit[:]...)
	return key
}

// outputLeafData returns the MMR leaf preimage for an output.  It covers
// the features and the commitment, the two fields an input must reproduce
// to spend it.
func outputLeafData(features wire.OutputFeatures, commit *pedersen.Commitment) []byte {
	data := make([]byte, 0, 1+pedersen.CommitmentSize)
	data = append(data, byte(features))
	data = append(data, commit[:]...)
	return data
}

// Roots bundles the roots of the three accumulators.
type Roots struct {
	Output     chainhash.Hash
	RangeProof chainhash.Hash
	Kernel     chainhash.Hash
}

// TxHashSet is the committed accumulator state: the three MMR backends,
// the spent output bitmap, and the unspent commitment index, all backed by
// the same database.
//
// Read methods observe the last committed state and may be called
// concurrently.  Mutation goes through Extend, and callers must serialize
// Extend/commit/discard cycles externally.
type TxHashSet struct {
	db            database.DB
	outputBackend *mmr.DBBackend
	proofBackend  *mmr.DBBackend
	kernelBackend *mmr.DBBackend
	spent         *mmr.PruneSet
}

// New loads the committed transaction hash set state from the provided
// database, starting empty when none has been stored yet.
func New(db database.DB) (*TxHashSet, error) {
	outputBackend, err := mmr.NewDBBackend(db, outputMMRPrefix)
	if err != nil {
		return nil, err
	}
	proofBackend, err := mmr.NewDBBackend(db, rangeProofMMRPrefix)
	if err != nil {
		return nil, err
	}
	kernelBackend, err := mmr.NewDBBackend(db, kernelMMRPrefix)
	if err != nil {
		return nil, err
	}

	if outputBackend.Size() != proofBackend.Size() {
		panicf("output mmr size %d does not match range proof mmr size "+
			"%d", outputBackend.Size(), proofBackend.Size())
	}

	spent := mmr.NewPruneSet()
	serialized, err := db.Get(spentBitmapKey)
	switch {
	case err == nil:
		leaves := mmr.LeafCount(outputBackend.Size())
		spent = mmr.NewPruneSetFromBytes(serialized, leaves)
	case !errors.Is(err, database.ErrKeyNotFound):
		return nil, err
	}

	return &TxHashSet{
		db:            db,
		outputBackend: outputBackend,
		proofBackend:  proofBackend,
		kernelBackend: kernelBackend,
		spent:         spent,
	}, nil
}

// outputPMMR returns a range over the committed output backend.
func (s *TxHashSet) outputPMMR() (*mmr.PMMR, error) {
	return mmr.NewPMMR(s.outputBackend, s.outputBackend.Size(), s.spent)
}

// Sizes returns the committed leaf counts of the output (and range proof)
// MMR and the kernel MMR.  These are the sizes block headers commit to.
func (s *TxHashSet) Sizes() (uint64, uint64) {
	return mmr.LeafCount(s.outputBackend.Size()),
		mmr.LeafCount(s.kernelBackend.Size())
}

// Roots returns the committed roots of the three accumulators.
func (s *TxHashSet) Roots() (*Roots, error) {
	var roots Roots
	for _, br := range []struct {
		backend *mmr.DBBackend
		pruned  *mmr.PruneSet
		root    *chainhash.Hash
	}{
		{s.outputBackend, s.spent, &roots.Output},
		{s.proofBackend, s.spent, &roots.RangeProof},
		{s.kernelBackend, nil, &roots.Kernel},
	} {
		p, err := mmr.NewPMMR(br.backend, br.backend.Size(), br.pruned)
		if err != nil {
			return nil, err
		}
		root, err := p.Root()
		if err != nil {
			return nil, err
		}
		*br.root = root
	}
	return &roots, nil
}

// LookupOutput returns the entry for the provided commitment when it exists
// unspent in the committed output set.
func (s *TxHashSet) LookupOutput(commit *pedersen.Commitment) (OutputEntry, error) {
	serialized, err := s.db.Get(outputIndexKey(commit))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			str := fmt.Sprintf("output %v does not exist unspent", commit)
			return OutputEntry{}, makeError(ErrOutputNotFound, str)
		}
		return OutputEntry{}, err
	}
	return deserializeOutputEntry(serialized)
}

// IsUnspent returns whether the provided commitment exists unspent in the
// committed output set.
func (s *TxHashSet) IsUnspent(commit *pedersen.Commitment) bool {
	_, err := s.LookupOutput(commit)
	return err == nil
}

// MerkleProof returns an inclusion proof for the provided unspent
// commitment against the committed output root, along with its entry.
func (s *TxHashSet) MerkleProof(commit *pedersen.Commitment) (*mmr.Proof, OutputEntry, error) {
	entry, err := s.LookupOutput(commit)
	if err != nil {
		return nil, OutputEntry{}, err
	}
	p, err := s.outputPMMR()
	if err != nil {
		return nil, OutputEntry{}, err
	}
	proof, err := p.MerkleProof(entry.Pos)
	if err != nil {
		return nil, OutputEntry{}, err
	}
	return proof, entry, nil
}

// Compact physically discards the nodes of output and range proof subtrees
// in which every leaf has been spent, keeping each discarded subtree's root
// so the range roots and the proofs of unspent outputs remain computable.
// Leaf indexes present in retain survive the pass even when spent; callers
// pass the spends that are still within reach of a reorganization since a
// removed node cannot be restored.  The removals are staged into the
// provided batch, which the caller must commit before any further
// mutation.  Kernels are never discarded.
func (s *TxHashSet) Compact(batch database.Batch, retain map[uint64]struct{}) error {
	outputs, err := s.outputPMMR()
	if err != nil {
		return err
	}
	proofs, err := mmr.NewPMMR(s.proofBackend, s.proofBackend.Size(), s.spent)
	if err != nil {
		return err
	}
	if err := outputs.Compact(retain); err != nil {
		s.outputBackend.Reset()
		return err
	}
	if err := proofs.Compact(retain); err != nil {
		s.outputBackend.Reset()
		s.proofBackend.Reset()
		return err
	}
	if err := s.outputBackend.Flush(batch); err != nil {
		return err
	}
	if err := s.proofBackend.Flush(batch); err != nil {
		return err
	}
	log.Debugf("Compacted output set through %d leaves (%d spends retained)",
		mmr.LeafCount(s.outputBackend.Size()), len(retain))
	return nil
}
