// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/crypto/blake256"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
)

// zeroHash is the root of an empty mountain range.
var zeroHash chainhash.Hash

// hashWithIndex hashes the provided data prefixed with the node position it
// is stored at.  Folding the position in gives every node a distinct
// preimage, including identical leaves appended at different positions.
func hashWithIndex(pos uint64, data ...[]byte) chainhash.Hash {
	var posBytes [8]byte
	binary.LittleEndian.PutUint64(posBytes[:], pos)
	h := blake256.New()
	h.Write(posBytes[:])
	for _, d := range data {
		h.Write(d)
	}
	var hash chainhash.Hash
	copy(hash[:], h.Sum(nil))
	return hash
}

// PMMR is a pruneable Merkle Mountain Range over a hash storage backend.
// It is not safe for concurrent use; callers serialize mutation through the
// chain state's single-writer discipline.
type PMMR struct {
	backend Backend
	size    uint64
	pruned  *PruneSet
}

// NewPMMR returns a mountain range over the provided backend with the
// provided size in nodes and prune set.  A nil prune set is treated as
// empty and disables pruning.
func NewPMMR(backend Backend, size uint64, pruned *PruneSet) (*PMMR, error) {
	if !IsValidSize(size) {
		str := fmt.Sprintf("%d is not a valid mountain range size", size)
		return nil, makeError(ErrInvalidSize, str)
	}
	if pruned == nil {
		pruned = NewPruneSet()
	}
	return &PMMR{backend: backend, size: size, pruned: pruned}, nil
}

// Size returns the number of nodes in the range, internal nodes included.
func (p *PMMR) Size() uint64 {
	return p.size
}

// LeafCount returns the number of leaves ever appended to the range,
// pruned leaves included.
func (p *PMMR) LeafCount() uint64 {
	return LeafCount(p.size)
}

// PruneSet returns the set of pruned leaf positions backing the range.
func (p *PMMR) PruneSet() *PruneSet {
	return p.pruned
}

// Push appends the provided serialized leaf data, along with any parent
// nodes its insertion completes, and returns the position assigned to the
// leaf.  Positions are strictly increasing and never reused.
func (p *PMMR) Push(data []byte) (uint64, error) {
	leafPos := p.size
	current := hashWithIndex(leafPos, data)
	hashes := []chainhash.Hash{current}

	// Each bit set in the peak map means the insertion completes another
	// subtree, whose root hashes the existing left sibling with the node
	// just produced.
	peakMap, _ := PeakMapHeight(leafPos)
	pos := leafPos
	peak := uint64(1)
	for peakMap&peak != 0 {
		leftSibling := pos + 1 - 2*peak
		leftHash, err := p.backend.Hash(leftSibling)
		if err != nil {
			return 0, err
		}
		peak *= 2
		pos++
		current = hashWithIndex(pos, leftHash[:], current[:])
		hashes = append(hashes, current)
	}

	if err := p.backend.Append(leafPos, hashes); err != nil {
		return 0, err
	}
	p.size = pos + 1
	return leafPos, nil
}

// PushHash appends a leaf whose data is an existing hash, such as an
// output or kernel hash computed over its wire serialization.
func (p *PMMR) PushHash(leaf *chainhash.Hash) (uint64, error) {
	return p.Push(leaf[:])
}

// Hash returns the node hash at the provided position.
func (p *PMMR) Hash(pos uint64) (chainhash.Hash, error) {
	if pos >= p.size {
		str := fmt.Sprintf("position %d is beyond range size %d", pos,
			p.size)
		return chainhash.Hash{}, makeError(ErrBeyondSize, str)
	}
	return p.backend.Hash(pos)
}

// peakHashes returns the hashes of the current peaks ordered from the
// leftmost (highest) mountain down.
func (p *PMMR) peakHashes() ([]chainhash.Hash, error) {
	peaks := Peaks(p.size)
	hashes := make([]chainhash.Hash, 0, len(peaks))
	for _, peak := range peaks {
		hash, err := p.backend.Hash(peak)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// bagPeaks folds the provided peak hashes from right to left under the
// provided range size.
func bagPeaks(size uint64, peaks []chainhash.Hash) chainhash.Hash {
	if len(peaks) == 0 {
		return zeroHash
	}
	root := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		root = hashWithIndex(size, peaks[i][:], root[:])
	}
	return root
}

// Root returns the root hash of the range: the peaks bagged together from
// right to left.  The root of an empty range is the zero hash.  The root is
// a deterministic function of the size and leaf content only.
func (p *PMMR) Root() (chainhash.Hash, error) {
	if p.size == 0 {
		return zeroHash, nil
	}
	peaks, err := p.peakHashes()
	if err != nil {
		return chainhash.Hash{}, err
	}
	return bagPeaks(p.size, peaks), nil
}

// Rewind truncates the range back to the provided node count, restoring the
// prior peak structure exactly.  Rewinding does not reclaim pruned state for
// the surviving prefix: leaves pruned before the rewind point stay pruned.
func (p *PMMR) Rewind(size uint64) error {
	if size > p.size {
		str := fmt.Sprintf("cannot rewind range of size %d forward to %d",
			p.size, size)
		return makeError(ErrInvalidSize, str)
	}
	if !IsValidSize(size) {
		str := fmt.Sprintf("%d is not a valid mountain range size", size)
		return makeError(ErrInvalidSize, str)
	}
	if err := p.backend.Rewind(size); err != nil {
		return err
	}
	p.pruned.RemoveAfter(LeafCount(size))
	p.size = size
	return nil
}

// Prune marks the leaf at the provided position prunable.  The leaf's hash
// remains available, and the range root is unaffected, until a later
// Compact pass physically discards subtrees with no live leaves left.
func (p *PMMR) Prune(pos uint64) error {
	if pos >= p.size {
		str := fmt.Sprintf("position %d is beyond range size %d", pos,
			p.size)
		return makeError(ErrBeyondSize, str)
	}
	if !IsLeaf(pos) {
		str := fmt.Sprintf("position %d is not a leaf", pos)
		return makeError(ErrNonLeaf, str)
	}
	leafIdx := PosToLeafIndex(pos)
	if p.pruned.Contains(leafIdx) {
		str := fmt.Sprintf("leaf at position %d is already pruned", pos)
		return makeError(ErrPrunedLeaf, str)
	}
	p.pruned.Add(leafIdx)
	return nil
}

// IsPruned returns whether the leaf at the provided position has been
// marked prunable.
func (p *PMMR) IsPruned(pos uint64) bool {
	return IsLeaf(pos) && p.pruned.Contains(PosToLeafIndex(pos))
}

// Compact physically discards the hashes of nodes in fully pruned subtrees,
// retaining each such subtree's root so the range root and the proofs of
// live leaves remain computable.  Compaction never changes positions or the
// root; it only frees storage for data no live leaf depends on.
//
// Leaf indexes present in retain are treated as live for the pass even
// when pruned.  Callers use it to protect recent spends that could still
// be restored, since a removed node cannot be brought back.
func (p *PMMR) Compact(retain map[uint64]struct{}) error {
	var removed uint64
	for pos := uint64(0); pos < p.size; pos++ {
		if !p.subtreeFullyPruned(pos, retain) {
			continue
		}

		// Keep the node if it is the top of its pruned region, either
		// as a peak or as the child of a parent with live leaves on
		// the other side.
		parent, _ := Family(pos)
		if parent >= p.size || !p.subtreeFullyPruned(parent, retain) {
			continue
		}
		if err := p.backend.Remove(pos); err != nil {
			return err
		}
		removed++
	}
	log.Debugf("Compacted %d of %d nodes (%d leaves retained)", removed,
		p.size, len(retain))
	return nil
}

// subtreeFullyPruned returns whether every leaf under the node at the
// provided position has been marked prunable and none of them appears in
// the retain set.
func (p *PMMR) subtreeFullyPruned(pos uint64, retain map[uint64]struct{}) bool {
	height := Height(pos)
	if height == 0 {
		leafIdx := PosToLeafIndex(pos)
		if _, ok := retain[leafIdx]; ok {
			return false
		}
		return p.pruned.Contains(leafIdx)
	}
	// The leftmost leaf of a subtree of height h sits 2^(h+1)-2 positions
	// back from its root and spans 2^h consecutive leaf indexes.
	firstLeafPos := pos - (uint64(1)<<(height+1) - 2)
	firstLeafIdx := PosToLeafIndex(firstLeafPos)
	span := uint64(1) << height
	for i := uint64(0); i < span; i++ {
		if _, ok := retain[firstLeafIdx+i]; ok {
			return false
		}
		if !p.pruned.Contains(firstLeafIdx + i) {
			return false
		}
	}
	return true
}

// LeafHashes returns the hashes of the most recent n live leaves, newest
// first.  Pruned leaves are skipped.
func (p *PMMR) LeafHashes(n uint64) ([]chainhash.Hash, error) {
	hashes := make([]chainhash.Hash, 0, n)
	leafCount := p.LeafCount()
	for idx := leafCount; idx > 0 && uint64(len(hashes)) < n; idx-- {
		leafIdx := idx - 1
		if p.pruned.Contains(leafIdx) {
			continue
		}
		hash, err := p.backend.Hash(LeafIndexToPos(leafIdx))
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}
