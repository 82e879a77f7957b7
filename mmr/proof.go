// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"fmt"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
)

// Proof is a Merkle inclusion proof for a single leaf of a mountain range.
//
// Path holds, in order, the sibling hashes climbing from the leaf to the
// root of its mountain, then the bagged hash of the peaks to the right of
// that mountain when any exist, and finally the peaks to its left from
// nearest to furthest.  Together with the range size this is exactly the
// data needed to recompute the range root from the leaf.
type Proof struct {
	Size uint64
	Path []chainhash.Hash
}

// MerkleProof builds an inclusion proof for the leaf at the provided
// position.  The leaf itself may be pruned as long as compaction has not
// discarded the hashes the path requires.
func (p *PMMR) MerkleProof(leafPos uint64) (*Proof, error) {
	if leafPos >= p.size {
		str := fmt.Sprintf("position %d is beyond range size %d", leafPos,
			p.size)
		return nil, makeError(ErrBeyondSize, str)
	}
	if !IsLeaf(leafPos) {
		str := fmt.Sprintf("position %d is not a leaf", leafPos)
		return nil, makeError(ErrNonLeaf, str)
	}

	proof := &Proof{Size: p.size}

	// Climb from the leaf to the root of its mountain, collecting the
	// sibling at each level.
	pos := leafPos
	for {
		parent, sibling := Family(pos)
		if parent >= p.size {
			break
		}
		hash, err := p.backend.Hash(sibling)
		if err != nil {
			return nil, err
		}
		proof.Path = append(proof.Path, hash)
		pos = parent
	}

	// pos is now the peak of the leaf's mountain.  Bag every peak to its
	// right into a single hash, then list the peaks to its left from
	// nearest to furthest.
	peaks := Peaks(p.size)
	peakIdx := -1
	for i, peak := range peaks {
		if peak == pos {
			peakIdx = i
			break
		}
	}
	if peakIdx < 0 {
		str := fmt.Sprintf("no peak found for position %d in range of "+
			"size %d", leafPos, p.size)
		return nil, makeError(ErrProofInvalid, str)
	}
	if peakIdx < len(peaks)-1 {
		rhs, err := p.peakRange(peaks[peakIdx+1:])
		if err != nil {
			return nil, err
		}
		proof.Path = append(proof.Path, bagPeaks(p.size, rhs))
	}
	for i := peakIdx - 1; i >= 0; i-- {
		hash, err := p.backend.Hash(peaks[i])
		if err != nil {
			return nil, err
		}
		proof.Path = append(proof.Path, hash)
	}
	return proof, nil
}

// peakRange returns the hashes of the provided peak positions.
func (p *PMMR) peakRange(peaks []uint64) ([]chainhash.Hash, error) {
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

// Verify checks the proof against the provided range root for a leaf with
// the provided serialized data at the provided position.
func (pf *Proof) Verify(root *chainhash.Hash, data []byte, leafPos uint64) error {
	if leafPos >= pf.Size || !IsLeaf(leafPos) {
		str := fmt.Sprintf("position %d is not a leaf of a range of "+
			"size %d", leafPos, pf.Size)
		return makeError(ErrProofInvalid, str)
	}

	current := hashWithIndex(leafPos, data)
	remaining := pf.Path

	// Climb the leaf's mountain, pairing with the proved sibling on the
	// correct side at each level.
	pos := leafPos
	for {
		parent, _ := Family(pos)
		if parent >= pf.Size {
			break
		}
		if len(remaining) == 0 {
			return makeError(ErrProofInvalid, "proof path is shorter "+
				"than the leaf's mountain height")
		}
		sibling := remaining[0]
		remaining = remaining[1:]
		if IsLeftSibling(pos) {
			current = hashWithIndex(parent, current[:], sibling[:])
		} else {
			current = hashWithIndex(parent, sibling[:], current[:])
		}
		pos = parent
	}

	// Fold in the bagged right-hand peaks, then each left peak in turn,
	// mirroring how the root bags peaks right to left.
	peaks := Peaks(pf.Size)
	peakIdx := -1
	for i, peak := range peaks {
		if peak == pos {
			peakIdx = i
			break
		}
	}
	if peakIdx < 0 {
		return makeError(ErrProofInvalid, "proof size does not place the "+
			"leaf under a peak")
	}
	if peakIdx < len(peaks)-1 {
		if len(remaining) == 0 {
			return makeError(ErrProofInvalid, "proof path is missing "+
				"the right-hand peaks")
		}
		rhs := remaining[0]
		remaining = remaining[1:]
		current = hashWithIndex(pf.Size, current[:], rhs[:])
	}
	for _, lhs := range remaining {
		current = hashWithIndex(pf.Size, lhs[:], current[:])
	}

	if current != *root {
		return makeError(ErrProofInvalid, "proof does not reproduce the "+
			"range root")
	}
	return nil
}
