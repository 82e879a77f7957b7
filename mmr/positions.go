// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"math/bits"
)

// Positions are zero based and assigned in insertion order to leaves and
// internal nodes alike, so the node at a given position never changes.  All
// of the functions in this file are pure position arithmetic derived from
// the binary representation of the size.

// PeakMapHeight returns the bitmap of the peaks before the provided position
// together with the height of the node at that position.
func PeakMapHeight(pos uint64) (uint64, uint64) {
	if pos == 0 {
		return 0, 0
	}
	peakSize := ^uint64(0) >> bits.LeadingZeros64(pos)
	var peakMap uint64
	for peakSize != 0 {
		peakMap <<= 1
		if pos >= peakSize {
			pos -= peakSize
			peakMap |= 1
		}
		peakSize >>= 1
	}
	return peakMap, pos
}

// Height returns the height of the node at the provided position, with
// leaves at height zero.
func Height(pos uint64) uint64 {
	_, height := PeakMapHeight(pos)
	return height
}

// IsLeaf returns whether the node at the provided position is a leaf.
func IsLeaf(pos uint64) bool {
	return Height(pos) == 0
}

// Peaks returns the positions of the peaks of a mountain range with the
// provided number of nodes, ordered from the highest (leftmost) mountain
// down.  It returns nil when the size does not describe a valid range.
func Peaks(size uint64) []uint64 {
	if size == 0 {
		return nil
	}
	peakSize := ^uint64(0) >> bits.LeadingZeros64(size)
	numLeft := size
	var sumPrevPeaks uint64
	var peaks []uint64
	for peakSize != 0 {
		if numLeft >= peakSize {
			peaks = append(peaks, sumPrevPeaks+peakSize-1)
			sumPrevPeaks += peakSize
			numLeft -= peakSize
		}
		peakSize >>= 1
	}
	if numLeft > 0 {
		return nil
	}
	return peaks
}

// IsValidSize returns whether the provided node count describes a valid
// mountain range that does not end mid-subtree.
func IsValidSize(size uint64) bool {
	return size == 0 || Peaks(size) != nil
}

// LeafCount returns the number of leaves in a mountain range with the
// provided number of nodes.
func LeafCount(size uint64) uint64 {
	var n uint64
	for _, peak := range Peaks(size) {
		n += uint64(1) << Height(peak)
	}
	return n
}

// SizeForLeafCount returns the number of nodes in a mountain range holding
// the provided number of leaves.
func SizeForLeafCount(leaves uint64) uint64 {
	return 2*leaves - uint64(bits.OnesCount64(leaves))
}

// LeafIndexToPos returns the position of the leaf with the provided
// insertion index.
func LeafIndexToPos(leafIdx uint64) uint64 {
	if leafIdx == 0 {
		return 0
	}
	return SizeForLeafCount(leafIdx)
}

// PosToLeafIndex returns the insertion index of the leaf at the provided
// position.  The position must be a leaf.  The peak map before a leaf is
// exactly the count of leaves before it, since bit k of the map represents a
// complete subtree holding 2^k leaves.
func PosToLeafIndex(pos uint64) uint64 {
	peakMap, _ := PeakMapHeight(pos)
	return peakMap
}

// Family returns the position of the parent and sibling of the node at the
// provided position.
func Family(pos uint64) (uint64, uint64) {
	peakMap, height := PeakMapHeight(pos)
	peak := uint64(1) << height
	if peakMap&peak != 0 {
		// Right sibling: the parent is the next position.
		return pos + 1, pos + 1 - 2*peak
	}
	// Left sibling: the parent follows the right subtree.
	return pos + 2*peak, pos + 2*peak - 1
}

// IsLeftSibling returns whether the node at the provided position is the
// left child of its parent.
func IsLeftSibling(pos uint64) bool {
	peakMap, height := PeakMapHeight(pos)
	peak := uint64(1) << height
	return peakMap&peak == 0
}
