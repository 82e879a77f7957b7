// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"github.com/jrick/bitset"
)

// PruneSet tracks the leaf indexes of a mountain range that have been
// marked prunable.  It grows on demand and serializes to a compact bitmap
// for persistence alongside the range it describes.
type PruneSet struct {
	bits  bitset.Bytes
	count uint64
}

// NewPruneSet returns an empty prune set.
func NewPruneSet() *PruneSet {
	return &PruneSet{}
}

// NewPruneSetFromBytes returns a prune set restored from a bitmap
// previously produced by Bytes, interpreted over the provided number of
// leaves.
func NewPruneSetFromBytes(serialized []byte, leaves uint64) *PruneSet {
	bits := bitset.NewBytes(int(leaves))
	copy(bits, serialized)
	var count uint64
	for i := uint64(0); i < leaves; i++ {
		if bits.Get(int(i)) {
			count++
		}
	}
	return &PruneSet{bits: bits, count: count}
}

// Bytes returns the bitmap representation of the set.  Bit i is set when
// leaf index i has been marked prunable.
func (s *PruneSet) Bytes() []byte {
	return s.bits
}

// Count returns the number of leaf indexes in the set.
func (s *PruneSet) Count() uint64 {
	return s.count
}

// Contains returns whether the provided leaf index is in the set.
func (s *PruneSet) Contains(leafIdx uint64) bool {
	if leafIdx >= uint64(len(s.bits))*8 {
		return false
	}
	return s.bits.Get(int(leafIdx))
}

// Add marks the provided leaf index prunable.
func (s *PruneSet) Add(leafIdx uint64) {
	if leafIdx >= uint64(len(s.bits))*8 {
		grown := bitset.NewBytes(int(leafIdx + 1))
		copy(grown, s.bits)
		s.bits = grown
	}
	if !s.bits.Get(int(leafIdx)) {
		s.bits.Set(int(leafIdx))
		s.count++
	}
}

// Remove clears the provided leaf index from the set.
func (s *PruneSet) Remove(leafIdx uint64) {
	if leafIdx >= uint64(len(s.bits))*8 {
		return
	}
	if s.bits.Get(int(leafIdx)) {
		s.bits.Unset(int(leafIdx))
		s.count--
	}
}

// RemoveAfter clears every leaf index at or beyond the provided count.
// It is used when rewinding a range so leaves that no longer exist are not
// remembered as pruned.
func (s *PruneSet) RemoveAfter(leaves uint64) {
	limit := uint64(len(s.bits)) * 8
	for i := leaves; i < limit; i++ {
		if s.bits.Get(int(i)) {
			s.bits.Unset(int(i))
			s.count--
		}
	}
}

// Clone returns a deep copy of the set.
func (s *PruneSet) Clone() *PruneSet {
	bits := make(bitset.Bytes, len(s.bits))
	copy(bits, s.bits)
	return &PruneSet{bits: bits, count: s.count}
}
