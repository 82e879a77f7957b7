// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mmr implements a pruneable append-only Merkle Mountain Range.

An MMR is a binary hash forest addressed by insertion order: every node,
internal or leaf, occupies a position that never changes once assigned.  The
peaks of the forest are implied by the binary representation of the node
count, and the root is the peaks bagged together from right to left.  Because
of that, the root is a pure function of the leaf content and the size rather
than of the edit history, which is what makes rewinding a simple truncation.

Spent leaves can be pruned: pruning is a logical tombstone, and a later
compaction pass physically discards subtrees in which every leaf is pruned,
keeping only the subtree root hash needed to recompute the range root.
*/
package mmr
