// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain implements block handling and chain selection rules.

The chain accepts blocks via ProcessBlock, which performs a series of
checks before a block can be connected:

  - Sanity checks that depend only on the block itself: structural limits,
    exactly one coinbase output and kernel, no duplicate inputs, outputs,
    or kernels.
  - Contextual checks against the block's position in the chain: height,
    timestamps against the median of the recent past, the required
    difficulty for the next block, and proof of work.
  - Connection checks that require the commitment accumulator state:
    every input must spend an existing unspent output past any maturity
    requirement, range proofs and kernel signatures must verify, the
    block must balance to exactly the coins it is allowed to create, and
    the header must commit to the accumulator roots and sizes the block
    produces.

Blocks whose parent is not yet known are held in a bounded orphan pool
and retried once the parent arrives.  Side chain blocks are stored but do
not affect the accumulator state until their chain accumulates strictly
more cumulative difficulty than the current best chain, at which point
the chain reorganizes.  A reorganization stages all accumulator mutation
in a single extension so that any validation failure on the new branch
leaves the original chain state untouched.
*/
package blockchain
