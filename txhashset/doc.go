// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txhashset maintains the chain's commitment accumulators.

The transaction hash set consists of three append-only Merkle Mountain
Ranges sharing a database: one over output commitments, one over their
range proofs, and one over transaction kernels.  The output and range
proof ranges grow in lockstep so a single leaf index identifies both an
output and its proof.  Spent outputs are marked in a shared prune bitmap
rather than deleted, which keeps every historical root recomputable, and a
commitment index maps each unspent commitment to its leaf position.

All mutation happens through an Extension, a staged overlay opened against
the committed state.  Blocks are connected and disconnected against the
extension, its roots and sizes are compared to the header under
validation, and the extension is then either committed atomically in a
single database batch or discarded without a trace.  Only one extension
may be open at a time; callers serialize access through the chain state
lock.
*/
package txhashset
