// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire defines the semantic block and transaction structures and their
canonical binary serialization.

The encoding uses fixed-width little-endian integers for scalar fields,
fixed-width byte arrays for hashes, commitments, signatures, and range
proofs, and variable length integers to prefix the input, output, and kernel
lists.  All consensus hashes (block hashes, transaction hashes, kernel
signature hashes, MMR leaf hashes) are defined over this serialization, so it
must never change for existing fields.
*/
package wire
