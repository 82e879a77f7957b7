// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package database provides the ordered byte-keyed store the chain state
persists through.

The contract is deliberately small: point reads and writes, ordered prefix
iteration, and atomic batch commit.  The MMR backends and the unspent bitmap
are layered on top of it, and the extension commit/discard semantics of the
chain state map directly onto the atomic batch.  Two implementations are
provided: a goleveldb backed store for production use and a pure in-memory
store for tests.
*/
package database
