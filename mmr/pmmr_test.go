// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mmr

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/database"
)

// testLeaf returns deterministic leaf data for the provided insertion
// index.
func testLeaf(i uint64) []byte {
	var data [8]byte
	binary.LittleEndian.PutUint64(data[:], i)
	return data[:]
}

// pushLeaves appends n deterministic leaves starting at the provided
// insertion index.
func pushLeaves(t *testing.T, p *PMMR, start, n uint64) {
	t.Helper()
	for i := start; i < start+n; i++ {
		if _, err := p.Push(testLeaf(i)); err != nil {
			t.Fatalf("Push(%d): unexpected error: %v", i, err)
		}
	}
}

// TestPushRootRewind ensures the root is a pure function of the appended
// leaves by growing a range, rewinding it, and comparing roots along the
// way.
func TestPushRootRewind(t *testing.T) {
	p, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}

	emptyRoot, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if emptyRoot != zeroHash {
		t.Fatalf("empty root: got %v, want zero hash", emptyRoot)
	}

	pushLeaves(t, p, 0, 5)
	if p.Size() != 8 || p.LeafCount() != 5 {
		t.Fatalf("after 5 leaves: got size %d leaves %d, want 8 and 5",
			p.Size(), p.LeafCount())
	}
	rootAt5, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}

	pushLeaves(t, p, 5, 3)
	if p.Size() != 15 || p.LeafCount() != 8 {
		t.Fatalf("after 8 leaves: got size %d leaves %d, want 15 and 8",
			p.Size(), p.LeafCount())
	}
	rootAt8, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if rootAt8 == rootAt5 {
		t.Fatal("roots at different sizes must differ")
	}

	// Rewinding back to the 5 leaf state must reproduce its root exactly.
	if err := p.Rewind(8); err != nil {
		t.Fatalf("Rewind: unexpected error: %v", err)
	}
	rewoundRoot, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if rewoundRoot != rootAt5 {
		t.Fatalf("rewound root: got %v, want %v", rewoundRoot, rootAt5)
	}

	// Reappending the same leaves must reproduce the later root too.
	pushLeaves(t, p, 5, 3)
	reappendedRoot, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if reappendedRoot != rootAt8 {
		t.Fatalf("reappended root: got %v, want %v", reappendedRoot,
			rootAt8)
	}
}

// TestRewindErrors ensures invalid rewind targets are rejected.
func TestRewindErrors(t *testing.T) {
	p, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	pushLeaves(t, p, 0, 4)

	// Forward and mid-parent targets are both invalid.
	for _, size := range []uint64{9, 2, 5, 6} {
		err := p.Rewind(size)
		if !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Rewind(%d): got error %v, want %v", size, err,
				ErrInvalidSize)
		}
	}
}

// TestOrderSensitivity ensures swapping two leaves changes the root.
func TestOrderSensitivity(t *testing.T) {
	a, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	b, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}

	for _, i := range []uint64{0, 1, 2} {
		if _, err := a.Push(testLeaf(i)); err != nil {
			t.Fatalf("Push: unexpected error: %v", err)
		}
	}
	for _, i := range []uint64{0, 2, 1} {
		if _, err := b.Push(testLeaf(i)); err != nil {
			t.Fatalf("Push: unexpected error: %v", err)
		}
	}

	rootA, err := a.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	rootB, err := b.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if rootA == rootB {
		t.Fatal("roots with reordered leaves must differ")
	}
}

// TestMerkleProof ensures inclusion proofs verify for every leaf of a
// multi-mountain range and fail for tampered data.
func TestMerkleProof(t *testing.T) {
	p, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	const numLeaves = 11
	pushLeaves(t, p, 0, numLeaves)
	root, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}

	for i := uint64(0); i < numLeaves; i++ {
		pos := LeafIndexToPos(i)
		proof, err := p.MerkleProof(pos)
		if err != nil {
			t.Fatalf("MerkleProof(%d): unexpected error: %v", pos, err)
		}
		if err := proof.Verify(&root, testLeaf(i), pos); err != nil {
			t.Errorf("Verify leaf %d at pos %d: unexpected error: %v",
				i, pos, err)
			continue
		}

		// The same proof must not verify other leaf data.
		err = proof.Verify(&root, testLeaf(i+1), pos)
		if !errors.Is(err, ErrProofInvalid) {
			t.Errorf("Verify tampered leaf %d: got error %v, want %v",
				i, err, ErrProofInvalid)
		}
	}

	// Proofs are only defined for leaves inside the range.
	if _, err := p.MerkleProof(2); !errors.Is(err, ErrNonLeaf) {
		t.Errorf("MerkleProof(2): got error %v, want %v", err, ErrNonLeaf)
	}
	if _, err := p.MerkleProof(100); !errors.Is(err, ErrBeyondSize) {
		t.Errorf("MerkleProof(100): got error %v, want %v", err,
			ErrBeyondSize)
	}
}

// TestPruneCompact ensures pruning leaves alters neither the root nor the
// proofs of live leaves, and that compaction only discards nodes in fully
// pruned subtrees.
func TestPruneCompact(t *testing.T) {
	p, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	pushLeaves(t, p, 0, 4)
	rootBefore, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}

	// Prune the leaves of the left subtree.
	for _, pos := range []uint64{0, 1} {
		if err := p.Prune(pos); err != nil {
			t.Fatalf("Prune(%d): unexpected error: %v", pos, err)
		}
		if !p.IsPruned(pos) {
			t.Fatalf("IsPruned(%d): got false, want true", pos)
		}
	}
	if err := p.Prune(2); !errors.Is(err, ErrNonLeaf) {
		t.Fatalf("Prune(2): got error %v, want %v", err, ErrNonLeaf)
	}
	if err := p.Prune(0); !errors.Is(err, ErrPrunedLeaf) {
		t.Fatalf("double Prune(0): got error %v, want %v", err,
			ErrPrunedLeaf)
	}

	rootAfterPrune, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if rootAfterPrune != rootBefore {
		t.Fatal("pruning must not change the root")
	}

	if err := p.Compact(nil); err != nil {
		t.Fatalf("Compact: unexpected error: %v", err)
	}

	// The pruned leaves are gone, but the subtree root they hashed into
	// survives to support the rest of the range.
	for _, pos := range []uint64{0, 1} {
		if _, err := p.Hash(pos); !errors.Is(err, ErrMissingNode) {
			t.Errorf("Hash(%d): got error %v, want %v", pos, err,
				ErrMissingNode)
		}
	}
	if _, err := p.Hash(2); err != nil {
		t.Fatalf("Hash(2): unexpected error: %v", err)
	}

	rootAfterCompact, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if rootAfterCompact != rootBefore {
		t.Fatal("compaction must not change the root")
	}

	// Live leaves remain provable.
	for _, idx := range []uint64{2, 3} {
		pos := LeafIndexToPos(idx)
		proof, err := p.MerkleProof(pos)
		if err != nil {
			t.Fatalf("MerkleProof(%d): unexpected error: %v", pos, err)
		}
		if err := proof.Verify(&rootBefore, testLeaf(idx), pos); err != nil {
			t.Errorf("Verify leaf %d after compaction: unexpected "+
				"error: %v", idx, err)
		}
	}

	// Prune the remaining leaves, but retain one from compaction.  The
	// retained leaf keeps its whole subtree intact.
	for _, idx := range []uint64{2, 3} {
		if err := p.Prune(LeafIndexToPos(idx)); err != nil {
			t.Fatalf("Prune leaf %d: unexpected error: %v", idx, err)
		}
	}
	retain := map[uint64]struct{}{3: {}}
	if err := p.Compact(retain); err != nil {
		t.Fatalf("Compact with retain: unexpected error: %v", err)
	}
	for _, idx := range []uint64{2, 3} {
		if _, err := p.Hash(LeafIndexToPos(idx)); err != nil {
			t.Fatalf("Hash retained leaf %d: unexpected error: %v",
				idx, err)
		}
	}

	// Dropping the retention compacts everything but the root.
	if err := p.Compact(nil); err != nil {
		t.Fatalf("Compact: unexpected error: %v", err)
	}
	for _, pos := range []uint64{2, 3, 4, 5} {
		if _, err := p.Hash(pos); !errors.Is(err, ErrMissingNode) {
			t.Errorf("Hash(%d): got error %v, want %v", pos, err,
				ErrMissingNode)
		}
	}
	rootAfterAll, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if rootAfterAll != rootBefore {
		t.Fatal("compaction must not change the root")
	}
}

// TestLeafHashes ensures the most recent live leaf hashes are returned
// newest first and that pruned leaves are skipped.
func TestLeafHashes(t *testing.T) {
	p, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	pushLeaves(t, p, 0, 5)

	leafHash := func(idx uint64) chainhash.Hash {
		t.Helper()
		hash, err := p.Hash(LeafIndexToPos(idx))
		if err != nil {
			t.Fatalf("Hash leaf %d: unexpected error: %v", idx, err)
		}
		return hash
	}

	hashes, err := p.LeafHashes(3)
	if err != nil {
		t.Fatalf("LeafHashes: unexpected error: %v", err)
	}
	want := []chainhash.Hash{leafHash(4), leafHash(3), leafHash(2)}
	if !reflect.DeepEqual(hashes, want) {
		t.Fatalf("LeafHashes(3): got %s, want %s", spew.Sdump(hashes),
			spew.Sdump(want))
	}

	// Pruned leaves are skipped in favor of older live ones.
	if err := p.Prune(LeafIndexToPos(3)); err != nil {
		t.Fatalf("Prune: unexpected error: %v", err)
	}
	hashes, err = p.LeafHashes(3)
	if err != nil {
		t.Fatalf("LeafHashes: unexpected error: %v", err)
	}
	want = []chainhash.Hash{leafHash(4), leafHash(2), leafHash(1)}
	if !reflect.DeepEqual(hashes, want) {
		t.Fatalf("LeafHashes(3) after prune: got %s, want %s",
			spew.Sdump(hashes), spew.Sdump(want))
	}

	// Asking for more leaves than are live returns all of them.
	hashes, err = p.LeafHashes(100)
	if err != nil {
		t.Fatalf("LeafHashes: unexpected error: %v", err)
	}
	if len(hashes) != 4 {
		t.Fatalf("LeafHashes(100): got %d hashes, want 4", len(hashes))
	}
}

// TestRewindClearsPrunes ensures leaves beyond a rewind point are no
// longer considered pruned when the range grows again.
func TestRewindClearsPrunes(t *testing.T) {
	p, err := NewPMMR(NewMemBackend(), 0, nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	pushLeaves(t, p, 0, 5)
	if err := p.Prune(LeafIndexToPos(4)); err != nil {
		t.Fatalf("Prune: unexpected error: %v", err)
	}
	if err := p.Rewind(7); err != nil {
		t.Fatalf("Rewind: unexpected error: %v", err)
	}
	pushLeaves(t, p, 4, 1)
	if p.IsPruned(LeafIndexToPos(4)) {
		t.Fatal("reappended leaf must not inherit the pruned mark")
	}
}

// TestDBBackend ensures staged appends persist through Flush, are dropped
// by Reset, and reload with the same root.
func TestDBBackend(t *testing.T) {
	db := database.NewMemDB()
	defer db.Close()

	backend, err := NewDBBackend(db, []byte("o"))
	if err != nil {
		t.Fatalf("NewDBBackend: unexpected error: %v", err)
	}
	p, err := NewPMMR(backend, backend.Size(), nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	pushLeaves(t, p, 0, 5)
	root, err := p.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}

	batch := db.NewBatch()
	if err := backend.Flush(batch); err != nil {
		t.Fatalf("Flush: unexpected error: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: unexpected error: %v", err)
	}

	// Stage three more leaves and drop them again.
	pushLeaves(t, p, 5, 3)
	backend.Reset()
	if backend.Size() != 8 {
		t.Fatalf("size after reset: got %d, want 8", backend.Size())
	}

	// A fresh backend over the same store sees only the flushed state.
	reloaded, err := NewDBBackend(db, []byte("o"))
	if err != nil {
		t.Fatalf("NewDBBackend: unexpected error: %v", err)
	}
	if reloaded.Size() != 8 {
		t.Fatalf("reloaded size: got %d, want 8", reloaded.Size())
	}
	p2, err := NewPMMR(reloaded, reloaded.Size(), nil)
	if err != nil {
		t.Fatalf("NewPMMR: unexpected error: %v", err)
	}
	reloadedRoot, err := p2.Root()
	if err != nil {
		t.Fatalf("Root: unexpected error: %v", err)
	}
	if reloadedRoot != root {
		t.Fatalf("reloaded root: got %v, want %v", reloadedRoot, root)
	}

	// Rewinds below the flushed size persist through the next flush.
	if err := p2.Rewind(4); err != nil {
		t.Fatalf("Rewind: unexpected error: %v", err)
	}
	batch = db.NewBatch()
	if err := reloaded.Flush(batch); err != nil {
		t.Fatalf("Flush: unexpected error: %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit: unexpected error: %v", err)
	}
	final, err := NewDBBackend(db, []byte("o"))
	if err != nil {
		t.Fatalf("NewDBBackend: unexpected error: %v", err)
	}
	if final.Size() != 4 {
		t.Fatalf("size after rewound flush: got %d, want 4", final.Size())
	}
}
