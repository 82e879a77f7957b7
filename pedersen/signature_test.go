// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pedersen

import (
	"errors"
	"testing"
)

// TestSignVerify ensures a signature over a message verifies against the
// excess commitment of its key and fails against anything else.
func TestSignVerify(t *testing.T) {
	key := NewBlind()
	excess, err := Commit(0, key)
	if err != nil {
		t.Fatalf("Commit: unexpected error: %v", err)
	}
	msg := []byte("kernel signature hash bytes.....")

	sig, err := Sign(key, msg)
	if err != nil {
		t.Fatalf("Sign: unexpected error: %v", err)
	}
	if err := sig.Verify(msg, excess); err != nil {
		t.Fatalf("Verify: unexpected error: %v", err)
	}

	// A different message fails.
	wrongMsg := []byte("some other message bytes........")
	if err := sig.Verify(wrongMsg, excess); !errors.Is(err,
		ErrInvalidSignature) {

		t.Errorf("wrong message: got %v want %v", err,
			ErrInvalidSignature)
	}

	// A different excess fails.
	otherExcess, err := Commit(0, NewBlind())
	if err != nil {
		t.Fatalf("Commit: unexpected error: %v", err)
	}
	if err := sig.Verify(msg, otherExcess); !errors.Is(err,
		ErrInvalidSignature) {

		t.Errorf("wrong excess: got %v want %v", err, ErrInvalidSignature)
	}

	// A tampered signature fails.
	tampered := sig
	tampered[40] ^= 0x01
	if err := tampered.Verify(msg, excess); !errors.Is(err,
		ErrInvalidSignature) {

		t.Errorf("tampered signature: got %v want %v", err,
			ErrInvalidSignature)
	}
}

// TestRangeProof ensures proofs verify for representative values and fail
// against the wrong commitment or after tampering.
func TestRangeProof(t *testing.T) {
	for _, value := range []uint64{0, 1, 255, 1 << 32, ^uint64(0)} {
		blind := NewBlind()
		commit, err := Commit(value, blind)
		if err != nil {
			t.Fatalf("Commit(%d): unexpected error: %v", value, err)
		}
		proof, err := ProveRange(value, blind)
		if err != nil {
			t.Fatalf("ProveRange(%d): unexpected error: %v", value, err)
		}
		if err := proof.Verify(commit); err != nil {
			t.Errorf("Verify(%d): unexpected error: %v", value, err)
		}
	}

	// The proof binds to its commitment.
	blind := NewBlind()
	commit, err := Commit(7, blind)
	if err != nil {
		t.Fatalf("Commit: unexpected error: %v", err)
	}
	proof, err := ProveRange(7, blind)
	if err != nil {
		t.Fatalf("ProveRange: unexpected error: %v", err)
	}
	otherCommit, err := Commit(7, NewBlind())
	if err != nil {
		t.Fatalf("Commit: unexpected error: %v", err)
	}
	if err := proof.Verify(otherCommit); !errors.Is(err,
		ErrInvalidRangeProof) {

		t.Errorf("wrong commitment: got %v want %v", err,
			ErrInvalidRangeProof)
	}

	// Any bit flip invalidates the proof.
	tampered := *proof
	tampered[100] ^= 0x01
	if err := tampered.Verify(commit); err == nil {
		t.Errorf("tampered proof unexpectedly verified")
	}
}
