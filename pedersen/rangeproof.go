// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pedersen

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// ProofBits is the number of bits of the committed value a range proof
	// covers.  Values are proven to lie in [0, 2^ProofBits).
	ProofBits = 64

	// bitRingSize is the serialized size of the per-bit ring signature:
	// the initial challenge e0 and the two closing scalars s0 and s1.
	bitRingSize = 3 * 32

	// RangeProofSize is the size of a serialized range proof in bytes: one
	// commitment and one two-member ring signature per proven bit.
	RangeProofSize = ProofBits * (CommitmentSize + bitRingSize)
)

// RangeProof proves that the value inside a commitment lies in
// [0, 2^ProofBits) without revealing it.  The committed value is decomposed
// into per-bit commitments that must sum back to the commitment under proof,
// and each bit carries a two-member ring signature showing it commits to
// either zero or the bit's weight without disclosing which.
type RangeProof [RangeProofSize]byte

// bitOffset returns the offset of bit i's region within the serialized proof.
func bitOffset(i int) int {
	return i * (CommitmentSize + bitRingSize)
}

// proofMsg derives the ring signature message for bit i of a proof over the
// given commitment.  Binding the commitment and bit index prevents proof
// material from being transplanted between commitments or bit positions.
func proofMsg(commit Commitment, i int) []byte {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], uint32(i))
	h := blake256.New()
	h.Write(commit[:])
	h.Write(idx[:])
	return h.Sum(nil)
}

// ringChallenge hashes the message together with a serialized ring nonce
// point into a challenge scalar.
func ringChallenge(msg []byte, r *secp256k1.JacobianPoint) secp256k1.ModNScalar {
	r.ToAffine()
	pub := secp256k1.NewPublicKey(&r.X, &r.Y)
	h := blake256.New()
	h.Write(msg)
	h.Write(pub.SerializeCompressed())
	var e secp256k1.ModNScalar
	e.SetByteSlice(h.Sum(nil))
	return e
}

// ringVertex computes s*G - e*K, the verification step between two ring
// members.
func ringVertex(s, e *secp256k1.ModNScalar, k *secp256k1.JacobianPoint) secp256k1.JacobianPoint {
	var negE secp256k1.ModNScalar
	negE.NegateVal(e)
	var ek, sg, out secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&negE, k, &ek)
	secp256k1.ScalarBaseMultNonConst(s, &sg)
	secp256k1.AddNonConst(&sg, &ek, &out)
	return out
}

// bitWeightH returns 2^i * H, the value component of a set bit at position i.
func bitWeightH(i int) secp256k1.JacobianPoint {
	var out secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(scalarFromUint64(1<<uint(i)), &generatorH,
		&out)
	return out
}

// ProveRange creates a range proof for the commitment value*H + blind*G.
func ProveRange(value uint64, blind *secp256k1.ModNScalar) (*RangeProof, error) {
	if blind.IsZero() {
		return nil, makeError(ErrZeroBlind,
			"range proofs require a nonzero blinding factor")
	}
	commit, err := Commit(value, blind)
	if err != nil {
		return nil, err
	}

	// Split the blinding factor across the per-bit commitments: random for
	// all but the last bit, with the last one chosen so the shares sum to
	// the original blind.  A zero final share cannot be committed when the
	// final bit is also zero, so redraw in that case.
	var bitBlinds [ProofBits]*secp256k1.ModNScalar
	for {
		var sum secp256k1.ModNScalar
		for i := 0; i < ProofBits-1; i++ {
			bitBlinds[i] = NewBlind()
			sum.Add(bitBlinds[i])
		}
		var last secp256k1.ModNScalar
		last.NegateVal(&sum).Add(blind)
		if !last.IsZero() {
			bitBlinds[ProofBits-1] = &last
			break
		}
	}

	proof := new(RangeProof)
	for i := 0; i < ProofBits; i++ {
		bit := (value >> uint(i)) & 1
		weight := uint64(0)
		if bit == 1 {
			weight = 1 << uint(i)
		}
		bitCommit, err := Commit(weight, bitBlinds[i])
		if err != nil {
			return nil, err
		}

		// Ring keys: K0 is the bit commitment itself (known dlog when
		// the bit is zero), K1 is the bit commitment minus the bit
		// weight (known dlog when the bit is one).
		var k0, k1 secp256k1.JacobianPoint
		if err := bitCommit.AsJacobian(&k0); err != nil {
			return nil, err
		}
		wh := bitWeightH(i)
		wh.Y.Negate(1)
		wh.Y.Normalize()
		secp256k1.AddNonConst(&k0, &wh, &k1)

		msg := proofMsg(commit, i)
		nonce := NewBlind()
		var r secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(nonce, &r)

		var e0, s0, s1 secp256k1.ModNScalar
		if bit == 0 {
			// Close the ring at index 0: e1 follows from the real
			// nonce, s1 is random, and e0 follows from walking the
			// fake vertex.
			e1 := ringChallenge(msg, &r)
			s1 = *NewBlind()
			v1 := ringVertex(&s1, &e1, &k1)
			e0 = ringChallenge(msg, &v1)
			s0.Set(&e0)
			s0.Mul(bitBlinds[i]).Add(nonce)
		} else {
			e0 = ringChallenge(msg, &r)
			s0 = *NewBlind()
			v0 := ringVertex(&s0, &e0, &k0)
			e1 := ringChallenge(msg, &v0)
			s1.Set(&e1)
			s1.Mul(bitBlinds[i]).Add(nonce)
		}

		off := bitOffset(i)
		copy(proof[off:off+CommitmentSize], bitCommit[:])
		e0b := e0.Bytes()
		s0b := s0.Bytes()
		s1b := s1.Bytes()
		copy(proof[off+CommitmentSize:], e0b[:])
		copy(proof[off+CommitmentSize+32:], s0b[:])
		copy(proof[off+CommitmentSize+64:], s1b[:])
	}
	return proof, nil
}

// Verify returns an error with kind ErrInvalidRangeProof unless the proof
// demonstrates that the provided commitment commits to a value in
// [0, 2^ProofBits).
func (proof *RangeProof) Verify(commit Commitment) error {
	var commitPt secp256k1.JacobianPoint
	if err := commit.AsJacobian(&commitPt); err != nil {
		return err
	}

	var bitSum secp256k1.JacobianPoint
	for i := 0; i < ProofBits; i++ {
		off := bitOffset(i)
		var bitCommit Commitment
		copy(bitCommit[:], proof[off:off+CommitmentSize])

		var k0 secp256k1.JacobianPoint
		if err := bitCommit.AsJacobian(&k0); err != nil {
			str := fmt.Sprintf("range proof bit %d: %v", i, err)
			return makeError(ErrInvalidRangeProof, str)
		}
		secp256k1.AddNonConst(&bitSum, &k0, &bitSum)

		var k1 secp256k1.JacobianPoint
		wh := bitWeightH(i)
		wh.Y.Negate(1)
		wh.Y.Normalize()
		secp256k1.AddNonConst(&k0, &wh, &k1)

		var e0, s0, s1 secp256k1.ModNScalar
		overflow := e0.SetByteSlice(proof[off+CommitmentSize : off+CommitmentSize+32])
		overflow = s0.SetByteSlice(proof[off+CommitmentSize+32:off+CommitmentSize+64]) || overflow
		overflow = s1.SetByteSlice(proof[off+CommitmentSize+64:off+CommitmentSize+96]) || overflow
		if overflow {
			str := fmt.Sprintf("range proof bit %d ring scalar exceeds "+
				"group order", i)
			return makeError(ErrInvalidRangeProof, str)
		}

		// Walk the ring: the closing challenge must return to e0.
		msg := proofMsg(commit, i)
		v0 := ringVertex(&s0, &e0, &k0)
		e1 := ringChallenge(msg, &v0)
		v1 := ringVertex(&s1, &e1, &k1)
		e0Check := ringChallenge(msg, &v1)
		if !e0Check.Equals(&e0) {
			str := fmt.Sprintf("range proof bit %d ring does not close", i)
			return makeError(ErrInvalidRangeProof, str)
		}
	}

	// The per-bit commitments must reassemble the commitment under proof.
	sum, err := commitmentFromJacobian(&bitSum)
	if err != nil {
		return makeError(ErrInvalidRangeProof,
			"range proof bit commitments sum to infinity")
	}
	if sum != commit {
		str := fmt.Sprintf("range proof bit commitments sum to %s, not %s",
			sum, commit)
		return makeError(ErrInvalidRangeProof, str)
	}
	return nil
}
