// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pedersen

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SignatureSize is the size of a serialized signature in bytes.  The
// serialization is the 32-byte x coordinate of the signature nonce point R
// followed by the 32-byte scalar s.
const SignatureSize = 64

// Signature is a Schnorr style signature over a kernel excess.  The nonce
// point R always has an even y coordinate so it is fully recoverable from
// its x coordinate.
type Signature [SignatureSize]byte

// String returns the signature as a hexadecimal string.
func (sig Signature) String() string {
	return hex.EncodeToString(sig[:])
}

// challenge derives the signature challenge scalar by hashing the nonce
// point x coordinate, the serialized public excess, and the message.
func challenge(rx []byte, excess Commitment, msg []byte) secp256k1.ModNScalar {
	h := blake256.New()
	h.Write(rx)
	h.Write(excess[:])
	h.Write(msg)
	var e secp256k1.ModNScalar
	e.SetByteSlice(h.Sum(nil))
	return e
}

// Sign produces a signature over the provided message which verifies against
// the commitment key*G.  For kernels the key is the excess blinding factor
// and the message is the kernel's own hash, which binds the fee, lock height,
// and features into the signature.
func Sign(key *secp256k1.ModNScalar, msg []byte) (Signature, error) {
	if key.IsZero() {
		return Signature{}, makeError(ErrZeroBlind,
			"cannot sign with a zero key")
	}

	// The signing key commitment the signature verifies against.
	excess, err := Commit(0, key)
	if err != nil {
		return Signature{}, err
	}

	for {
		nonce := NewBlind()

		// R = nonce*G, negating the nonce as needed so R has an even y
		// coordinate.
		var r secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(nonce, &r)
		r.ToAffine()
		if r.Y.IsOdd() {
			nonce.Negate()
			r.Y.Negate(1)
			r.Y.Normalize()
		}
		var rx [32]byte
		r.X.PutBytes(&rx)

		// s = nonce + e*key where e = H(Rx || P || m).
		e := challenge(rx[:], excess, msg)
		s := e.Mul(key).Add(nonce)
		if s.IsZero() {
			// Vanishingly unlikely, but a zero s has a malleable
			// serialized form.  Try another nonce.
			continue
		}

		var sig Signature
		copy(sig[0:32], rx[:])
		sBytes := s.Bytes()
		copy(sig[32:64], sBytes[:])
		return sig, nil
	}
}

// Verify returns an error with kind ErrInvalidSignature unless the signature
// is valid over the message for the provided excess commitment.
func (sig Signature) Verify(msg []byte, excess Commitment) error {
	var excessPt secp256k1.JacobianPoint
	if err := excess.AsJacobian(&excessPt); err != nil {
		return err
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sig[32:64]); overflow {
		str := fmt.Sprintf("signature %s scalar exceeds group order", sig)
		return makeError(ErrInvalidSignature, str)
	}

	// R' = s*G - e*P must land on the nonce point serialized in the
	// signature, which by construction has an even y coordinate.
	e := challenge(sig[0:32], excess, msg)
	e.Negate()
	var ep, sg, r secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&e, &excessPt, &ep)
	secp256k1.ScalarBaseMultNonConst(&s, &sg)
	secp256k1.AddNonConst(&sg, &ep, &r)
	if r.Z.IsZero() {
		str := fmt.Sprintf("signature %s recovers the point at infinity",
			sig)
		return makeError(ErrInvalidSignature, str)
	}
	r.ToAffine()
	if r.Y.IsOdd() {
		str := fmt.Sprintf("signature %s recovers an odd nonce point", sig)
		return makeError(ErrInvalidSignature, str)
	}
	var rx [32]byte
	r.X.PutBytes(&rx)
	if rx != *(*[32]byte)(sig[0:32]) {
		str := fmt.Sprintf("signature %s does not verify for excess %s",
			sig, excess)
		return makeError(ErrInvalidSignature, str)
	}
	return nil
}
