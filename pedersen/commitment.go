// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pedersen

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/crypto/rand"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// CommitmentSize is the size of a serialized commitment in bytes.  The
// serialization is the standard 33-byte compressed curve point encoding.
const CommitmentSize = 33

// Commitment is a Pedersen commitment of the form value*H + blind*G.  The
// zero value is not a valid commitment.  Equality is structural.
type Commitment [CommitmentSize]byte

// String returns the commitment as a hexadecimal string.
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// generatorH is the alternate generator the value component of commitments is
// bound to.  It is the standard "nothing up my sleeve" second generator for
// the secp256k1 curve whose discrete log relative to G is unknown.
var generatorH secp256k1.JacobianPoint

func init() {
	const hUncompressed = "04" +
		"50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0" +
		"31d3c6863973926e049e637cb1b5f40a36dac28af1766968c30c2313f3a38904"
	hBytes, err := hex.DecodeString(hUncompressed)
	if err != nil {
		panic(err)
	}
	pub, err := secp256k1.ParsePubKey(hBytes)
	if err != nil {
		panic(err)
	}
	pub.AsJacobian(&generatorH)
}

// scalarFromUint64 returns the provided unsigned 64-bit integer as a scalar.
func scalarFromUint64(v uint64) *secp256k1.ModNScalar {
	var b [32]byte
	binary.BigEndian.PutUint64(b[24:], v)
	var s secp256k1.ModNScalar
	s.SetBytes(&b)
	return &s
}

// commitmentFromJacobian serializes the provided point as a commitment.  An
// error with kind ErrCommitToInfinity is returned when the point is the point
// at infinity since it has no serialized form.
func commitmentFromJacobian(p *secp256k1.JacobianPoint) (Commitment, error) {
	if p.Z.IsZero() {
		return Commitment{}, makeError(ErrCommitToInfinity,
			"commitment operation produced the point at infinity")
	}
	p.ToAffine()
	pub := secp256k1.NewPublicKey(&p.X, &p.Y)
	var c Commitment
	copy(c[:], pub.SerializeCompressed())
	return c, nil
}

// AsJacobian decodes the commitment into the provided Jacobian point.  An
// error with kind ErrInvalidCommitment is returned when the serialized bytes
// do not represent a valid curve point.
func (c Commitment) AsJacobian(result *secp256k1.JacobianPoint) error {
	pub, err := secp256k1.ParsePubKey(c[:])
	if err != nil {
		str := fmt.Sprintf("invalid commitment %s: %v", c, err)
		return makeError(ErrInvalidCommitment, str)
	}
	pub.AsJacobian(result)
	return nil
}

// Commit creates the commitment value*H + blind*G.  The blinding factor must
// not be zero when the value is also zero since the result would be the point
// at infinity.
func Commit(value uint64, blind *secp256k1.ModNScalar) (Commitment, error) {
	var sum secp256k1.JacobianPoint
	if !blind.IsZero() {
		secp256k1.ScalarBaseMultNonConst(blind, &sum)
	}
	if value != 0 {
		var vh secp256k1.JacobianPoint
		secp256k1.ScalarMultNonConst(scalarFromUint64(value), &generatorH,
			&vh)
		secp256k1.AddNonConst(&sum, &vh, &sum)
	}
	return commitmentFromJacobian(&sum)
}

// NewBlind returns a cryptographically random nonzero blinding factor.
func NewBlind() *secp256k1.ModNScalar {
	var b [32]byte
	var s secp256k1.ModNScalar
	for {
		rand.Read(b[:])
		if overflow := s.SetBytes(&b); overflow != 0 {
			continue
		}
		if !s.IsZero() {
			return &s
		}
	}
}

// BlindSum returns the sum of the positive blinding factors minus the sum of
// the negative blinding factors.
func BlindSum(positives, negatives []*secp256k1.ModNScalar) secp256k1.ModNScalar {
	var sum secp256k1.ModNScalar
	for _, b := range positives {
		sum.Add(b)
	}
	for _, b := range negatives {
		var neg secp256k1.ModNScalar
		neg.NegateVal(b)
		sum.Add(&neg)
	}
	return sum
}

// addCommitments accumulates each of the provided commitments into the result
// point, negating them first when negate is set.
func addCommitments(result *secp256k1.JacobianPoint, commits []Commitment, negate bool) error {
	for _, c := range commits {
		var p secp256k1.JacobianPoint
		if err := c.AsJacobian(&p); err != nil {
			return err
		}
		if negate {
			p.Y.Negate(1)
			p.Y.Normalize()
		}
		secp256k1.AddNonConst(result, &p, result)
	}
	return nil
}

// CommitSum computes the sum of the positive commitments minus the sum of the
// negative commitments, with the overage folded in as an unblinded value
// commitment: a positive overage counts toward the positive side and a
// negative overage toward the negative side.
func CommitSum(positives, negatives []Commitment, overage int64) (Commitment, error) {
	var sum secp256k1.JacobianPoint
	if err := addCommitments(&sum, positives, false); err != nil {
		return Commitment{}, err
	}
	if overage != 0 {
		mag := uint64(overage)
		if overage < 0 {
			mag = uint64(-overage)
		}
		var over secp256k1.JacobianPoint
		secp256k1.ScalarMultNonConst(scalarFromUint64(mag), &generatorH,
			&over)
		if overage < 0 {
			over.Y.Negate(1)
			over.Y.Normalize()
		}
		secp256k1.AddNonConst(&sum, &over, &sum)
	}
	if err := addCommitments(&sum, negatives, true); err != nil {
		return Commitment{}, err
	}
	return commitmentFromJacobian(&sum)
}

// CommitSumWithOffset computes the sum of the provided kernel excess
// commitments plus offset*G.  This is the kernel side of the zero-sum
// balance: a transaction or block balances exactly when it equals the
// corresponding CommitSum over its outputs, inputs, and overage.
func CommitSumWithOffset(excesses []Commitment, offset *secp256k1.ModNScalar) (Commitment, error) {
	var sum secp256k1.JacobianPoint
	if err := addCommitments(&sum, excesses, false); err != nil {
		return Commitment{}, err
	}
	if !offset.IsZero() {
		var og secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(offset, &og)
		secp256k1.AddNonConst(&sum, &og, &sum)
	}
	return commitmentFromJacobian(&sum)
}
