// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/mimblenet/mnd/pedersen"
)

// testTx returns a transaction with one input, two outputs, and one kernel
// populated with distinct recognizable bytes.
func testTx() *MsgTx {
	var inCommit, outCommit1, outCommit2, excess pedersen.Commitment
	inCommit[0], inCommit[32] = 0x08, 0x01
	outCommit1[0], outCommit1[32] = 0x09, 0x02
	outCommit2[0], outCommit2[32] = 0x09, 0x03
	excess[0], excess[32] = 0x08, 0x04

	var proof pedersen.RangeProof
	for i := range proof[:16] {
		proof[i] = byte(i)
	}
	var sig pedersen.Signature
	sig[0], sig[63] = 0xaa, 0xbb

	tx := NewMsgTx()
	tx.KernelOffset[31] = 0x2a
	tx.AddTxIn(NewTxIn(OutputCoinbase, inCommit))
	tx.AddTxOut(NewTxOut(OutputPlain, outCommit1, &proof))
	tx.AddTxOut(NewTxOut(OutputPlain, outCommit2, &proof))
	tx.AddKernel(&TxKernel{
		Features:  KernelPlain,
		Fee:       1000,
		Excess:    excess,
		ExcessSig: sig,
	})
	return tx
}

// TestTxSerialize tests that a transaction serializes to the advertised
// size and decodes back to an identical value.
func TestTxSerialize(t *testing.T) {
	tx := testTx()

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: unexpected error: %v", err)
	}
	if buf.Len() != tx.SerializeSize() {
		t.Fatalf("serialized size mismatch: got %d want %d", buf.Len(),
			tx.SerializeSize())
	}

	var decoded MsgTx
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: unexpected error: %v", err)
	}
	if !reflect.DeepEqual(&decoded, tx) {
		t.Fatalf("decoded transaction mismatch\n got: %s\nwant: %s",
			spew.Sdump(&decoded), spew.Sdump(tx))
	}

	// The hash must be stable across the round trip.
	if decoded.TxHash() != tx.TxHash() {
		t.Fatalf("transaction hash changed across serialization")
	}
}

// TestTxDeserializeErrors ensures malformed transactions return the
// expected error kinds.
func TestTxDeserializeErrors(t *testing.T) {
	// Serialize a valid transaction as a template.
	tx := testTx()
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: unexpected error: %v", err)
	}
	valid := buf.Bytes()

	// The input count sits directly after the 32 byte kernel offset.
	// Claiming more inputs than can fit the block weight is rejected
	// before any allocation.
	tooManyIns := make([]byte, len(valid))
	copy(tooManyIns, valid)
	tooManyIns[32] = 0xfe
	tooManyIns = append(tooManyIns[:33],
		append([]byte{0xff, 0xff, 0xff, 0xff}, tooManyIns[33:]...)...)
	var msg MsgTx
	err := msg.Deserialize(bytes.NewReader(tooManyIns))
	if !errors.Is(err, ErrTooManyInputs) {
		t.Errorf("too many inputs: got %v want %v", err, ErrTooManyInputs)
	}

	// Unknown feature bits on the input are rejected at decode time.
	unknownFeatures := make([]byte, len(valid))
	copy(unknownFeatures, valid)
	unknownFeatures[35] = 0x7f // first input's features byte
	err = msg.Deserialize(bytes.NewReader(unknownFeatures))
	if !errors.Is(err, ErrUnknownOutputFeatures) {
		t.Errorf("unknown input features: got %v want %v", err,
			ErrUnknownOutputFeatures)
	}

	// A truncated stream surfaces as an IO error rather than a partially
	// populated message.
	err = msg.Deserialize(bytes.NewReader(valid[:len(valid)-1]))
	if err == nil {
		t.Errorf("truncated stream: expected an error")
	}
}

// TestKernelHashes ensures the kernel signature hash omits the signature
// while the leaf hash binds the complete kernel.
func TestKernelHashes(t *testing.T) {
	tx := testTx()
	kernel := *tx.Kernels[0]

	// Changing the signature must change the leaf hash but not the
	// signature hash.
	mutated := kernel
	mutated.ExcessSig[0] ^= 0xff
	if mutated.SignatureHash() != kernel.SignatureHash() {
		t.Errorf("signature hash covers the signature")
	}
	if mutated.Hash() == kernel.Hash() {
		t.Errorf("leaf hash does not cover the signature")
	}

	// Changing the fee must change both.
	mutated = kernel
	mutated.Fee++
	if mutated.SignatureHash() == kernel.SignatureHash() {
		t.Errorf("signature hash does not cover the fee")
	}
	if mutated.Hash() == kernel.Hash() {
		t.Errorf("leaf hash does not cover the fee")
	}
}

// TestWeights ensures consensus weights accumulate per element class.
func TestWeights(t *testing.T) {
	tx := testTx()
	want := 1*BlockInputWeight + 2*BlockOutputWeight + 1*BlockKernelWeight
	if got := tx.Weight(); got != want {
		t.Errorf("tx weight: got %d want %d", got, want)
	}
	if got := tx.TotalFee(); got != 1000 {
		t.Errorf("tx fee: got %d want 1000", got)
	}
}
