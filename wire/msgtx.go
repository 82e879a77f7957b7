// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/pedersen"
)

const (
	// MaxBlockWeight is the maximum weight of the inputs, outputs, and
	// kernels a block may carry.  Changing it would hard fork the chain.
	MaxBlockWeight = 40000

	// BlockInputWeight is the weight of an input when counted against the
	// maximum block weight.
	BlockInputWeight = 1

	// BlockOutputWeight is the weight of an output when counted against
	// the maximum block weight.
	BlockOutputWeight = 21

	// BlockKernelWeight is the weight of a kernel when counted against the
	// maximum block weight.
	BlockKernelWeight = 3

	// MaxInputsPerBlock is the maximum number of inputs a block may carry,
	// implied by the block weight limit.
	MaxInputsPerBlock = MaxBlockWeight / BlockInputWeight

	// MaxOutputsPerBlock is the maximum number of outputs a block may
	// carry, implied by the block weight limit.
	MaxOutputsPerBlock = MaxBlockWeight / BlockOutputWeight

	// MaxKernelsPerBlock is the maximum number of kernels a block may
	// carry, implied by the block weight limit.
	MaxKernelsPerBlock = MaxBlockWeight / BlockKernelWeight
)

// BlockWeight returns the consensus weight of a body with the provided number
// of inputs, outputs, and kernels.
func BlockWeight(numInputs, numOutputs, numKernels int) int {
	return numInputs*BlockInputWeight + numOutputs*BlockOutputWeight +
		numKernels*BlockKernelWeight
}

// OutputFeatures defines the consensus-fixed set of output variants.  The set
// is closed: validation matches it exhaustively and unknown bits are rejected
// at decode time.
type OutputFeatures uint8

const (
	// OutputPlain is a regular transaction output.
	OutputPlain OutputFeatures = 0

	// OutputCoinbase is a coinbase output subject to the coinbase maturity
	// before it may be spent.
	OutputCoinbase OutputFeatures = 1
)

// String returns the OutputFeatures as a human-readable name.
func (f OutputFeatures) String() string {
	switch f {
	case OutputPlain:
		return "plain"
	case OutputCoinbase:
		return "coinbase"
	}
	return fmt.Sprintf("unknown(%d)", uint8(f))
}

// KernelFeatures defines the consensus-fixed set of kernel variants.  The set
// is closed: validation matches it exhaustively and unknown bits are rejected
// at decode time.
type KernelFeatures uint8

const (
	// KernelPlain is a regular transaction kernel.
	KernelPlain KernelFeatures = 0

	// KernelCoinbase is the kernel committing to a block's coinbase.  It
	// must carry a zero fee and zero lock height.
	KernelCoinbase KernelFeatures = 1

	// KernelHeightLocked is a kernel that renders its transaction invalid
	// in any block below the kernel's lock height.
	KernelHeightLocked KernelFeatures = 2
)

// String returns the KernelFeatures as a human-readable name.
func (f KernelFeatures) String() string {
	switch f {
	case KernelPlain:
		return "plain"
	case KernelCoinbase:
		return "coinbase"
	case KernelHeightLocked:
		return "heightlocked"
	}
	return fmt.Sprintf("unknown(%d)", uint8(f))
}

// TxIn defines a transaction input.  An input spends an existing unspent
// output by referencing its commitment; the features must match the features
// of the output being spent so input hashing stays stable under pruning.
type TxIn struct {
	Features   OutputFeatures
	Commitment pedersen.Commitment
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction input.
func (ti *TxIn) SerializeSize() int {
	return 1 + pedersen.CommitmentSize
}

// NewTxIn returns a new transaction input with the provided values.
func NewTxIn(features OutputFeatures, commitment pedersen.Commitment) *TxIn {
	return &TxIn{Features: features, Commitment: commitment}
}

// TxOut defines a transaction output: a commitment to the output's value and
// a range proof demonstrating the committed value is non-negative.
type TxOut struct {
	Features   OutputFeatures
	Commitment pedersen.Commitment
	RangeProof pedersen.RangeProof
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction output.
func (to *TxOut) SerializeSize() int {
	return 1 + pedersen.CommitmentSize + pedersen.RangeProofSize
}

// IsCoinbase returns whether the output is a coinbase output.
func (to *TxOut) IsCoinbase() bool {
	return to.Features == OutputCoinbase
}

// NewTxOut returns a new transaction output with the provided values.
func NewTxOut(features OutputFeatures, commitment pedersen.Commitment, proof *pedersen.RangeProof) *TxOut {
	return &TxOut{
		Features:   features,
		Commitment: commitment,
		RangeProof: *proof,
	}
}

// TxKernel is the unprunable core of a transaction: the excess commitment
// that remains once all outputs and inputs cancel, an aggregate signature
// over the kernel's signature hash proving knowledge of the excess blinding
// factor, the declared fee, and an optional lock height.
type TxKernel struct {
	Features   KernelFeatures
	Fee        uint64
	LockHeight uint64
	Excess     pedersen.Commitment
	ExcessSig  pedersen.Signature
}

// kernelSerializeSize is the size of a serialized kernel.
const kernelSerializeSize = 1 + 8 + 8 + pedersen.CommitmentSize +
	pedersen.SignatureSize

// SerializeSize returns the number of bytes it would take to serialize the
// kernel.
func (k *TxKernel) SerializeSize() int {
	return kernelSerializeSize
}

// SignatureHash returns the hash the kernel's excess signature commits to.
// It covers the features, fee, lock height, and excess commitment, which
// binds all of them into the signature.
func (k *TxKernel) SignatureHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, 1+8+8+pedersen.CommitmentSize))
	_ = writeElements(buf, k.Features, k.Fee, k.LockHeight, &k.Excess)
	return chainhash.HashH(buf.Bytes())
}

// Hash returns the hash of the fully serialized kernel.  This is the
// kernel's MMR leaf hash preimage.
func (k *TxKernel) Hash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, kernelSerializeSize))
	_ = writeTxKernel(buf, k)
	return chainhash.HashH(buf.Bytes())
}

// readTxIn reads the next sequence of bytes from r as a transaction input.
func readTxIn(r io.Reader, ti *TxIn) error {
	err := readElements(r, &ti.Features, &ti.Commitment)
	if err != nil {
		return err
	}
	if ti.Features != OutputPlain && ti.Features != OutputCoinbase {
		str := fmt.Sprintf("input declares unknown output features %d",
			ti.Features)
		return messageError("readTxIn", ErrUnknownOutputFeatures, str)
	}
	return nil
}

// writeTxIn serializes a transaction input to w.
func writeTxIn(w io.Writer, ti *TxIn) error {
	return writeElements(w, ti.Features, &ti.Commitment)
}

// readTxOut reads the next sequence of bytes from r as a transaction output.
func readTxOut(r io.Reader, to *TxOut) error {
	err := readElements(r, &to.Features, &to.Commitment, &to.RangeProof)
	if err != nil {
		return err
	}
	if to.Features != OutputPlain && to.Features != OutputCoinbase {
		str := fmt.Sprintf("output declares unknown features %d",
			to.Features)
		return messageError("readTxOut", ErrUnknownOutputFeatures, str)
	}
	return nil
}

// writeTxOut serializes a transaction output to w.
func writeTxOut(w io.Writer, to *TxOut) error {
	return writeElements(w, to.Features, &to.Commitment, &to.RangeProof)
}

// readTxKernel reads the next sequence of bytes from r as a kernel.
func readTxKernel(r io.Reader, k *TxKernel) error {
	err := readElements(r, &k.Features, &k.Fee, &k.LockHeight, &k.Excess,
		&k.ExcessSig)
	if err != nil {
		return err
	}
	switch k.Features {
	case KernelPlain, KernelCoinbase, KernelHeightLocked:
	default:
		str := fmt.Sprintf("kernel declares unknown features %d",
			k.Features)
		return messageError("readTxKernel", ErrUnknownKernelFeatures, str)
	}
	return nil
}

// writeTxKernel serializes a kernel to w.
func writeTxKernel(w io.Writer, k *TxKernel) error {
	return writeElements(w, k.Features, k.Fee, k.LockHeight, &k.Excess,
		&k.ExcessSig)
}

// MsgTx implements the Message interface and represents a transaction.  The
// kernel offset is the portion of the total excess split off from the kernels
// to prevent them from being linked back to the outputs they derive from.
type MsgTx struct {
	KernelOffset [32]byte
	TxIn         []*TxIn
	TxOut        []*TxOut
	Kernels      []*TxKernel
}

// AddTxIn adds a transaction input to the message.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// AddKernel adds a kernel to the message.
func (msg *MsgTx) AddKernel(k *TxKernel) {
	msg.Kernels = append(msg.Kernels, k)
}

// TotalFee returns the sum of the fees declared by the transaction's kernels.
func (msg *MsgTx) TotalFee() uint64 {
	var fee uint64
	for _, k := range msg.Kernels {
		fee += k.Fee
	}
	return fee
}

// Weight returns the consensus weight of the transaction.
func (msg *MsgTx) Weight() int {
	return BlockWeight(len(msg.TxIn), len(msg.TxOut), len(msg.Kernels))
}

// TxHash generates the hash for the transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	_ = msg.Serialize(buf)
	return chainhash.HashH(buf.Bytes())
}

// Deserialize decodes a transaction from r into the receiver using the
// canonical serialization.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	err := readElement(r, &msg.KernelOffset)
	if err != nil {
		return err
	}

	countIn, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if countIn > MaxInputsPerBlock {
		str := fmt.Sprintf("too many inputs to fit into max weight "+
			"[count %d, max %d]", countIn, MaxInputsPerBlock)
		return messageError("MsgTx.Deserialize", ErrTooManyInputs, str)
	}

	countOut, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if countOut > MaxOutputsPerBlock {
		str := fmt.Sprintf("too many outputs to fit into max weight "+
			"[count %d, max %d]", countOut, MaxOutputsPerBlock)
		return messageError("MsgTx.Deserialize", ErrTooManyOutputs, str)
	}

	countKern, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if countKern > MaxKernelsPerBlock {
		str := fmt.Sprintf("too many kernels to fit into max weight "+
			"[count %d, max %d]", countKern, MaxKernelsPerBlock)
		return messageError("MsgTx.Deserialize", ErrTooManyKernels, str)
	}

	msg.TxIn = make([]*TxIn, countIn)
	for i := range msg.TxIn {
		ti := new(TxIn)
		if err := readTxIn(r, ti); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	msg.TxOut = make([]*TxOut, countOut)
	for i := range msg.TxOut {
		to := new(TxOut)
		if err := readTxOut(r, to); err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	msg.Kernels = make([]*TxKernel, countKern)
	for i := range msg.Kernels {
		k := new(TxKernel)
		if err := readTxKernel(r, k); err != nil {
			return err
		}
		msg.Kernels[i] = k
	}

	return nil
}

// Serialize encodes the transaction to w using the canonical serialization.
func (msg *MsgTx) Serialize(w io.Writer) error {
	err := writeElement(w, &msg.KernelOffset)
	if err != nil {
		return err
	}
	err = WriteVarInt(w, uint64(len(msg.TxIn)))
	if err != nil {
		return err
	}
	err = WriteVarInt(w, uint64(len(msg.TxOut)))
	if err != nil {
		return err
	}
	err = WriteVarInt(w, uint64(len(msg.Kernels)))
	if err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeTxIn(w, ti); err != nil {
			return err
		}
	}
	for _, to := range msg.TxOut {
		if err := writeTxOut(w, to); err != nil {
			return err
		}
	}
	for _, k := range msg.Kernels {
		if err := writeTxKernel(w, k); err != nil {
			return err
		}
	}
	return nil
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (msg *MsgTx) SerializeSize() int {
	n := 32 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut))) +
		VarIntSerializeSize(uint64(len(msg.Kernels)))
	for _, ti := range msg.TxIn {
		n += ti.SerializeSize()
	}
	for _, to := range msg.TxOut {
		n += to.SerializeSize()
	}
	for _, k := range msg.Kernels {
		n += k.SerializeSize()
	}
	return n
}

// NewMsgTx returns a new transaction message with no inputs, outputs, or
// kernels.
func NewMsgTx() *MsgTx {
	return &MsgTx{}
}
