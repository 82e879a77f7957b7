// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
)

// MsgBlock implements the Message interface and represents a block message.
// The body is a single cut-through aggregate: the inputs, outputs, and
// kernels of all transactions in the block with spent-within-block pairs
// already elided, plus the block's aggregate kernel offset folded into the
// header's total.
type MsgBlock struct {
	Header  BlockHeader
	TxIn    []*TxIn
	TxOut   []*TxOut
	Kernels []*TxKernel
}

// AddTxIn adds a transaction input to the block body.
func (msg *MsgBlock) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
}

// AddTxOut adds a transaction output to the block body.
func (msg *MsgBlock) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
}

// AddKernel adds a kernel to the block body.
func (msg *MsgBlock) AddKernel(k *TxKernel) {
	msg.Kernels = append(msg.Kernels, k)
}

// BlockHash computes the block identifier hash for this block.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// TotalFee returns the sum of the fees declared by the block's kernels.
func (msg *MsgBlock) TotalFee() uint64 {
	var fee uint64
	for _, k := range msg.Kernels {
		fee += k.Fee
	}
	return fee
}

// Weight returns the consensus weight of the block body.
func (msg *MsgBlock) Weight() int {
	return BlockWeight(len(msg.TxIn), len(msg.TxOut), len(msg.Kernels))
}

// Deserialize decodes a block from r into the receiver using the canonical
// serialization.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	err := readBlockHeader(r, &msg.Header)
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
		return messageError("MsgBlock.Deserialize", ErrTooManyInputs, str)
	}

	countOut, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if countOut > MaxOutputsPerBlock {
		str := fmt.Sprintf("too many outputs to fit into max weight "+
			"[count %d, max %d]", countOut, MaxOutputsPerBlock)
		return messageError("MsgBlock.Deserialize", ErrTooManyOutputs, str)
	}

	countKern, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if countKern > MaxKernelsPerBlock {
		str := fmt.Sprintf("too many kernels to fit into max weight "+
			"[count %d, max %d]", countKern, MaxKernelsPerBlock)
		return messageError("MsgBlock.Deserialize", ErrTooManyKernels, str)
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

// Serialize encodes the block to w using the canonical serialization.
func (msg *MsgBlock) Serialize(w io.Writer) error {
	err := writeBlockHeader(w, &msg.Header)
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
// block.
func (msg *MsgBlock) SerializeSize() int {
	n := blockHeaderLen + VarIntSerializeSize(uint64(len(msg.TxIn))) +
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

// NewMsgBlock returns a new block message that conforms to the Message
// interface using the provided block header.
func NewMsgBlock(blockHeader *BlockHeader) *MsgBlock {
	return &MsgBlock{Header: *blockHeader}
}
