// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"lukechampine.com/blake3"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
)

// MaxHeaderPayload is the maximum number of bytes a block header can be.
// Version 4 bytes + Height 8 bytes + PrevBlock hash + Timestamp 8 bytes +
// three MMR root hashes + TotalKernelOffset 32 bytes + two MMR sizes 8 bytes
// each + Bits 4 bytes + TotalDifficulty 8 bytes + Nonce 8 bytes.
const MaxHeaderPayload = 4 + 8 + chainhash.HashSize + 8 +
	3*chainhash.HashSize + 32 + 8 + 8 + 4 + 8 + 8

// BlockHeader defines information about a block and is used in the block
// (MsgBlock) and headers (header-first sync) messages.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	Version uint32

	// Height of the block in the chain.
	Height uint64

	// Hash of the previous block header in the block chain.
	PrevBlock chainhash.Hash

	// Time the block was created.
	Timestamp time.Time

	// OutputRoot is the bagged-peaks root of the output MMR as of this
	// block.
	OutputRoot chainhash.Hash

	// RangeProofRoot is the bagged-peaks root of the range proof MMR as of
	// this block.
	RangeProofRoot chainhash.Hash

	// KernelRoot is the bagged-peaks root of the kernel MMR as of this
	// block.
	KernelRoot chainhash.Hash

	// TotalKernelOffset is the accumulated kernel offset scalar of the
	// chain up to and including this block.
	TotalKernelOffset [32]byte

	// OutputMMRSize is the number of leaves in the output (and range
	// proof) MMR as of this block.
	OutputMMRSize uint64

	// KernelMMRSize is the number of leaves in the kernel MMR as of this
	// block.
	KernelMMRSize uint64

	// Bits is the difficulty target for the block in compact form.
	Bits uint32

	// TotalDifficulty is the cumulative difficulty of the chain up to and
	// including this block.
	TotalDifficulty uint64

	// Nonce is the proof-of-work nonce.
	Nonce uint64
}

// blockHeaderLen is a constant that represents the number of bytes for a
// block header.
const blockHeaderLen = MaxHeaderPayload

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	// Encode the header and hash everything.  Ignore the error returns
	// since there is no way the encode could fail except being out of
	// memory which would cause a run-time panic.
	buf := bytes.NewBuffer(make([]byte, 0, blockHeaderLen))
	_ = writeBlockHeader(buf, h)

	return chainhash.HashH(buf.Bytes())
}

// PowHash calculates and returns the proof of work hash for the block
// header.  It is distinct from the block hash so the mining function can be
// changed without altering block identity.
func (h *BlockHeader) PowHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, blockHeaderLen))
	_ = writeBlockHeader(buf, h)

	return chainhash.Hash(blake3.Sum256(buf.Bytes()))
}

// Deserialize decodes a block header from r into the receiver using the
// canonical serialization.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// Serialize encodes a block header from r into the receiver using the
// canonical serialization.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Bytes returns the serialized form of the block header in the canonical
// serialization.
func (h *BlockHeader) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(blockHeaderLen)
	err := h.Serialize(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromBytes deserializes a block header byte slice.
func (h *BlockHeader) FromBytes(b []byte) error {
	return h.Deserialize(bytes.NewReader(b))
}

// readBlockHeader reads a block header from r.
func readBlockHeader(r io.Reader, bh *BlockHeader) error {
	var ts int64
	err := readElements(r, &bh.Version, &bh.Height, &bh.PrevBlock, &ts,
		&bh.OutputRoot, &bh.RangeProofRoot, &bh.KernelRoot,
		&bh.TotalKernelOffset, &bh.OutputMMRSize, &bh.KernelMMRSize,
		&bh.Bits, &bh.TotalDifficulty, &bh.Nonce)
	if err != nil {
		return err
	}
	bh.Timestamp = time.Unix(ts, 0)
	return nil
}

// writeBlockHeader writes a block header to w.
func writeBlockHeader(w io.Writer, bh *BlockHeader) error {
	return writeElements(w, bh.Version, bh.Height, &bh.PrevBlock,
		bh.Timestamp.Unix(), &bh.OutputRoot, &bh.RangeProofRoot,
		&bh.KernelRoot, &bh.TotalKernelOffset, bh.OutputMMRSize,
		bh.KernelMMRSize, bh.Bits, bh.TotalDifficulty, bh.Nonce)
}

// NewBlockHeader returns a new BlockHeader using the provided previous block
// hash, MMR roots and sizes, difficulty bits, and nonce.  The remaining
// fields are left for the caller to fill in.
func NewBlockHeader(prevHash *chainhash.Hash, outputRoot, rangeProofRoot,
	kernelRoot *chainhash.Hash, bits uint32, nonce uint64) *BlockHeader {

	return &BlockHeader{
		Version:        1,
		PrevBlock:      *prevHash,
		Timestamp:      time.Unix(time.Now().Unix(), 0),
		OutputRoot:     *outputRoot,
		RangeProofRoot: *rangeProofRoot,
		KernelRoot:     *kernelRoot,
		Bits:           bits,
		Nonce:          nonce,
	}
}
