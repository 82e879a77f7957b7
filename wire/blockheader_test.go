// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
)

// testHeader returns a header with every field populated with distinct
// recognizable values.
func testHeader() *BlockHeader {
	var prev, outputRoot, proofRoot, kernelRoot chainhash.Hash
	prev[0] = 0x10
	outputRoot[0] = 0x20
	proofRoot[0] = 0x30
	kernelRoot[0] = 0x40
	var offset [32]byte
	offset[31] = 0x05

	return &BlockHeader{
		Version:           1,
		Height:            1000,
		PrevBlock:         prev,
		Timestamp:         time.Unix(0x62f0c000, 0),
		OutputRoot:        outputRoot,
		RangeProofRoot:    proofRoot,
		KernelRoot:        kernelRoot,
		TotalKernelOffset: offset,
		OutputMMRSize:     2048,
		KernelMMRSize:     1100,
		Bits:              0x1d00ffff,
		TotalDifficulty:   123456,
		Nonce:             0xdeadbeef,
	}
}

// TestBlockHeaderSerialize tests that a header serializes to the fixed
// header length and decodes back to an identical value.
func TestBlockHeaderSerialize(t *testing.T) {
	header := testHeader()

	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: unexpected error: %v", err)
	}
	if buf.Len() != MaxHeaderPayload {
		t.Fatalf("serialized size mismatch: got %d want %d", buf.Len(),
			MaxHeaderPayload)
	}

	var decoded BlockHeader
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: unexpected error: %v", err)
	}
	if !reflect.DeepEqual(&decoded, header) {
		t.Fatalf("decoded header mismatch\n got: %s\nwant: %s",
			spew.Sdump(&decoded), spew.Sdump(header))
	}

	// The Bytes/FromBytes forms must agree with the stream forms.
	b, err := header.Bytes()
	if err != nil {
		t.Fatalf("Bytes: unexpected error: %v", err)
	}
	if !bytes.Equal(b, buf.Bytes()) {
		t.Fatalf("Bytes disagrees with Serialize")
	}
	var fromBytes BlockHeader
	if err := fromBytes.FromBytes(b); err != nil {
		t.Fatalf("FromBytes: unexpected error: %v", err)
	}
	if fromBytes.BlockHash() != header.BlockHash() {
		t.Fatalf("FromBytes header hash mismatch")
	}
}

// TestBlockHeaderHashes ensures the block hash and the proof of work hash
// both commit to the entire header.
func TestBlockHeaderHashes(t *testing.T) {
	header := testHeader()
	blockHash := header.BlockHash()
	powHash := header.PowHash()

	// The two hash functions are intentionally different.
	if powHash == blockHash {
		t.Fatalf("block hash and pow hash unexpectedly agree")
	}

	// Every mutation must change both hashes.
	mutations := []func(h *BlockHeader){
		func(h *BlockHeader) { h.Nonce++ },
		func(h *BlockHeader) { h.Height++ },
		func(h *BlockHeader) { h.OutputRoot[0] ^= 0xff },
		func(h *BlockHeader) { h.TotalKernelOffset[0] ^= 0xff },
		func(h *BlockHeader) { h.Bits ^= 1 },
	}
	for i, mutate := range mutations {
		mutated := *header
		mutate(&mutated)
		if mutated.BlockHash() == blockHash {
			t.Errorf("mutation %d did not change the block hash", i)
		}
		if mutated.PowHash() == powHash {
			t.Errorf("mutation %d did not change the pow hash", i)
		}
	}
}
