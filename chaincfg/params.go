// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/wire"
)

// bigOne is 1 represented as a big.Int.  It is defined here to avoid the
// overhead of creating it multiple times.
var bigOne = big.NewInt(1)

// CurrencyNet represents which network a message belongs to.
type CurrencyNet uint32

// Constants used to indicate the network.
const (
	// MainNet represents the main network.
	MainNet CurrencyNet = 0xd9b4bef9

	// SimNet represents the simulation test network.
	SimNet CurrencyNet = 0x12141c16
)

// Params defines a network by its consensus parameters.  These parameters
// may be used by applications to differentiate networks as well as address
// and key formats.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net CurrencyNet

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the block hash of the genesis block.
	GenesisHash chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a
	// block as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// MinDifficulty is the floor the difficulty retarget may never drop
	// below.
	MinDifficulty uint64

	// TargetTimePerBlock is the desired amount of time between blocks.
	TargetTimePerBlock time.Duration

	// DifficultyWindow is the number of most recent blocks the difficulty
	// retarget averages over.
	DifficultyWindow uint64

	// DampFactor dampens the observed window timespan toward the target
	// timespan before retargeting.
	DampFactor uint64

	// ClampFactor bounds how far the dampened timespan may deviate from
	// the target timespan in either direction.
	ClampFactor uint64

	// CoinbaseMaturity is the number of blocks a coinbase output must age
	// before it may be spent.
	CoinbaseMaturity uint64

	// CutThroughHorizon is the depth beyond which the chain state is
	// considered final and spent outputs may be compacted away.
	CutThroughHorizon uint64

	// MaxOrphanBlocks is the maximum number of orphan blocks retained in
	// memory while waiting for their parents.
	MaxOrphanBlocks int
}

// These variables are the chain constants shared by every network.
const (
	// minDifficulty is the difficulty floor for the main network.  It
	// matches the damp factor so dampening cannot pin the retarget
	// below the floor.
	minDifficulty = 3

	// blockTimeSec is one minute expressed in seconds.
	blockTimeSec = 60

	// hourHeight is the number of blocks in an hour.
	hourHeight = 3600 / blockTimeSec

	// dayHeight is the number of blocks in a day.
	dayHeight = 24 * hourHeight

	// weekHeight is the number of blocks in a week.
	weekHeight = 7 * dayHeight
)

// MainNetParams returns the network parameters for the main network.
func MainNetParams() *Params {
	// The proof of work limit corresponds to the lowest possible
	// difficulty of 1: 2^256 / 2^32 expressed as a uint256.
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)
	genesisBlock := mainNetGenesisBlock()
	return &Params{
		Name:               "mainnet",
		Net:                MainNet,
		GenesisBlock:       genesisBlock,
		GenesisHash:        genesisBlock.BlockHash(),
		PowLimit:           powLimit,
		PowLimitBits:       0x1d00ffff,
		MinDifficulty:      minDifficulty,
		TargetTimePerBlock: blockTimeSec * time.Second,
		DifficultyWindow:   hourHeight,
		DampFactor:         3,
		ClampFactor:        2,
		CoinbaseMaturity:   dayHeight,
		CutThroughHorizon:  weekHeight,
		MaxOrphanBlocks:    500,
	}
}

// SimNetParams returns the network parameters for the simulation test
// network.  This network is intended for private use within a group of
// individuals doing simulation testing, so the difficulty floor is low
// enough to mine blocks trivially.
func SimNetParams() *Params {
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
	genesisBlock := simNetGenesisBlock()
	return &Params{
		Name:               "simnet",
		Net:                SimNet,
		GenesisBlock:       genesisBlock,
		GenesisHash:        genesisBlock.BlockHash(),
		PowLimit:           powLimit,
		PowLimitBits:       0x207fffff,
		MinDifficulty:      1,
		TargetTimePerBlock: blockTimeSec * time.Second,
		DifficultyWindow:   hourHeight,
		DampFactor:         3,
		ClampFactor:        2,
		CoinbaseMaturity:   16,
		CutThroughHorizon:  32,
		MaxOrphanBlocks:    500,
	}
}
