// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/mimblenet/mnd/wire"
)

// mainNetGenesisBlock returns the genesis block for the main network.  The
// body is empty: the chain's accumulators all start at the zero hash and
// the genesis reward is accounted for by the supply schedule rather than by
// a spendable output.
func mainNetGenesisBlock() *wire.MsgBlock {
	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:         1,
			Height:          0,
			Timestamp:       time.Unix(1706745600, 0), // 2024-02-01 00:00:00 UTC
			Bits:            0x1d00ffff,
			TotalDifficulty: minDifficulty,
		},
	}
}

// simNetGenesisBlock returns the genesis block for the simulation test
// network.
func simNetGenesisBlock() *wire.MsgBlock {
	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:         1,
			Height:          0,
			Timestamp:       time.Unix(1706745600, 0), // 2024-02-01 00:00:00 UTC
			Bits:            0x207fffff,
			TotalDifficulty: 1,
		},
	}
}
