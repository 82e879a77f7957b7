// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "testing"

// TestBlockReward ensures the reward schedule pays the boosted first group,
// halves from the second group on, and terminates after the last group.
func TestBlockReward(t *testing.T) {
	tests := []struct {
		name   string
		height uint64
		want   uint64
	}{
		{name: "genesis", height: 0, want: 44_100_000},
		{name: "first block", height: 1, want: 5_238_095_238},
		{name: "end of first group", height: 2_100_000, want: 5_238_095_238},
		{name: "start of second group", height: 2_100_001, want: 2_380_952_380},
		{name: "end of second group", height: 4_200_000, want: 2_380_952_380},
		{name: "third group halves", height: 4_200_001, want: 1_190_476_190},
		{name: "fourth group halves", height: 6_300_001, want: 595_238_095},
		{name: "last paying group", height: 65_100_001, want: 2},
		{name: "beyond last group", height: 67_200_001, want: 0},
	}
	for _, test := range tests {
		if got := BlockReward(test.height); got != test.want {
			t.Errorf("%q: BlockReward(%d): got %d, want %d", test.name,
				test.height, got, test.want)
		}
	}
}

// TestBlockOverage ensures cumulative supply accounting matches the reward
// schedule block by block across a group boundary.
func TestBlockOverage(t *testing.T) {
	if got := BlockOverage(0); got != GenesisBlockReward {
		t.Fatalf("BlockOverage(0): got %d, want %d", got,
			GenesisBlockReward)
	}
	if got, want := BlockOverage(1), uint64(GenesisBlockReward+5_238_095_238); got != want {
		t.Fatalf("BlockOverage(1): got %d, want %d", got, want)
	}

	// The overage across the first group boundary advances by exactly the
	// second group reward.
	atBoundary := BlockOverage(2_100_000)
	pastBoundary := BlockOverage(2_100_001)
	if pastBoundary-atBoundary != 2_380_952_380 {
		t.Fatalf("overage step across group boundary: got %d, want %d",
			pastBoundary-atBoundary, uint64(2_380_952_380))
	}
}

// TestParams ensures the per-network parameters are distinguishable and
// internally consistent.
func TestParams(t *testing.T) {
	mainNet := MainNetParams()
	simNet := SimNetParams()
	if mainNet.Net == simNet.Net {
		t.Fatal("mainnet and simnet share a network magic")
	}
	if mainNet.GenesisHash == simNet.GenesisHash {
		t.Fatal("mainnet and simnet share a genesis hash")
	}
	for _, params := range []*Params{mainNet, simNet} {
		if params.GenesisBlock.Header.Height != 0 {
			t.Errorf("%s: genesis height is %d", params.Name,
				params.GenesisBlock.Header.Height)
		}
		if got := params.GenesisBlock.BlockHash(); got != params.GenesisHash {
			t.Errorf("%s: genesis hash mismatch: got %v, want %v",
				params.Name, got, params.GenesisHash)
		}
	}
}
