// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

// Block reward schedule constants.  The supply tops out at 21 million coins
// once every group has been mined out.
const (
	// GenesisBlockReward is the reward of the genesis block itself, sized
	// so the schedule lands on the supply cap exactly.
	GenesisBlockReward = 44_100_000

	// firstGroupReward is the boosted per-block reward of the first
	// group, distributing more coins to early adopters.
	firstGroupReward = 5_238_095_238

	// secondGroupReward is the per-block reward of the second group.
	// Every later group halves the previous one.
	secondGroupReward = 2_380_952_380

	// blocksPerGroup is the number of blocks in a reward group, roughly
	// four years of one minute blocks.
	blocksPerGroup = 2_100_000

	// rewardGroups is the number of groups carrying a nonzero reward.
	rewardGroups = 32
)

// BlockReward returns the base reward a coinbase output may claim at the
// provided height, excluding fees.  Blocks past the final group carry no
// reward and are sustained by fees alone.
func BlockReward(height uint64) uint64 {
	if height == 0 {
		return GenesisBlockReward
	}
	groupNum := (height - 1) / blocksPerGroup
	switch {
	case groupNum < 1:
		return firstGroupReward
	case groupNum >= rewardGroups:
		return 0
	default:
		return (secondGroupReward * 2) >> groupNum
	}
}

// BlockOverage returns the total number of coins rewarded by all blocks up
// to and including the provided height.  It is the expected total supply
// the chain's zero-sum check balances against.
func BlockOverage(height uint64) uint64 {
	blockCount := height
	overage := uint64(GenesisBlockReward)
	for group := uint64(0); group < rewardGroups; group++ {
		reward := uint64(firstGroupReward)
		if group > 0 {
			reward = BlockReward(group*blocksPerGroup + 1)
		}
		n := blockCount
		if n > blocksPerGroup {
			n = blocksPerGroup
		}
		overage += n * reward
		if blockCount < blocksPerGroup {
			break
		}
		blockCount -= blocksPerGroup
	}
	return overage
}
