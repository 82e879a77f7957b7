// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/mimblenet/mnd/chaincfg/chainhash"
	"github.com/mimblenet/mnd/wire"
)

// hashToBig converts a chainhash.Hash into a big.Int that can be used to
// perform math comparisons.
func hashToBig(hash *chainhash.Hash) *big.Int {
	// A Hash is in little-endian, but the big package wants the bytes in
	// big-endian, so reverse them.
	buf := *hash
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}

	return new(big.Int).SetBytes(buf[:])
}

// compactToBig converts a compact representation of a whole number N to an
// unsigned 32-bit number.  The representation is similar to IEEE754
// floating point numbers.
//
// Like IEEE754 floating point, there are three basic components: the sign,
// the exponent, and the mantissa.  They are broken out of the 32-bit number
// as follows:
//
//	* the most significant 8 bits represent the unsigned base 256 exponent
//	* bit 23 (the 24th bit) represents the sign bit
//	* the least significant 23 bits represent the mantissa
//
// The formula to calculate N is:
//
//	N = (-1^sign) * mantissa * 256^(exponent-3)
func compactToBig(compact uint32) *big.Int {
	// Extract the mantissa, sign bit, and exponent.
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	// Since the base for the exponent is 256, the exponent can be treated
	// as the number of bytes to represent the full 256-bit number.  So,
	// treat the exponent as the number of bytes and shift the mantissa
	// right or left accordingly.
	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	// Make it negative if the sign bit is set.
	if isNegative {
		bn = bn.Neg(bn)
	}

	return bn
}

// bigToCompact converts a whole number N to a compact representation using
// an unsigned 32-bit number.  The compact representation only provides 23
// bits of precision, so values larger than (2^23 - 1) only encode the most
// significant digits of the number.
func bigToCompact(n *big.Int) uint32 {
	// No need to do any work if it's zero.
	if n.Sign() == 0 {
		return 0
	}

	// Since the base for the exponent is 256, the exponent can be treated
	// as the number of bytes.  So, shift the number right or left
	// accordingly.  This is equivalent to:
	// mantissa = mantissa >> (8 * (exponent - 3))
	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		// Use a copy to avoid modifying the caller's original number.
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	// When the mantissa already has the sign bit set, the number is too
	// large to fit into the available 23-bits, so divide the number by 256
	// and increment the exponent accordingly.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	// Pack the exponent, sign bit, and mantissa into an unsigned 32-bit
	// int and return it.
	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// difficultyFromBits returns the difficulty of a block with the provided
// compact target as a scalar: the ratio of the proof of work limit to the
// target.  Higher values mean harder blocks.
func (b *BlockChain) difficultyFromBits(bits uint32) uint64 {
	target := compactToBig(bits)
	if target.Sign() <= 0 {
		return 0
	}
	diff := new(big.Int).Div(b.chainParams.PowLimit, target)
	if !diff.IsUint64() {
		return ^uint64(0)
	}
	if diff.Uint64() == 0 {
		return 1
	}
	return diff.Uint64()
}

// bitsForDifficulty returns the compact target a block of the provided
// difficulty must meet.
func (b *BlockChain) bitsForDifficulty(difficulty uint64) uint32 {
	if difficulty == 0 {
		difficulty = 1
	}
	target := new(big.Int).Div(b.chainParams.PowLimit,
		new(big.Int).SetUint64(difficulty))
	return bigToCompact(target)
}

// damp dampens the observed timespan toward the goal timespan, weighing
// the goal factor-1 times against one observation.
func damp(actual, goal, factor uint64) uint64 {
	return (actual + (factor-1)*goal) / factor
}

// clampTimespan bounds the provided timespan within factor of the goal on
// either side.
func clampTimespan(actual, goal, factor uint64) uint64 {
	if lower := goal / factor; actual < lower {
		return lower
	}
	if upper := goal * factor; actual > upper {
		return upper
	}
	return actual
}

// blockDifficulty returns the difficulty contributed by the provided node
// alone.
func blockDifficulty(node *blockNode) uint64 {
	if node.parent == nil {
		return node.totalDifficulty
	}
	return node.totalDifficulty - node.parent.totalDifficulty
}

// calcNextRequiredDifficulty calculates the required difficulty for the
// block after the provided node.
//
// The difficulty retargets every block over a sliding window: the sum of
// the window's block difficulties is scaled by the ratio of the target
// block time to the observed per-block time, after the observed window
// timespan has been dampened toward the goal and clamped within the
// allowed swing.  History missing before the genesis block is simulated as
// ideally spaced minimum difficulty blocks.
func (b *BlockChain) calcNextRequiredDifficulty(prevNode *blockNode) uint64 {
	params := b.chainParams
	window := params.DifficultyWindow
	blockTime := uint64(params.TargetTimePerBlock / time.Second)

	// Gather the window+1 most recent timestamps and the window most
	// recent per-block difficulties, newest first.
	timestamps := make([]int64, 0, window+1)
	var diffSum uint64
	node := prevNode
	for i := uint64(0); i < window+1; i++ {
		if node != nil {
			timestamps = append(timestamps, node.timestamp)
			if i < window {
				diffSum += blockDifficulty(node)
			}
			node = node.parent
			continue
		}
		last := timestamps[len(timestamps)-1]
		timestamps = append(timestamps, last-int64(blockTime))
		if i < window {
			diffSum += params.MinDifficulty
		}
	}

	var observed uint64
	if delta := timestamps[0] - timestamps[len(timestamps)-1]; delta > 0 {
		observed = uint64(delta)
	}
	goal := window * blockTime
	adjusted := clampTimespan(damp(observed, goal, params.DampFactor), goal,
		params.ClampFactor)

	nextDiff := diffSum * blockTime / adjusted
	if nextDiff < params.MinDifficulty {
		nextDiff = params.MinDifficulty
	}
	return nextDiff
}

// checkProofOfWork ensures the block header bits which indicate the target
// difficulty is in min/max range and that the proof of work hash is less
// than the target difficulty as claimed.
func checkProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	// The target difficulty must be larger than zero.
	target := compactToBig(header.Bits)
	if target.Sign() <= 0 {
		str := fmt.Sprintf("block target difficulty of %064x is too low",
			target)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The target difficulty must be less than the maximum allowed.
	if target.Cmp(powLimit) > 0 {
		str := fmt.Sprintf("block target difficulty of %064x is higher "+
			"than max of %064x", target, powLimit)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The proof of work hash must be less than the claimed target.
	powHash := header.PowHash()
	if hashToBig(&powHash).Cmp(target) > 0 {
		str := fmt.Sprintf("block hash of %064x is higher than expected "+
			"max of %064x", hashToBig(&powHash), target)
		return ruleError(ErrHighHash, str)
	}

	return nil
}
