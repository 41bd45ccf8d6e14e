package reward

import "github.com/qnet-project/qnet-core/params"

// NodeClass is the coarse node-type grouping the fee-tier split (spec.md
// §4.2 Window processing) is keyed on.
type NodeClass int

const (
	ClassLight NodeClass = iota
	ClassFull
	ClassSuper
)

// FeeTierPct returns the transaction-fee pool percentage a node class
// receives, per spec.md §4.2: Super 70%, Full 30%, Light 0%.
func FeeTierPct(c NodeClass) int {
	switch c {
	case ClassSuper:
		return params.FeeTierPctSuper
	case ClassFull:
		return params.FeeTierPctFull
	default:
		return params.FeeTierPctLight
	}
}

// WindowInput is one eligible node's participation record for a single
// RewardWindowPeriod close. Presence in the slice at all means the node
// met its type-specific ping-success threshold this window (spec.md §4.2:
// "count eligible nodes by type") and so shares in pool1's and pool3's
// equal split and pool2's tier-divided split — regardless of how many
// microblocks it actually produced, which spec.md §4.2 does not weight by.
type WindowInput struct {
	Node  interface{ String() string }
	Class NodeClass
}

// WindowResult computes every eligible node's pool1/pool2/pool3 share for
// a closed window, per spec.md §4.2 Window processing's three formulas:
//
//	pool1_share = pool1_emission / total_eligible
//	pool2_share = (fees_pool * tier_pct) / eligible_of_that_tier
//	pool3_share = phase2 ? pool3_accumulated / total_eligible : 0
//
// feesPool is the window's single accumulated transaction-fee total
// (Pool 2's input, before the 70/30/0 Super/Full/Light tier split);
// pool3Total is the window's single accumulated activation-burn total
// (Pool 3's input, spec.md §8 scenario 3's "10,000 QNC in Pool 3"),
// meaningful only once phase2 is true — Phase 1 pays pool3_share=0 to
// every node regardless of pool3Total (spec.md §7 invariant: Phase 1 ⇒
// r.pool3 == 0).
func WindowResult(inputs []WindowInput, feesPool uint64, pool3Total uint64, phase2 bool, window uint64) map[string][3]uint64 {
	result := make(map[string][3]uint64, len(inputs))
	if len(inputs) == 0 {
		return result
	}

	totalEligible := uint64(len(inputs))
	tierEligible := make(map[NodeClass]uint64, 3)
	for _, in := range inputs {
		tierEligible[in.Class]++
	}

	pool1Share := EmissionForWindow(window) / totalEligible
	var pool3Share uint64
	if phase2 {
		pool3Share = pool3Total / totalEligible
	}

	for _, in := range inputs {
		var pool2Share uint64
		if n := tierEligible[in.Class]; n > 0 {
			pool2Share = (feesPool * uint64(FeeTierPct(in.Class)) / 100) / n
		}

		key := in.Node.String()
		entry := result[key]
		entry[0] += pool1Share
		entry[1] += pool2Share
		entry[2] += pool3Share
		result[key] = entry
	}
	return result
}
