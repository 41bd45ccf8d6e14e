package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qnet-project/qnet-core/common"
)

func TestFeeTierPctByClass(t *testing.T) {
	assert.Equal(t, 0, FeeTierPct(ClassLight))
	assert.Greater(t, FeeTierPct(ClassFull), FeeTierPct(ClassLight))
	assert.Greater(t, FeeTierPct(ClassSuper), FeeTierPct(ClassFull))
}

// TestWindowResultSplitsEmissionEquallyAcrossEligibleNodes is spec.md §8
// scenario 2: Phase 1, 3 nodes (1 Light, 1 Full, 1 Super) all ping
// successfully for one window; each node's pending Pool 1 share is
// emission/3 regardless of node type or production, and Pool 3 is zero
// for every node since the window is still Phase 1.
func TestWindowResultSplitsEmissionEquallyAcrossEligibleNodes(t *testing.T) {
	inputs := []WindowInput{
		{Node: common.Address("light-node"), Class: ClassLight},
		{Node: common.Address("full-node"), Class: ClassFull},
		{Node: common.Address("super-node"), Class: ClassSuper},
	}
	result := WindowResult(inputs, 0, 0, false, 0)

	want := EmissionForWindow(0) / 3
	assert.EqualValues(t, want, result["light-node"][0])
	assert.EqualValues(t, want, result["full-node"][0])
	assert.EqualValues(t, want, result["super-node"][0])

	assert.EqualValues(t, 0, result["light-node"][2])
	assert.EqualValues(t, 0, result["full-node"][2])
	assert.EqualValues(t, 0, result["super-node"][2])
}

// TestWindowResultSplitsPool3EquallyInPhaseTwo is spec.md §8 scenario 3:
// Phase 2, the same 3 nodes plus 10,000 QNC in Pool 3; each node's share
// is 10_000/3 with truncated integer division.
func TestWindowResultSplitsPool3EquallyInPhaseTwo(t *testing.T) {
	inputs := []WindowInput{
		{Node: common.Address("light-node"), Class: ClassLight},
		{Node: common.Address("full-node"), Class: ClassFull},
		{Node: common.Address("super-node"), Class: ClassSuper},
	}
	result := WindowResult(inputs, 0, 10_000, true, 0)

	want := uint64(10_000 / 3)
	assert.EqualValues(t, want, result["light-node"][2])
	assert.EqualValues(t, want, result["full-node"][2])
	assert.EqualValues(t, want, result["super-node"][2])
}

// TestWindowResultDividesFeePoolByTierEligibleCount verifies pool2_share =
// (fees_pool * tier_pct) / eligible_of_that_tier: two Super nodes split
// Super's 70% tier allocation between them, a single Light node gets
// nothing since FeeTierPct(Light) == 0.
func TestWindowResultDividesFeePoolByTierEligibleCount(t *testing.T) {
	inputs := []WindowInput{
		{Node: common.Address("super-a"), Class: ClassSuper},
		{Node: common.Address("super-b"), Class: ClassSuper},
		{Node: common.Address("light-node"), Class: ClassLight},
	}
	result := WindowResult(inputs, 1000, 0, false, 0)

	superTierShare := (1000 * uint64(FeeTierPct(ClassSuper)) / 100) / 2
	assert.EqualValues(t, superTierShare, result["super-a"][1])
	assert.EqualValues(t, superTierShare, result["super-b"][1])
	assert.EqualValues(t, 0, result["light-node"][1])
}

func TestWindowResultHandlesNoEligibleNodesWithoutPanicking(t *testing.T) {
	result := WindowResult(nil, 1000, 500, true, 0)
	assert.Empty(t, result)
}
