package types

import "github.com/qnet-project/qnet-core/common"

// PhaseAwareReward is the per-node lazy-accumulation ledger entry of
// spec.md §4.2: pool contributions accrue as arithmetic updates to a
// per-node record rather than being pushed out every window, and are only
// realized into Account.Balance on Claim.
type PhaseAwareReward struct {
	Node common.Address

	// Pool1Accrued is the emission-pool share accrued but not yet claimed,
	// denominated in nanoQNC.
	Pool1Accrued uint64
	// Pool2Accrued is the transaction-fee pool share.
	Pool2Accrued uint64
	// Pool3Accrued is the activation-burn pool share.
	Pool3Accrued uint64

	LastWindowProcessed uint64 // window index, spec.md §4.2 RewardWindowPeriod-aligned
	LastClaimTimestamp  int64
}

// TotalAccrued sums all three pools, the amount a Claim would pay out.
func (r *PhaseAwareReward) TotalAccrued() uint64 {
	return r.Pool1Accrued + r.Pool2Accrued + r.Pool3Accrued
}

// Accrue adds window contributions to each pool without touching account
// balance, implementing the "lazy accumulation" behavior spec.md §4.2
// requires: rewards are computed once at window-close and merely recorded
// here until the node calls Claim.
func (r *PhaseAwareReward) Accrue(pool1, pool2, pool3 uint64, window uint64) {
	r.Pool1Accrued += pool1
	r.Pool2Accrued += pool2
	r.Pool3Accrued += pool3
	r.LastWindowProcessed = window
}

// Reset zeroes all three pools, called once Claim has transferred
// TotalAccrued into the node's Account.Balance.
func (r *PhaseAwareReward) Reset(claimedAt int64) {
	r.Pool1Accrued, r.Pool2Accrued, r.Pool3Accrued = 0, 0, 0
	r.LastClaimTimestamp = claimedAt
}
