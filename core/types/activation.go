package types

import "github.com/qnet-project/qnet-core/common"

// ActivationRecord is the registry entry created when a NodeActivation
// transaction is finalized (spec.md §3 ActivationRecord, §4.1 Registry).
// Code is the Blake3 digest of the activation code per spec.md; this
// implementation substitutes SHA3-256 (common.Sum256) since no Blake3
// library is available to this module — see DESIGN.md's Open Question
// decision on hashing.
type ActivationRecord struct {
	Code       common.Hash
	Owner      common.Address
	NodeType   int
	Phase      ActivationPhase
	BurnAmount uint64
	Height     uint64
	Timestamp  int64

	// MigratedFrom/MigratedAt record the last device-migration event, the
	// deactivation signal for the superseded owner. The spec.md §4.1 rate
	// limit is checked against the chain's migration history instead.
	MigratedFrom common.Address
	MigratedAt   int64
}

// OwnedBy reports whether candidate is the code's registered owner,
// implementing the ownership-mismatch check spec.md §7 requires before
// allowing re-activation or migration.
func (a *ActivationRecord) OwnedBy(candidate common.Address) bool {
	return a.Owner == candidate
}
