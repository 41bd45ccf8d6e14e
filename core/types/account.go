package types

import "github.com/qnet-project/qnet-core/common"

// Account is the state-tree record of spec.md §3 Account: balance, nonce
// and the node-activation bookkeeping a wallet accumulates over its
// lifetime.
type Account struct {
	Address common.Address
	Balance uint64
	Nonce   uint64

	// ActivatedNodeType is set once the account has successfully submitted
	// a NodeActivation transaction. Light is 0, so ActivatedNodeFlag is
	// what marks an account as activated.
	ActivatedNodeType  int
	ActivatedNodeFlag  bool
	ActivationBlock    uint64
}

// CanAfford reports whether the account can cover amount plus fee without
// going negative (spec.md §4.4 executor pre-check).
func (a *Account) CanAfford(amount, fee uint64) bool {
	total := amount + fee
	if total < amount {
		return false // overflow
	}
	return a.Balance >= total
}
