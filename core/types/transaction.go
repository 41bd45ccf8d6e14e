// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package types holds the QNet wire and state data model: Transaction,
// Microblock, Macroblock, Account and the reward/activation/cross-shard
// records of spec.md §3.
//
// The teacher dispatches per-transaction-type behavior through a family of
// TxInternalData* structs behind a common interface (see
// blockchain/types/tx_internal_data_value_transfer.go). spec.md §9's design
// notes call for the lighter-weight alternative explicitly: "model as
// tagged variants ... avoids a runtime vtable while preserving
// pluggability". Transaction is therefore a single struct carrying a
// TxType discriminant plus the superset of fields any type needs, with
// type-specific behavior dispatched by a switch in the few places it
// matters (hashing, fee calculation, executor application).
package types

import (
	"encoding/binary"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/qerrors"
)

// TxType enumerates the transaction variants of spec.md §3.
type TxType uint8

const (
	TxTransfer TxType = iota
	TxNodeActivation
	TxStake
	TxUnstake
	TxCreateAccount
	TxContractDeploy
	TxContractCall
	TxRewardDistribution
)

func (t TxType) String() string {
	switch t {
	case TxTransfer:
		return "Transfer"
	case TxNodeActivation:
		return "NodeActivation"
	case TxStake:
		return "Stake"
	case TxUnstake:
		return "Unstake"
	case TxCreateAccount:
		return "CreateAccount"
	case TxContractDeploy:
		return "ContractDeploy"
	case TxContractCall:
		return "ContractCall"
	case TxRewardDistribution:
		return "RewardDistribution"
	default:
		return "Unknown"
	}
}

// ActivationPhase mirrors the Phase 1/Phase 2 economic phases of spec.md §4.2,
// carried on NodeActivation transactions since the fee-forwarding behavior
// depends on which phase was active when the activation was submitted.
type ActivationPhase uint8

const (
	PhaseOne ActivationPhase = 1
	PhaseTwo ActivationPhase = 2
)

// Transaction is the single wire/state representation of every transaction
// variant named in spec.md §3. Fields not used by a given Type are left at
// their zero value.
type Transaction struct {
	Hash      common.Hash
	From      common.Address
	To        common.Address // optional: zero Address means "no recipient"
	Amount    uint64
	Nonce     uint64
	GasPrice  uint64
	GasLimit  uint64
	Timestamp int64
	Signature []byte
	Type      TxType
	Data      []byte

	// NodeActivation-only fields.
	ActivationNodeType int
	BurnAmount         uint64
	Phase              ActivationPhase
}

// Fee is gas_price * gas_limit, per spec.md §4.4.
func (t *Transaction) Fee() uint64 {
	return t.GasPrice * t.GasLimit
}

// fieldsWithoutHashAndSignature serializes every Transaction field except
// Hash and Signature into the byte stream digested to produce Hash, per
// spec.md §3's invariant "hash == digest(fields)". Field order is fixed so
// the digest is reproducible across nodes and releases.
func (t *Transaction) fieldsWithoutHashAndSignature() [][]byte {
	u64 := func(v uint64) []byte {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		return b[:]
	}
	i64 := func(v int64) []byte { return u64(uint64(v)) }

	return [][]byte{
		[]byte(t.From),
		[]byte(t.To),
		u64(t.Amount),
		u64(t.Nonce),
		u64(t.GasPrice),
		u64(t.GasLimit),
		i64(t.Timestamp),
		{byte(t.Type)},
		t.Data,
		u64(uint64(t.ActivationNodeType)),
		u64(t.BurnAmount),
		{byte(t.Phase)},
	}
}

// ComputeHash computes the deterministic digest of every field except Hash
// and Signature (spec.md §3 Transaction invariant).
func (t *Transaction) ComputeHash() common.Hash {
	return common.DigestFields(t.fieldsWithoutHashAndSignature()...)
}

// SetHash stamps Hash with ComputeHash's result. Callers constructing a new
// transaction must call this (or VerifyHash will reject it).
func (t *Transaction) SetHash() {
	t.Hash = t.ComputeHash()
}

// VerifyHash enforces the Transaction invariant from spec.md §3 and §8:
// "hash == digest(fields); rejected otherwise".
func (t *Transaction) VerifyHash() error {
	if t.ComputeHash() != t.Hash {
		return qerrors.ErrValidationFailed
	}
	return nil
}
