package types

import "github.com/qnet-project/qnet-core/common"

// XShardStatus is the cross-shard transaction state machine of spec.md
// §4.6: Locked -> Transferred -> Committed, or Locked/Transferred ->
// Aborted on timeout (TXShard) or failure.
type XShardStatus int

const (
	XShardPending XShardStatus = iota
	XShardLocked
	XShardTransferred
	XShardCommitted
	XShardAborted
)

func (s XShardStatus) String() string {
	switch s {
	case XShardPending:
		return "Pending"
	case XShardLocked:
		return "Locked"
	case XShardTransferred:
		return "Transferred"
	case XShardCommitted:
		return "Committed"
	case XShardAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// CrossShardTx tracks a transaction whose From and To accounts live on
// different shards through the lock -> transfer -> commit -> abort
// protocol (spec.md §4.6, grounded in the teacher's mainbridge/subbridge
// two-phase value transfer).
type CrossShardTx struct {
	TxHash     common.Hash
	FromShard  int
	ToShard    int
	Tx         Transaction
	Status     XShardStatus
	LockedAt   int64
	DeadlineAt int64 // LockedAt + TXShard

	// LockProof and TransferProof record the proofs returned by the
	// origin shard's Lock and the destination shard's Transfer.
	LockProof     []byte
	TransferProof []byte
}

// Expired reports whether now has passed this transaction's TXShard
// deadline while still Locked or Transferred, per spec.md §4.6's abort
// rule.
func (c *CrossShardTx) Expired(now int64) bool {
	if c.Status != XShardLocked && c.Status != XShardTransferred {
		return false
	}
	return now >= c.DeadlineAt
}
