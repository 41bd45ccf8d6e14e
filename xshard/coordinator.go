// Package xshard implements the Cross-Shard Coordinator of spec.md §4.6:
// a lock -> transfer -> commit -> abort two-phase protocol for
// transactions whose From and To accounts live on different shards.
//
// The state machine generalizes the teacher's node/sc mainbridge/
// subbridge/bridge_manager value-transfer protocol — which locks a value
// on the origin chain, relays a transfer proof to the destination chain,
// then commits or reverts — from a two-chain bridge down to a two-shard
// transfer within one chain.
package xshard

import (
	"context"
	"sync"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/params"
	"github.com/qnet-project/qnet-core/qerrors"
)

var logger = log.NewModuleLogger(log.XShard)

// ShardClient is the narrow remote-call seam to another shard's
// coordinator, generalizing the teacher's bridge_manager peer-connection
// abstraction. node.shardMesh/shardClient backs this directly against a
// shard-owning *Node's own state for shards hosted in the same process; a
// multi-process deployment would instead back it with a grpc client
// without anything in this package changing.
type ShardClient interface {
	Lock(ctx context.Context, tx *types.CrossShardTx) ([]byte, error)
	Transfer(ctx context.Context, tx *types.CrossShardTx) ([]byte, error)
	Commit(ctx context.Context, tx *types.CrossShardTx) error
	Abort(ctx context.Context, tx *types.CrossShardTx) error
}

// ShardRegistry resolves a shard ID to a client, letting Coordinator stay
// agnostic of how peer shards are discovered/connected.
type ShardRegistry interface {
	ClientFor(shardID int) (ShardClient, error)
}

// Coordinator drives the lock -> transfer -> commit/abort cycle for
// cross-shard transactions, tracking each in-flight transfer until it
// completes, times out (TXShard), or is explicitly aborted.
type Coordinator struct {
	mu   sync.Mutex
	reg  ShardRegistry
	inFl map[common.Hash]*types.CrossShardTx
}

func NewCoordinator(reg ShardRegistry) *Coordinator {
	return &Coordinator{reg: reg, inFl: make(map[common.Hash]*types.CrossShardTx)}
}

// Begin starts a cross-shard transfer: validates the transaction is
// actually cross-shard (spec.md §7 ErrNotCrossShardTransaction), locks the
// origin shard's state, then relays the transfer proof to the destination
// shard.
func (c *Coordinator) Begin(ctx context.Context, tx *types.Transaction, fromShard, toShard int, now int64) (*types.CrossShardTx, error) {
	if fromShard == toShard {
		return nil, qerrors.ErrNotCrossShardTransaction
	}

	xtx := &types.CrossShardTx{
		TxHash:     tx.Hash,
		FromShard:  fromShard,
		ToShard:    toShard,
		Tx:         *tx,
		Status:     types.XShardPending,
		LockedAt:   now,
		DeadlineAt: now + int64(params.TXShard.Seconds()),
	}

	origin, err := c.reg.ClientFor(fromShard)
	if err != nil {
		return nil, qerrors.ErrShardNotFound
	}

	proof, err := origin.Lock(ctx, xtx)
	if err != nil {
		return nil, qerrors.Wrap(err, "lock origin shard")
	}
	xtx.LockProof = proof
	xtx.Status = types.XShardLocked

	c.mu.Lock()
	c.inFl[xtx.TxHash] = xtx
	c.mu.Unlock()

	dest, err := c.reg.ClientFor(toShard)
	if err != nil {
		c.Abort(ctx, xtx)
		return nil, qerrors.ErrShardNotFound
	}

	transferProof, err := dest.Transfer(ctx, xtx)
	if err != nil {
		c.Abort(ctx, xtx)
		return nil, qerrors.Wrap(err, "transfer to destination shard")
	}
	xtx.TransferProof = transferProof
	xtx.Status = types.XShardTransferred
	return xtx, nil
}

// Commit finalizes a Transferred cross-shard transaction on both shards.
func (c *Coordinator) Commit(ctx context.Context, xtx *types.CrossShardTx) error {
	if xtx.Status != types.XShardTransferred {
		return qerrors.ErrInvalidOperation
	}
	origin, err := c.reg.ClientFor(xtx.FromShard)
	if err != nil {
		return qerrors.ErrShardNotFound
	}
	dest, err := c.reg.ClientFor(xtx.ToShard)
	if err != nil {
		return qerrors.ErrShardNotFound
	}
	if err := origin.Commit(ctx, xtx); err != nil {
		return qerrors.Wrap(err, "commit origin shard")
	}
	if err := dest.Commit(ctx, xtx); err != nil {
		return qerrors.Wrap(err, "commit destination shard")
	}
	xtx.Status = types.XShardCommitted

	c.mu.Lock()
	delete(c.inFl, xtx.TxHash)
	c.mu.Unlock()
	return nil
}

// Abort unwinds a Locked or Transferred cross-shard transaction on every
// shard it touched, used both for explicit failure and for TXShard
// timeout expiry.
func (c *Coordinator) Abort(ctx context.Context, xtx *types.CrossShardTx) error {
	if origin, err := c.reg.ClientFor(xtx.FromShard); err == nil {
		if err := origin.Abort(ctx, xtx); err != nil {
			logger.Warn("abort origin shard failed", "tx", xtx.TxHash.Hex(), "err", err)
		}
	}
	if xtx.Status == types.XShardTransferred {
		if dest, err := c.reg.ClientFor(xtx.ToShard); err == nil {
			if err := dest.Abort(ctx, xtx); err != nil {
				logger.Warn("abort destination shard failed", "tx", xtx.TxHash.Hex(), "err", err)
			}
		}
	}
	xtx.Status = types.XShardAborted

	c.mu.Lock()
	delete(c.inFl, xtx.TxHash)
	c.mu.Unlock()
	return nil
}

// SweepExpired aborts every in-flight transaction past its TXShard
// deadline, to be run periodically (spec.md §4.6 timeout handling).
func (c *Coordinator) SweepExpired(ctx context.Context, now int64) {
	c.mu.Lock()
	expired := make([]*types.CrossShardTx, 0)
	for _, xtx := range c.inFl {
		if xtx.Expired(now) {
			expired = append(expired, xtx)
		}
	}
	c.mu.Unlock()

	for _, xtx := range expired {
		c.Abort(ctx, xtx)
	}
}

// InFlight returns the number of cross-shard transactions currently
// tracked (Locked or Transferred), for operator metrics.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFl)
}
