package xshard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/qerrors"
)

type fakeShardClient struct {
	lockErr, transferErr, commitErr error
	aborted                         bool
}

func (c *fakeShardClient) Lock(ctx context.Context, tx *types.CrossShardTx) ([]byte, error) {
	if c.lockErr != nil {
		return nil, c.lockErr
	}
	return []byte("lock-proof"), nil
}

func (c *fakeShardClient) Transfer(ctx context.Context, tx *types.CrossShardTx) ([]byte, error) {
	if c.transferErr != nil {
		return nil, c.transferErr
	}
	return []byte("transfer-proof"), nil
}

func (c *fakeShardClient) Commit(ctx context.Context, tx *types.CrossShardTx) error { return c.commitErr }
func (c *fakeShardClient) Abort(ctx context.Context, tx *types.CrossShardTx) error {
	c.aborted = true
	return nil
}

type fakeShardRegistry struct {
	clients map[int]*fakeShardClient
	missing map[int]bool
}

func newFakeShardRegistry() *fakeShardRegistry {
	return &fakeShardRegistry{clients: make(map[int]*fakeShardClient), missing: make(map[int]bool)}
}

func (r *fakeShardRegistry) ClientFor(shardID int) (ShardClient, error) {
	if r.missing[shardID] {
		return nil, qerrors.ErrShardNotFound
	}
	c, ok := r.clients[shardID]
	if !ok {
		c = &fakeShardClient{}
		r.clients[shardID] = c
	}
	return c, nil
}

func newTx(hash string) *types.Transaction {
	tx := &types.Transaction{From: "alice", To: "bob", Amount: 10, GasPrice: 1, GasLimit: 1}
	tx.SetHash()
	return tx
}

func TestBeginRejectsSameShardTransaction(t *testing.T) {
	coord := NewCoordinator(newFakeShardRegistry())
	_, err := coord.Begin(context.Background(), newTx("t1"), 0, 0, 1000)
	assert.Equal(t, qerrors.ErrNotCrossShardTransaction, err)
}

func TestBeginLocksAndTransfersAcrossShards(t *testing.T) {
	reg := newFakeShardRegistry()
	coord := NewCoordinator(reg)

	xtx, err := coord.Begin(context.Background(), newTx("t1"), 0, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, types.XShardTransferred, xtx.Status)
	assert.Equal(t, 1, coord.InFlight())
}

func TestBeginAbortsOnTransferFailure(t *testing.T) {
	reg := newFakeShardRegistry()
	destClient := &fakeShardClient{}
	reg.clients[1] = destClient
	destClient.transferErr = assertErr{}

	coord := NewCoordinator(reg)
	_, err := coord.Begin(context.Background(), newTx("t1"), 0, 1, 1000)
	require.Error(t, err)
	assert.Equal(t, 0, coord.InFlight())
}

type assertErr struct{}

func (assertErr) Error() string { return "shard unreachable" }

func TestCommitRequiresTransferredStatus(t *testing.T) {
	coord := NewCoordinator(newFakeShardRegistry())
	xtx := &types.CrossShardTx{Status: types.XShardLocked}
	err := coord.Commit(context.Background(), xtx)
	assert.Equal(t, qerrors.ErrInvalidOperation, err)
}

func TestCommitFinalizesTransferredTransaction(t *testing.T) {
	reg := newFakeShardRegistry()
	coord := NewCoordinator(reg)

	xtx, err := coord.Begin(context.Background(), newTx("t1"), 0, 1, 1000)
	require.NoError(t, err)

	require.NoError(t, coord.Commit(context.Background(), xtx))
	assert.Equal(t, types.XShardCommitted, xtx.Status)
	assert.Equal(t, 0, coord.InFlight())
}

func TestSweepExpiredAbortsPastDeadline(t *testing.T) {
	reg := newFakeShardRegistry()
	coord := NewCoordinator(reg)

	xtx, err := coord.Begin(context.Background(), newTx("t1"), 0, 1, 1000)
	require.NoError(t, err)

	coord.SweepExpired(context.Background(), xtx.DeadlineAt+1)
	assert.Equal(t, types.XShardAborted, xtx.Status)
	assert.Equal(t, 0, coord.InFlight())
}
