package node

import (
	"context"
	"errors"
	"sync"

	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/xshard"
)

// shardMesh is a real, in-process xshard.ShardRegistry: it resolves a
// shard ID to whichever *Node this process (or a multi-node test/local
// deployment wired with ConnectShard) has registered for it, generalizing
// the teacher's bridge_manager peer-connection table from a two-chain
// bridge down to a same-process multi-shard mesh. A production
// deployment with shards split across separate processes would replace
// this with a grpc-backed ShardRegistry satisfying the same interface;
// nothing in xshard.Coordinator changes either way.
type shardMesh struct {
	mu     sync.RWMutex
	shards map[int]*Node
}

func newShardMesh() *shardMesh {
	return &shardMesh{shards: make(map[int]*Node)}
}

func (m *shardMesh) register(shardID int, n *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shards[shardID] = n
}

func (m *shardMesh) ClientFor(shardID int) (xshard.ShardClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.shards[shardID]
	if !ok {
		return nil, errors.New("no node registered for shard")
	}
	return &shardClient{n: n}, nil
}

// shardClient is the real ShardClient implementation, backed directly by
// a shard-owning *Node's own account state rather than a remote call: the
// two-phase Lock/Transfer/Commit/Abort cycle generalizes the teacher's
// mainbridge/subbridge value-transfer handlers (which lock on the origin
// chain, relay a proof, then commit or revert on the destination chain)
// down to a direct call against this process's own state.DB, appropriate
// wherever the origin and destination shard are both hosted in this
// process's shardMesh.
type shardClient struct {
	n *Node
}

// Lock escrows tx's amount out of the sender's balance on the origin
// shard (spec.md §4.6: "after Lock, A.balance=500 and tx.status=Locked").
func (c *shardClient) Lock(ctx context.Context, tx *types.CrossShardTx) ([]byte, error) {
	if err := c.n.accounts.Debit(tx.Tx.From, tx.Tx.Amount); err != nil {
		return nil, err
	}
	if err := c.n.accounts.Commit(); err != nil {
		return nil, err
	}
	return []byte("locked:" + tx.TxHash.Hex()), nil
}

// Transfer credits tx's amount into the recipient's balance on the
// destination shard (spec.md §4.6: "after Transfer+Commit, B.balance=500").
func (c *shardClient) Transfer(ctx context.Context, tx *types.CrossShardTx) ([]byte, error) {
	if err := c.n.accounts.Credit(tx.Tx.To, tx.Tx.Amount); err != nil {
		return nil, err
	}
	if err := c.n.accounts.Commit(); err != nil {
		return nil, err
	}
	return []byte("transferred:" + tx.TxHash.Hex()), nil
}

// Commit is a no-op here: both legs of value movement already happened,
// durably, during Lock and Transfer; Commit only needs to exist so the
// Coordinator has a place to mark the transaction finalized on both
// shards once it is sure neither leg will be unwound.
func (c *shardClient) Commit(ctx context.Context, tx *types.CrossShardTx) error {
	return nil
}

// Abort unwinds whichever leg this shard actually performed: the origin
// shard refunds its escrow (spec.md §8 scenario 6: "If Transfer fails,
// A.balance restored to 1000"); the destination shard claws back a
// credit that had already landed before the abort was requested (e.g. a
// SweepExpired timeout after a successful Transfer that was never
// committed) — Coordinator only calls Abort on the origin after Lock has
// already succeeded, so the origin branch below is unconditional.
func (c *shardClient) Abort(ctx context.Context, tx *types.CrossShardTx) error {
	if tx.FromShard == c.n.cfg.ShardID {
		if err := c.n.accounts.Credit(tx.Tx.From, tx.Tx.Amount); err != nil {
			return err
		}
		return c.n.accounts.Commit()
	}
	if tx.ToShard == c.n.cfg.ShardID && tx.Status == types.XShardTransferred {
		if err := c.n.accounts.Debit(tx.Tx.To, tx.Tx.Amount); err != nil {
			return err
		}
		return c.n.accounts.Commit()
	}
	return nil
}

// ConnectShard wires peer into this node's shard mesh under shardID, the
// explicit step a multi-node local deployment (or a test simulating
// several shards) takes in place of the grpc service-discovery a
// cross-process deployment would use instead. Symmetric: callers
// typically connect both directions so either node can initiate a
// cross-shard transfer against the other.
func (n *Node) ConnectShard(shardID int, peer *Node) {
	n.mesh.register(shardID, peer)
}
