// Package rpc is the JSON-RPC surface of spec.md §6: a JSON-RPC 2.0
// server (`{jsonrpc, method, params, id}` -> `{jsonrpc, result|error,
// id}`) exposing node/chain/mempool/account/stats queries and
// transaction submission. Grounded on api/api_public_blockchain.go's
// Backend-interface-plus-thin-API-struct idiom, generalized from the
// teacher's single monolithic PublicBlockChainAPI to the smaller,
// QNet-specific method surface spec.md §6 names.
package rpc

import (
	"context"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
)

// Backend is every chain/mempool/reward/activation query and mutation
// the RPC surface needs, injected so this package never imports a
// concrete node wiring.
type Backend interface {
	Height() uint64
	Microblock(height uint64) (*types.Microblock, error)
	Microblocks(start uint64, limit int) ([]*types.Microblock, error)

	SubmitTransaction(tx *types.Transaction) error
	PendingTransactions() []*types.Transaction

	Account(addr common.Address) (*types.Account, error)

	RewardBalance(addr common.Address) types.PhaseAwareReward

	ActivationTransfer(ctx context.Context, code []byte, newWallet common.Address) error

	Peers() []string
	NodeInfo() NodeInfo
	Stats() Stats
}

// NodeInfo answers node_getInfo.
type NodeInfo struct {
	Version   string `json:"version"`
	NodeType  string `json:"node_type"`
	NodeID    string `json:"node_id"`
	ChainID   string `json:"chain_id"`
	ShardID   int    `json:"shard_id"`
}

// Stats answers stats_get.
type Stats struct {
	Height          uint64 `json:"height"`
	MempoolSize     int    `json:"mempool_size"`
	PeerCount       int    `json:"peer_count"`
	ReputationScore float64 `json:"reputation_score"`
}
