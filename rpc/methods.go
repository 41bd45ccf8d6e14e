package rpc

import (
	"context"
	"encoding/json"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/qerrors"
)

// methodHandler decodes params, calls the Backend, and returns a JSON
// result or an error implementing qerrors.Taxonomy.
type methodHandler func(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error)

// methods is the full set of spec.md §6's named RPC methods.
var methods = map[string]methodHandler{
	"node_getInfo":            handleNodeGetInfo,
	"node_getStatus":          handleNodeGetStatus,
	"node_getPeers":           handleNodeGetPeers,
	"chain_getHeight":         handleChainGetHeight,
	"chain_getBlock":          handleChainGetBlock,
	"chain_getBlocks":         handleChainGetBlocks,
	"tx_submit":               handleTxSubmit,
	"mempool_getTransactions": handleMempoolGetTransactions,
	"mempool_submit":          handleMempoolSubmit,
	"account_getInfo":         handleAccountGetInfo,
	"account_getBalance":      handleAccountGetBalance,
	"stats_get":               handleStatsGet,
	"node_transfer":           handleNodeTransfer,
}

func handleNodeGetInfo(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	return b.NodeInfo(), nil
}

func handleNodeGetStatus(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	return map[string]interface{}{
		"height":  b.Height(),
		"peers":   len(b.Peers()),
		"mempool": len(b.PendingTransactions()),
	}, nil
}

func handleNodeGetPeers(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	return b.Peers(), nil
}

func handleChainGetHeight(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	return b.Height(), nil
}

type blockParams struct {
	Height uint64 `json:"height"`
}

func handleChainGetBlock(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	var p blockParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, qerrors.ErrValidationFailed
	}
	return b.Microblock(p.Height)
}

type blocksParams struct {
	Start uint64 `json:"start"`
	Limit int    `json:"limit"`
}

const maxBlocksPerRequest = 100

func handleChainGetBlocks(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	var p blocksParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, qerrors.ErrValidationFailed
	}
	if p.Limit <= 0 || p.Limit > maxBlocksPerRequest {
		p.Limit = maxBlocksPerRequest
	}
	return b.Microblocks(p.Start, p.Limit)
}

type txSubmitParams struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Amount   uint64         `json:"amount"`
	GasPrice uint64         `json:"gas_price,omitempty"`
	GasLimit uint64         `json:"gas_limit,omitempty"`
}

const (
	defaultGasPrice = 1
	defaultGasLimit = 21000
)

func buildTransfer(p txSubmitParams) *types.Transaction {
	if p.GasPrice == 0 {
		p.GasPrice = defaultGasPrice
	}
	if p.GasLimit == 0 {
		p.GasLimit = defaultGasLimit
	}
	tx := &types.Transaction{
		From: p.From, To: p.To, Amount: p.Amount,
		GasPrice: p.GasPrice, GasLimit: p.GasLimit,
		Type: types.TxTransfer,
	}
	tx.SetHash()
	return tx
}

func handleTxSubmit(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	var p txSubmitParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, qerrors.ErrValidationFailed
	}
	tx := buildTransfer(p)
	if err := b.SubmitTransaction(tx); err != nil {
		return nil, err
	}
	return tx.Hash, nil
}

func handleMempoolGetTransactions(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	return b.PendingTransactions(), nil
}

// handleMempoolSubmit accepts either a single txSubmitParams object or a
// JSON array of them, per spec.md §6's "accepts single or batch".
func handleMempoolSubmit(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	var batch []txSubmitParams
	if err := json.Unmarshal(params, &batch); err != nil {
		var single txSubmitParams
		if err := json.Unmarshal(params, &single); err != nil {
			return nil, qerrors.ErrValidationFailed
		}
		batch = []txSubmitParams{single}
	}

	hashes := make([]common.Hash, 0, len(batch))
	for _, p := range batch {
		tx := buildTransfer(p)
		if err := b.SubmitTransaction(tx); err != nil {
			return nil, err
		}
		hashes = append(hashes, tx.Hash)
	}
	return hashes, nil
}

type addressParams struct {
	Address common.Address `json:"address"`
}

func handleAccountGetInfo(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	var p addressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, qerrors.ErrValidationFailed
	}
	return b.Account(p.Address)
}

func handleAccountGetBalance(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	var p addressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, qerrors.ErrValidationFailed
	}
	acc, err := b.Account(p.Address)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

func handleStatsGet(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	return b.Stats(), nil
}

type nodeTransferParams struct {
	ActivationCode string         `json:"activation_code"`
	NewWallet      common.Address `json:"new_wallet"`
}

func handleNodeTransfer(ctx context.Context, b Backend, params json.RawMessage) (interface{}, error) {
	var p nodeTransferParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, qerrors.ErrValidationFailed
	}
	if err := b.ActivationTransfer(ctx, []byte(p.ActivationCode), p.NewWallet); err != nil {
		return nil, err
	}
	return true, nil
}
