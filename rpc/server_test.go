package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/qerrors"
)

type stubBackend struct {
	height   uint64
	accounts map[common.Address]*types.Account
	pending  []*types.Transaction
	submitErr error
}

func (s *stubBackend) Height() uint64 { return s.height }
func (s *stubBackend) Microblock(height uint64) (*types.Microblock, error) {
	return &types.Microblock{Height: height}, nil
}
func (s *stubBackend) Microblocks(start uint64, limit int) ([]*types.Microblock, error) {
	out := make([]*types.Microblock, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, &types.Microblock{Height: start + uint64(i)})
	}
	return out, nil
}
func (s *stubBackend) SubmitTransaction(tx *types.Transaction) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.pending = append(s.pending, tx)
	return nil
}
func (s *stubBackend) PendingTransactions() []*types.Transaction { return s.pending }
func (s *stubBackend) Account(addr common.Address) (*types.Account, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc, nil
	}
	return &types.Account{Address: addr}, nil
}
func (s *stubBackend) RewardBalance(addr common.Address) types.PhaseAwareReward {
	return types.PhaseAwareReward{Node: addr}
}
func (s *stubBackend) ActivationTransfer(ctx context.Context, code []byte, newWallet common.Address) error {
	return nil
}
func (s *stubBackend) Peers() []string   { return []string{"peer-1", "peer-2"} }
func (s *stubBackend) NodeInfo() NodeInfo { return NodeInfo{Version: "test", NodeType: "Full"} }
func (s *stubBackend) Stats() Stats       { return Stats{Height: s.height, PeerCount: 2} }

func call(t *testing.T, srv *Server, method string, params interface{}) *Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	req := Request{JSONRPC: "2.0", Method: method, Params: raw, ID: json.RawMessage(`1`)}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	srv.handler.ServeHTTP(rr, httpReq)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return &resp
}

func TestChainGetHeight(t *testing.T) {
	b := &stubBackend{height: 42}
	srv := NewServer(b)

	resp := call(t, srv, "chain_getHeight", nil)
	require.Nil(t, resp.Error)
	assert.EqualValues(t, 42, resp.Result)
}

func TestTxSubmitAppliesDefaultGas(t *testing.T) {
	b := &stubBackend{accounts: map[common.Address]*types.Account{}}
	srv := NewServer(b)

	resp := call(t, srv, "tx_submit", map[string]interface{}{
		"from": "alice", "to": "bob", "amount": 10,
	})
	require.Nil(t, resp.Error)
	require.Len(t, b.pending, 1)
	assert.EqualValues(t, defaultGasPrice, b.pending[0].GasPrice)
	assert.EqualValues(t, defaultGasLimit, b.pending[0].GasLimit)
}

func TestMempoolSubmitAcceptsBatch(t *testing.T) {
	b := &stubBackend{}
	srv := NewServer(b)

	resp := call(t, srv, "mempool_submit", []map[string]interface{}{
		{"from": "alice", "to": "bob", "amount": 1},
		{"from": "alice", "to": "carol", "amount": 2},
	})
	require.Nil(t, resp.Error)
	assert.Len(t, b.pending, 2)
}

func TestMempoolSubmitAcceptsSingle(t *testing.T) {
	b := &stubBackend{}
	srv := NewServer(b)

	resp := call(t, srv, "mempool_submit", map[string]interface{}{
		"from": "alice", "to": "bob", "amount": 1,
	})
	require.Nil(t, resp.Error)
	assert.Len(t, b.pending, 1)
}

func TestUnknownMethodReturnsValidationError(t *testing.T) {
	b := &stubBackend{}
	srv := NewServer(b)

	resp := call(t, srv, "does_not_exist", nil)
	require.NotNil(t, resp.Error)
	assert.EqualValues(t, qerrors.CodeValidationFailed, resp.Error.Code)
}

func TestTxSubmitPropagatesTaxonomyErrorCode(t *testing.T) {
	b := &stubBackend{submitErr: qerrors.ErrMempoolFull}
	srv := NewServer(b)

	resp := call(t, srv, "tx_submit", map[string]interface{}{
		"from": "alice", "to": "bob", "amount": 1,
	})
	require.NotNil(t, resp.Error)
	assert.EqualValues(t, qerrors.CodeMempoolFull, resp.Error.Code)
}

func TestChainGetBlocksClampsLimit(t *testing.T) {
	b := &stubBackend{height: 1000}
	srv := NewServer(b)

	resp := call(t, srv, "chain_getBlocks", map[string]interface{}{"start": 0, "limit": 500})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var blocks []*types.Microblock
	require.NoError(t, json.Unmarshal(raw, &blocks))
	assert.Len(t, blocks, maxBlocksPerRequest)
}
