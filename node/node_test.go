package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	cfg := DefaultConfig
	cfg.DBType = "memory"
	n, err := New(cfg)
	require.NoError(t, err)
	return n
}

func TestNewWiresEveryComponent(t *testing.T) {
	n := newTestNode(t)
	defer n.Close()

	assert := require.New(t)
	assert.NotNil(n.accounts)
	assert.NotNil(n.executor)
	assert.NotNil(n.mempool)
	assert.NotNil(n.ledger)
	assert.NotNil(n.activation)
	assert.NotNil(n.xshard)
	assert.NotNil(n.consensus)
}

func TestSubmitTransactionAppliesThroughExecutorOnCommit(t *testing.T) {
	n := newTestNode(t)
	defer n.Close()

	sender := common.Address("alice")
	recipient := common.Address("bob")

	require.NoError(t, n.accounts.Credit(sender, 50_000))
	require.NoError(t, n.accounts.Commit())

	tx := &types.Transaction{From: sender, To: recipient, Amount: 100, Nonce: 0, GasPrice: 1, GasLimit: 21000, Type: types.TxTransfer}
	tx.SetHash()

	require.NoError(t, n.SubmitTransaction(tx))
	require.Len(t, n.PendingTransactions(), 1)

	require.NoError(t, n.executor.Apply(tx, 0, 1))
	require.NoError(t, n.Commit(&types.Microblock{Height: 1}))

	recAcc, err := n.Account(recipient)
	require.NoError(t, err)
	require.EqualValues(t, 100, recAcc.Balance)

	assert := require.New(t)
	assert.EqualValues(1, n.Height())
}

func TestRewardBalanceReflectsAccruedFees(t *testing.T) {
	n := newTestNode(t)
	defer n.Close()

	node := common.Address("validator-1")
	n.ledger.Accrue(node, 0, 50, 0, 1)

	bal := n.RewardBalance(node)
	require.EqualValues(t, 50, bal.Pool2Accrued)
}

func TestNodeInfoAndStatsReportConfiguredIdentity(t *testing.T) {
	n := newTestNode(t)
	defer n.Close()

	info := n.NodeInfo()
	require.Equal(t, "full", info.NodeType)

	stats := n.Stats()
	require.EqualValues(t, 0, stats.Height)
}
