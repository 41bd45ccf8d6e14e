package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/qerrors"
)

type fakeAccountState struct {
	balances map[common.Address]uint64
	nonces   map[common.Address]uint64
}

func newFakeAccountState() *fakeAccountState {
	return &fakeAccountState{balances: make(map[common.Address]uint64), nonces: make(map[common.Address]uint64)}
}

func (f *fakeAccountState) Balance(addr common.Address) uint64 { return f.balances[addr] }
func (f *fakeAccountState) Nonce(addr common.Address) uint64   { return f.nonces[addr] }

func newTx(from common.Address, nonce, gasPrice uint64) *types.Transaction {
	tx := &types.Transaction{
		From:     from,
		To:       common.Address("bob"),
		Amount:   10,
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: 21000,
		Type:     types.TxTransfer,
	}
	tx.SetHash()
	return tx
}

func TestAddAcceptsFundedInOrderTransaction(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 1_000_000

	pool := NewPool(state, 8, 1024)
	require.NoError(t, pool.Add(newTx(alice, 0, 5)))
	assert.Equal(t, 1, pool.Len())
}

func TestAddRejectsDuplicateHash(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 1_000_000

	pool := NewPool(state, 8, 1024)
	tx := newTx(alice, 0, 5)
	require.NoError(t, pool.Add(tx))
	assert.Equal(t, qerrors.ErrDuplicateTransaction, pool.Add(tx))
}

func TestAddRejectsStaleNonce(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 1_000_000
	state.nonces[alice] = 5

	pool := NewPool(state, 8, 1024)
	err := pool.Add(newTx(alice, 3, 5))
	assert.Equal(t, qerrors.ErrInvalidNonce, err)
}

func TestAddRejectsNonceGap(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 1_000_000

	pool := NewPool(state, 8, 1024)
	err := pool.Add(newTx(alice, 2, 5))
	var gapErr *qerrors.NonceGap
	require.ErrorAs(t, err, &gapErr)
	assert.EqualValues(t, 0, gapErr.Expected)
	assert.EqualValues(t, 2, gapErr.Got)
}

func TestAddAcceptsContiguousNonceChain(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 1_000_000

	pool := NewPool(state, 8, 1024)
	require.NoError(t, pool.Add(newTx(alice, 0, 5)))
	require.NoError(t, pool.Add(newTx(alice, 1, 5)))
	assert.Equal(t, 2, pool.Len())
}

func TestAddRejectsInsufficientBalance(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 100

	pool := NewPool(state, 8, 1024)
	err := pool.Add(newTx(alice, 0, 5))
	var balErr *qerrors.InsufficientBalance
	require.ErrorAs(t, err, &balErr)
}

func TestAddEnforcesPerAccountLimit(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 1_000_000

	pool := NewPool(state, 2, 1024)
	require.NoError(t, pool.Add(newTx(alice, 0, 5)))
	require.NoError(t, pool.Add(newTx(alice, 1, 5)))
	err := pool.Add(newTx(alice, 2, 5))
	assert.Equal(t, qerrors.ErrAccountLimitExceeded, err)
}

func TestAddEvictsLowestPriorityUnderGlobalPressure(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	bob := common.Address("bob-sender")
	state.balances[alice] = 1_000_000
	state.balances[bob] = 10_000_000

	pool := NewPool(state, 8, 1)
	lowPriority := newTx(alice, 0, 1)
	require.NoError(t, pool.Add(lowPriority))

	highPriority := newTx(bob, 0, 100)
	require.NoError(t, pool.Add(highPriority))

	assert.Equal(t, 1, pool.Len())
	_, stillPresent := pool.Get(lowPriority.Hash)
	assert.False(t, stillPresent)
	_, present := pool.Get(highPriority.Hash)
	assert.True(t, present)
}

func TestAddRejectsWhenFullAndNotHigherPriority(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	bob := common.Address("bob-sender")
	state.balances[alice] = 10_000_000
	state.balances[bob] = 1_000_000

	pool := NewPool(state, 8, 1)
	require.NoError(t, pool.Add(newTx(alice, 0, 100)))
	err := pool.Add(newTx(bob, 0, 1))
	assert.Equal(t, qerrors.ErrMempoolFull, err)
}

func TestTopByPriorityOrdersDescendingGasPrice(t *testing.T) {
	state := newFakeAccountState()
	state.balances[common.Address("a")] = 1_000_000
	state.balances[common.Address("b")] = 1_000_000
	state.balances[common.Address("c")] = 1_000_000

	pool := NewPool(state, 8, 1024)
	require.NoError(t, pool.Add(newTx(common.Address("a"), 0, 3)))
	require.NoError(t, pool.Add(newTx(common.Address("b"), 0, 9)))
	require.NoError(t, pool.Add(newTx(common.Address("c"), 0, 1)))

	top := pool.TopByPriority(2)
	require.Len(t, top, 2)
	assert.EqualValues(t, 9, top[0].GasPrice)
	assert.EqualValues(t, 3, top[1].GasPrice)
}

func TestRemoveDropsTransaction(t *testing.T) {
	state := newFakeAccountState()
	alice := common.Address("alice")
	state.balances[alice] = 1_000_000

	pool := NewPool(state, 8, 1024)
	tx := newTx(alice, 0, 5)
	require.NoError(t, pool.Add(tx))

	pool.Remove(tx.Hash)
	assert.Equal(t, 0, pool.Len())
	_, ok := pool.Get(tx.Hash)
	assert.False(t, ok)
}
