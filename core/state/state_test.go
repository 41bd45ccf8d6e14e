package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/storage/database"
)

type stubFeeSink struct {
	pool2 map[common.Address]uint64
	pool3 map[common.Address]uint64
}

func newStubFeeSink() *stubFeeSink {
	return &stubFeeSink{pool2: map[common.Address]uint64{}, pool3: map[common.Address]uint64{}}
}

func (s *stubFeeSink) AccruePool2(addr common.Address, fee uint64, window uint64) error {
	s.pool2[addr] += fee
	return nil
}

func (s *stubFeeSink) AccruePool3(addr common.Address, amount uint64, window uint64) error {
	s.pool3[addr] += amount
	return nil
}

type stubActivationSink struct {
	activated map[common.Address]int
}

func newStubActivationSink() *stubActivationSink {
	return &stubActivationSink{activated: map[common.Address]int{}}
}

func (s *stubActivationSink) Activate(owner common.Address, code []byte, nodeType int, phase types.ActivationPhase, burnAmount uint64, height uint64) error {
	s.activated[owner] = nodeType
	return nil
}

func seedAccount(t *testing.T, db *DB, addr common.Address, balance, nonce uint64) {
	t.Helper()
	db.put(&types.Account{Address: addr, Balance: balance, Nonce: nonce})
	require.NoError(t, db.Commit())
}

func TestExecutorApplyTransferDeductsAndCredits(t *testing.T) {
	db := NewDB(database.NewMemDatabase())
	seedAccount(t, db, "alice", 1000, 0)

	fees := newStubFeeSink()
	ex := NewExecutor(db, fees, nil)

	tx := &types.Transaction{From: "alice", To: "bob", Amount: 100, Nonce: 0, GasPrice: 2, GasLimit: 5}
	require.NoError(t, ex.Apply(tx, 1, 10))
	require.NoError(t, db.Commit())

	alice, err := db.Get("alice")
	require.NoError(t, err)
	bob, err := db.Get("bob")
	require.NoError(t, err)

	assert.EqualValues(t, 1000-100-10, alice.Balance)
	assert.EqualValues(t, 1, alice.Nonce)
	assert.EqualValues(t, 100, bob.Balance)
	assert.EqualValues(t, 10, fees.pool2["alice"])
}

func TestExecutorApplyRejectsNonceGap(t *testing.T) {
	db := NewDB(database.NewMemDatabase())
	seedAccount(t, db, "alice", 1000, 5)

	ex := NewExecutor(db, nil, nil)
	tx := &types.Transaction{From: "alice", To: "bob", Amount: 1, Nonce: 0}
	err := ex.Apply(tx, 1, 1)
	require.Error(t, err)

	alice, err := db.Get("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, alice.Balance, "a rejected transaction must not mutate the account map")
}

func TestExecutorApplyRejectsInsufficientBalance(t *testing.T) {
	db := NewDB(database.NewMemDatabase())
	seedAccount(t, db, "alice", 10, 0)

	ex := NewExecutor(db, nil, nil)
	tx := &types.Transaction{From: "alice", To: "bob", Amount: 100, Nonce: 0}
	require.Error(t, ex.Apply(tx, 1, 1))
}

func TestExecutorApplySelfAddressedNodeActivation(t *testing.T) {
	db := NewDB(database.NewMemDatabase())
	seedAccount(t, db, "alice", 1000, 0)

	fees := newStubFeeSink()
	activation := newStubActivationSink()
	ex := NewExecutor(db, fees, activation)

	tx := &types.Transaction{
		From: "alice", To: "alice", Amount: 0, Nonce: 0,
		Type: types.TxNodeActivation, ActivationNodeType: 2,
		Phase: types.PhaseTwo, BurnAmount: 500, Data: []byte("activation-code"),
	}
	require.NoError(t, ex.Apply(tx, 7, 42))
	require.NoError(t, db.Commit())

	alice, err := db.Get("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, alice.Nonce, "self-addressed tx must still bump the sender's nonce")
	assert.True(t, alice.ActivatedNodeFlag)
	assert.EqualValues(t, 2, alice.ActivatedNodeType)
	assert.EqualValues(t, 500, fees.pool3["alice"])
	assert.Equal(t, 2, activation.activated["alice"])
}

func TestExecutorDiscardDropsPendingOverlay(t *testing.T) {
	db := NewDB(database.NewMemDatabase())
	seedAccount(t, db, "alice", 1000, 0)

	ex := NewExecutor(db, nil, nil)
	tx := &types.Transaction{From: "alice", To: "bob", Amount: 50, Nonce: 0}
	require.NoError(t, ex.Apply(tx, 1, 1))

	db.Discard()
	require.NoError(t, db.Commit())

	alice, err := db.Get("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, alice.Balance, "Discard must roll back the in-flight overlay")
}
