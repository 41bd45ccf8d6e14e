// Package state is the Transaction Executor (spec §4.4): it applies
// transactions to account state and stages the result as a pending
// overlay until a microblock is accepted, mirroring the teacher's
// blockchain/state package's separation between an in-memory dirty set
// and the persisted trie — generalized here from a Merkle-Patricia trie
// of RLP-encoded accounts to a flat, storage.AccountsCF-backed map of
// JSON-encoded accounts, since QNet has no contract storage trie.
package state

import (
	"encoding/json"
	"sync"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/qerrors"
	"github.com/qnet-project/qnet-core/storage/database"
)

var logger = log.NewModuleLogger(log.Executor)

// FeeSink receives every transaction's fee for crediting into the reward
// ledger's Pool 2, keeping this package free of a hard reward.Ledger
// dependency.
type FeeSink interface {
	AccruePool2(addr common.Address, fee uint64, window uint64) error
}

// ActivationSink is notified when a NodeActivation transaction commits,
// so the activation registry can record it without this package
// importing activation directly.
type ActivationSink interface {
	Activate(owner common.Address, code []byte, nodeType int, phase types.ActivationPhase, burnAmount uint64, height uint64) error
}

// DB is the committed account store, backed by storage.Store's
// AccountsCF in production and an in-memory database.Database in tests.
type DB struct {
	backing database.Database

	mu      sync.RWMutex
	dirty   map[common.Address]*types.Account
	deleted map[common.Address]bool
}

// NewDB wraps backing (typically store.CF(storage.AccountsCF)) with a
// pending-overlay layer, matching the "pending state overlay" spec §4.5
// step 3 describes for in-flight microblock application.
func NewDB(backing database.Database) *DB {
	return &DB{
		backing: backing,
		dirty:   make(map[common.Address]*types.Account),
		deleted: make(map[common.Address]bool),
	}
}

func accountKey(addr common.Address) []byte {
	return append([]byte("acct:"), []byte(string(addr))...)
}

// Get returns the account for addr, consulting the pending overlay
// before falling back to the committed backing store. A never-seen
// address returns a fresh zero-value account, not an error — QNet
// accounts are implicitly created on first credit.
func (db *DB) Get(addr common.Address) (*types.Account, error) {
	db.mu.RLock()
	if db.deleted[addr] {
		db.mu.RUnlock()
		return &types.Account{Address: addr}, nil
	}
	if acc, ok := db.dirty[addr]; ok {
		db.mu.RUnlock()
		cp := *acc
		return &cp, nil
	}
	db.mu.RUnlock()

	raw, err := db.backing.Get(accountKey(addr))
	if err != nil {
		return &types.Account{Address: addr}, nil
	}
	var acc types.Account
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Balance satisfies mempool.AccountState, letting the mempool validate
// admission against committed-plus-pending balance without importing
// this package's *types.Account directly.
func (db *DB) Balance(addr common.Address) uint64 {
	acc, err := db.Get(addr)
	if err != nil {
		return 0
	}
	return acc.Balance
}

// Nonce satisfies mempool.AccountState.
func (db *DB) Nonce(addr common.Address) uint64 {
	acc, err := db.Get(addr)
	if err != nil {
		return 0
	}
	return acc.Nonce
}

// put stages acc into the pending overlay. Callers must hold no lock;
// put acquires its own.
func (db *DB) put(acc *types.Account) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *acc
	db.dirty[acc.Address] = &cp
	delete(db.deleted, acc.Address)
}

// Commit flushes the pending overlay to the backing store in a single
// batch, then clears the overlay. Mirrors state.StateDB.Commit's
// dirty-to-trie flush, minus the trie.
func (db *DB) Commit() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	batch := db.backing.NewBatch()
	for addr, acc := range db.dirty {
		raw, err := json.Marshal(acc)
		if err != nil {
			return err
		}
		if err := batch.Put(accountKey(addr), raw); err != nil {
			return err
		}
	}
	for addr := range db.deleted {
		_ = db.backing.Delete(accountKey(addr))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	db.dirty = make(map[common.Address]*types.Account)
	db.deleted = make(map[common.Address]bool)
	return nil
}

// Credit adds amount to addr's balance and stages the result, satisfying
// reward.BalanceCredit so Ledger.Claim can realize an accrued reward into
// spendable balance without this package depending on reward.
func (db *DB) Credit(addr common.Address, amount uint64) error {
	acc, err := db.Get(addr)
	if err != nil {
		return err
	}
	acc.Balance += amount
	db.put(acc)
	return nil
}

// Debit subtracts amount from addr's balance and stages the result,
// failing with qerrors.InsufficientBalance rather than underflowing —
// the symmetric counterpart to Credit that the cross-shard Coordinator's
// Lock phase uses to escrow a sender's balance on the origin shard
// (spec.md §4.6) before the transfer is proven on the destination shard.
func (db *DB) Debit(addr common.Address, amount uint64) error {
	acc, err := db.Get(addr)
	if err != nil {
		return err
	}
	if acc.Balance < amount {
		return &qerrors.InsufficientBalance{Have: acc.Balance, Need: amount}
	}
	acc.Balance -= amount
	db.put(acc)
	return nil
}

// Discard drops the pending overlay without committing it, used when a
// microblock fails verification after tentative application.
func (db *DB) Discard() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dirty = make(map[common.Address]*types.Account)
	db.deleted = make(map[common.Address]bool)
}

// Executor applies transactions to a DB, per spec §4.4: deduct
// amount+fee from the sender, credit the recipient, route the fee to
// Pool 2, bump the sender's nonce, and — for NodeActivation — flip the
// activation flag and forward burn_amount to Pool 3 through rewards.
type Executor struct {
	db         *DB
	fees       FeeSink
	activation ActivationSink
}

func NewExecutor(db *DB, fees FeeSink, activation ActivationSink) *Executor {
	return &Executor{db: db, fees: fees, activation: activation}
}

// Apply executes tx against the executor's DB at the given reward
// window and block height. Every mutation is staged through put(), and
// put() only runs after every precondition passes, so a rejected
// transaction leaves the account map — dirty or committed — untouched.
func (ex *Executor) Apply(tx *types.Transaction, window uint64, height uint64) error {
	sender, err := ex.db.Get(tx.From)
	if err != nil {
		return err
	}

	if tx.Nonce != sender.Nonce {
		return &qerrors.NonceGap{Expected: sender.Nonce, Got: tx.Nonce}
	}

	fee := tx.Fee()
	if !sender.CanAfford(tx.Amount, fee) {
		return &qerrors.InsufficientBalance{Have: sender.Balance, Need: tx.Amount + fee}
	}

	sender.Balance -= tx.Amount + fee
	sender.Nonce++

	var recipient *types.Account
	if tx.To == tx.From {
		// Self-addressed transactions (e.g. a node activating its own
		// wallet) must mutate a single account object: fetching a second
		// copy here would silently discard the sender's deduction and
		// nonce bump once both copies are written back.
		recipient = sender
	} else {
		recipient, err = ex.db.Get(tx.To)
		if err != nil {
			return err
		}
	}
	recipient.Balance += tx.Amount

	if tx.Type == types.TxNodeActivation {
		recipient.ActivatedNodeFlag = true
		recipient.ActivatedNodeType = tx.ActivationNodeType
		recipient.ActivationBlock = height
		if tx.Phase == types.PhaseTwo && ex.fees != nil {
			if err := ex.accruePool3(recipient.Address, tx.BurnAmount, window); err != nil {
				return err
			}
		}
		if ex.activation != nil {
			if err := ex.activation.Activate(recipient.Address, tx.Data, tx.ActivationNodeType, tx.Phase, tx.BurnAmount, height); err != nil {
				return err
			}
		}
	}

	if ex.fees != nil && fee > 0 {
		if err := ex.fees.AccruePool2(sender.Address, fee, window); err != nil {
			return err
		}
	}

	ex.db.put(sender)
	if recipient != sender {
		ex.db.put(recipient)
	}
	return nil
}

func (ex *Executor) accruePool3(addr common.Address, amount uint64, window uint64) error {
	type pool3Sink interface {
		AccruePool3(addr common.Address, amount uint64, window uint64) error
	}
	if s, ok := ex.fees.(pool3Sink); ok {
		return s.AccruePool3(addr, amount, window)
	}
	return nil
}
