// Package mempool implements the pending-transaction pool of spec.md §4.3:
// a three-index structure (by hash, by account+nonce, by priority) with
// admission validation, per-account/global capacity limits, nonce-gap
// detection, priority-based eviction and an MEV bundle sidecar.
//
// The three-index shape and eviction-under-pressure behavior mirror the
// teacher's transaction pool's pending/queued/priced split; this module
// generalizes it to QNet's tagged-variant Transaction and adds the bundle
// sidecar from original_source/core/qnet-mempool/src/mev_protection.rs,
// which the distilled spec.md omits (see SPEC_FULL.md's Supplemented
// Features section).
package mempool

import (
	"container/heap"
	"sync"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/params"
	"github.com/qnet-project/qnet-core/qerrors"
)

var logger = log.NewModuleLogger(log.Mempool)

// AccountState is the minimal view of account state the mempool needs to
// validate admission (spec.md §4.3 Admission: balance + nonce checks).
type AccountState interface {
	Balance(addr common.Address) uint64
	Nonce(addr common.Address) uint64
}

// Pool is the three-index mempool: byHash for O(1) membership/removal,
// byAccount for nonce-ordered per-account queues (nonce-gap detection),
// and a priority heap for producer selection and eviction-under-pressure.
type Pool struct {
	mu sync.RWMutex

	state AccountState

	maxPerAccount int
	maxGlobal     int

	byHash    map[common.Hash]*types.Transaction
	byAccount map[common.Address]map[uint64]*types.Transaction // nonce -> tx
	priority  priorityHeap

	bundles *BundleSidecar
}

func NewPool(state AccountState, maxPerAccount, maxGlobal int) *Pool {
	if maxPerAccount <= 0 {
		maxPerAccount = params.MempoolMaxPerAccountDefault
	}
	if maxGlobal <= 0 {
		maxGlobal = params.MempoolMaxGlobalDefault
	}
	p := &Pool{
		state:         state,
		maxPerAccount: maxPerAccount,
		maxGlobal:     maxGlobal,
		byHash:        make(map[common.Hash]*types.Transaction),
		byAccount:     make(map[common.Address]map[uint64]*types.Transaction),
	}
	p.bundles = NewBundleSidecar()
	return p
}

// Len returns the number of admitted transactions, excluding bundles.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Add validates and admits tx, implementing spec.md §4.3's admission
// pipeline: duplicate check, signature/hash validation (assumed done by
// the caller via types.Transaction.VerifyHash before reaching the pool),
// balance/nonce checks, then per-account and global capacity checks with
// priority-based eviction as a last resort.
func (p *Pool) Add(tx *types.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byHash[tx.Hash]; exists {
		return qerrors.ErrDuplicateTransaction
	}

	currentNonce := p.state.Nonce(tx.From)
	if tx.Nonce < currentNonce {
		return qerrors.ErrInvalidNonce
	}
	if tx.Nonce > currentNonce && !p.hasContiguousPredecessor(tx.From, tx.Nonce) {
		return &qerrors.NonceGap{Expected: currentNonce, Got: tx.Nonce}
	}

	fee := tx.Fee()
	balance := p.state.Balance(tx.From)
	need := tx.Amount + fee
	if need < tx.Amount || balance < need {
		return &qerrors.InsufficientBalance{Have: balance, Need: need}
	}

	accountTxs := p.byAccount[tx.From]
	if accountTxs != nil && len(accountTxs) >= p.maxPerAccount {
		return qerrors.ErrAccountLimitExceeded
	}

	if len(p.byHash) >= p.maxGlobal {
		if !p.evictLowestPriorityLocked(tx) {
			return qerrors.ErrMempoolFull
		}
	}

	p.insertLocked(tx)
	return nil
}

func (p *Pool) hasContiguousPredecessor(from common.Address, nonce uint64) bool {
	accountTxs := p.byAccount[from]
	if accountTxs == nil {
		return false
	}
	current := p.state.Nonce(from)
	for n := current; n < nonce; n++ {
		if _, ok := accountTxs[n]; !ok {
			return false
		}
	}
	return true
}

func (p *Pool) insertLocked(tx *types.Transaction) {
	p.byHash[tx.Hash] = tx
	if p.byAccount[tx.From] == nil {
		p.byAccount[tx.From] = make(map[uint64]*types.Transaction)
	}
	p.byAccount[tx.From][tx.Nonce] = tx
	heap.Push(&p.priority, tx)
}

// evictLowestPriorityLocked drops the single lowest gas-price transaction
// if it is lower priority than tx, making room for tx (spec.md §4.3
// "eviction" under global capacity pressure).
func (p *Pool) evictLowestPriorityLocked(tx *types.Transaction) bool {
	if len(p.priority) == 0 {
		return false
	}
	lowest := p.priority[0]
	if lowest.GasPrice >= tx.GasPrice {
		return false
	}
	p.removeLocked(lowest.Hash)
	return true
}

func (p *Pool) removeLocked(hash common.Hash) {
	tx, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)
	if accountTxs := p.byAccount[tx.From]; accountTxs != nil {
		delete(accountTxs, tx.Nonce)
		if len(accountTxs) == 0 {
			delete(p.byAccount, tx.From)
		}
	}
	for i, t := range p.priority {
		if t.Hash == hash {
			heap.Remove(&p.priority, i)
			break
		}
	}
}

// Remove drops tx (e.g. once included in a microblock).
func (p *Pool) Remove(hash common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(hash)
}

// Get returns the pooled transaction for hash, if any.
func (p *Pool) Get(hash common.Hash) (*types.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.byHash[hash]
	return tx, ok
}

// TopByPriority returns up to n transactions in descending gas-price
// order without removing them, for the producer's block-building pass.
func (p *Pool) TopByPriority(n int) []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]*types.Transaction, len(p.priority))
	copy(cp, p.priority)
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j].GasPrice > cp[j-1].GasPrice; j-- {
			cp[j], cp[j-1] = cp[j-1], cp[j]
		}
	}
	if n > len(cp) {
		n = len(cp)
	}
	return cp[:n]
}

// priorityHeap is a min-heap on GasPrice: the root is always the lowest-
// priority transaction, the one evictLowestPriorityLocked drops first
// under capacity pressure. A container/heap implementation of the
// "priced" queue the teacher's tx_list.go exposes through its own
// internal priority data structure.
type priorityHeap []*types.Transaction

func (h priorityHeap) Len() int            { return len(h) }
func (h priorityHeap) Less(i, j int) bool  { return h[i].GasPrice < h[j].GasPrice }
func (h priorityHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x interface{}) { *h = append(*h, x.(*types.Transaction)) }
func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
