package node

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/qnet-project/qnet-core/activation"
	"github.com/qnet-project/qnet-core/archive"
	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/consensus"
	"github.com/qnet-project/qnet-core/core/state"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/crypto"
	"github.com/qnet-project/qnet-core/mempool"
	"github.com/qnet-project/qnet-core/params"
	"github.com/qnet-project/qnet-core/reward"
	"github.com/qnet-project/qnet-core/rpc"
	"github.com/qnet-project/qnet-core/storage"
	"github.com/qnet-project/qnet-core/xshard"
)

// Node is the assembled QNet process: every subsystem built from one
// Config and wired to the others through the seam interfaces each
// package exports, then exposed to callers as an rpc.Backend. It plays
// the role the teacher's node.Node + ServiceContext pair plays, minus
// the Service-registry/P2P-protocol machinery this module's scope
// doesn't need.
type Node struct {
	cfg   Config
	store *storage.Store
	self  common.Address

	accounts   *state.DB
	executor   *state.Executor
	mempool    *mempool.Pool
	bundles    *mempool.BundleSidecar
	ledger     *reward.Ledger
	activation *activation.Registry
	xshard     *xshard.Coordinator
	mesh       *shardMesh
	archive    *archive.Manager
	chunks     *archive.ChunkBlobStore
	consensus  *consensus.ProducerSelector
	poh        *crypto.PoHChain

	mu     sync.RWMutex
	height uint64
	blocks map[uint64]*types.Microblock
	peers  []string

	pingMu sync.Mutex
	pings  map[common.Address]*types.PingHistory

	stopRound chan struct{}
	roundDone chan struct{}
}

// New builds every subsystem from cfg but starts nothing; call Start to
// bring up the RPC listener.
func New(cfg Config) (*Node, error) {
	store, err := storage.Open(cfg.storageConfig())
	if err != nil {
		return nil, err
	}

	accounts := state.NewDB(store.CF(storage.AccountsCF))
	ledger := reward.NewLedger(cfg.RewardExpectedNodes)

	reg, err := activation.NewRegistry(newChainQuery(store.CF(storage.ActivationRegistryCF)), nil, cfg.ActivationNetworkSize)
	if err != nil {
		return nil, err
	}

	executor := state.NewExecutor(accounts, ledger, reg)
	pool := mempool.NewPool(accounts, cfg.MempoolMaxPerAccount, cfg.MempoolMaxGlobal)
	mesh := newShardMesh()
	coordinator := xshard.NewCoordinator(mesh)

	n := &Node{
		cfg:        cfg,
		store:      store,
		self:       common.Address(cfg.NodeKeyHex),
		accounts:   accounts,
		executor:   executor,
		mempool:    pool,
		bundles:    mempool.NewBundleSidecar(),
		ledger:     ledger,
		activation: reg,
		xshard:     coordinator,
		mesh:       mesh,
		blocks:     make(map[uint64]*types.Microblock),
		pings:      make(map[common.Address]*types.PingHistory),
		poh:        crypto.NewPoHChain([64]byte{}),
	}
	n.mesh.register(cfg.ShardID, n)
	n.consensus = consensus.NewProducerSelector(n)

	if cfg.ArchiveMySQLDSN != "" {
		db, err := archive.OpenLedger(cfg.ArchiveMySQLDSN)
		if err != nil {
			return nil, err
		}
		n.archive = archive.NewManager(db)
	}

	if cfg.ArchiveS3Bucket != "" {
		chunks, err := archive.NewChunkBlobStore(cfg.ArchiveS3Bucket, cfg.ArchiveS3Region)
		if err != nil {
			return nil, err
		}
		n.chunks = chunks
	}

	return n, nil
}

// Candidates satisfies consensus.ConsensusContext by sourcing the real
// eligible-node set from the activation registry's get_eligible_nodes
// (spec.md §2: "activation gates consensus membership"), combined with
// each node's ping-history reputation (spec.md §3 PingHistory) recorded
// via RecordPing. Light nodes never produce (spec.md §4.5 step 1:
// "Light cannot produce"); Full/Super nodes are eligible once their
// reputation clears params.EligibleReputationThreshold.
//
// Before any node has ever been observed as activated (e.g. a lone
// genesis node before its own NodeActivation has committed), the
// registry's eligible-node list is empty; this node falls back to
// nominating itself so the very first microblock still has a producer.
func (n *Node) Candidates(shardID int, height uint64) ([]consensus.Candidate, error) {
	eligible := n.activation.GetEligibleNodes()
	if len(eligible) == 0 {
		return []consensus.Candidate{{Address: n.self, Weight: 1, Eligible: true}}, nil
	}

	n.pingMu.Lock()
	defer n.pingMu.Unlock()

	cands := make([]consensus.Candidate, 0, len(eligible))
	for _, node := range eligible {
		rep := n.reputationLocked(node.Address, node.NodeType, height)
		weight := int(rep * 100)
		if weight < 1 {
			weight = 1
		}
		cands = append(cands, consensus.Candidate{
			Address:    node.Address,
			Reputation: rep,
			Weight:     weight,
			Eligible:   node.NodeType != int(params.NodeTypeLight) && rep >= params.EligibleReputationThreshold,
		})
	}
	return cands, nil
}

// RecordPing appends a ping result for addr to its rolling PingHistory,
// the data Candidates reads back through MeetsThreshold/SuccessRatio to
// determine real producer eligibility, replacing a hardcoded stub.
func (n *Node) RecordPing(addr common.Address, nodeType int, success bool) {
	n.pingMu.Lock()
	defer n.pingMu.Unlock()
	ph, ok := n.pings[addr]
	if !ok {
		ph = &types.PingHistory{NodeType: params.NodeType(nodeType)}
		n.pings[addr] = ph
	}
	ph.Record(success)
}

// reputationLocked returns addr's reputation: its real ping-history
// success ratio once it has recorded at least one ping, otherwise a
// deterministic function of (addr, height) alone — never wall-clock time,
// per spec.md §9 Design Notes — so a newly-activated node with no ping
// history yet still gets a reproducible answer every honest node agrees
// on. Callers must hold pingMu.
func (n *Node) reputationLocked(addr common.Address, nodeType int, height uint64) float64 {
	if ph, ok := n.pings[addr]; ok && len(ph.History) > 0 {
		return ph.SuccessRatio()
	}
	digest := common.DigestFields([]byte(addr), heightBytes(height))
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(digest[i])
	}
	return float64(v%101) / 100
}

func heightBytes(h uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(h)
		h >>= 8
	}
	return b
}

func (n *Node) Clock() consensus.BlockchainClock { return n }

// Height satisfies both consensus.BlockchainClock and rpc.Backend.
func (n *Node) Height() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.height
}

func (n *Node) Microblock(height uint64) (*types.Microblock, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	mb, ok := n.blocks[height]
	if !ok {
		return nil, errors.New("unknown microblock height")
	}
	return mb, nil
}

func (n *Node) Microblocks(start uint64, limit int) ([]*types.Microblock, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*types.Microblock, 0, limit)
	for h := start; h < start+uint64(limit); h++ {
		if mb, ok := n.blocks[h]; ok {
			out = append(out, mb)
		}
	}
	return out, nil
}

// Commit records a finalized microblock and flushes the executor's
// pending overlay, the terminal step of spec §4.5's production cycle.
func (n *Node) Commit(mb *types.Microblock) error {
	if err := n.accounts.Commit(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blocks[mb.Height] = mb
	n.height = mb.Height
	return nil
}

func (n *Node) SubmitTransaction(tx *types.Transaction) error {
	return n.mempool.Add(tx)
}

func (n *Node) PendingTransactions() []*types.Transaction {
	return n.mempool.TopByPriority(n.mempool.Len())
}

func (n *Node) Account(addr common.Address) (*types.Account, error) {
	return n.accounts.Get(addr)
}

func (n *Node) RewardBalance(addr common.Address) types.PhaseAwareReward {
	return n.ledger.Accrued(addr)
}

// ActivationTransfer migrates an activation code's owning wallet,
// answering node_transfer, spec.md §6's named method for the account
// migration flow, by delegating to the registry's register_or_migrate
// operation (activation.Registry.RegisterOrMigrate) rather than
// duplicating its conflict/rate-limit/deactivation-signal logic here.
func (n *Node) ActivationTransfer(ctx context.Context, code []byte, newWallet common.Address) error {
	used, rec, err := n.activation.IsCodeUsed(ctx, contentHashOf(code))
	if err != nil {
		return err
	}
	if !used || rec == nil {
		return errors.New("activation code not found")
	}
	_, err = n.activation.RegisterOrMigrate(ctx, code, newWallet, rec.NodeType, rec.Phase, rec.BurnAmount, rec.Height, 0)
	return err
}

func (n *Node) Peers() []string { return n.peers }

func (n *Node) NodeInfo() rpc.NodeInfo {
	return rpc.NodeInfo{
		Version:  "qnet-core/0.1",
		NodeType: n.cfg.NodeType,
		ChainID:  "qnet",
		ShardID:  n.cfg.ShardID,
	}
}

func (n *Node) Stats() rpc.Stats {
	return rpc.Stats{
		Height:      n.Height(),
		MempoolSize: n.mempool.Len(),
		PeerCount:   len(n.peers),
	}
}

// Serve starts the microblock-production round loop and the JSON-RPC
// HTTP server, blocking on the latter until it exits.
func (n *Node) Serve() error {
	n.StartProducing()
	defer n.StopProducing()

	srv := rpc.NewServer(n)
	addr := n.cfg.HTTPHost + portSuffix(n.cfg.HTTPPort)
	return srv.ListenAndServe(addr)
}

func (n *Node) Close() {
	n.StopProducing()
	n.store.Close()
}

// StartProducing launches the microblock-production round loop as a
// background goroutine: a params.MicroblockInterval ticker drives
// spec.md §9 Design Notes' round state machine {WaitForProducer,
// AssembleBlock, Broadcast, Verify, Commit} once per tick.
func (n *Node) StartProducing() {
	n.stopRound = make(chan struct{})
	n.roundDone = make(chan struct{})
	go n.productionLoop()
}

// StopProducing halts the round loop started by StartProducing, blocking
// until the loop goroutine has actually exited. A no-op if the loop was
// never started.
func (n *Node) StopProducing() {
	if n.stopRound == nil {
		return
	}
	close(n.stopRound)
	<-n.roundDone
	n.stopRound = nil
}

func (n *Node) productionLoop() {
	defer close(n.roundDone)
	ticker := time.NewTicker(params.MicroblockInterval)
	defer ticker.Stop()

	var round uint64
	for {
		select {
		case <-n.stopRound:
			return
		case <-ticker.C:
			n.produceRound(round)
			round++
		}
	}
}

// produceRound runs one pass of the round state machine for the
// microblock at this node's next height: it first determines this
// round's deterministic producer (WaitForProducer); if this node was
// selected, it drains the mempool by priority and applies each
// transaction through the executor (AssembleBlock), assembles and
// self-verifies the resulting microblock (Broadcast/Verify collapse to a
// no-op without a P2P transport, which is out of this module's scope),
// then commits it (Commit). A failure at any step discards the
// executor's pending overlay so a half-applied round never leaks into
// the next one.
func (n *Node) produceRound(round uint64) {
	height := n.Height() + 1

	producer, err := n.consensus.SelectProducer(n.cfg.ShardID, height, round)
	if err != nil {
		logger.Warn("no eligible producer this round", "height", height, "err", err)
		return
	}
	if producer.Address != n.self {
		return
	}

	window := currentWindow(time.Now().Unix())
	pending := n.mempool.TopByPriority(n.mempool.Len())
	applied := make([]types.Transaction, 0, len(pending))
	for _, tx := range pending {
		if err := n.executor.Apply(tx, window, height); err != nil {
			logger.Warn("dropping transaction that failed to apply", "hash", tx.Hash.Hex(), "err", err)
			n.mempool.Remove(tx.Hash)
			continue
		}
		applied = append(applied, *tx)
		n.mempool.Remove(tx.Hash)
	}

	prev := n.latestMicroblock(height - 1)
	pohHash, pohSeq := n.poh.Tick(prev.Hash[:])
	mb := n.consensus.ProduceMicroblock(context.Background(), n.cfg.ShardID, prev, applied, n.self, pohHash, pohSeq, time.Now().Unix())

	if mb.Hash != mb.ComputeHash() {
		n.accounts.Discard()
		logger.Warn("assembled microblock failed self-verification", "height", height)
		return
	}

	if err := n.Commit(mb); err != nil {
		n.accounts.Discard()
		logger.Warn("commit failed", "height", height, "err", err)
	}
}

// latestMicroblock returns the committed microblock at height, or a
// synthetic zero-value genesis predecessor if none has been committed
// yet (height 0, before this shard's first round).
func (n *Node) latestMicroblock(height uint64) *types.Microblock {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if mb, ok := n.blocks[height]; ok {
		return mb
	}
	return &types.Microblock{Height: height, ShardID: n.cfg.ShardID}
}

// currentWindow maps a wall-clock timestamp to its RewardWindowPeriod
// index. Unlike producer selection's strictly height-derived determinism,
// reward-window boundaries are themselves defined in wall-clock terms
// (spec.md §4.2: "every 4 hours, aligned to UTC boundaries"), so wall
// time is the correct input here.
func currentWindow(now int64) uint64 {
	return uint64(now) / uint64(params.RewardWindowPeriod.Seconds())
}

// contentHashOf mirrors activation's own unexported contentHash: the same
// Blake3(x) substitution point (SPEC_FULL.md §9 Open Question decision 4),
// duplicated here because node sits a layer above activation's internals.
func contentHashOf(code []byte) common.Hash {
	return common.Sum256(code)
}

func portSuffix(port int) string {
	if port == 0 {
		port = 8645
	}
	return ":" + strconv.Itoa(port)
}
