package consensus

import (
	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
)

// MacroRoundState is the phase a macroblock consensus round is in,
// generalizing the teacher's istanbul core.State (StateAcceptRequest ->
// StatePreprepared -> StatePrepared -> StateCommitted) to the simpler
// commit-reveal cycle spec.md §4.5 describes for QNet's macroblock layer.
type MacroRoundState int

const (
	MacroRoundCollectingCommits MacroRoundState = iota
	MacroRoundCollectingReveals
	MacroRoundFinalized
	MacroRoundFailed
)

// MacroRound accumulates commit and reveal messages for a single
// macroblock height, analogous to the teacher's roundState
// (consensus/istanbul/core/roundstate.go) but scoped to a commit-reveal
// protocol rather than 2/3-quorum PREPARE/COMMIT voting.
type MacroRound struct {
	Height      uint64
	QuorumSize  int
	state       MacroRoundState
	commits     map[common.Address]common.Hash // H(secret||nonce)
	reveals     map[common.Address][]byte
	secretNonce map[common.Address][]byte // nonce used to verify a reveal against its commit
}

func NewMacroRound(height uint64, quorumSize int) *MacroRound {
	return &MacroRound{
		Height:     height,
		QuorumSize: quorumSize,
		state:      MacroRoundCollectingCommits,
		commits:     make(map[common.Address]common.Hash),
		reveals:     make(map[common.Address][]byte),
		secretNonce: make(map[common.Address][]byte),
	}
}

func (r *MacroRound) State() MacroRoundState { return r.state }

// AddCommit records a validator's commit hash. Mirrors the teacher's
// verifyCommit+acceptCommit pair (consensus/istanbul/core/commit.go) minus
// signature verification, which belongs to the crypto package.
func (r *MacroRound) AddCommit(validator common.Address, commitHash common.Hash) {
	if r.state != MacroRoundCollectingCommits {
		return
	}
	r.commits[validator] = commitHash
	if len(r.commits) >= r.QuorumSize {
		r.state = MacroRoundCollectingReveals
	}
}

// AddReveal records a validator's revealed secret, verifying it against
// the commit the validator previously submitted (the commit-reveal
// analogue of the teacher's commit-quorum verification).
func (r *MacroRound) AddReveal(validator common.Address, secret, nonce []byte) bool {
	if r.state != MacroRoundCollectingReveals {
		return false
	}
	committed, ok := r.commits[validator]
	if !ok {
		return false
	}
	if common.DigestFields(secret, nonce) != committed {
		return false
	}
	r.reveals[validator] = secret
	r.secretNonce[validator] = nonce
	if len(r.reveals) >= r.QuorumSize {
		r.state = MacroRoundFinalized
	}
	return true
}

// Fail transitions the round to Failed, e.g. on a TCommit/TReveal timeout
// without reaching QuorumSize.
func (r *MacroRound) Fail() { r.state = MacroRoundFailed }

// Seed combines every valid reveal's secret into the macroblock's
// producer-selection seed for the next epoch via SHA3-512, matching the
// hash width core/types.ConsensusData.Seed expects.
func (r *MacroRound) Seed() [64]byte {
	fields := make([][]byte, 0, len(r.reveals))
	for _, addr := range sortedAddrs(r.reveals) {
		fields = append(fields, r.reveals[addr])
	}
	return common.Sum512(flatten(fields))
}

func (r *MacroRound) ConsensusData() types.ConsensusData {
	commits := make([]common.Hash, 0, len(r.commits))
	for _, h := range r.commits {
		commits = append(commits, h)
	}
	reveals := make(map[common.Address][]byte, len(r.reveals))
	for k, v := range r.reveals {
		reveals[k] = v
	}
	return types.ConsensusData{
		Commits: commits,
		Reveals: reveals,
		Seed:    r.Seed(),
	}
}

func sortedAddrs(m map[common.Address][]byte) []common.Address {
	addrs := make([]common.Address, 0, len(m))
	for a := range m {
		addrs = append(addrs, a)
	}
	// Deterministic ordering across nodes: lexicographic by address string.
	for i := 1; i < len(addrs); i++ {
		for j := i; j > 0 && addrs[j] < addrs[j-1]; j-- {
			addrs[j], addrs[j-1] = addrs[j-1], addrs[j]
		}
	}
	return addrs
}

func flatten(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
