// Package consensus implements the two-tier QNet block-production cycle:
// single-producer microblocks every MicroblockInterval, checkpointed every
// 30-90 microblocks by a commit-reveal macroblock round (spec.md §4.5).
//
// Producer selection is deterministic and reputation-weighted, generalizing
// the teacher's weightedRandomProposer (consensus/istanbul/validator/weighted.go):
// where the teacher round-robins a per-block-number shuffled proposer list,
// this package derives the same kind of index purely from block height and
// validator weights so every node computes an identical answer without
// exchanging a shuffle seed.
package consensus

import (
	"context"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/log"
)

var logger = log.NewModuleLogger(log.Consensus)

// Candidate is a producer-eligible node as seen by ProducerSelector: its
// identity, reputation score and whether it currently meets the
// EligibleReputationThreshold gate (spec.md §4.1).
type Candidate struct {
	Address    common.Address
	Reputation float64 // in [0,1], a deterministic function of height only
	Weight     int     // integer voting weight derived from Reputation
	Eligible   bool
}

// BlockchainClock abstracts away wall-clock time so that deterministic
// functions (producer selection, reputation, eligibility) can only ever
// observe block height, never time.Now() — spec.md §9's Design Notes
// require this split explicitly ("wall-clock time must never enter
// deterministic functions").
type BlockchainClock interface {
	// Height returns the current confirmed chain height.
	Height() uint64
}

// ConsensusContext is the read-only view consensus needs of chain state:
// the current validator/candidate set and the clock. It exists so the
// deterministic selection logic below takes no dependency on storage,
// mempool, or networking packages — only on this narrow interface,
// mirroring how the teacher's istanbul.ValidatorSet decouples proposer
// selection from the blockchain itself.
type ConsensusContext interface {
	Candidates(shardID int, height uint64) ([]Candidate, error)
	Clock() BlockchainClock
}

// ProducerSelector picks the deterministic microblock producer for
// (shardID, height, round), generalizing weightedRandomProposer: the
// teacher shuffles a proposer slice once per epoch and round-robins it by
// block number; this implementation instead computes a weighted index
// directly from height+round so no shared shuffle state needs to be
// synchronized across nodes.
type ProducerSelector struct {
	ctx ConsensusContext
}

func NewProducerSelector(ctx ConsensusContext) *ProducerSelector {
	return &ProducerSelector{ctx: ctx}
}

// SelectProducer returns the candidate responsible for producing the
// microblock at (shardID, height) in the given round. round is the retry
// index: callers start at 0 and call again with round+1 after a TMicro
// miss (spec.md §4.5 step 4: "a miss advances to the next-ranked eligible
// producer").
func (s *ProducerSelector) SelectProducer(shardID int, height uint64, round uint64) (*Candidate, error) {
	cands, err := s.ctx.Candidates(shardID, height)
	if err != nil {
		return nil, err
	}
	eligible := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Eligible {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, errNoEligibleProducers
	}

	totalWeight := 0
	for _, c := range eligible {
		w := c.Weight
		if w < 1 {
			w = 1
		}
		totalWeight += w
	}

	// A deterministic weighted pick: combine height+round into a single
	// index into the cumulative-weight space. Every honest node computes
	// the same value from the same (eligible, height, round) triple, with
	// no randomness and no shared mutable shuffle state — the property
	// the teacher's pre-shuffled proposers slice relies on a synchronized
	// Refresh() call to guarantee, avoided here entirely.
	pick := (height + round) % uint64(totalWeight)
	acc := uint64(0)
	for i := range eligible {
		w := eligible[i].Weight
		if w < 1 {
			w = 1
		}
		acc += uint64(w)
		if pick < acc {
			return &eligible[i], nil
		}
	}
	return &eligible[len(eligible)-1], nil
}

// ProduceMicroblock assembles a microblock at the selected producer,
// chaining it to prev through PrevHash and recording the supplied PoH
// hash and sequence number (spec.md §4.5).
func (s *ProducerSelector) ProduceMicroblock(ctx context.Context, shardID int, prev *types.Microblock, txs []types.Transaction, producer common.Address, pohHash [64]byte, pohSeq uint64, now int64) *types.Microblock {
	mb := &types.Microblock{
		Height:       prev.Height + 1,
		ShardID:      shardID,
		Producer:     producer,
		PrevHash:     prev.Hash,
		Timestamp:    now,
		PoHHash:      pohHash,
		PoHSeqNo:     pohSeq,
		Transactions: txs,
	}
	mb.Hash = mb.ComputeHash()
	return mb
}
