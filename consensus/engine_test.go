package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
)

type fakeClock struct{ height uint64 }

func (c fakeClock) Height() uint64 { return c.height }

type fakeContext struct {
	candidates []Candidate
	clock      fakeClock
}

func (c *fakeContext) Candidates(shardID int, height uint64) ([]Candidate, error) {
	return c.candidates, nil
}

func (c *fakeContext) Clock() BlockchainClock { return c.clock }

func TestSelectProducerPicksOnlyEligibleCandidate(t *testing.T) {
	ctx := &fakeContext{candidates: []Candidate{
		{Address: "a", Weight: 1, Eligible: false},
		{Address: "b", Weight: 1, Eligible: true},
	}}
	sel := NewProducerSelector(ctx)
	picked, err := sel.SelectProducer(0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, common.Address("b"), picked.Address)
}

func TestSelectProducerIsDeterministicAcrossCalls(t *testing.T) {
	ctx := &fakeContext{candidates: []Candidate{
		{Address: "a", Weight: 3, Eligible: true},
		{Address: "b", Weight: 1, Eligible: true},
		{Address: "c", Weight: 5, Eligible: true},
	}}
	sel := NewProducerSelector(ctx)
	first, err := sel.SelectProducer(0, 42, 1)
	require.NoError(t, err)
	second, err := sel.SelectProducer(0, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Address, second.Address)
}

func TestSelectProducerFailsWithNoEligibleCandidates(t *testing.T) {
	ctx := &fakeContext{candidates: []Candidate{{Address: "a", Weight: 1, Eligible: false}}}
	sel := NewProducerSelector(ctx)
	_, err := sel.SelectProducer(0, 1, 0)
	assert.Error(t, err)
}

func TestMacroRoundAdvancesOnQuorum(t *testing.T) {
	round := NewMacroRound(100, 2)
	assert.Equal(t, MacroRoundCollectingCommits, round.State())

	secretA, nonceA := []byte("secret-a"), []byte("nonce-a")
	secretB, nonceB := []byte("secret-b"), []byte("nonce-b")

	round.AddCommit("validator-a", common.DigestFields(secretA, nonceA))
	assert.Equal(t, MacroRoundCollectingCommits, round.State())
	round.AddCommit("validator-b", common.DigestFields(secretB, nonceB))
	require.Equal(t, MacroRoundCollectingReveals, round.State())

	assert.True(t, round.AddReveal("validator-a", secretA, nonceA))
	assert.Equal(t, MacroRoundCollectingReveals, round.State())
	assert.True(t, round.AddReveal("validator-b", secretB, nonceB))
	assert.Equal(t, MacroRoundFinalized, round.State())
}

func TestMacroRoundRejectsRevealNotMatchingCommit(t *testing.T) {
	round := NewMacroRound(100, 1)
	round.AddCommit("validator-a", common.DigestFields([]byte("secret"), []byte("nonce")))
	ok := round.AddReveal("validator-a", []byte("wrong-secret"), []byte("nonce"))
	assert.False(t, ok)
	assert.Equal(t, MacroRoundCollectingReveals, round.State())
}

func TestMacroRoundSeedIsDeterministicGivenSameReveals(t *testing.T) {
	round1 := NewMacroRound(100, 1)
	round1.AddCommit("validator-a", common.DigestFields([]byte("s"), []byte("n")))
	round1.AddReveal("validator-a", []byte("s"), []byte("n"))

	round2 := NewMacroRound(100, 1)
	round2.AddCommit("validator-a", common.DigestFields([]byte("s"), []byte("n")))
	round2.AddReveal("validator-a", []byte("s"), []byte("n"))

	assert.Equal(t, round1.Seed(), round2.Seed())
}

func TestMacroRoundFailTransitionsState(t *testing.T) {
	round := NewMacroRound(100, 2)
	round.Fail()
	assert.Equal(t, MacroRoundFailed, round.State())
}
