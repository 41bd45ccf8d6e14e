package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/params"
	"github.com/qnet-project/qnet-core/qerrors"
)

type fakeReputationSource struct{ pct int }

func (f fakeReputationSource) ReputationPct(pubkey []byte) int { return f.pct }

func fakeHash(seed string) common.Hash {
	return common.Sum256([]byte(seed))
}

func newBundle(hashes ...common.Hash) *Bundle {
	return &Bundle{TxHashes: hashes, SubmitterPubKey: []byte("submitter-1")}
}

func TestSubmitAcceptsReputableBundle(t *testing.T) {
	s := NewBundleSidecar()
	b := newBundle(fakeHash("tx-1"), fakeHash("tx-2"))
	require.NoError(t, s.Submit(b, fakeReputationSource{pct: 90}, 1000))
	assert.NotZero(t, b.ID)
}

func TestSubmitRejectsOversizedBundle(t *testing.T) {
	s := NewBundleSidecar()
	hashes := make([]common.Hash, params.BundleMaxSize+1)
	b := newBundle(hashes...)
	err := s.Submit(b, fakeReputationSource{pct: 90}, 1000)
	assert.Equal(t, qerrors.ErrInvalidOperation, err)
}

func TestSubmitRejectsLowReputationSubmitter(t *testing.T) {
	s := NewBundleSidecar()
	b := newBundle(fakeHash("tx-1"))
	err := s.Submit(b, fakeReputationSource{pct: params.BundleMinSubmitterRepPct - 1}, 1000)
	assert.Equal(t, qerrors.ErrSecurityError, err)
}

func TestSubmitEnforcesPerSubmitterRateLimit(t *testing.T) {
	s := NewBundleSidecar()
	rep := fakeReputationSource{pct: 90}
	for i := 0; i < params.BundleRateLimitPerMinute; i++ {
		b := newBundle(fakeHash("tx-1"))
		require.NoError(t, s.Submit(b, rep, 1000))
	}
	over := newBundle(fakeHash("tx-1"))
	assert.Equal(t, qerrors.ErrRateLimitExceeded, s.Submit(over, rep, 1000))
}

func TestEligibleExcludesBundlesWithIncludedReverts(t *testing.T) {
	s := NewBundleSidecar()
	revertHash := fakeHash("tx-revert")
	b := newBundle(revertHash)
	b.RevertingTxHashes = map[common.Hash]struct{}{revertHash: {}}
	require.NoError(t, s.Submit(b, fakeReputationSource{pct: 90}, 1000))

	included := map[common.Hash]struct{}{revertHash: {}}
	eligible := s.Eligible(1000, included)
	assert.Empty(t, eligible)

	eligible = s.Eligible(1000, nil)
	assert.Len(t, eligible, 1)
}

func TestPruneDropsExpiredBundles(t *testing.T) {
	s := NewBundleSidecar()
	b := newBundle(fakeHash("tx-1"))
	require.NoError(t, s.Submit(b, fakeReputationSource{pct: 90}, 1000))

	s.Prune(1000 + int64(params.BundleMaxLifetime.Seconds()) + 1)
	assert.Empty(t, s.Eligible(1000, nil))
}

func TestBlockSpaceRatioScalesWithDemand(t *testing.T) {
	assert.Equal(t, params.BundleMinBlockSpaceRatio, BlockSpaceRatio(0, 10))
	assert.Equal(t, params.BundleMaxBlockSpaceRatio, BlockSpaceRatio(10, 10))
	assert.InDelta(t, (params.BundleMinBlockSpaceRatio+params.BundleMaxBlockSpaceRatio)/2, BlockSpaceRatio(5, 10), 0.001)
}
