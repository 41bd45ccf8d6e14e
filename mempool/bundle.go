package mempool

import (
	"sync"
	"time"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/crypto"
	"github.com/qnet-project/qnet-core/params"
	"github.com/qnet-project/qnet-core/qerrors"
)

// Bundle is an atomically-executed group of transactions submitted
// out-of-band from the public mempool, grounded on
// original_source/core/qnet-mempool/src/mev_protection.rs's TxBundle —
// a feature the distilled spec.md drops entirely (see SPEC_FULL.md's
// Supplemented Features section).
type Bundle struct {
	ID                common.Hash
	TxHashes          []common.Hash
	MinTimestamp      int64
	MaxTimestamp      int64
	RevertingTxHashes map[common.Hash]struct{}
	Signature         *crypto.HybridSignature
	SubmitterPubKey   []byte
	TotalGasPrice     uint64
	SubmittedAt       int64
}

// BundleID hashes the ordered transaction list, matching the Rust
// source's calculate_bundle_id.
func BundleID(txHashes []common.Hash) common.Hash {
	fields := make([][]byte, len(txHashes))
	for i, h := range txHashes {
		fields[i] = h.Bytes()
	}
	return common.DigestFields(fields...)
}

// BundleSidecar admits and rate-limits MEV bundles and computes the
// dynamic block-space carve-out for them (spec.md's domain stack; the
// 0-20% split constants are params.BundleMaxBlockSpaceRatio/MinBlockSpaceRatio).
type BundleSidecar struct {
	mu sync.Mutex

	bundles        map[common.Hash]*Bundle
	submitterCount map[string][]int64 // pubkey (as string) -> recent submission unix-seconds
}

func NewBundleSidecar() *BundleSidecar {
	return &BundleSidecar{
		bundles:        make(map[common.Hash]*Bundle),
		submitterCount: make(map[string][]int64),
	}
}

// ReputationSource is supplied by the caller (the reward/activation packages
// own reputation state); the sidecar itself is pure admission logic.
type ReputationSource interface {
	ReputationPct(pubkey []byte) int // 0-100
}

// Submit admits a bundle, enforcing: max size, minimum submitter
// reputation percentile, and a per-submitter rate limit — all named in
// mev_protection.rs and carried into params.Bundle* constants.
func (s *BundleSidecar) Submit(b *Bundle, rep ReputationSource, now int64) error {
	if len(b.TxHashes) == 0 || len(b.TxHashes) > params.BundleMaxSize {
		return qerrors.ErrInvalidOperation
	}
	if rep.ReputationPct(b.SubmitterPubKey) < params.BundleMinSubmitterRepPct {
		return qerrors.ErrSecurityError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(b.SubmitterPubKey)
	window := now - int64(time.Minute.Seconds())
	recent := s.submitterCount[key][:0]
	for _, t := range s.submitterCount[key] {
		if t >= window {
			recent = append(recent, t)
		}
	}
	if len(recent) >= params.BundleRateLimitPerMinute {
		return qerrors.ErrRateLimitExceeded
	}
	recent = append(recent, now)
	s.submitterCount[key] = recent

	b.ID = BundleID(b.TxHashes)
	b.SubmittedAt = now
	s.bundles[b.ID] = b
	return nil
}

// Prune removes bundles older than params.BundleMaxLifetime or whose
// MaxTimestamp has passed as of now; MinTimestamp is not checked.
func (s *BundleSidecar) Prune(now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.bundles {
		age := time.Duration(now-b.SubmittedAt) * time.Second
		if age > params.BundleMaxLifetime {
			delete(s.bundles, id)
			continue
		}
		if b.MaxTimestamp != 0 && now > b.MaxTimestamp {
			delete(s.bundles, id)
		}
	}
}

// Eligible returns bundles valid at block timestamp now and not
// containing any of the block's already-included reverting transactions,
// ready for the block-space allocator.
func (s *BundleSidecar) Eligible(now int64, includedReverts map[common.Hash]struct{}) []*Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Bundle, 0, len(s.bundles))
	for _, b := range s.bundles {
		if b.MinTimestamp != 0 && now < b.MinTimestamp {
			continue
		}
		if b.MaxTimestamp != 0 && now > b.MaxTimestamp {
			continue
		}
		conflict := false
		for r := range b.RevertingTxHashes {
			if _, ok := includedReverts[r]; ok {
				conflict = true
				break
			}
		}
		if !conflict {
			out = append(out, b)
		}
	}
	return out
}

// BlockSpaceRatio computes the fraction of block gas reserved for
// bundles, scaling linearly from MinBlockSpaceRatio to
// MaxBlockSpaceRatio with bundle demand relative to bundleCapacity — the
// "dynamic 0-20% allocation" mev_protection.rs describes.
func BlockSpaceRatio(pendingBundles, bundleCapacity int) float64 {
	if bundleCapacity <= 0 {
		return params.BundleMinBlockSpaceRatio
	}
	demand := float64(pendingBundles) / float64(bundleCapacity)
	if demand > 1 {
		demand = 1
	}
	span := params.BundleMaxBlockSpaceRatio - params.BundleMinBlockSpaceRatio
	return params.BundleMinBlockSpaceRatio + span*demand
}
