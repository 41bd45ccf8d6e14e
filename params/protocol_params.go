// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package params carries the numeric constants of the QNet consensus core:
// gas schedule, emission schedule, timing budgets and eligibility
// thresholds. The smart-contract VM's own gas table is out of scope (see
// spec.md §1), so only the transaction-level fee schedule survives from the
// teacher's much larger protocol_params.go.
package params

import "time"

const (
	// TxGas is the intrinsic gas of a simple value-transfer transaction.
	// Kept at the teacher's go-ethereum-derived value since spec.md never
	// redefines it.
	TxGas uint64 = 21000

	// TxGasContractCreation is the intrinsic gas of a CreateAccount or
	// ContractDeploy transaction.
	TxGasContractCreation uint64 = 53000

	// TxDataZeroGas and TxDataNonZeroGas price the optional Data payload
	// carried by NodeActivation/ContractCall transactions.
	TxDataZeroGas    uint64 = 4
	TxDataNonZeroGas uint64 = 68
)

// NanoQNC is the fixed-point scale every reward-pool figure is carried in:
// spec.md §4.2 specifies the Pool 1 base rate in "nanoQNC (x10^9)".
const NanoQNC uint64 = 1_000_000_000

const (
	// MicroblockInterval is the target cadence of microblock production
	// (spec.md §4.5: "~1 s").
	MicroblockInterval = time.Second

	// MacroblockMicroblockCountDefault is the default macroblock period
	// when not overridden by network configuration (spec.md §3 and §4.5:
	// "every 30-90 microblocks").
	MacroblockMicroblockCountDefault = 30
	MacroblockMicroblockCountMax     = 90

	// TMicro is the producer broadcast timeout; a miss advances to the
	// next-ranked eligible producer (spec.md §4.5 step 4).
	TMicro = 2 * time.Second

	// TCommit and TReveal bound the macroblock commit-reveal phases
	// (spec.md §4.5 macroblock cycle).
	TCommit = 3 * time.Second
	TReveal = 3 * time.Second

	// TShard is the intra-shard consensus timeout (spec.md §4.6).
	TShard = 250 * time.Millisecond

	// TXShard is the cross-shard transaction timeout after which a
	// Locked transaction is aborted (spec.md §4.6).
	TXShard = 10 * time.Second

	// CrossShardRetentionPeriod is how long completed cross-shard
	// transactions are kept for deduplication before being purged.
	CrossShardRetentionPeriod = 5 * time.Minute

	// ActivationSyncWindow is the eventual-consistency window of
	// is_code_used (spec.md §4.1 contract).
	ActivationSyncWindow = 5 * time.Minute

	// RewardWindowPeriod is the reward-ledger accounting window
	// (spec.md §4.2 Window processing), aligned to UTC boundaries.
	RewardWindowPeriod = 4 * time.Hour

	// RewardClaimCooldown is the minimum interval between successful
	// claims for the same node (spec.md §4.2 Claim).
	RewardClaimCooldown = time.Hour

	// MigrationRateLimitWindow is the Full/Super node device-migration
	// rate limit (spec.md §4.1 Migration rate limit).
	MigrationRateLimitWindow = 24 * time.Hour

	// HybridCertificateLifetime is the ephemeral Ed25519 certificate
	// lifetime of the hybrid signature scheme (spec.md §4.5.1). Per NIST
	// guidance these are never cached regardless of lifetime.
	HybridCertificateLifetime = 60 * time.Second
)

// Node type ping-eligibility thresholds (spec.md §3 PingHistory).
const (
	LightPingRequired = 1
	LightPingWindow   = 1

	FullPingWindow       = 60
	FullPingSuccessRatio = 0.95

	SuperPingWindow       = 60
	SuperPingSuccessRatio = 0.98
)

// Archival chunk obligations by node type (spec.md §3 NodeType).
const (
	LightArchiveChunks = 0
	FullArchiveChunks  = 3
	SuperArchiveChunks = 8
)

// Archive replication invariants, supplemented from original_source's
// archive_manager.rs (no equivalent named in spec.md's distillation).
const (
	ArchiveMinReplicas        = 3
	ArchiveMaxReplicas        = 7
	ArchiveGracePeriod        = 24 * time.Hour
	ArchiveComplianceInterval = 4 * time.Hour
	ArchiveReplicationInterval = 2 * time.Hour
)

// Reward pool 2 (transaction fee) tier split (spec.md §4.2 Window processing).
const (
	FeeTierPctSuper = 70
	FeeTierPctFull  = 30
	FeeTierPctLight = 0
)

// Reputation gate for consensus eligibility (spec.md §4.1, Glossary).
const EligibleReputationThreshold = 0.70

// MEV bundle constraints (spec.md §4.3 MEV bundle sidecar).
const (
	BundleMaxSize              = 10
	BundleMinSubmitterRepPct   = 80
	BundleMaxLifetime          = 60 * time.Second
	BundleRateLimitPerMinute   = 10
	BundleGasPricePremium      = 1.20
	BundleMaxBlockSpaceRatio   = 0.20
	BundleMinBlockSpaceRatio   = 0.0
	BundleSubmissionFanout     = 3
)

// Mempool capacity defaults (spec.md §4.3 Admission). These are fixed
// values; node.Config may override them.
const (
	MempoolMaxPerAccountDefault = 10_000
	MempoolMaxGlobalDefault     = 500_000
)

// Reward ledger sharding bound (spec.md §4.2 Sharding: "N a power of two, <= 256").
const RewardLedgerMaxShards = 256

// Activation registry bloom filter sizing (spec.md §4.1 lookup pipeline
// layer 1): sized for 10^7 items at a 0.1% false-positive rate.
const (
	BloomFilterCapacity   = 10_000_000
	BloomFilterErrorRate  = 0.001
	RegistryLRUCacheSize  = 10_000
)

// GenesisMinParticipants is the network size at which Genesis mode's
// relaxed registry checks end (Glossary: "until the network reaches 6+
// participants").
const GenesisMinParticipants = 6
