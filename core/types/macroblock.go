package types

import "github.com/qnet-project/qnet-core/common"

// ConsensusData carries the commit-reveal artifacts the macroblock cycle
// produces (spec.md §4.5 macroblock consensus, grounded in the teacher's
// Istanbul COMMIT/PREPREPARE message quorum handling).
type ConsensusData struct {
	Round      uint64
	Commits    []common.Hash  // H(secret || nonce) submitted during the commit phase
	Reveals    map[common.Address][]byte
	Seed       [64]byte // SHA3-512 combination of all valid reveals
	Signatures map[common.Address][]byte
}

// Macroblock finalizes a run of 30-90 microblocks, re-anchoring the
// producer-selection seed and checkpointing cross-shard state (spec.md §3,
// §4.5, §4.6).
type Macroblock struct {
	Height           uint64
	MicroblockFrom   uint64
	MicroblockTo     uint64
	MicroblockHashes []common.Hash
	PrevHash         common.Hash
	Timestamp        int64
	Consensus        ConsensusData
	StateRoot        common.Hash
	Hash             common.Hash
}

// MicroblockCount is the number of microblocks this macroblock finalizes,
// bounded by spec.md §3/§4.5 to the 30-90 range.
func (m *Macroblock) MicroblockCount() uint64 {
	if m.MicroblockTo < m.MicroblockFrom {
		return 0
	}
	return m.MicroblockTo - m.MicroblockFrom + 1
}

// ComputeHash digests the header and the finalized microblock hash chain.
func (m *Macroblock) ComputeHash() common.Hash {
	fields := make([][]byte, 0, 5+len(m.MicroblockHashes))
	fields = append(fields,
		putU64(m.Height),
		putU64(m.MicroblockFrom),
		putU64(m.MicroblockTo),
		m.PrevHash.Bytes(),
		putU64(uint64(m.Timestamp)),
		m.StateRoot.Bytes(),
		m.Consensus.Seed[:],
	)
	for i := range m.MicroblockHashes {
		fields = append(fields, m.MicroblockHashes[i].Bytes())
	}
	return common.DigestFields(fields...)
}
