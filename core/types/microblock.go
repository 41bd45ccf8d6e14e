package types

import "github.com/qnet-project/qnet-core/common"

// Microblock is the ~1s-cadence block produced by a single deterministic
// producer between macroblock consensus rounds (spec.md §3, §4.5).
type Microblock struct {
	Height       uint64
	ShardID      int
	Producer     common.Address
	PrevHash     common.Hash
	Timestamp    int64
	PoHHash      [64]byte // SHA3-512 Proof-of-History chain value, see crypto package
	PoHSeqNo     uint64
	Transactions []Transaction
	Hash         common.Hash
	Signature    []byte
}

// EfficientMicroblock is the wire-format variant exchanged between peers
// that already hold the referenced transactions in their mempool: it
// carries only hashes, trading bandwidth for a mempool lookup on the
// receiving side (spec.md §4.5 "efficient wire variant").
type EfficientMicroblock struct {
	Height       uint64
	ShardID      int
	Producer     common.Address
	PrevHash     common.Hash
	Timestamp    int64
	PoHHash      [64]byte
	PoHSeqNo     uint64
	TxHashes     []common.Hash
	Hash         common.Hash
	Signature    []byte
}

// ToEfficient strips the full transaction bodies, keeping only their
// hashes for peers that can reconstruct the block from their own mempool.
func (m *Microblock) ToEfficient() *EfficientMicroblock {
	hashes := make([]common.Hash, len(m.Transactions))
	for i := range m.Transactions {
		hashes[i] = m.Transactions[i].Hash
	}
	return &EfficientMicroblock{
		Height:    m.Height,
		ShardID:   m.ShardID,
		Producer:  m.Producer,
		PrevHash:  m.PrevHash,
		Timestamp: m.Timestamp,
		PoHHash:   m.PoHHash,
		PoHSeqNo:  m.PoHSeqNo,
		TxHashes:  hashes,
		Hash:      m.Hash,
		Signature: m.Signature,
	}
}

// ComputeHash digests the header fields and the ordered transaction hash
// list, so it is identical whether computed from a Microblock or from an
// EfficientMicroblock plus its resolved transactions.
func (m *Microblock) ComputeHash() common.Hash {
	fields := make([][]byte, 0, 6+len(m.Transactions))
	fields = append(fields,
		putU64(m.Height),
		putU64(uint64(m.ShardID)),
		[]byte(m.Producer),
		m.PrevHash.Bytes(),
		putU64(uint64(m.Timestamp)),
		m.PoHHash[:],
	)
	for i := range m.Transactions {
		fields = append(fields, m.Transactions[i].Hash.Bytes())
	}
	return common.DigestFields(fields...)
}

func putU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
