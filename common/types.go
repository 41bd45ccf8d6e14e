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

package common

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// HashLength is the length of a QNet content digest in bytes.
const HashLength = 32

// Hash is a fixed-size content digest used for transaction hashes, block
// hashes and the activation registry's code-hash map.
type Hash [HashLength]byte

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalJSON renders a Hash as its 0x-prefixed hex form, so RPC
// responses carry a readable digest instead of a raw JSON byte array.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.Hex() + `"`), nil
}

// UnmarshalJSON accepts the same 0x-prefixed hex form MarshalJSON emits.
func (h *Hash) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = BytesToHash(b)
	return nil
}

// getShardIndex implements the CacheKey interface so Hash can key the
// teacher-style sharded LRU cache directly.
func (h Hash) getShardIndex(shardMask int) int {
	return int(h[HashLength-1]) & shardMask
}

// Address identifies an account. QNet addresses are opaque strings (bech32
// or similar, produced outside this core), but every place that needs a
// fixed-size, hashable, comparable key uses the digest below.
type Address string

func (a Address) getShardIndex(shardMask int) int {
	h := Sum256([]byte(a))
	return int(h[HashLength-1]) & shardMask
}

// Sum256 is the content hash used throughout the core wherever spec.md
// calls for "Blake3(x)". No library in the reference corpus imports a
// Blake3 implementation; SHA3-256 from the already-wired golang.org/x/crypto
// is used instead. See SPEC_FULL.md Open Question decision 4.
func Sum256(data []byte) Hash {
	return sha3.Sum256(data)
}

// Sum512 is used by the Proof-of-History chain, which is specified as a
// SHA3-512 hash chain.
func Sum512(data []byte) [64]byte {
	return sha3.Sum512(data)
}

// DigestFields hashes the canonical, order-stable concatenation of a
// transaction's fields (every field except hash and signature, per
// spec.md §3's Transaction invariant).
func DigestFields(fields ...[]byte) Hash {
	h := sha3.New256()
	for _, f := range fields {
		var lenPrefix [8]byte
		putUint64(lenPrefix[:], uint64(len(f)))
		h.Write(lenPrefix[:])
		h.Write(f)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}

func (a Address) String() string { return string(a) }

// ShardIndex exposes the Address/Hash sharding rule to packages outside
// common that shard their own state by key (reward.Ledger, activation's
// hash-set mirror) without duplicating getShardIndex's masking logic.
// numShards must be a power of two, as returned by ShardCountFor.
func (a Address) ShardIndex(numShards int) int {
	return a.getShardIndex(numShards - 1)
}

// ShardIndex is Hash's analogue of Address.ShardIndex.
func (h Hash) ShardIndex(numShards int) int {
	return h.getShardIndex(numShards - 1)
}

// FormatNanoQNC renders a nanoQNC amount as a decimal QNC string with nine
// fractional digits.
func FormatNanoQNC(v uint64) string {
	return fmt.Sprintf("%d.%09d", v/1_000_000_000, v%1_000_000_000)
}
