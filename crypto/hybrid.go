// Package crypto implements QNet's hybrid post-quantum signature scheme
// (spec.md §4.5.1: an Ed25519 signature over the payload using an
// ephemeral certificate, plus a Dilithium-3 signature over the
// encapsulated (cert public key || payload digest || issuedAt) encoding)
// and the SHA3-512 Proof-of-History chain microblocks are ordered by
// (spec.md §4.5).
//
// Dilithium-3 has no pure-Go implementation in the teacher corpus or the
// wider example pack; per spec.md's explicit Non-goals ("the Dilithium
// signature algorithm itself is out of scope; treat it as an opaque
// oracle"), DilithiumSign/DilithiumVerify are implemented as an interface
// seam (Oracle) rather than a concrete algorithm, so this package compiles
// and is testable today and a real implementation can be substituted
// without touching any caller.
package crypto

import (
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/ed25519"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/params"
)

// Oracle is the seam spec.md's Non-goals carve out for Dilithium-3: any
// implementation satisfying it (a real liboqs binding, a test stub, ...)
// can be plugged into HybridSigner without this package depending on one.
type Oracle interface {
	Sign(payload []byte) (sig []byte, err error)
	Verify(pub, payload, sig []byte) bool
}

// EphemeralCertificate is the short-lived Ed25519 keypair binding the
// long-term Dilithium identity to a signing session, valid for
// params.HybridCertificateLifetime and never cached regardless of that
// lifetime (spec.md §4.5.1, SPEC_FULL.md §9 Open Question decision 2).
type EphemeralCertificate struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	IssuedAt   int64
}

// NewEphemeralCertificate mints a fresh Ed25519 keypair.
func NewEphemeralCertificate(issuedAt int64) (*EphemeralCertificate, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &EphemeralCertificate{PublicKey: pub, PrivateKey: priv, IssuedAt: issuedAt}, nil
}

// Expired reports whether now is past IssuedAt + HybridCertificateLifetime.
func (c *EphemeralCertificate) Expired(now int64) bool {
	return now-c.IssuedAt >= int64(params.HybridCertificateLifetime.Seconds())
}

// HybridSignature is the wire form spec.md §4.5.1 requires: an Ed25519
// signature over the payload using the ephemeral certificate, plus the
// Dilithium-3 signature from the oracle over the encapsulated
// (CertPublicKey, digest(payload), CertIssuedAt) encoding.
type HybridSignature struct {
	EdSignature        []byte
	DilithiumSignature []byte
	CertPublicKey      []byte
	CertIssuedAt       int64
}

// HybridSigner signs payloads with both legs of the hybrid scheme.
type HybridSigner struct {
	cert   *EphemeralCertificate
	oracle Oracle
}

func NewHybridSigner(cert *EphemeralCertificate, oracle Oracle) *HybridSigner {
	return &HybridSigner{cert: cert, oracle: oracle}
}

func (s *HybridSigner) Sign(payload []byte) (*HybridSignature, error) {
	edSig := ed25519.Sign(s.cert.PrivateKey, payload)
	encap := encapsulate([]byte(s.cert.PublicKey), payload, s.cert.IssuedAt)
	dSig, err := s.oracle.Sign(encap)
	if err != nil {
		return nil, err
	}
	return &HybridSignature{
		EdSignature:        edSig,
		DilithiumSignature: dSig,
		CertPublicKey:      []byte(s.cert.PublicKey),
		CertIssuedAt:       s.cert.IssuedAt,
	}, nil
}

// VerifyHybrid checks both legs: the Ed25519 signature against the
// certificate embedded in sig, and the Dilithium-3 signature against the
// long-term public key via oracle, rejecting the signature if the
// certificate has expired as of now.
func VerifyHybrid(oracle Oracle, dilithiumPub []byte, payload []byte, sig *HybridSignature, now int64) bool {
	if now-sig.CertIssuedAt >= int64(params.HybridCertificateLifetime.Seconds()) {
		return false
	}
	if !ed25519.Verify(ed25519.PublicKey(sig.CertPublicKey), payload, sig.EdSignature) {
		return false
	}
	encap := encapsulate(sig.CertPublicKey, payload, sig.CertIssuedAt)
	return oracle.Verify(dilithiumPub, encap, sig.DilithiumSignature)
}

// encapsulate builds the message spec.md §4.5.1 requires the Dilithium-3
// leg to actually sign: the ephemeral certificate's public key, the
// payload's digest, and the certificate's issuance time, concatenated —
// so the long-term identity key attests to "this ephemeral key signed
// this payload at this time", not to the raw payload a compromised
// ephemeral key alone could already attest to.
func encapsulate(certPublicKey, payload []byte, issuedAt int64) []byte {
	digest := common.Sum256(payload)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(issuedAt))
	out := make([]byte, 0, len(certPublicKey)+len(digest)+len(ts))
	out = append(out, certPublicKey...)
	out = append(out, digest[:]...)
	out = append(out, ts[:]...)
	return out
}

// PoHChain is the SHA3-512 Proof-of-History hash chain microblocks within
// a shard are ordered by (spec.md §4.5): each tick hashes the prior value,
// and arbitrary event data (e.g. a microblock hash) can be mixed in
// without breaking the chain.
type PoHChain struct {
	current [64]byte
	seqNo   uint64
}

func NewPoHChain(seed [64]byte) *PoHChain {
	return &PoHChain{current: seed}
}

// Tick advances the chain by one step, optionally mixing in event data
// (e.g. the hash of a just-produced microblock).
func (p *PoHChain) Tick(event []byte) ([64]byte, uint64) {
	p.current = common.Sum512(append(p.current[:], event...))
	p.seqNo++
	return p.current, p.seqNo
}

func (p *PoHChain) Current() ([64]byte, uint64) { return p.current, p.seqNo }
