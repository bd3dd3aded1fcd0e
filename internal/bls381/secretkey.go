package bls381

import (
	"encoding/binary"
	"fmt"

	"github.com/minio/sha256-simd"
	blst "github.com/supranational/blst/bindings/go"
)

// SecretKey is a scalar mod r.
type SecretKey struct {
	s *blst.SecretKey
}

// SecretKeyFromSeed runs the IETF KeyGen over seed (at least 32 bytes).
func SecretKeyFromSeed(seed []byte) (*SecretKey, error) {
	if len(seed) < 32 {
		return nil, ErrSeedTooShort
	}
	s := blst.KeyGen(seed)
	if s == nil {
		return nil, ErrInvalidSecretKey
	}
	return &SecretKey{s: s}, nil
}

// SecretKeyFromBytes parses a 32-byte big-endian scalar in [1, r).
func SecretKeyFromBytes(b []byte) (*SecretKey, error) {
	if len(b) != SecretKeySize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSecretKey, len(b))
	}
	s := new(blst.SecretKey).Deserialize(b)
	if s == nil {
		return nil, fmt.Errorf("%w: zero or not below group order", ErrInvalidSecretKey)
	}
	return &SecretKey{s: s}, nil
}

func (sk *SecretKey) Bytes() [SecretKeySize]byte {
	var out [SecretKeySize]byte
	copy(out[:], sk.s.Serialize())
	return out
}

func (sk *SecretKey) PublicKey() *PublicKey {
	return &PublicKey{p: *new(blst.P1Affine).From(sk.s)}
}

// Sign produces an augmented-scheme signature: H(pk ‖ msg)^sk.
func (sk *SecretKey) Sign(msg []byte) *Signature {
	aug := augment(sk.PublicKey(), msg)
	return &Signature{p: *new(blst.P2Affine).Sign(sk.s, aug, dst)}
}

// DeriveUnhardened returns sk + offset(pk, index) mod r, whose public key
// equals sk.PublicKey().DeriveUnhardened(index).
func (sk *SecretKey) DeriveUnhardened(index uint32) *SecretKey {
	offset := unhardenedOffset(sk.PublicKey(), index)
	child, ok := sk.s.Add(offset)
	if !ok {
		// sum is zero mod r
		panic("bls381: unhardened derivation produced a zero key")
	}
	return &SecretKey{s: child}
}

// unhardenedOffset is SHA-256(pk ‖ BE32(index)) reduced mod r.
func unhardenedOffset(pk *PublicKey, index uint32) *blst.Scalar {
	b := pk.Bytes()
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	h := sha256.New()
	h.Write(b[:])
	h.Write(idx[:])
	var s blst.Scalar
	if s.FromBEndian(h.Sum(nil)) == nil {
		panic("bls381: derivation offset reduced to zero")
	}
	return &s
}

// Sign is shorthand for sk.Sign(msg).
func Sign(sk *SecretKey, msg []byte) *Signature { return sk.Sign(msg) }
