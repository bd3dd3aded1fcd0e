// Package bls381 wraps the blst BLS12-381 implementation for the augmented
// signature scheme: public keys in G1, signatures in G2, and every signed
// message prefixed with the signer's compressed public key.
package bls381

import "errors"

// DST is the hash-to-curve domain separation tag of the augmented scheme.
// Signatures and pairing cache entries depend on it; it must never change.
const DST = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_AUG_"

const (
	PublicKeySize = 48
	SignatureSize = 96
	SecretKeySize = 32
	GTSize        = 576
)

var (
	ErrInvalidPublicKey = errors.New("bls381: invalid public key")
	ErrInvalidSignature = errors.New("bls381: invalid signature")
	ErrInvalidSecretKey = errors.New("bls381: invalid secret key")
	ErrSeedTooShort     = errors.New("bls381: seed shorter than 32 bytes")
)

var dst = []byte(DST)

// compressed-encoding flag bits of the first byte
const (
	flagCompressed = 0x80
	flagInfinity   = 0x40
)

// augment returns pk ‖ msg.
func augment(pk *PublicKey, msg []byte) []byte {
	b := pk.Bytes()
	out := make([]byte, 0, PublicKeySize+len(msg))
	out = append(out, b[:]...)
	return append(out, msg...)
}

// AugmentedMessage returns the byte string actually hashed to G2 when pk
// signs msg.
func AugmentedMessage(pk *PublicKey, msg []byte) []byte { return augment(pk, msg) }
