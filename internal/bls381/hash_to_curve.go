package bls381

import blst "github.com/supranational/blst/bindings/go"

// HashToCurve maps msg to G2 with hash_to_curve (RFC 9380, suite
// BLS12381G2_XMD:SHA-256_SSWU_RO_) under DST.
func HashToCurve(msg []byte) *Signature {
	return &Signature{p: *hashToG2(msg)}
}

func hashToG2(msg []byte) *blst.P2Affine {
	return blst.HashToG2(msg, dst).ToAffine()
}

// MessagePairing computes e(pk, H(pk ‖ msg)), the per-signer factor of the
// aggregate verification equation. pk must be valid.
func MessagePairing(pk *PublicKey, msg []byte) *GT {
	return pair(hashToG2(augment(pk, msg)), &pk.p)
}
