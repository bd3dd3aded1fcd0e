package bls381

import blst "github.com/supranational/blst/bindings/go"

// AggregateVerify checks, with no caching, that
//
//	Π e(pk_i, H(pk_i ‖ msg_i)) == e(g1, sig)
//
// Every key must be valid. An empty batch holds only for the identity
// signature, the empty product being 1.
func AggregateVerify(sig *Signature, pks []*PublicKey, msgs [][]byte) bool {
	if sig == nil || len(pks) != len(msgs) || !sig.IsValid() {
		return false
	}
	if len(pks) == 0 {
		return sig.IsIdentity()
	}
	qs := make([]blst.P2Affine, 0, len(pks))
	ps := make([]blst.P1Affine, 0, len(pks))
	for i, pk := range pks {
		if pk == nil || !pk.IsValid() {
			return false
		}
		qs = append(qs, *hashToG2(augment(pk, msgs[i])))
		ps = append(ps, pk.p)
	}
	lhs := blst.Fp12MillerLoopN(qs, ps)
	rhs := blst.Fp12One()
	if !sig.IsIdentity() {
		rhs = *blst.Fp12MillerLoop(&sig.p, blst.P1Generator().ToAffine())
	}
	return blst.Fp12FinalVerify(lhs, &rhs)
}

// AggregateVerifyBytes parses every key with the subgroup check before
// delegating to AggregateVerify. A malformed key fails verification.
func AggregateVerifyBytes(sig *Signature, pks [][]byte, msgs [][]byte) bool {
	if len(pks) != len(msgs) {
		return false
	}
	parsed := make([]*PublicKey, len(pks))
	for i, b := range pks {
		pk, err := PublicKeyFromBytes(b)
		if err != nil {
			return false
		}
		parsed[i] = pk
	}
	return AggregateVerify(sig, parsed, msgs)
}
