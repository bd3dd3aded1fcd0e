package bls381

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

// Signature is a G2 point. The identity is a valid signature: it is the
// aggregate of nothing.
type Signature struct {
	p blst.P2Affine
}

// SignatureFromBytes parses a 96-byte compressed G2 point and rejects points
// outside the subgroup.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != SignatureSize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(b))
	}
	if b[0]&flagCompressed == 0 {
		return nil, fmt.Errorf("%w: compression flag unset", ErrInvalidSignature)
	}
	sig := new(Signature)
	if sig.p.Uncompress(b) == nil {
		return nil, fmt.Errorf("%w: not a curve point", ErrInvalidSignature)
	}
	if !sig.IsValid() {
		return nil, fmt.Errorf("%w: outside subgroup", ErrInvalidSignature)
	}
	return sig, nil
}

// IdentitySignature returns the point at infinity of G2.
func IdentitySignature() *Signature { return new(Signature) }

func (s *Signature) IsValid() bool { return s.p.SigValidate(false) }

func (s *Signature) IsIdentity() bool { return s.p.Equals(new(blst.P2Affine)) }

func (s *Signature) Bytes() [SignatureSize]byte {
	var out [SignatureSize]byte
	copy(out[:], s.p.Compress())
	return out
}

func (s *Signature) Equal(o *Signature) bool { return s.p.Equals(&o.p) }

// Pair computes e(pk, s). Callers are expected to have validated both points.
func (s *Signature) Pair(pk *PublicKey) *GT { return pair(&s.p, &pk.p) }

// Aggregate sums signatures. An empty input yields the identity.
func Aggregate(sigs ...*Signature) (*Signature, error) {
	var agg blst.P2Aggregate
	for i, s := range sigs {
		if s == nil || !agg.Add(&s.p, true) {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidSignature, i)
		}
	}
	return &Signature{p: *agg.ToAffine()}, nil
}
