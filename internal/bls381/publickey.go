package bls381

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

// PublicKey is a G1 point.
type PublicKey struct {
	p blst.P1Affine
}

// PublicKeyFromBytes parses a 48-byte compressed G1 point and rejects the
// identity and points outside the prime-order subgroup. Keys returned from
// here are safe to pair.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	pk, err := PublicKeyFromBytesUnchecked(b)
	if err != nil {
		return nil, err
	}
	if !pk.IsValid() {
		return nil, fmt.Errorf("%w: identity or outside subgroup", ErrInvalidPublicKey)
	}
	return pk, nil
}

// PublicKeyFromBytesUnchecked only decompresses b: the point is on the curve
// but may be the identity or outside the subgroup. UNSAFE: the caller must
// confirm IsValid before the key reaches a pairing.
func PublicKeyFromBytesUnchecked(b []byte) (*PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(b))
	}
	if b[0]&flagCompressed == 0 {
		return nil, fmt.Errorf("%w: compression flag unset", ErrInvalidPublicKey)
	}
	pk := new(PublicKey)
	if pk.p.Uncompress(b) == nil {
		return nil, fmt.Errorf("%w: not a curve point", ErrInvalidPublicKey)
	}
	return pk, nil
}

// G1Generator returns the fixed generator of G1.
func G1Generator() *PublicKey {
	return &PublicKey{p: *blst.P1Generator().ToAffine()}
}

// IsValid reports whether pk is not the identity and lies in G1.
func (pk *PublicKey) IsValid() bool { return pk.p.KeyValidate() }

// Bytes returns the compressed encoding.
func (pk *PublicKey) Bytes() [PublicKeySize]byte {
	var out [PublicKeySize]byte
	copy(out[:], pk.p.Compress())
	return out
}

func (pk *PublicKey) Equal(o *PublicKey) bool { return pk.p.Equals(&o.p) }

func (pk *PublicKey) String() string {
	b := pk.Bytes()
	return fmt.Sprintf("%x", b[:])
}

// Add returns pk + o.
func (pk *PublicKey) Add(o *PublicKey) *PublicKey {
	var p blst.P1
	p.FromAffine(&pk.p)
	p.AddAssign(&o.p)
	return &PublicKey{p: *p.ToAffine()}
}

// DeriveUnhardened returns the child key at index. The same child is
// obtained from the parent secret key via SecretKey.DeriveUnhardened.
func (pk *PublicKey) DeriveUnhardened(index uint32) *PublicKey {
	offset := unhardenedOffset(pk, index)
	return pk.Add(&PublicKey{p: *new(blst.P1Affine).From(offset)})
}

// Verify checks a single augmented-scheme signature over msg.
func (pk *PublicKey) Verify(msg []byte, sig *Signature) bool {
	if pk == nil || sig == nil || !pk.IsValid() || !sig.IsValid() {
		return false
	}
	return sig.p.Verify(false, &pk.p, false, augment(pk, msg), dst)
}

// AggregatePublicKeys sums keys, rejecting any outside G1. An empty input
// yields the identity, which is not itself a valid key.
func AggregatePublicKeys(pks ...*PublicKey) (*PublicKey, error) {
	var agg blst.P1Aggregate
	for i, pk := range pks {
		if pk == nil || !agg.Add(&pk.p, true) {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidPublicKey, i)
		}
	}
	return &PublicKey{p: *agg.ToAffine()}, nil
}
