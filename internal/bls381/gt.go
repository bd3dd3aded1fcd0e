package bls381

import (
	"bytes"

	blst "github.com/supranational/blst/bindings/go"
)

// GT is a pairing result: a final-exponentiated element of the target group.
type GT struct {
	v blst.Fp12
}

// GTOne returns the identity of GT.
func GTOne() *GT { return &GT{v: blst.Fp12One()} }

// Mul returns g·o without modifying either operand.
func (g *GT) Mul(o *GT) *GT {
	out := *g
	out.v.MulAssign(&o.v)
	return &out
}

// MulAssign sets g = g·o.
func (g *GT) MulAssign(o *GT) { g.v.MulAssign(&o.v) }

// Equal compares canonical encodings.
func (g *GT) Equal(o *GT) bool { return bytes.Equal(g.v.ToBendian(), o.v.ToBendian()) }

// Bytes returns the 576-byte big-endian encoding.
func (g *GT) Bytes() []byte { return g.v.ToBendian() }

// pair computes e(p, q). The Miller loop does not special-case infinity, so
// the identity is handled here.
func pair(q *blst.P2Affine, p *blst.P1Affine) *GT {
	if q.Equals(new(blst.P2Affine)) || p.Equals(new(blst.P1Affine)) {
		return GTOne()
	}
	ml := blst.Fp12MillerLoop(q, p)
	ml.FinalExp()
	return &GT{v: *ml}
}
