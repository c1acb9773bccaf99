// Package field implements the 252-bit Stark-friendly prime field Fp, its
// companion scalar field Fr, the short-Weierstrass Stark curve, and the
// Pedersen/Poseidon primitives built on top of them.
//
// Elements keep their canonical (non-Montgomery) big.Int representation
// internally; ToMontgomeryBytes32/FromMontgomeryBytes32 perform the Montgomery
// conversion only at the byte-serialization boundary, where the wire
// contract (see design notes in DESIGN.md) actually requires it.
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// P is the modulus 2^251 + 17*2^192 + 1.
var P, _ = new(big.Int).SetString("3618502788666131213697322783095070105623107215331596699973092056135872020481", 10)

// R is the order of the Stark curve group, used as the modulus of Fr.
var R, _ = new(big.Int).SetString("3618502788666131213697322783095070105526743751716087489154079457884512865583", 10)

// montgomeryR is 2^256 mod P, used for the Montgomery-form byte encoding
// that the on-chain (Keccak) transcript and hash functions require.
var montgomeryR = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), P)
var montgomeryRInv = new(big.Int).ModInverse(montgomeryR, P)

// Fp is an element of the base field.
type Fp struct {
	v *big.Int
}

func normalize(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, P)
	return r
}

// NewFp reduces v modulo P.
func NewFp(v *big.Int) Fp {
	return Fp{v: normalize(v)}
}

// FpFromUint64 builds an Fp from a uint64.
func FpFromUint64(v uint64) Fp {
	return Fp{v: new(big.Int).SetUint64(v)}
}

// FpFromInt64 builds an Fp from an int64, wrapping negative values.
func FpFromInt64(v int64) Fp {
	return NewFp(big.NewInt(v))
}

// FpFromBytesBE interprets 32 big-endian bytes as a canonical field element.
func FpFromBytesBE(b []byte) Fp {
	return NewFp(new(big.Int).SetBytes(b))
}

// NewFpFromDecimalString parses a base-10 integer literal into an Fp,
// reducing modulo P. Used for layout codes (air.LayoutCode) too large to
// fit a uint64 without a lossy truncation.
func NewFpFromDecimalString(s string) (Fp, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Fp{}, fmt.Errorf("field: %q is not a valid base-10 integer", s)
	}
	return NewFp(v), nil
}

// ZeroFp and OneFp are the additive/multiplicative identities.
func ZeroFp() Fp { return Fp{v: big.NewInt(0)} }
func OneFp() Fp  { return Fp{v: big.NewInt(1)} }

// RandomFp draws a uniformly random element of Fp.
func RandomFp() (Fp, error) {
	v, err := rand.Int(rand.Reader, P)
	if err != nil {
		return Fp{}, fmt.Errorf("field: failed to draw random element: %w", err)
	}
	return Fp{v: v}, nil
}

// Big returns a copy of the canonical big.Int value.
func (a Fp) Big() *big.Int { return new(big.Int).Set(a.v) }

func (a Fp) Add(b Fp) Fp { return Fp{v: normalize(new(big.Int).Add(a.v, b.v))} }
func (a Fp) Sub(b Fp) Fp { return Fp{v: normalize(new(big.Int).Sub(a.v, b.v))} }
func (a Fp) Mul(b Fp) Fp { return Fp{v: normalize(new(big.Int).Mul(a.v, b.v))} }
func (a Fp) Neg() Fp     { return Fp{v: normalize(new(big.Int).Neg(a.v))} }
func (a Fp) Square() Fp  { return a.Mul(a) }

// Inv returns the multiplicative inverse of a. a must be non-zero.
func (a Fp) Inv() (Fp, error) {
	if a.IsZero() {
		return Fp{}, fmt.Errorf("field: cannot invert zero")
	}
	inv := new(big.Int).ModInverse(a.v, P)
	return Fp{v: inv}, nil
}

// Div computes a/b.
func (a Fp) Div(b Fp) (Fp, error) {
	inv, err := b.Inv()
	if err != nil {
		return Fp{}, fmt.Errorf("field: division failed: %w", err)
	}
	return a.Mul(inv), nil
}

// Exp raises a to an arbitrary non-negative exponent.
func (a Fp) Exp(e *big.Int) Fp {
	return Fp{v: new(big.Int).Exp(a.v, e, P)}
}

// Pow raises a to a small non-negative power.
func (a Fp) Pow(e uint64) Fp {
	return a.Exp(new(big.Int).SetUint64(e))
}

func (a Fp) Equal(b Fp) bool { return a.v.Cmp(b.v) == 0 }
func (a Fp) IsZero() bool    { return a.v.Sign() == 0 }
func (a Fp) IsOne() bool     { return a.v.Cmp(big.NewInt(1)) == 0 }
func (a Fp) Cmp(b Fp) int    { return a.v.Cmp(b.v) }
func (a Fp) String() string  { return a.v.String() }

// Bytes32BE returns the canonical value as 32 big-endian bytes.
func (a Fp) Bytes32BE() [32]byte {
	var out [32]byte
	a.v.FillBytes(out[:])
	return out
}

// ToMontgomeryBytes32 returns a*R mod P, encoded as 32 big-endian bytes. This
// is the encoding the on-chain (Solidity/Keccak) transcript hashes.
func (a Fp) ToMontgomeryBytes32() [32]byte {
	mont := new(big.Int).Mod(new(big.Int).Mul(a.v, montgomeryR), P)
	var out [32]byte
	mont.FillBytes(out[:])
	return out
}

// FromMontgomeryBytes32 interprets 32 big-endian bytes as a Montgomery-form
// representative m and returns m*R^-1 mod P.
func FromMontgomeryBytes32(b []byte) Fp {
	m := new(big.Int).SetBytes(b)
	v := new(big.Int).Mod(new(big.Int).Mul(m, montgomeryRInv), P)
	return Fp{v: v}
}

// Fr is an element of the scalar field (the Stark curve's group order).
type Fr struct {
	v *big.Int
}

func NewFr(v *big.Int) Fr { return Fr{v: new(big.Int).Mod(v, R)} }
func ZeroFr() Fr          { return Fr{v: big.NewInt(0)} }
func OneFr() Fr           { return Fr{v: big.NewInt(1)} }

func (a Fr) Big() *big.Int { return new(big.Int).Set(a.v) }
func (a Fr) Add(b Fr) Fr   { return NewFr(new(big.Int).Add(a.v, b.v)) }
func (a Fr) Sub(b Fr) Fr   { return NewFr(new(big.Int).Sub(a.v, b.v)) }
func (a Fr) Mul(b Fr) Fr   { return NewFr(new(big.Int).Mul(a.v, b.v)) }
func (a Fr) IsZero() bool  { return a.v.Sign() == 0 }

func (a Fr) Inv() (Fr, error) {
	if a.IsZero() {
		return Fr{}, fmt.Errorf("field: cannot invert zero scalar")
	}
	return Fr{v: new(big.Int).ModInverse(a.v, R)}, nil
}

// BatchInvert inverts all elements of xs using Montgomery's trick: one
// field inversion plus 3*len(xs) multiplications instead of len(xs)
// inversions. Panics only propagate via error; any zero element is rejected.
func BatchInvert(xs []Fp) ([]Fp, error) {
	n := len(xs)
	if n == 0 {
		return nil, nil
	}
	acc := make([]Fp, n)
	acc[0] = xs[0]
	for i := 1; i < n; i++ {
		if xs[i].IsZero() {
			return nil, fmt.Errorf("field: batch inversion of zero element at index %d", i)
		}
		acc[i] = acc[i-1].Mul(xs[i])
	}
	accInv, err := acc[n-1].Inv()
	if err != nil {
		return nil, err
	}
	out := make([]Fp, n)
	for i := n - 1; i > 0; i-- {
		out[i] = accInv.Mul(acc[i-1])
		accInv = accInv.Mul(xs[i])
	}
	out[0] = accInv
	return out, nil
}
