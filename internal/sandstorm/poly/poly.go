// Package poly implements dense univariate polynomials over field.Fp,
// radix-2 FFT/IFFT evaluation and interpolation on multiplicative
// subgroups/cosets, and the zerofier-quotient helpers the AIR's
// constraint-composition and FRI layers both need.
package poly

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// Polynomial holds coefficients in ascending degree order; Coeffs[0] is the
// constant term. A trimmed polynomial never carries a non-zero leading term
// beyond its stored degree, but intermediate arithmetic is allowed to carry
// trailing zero coefficients until Degree is consulted.
type Polynomial struct {
	Coeffs []field.Fp
}

// New builds a polynomial from coefficients (ascending degree).
func New(coeffs []field.Fp) Polynomial {
	return Polynomial{Coeffs: append([]field.Fp{}, coeffs...)}
}

// Zero returns the zero polynomial.
func Zero() Polynomial { return Polynomial{Coeffs: []field.Fp{field.ZeroFp()}} }

// Degree returns the trimmed degree, ignoring trailing zero coefficients.
func (p Polynomial) Degree() int {
	for i := len(p.Coeffs) - 1; i > 0; i-- {
		if !p.Coeffs[i].IsZero() {
			return i
		}
	}
	if len(p.Coeffs) == 0 || p.Coeffs[0].IsZero() {
		return -1
	}
	return 0
}

func (p Polynomial) coeff(i int) field.Fp {
	if i < 0 || i >= len(p.Coeffs) {
		return field.ZeroFp()
	}
	return p.Coeffs[i]
}

// Eval evaluates p at x using Horner's method.
func (p Polynomial) Eval(x field.Fp) field.Fp {
	acc := field.ZeroFp()
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		acc = acc.Mul(x).Add(p.Coeffs[i])
	}
	return acc
}

// EvalBatch evaluates p at every point in xs.
func (p Polynomial) EvalBatch(xs []field.Fp) []field.Fp {
	out := make([]field.Fp, len(xs))
	for i, x := range xs {
		out[i] = p.Eval(x)
	}
	return out
}

func (p Polynomial) Add(q Polynomial) Polynomial {
	n := len(p.Coeffs)
	if len(q.Coeffs) > n {
		n = len(q.Coeffs)
	}
	out := make([]field.Fp, n)
	for i := 0; i < n; i++ {
		out[i] = p.coeff(i).Add(q.coeff(i))
	}
	return Polynomial{Coeffs: out}
}

func (p Polynomial) Sub(q Polynomial) Polynomial {
	n := len(p.Coeffs)
	if len(q.Coeffs) > n {
		n = len(q.Coeffs)
	}
	out := make([]field.Fp, n)
	for i := 0; i < n; i++ {
		out[i] = p.coeff(i).Sub(q.coeff(i))
	}
	return Polynomial{Coeffs: out}
}

// Mul multiplies two polynomials using schoolbook convolution. Callers on
// the hot path (LDE, composition) go through the FFT helpers in fft.go instead.
func (p Polynomial) Mul(q Polynomial) Polynomial {
	if p.Degree() < 0 || q.Degree() < 0 {
		return Zero()
	}
	out := make([]field.Fp, p.Degree()+q.Degree()+2)
	for i := range out {
		out[i] = field.ZeroFp()
	}
	for i, a := range p.Coeffs {
		if a.IsZero() {
			continue
		}
		for j, b := range q.Coeffs {
			out[i+j] = out[i+j].Add(a.Mul(b))
		}
	}
	return Polynomial{Coeffs: out}
}

// Scale multiplies every coefficient by c.
func (p Polynomial) Scale(c field.Fp) Polynomial {
	out := make([]field.Fp, len(p.Coeffs))
	for i, a := range p.Coeffs {
		out[i] = a.Mul(c)
	}
	return Polynomial{Coeffs: out}
}

// DivRem performs polynomial long division, returning quotient and
// remainder such that p = q*divisor + rem with deg(rem) < deg(divisor).
func (p Polynomial) DivRem(divisor Polynomial) (quotient, remainder Polynomial, err error) {
	dDeg := divisor.Degree()
	if dDeg < 0 {
		return Polynomial{}, Polynomial{}, fmt.Errorf("poly: division by zero polynomial")
	}
	pDeg := p.Degree()
	if pDeg < dDeg {
		return Zero(), p, nil
	}
	remCoeffs := append([]field.Fp{}, p.Coeffs...)
	for len(remCoeffs) < pDeg+1 {
		remCoeffs = append(remCoeffs, field.ZeroFp())
	}
	qCoeffs := make([]field.Fp, pDeg-dDeg+1)
	for i := range qCoeffs {
		qCoeffs[i] = field.ZeroFp()
	}
	leadInv, err := divisor.coeff(dDeg).Inv()
	if err != nil {
		return Polynomial{}, Polynomial{}, fmt.Errorf("poly: %w", err)
	}
	for deg := pDeg; deg >= dDeg; deg-- {
		coeff := remCoeffs[deg]
		if coeff.IsZero() {
			continue
		}
		factor := coeff.Mul(leadInv)
		qCoeffs[deg-dDeg] = factor
		for j := 0; j <= dDeg; j++ {
			remCoeffs[deg-dDeg+j] = remCoeffs[deg-dDeg+j].Sub(factor.Mul(divisor.coeff(j)))
		}
	}
	return Polynomial{Coeffs: qCoeffs}, Polynomial{Coeffs: remCoeffs}, nil
}

// ZerofierForSubgroup returns X^n - 1, the vanishing polynomial of the
// multiplicative subgroup of order n.
func ZerofierForSubgroup(n int) Polynomial {
	coeffs := make([]field.Fp, n+1)
	for i := range coeffs {
		coeffs[i] = field.ZeroFp()
	}
	coeffs[0] = field.OneFp().Neg()
	coeffs[n] = field.OneFp()
	return Polynomial{Coeffs: coeffs}
}

// ZerofierForCoset returns X^n - offset^n, the vanishing polynomial of the
// coset offset*<g> where g has order n.
func ZerofierForCoset(n int, offset field.Fp) Polynomial {
	coeffs := make([]field.Fp, n+1)
	for i := range coeffs {
		coeffs[i] = field.ZeroFp()
	}
	coeffs[0] = offset.Pow(uint64(n)).Neg()
	coeffs[n] = field.OneFp()
	return Polynomial{Coeffs: coeffs}
}

// QuotientByZerofier divides p by the zerofier of a size-n (sub)domain,
// erroring if the remainder is non-zero (the composition polynomial's
// defining property: every constraint must vanish there).
func QuotientByZerofier(p Polynomial, zerofier Polynomial) (Polynomial, error) {
	q, rem, err := p.DivRem(zerofier)
	if err != nil {
		return Polynomial{}, err
	}
	if rem.Degree() >= 0 {
		return Polynomial{}, fmt.Errorf("poly: non-zero remainder dividing by zerofier, degree %d", rem.Degree())
	}
	return q, nil
}
