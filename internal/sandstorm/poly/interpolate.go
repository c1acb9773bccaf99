package poly

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// Interpolate recovers the unique degree-<len(xs) polynomial passing
// through (xs[i], ys[i]), via Lagrange interpolation, inverting each basis
// denominator separately. It handles small, arbitrary point sets where the
// points don't form a subgroup and the FFT path in fft.go doesn't apply.
func Interpolate(xs, ys []field.Fp) (Polynomial, error) {
	n := len(xs)
	if n != len(ys) {
		return Polynomial{}, fmt.Errorf("poly: interpolate point/value length mismatch")
	}
	if n == 0 {
		return Polynomial{}, fmt.Errorf("poly: interpolate requires at least one point")
	}

	result := Zero()
	for i := 0; i < n; i++ {
		basis, err := lagrangeBasis(xs, i)
		if err != nil {
			return Polynomial{}, fmt.Errorf("poly: lagrange basis %d: %w", i, err)
		}
		result = result.Add(basis.Scale(ys[i]))
	}
	return result, nil
}

func lagrangeBasis(xs []field.Fp, i int) (Polynomial, error) {
	result := New([]field.Fp{field.OneFp()})
	xi := xs[i]
	for j, xj := range xs {
		if j == i {
			continue
		}
		denom := xi.Sub(xj)
		if denom.IsZero() {
			return Polynomial{}, fmt.Errorf("duplicate interpolation point at index %d and %d", i, j)
		}
		denomInv, err := denom.Inv()
		if err != nil {
			return Polynomial{}, err
		}
		linear := New([]field.Fp{xj.Neg(), field.OneFp()}).Scale(denomInv)
		result = result.Mul(linear)
	}
	return result, nil
}

// EvalAt evaluates the unique interpolant of (xs,ys) at z without building
// the polynomial explicitly, using the barycentric formula, for when only
// a single evaluation (not the whole polynomial) is needed.
func EvalAt(xs, ys []field.Fp, z field.Fp) (field.Fp, error) {
	n := len(xs)
	if n != len(ys) {
		return field.Fp{}, fmt.Errorf("poly: eval-at point/value length mismatch")
	}
	for i, x := range xs {
		if x.Equal(z) {
			return ys[i], nil
		}
	}
	weights := make([]field.Fp, n)
	for i := range weights {
		w := field.OneFp()
		for j, xj := range xs {
			if j == i {
				continue
			}
			w = w.Mul(xs[i].Sub(xj))
		}
		weights[i] = w
	}
	weightsInv, err := field.BatchInvert(weights)
	if err != nil {
		return field.Fp{}, err
	}
	diffs := make([]field.Fp, n)
	for i, x := range xs {
		diffs[i] = z.Sub(x)
	}
	diffsInv, err := field.BatchInvert(diffs)
	if err != nil {
		return field.Fp{}, err
	}
	num, den := field.ZeroFp(), field.ZeroFp()
	for i := range xs {
		term := weightsInv[i].Mul(diffsInv[i])
		num = num.Add(term.Mul(ys[i]))
		den = den.Add(term)
	}
	return num.Div(den)
}
