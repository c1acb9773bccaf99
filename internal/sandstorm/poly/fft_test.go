package poly

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

func samplePoly() Polynomial {
	return New([]field.Fp{
		field.FpFromUint64(5),
		field.FpFromUint64(0),
		field.FpFromUint64(7),
		field.FpFromUint64(11),
	})
}

func TestDomainGeneratorOrder(t *testing.T) {
	for _, n := range []int{2, 8, 64, 1024} {
		g, err := DomainGenerator(n)
		require.NoError(t, err)
		require.True(t, g.Pow(uint64(n)).IsOne(), "n=%d", n)
		require.False(t, g.Pow(uint64(n/2)).IsOne(), "n=%d: generator is not primitive", n)
	}
	_, err := DomainGenerator(6)
	require.Error(t, err)
}

func TestEvaluateInterpolateRoundTrip(t *testing.T) {
	p := samplePoly()
	const n = 8
	evals, err := EvaluateOnDomain(p, n)
	require.NoError(t, err)

	// FFT values must agree with direct Horner evaluation.
	domain, err := Domain(n, field.OneFp())
	require.NoError(t, err)
	for i, x := range domain {
		require.True(t, evals[i].Equal(p.Eval(x)), "point %d", i)
	}

	back, err := InterpolateFromDomain(evals)
	require.NoError(t, err)
	require.Equal(t, p.Degree(), back.Degree())
	for i := range p.Coeffs {
		require.True(t, p.Coeffs[i].Equal(back.Coeffs[i]), "coeff %d", i)
	}
}

func TestLowDegreeExtendMatchesCosetEvaluation(t *testing.T) {
	p := samplePoly()
	const n = 16
	offset := field.FpFromUint64(3)
	lde, err := LowDegreeExtend(p, n, offset)
	require.NoError(t, err)

	domain, err := Domain(n, offset)
	require.NoError(t, err)
	for i, x := range domain {
		require.True(t, lde[i].Equal(p.Eval(x)), "point %d", i)
	}

	back, err := InterpolateFromCoset(lde, offset)
	require.NoError(t, err)
	for i := range p.Coeffs {
		require.True(t, p.Coeffs[i].Equal(back.Coeffs[i]), "coeff %d", i)
	}
	for i := len(p.Coeffs); i < len(back.Coeffs); i++ {
		require.True(t, back.Coeffs[i].IsZero(), "coeff %d should vanish", i)
	}
}

func TestQuotientByZerofierExactDivision(t *testing.T) {
	// p(x) = (x^4 - 1) * (x + 9) vanishes on the size-4 subgroup.
	z := ZerofierForSubgroup(4)
	q := New([]field.Fp{field.FpFromUint64(9), field.OneFp()})
	p := z.Mul(q)

	got, err := QuotientByZerofier(p, z)
	require.NoError(t, err)
	require.Equal(t, q.Degree(), got.Degree())
	for i := range q.Coeffs {
		require.True(t, q.Coeffs[i].Equal(got.Coeffs[i]), "coeff %d", i)
	}

	// A polynomial that does not vanish on the subgroup must be rejected.
	_, err = QuotientByZerofier(New([]field.Fp{field.OneFp(), field.OneFp()}), z)
	require.Error(t, err)
}
