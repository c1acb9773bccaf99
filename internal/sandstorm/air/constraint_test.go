package air

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
)

func testDomain(t *testing.T, n int) domain {
	t.Helper()
	omega, err := poly.DomainGenerator(n)
	require.NoError(t, err)
	return domain{omega: omega, n: n}
}

func evalAtRow(t *testing.T, d domain, e Expr, row int) field.Fp {
	t.Helper()
	env := &Env{X: d.omegaPow(row)}
	return Eval(e, env)
}

func TestEveryKthRowZerofierVanishesExactlyOnStride(t *testing.T) {
	const n, k = 64, 16
	d := testDomain(t, n)
	z := d.everyKthRowZerofier(k)
	for row := 0; row < n; row++ {
		v := evalAtRow(t, d, z, row)
		if row%k == 0 {
			require.True(t, v.IsZero(), "row %d", row)
		} else {
			require.False(t, v.IsZero(), "row %d", row)
		}
	}
}

func TestEveryKthRowExceptLastSkipsFinalGroup(t *testing.T) {
	const n, k = 64, 16
	d := testDomain(t, n)
	z := d.everyKthRowExceptLast(k)
	last := k * (n/k - 1)
	for row := 0; row < n; row++ {
		if row == last {
			// The excluded row is the rational expression's removable
			// singularity (0/0); it is never evaluated there in practice
			// since constraints evaluate on the shifted LDE coset.
			continue
		}
		v := evalAtRow(t, d, z, row)
		if row%k == 0 {
			require.True(t, v.IsZero(), "row %d", row)
		} else {
			require.False(t, v.IsZero(), "row %d", row)
		}
	}
	// Off the trace subgroup (a coset point) the zerofier must not vanish.
	coset := field.FpFromUint64(3).Mul(d.omegaPow(last))
	require.False(t, Eval(z, &Env{X: coset}).IsZero())
}

func TestSingleRowZerofier(t *testing.T) {
	const n = 32
	d := testDomain(t, n)
	z := d.singleRow(5)
	for row := 0; row < n; row++ {
		v := evalAtRow(t, d, z, row)
		require.Equal(t, row == 5, v.IsZero(), "row %d", row)
	}
}

func TestTraceArgumentsDeduplicates(t *testing.T) {
	c1 := Constraint{Name: "a", Numerator: Sub(col(ColPC, 0, "pc"), col(ColPC, CycleHeight, "next_pc")), Zerofier: One()}
	c2 := Constraint{Name: "b", Numerator: Mul(col(ColPC, 0, "pc"), col(ColAP, 0, "ap")), Zerofier: One()}
	args := TraceArguments([]Constraint{c1, c2})
	require.Len(t, args, 3)
	seen := map[[2]int]bool{}
	for _, a := range args {
		key := [2]int{a.Col, a.RowOffset}
		require.False(t, seen[key])
		seen[key] = true
	}
}

// The composition value must be the coefficient-weighted sum of each
// constraint's numerator/zerofier ratio.
func TestEvaluateCompositionWeightsConstraints(t *testing.T) {
	const n = 32
	d := testDomain(t, n)
	a := &Air{
		TraceLength: n,
		Omega:       d.omega,
		Constraints: []Constraint{
			{Name: "c0", Numerator: ConstU64(6), Zerofier: ConstU64(2)},
			{Name: "c1", Numerator: ConstU64(10), Zerofier: ConstU64(5)},
		},
	}
	env := &Env{
		X:          field.FpFromUint64(123),
		CompCoeffs: []field.Fp{field.FpFromUint64(100), field.FpFromUint64(1)},
	}
	// 100*3 + 1*2
	require.True(t, a.EvaluateComposition(env).Equal(field.FpFromUint64(302)))
}
