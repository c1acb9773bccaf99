package field

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFpArithmeticIdentities(t *testing.T) {
	a := FpFromUint64(12345)
	b := FpFromUint64(67890)

	require.True(t, a.Add(b).Equal(b.Add(a)))
	require.True(t, a.Sub(a).IsZero())
	require.True(t, a.Mul(OneFp()).Equal(a))
	require.True(t, a.Mul(ZeroFp()).IsZero())

	inv, err := a.Inv()
	require.NoError(t, err)
	require.True(t, a.Mul(inv).IsOne())

	_, err = ZeroFp().Inv()
	require.Error(t, err)
}

func TestFpWrapsAroundModulus(t *testing.T) {
	pm1 := NewFp(new(big.Int).Sub(P, big.NewInt(1)))
	require.True(t, pm1.Add(OneFp()).IsZero())
	require.True(t, ZeroFp().Sub(OneFp()).Equal(pm1))
}

func TestMontgomeryBytesRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 2, 1 << 15, 1 << 40} {
		a := FpFromUint64(v)
		mont := a.ToMontgomeryBytes32()
		back := FromMontgomeryBytes32(mont[:])
		require.True(t, a.Equal(back), "v=%d", v)
	}
	// Montgomery form is a genuine re-encoding: it must differ from the
	// canonical bytes for a small nonzero element.
	a := FpFromUint64(7)
	canon := a.Bytes32BE()
	mont := a.ToMontgomeryBytes32()
	require.NotEqual(t, canon, mont)
}

func TestBatchInvertMatchesScalarInverse(t *testing.T) {
	xs := []Fp{FpFromUint64(2), FpFromUint64(3), FpFromUint64(999), FpFromUint64(1 << 20)}
	inv, err := BatchInvert(xs)
	require.NoError(t, err)
	require.Len(t, inv, len(xs))
	for i, x := range xs {
		want, err := x.Inv()
		require.NoError(t, err)
		require.True(t, inv[i].Equal(want), "index %d", i)
	}

	_, err = BatchInvert([]Fp{FpFromUint64(5), ZeroFp()})
	require.Error(t, err)
}

func TestFrInverse(t *testing.T) {
	a := NewFr(big.NewInt(98765))
	inv, err := a.Inv()
	require.NoError(t, err)
	require.True(t, a.Mul(inv).Sub(OneFr()).IsZero())
}

func TestExpMatchesRepeatedMul(t *testing.T) {
	a := FpFromUint64(3)
	acc := OneFp()
	for i := 0; i < 10; i++ {
		acc = acc.Mul(a)
	}
	require.True(t, a.Pow(10).Equal(acc))
}
