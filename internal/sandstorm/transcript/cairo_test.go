package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

func TestCairoCoinDeterministicReplay(t *testing.T) {
	seed := hash.Blake2s256{}.HashBytes([]byte("public input"))
	a := NewCairoCoin(seed)
	b := NewCairoCoin(seed)

	a.ReseedWithDigest(hash.Digest{1, 2, 3})
	b.ReseedWithDigest(hash.Digest{1, 2, 3})
	for i := 0; i < 4; i++ {
		require.True(t, a.Draw().Equal(b.Draw()), "draw %d", i)
	}

	elems := []field.Fp{field.FpFromUint64(41), field.FpFromUint64(43)}
	a.ReseedWithFieldElements(elems)
	b.ReseedWithFieldElements(elems)
	require.True(t, a.Draw().Equal(b.Draw()))
}

// The cairo coin's Pedersen-folded reseed path must diverge from the
// byte-level vector reseed: the two encode the same elements differently,
// so the subsequent draws cannot agree.
func TestCairoReseedPathsDiffer(t *testing.T) {
	seed := make(hash.Digest, 32)
	a := NewCairoCoin(seed)
	b := NewCairoCoin(seed)
	elems := []field.Fp{field.FpFromUint64(7)}
	a.ReseedWithFieldElements(elems)
	b.ReseedWithFieldElementVector(elems)
	require.False(t, a.Draw().Equal(b.Draw()))
}

func TestDrawQueriesSortedDedupedInRange(t *testing.T) {
	coin := NewCairoCoin(make(hash.Digest, 32))
	const domainSize = 64
	positions := coin.DrawQueries(10, domainSize)
	require.NotEmpty(t, positions)
	require.LessOrEqual(t, len(positions), 10)
	for i, p := range positions {
		require.GreaterOrEqual(t, p, 0)
		require.Less(t, p, domainSize)
		if i > 0 {
			require.Greater(t, p, positions[i-1], "positions must be strictly increasing")
		}
	}
}

func TestProofOfWorkGrindVerifyRoundTrip(t *testing.T) {
	for _, newCoin := range []func(hash.Digest) Coin{
		func(s hash.Digest) Coin { return NewSolidityCoin(s) },
		func(s hash.Digest) Coin { return NewCairoCoin(s) },
	} {
		coin := newCoin(make(hash.Digest, 32))
		const bits = 4
		nonce, err := coin.GrindProofOfWork(bits)
		require.NoError(t, err)
		require.True(t, coin.VerifyProofOfWork(bits, nonce))
		require.False(t, coin.VerifyProofOfWork(64, nonce))
	}
}

func TestReseedResetsCounter(t *testing.T) {
	coin := NewSolidityCoin(make(hash.Digest, 32))
	first := coin.Draw()
	coin.ReseedWithInt(99)
	coin2 := NewSolidityCoin(make(hash.Digest, 32))
	_ = coin2.Draw()
	coin2.ReseedWithInt(99)
	// Same reseed input from the same digest state: both coins must now be
	// in identical states regardless of how many draws preceded the reseed
	// on either side... except draws do not mutate the digest, only the
	// counter, which reseed resets.
	require.True(t, coin.Draw().Equal(coin2.Draw()))
	require.True(t, first.Equal(NewSolidityCoin(make(hash.Digest, 32)).Draw()))
}
