package transcript

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

// TestSolidityCoinDrawMatchesReferenceVector reproduces the
// draw_matches_solidity_verifier vector from the reference implementation:
// a coin seeded with the all-zero Keccak256 digest must draw these four
// field elements in this exact order.
func TestSolidityCoinDrawMatchesReferenceVector(t *testing.T) {
	coin := NewSolidityCoin(make(hash.Digest, 32))

	want := []string{
		"914053382091189896561965228399096618375831658573140010954888220151670628653",
		"3496720894051083870907112578962849417100085660158534559258626637026506475074",
		"1568281537905787801632546124130153362941104398120976544423901633300198530772",
		"539395842685339476048032152056539303790683868668644006005689195830492067187",
	}
	for i, w := range want {
		got := coin.Draw()
		expected, ok := new(big.Int).SetString(w, 10)
		require.True(t, ok)
		require.Equal(t, expected.String(), got.Big().String(), "draw %d", i)
	}
}
