package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

func TestFriendlyTreeProveVerifyRoundTrip(t *testing.T) {
	lower := hash.MaskedBlake2s256{}
	upper := hash.Pedersen{}

	leaves := make([]hash.Digest, 8)
	for i := range leaves {
		leaves[i] = lower.HashBytes([]byte{byte(i), byte(i * 3)})
	}

	for _, friendlyLayers := range []int{0, 1, 3} {
		tree, err := NewFriendly(lower, upper, friendlyLayers, leaves)
		require.NoError(t, err)
		for i, leaf := range leaves {
			proof, err := tree.Prove(i)
			require.NoError(t, err)
			require.True(t, VerifyFriendly(lower, upper, tree.Root(), leaf, proof),
				"friendlyLayers=%d leaf=%d", friendlyLayers, i)
		}
	}
}

func TestFriendlyTreeVerifyRejectsWrongLeaf(t *testing.T) {
	lower := hash.MaskedBlake2s256{}
	upper := hash.Pedersen{}

	leaves := make([]hash.Digest, 4)
	for i := range leaves {
		leaves[i] = lower.HashBytes([]byte{byte(i)})
	}
	tree, err := NewFriendly(lower, upper, 1, leaves)
	require.NoError(t, err)

	proof, err := tree.Prove(0)
	require.NoError(t, err)
	require.False(t, VerifyFriendly(lower, upper, tree.Root(), leaves[1], proof))
}

func TestFriendlyTreeRejectsOutOfRangeFriendlyLayers(t *testing.T) {
	lower := hash.MaskedBlake2s256{}
	upper := hash.Pedersen{}
	leaves := []hash.Digest{lower.HashBytes([]byte{1}), lower.HashBytes([]byte{2})}
	_, err := NewFriendly(lower, upper, 5, leaves)
	require.Error(t, err)
}
