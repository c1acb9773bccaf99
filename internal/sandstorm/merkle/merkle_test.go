package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

func TestTreeProveVerifyRoundTrip(t *testing.T) {
	h := hash.Keccak256{}
	leaves := make([]hash.Digest, 7) // odd count exercises the self-paired node rule
	for i := range leaves {
		leaves[i] = h.HashBytes([]byte{byte(i)})
	}
	tree, err := New(h, leaves)
	require.NoError(t, err)

	for i, leaf := range leaves {
		proof, err := tree.Prove(i)
		require.NoError(t, err)
		require.True(t, Verify(h, tree.Root(), leaf, i, proof))
	}
}

func TestTreeVerifyRejectsWrongLeaf(t *testing.T) {
	h := hash.Keccak256{}
	leaves := make([]hash.Digest, 4)
	for i := range leaves {
		leaves[i] = h.HashBytes([]byte{byte(i)})
	}
	tree, err := New(h, leaves)
	require.NoError(t, err)
	proof, err := tree.Prove(2)
	require.NoError(t, err)
	require.False(t, Verify(h, tree.Root(), leaves[1], 2, proof))
}
