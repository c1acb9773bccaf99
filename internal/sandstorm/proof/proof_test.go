package proof

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/fri"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/merkle"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
)

func sampleProof() *Proof {
	proofNodes := []merkle.ProofNode{
		{Sibling: hash.Digest{1, 2, 3}, IsRight: true},
		{Sibling: hash.Digest{4, 5, 6}, IsRight: false},
	}
	return &Proof{
		BaseCommit:          hash.Digest{0xAA, 0xBB},
		ExtensionCommit:     hash.Digest{0xCC},
		CompositionCommit:   hash.Digest{0xDD, 0xEE, 0xFF},
		TraceOodEvals:       []field.Fp{field.FpFromUint64(1), field.FpFromUint64(2)},
		CompositionOodEvals: []field.Fp{field.FpFromUint64(3)},
		QueryPositions:      []int{1, 5, 9},
		TraceQueries: []TraceQuery{
			{
				Position:         1,
				BaseVals:         []field.Fp{field.FpFromUint64(11)},
				ExtVals:          []field.Fp{field.FpFromUint64(12)},
				CompositionVals:  []field.Fp{field.FpFromUint64(13)},
				BaseProof:        proofNodes,
				ExtProof:         proofNodes[:1],
				CompositionProof: proofNodes,
			},
		},
		FRI: FriProof{
			Roots:     []hash.Digest{{1}, {2}},
			Remainder: poly.New([]field.Fp{field.FpFromUint64(9), field.FpFromUint64(8)}),
			Queries: []fri.QueryProof{
				{Layers: []fri.LayerQuery{{GroupIndex: 2, GroupValues: []field.Fp{field.FpFromUint64(4)}, Proof: proofNodes}}},
			},
		},
		PowNonce: 12345,
		TraceLen: 64,
		Options:  DefaultOptions(),
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	p := sampleProof()
	data, err := p.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, p.TraceLen, got.TraceLen)
	require.Equal(t, p.PowNonce, got.PowNonce)
	require.Equal(t, p.Options, got.Options)
	require.Equal(t, p.QueryPositions, got.QueryPositions)
	require.Equal(t, len(p.TraceQueries), len(got.TraceQueries))
	require.True(t, fpSlicesEqual(p.TraceOodEvals, got.TraceOodEvals))
	require.True(t, fpSlicesEqual(p.CompositionOodEvals, got.CompositionOodEvals))
	require.Equal(t, len(p.FRI.Roots), len(got.FRI.Roots))
	require.True(t, fpSlicesEqual(p.FRI.Remainder.Coeffs, got.FRI.Remainder.Coeffs))
	require.True(t, fpSlicesEqual(p.TraceQueries[0].BaseVals, got.TraceQueries[0].BaseVals))
	require.Equal(t, len(p.TraceQueries[0].BaseProof), len(got.TraceQueries[0].BaseProof))
}

func TestUnmarshalRejectsBadVersion(t *testing.T) {
	_, err := Unmarshal([]byte{0xFF})
	require.Error(t, err)
}

func fpSlicesEqual(a, b []field.Fp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
