package claim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/trace"
)

func samplePublicInput() trace.AirPublicInput {
	return trace.AirPublicInput{
		RCMin:  100,
		RCMax:  200,
		NSteps: 4,
		Layout: air.LayoutPlain,
		MemorySegments: map[string]trace.Segment{
			"program":   {BeginAddr: 1, StopPtr: 10},
			"execution": {BeginAddr: 11, StopPtr: 30},
		},
		PublicMemory: []trace.MemoryEntry{
			{Address: 1, Value: field.ZeroFp()},
			{Address: 2, Value: field.FpFromUint64(7)},
		},
	}
}

func TestNewRejectsLayoutMismatch(t *testing.T) {
	cfg := air.PlainConfig()
	pub := samplePublicInput()
	pub.Layout = air.LayoutStarknet
	_, err := New(cfg, TargetSolidity, pub)
	require.Error(t, err)
}

func TestAuxElementsDeterministic(t *testing.T) {
	cfg := air.PlainConfig()
	pub := samplePublicInput()
	c, err := New(cfg, TargetSolidity, pub)
	require.NoError(t, err)

	a, err := c.AuxElements()
	require.NoError(t, err)
	b, err := c.AuxElements()
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.True(t, a[i].Equal(b[i]))
	}
	// log2(n_steps)=2, rc_min=100, rc_max=200
	require.True(t, a[0].Equal(field.FpFromUint64(2)))
	require.True(t, a[1].Equal(field.FpFromUint64(100)))
	require.True(t, a[2].Equal(field.FpFromUint64(200)))
}

func TestNewCoinProducesUsableCoin(t *testing.T) {
	cfg := air.PlainConfig()
	pub := samplePublicInput()
	c, err := New(cfg, TargetSolidity, pub)
	require.NoError(t, err)
	coin, err := c.NewCoin()
	require.NoError(t, err)
	require.NotNil(t, coin)
	_ = coin.Draw()
}

func TestCairoTargetAlsoWorks(t *testing.T) {
	cfg := air.RecursiveConfig()
	pub := samplePublicInput()
	pub.Layout = air.LayoutRecursive
	c, err := New(cfg, TargetCairo, pub)
	require.NoError(t, err)
	coin, err := c.NewCoin()
	require.NoError(t, err)
	require.NotNil(t, coin)
}
