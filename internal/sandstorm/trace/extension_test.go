package trace_test

// Permutation-argument anchors: the memory grand product is pinned to the
// public-memory quotient hint at row 0 and closes its final fold against
// the same value, and the range-check product telescopes back to 1.

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/trace"
)

func plainSelfLoopWitness(steps int) (trace.Witness, trace.AirPublicInput) {
	regs, mem, instr := selfLoopRegisters(steps)
	pub := trace.AirPublicInput{
		RCMin:  1 << 15,
		RCMax:  1 << 15,
		NSteps: uint64(steps),
		Layout: air.LayoutPlain,
		MemorySegments: map[string]trace.Segment{
			"program":   {BeginAddr: 1, StopPtr: 2},
			"execution": {BeginAddr: 2, StopPtr: 2},
		},
		PublicMemory: []trace.MemoryEntry{{Address: 1, Value: instr}},
	}
	return trace.Witness{Registers: regs, Memory: mem}, pub
}

func TestExtensionAnchorsMatchHints(t *testing.T) {
	w, pub := plainSelfLoopWitness(4)
	cfg := air.PlainConfig()
	builder, err := trace.NewBuilder(cfg, w, pub)
	require.NoError(t, err)
	base, err := builder.BuildBase()
	require.NoError(t, err)
	require.NoError(t, builder.BuildBuiltins(base, trace.AirPrivateInput{}))

	n := base.NumRows
	challenges := make([]field.Fp, air.NumCPUChallenges)
	for i := range challenges {
		challenges[i] = field.FpFromUint64(uint64(1000 + 7*i))
	}
	hints, err := trace.GenHints(n, pub, challenges)
	require.NoError(t, err)
	quotient := hints[air.HintMemoryQuotient]

	ext, err := trace.BuildExtension(cfg, base, challenges, quotient)
	require.NoError(t, err)

	memCol := air.ColExtMemProduct - air.ExtColumnBase
	rcCol := air.ColExtRCProduct - air.ExtColumnBase

	require.True(t, ext.Columns[memCol][0].Equal(quotient))

	// The final fold must close against the quotient anchor: the same
	// relation the terminal constraint checks at row n-1.
	zMem, alphaMem := challenges[air.ChZMem], challenges[air.ChAlphaMem]
	streamTerm := zMem.Sub(base.Columns[air.ColMemAddr][n-1].Add(alphaMem.Mul(base.Columns[air.ColMemVal][n-1])))
	sortedTerm := zMem.Sub(base.Columns[air.ColSortedAddr][n-1].Add(alphaMem.Mul(base.Columns[air.ColSortedVal][n-1])))
	require.True(t, quotient.Mul(sortedTerm).Equal(ext.Columns[memCol][n-1].Mul(streamTerm)))

	require.True(t, ext.Columns[rcCol][0].IsOne())
	require.True(t, ext.Columns[rcCol][n-1].IsOne())
}

// Every row's step relation must hold over the whole column: the same
// per-row fold the permutation step constraint checks.
func TestExtensionMemProductStepRelation(t *testing.T) {
	w, pub := plainSelfLoopWitness(4)
	cfg := air.PlainConfig()
	builder, err := trace.NewBuilder(cfg, w, pub)
	require.NoError(t, err)
	base, err := builder.BuildBase()
	require.NoError(t, err)
	require.NoError(t, builder.BuildBuiltins(base, trace.AirPrivateInput{}))

	challenges := make([]field.Fp, air.NumCPUChallenges)
	for i := range challenges {
		challenges[i] = field.FpFromUint64(uint64(31 + 5*i))
	}
	hints, err := trace.GenHints(base.NumRows, pub, challenges)
	require.NoError(t, err)
	ext, err := trace.BuildExtension(cfg, base, challenges, hints[air.HintMemoryQuotient])
	require.NoError(t, err)

	memCol := air.ColExtMemProduct - air.ExtColumnBase
	zMem, alphaMem := challenges[air.ChZMem], challenges[air.ChAlphaMem]
	for r := 0; r < base.NumRows-1; r++ {
		stream := zMem.Sub(base.Columns[air.ColMemAddr][r].Add(alphaMem.Mul(base.Columns[air.ColMemVal][r])))
		sorted := zMem.Sub(base.Columns[air.ColSortedAddr][r].Add(alphaMem.Mul(base.Columns[air.ColSortedVal][r])))
		lhs := ext.Columns[memCol][r+1].Mul(sorted)
		rhs := ext.Columns[memCol][r].Mul(stream)
		require.True(t, lhs.Equal(rhs), "row %d", r)
	}
}

func TestGenHintsDerivedFromPublicInputAlone(t *testing.T) {
	_, pub := plainSelfLoopWitness(4)
	challenges := make([]field.Fp, air.NumCPUChallenges)
	for i := range challenges {
		challenges[i] = field.FpFromUint64(uint64(17 + i))
	}
	n := 4 * air.CycleHeight
	a, err := trace.GenHints(n, pub, challenges)
	require.NoError(t, err)
	b, err := trace.GenHints(n, pub, challenges)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.True(t, a[i].Equal(b[i]), "hint %d", i)
	}

	require.True(t, a[air.HintInitialPC].Equal(field.FpFromUint64(1)))
	require.True(t, a[air.HintInitialAP].Equal(field.FpFromUint64(2)))
	require.True(t, a[air.HintFinalPC].Equal(field.FpFromUint64(1)))
	require.True(t, a[air.HintRCMin].Equal(field.FpFromUint64(1<<15)))
}

func TestNewBuilderRejectsNonPowerOfTwoSteps(t *testing.T) {
	regs, mem, instr := selfLoopRegisters(3)
	pub := trace.AirPublicInput{
		RCMin: 1 << 15, RCMax: 1 << 15, NSteps: 3, Layout: air.LayoutPlain,
		MemorySegments: map[string]trace.Segment{
			"program":   {BeginAddr: 1, StopPtr: 2},
			"execution": {BeginAddr: 2, StopPtr: 2},
		},
		PublicMemory: []trace.MemoryEntry{{Address: 1, Value: instr}},
	}
	_, err := trace.NewBuilder(air.PlainConfig(), trace.Witness{Registers: regs, Memory: mem}, pub)
	require.Error(t, err)
}
