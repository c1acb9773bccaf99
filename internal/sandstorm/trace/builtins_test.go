package trace_test

// Exercises Builder.BuildBuiltins directly: a tiny trace with pedersen,
// range_check128 and bitwise enabled, checking the filled columns carry
// the values builtins.Compute* actually produced rather than being left
// at their zero-fill default, and that each builtin's memory cell lands
// in its slot of the per-cycle access stream.

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/builtins"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/trace"
)

func selfLoopRegisters(steps int) ([]trace.RegisterState, trace.Memory, field.Fp) {
	var flags [field.NumFlags]bool
	flags[air.FlagOp1Fp] = true
	flags[air.FlagPcJumpRel] = true
	word, err := field.EncodeWord(field.HalfOffset, field.HalfOffset, field.HalfOffset, flags)
	if err != nil {
		panic(err)
	}
	instr := word.ToFp()

	regs := make([]trace.RegisterState, steps)
	for i := range regs {
		regs[i] = trace.RegisterState{PC: 1, AP: 2, FP: 2}
	}
	mem := trace.Memory{1: instr, 2: field.ZeroFp()}
	return regs, mem, instr
}

func TestBuildBuiltinsFillsDeclaredColumns(t *testing.T) {
	cfg := air.Config{
		Layout:     air.LayoutStarknet,
		HashFamily: "keccak256",
		Builtins: []air.BuiltinRatio{
			{Name: "pedersen", Ratio: air.PedersenRatio},
			{Name: "range_check128", Ratio: air.RangeCheck128Ratio},
			{Name: "bitwise", Ratio: air.BitwiseRatio},
		},
	}
	bl := air.BuiltinColumns(cfg)
	cfg.NumBaseColumns = bl.NumBaseColumns
	cfg.NumExtensionColumns = air.NumCPUExtensionColumns

	const steps = 8 // 8*CycleHeight=128 rows: one pedersen checkpoint, 8 rc128, 8 bitwise
	regs, mem, instr := selfLoopRegisters(steps)

	pub := trace.AirPublicInput{
		RCMin:  1 << 15,
		RCMax:  1 << 15,
		NSteps: uint64(steps),
		Layout: air.LayoutStarknet,
		// Segments are laid end to end: the memory stream's sorted side
		// demands a contiguous address range.
		MemorySegments: map[string]trace.Segment{
			"program":        {BeginAddr: 1, StopPtr: 2},
			"execution":      {BeginAddr: 2, StopPtr: 3},
			"pedersen":       {BeginAddr: 3, StopPtr: 4},
			"range_check128": {BeginAddr: 4, StopPtr: 12},
			"bitwise":        {BeginAddr: 12, StopPtr: 20},
		},
		PublicMemory: []trace.MemoryEntry{{Address: 1, Value: instr}},
	}

	w := trace.Witness{
		Registers: regs,
		Memory:    mem,
		Private: trace.AirPrivateInput{
			Pedersen: []trace.PedersenInput{
				{A: field.FpFromUint64(3), B: field.FpFromUint64(5)},
			},
			RangeCheck128: []trace.RangeCheck128Input{
				{Value: field.FpFromUint64(1<<20 + 7)},
			},
			// Four instances so the diluted pool's unsorted bag collects all
			// four 2-bit residues (0,1,2,3): diluted_sorted_last_is_max and
			// diluted_sorted_gap_allowed (air/permutation.go) need that full
			// coverage to hold (see resortDiluted's doc comment).
			Bitwise: []trace.BitwiseInput{
				{X: field.FpFromUint64(0), Y: field.FpFromUint64(0)},
				{X: field.FpFromUint64(1), Y: field.FpFromUint64(2)},
				{X: field.FpFromUint64(2), Y: field.FpFromUint64(1)},
				{X: field.FpFromUint64(3), Y: field.FpFromUint64(3)},
			},
		},
	}

	builder, err := trace.NewBuilder(cfg, w, pub)
	require.NoError(t, err)
	m, err := builder.BuildBase()
	require.NoError(t, err)
	require.NoError(t, builder.BuildBuiltins(m, w.Private))

	require.True(t, m.Columns[bl.PedersenBase+air.PedColAddr][0].Equal(field.FpFromUint64(3)))
	wantPed := builtins.ComputePedersen(field.FpFromUint64(3), field.FpFromUint64(5))
	require.True(t, m.Columns[bl.PedersenBase+air.PedColPartialX][0].Equal(wantPed.LowHalf[0].PartialX))

	require.True(t, m.Columns[bl.RangeCheckBase+air.RCColValue][0].Equal(field.FpFromUint64(1<<20 + 7)))
	parts, err := builtins.RangeCheck128(field.FpFromUint64(1 << 20 + 7))
	require.NoError(t, err)
	for i, p := range parts {
		require.True(t, m.Columns[bl.RangeCheckBase+air.RCColPart][i].Equal(p))
	}

	bwOut := builtins.ComputeBitwise(field.FpFromUint64(1), field.FpFromUint64(2))
	row := air.BitwiseRatio
	require.True(t, m.Columns[bl.BitwiseBase+air.BWColAnd][row].Equal(bwOut.And))
	require.True(t, m.Columns[bl.BitwiseBase+air.BWColXor][row].Equal(bwOut.Xor))

	// Each builtin's (addr, val) cell occupies its slot of the memory
	// stream after the CPU's four, in builtin order.
	require.True(t, m.Columns[air.ColMemAddr][4].Equal(field.FpFromUint64(3)))
	require.True(t, m.Columns[air.ColMemAddr][5].Equal(field.FpFromUint64(4)))
	require.True(t, m.Columns[air.ColMemAddr][6].Equal(field.FpFromUint64(12)))
	require.True(t, m.Columns[air.ColMemVal][5].Equal(field.FpFromUint64(1<<20 + 7)))

	// The diluted pool's unsorted/sorted columns should be a permutation of
	// each other once resortDiluted has run.
	unsorted := make(map[string]int)
	sorted := make(map[string]int)
	for step := 0; step < m.NumRows/air.CycleHeight; step++ {
		r := step * air.CycleHeight
		unsorted[m.Columns[air.ColDilutedUnsorted][r].String()]++
		sorted[m.Columns[air.ColSortedDiluted][r].String()]++
	}
	require.Equal(t, unsorted, sorted)
}
