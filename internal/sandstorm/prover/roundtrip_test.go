package prover_test

// End-to-end round trip of the smallest possible run: a single
// `jmp rel 0` instruction executed for four cycles (a self-loop that
// never advances pc/ap/fp), proved and then verified under the plain
// layout, plus the matching tamper-rejection check.

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/claim"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/proof"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/prover"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/trace"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/verifier"
)

// selfLoopWitness builds the S1 program: memory[1] holds a `jmp rel 0`
// instruction (op1 addressed off the fp register, offset 0, pc_jump_rel
// set; every other flag clear), memory[2] holds the zero cell that dst,
// op0 and op1 all resolve to (ap = fp = 2, off_dst = off_op0 = off_op1 =
// 0). Four register-log steps re-execute the same instruction without
// ever changing pc/ap/fp, matching a trace length of 4*air.CycleHeight =
// 64 rows.
func selfLoopWitness(t *testing.T) (trace.Witness, trace.AirPublicInput) {
	t.Helper()

	var flags [field.NumFlags]bool
	flags[air.FlagOp1Fp] = true
	flags[air.FlagPcJumpRel] = true
	word, err := field.EncodeWord(field.HalfOffset, field.HalfOffset, field.HalfOffset, flags)
	require.NoError(t, err)
	instr := word.ToFp()

	w := trace.Witness{
		Registers: []trace.RegisterState{
			{PC: 1, AP: 2, FP: 2},
			{PC: 1, AP: 2, FP: 2},
			{PC: 1, AP: 2, FP: 2},
			{PC: 1, AP: 2, FP: 2},
		},
		Memory: trace.Memory{
			1: instr,
			2: field.ZeroFp(),
		},
	}

	pub := trace.AirPublicInput{
		RCMin:  1 << 15,
		RCMax:  1 << 15,
		NSteps: uint64(len(w.Registers)),
		Layout: air.LayoutPlain,
		MemorySegments: map[string]trace.Segment{
			"program":   {BeginAddr: 1, StopPtr: 2},
			"execution": {BeginAddr: 2, StopPtr: 2},
		},
		PublicMemory: []trace.MemoryEntry{
			{Address: 1, Value: instr},
		},
	}
	return w, pub
}

func TestSelfLoopProveVerifyRoundTrip(t *testing.T) {
	w, pub := selfLoopWitness(t)

	c, err := claim.New(air.PlainConfig(), claim.TargetSolidity, pub)
	require.NoError(t, err)

	p, err := prover.New(c, proof.DefaultOptions())
	require.NoError(t, err)

	pf, err := p.Prove(w)
	require.NoError(t, err)
	require.Equal(t, 4*air.CycleHeight, pf.TraceLen)

	v := verifier.New(c, 0)
	require.NoError(t, v.Verify(pf))
}

func TestSelfLoopRejectsTamperedProof(t *testing.T) {
	w, pub := selfLoopWitness(t)

	c, err := claim.New(air.PlainConfig(), claim.TargetSolidity, pub)
	require.NoError(t, err)

	p, err := prover.New(c, proof.DefaultOptions())
	require.NoError(t, err)

	pf, err := p.Prove(w)
	require.NoError(t, err)

	pf.TraceQueries[0].BaseVals[0] = pf.TraceQueries[0].BaseVals[0].Add(field.OneFp())

	v := verifier.New(c, 0)
	require.Error(t, v.Verify(pf))
}
