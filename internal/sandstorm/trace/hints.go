package trace

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// GenHints derives the verifier-computable constants the CPU AIR's
// register-boundary, memory-permutation-terminal, and range-check-bound
// constraints check against, in the order air.Hint* names. Building these
// lives in the trace package rather than
// air because HintMemoryQuotient needs the public-memory list and the
// memory-permutation challenges, which only this package (and its
// PublicMemoryQuotient helper) has in scope without air importing trace
// and creating a cycle.
//
// Register boundary values (initial/final ap/fp/pc) are derived entirely
// from MemorySegments rather than threaded in from the witness, so the
// verifier -- which never sees a Witness -- can compute the identical
// hint vector from AirPublicInput alone: initial_pc is the program
// segment's first address, initial_ap/fp is the execution segment's
// first address (Cairo's convention that the stack begins where the
// execution segment begins), final_ap is the execution segment's
// stop_ptr, and final_pc is the last address of the program segment
// (the halting instruction, e.g. S1's `jmp rel 0` self-loop).
func GenHints(n int, pub AirPublicInput, challenges []field.Fp) ([]field.Fp, error) {
	program, ok := pub.MemorySegments["program"]
	if !ok {
		return nil, fmt.Errorf("trace: public input is missing the program memory segment")
	}
	execution, ok := pub.MemorySegments["execution"]
	if !ok {
		return nil, fmt.Errorf("trace: public input is missing the execution memory segment")
	}

	quotient, err := PublicMemoryQuotient(pub.PublicMemory, challenges[air.ChZMem], challenges[air.ChAlphaMem], n/8)
	if err != nil {
		return nil, err
	}

	hints := make([]field.Fp, air.NumCPUHints)
	hints[air.HintInitialAP] = field.FpFromUint64(execution.BeginAddr)
	hints[air.HintInitialFP] = field.FpFromUint64(execution.BeginAddr)
	hints[air.HintInitialPC] = field.FpFromUint64(program.BeginAddr)
	hints[air.HintFinalAP] = field.FpFromUint64(execution.StopPtr)
	hints[air.HintFinalFP] = field.FpFromUint64(execution.StopPtr)
	hints[air.HintFinalPC] = field.FpFromUint64(program.StopPtr - 1)
	hints[air.HintMemoryQuotient] = quotient
	hints[air.HintRCMin] = field.FpFromUint64(pub.RCMin)
	hints[air.HintRCMax] = field.FpFromUint64(pub.RCMax)
	hints[air.HintDilutedCheckCumulativeValue] = field.DilutedCumulativeValue(
		challenges[air.ChZDilutedAgg], challenges[air.ChAlphaDilutedAgg], air.DilutedNBits, air.DilutedSpacing)
	return hints, nil
}
