// Package builtins computes the witness trace each Cairo builtin needs:
// the per-step intermediate values the air package's BuiltinConstraints
// check algebraically. The split is always "compute the long way here,
// let the AIR check the result".
package builtins

import (
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// PedersenRow is one of the 512 trace rows (two 256-step halves) one
// Pedersen builtin instance occupies, matching air.go's pedersen column
// block (partial_x, partial_y, suffix, slope).
type PedersenRow struct {
	PartialX, PartialY field.Fp
	Suffix             field.Fp
	Slope              field.Fp
}

// PedersenOutput is the full witness for one pedersen(a, b) instance: the
// two 256-row halves plus the resulting hash value.
type PedersenOutput struct {
	LowHalf, HighHalf []PedersenRow
	Result            field.Fp
}

// ComputePedersen builds the full witness for H(a, b), matching
// field.PedersenHash's construction step by step so the AIR's
// booleanity/doubling-recurrence/decomposition-end constraints
// (air.addPedersenConstraints) hold over every row.
func ComputePedersen(a, b field.Fp) PedersenOutput {
	aSteps, aFinal, _, _, _ := field.PedersenTraceHalf(field.ShiftPoint, a.Big(), field.PedersenP1, field.PedersenP2)
	bSteps, bFinal, _, _, _ := field.PedersenTraceHalf(aFinal, b.Big(), field.PedersenP3, field.PedersenP4)
	_ = bFinal

	toRows := func(steps []field.PedersenStep) []PedersenRow {
		rows := make([]PedersenRow, len(steps)+1)
		for i, s := range steps {
			rows[i] = PedersenRow{
				PartialX: s.PartialX,
				PartialY: s.PartialY,
				Suffix:   field.NewFp(s.Suffix),
				Slope:    s.Slope,
			}
		}
		// Final row closes the suffix-decrement chain with 0, satisfying
		// pedersen_decomposition_end (suffix(252) == 0 in the AIR's cycle
		// framing; stored here at the half's last row for a direct copy).
		rows[len(steps)] = PedersenRow{Suffix: field.ZeroFp()}
		return rows
	}

	return PedersenOutput{
		LowHalf:  toRows(aSteps),
		HighHalf: toRows(bSteps),
		Result:   field.PedersenHash(a, b),
	}
}

// ComputePedersenElements folds a sequence of elements with repeated
// Pedersen hashing, returning each step's full witness; the last entry's
// Result is the final digest (the same fold field.PedersenHashElements
// computes).
func ComputePedersenElements(elements []field.Fp) []PedersenOutput {
	curr := field.ZeroFp()
	out := make([]PedersenOutput, 0, len(elements)+1)
	for _, v := range elements {
		step := ComputePedersen(curr, v)
		out = append(out, step)
		curr = step.Result
	}
	out = append(out, ComputePedersen(curr, field.FpFromUint64(uint64(len(elements)))))
	return out
}
