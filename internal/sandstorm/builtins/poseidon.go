package builtins

import "github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"

// PoseidonRound is one round's pre-S-box state snapshot. The first round's
// State[0] fills the poseidon_pre_sbox column of air/builtins.go's poseidon
// block, whose same-row post_sbox == pre_sbox^3 check
// air.addPoseidonConstraints applies.
type PoseidonRound struct {
	State [field.PoseidonWidth]field.Fp
}

// PoseidonOutput is the full round-by-round witness for one hades
// permutation, reusing field.PoseidonPermute's own pre-S-box trace
// capture.
type PoseidonOutput struct {
	Rounds []PoseidonRound
	Final  [field.PoseidonWidth]field.Fp
}

// ComputePoseidonPermutation runs the permutation and packages its
// recorded pre-S-box states as trace rows.
func ComputePoseidonPermutation(state [field.PoseidonWidth]field.Fp) PoseidonOutput {
	final, preSBox := field.PoseidonPermute(state)
	rounds := make([]PoseidonRound, len(preSBox))
	for i, s := range preSBox {
		rounds[i] = PoseidonRound{State: s}
	}
	return PoseidonOutput{Rounds: rounds, Final: final}
}

// ComputePoseidonHashMany hashes a sequence of elements with the standard
// Poseidon sponge (rate 2, capacity 1, 10*1 padding), matching
// field.PoseidonHashMany's absorption schedule exactly, and returns each
// absorption step's full permutation witness alongside the final digest.
func ComputePoseidonHashMany(elements []field.Fp) ([]PoseidonOutput, field.Fp) {
	const rate = field.PoseidonWidth - 1
	state := [field.PoseidonWidth]field.Fp{field.ZeroFp(), field.ZeroFp(), field.ZeroFp()}
	padded := append(append([]field.Fp{}, elements...), field.OneFp())
	for len(padded)%rate != 0 {
		padded = append(padded, field.ZeroFp())
	}
	var outs []PoseidonOutput
	for i := 0; i < len(padded); i += rate {
		for j := 0; j < rate; j++ {
			state[j] = state[j].Add(padded[i+j])
		}
		out := ComputePoseidonPermutation(state)
		outs = append(outs, out)
		state = out.Final
	}
	return outs, state[0]
}
