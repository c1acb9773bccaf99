package builtins

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// BitwiseOutput is the witness for one bitwise(x, y) instance: x, y and
// their and/xor/or, matching air.addBitwiseConstraints' two closed-form
// identities (x|y = (x&y)+(x^y), x+y = (x^y)+2*(x&y)).
type BitwiseOutput struct {
	X, Y         field.Fp
	And, Xor, Or field.Fp
}

// ComputeBitwise computes x AND/XOR/OR y over their full canonical integer
// values; the inputs are not truncated to 128 bits.
func ComputeBitwise(x, y field.Fp) BitwiseOutput {
	xb, yb := x.Big(), y.Big()
	and := new(big.Int).And(xb, yb)
	xor := new(big.Int).Xor(xb, yb)
	or := new(big.Int).Or(xb, yb)
	return BitwiseOutput{
		X: x, Y: y,
		And: field.NewFp(and), Xor: field.NewFp(xor), Or: field.NewFp(or),
	}
}

// DilutedLimbs splits v into 16-bit windows and dilutes each one (spacing
// 4), the representation the bitwise builtin's diluted-check permutation
// operates on.
func DilutedLimbs(v field.Fp) [8]*uint256.Int {
	var out [8]*uint256.Int
	n := v.Big()
	for i := 0; i < 8; i++ {
		limb := new(big.Int).Rsh(n, uint(16*i))
		limb.And(limb, sixteenBitMask)
		out[i] = field.Dilute(limb.Uint64(), 16, 4)
	}
	return out
}
