package builtins

import (
	"errors"
	"math/big"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// ECDSASignature is a (r, s) Stark-curve ECDSA signature.
type ECDSASignature struct {
	R, S field.Fr
}

// VerifyECDSA checks the standard ECDSA verification equation over the
// Stark curve: recovers R' = (msg/s)*G + (r/s)*pubkey and accepts iff
// R'.X == r.
func VerifyECDSA(pubkey field.Point, msg field.Fp, sig ECDSASignature) (bool, error) {
	if !pubkey.IsOnCurve() {
		return false, errors.New("builtins: ecdsa public key is not on the curve")
	}
	sInv, err := sig.S.Inv()
	if err != nil {
		return false, errors.New("builtins: ecdsa signature has zero s")
	}
	u1 := field.NewFr(msg.Big()).Mul(sInv)
	u2 := sig.R.Mul(sInv)
	g := field.StarkGenerator()
	rPrime := g.ScalarMul(u1).Add(pubkey.ScalarMul(u2))
	if rPrime.Inf {
		return false, nil
	}
	return rPrime.X.Equal(field.NewFp(sig.R.Big())), nil
}

// ScalarMulStep is one double-and-add step of a witnessed scalar
// multiplication: the running sum before the step, the remaining scalar
// suffix, and the chord slope the step consumed when its bit was set
// (zero otherwise).
type ScalarMulStep struct {
	AccX, AccY field.Fp
	Suffix     field.Fp
	Slope      field.Fp
}

// ComputeECDSAScalarMul traces k*base bit by bit (LSB first), with the
// accumulator anchored at the shift point so every intermediate sum stays
// affine. Step i records the accumulator before folding bit i, the scalar
// suffix k >> i, and the chord slope from the accumulator to the (doubled)
// base point when bit i is set. The final accumulator is
// ShiftPoint + k*base.
func ComputeECDSAScalarMul(base field.Point, k field.Fr) []ScalarMulStep {
	return scalarMulSteps(field.ShiftPoint, base, k.Big())
}

func scalarMulSteps(start, base field.Point, v *big.Int) []ScalarMulStep {
	steps := make([]ScalarMulStep, 253)
	acc := start
	cur := base
	for i := 0; i < 252; i++ {
		var slope field.Fp
		next := acc
		if v.Bit(i) == 1 {
			if !acc.X.Equal(cur.X) {
				s, err := acc.Y.Sub(cur.Y).Div(acc.X.Sub(cur.X))
				if err == nil {
					slope = s
				}
			}
			next = acc.Add(cur)
		}
		steps[i] = ScalarMulStep{
			AccX:   acc.X,
			AccY:   acc.Y,
			Suffix: field.NewFp(new(big.Int).Rsh(v, uint(i))),
			Slope:  slope,
		}
		acc = next
		cur = cur.Double()
	}
	steps[252] = ScalarMulStep{AccX: acc.X, AccY: acc.Y}
	return steps
}
