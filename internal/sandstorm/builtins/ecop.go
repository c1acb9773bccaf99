package builtins

import (
	"errors"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// ECOpOutput is the witness for one ec_op(p, m, q) instance, R = p + m*q:
// the per-bit double-and-add steps (with chord slopes) plus the final
// point.
type ECOpOutput struct {
	Steps  []ScalarMulStep
	Result field.Point
}

// ComputeECOp computes p + m*q bit by bit over m's low 252 bits,
// accumulating from p, and records each step's chord slope. Both input
// points must lie on the curve.
func ComputeECOp(p field.Point, m field.Fp, q field.Point) (ECOpOutput, error) {
	if !p.IsOnCurve() {
		return ECOpOutput{}, errors.New("builtins: ec_op point p is not on the curve")
	}
	if !q.IsOnCurve() {
		return ECOpOutput{}, errors.New("builtins: ec_op point q is not on the curve")
	}
	v := m.Big()
	if v.BitLen() > 252 {
		return ECOpOutput{}, errors.New("builtins: ec_op scalar exceeds 252 bits")
	}
	steps := scalarMulSteps(p, q, v)
	final := field.Point{X: steps[252].AccX, Y: steps[252].AccY}
	return ECOpOutput{Steps: steps, Result: final}, nil
}
