package field

import "math/big"

// PedersenHash implements the StarkWare Pedersen hash:
//
//	H(a,b) = ( ShiftPoint + a_low*P1 + a_high*P2 + b_low*P3 + b_high*P4 ).x
//
// where a_low is the low 248 bits of a and a_high its top 4 bits (and
// likewise for b).
func PedersenHash(a, b Fp) Fp {
	point := ShiftPoint
	point = point.Add(scaledByLimbs(a, PedersenP1, PedersenP2))
	point = point.Add(scaledByLimbs(b, PedersenP3, PedersenP4))
	return point.X
}

func scaledByLimbs(v Fp, lowBase, highBase Point) Point {
	low, high := splitLowHigh(v.Big())
	return lowBase.ScalarMul(NewFr(low)).Add(highBase.ScalarMul(NewFr(high)))
}

// splitLowHigh splits a 252-bit value into its low 248 bits and high 4 bits.
func splitLowHigh(v *big.Int) (low, high *big.Int) {
	mask248 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 248), big.NewInt(1))
	low = new(big.Int).And(v, mask248)
	high = new(big.Int).Rsh(v, 248)
	return low, high
}

// PedersenHashElements folds a sequence of field elements with repeated
// Pedersen hashing and mixes in the element count:
// curr = H(curr, v) ... H(curr, count).
func PedersenHashElements(elements []Fp) Fp {
	curr := ZeroFp()
	for _, v := range elements {
		curr = PedersenHash(curr, v)
	}
	return PedersenHash(curr, FpFromUint64(uint64(len(elements))))
}

// PedersenStep is one of the 256 partial-sum steps recorded by the Pedersen
// builtin trace generator for one of the two hash inputs.
type PedersenStep struct {
	PartialX, PartialY Fp
	Suffix             *big.Int // v >> i at this step
	Slope              Fp       // 0 when the current bit is 0
}

// PedersenTraceHalf computes the 256 partial-sum steps for hashing a single
// 252-bit value v starting from `start`, using base points lowBase/highBase
// exactly as PedersenHash does, one bit at a time (bit 0 first).
//
// It also returns the three booleans used by the unique-unpacking
// constraints: bit251, bit251&bit196, bit251&bit196&bit192.
func PedersenTraceHalf(start Point, v *big.Int, lowBase, highBase Point) (steps []PedersenStep, final Point, bit251, bit251and196, bit251and196and192 bool) {
	steps = make([]PedersenStep, 256)
	point := start
	suffix := new(big.Int).Set(v)
	for i := 0; i < 256; i++ {
		bit := suffix.Bit(0)
		var slope Fp
		base := lowBase
		if i >= 248 {
			base = highBase
		}
		next := point
		if bit == 1 {
			diff := point.X.Sub(base.X)
			if !diff.IsZero() {
				s, err := point.Y.Sub(base.Y).Div(diff)
				if err != nil {
					panic(err)
				}
				slope = s
				next = addWithSlope(point, base, s)
			} else {
				next = point.Double()
			}
		}
		steps[i] = PedersenStep{PartialX: point.X, PartialY: point.Y, Suffix: new(big.Int).Set(suffix), Slope: slope}
		point = next
		suffix.Rsh(suffix, 1)
	}
	bit251 = v.Bit(251) == 1
	bit251and196 = bit251 && v.Bit(196) == 1
	bit251and196and192 = bit251and196 && v.Bit(192) == 1
	return steps, point, bit251, bit251and196, bit251and196and192
}
