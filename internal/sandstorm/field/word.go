package field

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Word bit layout: off_dst [0,16), off_op0 [16,32), off_op1
// [32,48), 16 decoded flags at [48,64).
const (
	OffDstBitOffset = 0
	OffOp0BitOffset = 16
	OffOp1BitOffset = 32
	FlagsBitOffset  = 48
	NumFlags        = 16
	offsetMask      = 0xFFFF
	HalfOffset      = 1 << 15
)

// Word is one VM instruction word: a 256-bit unsigned integer whose value
// lies in [0, p). uint256.Int gives exact, allocation-free 256-bit bit
// manipulation for the decode below, distinct from the Montgomery-aware Fp
// used for the field arithmetic constraints operate over.
type Word struct {
	v uint256.Int
}

// WordFromFp reinterprets a canonical field element as an instruction word.
func WordFromFp(e Fp) Word {
	var w Word
	w.v.SetFromBig(e.Big())
	return w
}

// DecodedInstruction holds the unpacked fields of one Word.
type DecodedInstruction struct {
	OffDst, OffOp0, OffOp1 int64 // real (unbiased) values, in [-2^15, 2^15)
	Flags                  [NumFlags]uint64
}

// Decode unpacks w into its unbiased offsets and 16 flag bits.
func (w Word) Decode() DecodedInstruction {
	offDst := (w.v.Uint64() >> OffDstBitOffset) & offsetMask
	offOp0 := (w.v.Uint64() >> OffOp0BitOffset) & offsetMask
	offOp1 := (w.v.Uint64() >> OffOp1BitOffset) & offsetMask

	flagsShifted := new(uint256.Int).Rsh(&w.v, FlagsBitOffset)

	var d DecodedInstruction
	d.OffDst = int64(offDst) - HalfOffset
	d.OffOp0 = int64(offOp0) - HalfOffset
	d.OffOp1 = int64(offOp1) - HalfOffset
	flagsLow := flagsShifted.Uint64()
	for i := 0; i < NumFlags; i++ {
		d.Flags[i] = (flagsLow >> uint(i)) & 1
	}
	return d
}

// FlagPrefix reconstructs the biased-prefix encoding f~_i used by the AIR's
// flag well-formedness constraints: f~_i = word >> (48+i) & ((1<<(15-i))-1).
func (w Word) FlagPrefix(i int) uint64 {
	shifted := new(uint256.Int).Rsh(&w.v, uint(FlagsBitOffset+i))
	mask := uint256.NewInt((uint64(1) << uint(15-i)) - 1)
	return new(uint256.Int).And(shifted, mask).Uint64()
}

// EncodeWord packs biased offsets (already +2^15) and flag bits into a Word.
func EncodeWord(offDstBiased, offOp0Biased, offOp1Biased uint64, flags [NumFlags]bool) (Word, error) {
	if offDstBiased > offsetMask || offOp0Biased > offsetMask || offOp1Biased > offsetMask {
		return Word{}, fmt.Errorf("field: biased offset out of range")
	}
	var flagBits uint64
	for i, f := range flags {
		if f {
			flagBits |= 1 << uint(i)
		}
	}
	v := offDstBiased | (offOp0Biased << OffOp0BitOffset) | (offOp1Biased << OffOp1BitOffset) | (flagBits << FlagsBitOffset)
	var w Word
	w.v.SetUint64(v)
	return w, nil
}

// ToFp reinterprets the word as a field element.
func (w Word) ToFp() Fp {
	return NewFp(w.v.ToBig())
}

// Dilute spreads the bits of v with spacing s: dilute_s(v) = sum
// bit_i(v)*2^(i*s). Used by the bitwise builtin.
func Dilute(v uint64, bits, spacing int) *uint256.Int {
	out := new(uint256.Int)
	for i := 0; i < bits; i++ {
		if (v>>uint(i))&1 == 1 {
			bitPos := uint(i * spacing)
			term := new(uint256.Int).Lsh(uint256.NewInt(1), bitPos)
			out.Add(out, term)
		}
	}
	return out
}

// DiluteFp is Dilute reduced into the field, the representation the
// diluted-check permutation's trace columns and AIR challenges use.
func DiluteFp(v uint64, bits, spacing int) Fp {
	return NewFp(Dilute(v, bits, spacing).ToBig())
}

// DilutedCumulativeValue computes the verifier-known terminal the
// diluted-check aggregation column (air.ColExtDilutedAgg) must reach: the
// aggregation recurrence A_{i+1} = A_i*(1+z*delta) + alpha*delta^2, run
// over the full sorted sequence dilute_s(0), dilute_s(1), ...,
// dilute_s(2^nBits - 1), starting from A_0 = 1.
//
// cairo-lang computes this in closed form, O(nBits); this simulates the
// recurrence directly over the (small) alphabet instead. Prover and
// verifier both call this same function, so the two sides always agree.
func DilutedCumulativeValue(z, alpha Fp, nBits, spacing int) Fp {
	a := OneFp()
	prev := uint64(0)
	for v := uint64(1); v < uint64(1)<<uint(nBits); v++ {
		cur := Dilute(v, nBits, spacing).Uint64()
		delta := FpFromUint64(cur - prev)
		a = a.Mul(OneFp().Add(z.Mul(delta))).Add(alpha.Mul(delta.Mul(delta)))
		prev = cur
	}
	return a
}
