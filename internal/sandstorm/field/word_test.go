package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleFlags() [NumFlags]bool {
	var flags [NumFlags]bool
	flags[2] = true // op1_imm
	flags[5] = true // res_add
	flags[14] = true
	return flags
}

func TestWordEncodeDecodeRoundTrip(t *testing.T) {
	flags := sampleFlags()
	w, err := EncodeWord(HalfOffset+5, HalfOffset-3, HalfOffset, flags)
	require.NoError(t, err)

	dec := w.Decode()
	require.Equal(t, int64(5), dec.OffDst)
	require.Equal(t, int64(-3), dec.OffOp0)
	require.Equal(t, int64(0), dec.OffOp1)
	for i, f := range flags {
		want := uint64(0)
		if f {
			want = 1
		}
		require.Equal(t, want, dec.Flags[i], "flag %d", i)
	}
}

// The instruction word must reassemble from its parts exactly as the
// decode constraint checks it: off_dst + 2^16*off_op0 + 2^32*off_op1 +
// 2^48*flag_prefix, with the padding flag (bit 15) zero.
func TestWordDecomposition(t *testing.T) {
	w, err := EncodeWord(HalfOffset+100, HalfOffset+200, HalfOffset+300, sampleFlags())
	require.NoError(t, err)

	offDst := FpFromUint64(HalfOffset + 100)
	offOp0 := FpFromUint64(HalfOffset + 200)
	offOp1 := FpFromUint64(HalfOffset + 300)
	prefix := FpFromUint64(w.FlagPrefix(0))

	sum := offDst.
		Add(FpFromUint64(1 << 16).Mul(offOp0)).
		Add(FpFromUint64(1 << 32).Mul(offOp1)).
		Add(FpFromUint64(1 << 48).Mul(prefix))
	require.True(t, w.ToFp().Equal(sum))
	require.Zero(t, w.FlagPrefix(15))
}

// f~_i - 2*f~_{i+1} recovers flag bit i, and is always 0 or 1 -- the
// booleanity relation the AIR enforces on the flags column.
func TestFlagPrefixBitExtraction(t *testing.T) {
	flags := sampleFlags()
	w, err := EncodeWord(HalfOffset, HalfOffset, HalfOffset, flags)
	require.NoError(t, err)
	for i := 0; i < NumFlags-1; i++ {
		bit := w.FlagPrefix(i) - 2*w.FlagPrefix(i+1)
		require.LessOrEqual(t, bit, uint64(1), "flag %d", i)
		want := uint64(0)
		if flags[i] {
			want = 1
		}
		require.Equal(t, want, bit, "flag %d", i)
	}
}

func TestEncodeWordRejectsOutOfRangeOffset(t *testing.T) {
	var flags [NumFlags]bool
	_, err := EncodeWord(1<<16, HalfOffset, HalfOffset, flags)
	require.Error(t, err)
}

func TestDiluteSpreadsBits(t *testing.T) {
	// dilute_4(0b11) = 1 + 2^4 = 17
	require.True(t, DiluteFp(3, 2, 4).Equal(FpFromUint64(17)))
	require.True(t, DiluteFp(0, 2, 4).IsZero())
	// spacing 1 is the identity on the value's bits
	require.True(t, DiluteFp(13, 4, 1).Equal(FpFromUint64(13)))
}

func TestDilutedCumulativeValueMatchesDirectRecurrence(t *testing.T) {
	z, alpha := FpFromUint64(11), FpFromUint64(13)
	got := DilutedCumulativeValue(z, alpha, 2, 4)

	vals := []uint64{0, 1, 16, 17} // dilute_4 of 0,1,2,3
	a := OneFp()
	for i := 1; i < len(vals); i++ {
		delta := FpFromUint64(vals[i] - vals[i-1])
		a = a.Mul(OneFp().Add(z.Mul(delta))).Add(alpha.Mul(delta.Mul(delta)))
	}
	require.True(t, got.Equal(a))
}
