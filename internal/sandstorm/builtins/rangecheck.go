package builtins

import (
	"errors"
	"math/big"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

var sixteenBitMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 16), big.NewInt(1))

// RangeCheck128 decomposes v into eight 16-bit limbs (limb i holds bits
// [16i, 16i+16)), matching the builtin constraint's Sum part_i * 2^(16i)
// identity. Returns an error if v doesn't fit in 128 bits, the builtin's
// documented range.
func RangeCheck128(v field.Fp) ([8]field.Fp, error) {
	var parts [8]field.Fp
	n := v.Big()
	if n.BitLen() > 128 {
		return parts, errors.New("builtins: range_check128 value exceeds 128 bits")
	}
	for i := 0; i < 8; i++ {
		limb := new(big.Int).Rsh(n, uint(16*i))
		limb.And(limb, sixteenBitMask)
		parts[i] = field.NewFp(limb)
	}
	return parts, nil
}
