// Package transcript implements the Fiat-Shamir public coin the prover and
// verifier both drive: a running digest plus draw counter, reseeded with
// commitments and field elements, and queried for challenges, query
// positions, and proof-of-work nonces. Two concrete instantiations match
// the two verifier targets: SolidityCoin (on-chain, Keccak256) and
// CairoCoin (off-chain recursive, Blake2s256 with a Pedersen-folded reseed
// path for field-element slices). The reseed/draw/query/proof-of-work byte
// layouts are part of the wire contract and must match the deployed
// verifiers bit for bit.
package transcript

import (
	"fmt"
	"math/big"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

// Coin is the public-coin interface every verifier target is built over.
type Coin interface {
	ReseedWithDigest(d hash.Digest)
	ReseedWithFieldElements(vals []field.Fp)
	ReseedWithFieldElementVector(vals []field.Fp)
	ReseedWithInt(v uint64)
	Draw() field.Fp
	DrawQueries(maxN, domainSize int) []int
	VerifyProofOfWork(bits uint8, nonce uint64) bool
	GrindProofOfWork(bits uint8) (uint64, error)
	SecurityLevelBits() uint32
}

// powPrefix is StarkWare's fixed domain-separation constant for proof of
// work grinding.
const powPrefix uint64 = 0x0123456789ABCDED

const maxGrindAttempts = 1 << 32

func bigFromDigest(d hash.Digest) *big.Int {
	return new(big.Int).SetBytes(d)
}

func u256BE(v *big.Int) []byte {
	out := make([]byte, 32)
	b := v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

func u64BE(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[7-i] = byte(v >> (8 * i))
	}
	return out
}

// leadingZeroBits counts the number of leading zero bits of d.
func leadingZeroBits(d hash.Digest) uint32 {
	var n uint32
	for _, b := range d {
		if b == 0 {
			n += 8
			continue
		}
		for i := 7; i >= 0; i-- {
			if b&(1<<uint(i)) != 0 {
				return n
			}
			n++
		}
	}
	return n
}

// grind runs the shared proof-of-work search loop against whatever hash
// primitive impl provides, returning the first nonce whose hash has at
// least `bits` leading zero bits.
func grind(bits uint8, verify func(nonce uint64) bool) (uint64, error) {
	for nonce := uint64(0); nonce < maxGrindAttempts; nonce++ {
		if verify(nonce) {
			return nonce, nil
		}
	}
	return 0, fmt.Errorf("transcript: proof-of-work grinding exhausted %d attempts at %d bits", maxGrindAttempts, bits)
}
