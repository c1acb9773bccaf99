package transcript

import (
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

// SolidityCoin is the on-chain (Ethereum Solidity verifier) public coin:
// Keccak256 throughout, with field elements reseeded one at a time in
// Montgomery-encoded bytes (the Solidity verifier's wire format).
type SolidityCoin struct {
	byteCoin
}

// NewSolidityCoin starts a coin from an initial public-input digest.
func NewSolidityCoin(seed hash.Digest) *SolidityCoin {
	return &SolidityCoin{byteCoin: newByteCoin(hash.Keccak256{}, seed, false)}
}

// ReseedWithFieldElements reseeds once per element (matching the Solidity
// verifier precompile's gas-optimized per-element absorb), unlike
// ReseedWithFieldElementVector which absorbs the whole slice in one call.
func (c *SolidityCoin) ReseedWithFieldElements(vals []field.Fp) {
	for _, v := range vals {
		b := v.ToMontgomeryBytes32()
		c.reseedWithBytes(b[:])
	}
}

var _ Coin = (*SolidityCoin)(nil)
