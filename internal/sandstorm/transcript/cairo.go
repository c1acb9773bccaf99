package transcript

import (
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

// CairoCoin is the off-chain recursive-verifier public coin: Blake2s256
// for the byte-level digest/draw/proof-of-work machinery, but
// ReseedWithFieldElements folds the whole slice through a single Pedersen
// hash first (the operation a recursive Cairo verifier can re-derive
// cheaply inside its own proof, unlike a Blake2s absorb of every element).
// Query positions are drawn in batches of 4: the cairo verifier always
// samples a multiple of 4 raw integers before truncating to the requested
// count.
type CairoCoin struct {
	byteCoin
}

// NewCairoCoin starts a coin from an initial public-input digest.
func NewCairoCoin(seed hash.Digest) *CairoCoin {
	return &CairoCoin{byteCoin: newByteCoin(hash.Blake2s256{}, seed, true)}
}

// ReseedWithFieldElements folds vals through Pedersen.hash_elements and
// reseeds once with the (canonical, non-Montgomery) resulting digest.
func (c *CairoCoin) ReseedWithFieldElements(vals []field.Fp) {
	folded := field.PedersenHashElements(vals)
	b := folded.Bytes32BE()
	c.reseedWithBytes(b[:])
}

var _ Coin = (*CairoCoin)(nil)
