// Package claim binds an AIR configuration and a verifier target (the
// on-chain Solidity verifier or the off-chain/recursive Cairo verifier)
// to a concrete public input: the single object both the prover and the
// verifier build independently before exchanging a single proof byte. It
// also assembles the SHARP aux-input element list the transcript is
// seeded from.
package claim

import (
	"fmt"
	"math/bits"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/trace"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/transcript"
)

// Target names which verifier a proof is built for.
type Target string

const (
	TargetSolidity Target = "solidity"
	TargetCairo    Target = "cairo"
)

// Claim is the prover/verifier's shared starting point: a layout's AIR
// config, the target that dictates the public-coin/hash family, and the
// public input the VM run produced.
type Claim struct {
	Config      air.Config
	Target      Target
	PublicInput trace.AirPublicInput
}

// New validates that the public input's layout matches cfg and that
// target names a known verifier, then returns the Claim.
func New(cfg air.Config, target Target, pub trace.AirPublicInput) (*Claim, error) {
	if pub.Layout != cfg.Layout {
		return nil, fmt.Errorf("claim: public input layout %q does not match air config layout %q", pub.Layout, cfg.Layout)
	}
	if target != TargetSolidity && target != TargetCairo {
		return nil, fmt.Errorf("claim: unknown verifier target %q", target)
	}
	if pub.RCMin > pub.RCMax || pub.RCMax >= 1<<16 {
		return nil, fmt.Errorf("claim: invalid range-check bounds [%d,%d]", pub.RCMin, pub.RCMax)
	}
	return &Claim{Config: cfg, Target: target, PublicInput: pub}, nil
}

// HashFn resolves this claim's Merkle/transcript hash family.
func (c *Claim) HashFn() (hash.Fn, error) {
	return hash.ByName(c.Config.HashFamily)
}

// NewCoin starts the Fiat-Shamir public coin this claim's target drives,
// seeded with the digest of the aux-input element list.
func (c *Claim) NewCoin() (transcript.Coin, error) {
	elems, err := c.AuxElements()
	if err != nil {
		return nil, err
	}
	// Seeded with the target's own byte hash (never the layout's masked
	// commitment variant: the seed is a transcript digest, not an on-chain
	// commitment), in the target's element encoding via HashElements.
	switch c.Target {
	case TargetSolidity:
		return transcript.NewSolidityCoin(hash.Keccak256{}.HashElements(elems)), nil
	case TargetCairo:
		return transcript.NewCairoCoin(hash.Blake2s256{}.HashElements(elems)), nil
	default:
		return nil, fmt.Errorf("claim: unknown verifier target %q", c.Target)
	}
}

// segmentOrder is the fixed name order the aux-input element list walks:
// program and execution are mandatory, the rest are emitted only when
// present in MemorySegments.
var segmentOrder = []string{"program", "execution", "output", "pedersen", "range_check", "ecdsa", "bitwise", "ec_op", "poseidon"}

// AuxElements assembles the ordered public-input element list the
// transcript is seeded from:
// log2(n_steps), rc_min, rc_max, layout_code, each present segment's
// (begin, stop) pair in segmentOrder, the padding memory entry's
// (address, value), the constant 1 (n_public_memory_pages), the main
// page's size, and a hash of the main page folded into one field
// element.
func (c *Claim) AuxElements() ([]field.Fp, error) {
	pub := c.PublicInput
	if pub.NSteps == 0 || pub.NSteps&(pub.NSteps-1) != 0 {
		return nil, fmt.Errorf("claim: n_steps %d is not a power of two", pub.NSteps)
	}

	var out []field.Fp
	out = append(out, field.FpFromUint64(uint64(bits.TrailingZeros64(pub.NSteps))))
	out = append(out, field.FpFromUint64(pub.RCMin), field.FpFromUint64(pub.RCMax))

	code, ok := air.LayoutCode[pub.Layout]
	if ok {
		layoutCode, err := field.NewFpFromDecimalString(code)
		if err != nil {
			return nil, fmt.Errorf("claim: layout code: %w", err)
		}
		out = append(out, layoutCode)
	} else {
		out = append(out, field.ZeroFp())
	}

	for _, name := range segmentOrder {
		seg, ok := pub.MemorySegments[name]
		if !ok {
			continue
		}
		out = append(out, field.FpFromUint64(seg.BeginAddr), field.FpFromUint64(seg.StopPtr))
	}

	padding := paddingEntry(pub.PublicMemory)
	out = append(out, field.FpFromUint64(padding.Address), padding.Value)
	out = append(out, field.OneFp()) // n_public_memory_pages
	out = append(out, field.FpFromUint64(uint64(len(pub.PublicMemory))))

	pageDigest := hashMemoryPage(pub.PublicMemory)
	out = append(out, field.FpFromBytesBE(pageDigest))

	return out, nil
}

// paddingEntry returns the public-memory entry the VM runner designates
// as the padding row at address 1; the last matching entry wins if the
// runner emits more than one, matching how repeated padding fills a
// trace's unused public-memory slots.
func paddingEntry(mem []trace.MemoryEntry) trace.MemoryEntry {
	padding := trace.MemoryEntry{Address: 1}
	for _, e := range mem {
		if e.Address == 1 {
			padding = e
		}
	}
	return padding
}

// hashMemoryPage folds the main public-memory page into one digest as an
// interleaved (address, value) element sequence. The page hash is always
// canonical-form Keccak regardless of target: it commits public-input
// data the L1 contract recomputes from calldata, where elements are plain
// integers, not Montgomery representatives.
func hashMemoryPage(mem []trace.MemoryEntry) hash.Digest {
	h := hash.CanonicalKeccak256{}
	if len(mem) == 0 {
		return h.HashBytes(nil)
	}
	elems := make([]field.Fp, 0, 2*len(mem))
	for _, e := range mem {
		elems = append(elems, field.FpFromUint64(e.Address), e.Value)
	}
	return h.HashElements(elems)
}
