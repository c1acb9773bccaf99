package fri

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/merkle"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
)

// Params bundles the public FRI configuration the verifier needs to
// replay folding at queried positions: the base LDE domain (size +
// offset), the folding factor, the per-layer roots and fold challenges
// (both already absorbed into / drawn from the transcript by the caller,
// in commit order), and the remainder polynomial.
type Params struct {
	BaseDomainSize int
	BaseOffset     field.Fp
	FoldingFactor  int
	Roots          []hash.Digest
	Challenges     []field.Fp
	Remainder      poly.Polynomial
}

// VerifyQuery checks one query position's opened layers fold consistently
// from the base DEEP evaluation down to the remainder polynomial.
// baseValue is the DEEP composition value the caller already
// recomputed at this position from the trace/composition openings; it
// must equal the layer-0 opened group's entry at this position.
func VerifyQuery(p Params, h hash.Fn, position int, baseValue field.Fp, qp QueryProof) error {
	if len(qp.Layers) != len(p.Roots) {
		return fmt.Errorf("fri: query has %d layers, expected %d", len(qp.Layers), len(p.Roots))
	}
	n := p.BaseDomainSize
	offset := p.BaseOffset
	idx := position
	expectFromPrevious := baseValue
	haveExpectation := true

	for i, lq := range qp.Layers {
		k := effectiveFactor(p.FoldingFactor, n)
		m := n / k
		groupIdx := idx % m
		if lq.GroupIndex != groupIdx {
			return fmt.Errorf("fri: layer %d: opened group index %d, expected %d", i, lq.GroupIndex, groupIdx)
		}
		if len(lq.GroupValues) != k {
			return fmt.Errorf("fri: layer %d: opened %d values, expected folding factor %d", i, len(lq.GroupValues), k)
		}

		if haveExpectation {
			slot := indexWithinGroup(idx, m, k)
			if !expectFromPrevious.Equal(lq.GroupValues[slot]) {
				return fmt.Errorf("fri: layer %d: opened value does not match the previous layer's fold", i)
			}
		}

		leaf := leafDigest(h, lq.GroupValues)
		if !merkle.Verify(h, p.Roots[i], leaf, groupIdx, lq.Proof) {
			return fmt.Errorf("fri: layer %d: merkle proof mismatch", i)
		}

		genN, err := poly.DomainGenerator(n)
		if err != nil {
			return fmt.Errorf("fri: %w", err)
		}
		xj := offset.Mul(genN.Pow(uint64(groupIdx)))
		v, err := foldGroup(lq.GroupValues, xj, p.Challenges[i])
		if err != nil {
			return fmt.Errorf("fri: layer %d: %w", i, err)
		}
		expectFromPrevious = v
		haveExpectation = true

		idx = groupIdx
		n = m
		offset = offset.Pow(uint64(k))
	}

	expected := p.Remainder.Eval(offset.Mul(mustDomainElement(n, idx)))
	if !expectFromPrevious.Equal(expected) {
		return fmt.Errorf("fri: final fold does not match remainder polynomial evaluation")
	}
	return nil
}

// indexWithinGroup returns which of the k group slots domain index idx
// falls into, given the group gather stride m = n/k: group[t] was drawn
// from evals[groupIdx + t*m], and idx == groupIdx + t*m for exactly one t.
func indexWithinGroup(idx, m, k int) int {
	groupIdx := idx % m
	return ((idx - groupIdx) / m) % k
}

func mustDomainElement(n, idx int) field.Fp {
	g, err := poly.DomainGenerator(n)
	if err != nil {
		// n is always a layer size derived from the base domain size by
		// repeated division by the folding factor, both powers of two,
		// so this is unreachable for any well-formed Params.
		panic(fmt.Errorf("fri: invalid remainder domain size %d: %w", n, err))
	}
	return g.Pow(uint64(idx))
}

func leafDigest(h hash.Fn, group []field.Fp) hash.Digest {
	chunks := make([][]byte, len(group))
	for i, v := range group {
		b := v.Bytes32BE()
		chunks[i] = b[:]
	}
	return h.HashChunks(chunks)
}
