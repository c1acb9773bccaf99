package fri

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/merkle"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/transcript"
)

// layer is one committed FRI layer the prover retains so query positions
// can be opened against it after the full commit phase (and the grinding
// and query-position draws that follow it) complete.
type layer struct {
	evals  []field.Fp
	offset field.Fp
	tree   *merkle.Tree
}

// Commitment is the prover's full FRI transcript for one DEEP composition
// polynomial: every committed layer plus the final remainder polynomial.
type Commitment struct {
	layers        []layer
	Remainder     poly.Polynomial
	FoldingFactor int
}

// Roots returns each layer's Merkle root, in commit order -- what the
// prover reseeds the transcript with and the verifier replays.
func (c *Commitment) Roots() []hash.Digest {
	out := make([]hash.Digest, len(c.layers))
	for i, l := range c.layers {
		out[i] = l.tree.Root()
	}
	return out
}

// Commit runs the FRI commit phase: repeatedly
// fold `evals` (the DEEP composition polynomial's values on the LDE
// domain offset*<generator>) by foldingFactor, Merkle-committing each
// layer and reseeding the coin with its root before drawing the next
// fold challenge, until at most maxRemainderCoeffs points remain; the
// final layer's coefficients are kept as the remainder.
func Commit(evals []field.Fp, offset field.Fp, foldingFactor, maxRemainderCoeffs int, coin transcript.Coin, h hash.Fn) (*Commitment, error) {
	if foldingFactor < 2 || foldingFactor&(foldingFactor-1) != 0 {
		return nil, fmt.Errorf("fri: folding factor %d must be a power of two >= 2", foldingFactor)
	}
	c := &Commitment{FoldingFactor: foldingFactor}
	curEvals := append([]field.Fp{}, evals...)
	curOffset := offset
	for len(curEvals) > maxRemainderCoeffs {
		tree, err := commitLeaves(h, curEvals, foldingFactor)
		if err != nil {
			return nil, err
		}
		c.layers = append(c.layers, layer{evals: curEvals, offset: curOffset, tree: tree})
		coin.ReseedWithDigest(tree.Root())
		challenge := coin.Draw()

		k := effectiveFactor(foldingFactor, len(curEvals))
		nextEvals, nextOffset, err := foldLayer(curEvals, curOffset, k, challenge)
		if err != nil {
			return nil, fmt.Errorf("fri: commit: %w", err)
		}
		curEvals, curOffset = nextEvals, nextOffset
	}
	rem, err := poly.InterpolateFromCoset(curEvals, curOffset)
	if err != nil {
		return nil, fmt.Errorf("fri: remainder interpolation: %w", err)
	}
	c.Remainder = rem
	return c, nil
}

// commitLeaves groups evals into foldingFactor-wide cosets and builds a
// Merkle tree with one leaf per group (the group's k field elements
// concatenated), so a single query opens everything needed to recompute
// one fold step.
func commitLeaves(h hash.Fn, evals []field.Fp, foldingFactor int) (*merkle.Tree, error) {
	k := effectiveFactor(foldingFactor, len(evals))
	n := len(evals)
	m := n / k
	chunks := make([][][]byte, m)
	for j := 0; j < m; j++ {
		group := make([][]byte, k)
		for t := 0; t < k; t++ {
			b := evals[j+t*m].Bytes32BE()
			group[t] = b[:]
		}
		chunks[j] = group
	}
	return merkle.NewFromLeafData(h, chunks)
}

// LayerQuery is one layer's opened group for a single query position.
type LayerQuery struct {
	GroupIndex  int
	GroupValues []field.Fp
	Proof       []merkle.ProofNode
}

// QueryProof is the full set of per-layer openings for one query position.
type QueryProof struct {
	Layers []LayerQuery
}

// Query opens every committed layer at the given base-domain positions:
// each layer's k-point coset group plus its Merkle proof, everything the
// verifier needs to recompute one fold step.
func (c *Commitment) Query(positions []int) ([]QueryProof, error) {
	out := make([]QueryProof, len(positions))
	for pi, pos := range positions {
		idx := pos
		var lqs []LayerQuery
		for _, l := range c.layers {
			k := effectiveFactor(c.FoldingFactor, len(l.evals))
			m := len(l.evals) / k
			groupIdx := idx % m
			group := make([]field.Fp, k)
			for t := 0; t < k; t++ {
				group[t] = l.evals[groupIdx+t*m]
			}
			proof, err := l.tree.Prove(groupIdx)
			if err != nil {
				return nil, fmt.Errorf("fri: query %d: %w", pos, err)
			}
			lqs = append(lqs, LayerQuery{GroupIndex: groupIdx, GroupValues: group, Proof: proof})
			idx = groupIdx
		}
		out[pi] = QueryProof{Layers: lqs}
	}
	return out, nil
}
