// Package merkle implements the flat, single-hash-family Merkle tree used
// to commit trace/composition/FRI-layer evaluations, plus (in friendly.go)
// the mixed-hash "friendly" tree the cairo-verifier target requires.
package merkle

import (
	"bytes"
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

// Tree is a binary Merkle tree over leaf hashes produced by a single
// hash.Fn. The number of leaves need not be a power of two: an odd node at
// any level is paired with itself.
type Tree struct {
	h      hash.Fn
	levels [][]hash.Digest // levels[0] = leaves
}

// New builds a tree over pre-hashed leaves.
func New(h hash.Fn, leaves []hash.Digest) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle: cannot build a tree with zero leaves")
	}
	levels := [][]hash.Digest{append([]hash.Digest{}, leaves...)}
	cur := levels[0]
	for len(cur) > 1 {
		next := make([]hash.Digest, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 < len(cur) {
				next[i/2] = h.Merge(cur[i], cur[i+1])
			} else {
				next[i/2] = h.Merge(cur[i], cur[i])
			}
		}
		levels = append(levels, next)
		cur = next
	}
	return &Tree{h: h, levels: levels}, nil
}

// NewFromLeafData hashes each leaf's chunked preimage before building.
func NewFromLeafData(h hash.Fn, leafChunks [][][]byte) (*Tree, error) {
	leaves := make([]hash.Digest, len(leafChunks))
	for i, chunks := range leafChunks {
		leaves[i] = h.HashChunks(chunks)
	}
	return New(h, leaves)
}

// Root returns the tree's root digest.
func (t *Tree) Root() hash.Digest { return t.levels[len(t.levels)-1][0] }

// NumLeaves reports the number of committed leaves.
func (t *Tree) NumLeaves() int { return len(t.levels[0]) }

// ProofNode is one authentication-path entry: the sibling digest and
// whether it sits to the right of the path node at that level.
type ProofNode struct {
	Sibling hash.Digest
	IsRight bool
}

// Prove returns the authentication path for leaf index.
func (t *Tree) Prove(index int) ([]ProofNode, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", index, len(t.levels[0]))
	}
	var proof []ProofNode
	idx := index
	for level := 0; level < len(t.levels)-1; level++ {
		cur := t.levels[level]
		var siblingIdx int
		var isRight bool
		if idx%2 == 0 {
			siblingIdx, isRight = idx+1, true
		} else {
			siblingIdx, isRight = idx-1, false
		}
		if siblingIdx < len(cur) {
			proof = append(proof, ProofNode{Sibling: cur[siblingIdx], IsRight: isRight})
		} else {
			proof = append(proof, ProofNode{Sibling: cur[idx], IsRight: true})
		}
		idx /= 2
	}
	return proof, nil
}

// Verify checks that leaf, combined with proof, reduces to root under h.
func Verify(h hash.Fn, root hash.Digest, leaf hash.Digest, index int, proof []ProofNode) bool {
	cur := leaf
	idx := index
	for _, node := range proof {
		if node.IsRight {
			cur = h.Merge(cur, node.Sibling)
		} else {
			cur = h.Merge(node.Sibling, cur)
		}
		idx /= 2
	}
	return bytes.Equal(cur, root)
}
