package merkle

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

// FriendlyTree is the mixed-hash tree the cairo-verifier target commits
// with: the bottom layers use a byte-oriented hash
// (MaskedBlake2s256) so opening one leaf is cheap outside a SNARK, while
// the top friendlyLayers layers use a field-native hash (Pedersen or
// Poseidon) so the final root and its uppermost authentication steps are
// cheap to re-verify *inside* a recursive Cairo proof.
//
// The transition layer reinterprets each masked 32-byte digest as a
// big-endian integer and reduces it into Fp -- lossless because
// MaskedBlake2s256 zeroes the top 12 bytes, leaving a 160-bit value that
// is always less than the 252-bit modulus.
type FriendlyTree struct {
	lower       hash.Fn
	upper       hash.Fn
	friendlyLayers int
	// byteLevels[0] is the leaf layer; the last byteLevels entry is the
	// transition layer, still represented as masked digests.
	byteLevels [][]hash.Digest
	// fpLevels[0] is the transition layer reinterpreted as Fp digests; the
	// last entry is the single-element root layer.
	fpLevels [][]hash.Digest
}

// NewFriendly builds a friendly tree. friendlyLayers is the number of
// field-hash layers at the top; the remaining
// log2(len(leaves))-friendlyLayers layers use lower.
func NewFriendly(lower, upper hash.Fn, friendlyLayers int, leaves []hash.Digest) (*FriendlyTree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle: cannot build a friendly tree with zero leaves")
	}
	totalLayers := 0
	for n := len(leaves); n > 1; n = (n + 1) / 2 {
		totalLayers++
	}
	if friendlyLayers < 0 || friendlyLayers > totalLayers {
		return nil, fmt.Errorf("merkle: friendly layer count %d exceeds tree depth %d", friendlyLayers, totalLayers)
	}
	byteDepth := totalLayers - friendlyLayers

	byteLevels := [][]hash.Digest{append([]hash.Digest{}, leaves...)}
	cur := byteLevels[0]
	for i := 0; i < byteDepth; i++ {
		next := mergeLevel(lower, cur)
		byteLevels = append(byteLevels, next)
		cur = next
	}

	fpLevels := [][]hash.Digest{toFpDigests(cur)}
	fcur := fpLevels[0]
	for len(fcur) > 1 {
		next := mergeLevel(upper, fcur)
		fpLevels = append(fpLevels, next)
		fcur = next
	}

	return &FriendlyTree{
		lower: lower, upper: upper, friendlyLayers: friendlyLayers,
		byteLevels: byteLevels, fpLevels: fpLevels,
	}, nil
}

func mergeLevel(h hash.Fn, cur []hash.Digest) []hash.Digest {
	next := make([]hash.Digest, (len(cur)+1)/2)
	for i := 0; i < len(cur); i += 2 {
		if i+1 < len(cur) {
			next[i/2] = h.Merge(cur[i], cur[i+1])
		} else {
			next[i/2] = h.Merge(cur[i], cur[i])
		}
	}
	return next
}

// toFpDigests reinterprets each masked byte digest as a canonical Fp
// element's big-endian encoding -- the transition from byte-space to
// field-space.
func toFpDigests(level []hash.Digest) []hash.Digest {
	out := make([]hash.Digest, len(level))
	for i, d := range level {
		e := field.FpFromBytesBE(d)
		b := e.Bytes32BE()
		out[i] = append(hash.Digest{}, b[:]...)
	}
	return out
}

// Root returns the tree's field-hash root digest.
func (t *FriendlyTree) Root() hash.Digest { return t.fpLevels[len(t.fpLevels)-1][0] }

// NumLeaves reports the number of committed leaves.
func (t *FriendlyTree) NumLeaves() int { return len(t.byteLevels[0]) }

// FriendlyProofNode mirrors ProofNode but tags which hash family verifies
// that step, since the two halves of the path use different merge rules.
type FriendlyProofNode struct {
	Sibling hash.Digest
	IsRight bool
	Upper   bool
}

// Prove returns the full authentication path for leaf index, lower layers
// first, transitioning to upper (field-hash) layers.
func (t *FriendlyTree) Prove(index int) ([]FriendlyProofNode, error) {
	if index < 0 || index >= len(t.byteLevels[0]) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", index, len(t.byteLevels[0]))
	}
	var proof []FriendlyProofNode
	idx := index
	for level := 0; level < len(t.byteLevels)-1; level++ {
		node, moved := siblingAt(t.byteLevels[level], idx, false)
		proof = append(proof, node)
		_ = moved
		idx /= 2
	}
	for level := 0; level < len(t.fpLevels)-1; level++ {
		node, moved := siblingAt(t.fpLevels[level], idx, true)
		proof = append(proof, node)
		_ = moved
		idx /= 2
	}
	return proof, nil
}

func siblingAt(level []hash.Digest, idx int, upper bool) (FriendlyProofNode, int) {
	var siblingIdx int
	var isRight bool
	if idx%2 == 0 {
		siblingIdx, isRight = idx+1, true
	} else {
		siblingIdx, isRight = idx-1, false
	}
	if siblingIdx >= len(level) {
		siblingIdx, isRight = idx, true
	}
	return FriendlyProofNode{Sibling: level[siblingIdx], IsRight: isRight, Upper: upper}, idx / 2
}

// VerifyFriendly checks that leaf, combined with proof, reduces to root.
// The transition between lower and upper hash families happens implicitly:
// once proof entries are tagged Upper, the running digest is first
// reinterpreted through the same byte->Fp->bytes32 transform Prove used.
func VerifyFriendly(lower, upper hash.Fn, root hash.Digest, leaf hash.Digest, proof []FriendlyProofNode) bool {
	cur := leaf
	seenUpper := false
	for _, node := range proof {
		if node.Upper && !seenUpper {
			cur = toFpDigests([]hash.Digest{cur})[0]
			seenUpper = true
		}
		h := lower
		if node.Upper {
			h = upper
		}
		if node.IsRight {
			cur = h.Merge(cur, node.Sibling)
		} else {
			cur = h.Merge(node.Sibling, cur)
		}
	}
	for i, b := range cur {
		if i >= len(root) || b != root[i] {
			return false
		}
	}
	return len(cur) == len(root)
}
