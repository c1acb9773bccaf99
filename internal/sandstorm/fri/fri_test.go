package fri

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/transcript"
)

// TestFoldGroupRecoversLowDegreePolynomial checks the core k-ary fold
// primitive directly: folding the evaluations of a polynomial of degree
// < k by a random challenge should reproduce the polynomial's own value
// at the combined point via the textbook decomposition
// f(x) = Sum_i x^i*f_i(x^k) specialized to a single group.
func TestFoldGroupRecoversLowDegreePolynomial(t *testing.T) {
	k := 4
	p := poly.New([]field.Fp{field.FpFromUint64(7), field.FpFromUint64(3), field.FpFromUint64(5), field.FpFromUint64(11)})
	w, err := poly.DomainGenerator(k)
	require.NoError(t, err)
	xj := field.FpFromUint64(2)

	group := make([]field.Fp, k)
	cur := xj
	for t := 0; t < k; t++ {
		group[t] = p.Eval(cur)
		cur = cur.Mul(w)
	}

	challenge := field.FpFromUint64(9)
	got, err := foldGroup(group, xj, challenge)
	require.NoError(t, err)

	// f_i(y) for constant-coefficient f_i (degree 0 in this construction,
	// since p's coefficients are laid out one per digit) is simply
	// coeff_i, so the expected combination is Sum_i challenge^i*coeff_i.
	want := field.ZeroFp()
	chPow := field.OneFp()
	for _, c := range p.Coeffs {
		want = want.Add(chPow.Mul(c))
		chPow = chPow.Mul(challenge)
	}
	require.True(t, got.Equal(want))
}

// TestCommitQueryVerifyRoundTrip exercises the full FRI
// commit/query/verify loop on a small low-degree polynomial's LDE.
func TestCommitQueryVerifyRoundTrip(t *testing.T) {
	degree := 4
	n := 64 // LDE domain size, blowup factor 16 relative to degree
	coeffs := make([]field.Fp, degree)
	for i := range coeffs {
		coeffs[i] = field.FpFromUint64(uint64(i*17 + 3))
	}
	p := poly.New(coeffs)

	offset := field.FpFromUint64(5)
	evals, err := poly.LowDegreeExtend(p, n, offset)
	require.NoError(t, err)

	h := hash.Blake2s256{}
	foldingFactor := 4
	maxRemainder := 4

	proverCoin := transcript.NewCairoCoin(h.HashBytes([]byte("fri-test-seed")))
	commitment, err := Commit(evals, offset, foldingFactor, maxRemainder, proverCoin, h)
	require.NoError(t, err)

	positions := []int{0, 1, 5, 17, 40, 63}
	queries, err := commitment.Query(positions)
	require.NoError(t, err)

	verifierCoin := transcript.NewCairoCoin(h.HashBytes([]byte("fri-test-seed")))
	var challenges []field.Fp
	for _, root := range commitment.Roots() {
		verifierCoin.ReseedWithDigest(root)
		challenges = append(challenges, verifierCoin.Draw())
	}

	params := Params{
		BaseDomainSize: n,
		BaseOffset:     offset,
		FoldingFactor:  foldingFactor,
		Roots:          commitment.Roots(),
		Challenges:     challenges,
		Remainder:      commitment.Remainder,
	}

	for i, pos := range positions {
		err := VerifyQuery(params, h, pos, evals[pos], queries[i])
		require.NoError(t, err, "position %d", pos)
	}
}

// TestCommitQueryVerifyRejectsTamperedValue confirms a single corrupted
// opened value is caught, either by the Merkle check or the fold check.
func TestCommitQueryVerifyRejectsTamperedValue(t *testing.T) {
	degree := 4
	n := 64
	coeffs := make([]field.Fp, degree)
	for i := range coeffs {
		coeffs[i] = field.FpFromUint64(uint64(i + 1))
	}
	p := poly.New(coeffs)
	offset := field.FpFromUint64(5)
	evals, err := poly.LowDegreeExtend(p, n, offset)
	require.NoError(t, err)

	h := hash.Blake2s256{}
	foldingFactor := 4
	maxRemainder := 4
	coin := transcript.NewCairoCoin(h.HashBytes([]byte("tamper-seed")))
	commitment, err := Commit(evals, offset, foldingFactor, maxRemainder, coin, h)
	require.NoError(t, err)

	positions := []int{3}
	queries, err := commitment.Query(positions)
	require.NoError(t, err)
	queries[0].Layers[0].GroupValues[0] = queries[0].Layers[0].GroupValues[0].Add(field.OneFp())

	verifierCoin := transcript.NewCairoCoin(h.HashBytes([]byte("tamper-seed")))
	var challenges []field.Fp
	for _, root := range commitment.Roots() {
		verifierCoin.ReseedWithDigest(root)
		challenges = append(challenges, verifierCoin.Draw())
	}
	params := Params{
		BaseDomainSize: n,
		BaseOffset:     offset,
		FoldingFactor:  foldingFactor,
		Roots:          commitment.Roots(),
		Challenges:     challenges,
		Remainder:      commitment.Remainder,
	}
	err = VerifyQuery(params, h, 3, evals[3], queries[0])
	require.Error(t, err)
}
