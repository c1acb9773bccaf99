// Package fri implements the FRI (Fast Reed-Solomon IOP of Proximity)
// commit and query phases the prover/verifier pipelines drive after
// building the DEEP composition polynomial: repeated k-ary folding of an
// LDE-domain evaluation vector, Merkle-committed at every layer, down to
// a small remainder polynomial sent in full. Each fold gathers the k
// domain points sharing a residue mod the next layer's size, recovers the
// k "digit" polynomials via a small inverse DFT, and takes the verifier's
// random linear combination of them.
package fri

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
)

// foldGroup recovers the k "digit" evaluations f_0(y)..f_{k-1}(y) of the
// decomposition f(x) = Sum_i x^i*f_i(x^k) from the k evaluations of f at
// {xj, xj*w, ..., xj*w^(k-1)} (w a k-th root of unity), then returns the
// verifier's random linear combination Sum_i challenge^i * f_i(y), the
// next layer's value at y = xj^k.
func foldGroup(group []field.Fp, xj field.Fp, challenge field.Fp) (field.Fp, error) {
	k := len(group)
	w, err := poly.DomainGenerator(k)
	if err != nil {
		return field.Fp{}, fmt.Errorf("fri: fold factor %d: %w", k, err)
	}
	a, err := idftSmall(group, w)
	if err != nil {
		return field.Fp{}, err
	}
	acc := field.ZeroFp()
	chPow := field.OneFp()
	xjPow := field.OneFp()
	for i := 0; i < k; i++ {
		xjPowInv, err := xjPow.Inv()
		if err != nil {
			// xj is a nonzero LDE domain point; i=0 term has xjPow=1,
			// always invertible, so this only triggers on a malformed
			// (zero) domain point passed in by a caller bug.
			return field.Fp{}, fmt.Errorf("fri: domain point has zero power at digit %d: %w", i, err)
		}
		fi := a[i].Mul(xjPowInv)
		acc = acc.Add(chPow.Mul(fi))
		chPow = chPow.Mul(challenge)
		xjPow = xjPow.Mul(xj)
	}
	return acc, nil
}

// idftSmall computes the length-k inverse DFT of vals under root w (a
// primitive k-th root of unity), i.e. the unique a such that
// vals[t] = Sum_i a[i]*w^(t*i) for all t. k is always small (the folding
// factor, typically 4-16), so a direct O(k^2) evaluation is used rather
// than the radix-2 FFT in package poly (which assumes power-of-two-chain
// domain bookkeeping this local transform doesn't need).
func idftSmall(vals []field.Fp, w field.Fp) ([]field.Fp, error) {
	k := len(vals)
	wInv, err := w.Inv()
	if err != nil {
		return nil, fmt.Errorf("fri: %w", err)
	}
	kInv, err := field.FpFromUint64(uint64(k)).Inv()
	if err != nil {
		return nil, fmt.Errorf("fri: %w", err)
	}
	out := make([]field.Fp, k)
	for i := 0; i < k; i++ {
		wInvI := wInv.Pow(uint64(i))
		acc := field.ZeroFp()
		cur := field.OneFp()
		for t := 0; t < k; t++ {
			acc = acc.Add(vals[t].Mul(cur))
			cur = cur.Mul(wInvI)
		}
		out[i] = acc.Mul(kInv)
	}
	return out, nil
}

// foldLayer folds every group of the current layer, returning the next
// layer's full evaluation vector and domain offset.
func foldLayer(evals []field.Fp, offset field.Fp, k int, challenge field.Fp) ([]field.Fp, field.Fp, error) {
	n := len(evals)
	if n%k != 0 {
		return nil, field.Fp{}, fmt.Errorf("fri: layer size %d not divisible by folding factor %d", n, k)
	}
	m := n / k
	genN, err := poly.DomainGenerator(n)
	if err != nil {
		return nil, field.Fp{}, err
	}
	out := make([]field.Fp, m)
	xj := offset
	for j := 0; j < m; j++ {
		group := make([]field.Fp, k)
		for t := 0; t < k; t++ {
			group[t] = evals[j+t*m]
		}
		v, err := foldGroup(group, xj, challenge)
		if err != nil {
			return nil, field.Fp{}, err
		}
		out[j] = v
		xj = xj.Mul(genN)
	}
	return out, offset.Pow(uint64(k)), nil
}

// effectiveFactor clamps the configured folding factor to the current
// layer size, for the final fold when fewer than k points remain.
func effectiveFactor(configured, layerSize int) int {
	if configured > layerSize {
		return layerSize
	}
	return configured
}
