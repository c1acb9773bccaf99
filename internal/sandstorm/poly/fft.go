package poly

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// twoAdicity is the 2-adic valuation of P-1 (P-1 = 2^192 * (2^59+17)), the
// largest power-of-two order a multiplicative subgroup of Fp* can have.
const twoAdicity = 192

// two32AdicGenerator is a fixed generator of the full 2^192-order subgroup,
// computed as g^((p-1)/2^192) for the field's canonical multiplicative
// generator g=3 (3 generates F_p^* since p-1 factors as 2^192*(2^59+17), a
// squarefree-odd-part cofactor, matching the construction cairo-lang/
// ministark use for their root-of-unity tables).
var two32AdicGenerator = computeRootGenerator()

func computeRootGenerator() field.Fp {
	g := field.FpFromUint64(3)
	exp := new(big.Int).Rsh(new(big.Int).Sub(field.P, big.NewInt(1)), twoAdicity)
	return g.Exp(exp)
}

// DomainGenerator returns a generator of the unique multiplicative subgroup
// of order n (n must be a power of two, n <= 2^twoAdicity).
func DomainGenerator(n int) (field.Fp, error) {
	if n <= 0 || n&(n-1) != 0 {
		return field.Fp{}, fmt.Errorf("poly: domain size %d is not a power of two", n)
	}
	logN := bits.TrailingZeros(uint(n))
	if logN > twoAdicity {
		return field.Fp{}, fmt.Errorf("poly: domain size %d exceeds max two-adicity %d", n, twoAdicity)
	}
	g := two32AdicGenerator
	for i := 0; i < twoAdicity-logN; i++ {
		g = g.Square()
	}
	return g, nil
}

// Domain returns the elements offset*g^0, offset*g^1, ..., offset*g^(n-1).
func Domain(n int, offset field.Fp) ([]field.Fp, error) {
	g, err := DomainGenerator(n)
	if err != nil {
		return nil, err
	}
	out := make([]field.Fp, n)
	cur := offset
	for i := 0; i < n; i++ {
		out[i] = cur
		cur = cur.Mul(g)
	}
	return out, nil
}

// fftRadix2 runs in-place iterative Cooley-Tukey FFT/IFFT over the
// multiplicative subgroup generated by root (root must have order
// len(a), or its inverse for the inverse transform).
func fftRadix2(a []field.Fp, root field.Fp) {
	n := len(a)
	// bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		// root of unity of order `length`: root^(n/length)
		step := n / length
		wLen := root.Pow(uint64(step))
		for i := 0; i < n; i += length {
			w := field.OneFp()
			for j := 0; j < length/2; j++ {
				u := a[i+j]
				v := a[i+j+length/2].Mul(w)
				a[i+j] = u.Add(v)
				a[i+j+length/2] = u.Sub(v)
				w = w.Mul(wLen)
			}
		}
	}
}

// EvaluateOnDomain evaluates p (zero-padded to n coefficients) over the
// order-n subgroup generated by DomainGenerator(n), using an FFT. n must be
// a power of two at least as large as len(p.Coeffs).
func EvaluateOnDomain(p Polynomial, n int) ([]field.Fp, error) {
	if n <= 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("poly: fft size %d is not a power of two", n)
	}
	a := make([]field.Fp, n)
	for i := range a {
		a[i] = p.coeff(i)
	}
	root, err := DomainGenerator(n)
	if err != nil {
		return nil, err
	}
	fftRadix2(a, root)
	return a, nil
}

// InterpolateFromDomain recovers the unique degree-<n polynomial taking
// value evals[i] at g^i, where g generates the order-n subgroup (n a power
// of two). This is the IFFT.
func InterpolateFromDomain(evals []field.Fp) (Polynomial, error) {
	n := len(evals)
	if n == 0 || n&(n-1) != 0 {
		return Polynomial{}, fmt.Errorf("poly: ifft size %d is not a power of two", n)
	}
	root, err := DomainGenerator(n)
	if err != nil {
		return Polynomial{}, err
	}
	rootInv, err := root.Inv()
	if err != nil {
		return Polynomial{}, err
	}
	a := append([]field.Fp{}, evals...)
	fftRadix2(a, rootInv)
	nInv, err := field.FpFromUint64(uint64(n)).Inv()
	if err != nil {
		return Polynomial{}, err
	}
	for i := range a {
		a[i] = a[i].Mul(nInv)
	}
	return Polynomial{Coeffs: a}, nil
}

// LowDegreeExtend evaluates p over a size-n coset offset*<g>: the LDE
// step that commits the trace/composition polynomials at blowup-factor
// resolution. It evaluates p(offset*X) on the subgroup domain,
// which is equivalent to evaluating p on the coset itself.
func LowDegreeExtend(p Polynomial, n int, offset field.Fp) ([]field.Fp, error) {
	shifted := p.Scale(field.OneFp()) // copy
	pow := field.OneFp()
	out := make([]field.Fp, len(shifted.Coeffs))
	for i, c := range shifted.Coeffs {
		out[i] = c.Mul(pow)
		pow = pow.Mul(offset)
	}
	return EvaluateOnDomain(Polynomial{Coeffs: out}, n)
}

// InterpolateFromCoset is the inverse of LowDegreeExtend: it recovers the
// polynomial from its evaluations over offset*<g>.
func InterpolateFromCoset(evals []field.Fp, offset field.Fp) (Polynomial, error) {
	p, err := InterpolateFromDomain(evals)
	if err != nil {
		return Polynomial{}, err
	}
	offsetInv, err := offset.Inv()
	if err != nil {
		return Polynomial{}, err
	}
	pow := field.OneFp()
	out := make([]field.Fp, len(p.Coeffs))
	for i, c := range p.Coeffs {
		out[i] = c.Mul(pow)
		pow = pow.Mul(offsetInv)
	}
	return Polynomial{Coeffs: out}, nil
}
