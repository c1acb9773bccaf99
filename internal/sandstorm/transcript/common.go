package transcript

import (
	"math/big"
	"sort"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
)

// byteCoin is the shared reseed/draw/query/proof-of-work engine for both
// verifier targets: only the underlying byte hash (Keccak256 vs
// Blake2s256) and the field-element reseed strategy differ between them.
type byteCoin struct {
	h            hash.Fn
	digest       hash.Digest
	counter      uint64
	batchQueries bool // cairo coin draws query ints in batches of 4
}

func newByteCoin(h hash.Fn, seed hash.Digest, batchQueries bool) byteCoin {
	return byteCoin{h: h, digest: append(hash.Digest{}, seed...), counter: 0, batchQueries: batchQueries}
}

func (c *byteCoin) reseedWithBytes(b []byte) {
	cur := bigFromDigest(c.digest)
	cur.Add(cur, big.NewInt(1))
	buf := append(u256BE(cur), b...)
	c.digest = c.h.HashBytes(buf)
	c.counter = 0
}

func (c *byteCoin) drawBytes() hash.Digest {
	buf := append(append(hash.Digest{}, c.digest...), u256BE(big.NewInt(int64(c.counter)))...)
	c.counter++
	return c.h.HashBytes(buf)
}

func (c *byteCoin) ReseedWithDigest(d hash.Digest) { c.reseedWithBytes(d) }

func (c *byteCoin) ReseedWithFieldElementVector(vals []field.Fp) {
	var buf []byte
	for _, v := range vals {
		b := v.ToMontgomeryBytes32()
		buf = append(buf, b[:]...)
	}
	c.reseedWithBytes(buf)
}

func (c *byteCoin) ReseedWithInt(v uint64) {
	c.reseedWithBytes(u64BE(v))
}

var modulusBound = new(big.Int).Mul(field.P, big.NewInt(31))

func (c *byteCoin) Draw() field.Fp {
	for {
		raw := bigFromDigest(c.drawBytes())
		if raw.Cmp(modulusBound) < 0 {
			return field.FromMontgomeryBytes32(u256BE(raw))
		}
	}
}

// drawInts draws n raw uint64s from the big-endian byte stream produced by
// repeated drawBytes() calls (each call yields four uint64s).
func (c *byteCoin) drawInts(n int) []uint64 {
	out := make([]uint64, 0, n)
	for len(out) < n {
		b := c.drawBytes()
		for i := 0; i+8 <= len(b) && len(out) < n; i += 8 {
			var v uint64
			for j := 0; j < 8; j++ {
				v = v<<8 | uint64(b[i+j])
			}
			out = append(out, v)
		}
	}
	return out
}

func (c *byteCoin) DrawQueries(maxN, domainSize int) []int {
	n := maxN
	if c.batchQueries {
		n = nextMultipleOf4(maxN)
	}
	ints := c.drawInts(n)
	positions := make([]int, len(ints))
	for i, v := range ints {
		positions[i] = int(v % uint64(domainSize))
	}
	positions = positions[:maxN]
	return dedupSorted(positions)
}

func nextMultipleOf4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

func dedupSorted(xs []int) []int {
	seen := make(map[int]struct{}, len(xs))
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.Ints(out)
	return out
}

func (c *byteCoin) VerifyProofOfWork(bits uint8, nonce uint64) bool {
	prefix := append(u64BE(powPrefix), c.digest...)
	prefix = append(prefix, bits)
	prefixHash := c.h.HashBytes(prefix)
	powHash := c.h.HashBytes(append(append(hash.Digest{}, prefixHash...), u64BE(nonce)...))
	return leadingZeroBits(powHash) >= uint32(bits)
}

func (c *byteCoin) GrindProofOfWork(bits uint8) (uint64, error) {
	return grind(bits, func(nonce uint64) bool { return c.VerifyProofOfWork(bits, nonce) })
}

func (c *byteCoin) SecurityLevelBits() uint32 {
	return uint32(len(c.digest) * 8)
}
