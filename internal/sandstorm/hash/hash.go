// Package hash provides the hash-function family abstraction the
// transcript and Merkle-tree layers are generic over: a digest type plus
// chunk/element/merge operations, instantiated concretely by Keccak256
// (on-chain), Blake2s256 (off-chain recursive), and the algebraic
// Pedersen/Poseidon hashes (field-native, used by the cairo verifier's
// friendly Merkle layers). A single interface keeps the Merkle and
// transcript layers from special-casing each hash.
package hash

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// Digest is an opaque fixed-size hash output. Its length depends on the
// underlying hash family (32 bytes for Keccak/Blake2s, 32 bytes for a
// canonical Fp element too, since p < 2^252).
type Digest []byte

// Fn is implemented by every hash family the Merkle tree and transcript can
// be instantiated with.
type Fn interface {
	// Name identifies the hash family, used in error messages and layout
	// metadata (each layout/verifier target declares its hash family).
	Name() string
	// HashBytes hashes an arbitrary byte string to a digest.
	HashBytes(data []byte) Digest
	// HashChunks hashes a sequence of fixed-width byte chunks (leaf
	// preimage assembly, e.g. one field element's canonical bytes per
	// trace column).
	HashChunks(chunks [][]byte) Digest
	// HashElements hashes a sequence of field elements, each serialized
	// in the family's own element encoding: Montgomery bytes for the
	// byte-level transcript hashes (Keccak256, Blake2s256), canonical
	// bytes for CanonicalKeccak256, native Fp ingestion for Pedersen and
	// Poseidon. Mixing encodings across a hash site is a protocol bug, so
	// the encoding lives here rather than at every call site.
	HashElements(elems []field.Fp) Digest
	// Merge combines two child digests into a parent digest (a Merkle
	// tree's internal-node function).
	Merge(left, right Digest) Digest
	// MergeWithInt folds a counter into a digest (the transcript's reseed
	// operation).
	MergeWithInt(d Digest, counter uint64) Digest
}

// Keccak256 is the on-chain (Solidity verifier) hash family. HashElements
// encodes each field element as Montgomery bytes (the contract's wire
// format) itself, via field.ToMontgomeryBytes32; the byte-level methods
// hash their input as given.
type Keccak256 struct{}

func (Keccak256) Name() string { return "keccak256" }

func (Keccak256) HashBytes(data []byte) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

func (k Keccak256) HashChunks(chunks [][]byte) Digest {
	h := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)
}

func (k Keccak256) Merge(left, right Digest) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func (k Keccak256) MergeWithInt(d Digest, counter uint64) Digest {
	var buf [32 + 8]byte
	copy(buf[:32], d)
	for i := 0; i < 8; i++ {
		buf[32+7-i] = byte(counter >> (8 * i))
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(buf[:])
	return h.Sum(nil)
}

func (k Keccak256) HashElements(elems []field.Fp) Digest {
	return k.HashChunks(montgomeryChunks(elems))
}

// MaskedKeccak256 zeroes the lowest 12 bytes of each Keccak digest,
// keeping the 20 leading bytes the on-chain verifier's commitments
// expose.
type MaskedKeccak256 struct{ Keccak256 }

const maskedSuffixZeroBytes = 12

func (m MaskedKeccak256) Name() string { return "masked-keccak256" }

func maskSuffix(d Digest) Digest {
	out := append(Digest{}, d...)
	for i := 0; i < maskedSuffixZeroBytes && i < len(out); i++ {
		out[len(out)-1-i] = 0
	}
	return out
}

func (m MaskedKeccak256) HashBytes(data []byte) Digest { return maskSuffix(m.Keccak256.HashBytes(data)) }
func (m MaskedKeccak256) HashChunks(c [][]byte) Digest { return maskSuffix(m.Keccak256.HashChunks(c)) }
func (m MaskedKeccak256) HashElements(e []field.Fp) Digest {
	return maskSuffix(m.Keccak256.HashElements(e))
}
func (m MaskedKeccak256) Merge(l, r Digest) Digest { return maskSuffix(m.Keccak256.Merge(l, r)) }
func (m MaskedKeccak256) MergeWithInt(d Digest, c uint64) Digest {
	return maskSuffix(m.Keccak256.MergeWithInt(d, c))
}

// CanonicalKeccak256 is Keccak256 with field elements serialized in
// canonical (non-Montgomery) form -- the encoding the SHARP main-page hash
// and other public-input-facing digests use.
type CanonicalKeccak256 struct{ Keccak256 }

func (CanonicalKeccak256) Name() string { return "canonical-keccak256" }

func (c CanonicalKeccak256) HashElements(elems []field.Fp) Digest {
	return c.HashChunks(canonicalChunks(elems))
}

// Blake2s256 is the off-chain recursive-verifier hash family for the lower
// (non-friendly) Merkle layers.
type Blake2s256 struct{}

func (Blake2s256) Name() string { return "blake2s256" }

func (Blake2s256) HashBytes(data []byte) Digest {
	d := blake2s.Sum256(data)
	return d[:]
}

func (b Blake2s256) HashChunks(chunks [][]byte) Digest {
	h, _ := blake2s.New256(nil)
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)
}

func (b Blake2s256) Merge(left, right Digest) Digest {
	h, _ := blake2s.New256(nil)
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func (b Blake2s256) MergeWithInt(d Digest, counter uint64) Digest {
	var buf [32 + 8]byte
	copy(buf[:32], d)
	for i := 0; i < 8; i++ {
		buf[32+7-i] = byte(counter >> (8 * i))
	}
	h, _ := blake2s.New256(nil)
	h.Write(buf[:])
	return h.Sum(nil)
}

func (b Blake2s256) HashElements(elems []field.Fp) Digest {
	return b.HashChunks(montgomeryChunks(elems))
}

// MaskedBlake2s256 zeroes the top 12 bytes of each Blake2s digest before
// it is used as a Merkle node: the friendly tree masks the lower layers'
// digests to 20 bytes so they embed losslessly as the low limbs of a
// field element at the transition layer.
type MaskedBlake2s256 struct{ Blake2s256 }

const maskedPrefixZeroBytes = 12

func (m MaskedBlake2s256) Name() string { return "masked-blake2s256" }

func mask(d Digest) Digest {
	out := append(Digest{}, d...)
	for i := 0; i < maskedPrefixZeroBytes && i < len(out); i++ {
		out[i] = 0
	}
	return out
}

func (m MaskedBlake2s256) HashBytes(data []byte) Digest     { return mask(m.Blake2s256.HashBytes(data)) }
func (m MaskedBlake2s256) HashChunks(c [][]byte) Digest     { return mask(m.Blake2s256.HashChunks(c)) }
func (m MaskedBlake2s256) HashElements(e []field.Fp) Digest { return mask(m.Blake2s256.HashElements(e)) }
func (m MaskedBlake2s256) Merge(l, r Digest) Digest         { return mask(m.Blake2s256.Merge(l, r)) }
func (m MaskedBlake2s256) MergeWithInt(d Digest, c uint64) Digest {
	return mask(m.Blake2s256.MergeWithInt(d, c))
}

// Sha256 is a dev/debug leaf hash; production layouts never select it.
type Sha256 struct{}

func (Sha256) Name() string { return "sha256" }
func (Sha256) HashBytes(data []byte) Digest {
	h := sha256.Sum256(data)
	return h[:]
}
func (s Sha256) HashChunks(chunks [][]byte) Digest {
	h := sha256.New()
	for _, c := range chunks {
		h.Write(c)
	}
	return h.Sum(nil)
}
func (s Sha256) Merge(left, right Digest) Digest {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
func (s Sha256) MergeWithInt(d Digest, counter uint64) Digest {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(counter >> (8 * i))
	}
	h := sha256.New()
	h.Write(d)
	h.Write(buf[:])
	return h.Sum(nil)
}

func (s Sha256) HashElements(elems []field.Fp) Digest {
	return s.HashChunks(canonicalChunks(elems))
}

// Pedersen is the field-native hash family used by the recursive/Cairo
// verifiers' upper Merkle layers. Its digest is the 32-byte canonical
// encoding of an Fp element.
type Pedersen struct{}

func (Pedersen) Name() string { return "pedersen" }

func (Pedersen) HashBytes(data []byte) Digest {
	return fpToDigest(field.PedersenHash(field.ZeroFp(), field.FpFromBytesBE(data)))
}

func (p Pedersen) HashChunks(chunks [][]byte) Digest {
	elems := make([]field.Fp, len(chunks))
	for i, c := range chunks {
		elems[i] = field.FpFromBytesBE(c)
	}
	return fpToDigest(field.PedersenHashElements(elems))
}

func (p Pedersen) Merge(left, right Digest) Digest {
	l := field.FpFromBytesBE(left)
	r := field.FpFromBytesBE(right)
	return fpToDigest(field.PedersenHash(l, r))
}

func (p Pedersen) MergeWithInt(d Digest, counter uint64) Digest {
	l := field.FpFromBytesBE(d)
	return fpToDigest(field.PedersenHash(l, field.FpFromUint64(counter)))
}

func (p Pedersen) HashElements(elems []field.Fp) Digest {
	return fpToDigest(field.PedersenHashElements(elems))
}

// Poseidon is the field-native hash family built on field.PoseidonHashMany,
// usable as a friendly Merkle tree's upper-layer hash. No transcript coin
// uses it.
type Poseidon struct{}

func (Poseidon) Name() string { return "poseidon" }

func (Poseidon) HashBytes(data []byte) Digest {
	return fpToDigest(field.PoseidonHashMany([]field.Fp{field.FpFromBytesBE(data)}))
}

func (p Poseidon) HashChunks(chunks [][]byte) Digest {
	elems := make([]field.Fp, len(chunks))
	for i, c := range chunks {
		elems[i] = field.FpFromBytesBE(c)
	}
	return fpToDigest(field.PoseidonHashMany(elems))
}

func (p Poseidon) Merge(left, right Digest) Digest {
	l := field.FpFromBytesBE(left)
	r := field.FpFromBytesBE(right)
	return fpToDigest(field.PoseidonHashMany([]field.Fp{l, r}))
}

func (p Poseidon) MergeWithInt(d Digest, counter uint64) Digest {
	l := field.FpFromBytesBE(d)
	return fpToDigest(field.PoseidonHashMany([]field.Fp{l, field.FpFromUint64(counter)}))
}

func (p Poseidon) HashElements(elems []field.Fp) Digest {
	return fpToDigest(field.PoseidonHashMany(elems))
}

func fpToDigest(e field.Fp) Digest {
	b := e.Bytes32BE()
	return b[:]
}

func montgomeryChunks(elems []field.Fp) [][]byte {
	out := make([][]byte, len(elems))
	for i, e := range elems {
		b := e.ToMontgomeryBytes32()
		out[i] = b[:]
	}
	return out
}

func canonicalChunks(elems []field.Fp) [][]byte {
	out := make([][]byte, len(elems))
	for i, e := range elems {
		b := e.Bytes32BE()
		out[i] = b[:]
	}
	return out
}

// ByName resolves a hash family by name, used when building an
// AirConfig/Claim from a layout's declared hash family.
func ByName(name string) (Fn, error) {
	switch name {
	case "keccak256":
		return Keccak256{}, nil
	case "masked-keccak256":
		return MaskedKeccak256{}, nil
	case "canonical-keccak256":
		return CanonicalKeccak256{}, nil
	case "blake2s256":
		return Blake2s256{}, nil
	case "masked-blake2s256":
		return MaskedBlake2s256{}, nil
	case "sha256":
		return Sha256{}, nil
	case "pedersen":
		return Pedersen{}, nil
	case "poseidon":
		return Poseidon{}, nil
	default:
		return nil, fmt.Errorf("hash: unknown hash family %q", name)
	}
}
