package hash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

func TestByNameResolvesEveryRegisteredFamily(t *testing.T) {
	for _, name := range []string{
		"keccak256", "masked-keccak256", "canonical-keccak256",
		"blake2s256", "masked-blake2s256", "sha256", "pedersen", "poseidon",
	} {
		fn, err := ByName(name)
		require.NoError(t, err)
		require.Equal(t, name, fn.Name())
	}
	_, err := ByName("md5")
	require.Error(t, err)
}

func TestMaskedKeccakZeroesTrailingBytes(t *testing.T) {
	plain := Keccak256{}.HashBytes([]byte("abc"))
	masked := MaskedKeccak256{}.HashBytes([]byte("abc"))
	require.Len(t, masked, 32)
	require.Equal(t, []byte(plain[:20]), []byte(masked[:20]))
	for i := 20; i < 32; i++ {
		require.Zero(t, masked[i], "byte %d", i)
	}
}

func TestMaskedBlake2sZeroesLeadingBytes(t *testing.T) {
	plain := Blake2s256{}.HashBytes([]byte("abc"))
	masked := MaskedBlake2s256{}.HashBytes([]byte("abc"))
	require.Len(t, masked, 32)
	for i := 0; i < 12; i++ {
		require.Zero(t, masked[i], "byte %d", i)
	}
	require.Equal(t, []byte(plain[12:]), []byte(masked[12:]))
}

// The Keccak transcript convention serializes elements in Montgomery form;
// the canonical variant must disagree with it on any element whose
// Montgomery representative differs from its canonical value.
func TestCanonicalAndMontgomeryElementEncodingsDiffer(t *testing.T) {
	elems := []field.Fp{field.FpFromUint64(7), field.FpFromUint64(11)}
	mont := Keccak256{}.HashElements(elems)
	canon := CanonicalKeccak256{}.HashElements(elems)
	require.NotEqual(t, mont, canon)

	b := elems[0].Bytes32BE()
	fromCanonBytes := Keccak256{}.HashChunks([][]byte{b[:]})
	require.Equal(t, fromCanonBytes, CanonicalKeccak256{}.HashElements(elems[:1]))
}

func TestPedersenMergeMatchesFieldHash(t *testing.T) {
	a, b := field.FpFromUint64(1), field.FpFromUint64(2)
	da, db := fpToDigest(a), fpToDigest(b)
	merged := Pedersen{}.Merge(da, db)
	require.Equal(t, fpToDigest(field.PedersenHash(a, b)), merged)
}

func TestHashElementsDeterministicAcrossFamilies(t *testing.T) {
	elems := []field.Fp{field.FpFromUint64(3), field.FpFromUint64(9), field.FpFromUint64(27)}
	for _, name := range []string{"keccak256", "canonical-keccak256", "blake2s256", "pedersen", "poseidon"} {
		fn, err := ByName(name)
		require.NoError(t, err)
		require.Equal(t, fn.HashElements(elems), fn.HashElements(elems), name)
	}
}
