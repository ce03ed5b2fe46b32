package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lukaspfisterch/dbl-observer/canon"
)

func TestDigest_FormatAndValue(t *testing.T) {
	canonical := []byte(`{"a":1}`)
	got := Digest(canonical)

	sum := sha256.Sum256(canonical)
	want := Prefix + hex.EncodeToString(sum[:])

	require.Equal(t, want, got)
	require.True(t, len(got) > len(Prefix))
}

func TestOfValue_ReportsCanonLenAndDigest(t *testing.T) {
	v := canon.Object(canon.Member{Key: "x", Value: canon.Int(1)})

	d, canonLen, err := OfValue(v)
	require.NoError(t, err)
	require.Equal(t, len(`{"x":1}`), canonLen)
	require.Equal(t, Digest([]byte(`{"x":1}`)), d)
}

// TestDigest_EqualCanonicalBytesProduceEqualDigests checks that
// digest(p1) == digest(p2) whenever canon(p1) == canon(p2).
func TestDigest_EqualCanonicalBytesProduceEqualDigests(t *testing.T) {
	p1 := canon.Object(
		canon.Member{Key: "a", Value: canon.Int(1)},
		canon.Member{Key: "b", Value: canon.Int(2)},
	)
	p2 := canon.Object(
		canon.Member{Key: "b", Value: canon.Int(2)},
		canon.Member{Key: "a", Value: canon.Int(1)},
	)

	d1, _, err := OfValue(p1)
	require.NoError(t, err)
	d2, _, err := OfValue(p2)
	require.NoError(t, err)

	require.Equal(t, d1, d2, "differently-ordered members with identical key/value pairs must canonicalize identically")
}

func TestOfValue_PropagatesCanonicalizationError(t *testing.T) {
	v := canon.Object(
		canon.Member{Key: "dup", Value: canon.Int(1)},
		canon.Member{Key: "dup", Value: canon.Int(2)},
	)
	_, _, err := OfValue(v)
	require.Error(t, err)
}
