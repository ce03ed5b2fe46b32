package canon

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode_SortsObjectKeysByCodepoint(t *testing.T) {
	v := Object(
		Member{Key: "b", Value: Int(2)},
		Member{Key: "a", Value: Int(1)},
		Member{Key: "c", Value: Int(3)},
	)
	got, err := Encode(v)
	require.NoError(t, err)
	require.Equal(t, `{"a":1,"b":2,"c":3}`, string(got))
}

func TestEncode_RejectsDuplicateKeys(t *testing.T) {
	v := Object(
		Member{Key: "a", Value: Int(1)},
		Member{Key: "a", Value: Int(2)},
	)
	_, err := Encode(v)
	require.Error(t, err)
}

func TestEncode_ScalarsAndContainers(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "null"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"int", Int(-42), "-42"},
		{"string", String("hi"), `"hi"`},
		{"empty array", Array(), "[]"},
		{"array", Array(Int(1), Int(2)), "[1,2]"},
		{"empty object", Object(), "{}"},
		{"nested", Object(Member{Key: "xs", Value: Array(Int(1))}), `{"xs":[1]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Encode(c.v)
			require.NoError(t, err)
			require.Equal(t, c.want, string(got))
		})
	}
}

func TestEncode_ASCIIOnlyEscaping(t *testing.T) {
	// "héllo" - é is U+00E9, a two-byte UTF-8 sequence that canonical form
	// must escape rather than pass through raw.
	got, err := Encode(String("héllo"))
	require.NoError(t, err)
	require.Equal(t, `"h\u00e9llo"`, string(got))
}

func TestEncode_SurrogatePairForAstralPlane(t *testing.T) {
	// U+1F600 (grinning face) requires a UTF-16 surrogate pair under JSON's
	// \u escape scheme.
	got, err := Encode(String("\U0001F600"))
	require.NoError(t, err)
	require.Equal(t, `"\ud83d\ude00"`, string(got))
}

func TestEncode_ControlCharacterEscapes(t *testing.T) {
	got, err := Encode(String("a\tb\nc\"d\\e"))
	require.NoError(t, err)
	require.Equal(t, `"a\tb\nc\"d\\e"`, string(got))
}

// TestEncode_Idempotent checks that canon(parse(canon(p))) == canon(p) for a
// canonical-safe payload.
func TestEncode_Idempotent(t *testing.T) {
	v := Object(
		Member{Key: "thread", Value: String("T1")},
		Member{Key: "tags", Value: Array(String("a"), String("b"))},
		Member{Key: "count", Value: Int(3)},
	)

	first, err := Encode(v)
	require.NoError(t, err)

	reparsed, err := parseCanonicalJSON(first)
	require.NoError(t, err)

	second, err := Encode(reparsed)
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
}

func TestMarshal_RejectsFloats(t *testing.T) {
	_, err := Marshal(3.5)
	require.Error(t, err)
}

func TestMarshal_AcceptsWholeFloatsAsInt(t *testing.T) {
	v, err := Marshal(3.0)
	require.NoError(t, err)
	require.Equal(t, KindInt, v.Kind())
	require.Equal(t, int64(3), v.Int())
}

func TestMarshal_NestedStructures(t *testing.T) {
	v, err := Marshal(map[string]any{
		"a": []any{1, "two", nil, true},
		"b": map[string]any{"nested": int64(7)},
	})
	require.NoError(t, err)
	require.Equal(t, KindObject, v.Kind())

	a, ok := v.Get("a")
	require.True(t, ok)
	require.Equal(t, KindArray, a.Kind())
	require.Len(t, a.Elements(), 4)

	b, ok := v.Get("b")
	require.True(t, ok)
	nested, ok := b.Get("nested")
	require.True(t, ok)
	require.Equal(t, int64(7), nested.Int())
}

func TestMarshal_RejectsUnsupportedLeaf(t *testing.T) {
	_, err := Marshal(struct{}{})
	require.Error(t, err)
}

func TestValue_GetOnNonObject(t *testing.T) {
	_, ok := Int(1).Get("x")
	require.False(t, ok)
}

// parseCanonicalJSON is a minimal helper for round-tripping canonical bytes
// back into a Value for the idempotency test, using the same decoding rules
// (UseNumber) that every reader in this module applies before calling
// Marshal.
func parseCanonicalJSON(b []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	return Marshal(v)
}
