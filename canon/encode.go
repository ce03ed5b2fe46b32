package canon

import (
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/lukaspfisterch/dbl-observer/obserr"
)

// Encode returns the canonical JSON byte encoding of v: recursively sorted
// object keys (by codepoint), no insignificant whitespace, ASCII-only
// escaping of non-ASCII characters, and integers emitted without decimal
// points. The result is valid UTF-8 (in fact pure ASCII).
func Encode(v Value) ([]byte, error) {
	dst := make([]byte, 0, 256)
	dst, err := appendValue(dst, v)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// Len is a convenience for len(Encode(v)) without retaining the buffer.
func Len(v Value) (int, error) {
	b, err := Encode(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func appendValue(dst []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindBool:
		if v.b {
			return append(dst, "true"...), nil
		}
		return append(dst, "false"...), nil
	case KindInt:
		return strconv.AppendInt(dst, v.i, 10), nil
	case KindString:
		return appendString(dst, v.s), nil
	case KindArray:
		return appendArray(dst, v.arr)
	case KindObject:
		return appendObject(dst, v.obj)
	default:
		return nil, obserr.Canonicalization("unrecognized value kind", nil)
	}
}

func appendArray(dst []byte, arr []Value) ([]byte, error) {
	dst = append(dst, '[')
	for i, elem := range arr {
		if i != 0 {
			dst = append(dst, ',')
		}
		var err error
		dst, err = appendValue(dst, elem)
		if err != nil {
			return nil, err
		}
	}
	return append(dst, ']'), nil
}

// appendObject sorts members by key codepoint order before emitting them,
// and rejects duplicate keys: byte-exact canonical form is undefined for a
// map with repeated keys.
func appendObject(dst []byte, members []Member) ([]byte, error) {
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return members[order[i]].Key < members[order[j]].Key
	})

	dst = append(dst, '{')
	for pos, idx := range order {
		if pos != 0 {
			if members[order[pos-1]].Key == members[idx].Key {
				return nil, obserr.Canonicalization("duplicate object key: "+members[idx].Key, nil)
			}
			dst = append(dst, ',')
		}
		dst = appendString(dst, members[idx].Key)
		dst = append(dst, ':')
		var err error
		dst, err = appendValue(dst, members[idx].Value)
		if err != nil {
			return nil, err
		}
	}
	return append(dst, '}'), nil
}

const hexDigits = "0123456789abcdef"

// noEscape marks bytes in [0x20, 0x7e] that need no JSON escaping, using a
// lookup table to avoid a branch per ASCII byte in the common case.
var noEscape = func() (t [256]bool) {
	for i := 0x20; i <= 0x7e; i++ {
		t[i] = i != '\\' && i != '"'
	}
	return
}()

// appendString appends s to dst as a canonical JSON string: surrounding
// quotes, backslash/quote/control-character escapes, and \uXXXX escapes for
// every character outside the printable ASCII range (including each valid
// multi-byte UTF-8 sequence, which canonical form escapes as one code point,
// or a surrogate pair above U+FFFF, rather than passing it through raw).
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if noEscape[c] {
				dst = append(dst, c)
				i++
				continue
			}
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\b':
				dst = append(dst, '\\', 'b')
			case '\f':
				dst = append(dst, '\\', 'f')
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = appendUnicodeEscape(dst, rune(c))
			}
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = appendUnicodeEscape(dst, utf8.RuneError)
			i++
			continue
		}
		if r > 0xffff {
			// encode as a UTF-16 surrogate pair, per JSON's \u semantics.
			r -= 0x10000
			hi := 0xd800 + (r >> 10)
			lo := 0xdc00 + (r & 0x3ff)
			dst = appendUnicodeEscape(dst, hi)
			dst = appendUnicodeEscape(dst, lo)
		} else {
			dst = appendUnicodeEscape(dst, r)
		}
		i += size
	}
	return append(dst, '"')
}

func appendUnicodeEscape(dst []byte, r rune) []byte {
	dst = append(dst, '\\', 'u')
	dst = append(dst, hexDigits[(r>>12)&0xf])
	dst = append(dst, hexDigits[(r>>8)&0xf])
	dst = append(dst, hexDigits[(r>>4)&0xf])
	dst = append(dst, hexDigits[r&0xf])
	return dst
}
