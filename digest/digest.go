// Package digest computes sha256:<hex> digests over canonical payload
// bytes. Digests are purely observational: they are never compared for
// authority, only for replay/equality diagnostics.
package digest

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/lukaspfisterch/dbl-observer/canon"
)

// Prefix is prepended to every digest this package produces.
const Prefix = "sha256:"

// Digest returns "sha256:<lowercase-hex>" over canonical, the canonical
// byte encoding of a payload (as produced by canon.Encode).
func Digest(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return Prefix + hex.EncodeToString(sum[:])
}

// OfValue canonicalizes v and returns its digest alongside the byte length
// of the canonical encoding (canon_len), since callers invariably need
// both together.
func OfValue(v canon.Value) (digest string, canonLen int, err error) {
	b, err := canon.Encode(v)
	if err != nil {
		return "", 0, err
	}
	return Digest(b), len(b), nil
}
