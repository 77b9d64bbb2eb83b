package faceauth

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentity trims surrounding whitespace and NFC-normalizes the
// identity so the same name always has one byte representation in the store.
// Identities stay case-sensitive; only the Unicode encoding is canonicalized.
func NormalizeIdentity(identity string) string {
	return norm.NFC.String(strings.TrimSpace(identity))
}
