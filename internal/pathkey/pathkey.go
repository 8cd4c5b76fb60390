// Package pathkey derives the stable identity used by the player's persisted
// stores to address a file on disk. Two spellings of the same path, such as
// decomposed vs precomposed Unicode or the lower-cased form written by older
// releases, reduce to one canonical key.
package pathkey

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical returns the canonical key for a path: cleaned of relative syntax
// and trailing separators, then Unicode NFC-normalized.
// Idempotent: Canonical(Canonical(p)) == Canonical(p).
func Canonical(path string) string {
	return norm.NFC.String(filepath.Clean(path))
}

// Legacy returns the key form written by releases that lower-cased store
// keys.
func Legacy(path string) string {
	return strings.ToLower(Canonical(path))
}

// LookupKeys returns the keys a reader should probe in order: the canonical
// form first, then the legacy lower-cased form when it differs.
func LookupKeys(path string) []string {
	canonical := Canonical(path)
	legacy := strings.ToLower(canonical)
	if legacy == canonical {
		return []string{canonical}
	}
	return []string{canonical, legacy}
}
