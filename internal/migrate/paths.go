package migrate

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkarren/cadenza/internal/caseresolve"
	"github.com/mkarren/cadenza/internal/pathkey"
)

// isLegacyKey reports whether a key looks like it was written by a release
// that lower-cased store keys. Real library paths almost always carry mixed
// case in an artist, album or file name, so an all-lowercase path is treated
// as a migration candidate. The guess is harmless when wrong: a genuinely
// all-lowercase path is re-probed against the filesystem and comes back
// unchanged.
func isLegacyKey(key string) bool {
	return key == strings.ToLower(key)
}

// migratedPath carries one migrated path and whether its casing was
// confirmed against a live directory listing.
type migratedPath struct {
	value    string
	resolved bool
}

func migratePath(path string, resolver *caseresolve.Resolver) migratedPath {
	canonical := pathkey.Canonical(path)
	if !filepath.IsAbs(canonical) {
		return migratedPath{value: path}
	}
	if !isLegacyKey(canonical) {
		return migratedPath{value: canonical}
	}
	resolvedPath := pathkey.Canonical(resolver.Resolve(canonical))
	return migratedPath{value: resolvedPath, resolved: resolvedPath != canonical}
}

// MigratePath returns the canonical replacement for one stored path. Paths
// whose canonical form is not absolute are returned as given; paths already
// carrying mixed case are canonicalized without touching the filesystem;
// suspected legacy keys are resolved against live directory listings and
// re-canonicalized.
func MigratePath(path string, resolver *caseresolve.Resolver) string {
	return migratePath(path, resolver).value
}

// MigrateMap migrates every key of a path-keyed map. Keys already carrying
// mixed case are processed before suspected legacy keys, with a lexical
// tiebreak within each group, so when both forms collapse to the same target
// the trustworthy entry is inserted first and the legacy duplicate is
// dropped rather than overwriting it. The changed count covers rewritten
// keys and dropped duplicates.
func MigrateMap[V any](entries map[string]V, resolver *caseresolve.Resolver) (map[string]V, int) {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		legacyI, legacyJ := isLegacyKey(keys[i]), isLegacyKey(keys[j])
		if legacyI != legacyJ {
			return legacyJ
		}
		return keys[i] < keys[j]
	})

	migrated := make(map[string]V, len(entries))
	changed := 0
	for _, key := range keys {
		target := MigratePath(key, resolver)
		if _, taken := migrated[target]; taken {
			// Confirmed duplicate of an already-inserted entry
			changed++
			continue
		}
		migrated[target] = entries[key]
		if target != key {
			changed++
		}
	}
	return migrated, changed
}

// MigrateList migrates an ordered path list. Entries are de-duplicated
// case-insensitively by canonical form, keeping the first occurrence so
// user-visible ordering survives; a later duplicate whose casing was
// confirmed on disk still upgrades the spelling of the kept entry in place.
func MigrateList(paths []string, resolver *caseresolve.Resolver) ([]string, int) {
	migrated := make([]string, 0, len(paths))
	resolved := make([]bool, 0, len(paths))
	index := make(map[string]int, len(paths))
	changed := 0

	for _, path := range paths {
		m := migratePath(path, resolver)
		folded := pathkey.Legacy(m.value)
		if at, dup := index[folded]; dup {
			if m.resolved && !resolved[at] && migrated[at] != m.value {
				migrated[at] = m.value
				resolved[at] = true
			}
			changed++
			continue
		}
		index[folded] = len(migrated)
		migrated = append(migrated, m.value)
		resolved = append(resolved, m.resolved)
		if m.value != path {
			changed++
		}
	}
	return migrated, changed
}
