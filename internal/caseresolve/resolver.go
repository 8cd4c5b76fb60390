// Package caseresolve recovers the true on-disk casing of paths whose stored
// spelling may have been lower-cased by earlier releases.
package caseresolve

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Resolver resolves path components against live directory listings,
// case-insensitively. Each unique directory is listed at most once per
// Resolver lifetime; a failed listing is cached too, so an unreadable
// directory costs a single syscall no matter how many paths pass through it.
// Not safe for concurrent use.
type Resolver struct {
	// dir -> entry names; nil records a failed listing
	listings map[string][]string
}

// New returns a Resolver with an empty listing cache.
func New() *Resolver {
	return &Resolver{listings: make(map[string][]string)}
}

// Resolve walks an absolute path component by component and substitutes the
// on-disk casing wherever a case-insensitive match exists. Components that
// cannot be matched (directory gone, file deleted, listing unreadable) are
// appended verbatim, so the result is always a complete path and never an
// error. Relative paths are returned unchanged.
func (r *Resolver) Resolve(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	sep := string(filepath.Separator)
	trimmed := strings.TrimPrefix(path, sep)
	if trimmed == "" {
		return path
	}

	components := strings.Split(trimmed, sep)
	current := sep
	for i, component := range components {
		names := r.entries(current)
		if names == nil {
			return joinRemainder(current, components[i:])
		}
		matched, ok := matchComponent(component, names)
		if !ok {
			return joinRemainder(current, components[i:])
		}
		current = filepath.Join(current, matched)
	}
	return current
}

// entries returns the cached listing for dir, populating the cache on first
// use.
func (r *Resolver) entries(dir string) []string {
	if cached, ok := r.listings[dir]; ok {
		return cached
	}
	dirents, err := os.ReadDir(dir)
	if err != nil {
		r.listings[dir] = nil
		return nil
	}
	names := make([]string, len(dirents))
	for i, dirent := range dirents {
		names[i] = dirent.Name()
	}
	r.listings[dir] = names
	return names
}

// matchComponent prefers an exact entry, then the first case- and
// width-insensitive match in directory order.
func matchComponent(component string, names []string) (string, bool) {
	for _, name := range names {
		if name == component {
			return name, true
		}
	}
	folded := foldName(component)
	for _, name := range names {
		if foldName(name) == folded {
			return name, true
		}
	}
	return "", false
}

// foldName normalizes an entry name for comparison: NFC, then width folding
// so fullwidth and halfwidth variants compare equal, then lower case.
func foldName(name string) string {
	return strings.ToLower(width.Fold.String(norm.NFC.String(name)))
}

func joinRemainder(current string, rest []string) string {
	parts := append([]string{current}, rest...)
	return filepath.Join(parts...)
}
