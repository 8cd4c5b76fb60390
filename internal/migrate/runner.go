// Package migrate reconciles the path keys used by the player's persisted
// JSON stores after the key scheme changed from lower-cased to canonical
// paths. It runs once at startup, before anything else opens the stores, and
// skips all work when the tracked files are unchanged since the last fully
// successful pass.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkarren/cadenza/internal/caseresolve"
	"github.com/mkarren/cadenza/internal/prefs"
	"github.com/mkarren/cadenza/internal/util"
)

// trackedFile pairs a store file name with its schema migrator.
type trackedFile struct {
	name    string
	migrate func(document, *caseresolve.Resolver) (int, error)
}

// trackedFiles is the fixed migration order. The list is static: adding a
// store means adding a migrator here and bumping stateVersion.
var trackedFiles = []trackedFile{
	{"metadata-cache.json", migrateMetadataCache},
	{"duration-cache.json", migrateDurationCache},
	{"volume-cache.json", migrateVolumeCache},
	{"playback-weights.json", migratePlaybackWeights},
	{"playlist.json", migrateQueueSnapshot},
	{"user-playlists.json", migrateUserPlaylists},
}

// TrackedFileNames returns the store file names covered by migration, in
// migration order.
func TrackedFileNames() []string {
	names := make([]string, len(trackedFiles))
	for i, tracked := range trackedFiles {
		names[i] = tracked.name
	}
	return names
}

// Result aggregates one migration run.
type Result struct {
	ChangedFiles   int
	ChangedEntries int
	FailedFiles    []string
}

// Failed reports whether any tracked file failed to migrate.
func (r Result) Failed() bool {
	return len(r.FailedFiles) > 0
}

// Runner migrates the six tracked stores under one data directory. Not safe
// for concurrent invocation; callers serialize runs and must keep other
// writers away from the stores while a run is in flight.
type Runner struct {
	dir   string
	prefs *prefs.Store
}

// NewRunner returns a Runner for the stores under dir, persisting run state
// in the given preference store.
func NewRunner(dir string, store *prefs.Store) *Runner {
	return &Runner{dir: dir, prefs: store}
}

// Run executes one migration pass. Every failure is captured in the returned
// Result; nothing escapes as an error. When at least one file fails, the
// persisted state is deliberately left stale so the next run retries.
func (r *Runner) Run() Result {
	before := currentState(r.dir)
	if stored, ok := StoredState(r.prefs); ok && before.Equal(stored) {
		util.DebugLog("Path migration up to date, skipping")
		return Result{}
	}

	resolver := caseresolve.New()
	var result Result
	for _, tracked := range trackedFiles {
		changed, err := r.migrateFile(tracked, resolver)
		if err != nil {
			util.WarnLog("Migration of %s failed: %v", tracked.name, err)
			result.FailedFiles = append(result.FailedFiles, tracked.name)
			continue
		}
		if changed > 0 {
			util.DebugLog("Migrated %s: %d entries changed", tracked.name, changed)
			result.ChangedFiles++
			result.ChangedEntries += changed
		}
	}

	if result.Failed() {
		util.WarnLog("Path migration incomplete (%s); it will be retried on the next run",
			strings.Join(result.FailedFiles, ", "))
		return result
	}
	if err := saveState(r.prefs, currentState(r.dir)); err != nil {
		util.WarnLog("Failed to persist migration state: %v", err)
		return result
	}
	util.InfoLog("Path migration complete: %d entries updated in %d files",
		result.ChangedEntries, result.ChangedFiles)
	return result
}

// migrateFile loads, migrates and conditionally rewrites one store file. An
// absent file and an unchanged file are both no-ops; a changed file is
// replaced atomically.
func (r *Runner) migrateFile(tracked trackedFile, resolver *caseresolve.Resolver) (int, error) {
	path := filepath.Join(r.dir, tracked.name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", tracked.name, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", util.ErrCorrupt, err)
	}
	changed, err := tracked.migrate(doc, resolver)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", util.ErrCorrupt, err)
	}
	if changed == 0 {
		return 0, nil
	}

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", tracked.name, err)
	}
	if err := util.WriteFileAtomic(path, encoded, 0o644); err != nil {
		return 0, fmt.Errorf("failed to rewrite %s: %w", tracked.name, err)
	}
	return changed, nil
}
