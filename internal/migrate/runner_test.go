package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkarren/cadenza/internal/prefs"
)

// testEnv is one migration test setup: a data directory for the stores, a
// separate preference store and a library fixture with known casing.
type testEnv struct {
	dataDir string
	prefs   *prefs.Store
	truth   string // on-disk track path
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	libRoot := t.TempDir()
	truth := writeTrack(t, libRoot, []string{"Music"}, "Song.mp3")

	return &testEnv{dataDir: t.TempDir(), prefs: store, truth: truth}
}

func (e *testEnv) legacy() string {
	return strings.ToLower(e.truth)
}

func (e *testEnv) write(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.dataDir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) read(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dataDir, name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// writeAllLegacy populates every tracked store with content that needs
// migration.
func (e *testEnv) writeAllLegacy(t *testing.T) {
	t.Helper()
	legacy := e.legacy()
	e.write(t, "metadata-cache.json", fmt.Sprintf(`{"entries": {%q: {"title": "Song"}}}`, legacy))
	e.write(t, "duration-cache.json", fmt.Sprintf(`{"entries": {%q: 241.5}}`, legacy))
	e.write(t, "volume-cache.json", fmt.Sprintf(`{"loudnessDbByPath": {%q: -9.1}}`, legacy))
	e.write(t, "playback-weights.json", fmt.Sprintf(`{"queueLevels": {%q: 1.0}, "playlistLevels": {}}`, legacy))
	e.write(t, "playlist.json", fmt.Sprintf(`{"paths": [%q]}`, legacy))
	e.write(t, "user-playlists.json", fmt.Sprintf(`{"playlists": [{"name": "P", "tracks": [{"path": %q}]}]}`, legacy))
}

func TestRunAllFilesAbsent(t *testing.T) {
	env := newTestEnv(t)

	result := NewRunner(env.dataDir, env.prefs).Run()
	if result.ChangedFiles != 0 || result.ChangedEntries != 0 || result.Failed() {
		t.Errorf("unexpected result for absent files: %+v", result)
	}

	// No store file is ever created by migration
	entries, err := os.ReadDir(env.dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected an empty data dir, found %d entries", len(entries))
	}
}

func TestRunMigratesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.writeAllLegacy(t)
	runner := NewRunner(env.dataDir, env.prefs)

	first := runner.Run()
	if first.Failed() {
		t.Fatalf("unexpected failures: %v", first.FailedFiles)
	}
	if first.ChangedFiles != 6 {
		t.Errorf("expected all 6 files changed, got %d", first.ChangedFiles)
	}
	if first.ChangedEntries < 6 {
		t.Errorf("expected at least 6 changed entries, got %d", first.ChangedEntries)
	}

	// Every store now carries the resolved canonical key
	var volume struct {
		Levels map[string]float64 `json:"loudnessDbByPath"`
	}
	if err := json.Unmarshal(env.read(t, "volume-cache.json"), &volume); err != nil {
		t.Fatal(err)
	}
	if _, ok := volume.Levels[env.truth]; !ok {
		t.Errorf("expected canonical key %q in volume cache, got %v", env.truth, volume.Levels)
	}

	snapshots := make(map[string][]byte)
	for _, name := range TrackedFileNames() {
		snapshots[name] = env.read(t, name)
	}

	// Second run is gated by the persisted state and does nothing
	second := runner.Run()
	if second.ChangedFiles != 0 || second.ChangedEntries != 0 || second.Failed() {
		t.Errorf("expected a no-op second run, got %+v", second)
	}

	// Even without the state gate the content is already canonical
	fresh, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer fresh.Close()
	third := NewRunner(env.dataDir, fresh).Run()
	if third.ChangedFiles != 0 || third.Failed() {
		t.Errorf("expected content-idempotent third run, got %+v", third)
	}

	for _, name := range TrackedFileNames() {
		if string(env.read(t, name)) != string(snapshots[name]) {
			t.Errorf("%s changed across idempotent runs", name)
		}
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	env.writeAllLegacy(t)
	env.write(t, "volume-cache.json", `{not json`)

	result := NewRunner(env.dataDir, env.prefs).Run()
	if len(result.FailedFiles) != 1 || result.FailedFiles[0] != "volume-cache.json" {
		t.Fatalf("expected exactly volume-cache.json to fail, got %v", result.FailedFiles)
	}
	if result.ChangedFiles != 5 {
		t.Errorf("expected the other 5 files migrated, got %d", result.ChangedFiles)
	}

	// The malformed file is left untouched
	if string(env.read(t, "volume-cache.json")) != `{not json` {
		t.Error("expected the malformed file to be left as-is")
	}

	// State stays stale after a partial failure, so the next run retries
	if _, ok := StoredState(env.prefs); ok {
		t.Fatal("expected no persisted state after a failed run")
	}

	env.write(t, "volume-cache.json", fmt.Sprintf(`{"loudnessDbByPath": {%q: -9.1}}`, env.legacy()))
	retry := NewRunner(env.dataDir, env.prefs).Run()
	if retry.Failed() {
		t.Fatalf("unexpected failures on retry: %v", retry.FailedFiles)
	}
	if retry.ChangedFiles != 1 {
		t.Errorf("expected only the repaired file to change on retry, got %d", retry.ChangedFiles)
	}
	if _, ok := StoredState(env.prefs); !ok {
		t.Error("expected persisted state after a fully successful run")
	}
}

func TestRunQueueSnapshotScenario(t *testing.T) {
	env := newTestEnv(t)

	// One entry with unverified mixed casing, one legacy entry that
	// resolves to the on-disk spelling; both address the same file
	wrongCase := filepath.Join(filepath.Dir(filepath.Dir(env.truth)), "music", "Song.MP3")
	env.write(t, "playlist.json", fmt.Sprintf(`{"paths": [%q, %q]}`, wrongCase, env.legacy()))

	result := NewRunner(env.dataDir, env.prefs).Run()
	if result.Failed() {
		t.Fatalf("unexpected failures: %v", result.FailedFiles)
	}
	if result.ChangedEntries < 1 {
		t.Errorf("expected changedEntries >= 1, got %d", result.ChangedEntries)
	}

	var snapshot struct {
		Paths []string `json:"paths"`
	}
	if err := json.Unmarshal(env.read(t, "playlist.json"), &snapshot); err != nil {
		t.Fatal(err)
	}
	if len(snapshot.Paths) != 1 || snapshot.Paths[0] != env.truth {
		t.Errorf("expected a single resolved path %q, got %v", env.truth, snapshot.Paths)
	}
}

func TestRunLeavesCanonicalFilesUntouched(t *testing.T) {
	env := newTestEnv(t)
	content := fmt.Sprintf(`{"paths": [%q]}`, env.truth)
	env.write(t, "playlist.json", content)

	before, err := os.Stat(filepath.Join(env.dataDir, "playlist.json"))
	if err != nil {
		t.Fatal(err)
	}

	result := NewRunner(env.dataDir, env.prefs).Run()
	if result.ChangedFiles != 0 || result.Failed() {
		t.Fatalf("unexpected result: %+v", result)
	}

	after, err := os.Stat(filepath.Join(env.dataDir, "playlist.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(env.read(t, "playlist.json")) != content {
		t.Error("expected the file content to stay byte-identical")
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("expected the file to not be rewritten at all")
	}
}
