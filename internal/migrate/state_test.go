package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mkarren/cadenza/internal/prefs"
)

func TestSignature(t *testing.T) {
	dir := t.TempDir()

	missing := signature(filepath.Join(dir, "absent.json"))
	if missing.Present {
		t.Error("expected a missing file to have a zero signature")
	}

	// A zero-length present file is present, not missing
	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	sig := signature(empty)
	if !sig.Present || sig.Size != 0 {
		t.Errorf("unexpected signature for empty file: %+v", sig)
	}

	full := filepath.Join(dir, "full.json")
	if err := os.WriteFile(full, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	sig = signature(full)
	if !sig.Present || sig.Size != 2 || sig.ModTimeNanos == 0 {
		t.Errorf("unexpected signature for file: %+v", sig)
	}
}

func TestStateEqual(t *testing.T) {
	base := State{
		Version: stateVersion,
		Signatures: map[string]FileSignature{
			"playlist.json": {Present: true, Size: 10, ModTimeNanos: 42},
		},
	}

	same := State{
		Version: stateVersion,
		Signatures: map[string]FileSignature{
			"playlist.json": {Present: true, Size: 10, ModTimeNanos: 42},
		},
	}
	if !base.Equal(same) {
		t.Error("expected identical states to compare equal")
	}

	// A version bump forces re-migration even with identical signatures
	bumped := same
	bumped.Version = stateVersion + 1
	if base.Equal(bumped) {
		t.Error("expected differing versions to compare unequal")
	}

	changed := State{
		Version: stateVersion,
		Signatures: map[string]FileSignature{
			"playlist.json": {Present: true, Size: 11, ModTimeNanos: 42},
		},
	}
	if base.Equal(changed) {
		t.Error("expected differing signatures to compare unequal")
	}

	if base.Equal(State{Version: stateVersion}) {
		t.Error("expected differing signature sets to compare unequal")
	}
}

func TestStoredStateRoundTrip(t *testing.T) {
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, ok := StoredState(store); ok {
		t.Fatal("expected no stored state in a fresh store")
	}

	state := State{
		Version: stateVersion,
		Signatures: map[string]FileSignature{
			"playlist.json": {Present: true, Size: 10, ModTimeNanos: 42},
			"volume-cache.json": {},
		},
	}
	if err := saveState(store, state); err != nil {
		t.Fatalf("saveState failed: %v", err)
	}

	loaded, ok := StoredState(store)
	if !ok {
		t.Fatal("expected stored state after save")
	}
	if !loaded.Equal(state) {
		t.Errorf("loaded state %+v differs from saved %+v", loaded, state)
	}
}
