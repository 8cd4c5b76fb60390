package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkarren/cadenza/internal/prefs"
)

// stateVersion is the migration format version. Bumping it forces exactly
// one re-migration even when the tracked files are unchanged on disk.
const stateVersion = 1

// stateKey is the preference record holding the persisted run state.
const stateKey = "library.path-migration.state"

// FileSignature captures presence, size and modification time of one tracked
// file. It only gates idempotent re-runs and is never used to validate
// migrated content. A zero-length present file is Present, not missing.
type FileSignature struct {
	Present      bool  `json:"present"`
	Size         int64 `json:"size,omitempty"`
	ModTimeNanos int64 `json:"mtimeNanos,omitempty"`
}

// State is the persisted migration record.
type State struct {
	Version    int                      `json:"version"`
	Signatures map[string]FileSignature `json:"signatures"`
}

// signature stats one file. Any stat error is treated as missing; the next
// run observes the difference and retries.
func signature(path string) FileSignature {
	info, err := os.Stat(path)
	if err != nil {
		return FileSignature{}
	}
	return FileSignature{
		Present:      true,
		Size:         info.Size(),
		ModTimeNanos: info.ModTime().UnixNano(),
	}
}

// currentState signatures every tracked file under dir.
func currentState(dir string) State {
	signatures := make(map[string]FileSignature, len(trackedFiles))
	for _, tracked := range trackedFiles {
		signatures[tracked.name] = signature(filepath.Join(dir, tracked.name))
	}
	return State{Version: stateVersion, Signatures: signatures}
}

// Equal reports structural equality including the format version.
func (s State) Equal(other State) bool {
	if s.Version != other.Version || len(s.Signatures) != len(other.Signatures) {
		return false
	}
	for name, sig := range s.Signatures {
		if other.Signatures[name] != sig {
			return false
		}
	}
	return true
}

// StoredState reads the persisted migration state. ok is false when no state
// has been stored yet or the stored record cannot be decoded.
func StoredState(store *prefs.Store) (State, bool) {
	data, err := store.Get(stateKey)
	if err != nil || data == nil {
		return State{}, false
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false
	}
	return state, true
}

// saveState persists state under the fixed preference key.
func saveState(store *prefs.Store, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode migration state: %w", err)
	}
	return store.Set(stateKey, data)
}
