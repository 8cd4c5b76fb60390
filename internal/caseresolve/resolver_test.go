package caseresolve

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// makeTree creates dir components and a file under the test temp dir and
// returns the file's true path.
func makeTree(t *testing.T, root string, dirs []string, file string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, dirs...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveRecoversCasing(t *testing.T) {
	root := t.TempDir()
	truth := makeTree(t, root, []string{"Music", "Rock"}, "Song.mp3")

	// The whole path lower-cased, including the temp prefix
	got := New().Resolve(strings.ToLower(truth))
	if got != truth {
		t.Errorf("Resolve(%q) = %q, expected %q", strings.ToLower(truth), got, truth)
	}
}

func TestResolveExactMatchKept(t *testing.T) {
	root := t.TempDir()
	truth := makeTree(t, root, []string{"Music"}, "Song.mp3")

	if got := New().Resolve(truth); got != truth {
		t.Errorf("Resolve(%q) = %q, expected the path unchanged", truth, got)
	}
}

func TestResolveUnresolvableRemainder(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "vanished", "song.mp3")

	// The remainder past the last existing directory is appended verbatim
	if got := New().Resolve(missing); got != missing {
		t.Errorf("Resolve(%q) = %q, expected the path unchanged", missing, got)
	}
}

func TestResolveRelativeUnchanged(t *testing.T) {
	if got := New().Resolve("relative/song.mp3"); got != "relative/song.mp3" {
		t.Errorf("Resolve on a relative path = %q, expected it unchanged", got)
	}
}

func TestResolveWidthInsensitive(t *testing.T) {
	root := t.TempDir()
	// Fullwidth "ＡＢＣ" on disk, probed with the halfwidth spelling
	truth := makeTree(t, root, []string{"ＡＢＣ"}, "Song.mp3")

	probe := filepath.Join(root, "abc", "song.mp3")
	if got := New().Resolve(probe); got != truth {
		t.Errorf("Resolve(%q) = %q, expected %q", probe, got, truth)
	}
}

func TestResolveCachesListings(t *testing.T) {
	root := t.TempDir()
	truth := makeTree(t, root, []string{"Music"}, "Song.mp3")
	probe := strings.ToLower(truth)

	r := New()
	if got := r.Resolve(probe); got != truth {
		t.Fatalf("first Resolve = %q, expected %q", got, truth)
	}

	// Remove the tree; the cached listings must still answer
	if err := os.RemoveAll(filepath.Join(root, "Music")); err != nil {
		t.Fatal(err)
	}
	if got := r.Resolve(probe); got != truth {
		t.Errorf("cached Resolve = %q, expected %q", got, truth)
	}

	// A fresh resolver sees the current filesystem instead: the temp prefix
	// still resolves but the removed components stay as probed
	expected := filepath.Join(root, "music", "song.mp3")
	if got := New().Resolve(probe); got != expected {
		t.Errorf("fresh Resolve = %q, expected %q", got, expected)
	}
}
