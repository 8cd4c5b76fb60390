// Package scan walks the music library and fills the metadata cache from
// on-disk tags.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/schollz/progressbar/v3"

	"github.com/mkarren/cadenza/internal/caches"
	"github.com/mkarren/cadenza/internal/util"
)

// audioExtensions are the file types the player indexes.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".m4b":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".aiff": true,
}

// Stats summarizes one scan pass.
type Stats struct {
	FilesSeen   int
	FilesTagged int
	Errors      int
	Duration    time.Duration
}

// Scanner fills the metadata cache for one library directory.
type Scanner struct {
	libraryDir   string
	dataDir      string
	showProgress bool
}

// New creates a Scanner. Progress is rendered on stderr when showProgress is
// set.
func New(libraryDir, dataDir string, showProgress bool) *Scanner {
	return &Scanner{libraryDir: libraryDir, dataDir: dataDir, showProgress: showProgress}
}

// Run walks the library, reads tags from files not yet cached under their
// canonical or legacy key, and saves the metadata cache once at the end.
func (s *Scanner) Run() (*Stats, error) {
	start := time.Now()

	cache, err := caches.LoadMetadata(s.dataDir)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if s.showProgress {
		barWidth := 40
		if util.TerminalWidth() < 60 {
			barWidth = 20
		}
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(barWidth),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	stats := &Stats{}
	added := 0
	walkErr := filepath.WalkDir(s.libraryDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("Skipping %s: %v", path, err)
			stats.Errors++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.libraryDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		stats.FilesSeen++
		if bar != nil {
			bar.Add(1)
		}
		if _, cached := cache.Get(path); cached {
			return nil
		}

		meta, err := readTags(path)
		if err != nil {
			util.DebugLog("No tags for %s: %v", path, err)
			stats.Errors++
			return nil
		}
		cache.Put(path, meta)
		stats.FilesTagged++
		added++
		return nil
	})
	if bar != nil {
		bar.Finish()
	}
	if walkErr != nil {
		return nil, fmt.Errorf("scan failed: %w", walkErr)
	}

	if added > 0 {
		if err := cache.Save(s.dataDir); err != nil {
			return nil, err
		}
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

// readTags extracts tag metadata from one audio file.
func readTags(path string) (caches.TrackMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return caches.TrackMetadata{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return caches.TrackMetadata{}, fmt.Errorf("failed to read tags: %w", err)
	}

	meta := caches.TrackMetadata{
		Format:      string(m.Format()),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
		Title:       m.Title(),
		Year:        m.Year(),
	}
	meta.Track, _ = m.Track()
	meta.Disc, _ = m.Disc()
	return meta, nil
}
