// Package caches gives the player typed access to its persisted JSON stores.
// Readers probe the canonical key first and fall back to the legacy
// lower-cased key, so cache hits survive the key-scheme change even before
// migration has rewritten a file.
package caches

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mkarren/cadenza/internal/pathkey"
	"github.com/mkarren/cadenza/internal/util"
)

// Store file names under the player's data directory.
const (
	MetadataFile  = "metadata-cache.json"
	DurationFile  = "duration-cache.json"
	VolumeFile    = "volume-cache.json"
	WeightsFile   = "playback-weights.json"
	SnapshotFile  = "playlist.json"
	PlaylistsFile = "user-playlists.json"
)

// TrackMetadata is one metadata cache entry.
type TrackMetadata struct {
	Format      string `json:"format,omitempty"`
	Artist      string `json:"artist,omitempty"`
	AlbumArtist string `json:"albumArtist,omitempty"`
	Album       string `json:"album,omitempty"`
	Title       string `json:"title,omitempty"`
	Year        int    `json:"year,omitempty"`
	Track       int    `json:"track,omitempty"`
	Disc        int    `json:"disc,omitempty"`
}

// MetadataCache maps canonical paths to tag metadata.
type MetadataCache struct {
	Entries map[string]TrackMetadata `json:"entries"`
}

// DurationCache maps canonical paths to track length in seconds.
type DurationCache struct {
	Entries map[string]float64 `json:"entries"`
}

// VolumeCache maps canonical paths to measured loudness in dB.
type VolumeCache struct {
	LoudnessDbByPath map[string]float64 `json:"loudnessDbByPath"`
}

// PlaybackWeights holds the per-scope playback weight overrides.
type PlaybackWeights struct {
	QueueLevels    map[string]float64            `json:"queueLevels"`
	PlaylistLevels map[string]map[string]float64 `json:"playlistLevels"`
}

// QueueSnapshot is the persisted play queue.
type QueueSnapshot struct {
	Paths []string `json:"paths"`
}

// PlaylistTrack is one entry of a user playlist.
type PlaylistTrack struct {
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// Playlist is one user playlist.
type Playlist struct {
	Name   string          `json:"name"`
	Tracks []PlaylistTrack `json:"tracks"`
}

// UserPlaylists is the persisted playlist collection.
type UserPlaylists struct {
	Playlists []Playlist `json:"playlists"`
}

// Lookup probes a path-keyed map with the canonical key first and the legacy
// lower-cased key second.
func Lookup[V any](entries map[string]V, path string) (V, bool) {
	for _, key := range pathkey.LookupKeys(path) {
		if value, ok := entries[key]; ok {
			return value, true
		}
	}
	var zero V
	return zero, false
}

// load decodes the JSON store at path into out. An absent file leaves out at
// its zero value.
func load(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), util.ErrCorrupt)
	}
	return nil
}

// save writes the JSON store atomically.
func save(path string, in interface{}) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return util.WriteFileAtomic(path, data, 0o644)
}

// LoadMetadata reads the metadata cache under dir.
func LoadMetadata(dir string) (*MetadataCache, error) {
	cache := &MetadataCache{}
	if err := load(filepath.Join(dir, MetadataFile), cache); err != nil {
		return nil, err
	}
	if cache.Entries == nil {
		cache.Entries = make(map[string]TrackMetadata)
	}
	return cache, nil
}

// Get returns the cached metadata for a path, probing the legacy key as a
// fallback.
func (c *MetadataCache) Get(path string) (TrackMetadata, bool) {
	return Lookup(c.Entries, path)
}

// Put stores metadata under the path's canonical key.
func (c *MetadataCache) Put(path string, meta TrackMetadata) {
	c.Entries[pathkey.Canonical(path)] = meta
}

// Save writes the metadata cache under dir.
func (c *MetadataCache) Save(dir string) error {
	return save(filepath.Join(dir, MetadataFile), c)
}

// LoadDurations reads the duration cache under dir.
func LoadDurations(dir string) (*DurationCache, error) {
	cache := &DurationCache{}
	if err := load(filepath.Join(dir, DurationFile), cache); err != nil {
		return nil, err
	}
	if cache.Entries == nil {
		cache.Entries = make(map[string]float64)
	}
	return cache, nil
}

// Get returns the cached duration for a path in seconds.
func (c *DurationCache) Get(path string) (float64, bool) {
	return Lookup(c.Entries, path)
}

// LoadVolume reads the loudness cache under dir.
func LoadVolume(dir string) (*VolumeCache, error) {
	cache := &VolumeCache{}
	if err := load(filepath.Join(dir, VolumeFile), cache); err != nil {
		return nil, err
	}
	if cache.LoudnessDbByPath == nil {
		cache.LoudnessDbByPath = make(map[string]float64)
	}
	return cache, nil
}

// Get returns the cached loudness for a path in dB.
func (c *VolumeCache) Get(path string) (float64, bool) {
	return Lookup(c.LoudnessDbByPath, path)
}

// LoadWeights reads the playback weight overrides under dir.
func LoadWeights(dir string) (*PlaybackWeights, error) {
	weights := &PlaybackWeights{}
	if err := load(filepath.Join(dir, WeightsFile), weights); err != nil {
		return nil, err
	}
	return weights, nil
}

// LoadSnapshot reads the persisted play queue under dir.
func LoadSnapshot(dir string) (*QueueSnapshot, error) {
	snapshot := &QueueSnapshot{}
	if err := load(filepath.Join(dir, SnapshotFile), snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// LoadPlaylists reads the user playlists under dir.
func LoadPlaylists(dir string) (*UserPlaylists, error) {
	playlists := &UserPlaylists{}
	if err := load(filepath.Join(dir, PlaylistsFile), playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}
