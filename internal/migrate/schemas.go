package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mkarren/cadenza/internal/caseresolve"
	"github.com/mkarren/cadenza/internal/pathkey"
)

// document is a decoded JSON object whose fields are kept raw, so fields the
// migrator does not understand round-trip verbatim.
type document map[string]json.RawMessage

func decodeDocument(data []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// migrateMapField migrates the path-keyed map stored under field. A missing
// or null field is nothing to migrate; a field of the wrong shape is a
// decode failure. Entry values stay raw and are never altered.
func migrateMapField(doc document, field string, resolver *caseresolve.Resolver) (int, error) {
	raw, ok := doc[field]
	if !ok || isJSONNull(raw) {
		return 0, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}

	migrated, changed := MigrateMap(entries, resolver)
	if changed == 0 {
		return 0, nil
	}
	encoded, err := json.Marshal(migrated)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", field, err)
	}
	doc[field] = encoded
	return changed, nil
}

func migrateMetadataCache(doc document, resolver *caseresolve.Resolver) (int, error) {
	return migrateMapField(doc, "entries", resolver)
}

func migrateDurationCache(doc document, resolver *caseresolve.Resolver) (int, error) {
	return migrateMapField(doc, "entries", resolver)
}

func migrateVolumeCache(doc document, resolver *caseresolve.Resolver) (int, error) {
	return migrateMapField(doc, "loudnessDbByPath", resolver)
}

// migratePlaybackWeights migrates the queue-level map plus the value map of
// every playlist entry. Playlist IDs are opaque and never rewritten.
func migratePlaybackWeights(doc document, resolver *caseresolve.Resolver) (int, error) {
	changed, err := migrateMapField(doc, "queueLevels", resolver)
	if err != nil {
		return 0, err
	}

	raw, ok := doc["playlistLevels"]
	if !ok || isJSONNull(raw) {
		return changed, nil
	}
	var perPlaylist map[string]json.RawMessage
	if err := json.Unmarshal(raw, &perPlaylist); err != nil {
		return 0, fmt.Errorf("field \"playlistLevels\": %w", err)
	}

	levelsChanged := 0
	for id, rawLevels := range perPlaylist {
		var levels map[string]json.RawMessage
		if err := json.Unmarshal(rawLevels, &levels); err != nil {
			return 0, fmt.Errorf("playlist %q levels: %w", id, err)
		}
		migrated, n := MigrateMap(levels, resolver)
		if n == 0 {
			continue
		}
		encoded, err := json.Marshal(migrated)
		if err != nil {
			return 0, fmt.Errorf("playlist %q levels: %w", id, err)
		}
		perPlaylist[id] = encoded
		levelsChanged += n
	}
	if levelsChanged > 0 {
		encoded, err := json.Marshal(perPlaylist)
		if err != nil {
			return 0, fmt.Errorf("field \"playlistLevels\": %w", err)
		}
		doc["playlistLevels"] = encoded
	}
	return changed + levelsChanged, nil
}

// migrateQueueSnapshot migrates the ordered queue path list.
func migrateQueueSnapshot(doc document, resolver *caseresolve.Resolver) (int, error) {
	raw, ok := doc["paths"]
	if !ok || isJSONNull(raw) {
		return 0, nil
	}
	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil {
		return 0, fmt.Errorf("field \"paths\": %w", err)
	}

	migrated, changed := MigrateList(paths, resolver)
	if changed == 0 {
		return 0, nil
	}
	encoded, err := json.Marshal(migrated)
	if err != nil {
		return 0, fmt.Errorf("field \"paths\": %w", err)
	}
	doc["paths"] = encoded
	return changed, nil
}

// migrateUserPlaylists migrates each track's path field and de-duplicates
// tracks within one playlist by canonical path, keeping the first
// occurrence. Other fields of a playlist or track object are preserved
// verbatim.
func migrateUserPlaylists(doc document, resolver *caseresolve.Resolver) (int, error) {
	raw, ok := doc["playlists"]
	if !ok || isJSONNull(raw) {
		return 0, nil
	}
	var playlists []json.RawMessage
	if err := json.Unmarshal(raw, &playlists); err != nil {
		return 0, fmt.Errorf("field \"playlists\": %w", err)
	}

	total := 0
	for i, rawPlaylist := range playlists {
		var playlist document
		if err := json.Unmarshal(rawPlaylist, &playlist); err != nil {
			return 0, fmt.Errorf("playlist %d: %w", i, err)
		}
		changed, err := migratePlaylistTracks(playlist, resolver)
		if err != nil {
			return 0, fmt.Errorf("playlist %d: %w", i, err)
		}
		if changed == 0 {
			continue
		}
		encoded, err := json.Marshal(playlist)
		if err != nil {
			return 0, fmt.Errorf("playlist %d: %w", i, err)
		}
		playlists[i] = encoded
		total += changed
	}
	if total > 0 {
		encoded, err := json.Marshal(playlists)
		if err != nil {
			return 0, fmt.Errorf("field \"playlists\": %w", err)
		}
		doc["playlists"] = encoded
	}
	return total, nil
}

// keptTrack is one surviving track of a playlist under migration. raw holds
// the original encoding and is reused when the track was not modified.
type keptTrack struct {
	doc      document
	raw      json.RawMessage
	modified bool
	resolved bool
}

func migratePlaylistTracks(playlist document, resolver *caseresolve.Resolver) (int, error) {
	raw, ok := playlist["tracks"]
	if !ok || isJSONNull(raw) {
		return 0, nil
	}
	var tracks []json.RawMessage
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return 0, fmt.Errorf("field \"tracks\": %w", err)
	}

	kept := make([]keptTrack, 0, len(tracks))
	index := make(map[string]int, len(tracks))
	changed := 0
	for i, rawTrack := range tracks {
		var track document
		if err := json.Unmarshal(rawTrack, &track); err != nil {
			return 0, fmt.Errorf("track %d: %w", i, err)
		}
		rawPath, ok := track["path"]
		if !ok {
			return 0, fmt.Errorf("track %d: missing \"path\" field", i)
		}
		var path string
		if err := json.Unmarshal(rawPath, &path); err != nil {
			return 0, fmt.Errorf("track %d path: %w", i, err)
		}

		m := migratePath(path, resolver)
		folded := pathkey.Legacy(m.value)
		if at, dup := index[folded]; dup {
			if m.resolved && !kept[at].resolved {
				setTrackPath(&kept[at], m.value)
				kept[at].resolved = true
			}
			changed++
			continue
		}

		entry := keptTrack{doc: track, raw: rawTrack, resolved: m.resolved}
		if m.value != path {
			setTrackPath(&entry, m.value)
			changed++
		}
		index[folded] = len(kept)
		kept = append(kept, entry)
	}
	if changed == 0 {
		return 0, nil
	}

	encoded := make([]json.RawMessage, len(kept))
	for i, track := range kept {
		if !track.modified {
			encoded[i] = track.raw
			continue
		}
		data, err := json.Marshal(track.doc)
		if err != nil {
			return 0, fmt.Errorf("track %d: %w", i, err)
		}
		encoded[i] = data
	}
	out, err := json.Marshal(encoded)
	if err != nil {
		return 0, fmt.Errorf("field \"tracks\": %w", err)
	}
	playlist["tracks"] = out
	return changed, nil
}

func setTrackPath(track *keptTrack, path string) {
	// Marshal of a plain string cannot fail
	encoded, _ := json.Marshal(path)
	track.doc["path"] = encoded
	track.modified = true
}
