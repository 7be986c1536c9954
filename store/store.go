package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"showtimes-console/model"
)

// Load reads the cache document at path. Any problem (empty path, missing
// file, unreadable or malformed content) is reported as absent.
func Load(path string) (model.CacheDocument, bool) {
	if path == "" {
		return model.CacheDocument{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CacheDocument{}, false
	}
	var doc model.CacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.CacheDocument{}, false
	}
	return doc, true
}

// LoadFresh returns the cached entries only when the document was written for date.
func LoadFresh(path string, date string) ([]model.DatasetEntry, bool) {
	doc, ok := Load(path)
	if !ok || !doc.FreshFor(date) {
		return nil, false
	}
	if doc.Entries == nil {
		return []model.DatasetEntry{}, true
	}
	return doc.Entries, true
}

// Save overwrites the cache document at path. An empty path disables caching.
func Save(path string, date string, entries []model.DatasetEntry) error {
	if path == "" {
		return nil
	}
	if entries == nil {
		entries = []model.DatasetEntry{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(model.CacheDocument{Date: date, Entries: entries}); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
