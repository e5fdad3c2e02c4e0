// Package properties edits the metadata of one blob before it is saved.
package properties

import (
	"sort"
	"strings"

	"evidence-explorer/internal/model"
)

// Draft is the pending metadata edit of one file. Keys added by the user are
// lower-cased; keys loaded from the backend keep their stored case. Keys are
// compared case-insensitively, so a draft never holds two spellings of one key.
type Draft struct {
	path     string
	checksum string
	pairs    []model.MetadataPair
	dirty    bool
}

func NewDraft(entry model.RemoteEntry) *Draft {
	keys := make([]string, 0, len(entry.Metadata))
	for key := range entry.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]model.MetadataPair, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, model.MetadataPair{Key: key, Value: entry.Metadata[key]})
	}

	return &Draft{path: entry.Name, checksum: entry.Checksum, pairs: pairs}
}

func (d *Draft) Path() string {
	return d.path
}

// Add appends a new key. Empty and duplicate keys are rejected.
func (d *Draft) Add(key string, value string) error {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return model.ErrEmptyMetadataKey
	}
	if d.index(normalized) >= 0 {
		return model.ErrDuplicateMetadataKey
	}

	d.pairs = append(d.pairs, model.MetadataPair{Key: normalized, Value: value})
	d.dirty = true
	return nil
}

// Set changes the value of an existing key.
func (d *Draft) Set(key string, value string) error {
	i := d.index(key)
	if i < 0 {
		return model.ErrInvalidInput
	}

	if d.pairs[i].Value != value {
		d.pairs[i].Value = value
		d.dirty = true
	}
	return nil
}

func (d *Draft) Remove(key string) bool {
	i := d.index(key)
	if i < 0 {
		return false
	}

	d.pairs = append(d.pairs[:i], d.pairs[i+1:]...)
	d.dirty = true
	return true
}

// Metadata is the map submitted to the backend.
func (d *Draft) Metadata() map[string]string {
	out := make(map[string]string, len(d.pairs))
	for _, pair := range d.pairs {
		out[pair.Key] = pair.Value
	}
	return out
}

func (d *Draft) Dirty() bool {
	return d.dirty
}

// MarkSaved clears the dirty flag after a successful save.
func (d *Draft) MarkSaved() {
	d.dirty = false
}

func (d *Draft) View() model.PropertiesData {
	pairs := make([]model.MetadataPair, len(d.pairs))
	copy(pairs, d.pairs)

	return model.PropertiesData{
		Path:     d.path,
		Checksum: d.checksum,
		Metadata: pairs,
		Dirty:    d.dirty,
	}
}

func (d *Draft) index(key string) int {
	key = strings.TrimSpace(key)
	for i, pair := range d.pairs {
		if strings.EqualFold(pair.Key, key) {
			return i
		}
	}
	return -1
}

// ValidatePairs checks a full replacement submitted at once.
func ValidatePairs(pairs []model.MetadataPair) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	seen := make(map[string]bool, len(pairs))

	for _, pair := range pairs {
		key := strings.TrimSpace(pair.Key)
		if key == "" {
			return nil, model.ErrEmptyMetadataKey
		}

		folded := strings.ToLower(key)
		if seen[folded] {
			return nil, model.ErrDuplicateMetadataKey
		}
		seen[folded] = true
		out[key] = pair.Value
	}

	return out, nil
}
