package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// PrefPrefix namespaces every persisted preference key.
const PrefPrefix = "pipeline_"

// Known preference keys. Values are JSON-encoded.
const (
	PrefSearchTerm    = "searchTerm"
	PrefFilters       = "filters"
	PrefRSMFilter     = "rsmFilter"
	PrefViewMode      = "viewMode"
	PrefSortField     = "sortField"
	PrefSortDirection = "sortDirection"
	PrefShowTags      = "showTags"
	PrefKanbanBatch   = "kanbanBatchSize"
	PrefShowDisabled  = "showDisabledJourneys"
	PrefSavedPresets  = "savedPresets"
)

// View modes persisted under PrefViewMode.
const (
	ViewKanban      = "kanban"
	ViewList        = "list"
	ViewProjections = "projections"
)

// Storage is the KV surface preferences persist through. The redis
// store used in production and the in-memory store for tests both
// satisfy it.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

// MemoryStorage is a map-backed Storage for tests and dev.
type MemoryStorage struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: map[string][]byte{}}
}

func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *MemoryStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), val...)
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Prefs persists per-user view preferences. Loads fall back to the
// given default on missing keys, storage errors, or corrupt JSON, and
// saves are best effort; preference plumbing never breaks the views.
type Prefs struct {
	store Storage
}

func NewPrefs(store Storage) *Prefs { return &Prefs{store: store} }

func (p *Prefs) key(userID, name string) string {
	return fmt.Sprintf("%s%s_%s", PrefPrefix, userID, name)
}

// LoadPref reads one preference, returning def when anything is off.
func LoadPref[T any](p *Prefs, userID, name string, def T) T {
	raw, err := p.store.Get(p.key(userID, name))
	if err != nil || len(raw) == 0 {
		return def
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return def
	}
	return out
}

// SavePref writes one preference. Errors are returned but callers
// routinely ignore them.
func SavePref[T any](p *Prefs, userID, name string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.store.Set(p.key(userID, name), raw, 0)
}

// DeletePref removes one preference.
func (p *Prefs) DeletePref(userID, name string) error {
	return p.store.Delete(p.key(userID, name))
}

// Preset is a named, saved filter state.
type Preset struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"createdAt"`
	Filters   FilterState `json:"filters"`
}

// ListPresets returns the saved presets, newest first.
func (p *Prefs) ListPresets(userID string) []Preset {
	presets := LoadPref(p, userID, PrefSavedPresets, []Preset{})
	sort.SliceStable(presets, func(a, b int) bool {
		return presets[a].CreatedAt.After(presets[b].CreatedAt)
	})
	return presets
}

// SavePreset appends a named filter snapshot. Re-using a name replaces
// the existing preset.
func (p *Prefs) SavePreset(userID, name string, f FilterState) (Preset, error) {
	presets := LoadPref(p, userID, PrefSavedPresets, []Preset{})
	preset := Preset{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Filters:   f,
	}
	kept := presets[:0]
	for _, existing := range presets {
		if existing.Name != name {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, preset)
	if err := SavePref(p, userID, PrefSavedPresets, kept); err != nil {
		return Preset{}, err
	}
	return preset, nil
}

// DeletePreset removes a preset by id. Unknown ids are a no-op.
func (p *Prefs) DeletePreset(userID, id string) error {
	presets := LoadPref(p, userID, PrefSavedPresets, []Preset{})
	kept := presets[:0]
	for _, existing := range presets {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	return SavePref(p, userID, PrefSavedPresets, kept)
}
