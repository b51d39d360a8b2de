package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefRoundTrip(t *testing.T) {
	p := NewPrefs(NewMemoryStorage())

	require.NoError(t, SavePref(p, "u1", PrefViewMode, ViewKanban))
	assert.Equal(t, ViewKanban, LoadPref(p, "u1", PrefViewMode, ViewList))

	f := FilterState{Search: "metalsa", Priority: "High", VisibleStages: []int{4, 5}}
	require.NoError(t, SavePref(p, "u1", PrefFilters, f))
	assert.Equal(t, f, LoadPref(p, "u1", PrefFilters, FilterState{}))

	// Per-user isolation.
	assert.Equal(t, ViewList, LoadPref(p, "u2", PrefViewMode, ViewList))
}

func TestPrefDefaultsOnMissingAndCorrupt(t *testing.T) {
	store := NewMemoryStorage()
	p := NewPrefs(store)

	assert.Equal(t, 50, LoadPref(p, "u1", PrefKanbanBatch, 50))

	require.NoError(t, store.Set("pipeline_u1_kanbanBatchSize", []byte("{not json"), 0))
	assert.Equal(t, 50, LoadPref(p, "u1", PrefKanbanBatch, 50))
}

func TestPresetLifecycle(t *testing.T) {
	p := NewPrefs(NewMemoryStorage())

	_, err := p.SavePreset("u1", "Hot deals", FilterState{Priority: "High"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	region, err := p.SavePreset("u1", "My region", FilterState{RSM: "JD"})
	require.NoError(t, err)

	presets := p.ListPresets("u1")
	require.Len(t, presets, 2)
	assert.Equal(t, "My region", presets[0].Name, "newest first")

	// Same name replaces.
	replaced, err := p.SavePreset("u1", "Hot deals", FilterState{Priority: "High", MinValue: "1000"})
	require.NoError(t, err)
	presets = p.ListPresets("u1")
	require.Len(t, presets, 2)
	assert.Equal(t, "1000", presets[0].Filters.MinValue)

	require.NoError(t, p.DeletePreset("u1", region.ID))
	remaining := p.ListPresets("u1")
	require.Len(t, remaining, 1)
	assert.Equal(t, replaced.ID, remaining[0].ID)
}
