package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipe/models"
)

type stubFetcher struct {
	rows  []models.Journey
	calls int
	err   error
}

func (s *stubFetcher) FetchJourneys(_ context.Context, tree Tree, _, _ string, limit, offset int) ([]models.Journey, int64, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, s.err
	}
	var matched []models.Journey
	for _, r := range s.rows {
		if EvaluateTree(tree, r) {
			matched = append(matched, r)
		}
	}
	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func TestSourceSequenceGuard(t *testing.T) {
	var s Source

	first := s.begin()
	second := s.begin()

	// The newer request lands first.
	assert.True(t, s.resolve(second, []Journey{{ID: "new"}}, 1))

	// The stale response arrives late and must be dropped.
	assert.False(t, s.resolve(first, []Journey{{ID: "old"}}, 1))

	js, total, loading := s.Snapshot()
	require.Len(t, js, 1)
	assert.Equal(t, "new", js[0].ID)
	assert.Equal(t, int64(1), total)
	assert.False(t, loading)
}

func TestSourceFailKeepsLastGoodData(t *testing.T) {
	var s Source
	ok := s.resolve(s.begin(), []Journey{{ID: "a"}}, 1)
	require.True(t, ok)

	s.fail(s.begin())
	js, _, loading := s.Snapshot()
	assert.Len(t, js, 1)
	assert.False(t, loading)
}

func TestRefreshListPaginates(t *testing.T) {
	f := &stubFetcher{rows: conditionRows()}
	src := NewSources(f, 1600)

	js, total, err := src.RefreshList(context.Background(), FilterState{}, nil, "value", "desc", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total) // disabled row excluded
	assert.Len(t, js, 2)
}

func TestTagOnlySearchServedFromBaseline(t *testing.T) {
	f := &stubFetcher{rows: conditionRows()}
	src := NewSources(f, 1600)
	require.NoError(t, src.RefreshBaseline(context.Background()))
	baselineCalls := f.calls

	tags := TagIndex{"1": {"METAL"}, "4": {"METAL", "CONVEYOR"}}
	js, total, err := src.RefreshList(context.Background(), FilterState{Search: "tag:metal"}, tags, "value", "asc", 1, 25)
	require.NoError(t, err)
	assert.Equal(t, baselineCalls, f.calls, "tag-only search must not hit the fetcher")
	assert.Equal(t, int64(2), total)
	require.Len(t, js, 2)
	assert.Equal(t, "1", js[0].ID)
	assert.Equal(t, "4", js[1].ID)
}

func TestMixedSearchHitsFetcher(t *testing.T) {
	f := &stubFetcher{rows: conditionRows()}
	src := NewSources(f, 1600)

	_, _, err := src.RefreshKanban(context.Background(), FilterState{Search: "tag:metal frame"}, TagIndex{}, "value", "asc", 50)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
}

func TestNormalizeKanbanBatch(t *testing.T) {
	assert.Equal(t, 25, NormalizeKanbanBatch(25))
	assert.Equal(t, 100, NormalizeKanbanBatch(100))
	assert.Equal(t, DefaultKanbanBatch, NormalizeKanbanBatch(0))
	assert.Equal(t, DefaultKanbanBatch, NormalizeKanbanBatch(33))
}

func TestRefreshKanbanError(t *testing.T) {
	f := &stubFetcher{err: assert.AnError}
	src := NewSources(f, 1600)
	_, _, err := src.RefreshKanban(context.Background(), FilterState{}, nil, "value", "asc", 50)
	assert.Error(t, err)
	_, _, loading := src.Kanban.Snapshot()
	assert.False(t, loading)
}
