package pipeline

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"salespipe/models"
)

// KanbanBatchSizes are the selectable kanban page sizes.
var KanbanBatchSizes = []int{25, 50, 75, 100}

const DefaultKanbanBatch = 50

// NormalizeKanbanBatch snaps an arbitrary batch value to the nearest
// allowed size, defaulting when unset.
func NormalizeKanbanBatch(n int) int {
	for _, b := range KanbanBatchSizes {
		if n == b {
			return n
		}
	}
	return DefaultKanbanBatch
}

// Fetcher loads raw journey pages for the view sources.
type Fetcher interface {
	FetchJourneys(ctx context.Context, tree Tree, sortField, sortDir string, limit, offset int) ([]models.Journey, int64, error)
}

// Legacy sort column behind each client sort field.
var sortColumnByField = map[string]string{
	"name":       "Project_Name",
	"value":      "Journey_Value",
	"createdAt":  "CreateDT",
	"updatedAt":  "Action_Date",
	"closeDate":  "Expected_Decision_Date",
	"rsm":        "RSM",
	"stage":      "Journey_Stage",
	"confidence": "Chance_To_Secure_order",
	"priority":   "Priority",
}

// GormFetcher is the database-backed Fetcher.
type GormFetcher struct {
	DB *gorm.DB
}

func orderBy(q *gorm.DB, sortField, sortDir string) *gorm.DB {
	if col, ok := sortColumnByField[sortField]; ok {
		dir := "ASC"
		if sortDir == "desc" {
			dir = "DESC"
		}
		q = q.Order(fmt.Sprintf("%q %s", col, dir))
	}
	return q.Order(`"ID" ASC`)
}

func (g *GormFetcher) FetchJourneys(ctx context.Context, tree Tree, sortField, sortDir string, limit, offset int) ([]models.Journey, int64, error) {
	sqlTree, memTree := SplitTree(tree)
	q := ApplyConditions(g.DB.WithContext(ctx).Model(&models.Journey{}), sqlTree)

	if len(memTree) == 0 {
		var total int64
		if err := q.Count(&total).Error; err != nil {
			return nil, 0, fmt.Errorf("count journeys: %w", err)
		}
		var rows []models.Journey
		if err := orderBy(q, sortField, sortDir).Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
			return nil, 0, fmt.Errorf("fetch journeys: %w", err)
		}
		return rows, total, nil
	}

	// Stage predicates match the classified stage of a free-text label,
	// which SQL cannot reproduce, so the page is cut after filtering the
	// full candidate set through the classifier.
	var rows []models.Journey
	if err := orderBy(q, sortField, sortDir).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("fetch journeys: %w", err)
	}
	rows = FilterRows(rows, memTree)
	total := int64(len(rows))
	if offset < 0 {
		offset = 0
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end], total, nil
}

// Source holds one view's fetched journeys plus a monotonic sequence
// guard: every fetch takes a ticket, and only the ticket matching the
// latest issue may publish its result. A slow early response landing
// after a newer one is discarded instead of clobbering it.
type Source struct {
	mu       sync.Mutex
	issued   uint64
	settled  uint64
	inflight int
	journeys []Journey
	total    int64
}

func (s *Source) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.inflight++
	return s.issued
}

// resolve publishes a fetch result. Returns false when a newer ticket
// already settled, meaning this result was stale and dropped.
func (s *Source) resolve(ticket uint64, js []Journey, total int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if ticket <= s.settled {
		return false
	}
	s.settled = ticket
	s.journeys = js
	s.total = total
	return true
}

// fail releases a ticket without publishing; existing data stays.
func (s *Source) fail(ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if ticket > s.settled {
		s.settled = ticket
	}
}

// Snapshot returns the current journeys, total, and whether a fetch is
// in flight. The slice is shared; callers must not mutate it.
func (s *Source) Snapshot() ([]Journey, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journeys, s.total, s.inflight > 0
}

// Sources owns the three per-view datasets. The baseline is a broad
// unfiltered snapshot used for tag-only search and projections; list
// and kanban fetch per their filter state.
type Sources struct {
	fetcher       Fetcher
	baselineLimit int

	Baseline Source
	List     Source
	Kanban   Source
}

func NewSources(f Fetcher, baselineLimit int) *Sources {
	return &Sources{fetcher: f, baselineLimit: baselineLimit}
}

// SeedBaseline installs a cached snapshot without taking a fetch
// ticket. It only applies while no real fetch has run; live data
// always supersedes the cache.
func (s *Sources) SeedBaseline(js []Journey, total int64) {
	s.Baseline.mu.Lock()
	defer s.Baseline.mu.Unlock()
	if s.Baseline.issued == 0 && s.Baseline.settled == 0 {
		s.Baseline.journeys = js
		s.Baseline.total = total
	}
}

// RefreshBaseline reloads the unfiltered snapshot, disabled journeys
// included so the show-disabled toggle works without a refetch.
func (s *Sources) RefreshBaseline(ctx context.Context) error {
	tree := Tree{} // no conditions, deletedAt left open
	ticket := s.Baseline.begin()
	rows, total, err := s.fetcher.FetchJourneys(ctx, tree, "updatedAt", "desc", s.baselineLimit, 0)
	if err != nil {
		s.Baseline.fail(ticket)
		return err
	}
	s.Baseline.resolve(ticket, AdaptAll(rows), total)
	return nil
}

// RefreshList loads a list page. A tag-only search (only "tag:" terms
// in the box) never hits the database: it filters the baseline through
// the tag index and paginates in memory.
func (s *Sources) RefreshList(ctx context.Context, f FilterState, tags TagIndex, sortField, sortDir string, page, limit int) ([]Journey, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 25
	}

	if text, tagTerms := ParseSearch(f.Search); text == "" && len(tagTerms) > 0 {
		base, _, _ := s.Baseline.Snapshot()
		matched := ApplyFilters(base, f, tags)
		SortJourneys(matched, sortField, sortDir)
		total := int64(len(matched))
		start := (page - 1) * limit
		if start > len(matched) {
			start = len(matched)
		}
		end := start + limit
		if end > len(matched) {
			end = len(matched)
		}
		pageJs := matched[start:end]
		ticket := s.List.begin()
		s.List.resolve(ticket, pageJs, total)
		return pageJs, total, nil
	}

	ticket := s.List.begin()
	rows, total, err := s.fetcher.FetchJourneys(ctx, BuildConditions(f), sortField, sortDir, limit, (page-1)*limit)
	if err != nil {
		s.List.fail(ticket)
		return nil, 0, err
	}
	js := AdaptAll(rows)
	if !s.List.resolve(ticket, js, total) {
		cur, curTotal, _ := s.List.Snapshot()
		return cur, curTotal, nil
	}
	return js, total, nil
}

// RefreshKanban loads one kanban batch. Same tag-only shortcut as the
// list view; otherwise fetches batch rows and buckets happen downstream.
func (s *Sources) RefreshKanban(ctx context.Context, f FilterState, tags TagIndex, sortField, sortDir string, batch int) ([]Journey, int64, error) {
	batch = NormalizeKanbanBatch(batch)

	if text, tagTerms := ParseSearch(f.Search); text == "" && len(tagTerms) > 0 {
		base, _, _ := s.Baseline.Snapshot()
		matched := ApplyFilters(base, f, tags)
		SortJourneys(matched, sortField, sortDir)
		if len(matched) > batch {
			matched = matched[:batch]
		}
		ticket := s.Kanban.begin()
		s.Kanban.resolve(ticket, matched, int64(len(matched)))
		return matched, int64(len(matched)), nil
	}

	ticket := s.Kanban.begin()
	rows, total, err := s.fetcher.FetchJourneys(ctx, BuildConditions(f), sortField, sortDir, batch, 0)
	if err != nil {
		s.Kanban.fail(ticket)
		return nil, 0, err
	}
	js := AdaptAll(rows)
	if !s.Kanban.resolve(ticket, js, total) {
		cur, curTotal, _ := s.Kanban.Snapshot()
		return cur, curTotal, nil
	}
	return js, total, nil
}
