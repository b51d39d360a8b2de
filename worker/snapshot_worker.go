package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"salespipe/pipeline"
)

// SnapshotWorker keeps the baseline journey snapshot warm: it refreshes
// the in-memory source on an interval and mirrors the result into redis
// so a restarted instance can serve tag search and projections before
// its first database fetch completes.
type SnapshotWorker struct {
	Sources  *pipeline.Sources
	Store    pipeline.Storage
	Interval time.Duration
	Logger   *log.Logger
}

const snapshotKey = "pipeline_baseline_snapshot"

func NewSnapshotWorker(sources *pipeline.Sources, store pipeline.Storage, interval time.Duration, logger *log.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		Sources:  sources,
		Store:    store,
		Interval: interval,
		Logger:   logger,
	}
}

func (sw *SnapshotWorker) Start(ctx context.Context) {
	sw.Logger.Println("Snapshot worker started")

	// Seed from the cached copy so the first requests have data while
	// the initial fetch runs.
	sw.seedFromCache()
	sw.refresh(ctx)

	ticker := time.NewTicker(sw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.Logger.Println("Snapshot worker shutting down...")
			return
		case <-ticker.C:
			sw.refresh(ctx)
		}
	}
}

func (sw *SnapshotWorker) refresh(ctx context.Context) {
	if err := sw.Sources.RefreshBaseline(ctx); err != nil {
		sw.Logger.Printf("Error refreshing baseline snapshot: %v", err)
		return
	}
	sw.cacheSnapshot()
}

func (sw *SnapshotWorker) cacheSnapshot() {
	if sw.Store == nil {
		return
	}
	journeys, total, _ := sw.Sources.Baseline.Snapshot()
	payload, err := json.Marshal(struct {
		Journeys []pipeline.Journey `json:"journeys"`
		Total    int64              `json:"total"`
	}{journeys, total})
	if err != nil {
		sw.Logger.Printf("Error encoding baseline snapshot: %v", err)
		return
	}
	if err := sw.Store.Set(snapshotKey, payload, 2*sw.Interval); err != nil {
		sw.Logger.Printf("Error caching baseline snapshot: %v", err)
	}
}

func (sw *SnapshotWorker) seedFromCache() {
	if sw.Store == nil {
		return
	}
	raw, err := sw.Store.Get(snapshotKey)
	if err != nil || len(raw) == 0 {
		return
	}
	var cached struct {
		Journeys []pipeline.Journey `json:"journeys"`
		Total    int64              `json:"total"`
	}
	if err := json.Unmarshal(raw, &cached); err != nil {
		sw.Logger.Printf("Ignoring corrupt cached snapshot: %v", err)
		return
	}
	sw.Sources.SeedBaseline(cached.Journeys, cached.Total)
	sw.Logger.Printf("Seeded baseline snapshot with %d journeys from cache", len(cached.Journeys))
}
