package process

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"promo-tracker/internal/cache"
	"promo-tracker/internal/engine"
	"promo-tracker/internal/feed"
	"promo-tracker/internal/ingest"
	"promo-tracker/internal/observability"
	"promo-tracker/internal/storage"
)

// Store is the slice of the storage layer a processing run needs.
type Store interface {
	AppendEntries(ctx context.Context, entries []storage.Entry) error
	LoadRunState(ctx context.Context) (storage.RunState, error)
	SaveRunState(ctx context.Context, st storage.RunState) error
}

// RunResult summarizes one completed processing run.
type RunResult struct {
	RunID    uuid.UUID `json:"run_id"`
	Date     string    `json:"date"`
	Entries  int       `json:"entries_created"`
	Started  int       `json:"started"`
	Updated  int       `json:"updated"`
	Ended    int       `json:"ended"`
	Skipped  int       `json:"rows_skipped"`
	Snapshot string    `json:"snapshot"`
}

// Processor runs the whole ingestion step: pick the latest two drops,
// normalize, diff, resolve banner actions, persist, record run state.
// It holds no mutable state of its own between runs; callers serialize
// overlapping invocations.
type Processor struct {
	feed   *feed.Folder
	store  Store
	latest cache.Latest[*engine.Snapshot]
}

func New(f *feed.Folder, store Store) *Processor {
	return &Processor{feed: f, store: store}
}

// Run processes the newest snapshot pair against the reference instant
// now. The previous drop may be absent (first run); then every current
// campaign starts.
func (p *Processor) Run(ctx context.Context, now time.Time) (RunResult, error) {
	res, err := p.run(ctx, now)
	if err != nil {
		observability.RunsTotal.WithLabelValues("error").Inc()
		return res, err
	}
	observability.RunsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (p *Processor) run(ctx context.Context, now time.Time) (RunResult, error) {
	prevDrop, currDrop, err := p.feed.LatestPair()
	if err != nil {
		return RunResult{}, err
	}

	current, skippedCurr, err := p.loadSnapshot(*currDrop)
	if err != nil {
		return RunResult{}, err
	}
	p.latest.Store(current)

	var previous *engine.Snapshot
	skipped := skippedCurr
	if prevDrop != nil {
		var skippedPrev int
		previous, skippedPrev, err = p.loadSnapshot(*prevDrop)
		if err != nil {
			return RunResult{}, err
		}
		skipped += skippedPrev
	}

	events, err := engine.Diff(previous, current)
	if err != nil {
		return RunResult{}, err
	}

	runID := uuid.New()
	date := now.UTC().Format("2006-01-02")
	res := RunResult{RunID: runID, Date: date, Skipped: skipped, Snapshot: currDrop.Name}

	entries := make([]storage.Entry, 0, len(events))
	for _, ev := range events {
		action, _ := engine.ResolveBanner(ev, now)
		entries = append(entries, storage.FromEvent(runID, date, ev, action))

		observability.ChangeEvents.WithLabelValues(string(ev.Type)).Inc()
		if action != "" {
			observability.BannerActions.WithLabelValues(string(action)).Inc()
		}
		switch ev.Type {
		case engine.EventCampaignStart:
			res.Started++
		case engine.EventCampaignUpdate:
			res.Updated++
		case engine.EventCampaignEnd:
			res.Ended++
		}
	}
	res.Entries = len(entries)

	if err := p.store.AppendEntries(ctx, entries); err != nil {
		return RunResult{}, err
	}

	processed := now.UTC()
	if err := p.store.SaveRunState(ctx, storage.RunState{
		LastProcessed: &processed,
		LastSnapshot:  currDrop.Name,
	}); err != nil {
		return RunResult{}, err
	}

	log.Info().
		Str("run_id", runID.String()).
		Str("snapshot", currDrop.Name).
		Int("started", res.Started).
		Int("updated", res.Updated).
		Int("ended", res.Ended).
		Int("rows_skipped", skipped).
		Msg("processed snapshot pair")
	return res, nil
}

// CurrentSnapshot returns the most recent parsed snapshot, loading it
// from the drop folder when no run has populated the cache yet.
func (p *Processor) CurrentSnapshot(ctx context.Context) (*engine.Snapshot, error) {
	if snap, ok := p.latest.Load(); ok {
		return snap, nil
	}
	_, currDrop, err := p.feed.LatestPair()
	if err != nil {
		return nil, err
	}
	snap, _, err := p.loadSnapshot(*currDrop)
	if err != nil {
		return nil, err
	}
	p.latest.Store(snap)
	return snap, nil
}

// Pending reports whether the newest drop has not been processed yet.
func (p *Processor) Pending(ctx context.Context) (bool, error) {
	_, currDrop, err := p.feed.LatestPair()
	if err != nil {
		return false, err
	}
	st, err := p.store.LoadRunState(ctx)
	if err != nil {
		return false, err
	}
	return st.LastSnapshot != currDrop.Name, nil
}

func (p *Processor) loadSnapshot(d feed.Drop) (*engine.Snapshot, int, error) {
	file, err := p.feed.Open(d)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	records, stats, err := ingest.ReadSnapshot(file)
	if err != nil {
		return nil, stats.Skipped, fmt.Errorf("parse snapshot %s: %w", d.Name, err)
	}
	observability.RowsSkipped.Add(float64(stats.Skipped))

	snap, err := engine.NewSnapshot(d.Date, records)
	if err != nil {
		return nil, stats.Skipped, fmt.Errorf("snapshot %s: %w", d.Name, err)
	}
	observability.IdentityCollisions.Add(float64(snap.Collisions))
	return snap, stats.Skipped, nil
}
