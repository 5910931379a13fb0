package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"promo-tracker/internal/engine"
	"promo-tracker/internal/feed"
	"promo-tracker/internal/process"
	"promo-tracker/internal/storage"
)

// Store is the read side of the changelog the handlers need.
type Store interface {
	EntriesSince(ctx context.Context, minDate string) ([]storage.Entry, error)
	EntriesByDate(ctx context.Context, date string) ([]storage.Entry, error)
	Dates(ctx context.Context) ([]string, error)
}

// Runner triggers processing runs and serves the latest snapshot.
type Runner interface {
	Run(ctx context.Context, now time.Time) (process.RunResult, error)
	CurrentSnapshot(ctx context.Context) (*engine.Snapshot, error)
}

type Handler struct {
	Store Store
	Proc  Runner
	Now   func() time.Time
}

func NewHandler(store Store, proc Runner) *Handler {
	return &Handler{Store: store, Proc: proc, Now: func() time.Time { return time.Now().UTC() }}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type changelogSummary struct {
	LatestDate string         `json:"latest_date,omitempty"`
	Stats      map[string]int `json:"stats"`
	PrevStats  map[string]int `json:"prev_stats"`
}

type changelogResponse struct {
	Summary    changelogSummary           `json:"summary"`
	TimeSeries map[string]map[string]int  `json:"time_series"`
	Providers  map[string]map[string]int  `json:"providers_series"`
	Grouped    map[string][]storage.Entry `json:"grouped"`
	Dates      []string                   `json:"dates"`
	DetailDate string                     `json:"detail_date,omitempty"`
}

// Changelog serves the two-week summary, the event time series, and the
// per-date detail grouped by event type (?date=YYYY-MM-DD, defaulting
// to the latest processed date).
func (h *Handler) Changelog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dates, err := h.Store.Dates(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load changelog dates")
		writeError(w, http.StatusInternalServerError, "failed to load changelog")
		return
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	twoWeeksAgo := h.Now().AddDate(0, 0, -14).Format("2006-01-02")
	recent, err := h.Store.EntriesSince(ctx, twoWeeksAgo)
	if err != nil {
		log.Error().Err(err).Msg("load recent changelog entries")
		writeError(w, http.StatusInternalServerError, "failed to load changelog")
		return
	}

	resp := changelogResponse{
		Summary: changelogSummary{
			Stats:     emptyEventStats(),
			PrevStats: emptyEventStats(),
		},
		TimeSeries: eventSeries(recent),
		Providers:  providerSeries(recent),
		Grouped: map[string][]storage.Entry{
			string(engine.EventCampaignStart):  {},
			string(engine.EventCampaignUpdate): {},
			string(engine.EventCampaignEnd):    {},
		},
		Dates: dates,
	}

	if len(dates) > 0 {
		resp.Summary.LatestDate = dates[0]
		fillStats(ctx, h.Store, dates[0], resp.Summary.Stats)
	}
	if len(dates) > 1 {
		fillStats(ctx, h.Store, dates[1], resp.Summary.PrevStats)
	}

	detailDate := r.URL.Query().Get("date")
	if detailDate == "" && len(dates) > 0 {
		detailDate = dates[0]
	}
	if detailDate != "" {
		resp.DetailDate = detailDate
		detail, err := h.Store.EntriesByDate(ctx, detailDate)
		if err != nil {
			log.Error().Err(err).Str("date", detailDate).Msg("load changelog detail")
			writeError(w, http.StatusInternalServerError, "failed to load changelog")
			return
		}
		for _, e := range detail {
			resp.Grouped[e.EventType] = append(resp.Grouped[e.EventType], e)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type bannersResponse struct {
	Summary     map[string]int             `json:"summary"`
	TimeSeries  map[string]map[string]int  `json:"time_series"`
	Grouped     map[string][]storage.Entry `json:"grouped"`
	Dates       []string                   `json:"dates"`
	CurrentDate string                     `json:"current_date,omitempty"`
}

// Banners serves the changelog entries of one date that carry a banner
// action, grouped by action.
func (h *Handler) Banners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dates, err := h.Store.Dates(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load changelog dates")
		writeError(w, http.StatusInternalServerError, "failed to load banners")
		return
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	target := r.URL.Query().Get("date")
	if target == "" && len(dates) > 0 {
		target = dates[0]
	}

	twoWeeksAgo := h.Now().AddDate(0, 0, -14).Format("2006-01-02")
	recent, err := h.Store.EntriesSince(ctx, twoWeeksAgo)
	if err != nil {
		log.Error().Err(err).Msg("load recent banner entries")
		writeError(w, http.StatusInternalServerError, "failed to load banners")
		return
	}

	grouped := map[string][]storage.Entry{
		string(engine.BannerStart):  {},
		string(engine.BannerUpdate): {},
		string(engine.BannerEnd):    {},
	}
	if target != "" {
		entries, err := h.Store.EntriesByDate(ctx, target)
		if err != nil {
			log.Error().Err(err).Str("date", target).Msg("load banner entries")
			writeError(w, http.StatusInternalServerError, "failed to load banners")
			return
		}
		for _, e := range entries {
			if e.BannerAction == "" {
				continue
			}
			grouped[e.BannerAction] = append(grouped[e.BannerAction], e)
		}
	}

	writeJSON(w, http.StatusOK, bannersResponse{
		Summary: map[string]int{
			"start":  len(grouped[string(engine.BannerStart)]),
			"update": len(grouped[string(engine.BannerUpdate)]),
			"end":    len(grouped[string(engine.BannerEnd)]),
		},
		TimeSeries:  bannerSeries(recent),
		Grouped:     grouped,
		Dates:       dates,
		CurrentDate: target,
	})
}

type calendarResponse struct {
	Summary     map[engine.Status]int            `json:"summary"`
	PrevSummary map[engine.Status]int            `json:"prev_summary"`
	Providers   map[engine.Status]int            `json:"providers"`
	Grouped     map[engine.Status][]campaignView `json:"grouped"`
	TimeSeries  map[string]map[engine.Status]int `json:"time_series"`
	Filters     calendarFilters                  `json:"filters"`
}

type calendarFilters struct {
	Cities        []string `json:"cities"`
	DiscountTypes []string `json:"discount_types"`
}

// Calendar classifies the latest snapshot against today, applies the
// optional provider/city/discount_type/status filters, and serves
// per-status groups plus a -7/+14 day status time series.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.Proc.CurrentSnapshot(ctx)
	if err != nil {
		if errors.Is(err, feed.ErrNoSnapshots) || errors.Is(err, engine.ErrEmptySnapshot) {
			writeError(w, http.StatusNotFound, "no snapshot data available")
			return
		}
		log.Error().Err(err).Msg("load current snapshot")
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	today := h.Now()
	classified := engine.ClassifySnapshot(snap, today)
	yesterday := engine.ClassifySnapshot(snap, today.AddDate(0, 0, -1))

	q := r.URL.Query()
	filter := recordFilter{
		provider:     q.Get("provider"),
		city:         q.Get("city"),
		discountType: q.Get("discount_type"),
		status:       engine.Status(q.Get("status")),
	}
	filtered := filter.apply(classified)
	prevFiltered := filter.apply(yesterday)

	summary := engine.Summarize(filtered)
	prevSummary := engine.Summarize(prevFiltered)

	grouped := map[engine.Status][]campaignView{
		engine.StatusLive:      {},
		engine.StatusScheduled: {},
		engine.StatusFinished:  {},
	}
	for _, cr := range filtered {
		grouped[cr.Status] = append(grouped[cr.Status], newCampaignView(cr))
	}

	writeJSON(w, http.StatusOK, calendarResponse{
		Summary:     summary.Counts,
		PrevSummary: prevSummary.Counts,
		Providers:   summary.Providers,
		Grouped:     grouped,
		TimeSeries:  engine.StatusTimeSeries(snap, today.AddDate(0, 0, -7), today.AddDate(0, 0, 14)),
		Filters: calendarFilters{
			Cities:        distinct(classified, func(r engine.Record) string { return r.City }),
			DiscountTypes: distinct(classified, func(r engine.Record) string { return r.DiscountType }),
		},
	})
}

// Process triggers a processing run over the latest snapshot pair.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	res, err := h.Proc.Run(r.Context(), h.Now())
	if err != nil {
		if errors.Is(err, feed.ErrNoSnapshots) {
			writeError(w, http.StatusBadRequest, "no snapshot files found")
			return
		}
		if errors.Is(err, engine.ErrEmptySnapshot) {
			writeError(w, http.StatusUnprocessableEntity, "snapshot contains no valid records")
			return
		}
		log.Error().Err(err).Msg("processing run failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		process.RunResult
	}{true, res})
}

type recordFilter struct {
	provider     string
	city         string
	discountType string
	status       engine.Status
}

func (f recordFilter) apply(records []engine.ClassifiedRecord) []engine.ClassifiedRecord {
	out := make([]engine.ClassifiedRecord, 0, len(records))
	for _, cr := range records {
		if f.provider != "" &&
			!strings.Contains(strings.ToLower(cr.Record.ProviderName), strings.ToLower(f.provider)) {
			continue
		}
		if f.city != "" && !strings.EqualFold(cr.Record.City, f.city) {
			continue
		}
		if f.discountType != "" && cr.Record.DiscountType != f.discountType {
			continue
		}
		if f.status != "" && cr.Status != f.status {
			continue
		}
		out = append(out, cr)
	}
	return out
}

func fillStats(ctx context.Context, store Store, date string, stats map[string]int) {
	entries, err := store.EntriesByDate(ctx, date)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("load entries for stats")
		return
	}
	for _, e := range entries {
		if _, ok := stats[e.EventType]; ok {
			stats[e.EventType]++
		}
	}
}

func emptyEventStats() map[string]int {
	return map[string]int{
		string(engine.EventCampaignStart):  0,
		string(engine.EventCampaignUpdate): 0,
		string(engine.EventCampaignEnd):    0,
	}
}

func eventSeries(entries []storage.Entry) map[string]map[string]int {
	events := make([]engine.DatedEvent, len(entries))
	for i, e := range entries {
		events[i] = e.DatedEvent()
	}
	out := map[string]map[string]int{}
	for date, counts := range engine.CountEventsByDate(events) {
		day := map[string]int{}
		for typ, n := range counts {
			day[string(typ)] = n
		}
		out[date] = day
	}
	return out
}

func bannerSeries(entries []storage.Entry) map[string]map[string]int {
	events := make([]engine.DatedEvent, len(entries))
	for i, e := range entries {
		events[i] = e.DatedEvent()
	}
	out := map[string]map[string]int{}
	for date, counts := range engine.CountBannersByDate(events) {
		day := map[string]int{}
		for action, n := range counts {
			day[string(action)] = n
		}
		out[date] = day
	}
	return out
}

func providerSeries(entries []storage.Entry) map[string]map[string]int {
	events := make([]engine.DatedEvent, len(entries))
	for i, e := range entries {
		events[i] = e.DatedEvent()
	}
	out := map[string]map[string]int{}
	for date, counts := range engine.CountProvidersByDate(events) {
		day := map[string]int{}
		for typ, n := range counts {
			day[string(typ)] = n
		}
		out[date] = day
	}
	return out
}

func distinct(records []engine.ClassifiedRecord, key func(engine.Record) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, cr := range records {
		v := key(cr.Record)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
