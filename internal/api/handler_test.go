package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-tracker/internal/engine"
	"promo-tracker/internal/feed"
	"promo-tracker/internal/process"
	"promo-tracker/internal/storage"
)

type mockStore struct {
	entries []storage.Entry
}

func (m *mockStore) EntriesSince(_ context.Context, minDate string) ([]storage.Entry, error) {
	var out []storage.Entry
	for _, e := range m.entries {
		if minDate == "" || e.Date >= minDate {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) EntriesByDate(_ context.Context, date string) ([]storage.Entry, error) {
	var out []storage.Entry
	for _, e := range m.entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) Dates(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range m.entries {
		if _, ok := seen[e.Date]; !ok {
			seen[e.Date] = struct{}{}
			out = append(out, e.Date)
		}
	}
	return out, nil
}

type mockRunner struct {
	snap   *engine.Snapshot
	result process.RunResult
	err    error
}

func (m *mockRunner) Run(_ context.Context, _ time.Time) (process.RunResult, error) {
	return m.result, m.err
}

func (m *mockRunner) CurrentSnapshot(_ context.Context) (*engine.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

func newTestHandler(store *mockStore, runner *mockRunner) *Handler {
	h := NewHandler(store, runner)
	h.Now = func() time.Time {
		return time.Date(2026, time.February, 15, 12, 0, 0, 0, time.UTC)
	}
	return h
}

func entry(date, eventType, action, provider string) storage.Entry {
	return storage.Entry{
		Date:         date,
		EventType:    eventType,
		BannerAction: action,
		CampaignHash: "hash-" + provider,
		ProviderID:   provider,
		ProviderName: "Provider " + provider,
	}
}

func TestChangelog(t *testing.T) {
	store := &mockStore{entries: []storage.Entry{
		entry("2026-02-14", "campaign-start", "banner-start", "p1"),
		entry("2026-02-14", "campaign-end", "banner-end", "p2"),
		entry("2026-02-15", "campaign-start", "banner-start", "p3"),
		entry("2026-02-15", "campaign-update", "", "p4"),
		entry("2026-02-15", "campaign-update", "banner-update", "p5"),
	}}
	h := newTestHandler(store, &mockRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/changelog", nil)
	w := httptest.NewRecorder()
	h.Changelog(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Summary struct {
			LatestDate string         `json:"latest_date"`
			Stats      map[string]int `json:"stats"`
			PrevStats  map[string]int `json:"prev_stats"`
		} `json:"summary"`
		TimeSeries map[string]map[string]int  `json:"time_series"`
		Grouped    map[string][]storage.Entry `json:"grouped"`
		Dates      []string                   `json:"dates"`
		DetailDate string                     `json:"detail_date"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "2026-02-15", resp.Summary.LatestDate)
	assert.Equal(t, 1, resp.Summary.Stats["campaign-start"])
	assert.Equal(t, 2, resp.Summary.Stats["campaign-update"])
	assert.Equal(t, 0, resp.Summary.Stats["campaign-end"])
	assert.Equal(t, 1, resp.Summary.PrevStats["campaign-start"])
	assert.Equal(t, 1, resp.Summary.PrevStats["campaign-end"])

	assert.Equal(t, "2026-02-15", resp.DetailDate)
	assert.Len(t, resp.Grouped["campaign-start"], 1)
	assert.Len(t, resp.Grouped["campaign-update"], 2)
	assert.Len(t, resp.Grouped["campaign-end"], 0)

	assert.Equal(t, []string{"2026-02-15", "2026-02-14"}, resp.Dates)
	assert.Equal(t, 2, resp.TimeSeries["2026-02-14"]["campaign-start"]+resp.TimeSeries["2026-02-15"]["campaign-start"])
}

func TestChangelog_ExplicitDate(t *testing.T) {
	store := &mockStore{entries: []storage.Entry{
		entry("2026-02-14", "campaign-start", "banner-start", "p1"),
		entry("2026-02-15", "campaign-end", "banner-end", "p2"),
	}}
	h := newTestHandler(store, &mockRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/changelog?date=2026-02-14", nil)
	w := httptest.NewRecorder()
	h.Changelog(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Grouped    map[string][]storage.Entry `json:"grouped"`
		DetailDate string                     `json:"detail_date"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2026-02-14", resp.DetailDate)
	assert.Len(t, resp.Grouped["campaign-start"], 1)
	assert.Len(t, resp.Grouped["campaign-end"], 0)
}

func TestBanners(t *testing.T) {
	store := &mockStore{entries: []storage.Entry{
		entry("2026-02-15", "campaign-start", "banner-start", "p1"),
		entry("2026-02-15", "campaign-update", "", "p2"), // no action, excluded
		entry("2026-02-15", "campaign-update", "banner-update", "p3"),
		entry("2026-02-15", "campaign-end", "banner-end", "p4"),
	}}
	h := newTestHandler(store, &mockRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/banners", nil)
	w := httptest.NewRecorder()
	h.Banners(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Summary     map[string]int             `json:"summary"`
		TimeSeries  map[string]map[string]int  `json:"time_series"`
		Grouped     map[string][]storage.Entry `json:"grouped"`
		CurrentDate string                     `json:"current_date"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "2026-02-15", resp.CurrentDate)
	assert.Equal(t, map[string]int{"start": 1, "update": 1, "end": 1}, resp.Summary)
	assert.Equal(t, map[string]int{"banner-start": 1, "banner-update": 1, "banner-end": 1}, resp.TimeSeries["2026-02-15"])
	assert.Len(t, resp.Grouped["banner-update"], 1)
	assert.Equal(t, "p3", resp.Grouped["banner-update"][0].ProviderID)
}

func calendarSnapshot(t *testing.T) *engine.Snapshot {
	t.Helper()
	start := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	past := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)

	snap, err := engine.NewSnapshot(start, []engine.Record{
		{ProviderID: "p1", ProviderName: "Shop One", City: "Lisbon", DiscountType: "percentage", CampaignStart: &start},
		{ProviderID: "p2", ProviderName: "Shop Two", City: "Porto", DiscountType: "flat", CampaignStart: &future},
		{ProviderID: "p3", ProviderName: "Shop Three", City: "Lisbon", DiscountType: "flat", CampaignStart: &start, CampaignEnd: &past},
	})
	require.NoError(t, err)
	return snap
}

func TestCalendar(t *testing.T) {
	h := newTestHandler(&mockStore{}, &mockRunner{snap: calendarSnapshot(t)})

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	w := httptest.NewRecorder()
	h.Calendar(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Summary    map[string]int              `json:"summary"`
		Providers  map[string]int              `json:"providers"`
		Grouped    map[string][]map[string]any `json:"grouped"`
		TimeSeries map[string]map[string]int   `json:"time_series"`
		Filters    struct {
			Cities        []string `json:"cities"`
			DiscountTypes []string `json:"discount_types"`
		} `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, map[string]int{"live": 1, "scheduled": 1, "finished": 1}, resp.Summary)
	assert.Equal(t, map[string]int{"live": 1, "scheduled": 1, "finished": 1}, resp.Providers)
	assert.Len(t, resp.Grouped["live"], 1)
	assert.Equal(t, "p1", resp.Grouped["live"][0]["provider_id"])
	assert.Len(t, resp.TimeSeries, 22) // -7 .. +14 inclusive
	assert.Equal(t, []string{"Lisbon", "Porto"}, resp.Filters.Cities)
	assert.Equal(t, []string{"flat", "percentage"}, resp.Filters.DiscountTypes)
}

func TestCalendar_Filters(t *testing.T) {
	h := newTestHandler(&mockStore{}, &mockRunner{snap: calendarSnapshot(t)})

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?city=lisbon&status=live", nil)
	w := httptest.NewRecorder()
	h.Calendar(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Summary map[string]int              `json:"summary"`
		Grouped map[string][]map[string]any `json:"grouped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]int{"live": 1, "scheduled": 0, "finished": 0}, resp.Summary)
	assert.Len(t, resp.Grouped["live"], 1)
	assert.Empty(t, resp.Grouped["finished"])
}

func TestCalendar_NoSnapshot(t *testing.T) {
	h := newTestHandler(&mockStore{}, &mockRunner{err: feed.ErrNoSnapshots})

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	w := httptest.NewRecorder()
	h.Calendar(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcess(t *testing.T) {
	runner := &mockRunner{result: process.RunResult{Date: "2026-02-15", Entries: 3}}
	h := newTestHandler(&mockStore{}, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/process", nil)
	w := httptest.NewRecorder()
	h.Process(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Date    string `json:"date"`
		Entries int    `json:"entries_created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2026-02-15", resp.Date)
	assert.Equal(t, 3, resp.Entries)
}

func TestProcess_NoSnapshots(t *testing.T) {
	h := newTestHandler(&mockStore{}, &mockRunner{err: feed.ErrNoSnapshots})

	req := httptest.NewRequest(http.MethodPost, "/api/process", nil)
	w := httptest.NewRecorder()
	h.Process(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Health(t *testing.T) {
	h := newTestHandler(&mockStore{}, &mockRunner{})
	ts := httptest.NewServer(Router(h))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
