package engine

import (
	"slices"
	"strings"
	"time"
)

// StatusSummary holds per-status record counts and distinct-provider
// counts for one classified snapshot.
type StatusSummary struct {
	Counts    map[Status]int `json:"counts"`
	Providers map[Status]int `json:"providers"`
}

// Summarize counts records and distinct providers per status. Provider
// identity follows Record.ProviderKey (id with name fallback).
func Summarize(records []ClassifiedRecord) StatusSummary {
	counts := map[Status]int{StatusLive: 0, StatusScheduled: 0, StatusFinished: 0}
	providers := map[Status]map[string]struct{}{
		StatusLive:      {},
		StatusScheduled: {},
		StatusFinished:  {},
	}
	for _, cr := range records {
		counts[cr.Status]++
		providers[cr.Status][cr.Record.ProviderKey()] = struct{}{}
	}
	out := StatusSummary{
		Counts:    counts,
		Providers: make(map[Status]int, len(providers)),
	}
	for status, set := range providers {
		out.Providers[status] = len(set)
	}
	return out
}

// DatedEvent is the minimal view of a persisted changelog entry the
// aggregator needs: the processing date, the event type, the resolved
// banner action (empty for none) and the provider key.
type DatedEvent struct {
	Date         string // YYYY-MM-DD
	Type         EventType
	BannerAction BannerAction
	ProviderKey  string
}

// CountEventsByDate returns per-date counts per event type, with every
// event type present for every date that has at least one event.
func CountEventsByDate(events []DatedEvent) map[string]map[EventType]int {
	out := map[string]map[EventType]int{}
	for _, e := range events {
		if e.Date == "" {
			continue
		}
		day, ok := out[e.Date]
		if !ok {
			day = map[EventType]int{EventCampaignStart: 0, EventCampaignUpdate: 0, EventCampaignEnd: 0}
			out[e.Date] = day
		}
		day[e.Type]++
	}
	return out
}

// CountBannersByDate returns per-date counts per banner action.
// Events without an action are skipped.
func CountBannersByDate(events []DatedEvent) map[string]map[BannerAction]int {
	out := map[string]map[BannerAction]int{}
	for _, e := range events {
		if e.Date == "" || e.BannerAction == "" {
			continue
		}
		day, ok := out[e.Date]
		if !ok {
			day = map[BannerAction]int{BannerStart: 0, BannerUpdate: 0, BannerEnd: 0}
			out[e.Date] = day
		}
		day[e.BannerAction]++
	}
	return out
}

// CountProvidersByDate returns per-date distinct-provider counts per
// event type. One provider running several campaigns counts once.
func CountProvidersByDate(events []DatedEvent) map[string]map[EventType]int {
	seen := map[string]map[EventType]map[string]struct{}{}
	for _, e := range events {
		if e.Date == "" {
			continue
		}
		day, ok := seen[e.Date]
		if !ok {
			day = map[EventType]map[string]struct{}{}
			seen[e.Date] = day
		}
		set, ok := day[e.Type]
		if !ok {
			set = map[string]struct{}{}
			day[e.Type] = set
		}
		set[e.ProviderKey] = struct{}{}
	}
	out := make(map[string]map[EventType]int, len(seen))
	for date, day := range seen {
		out[date] = make(map[EventType]int, len(day))
		for typ, set := range day {
			out[date][typ] = len(set)
		}
	}
	return out
}

// StatusTimeSeries reclassifies the snapshot against every date in
// [from, to] and returns per-date status counts, for calendar charts.
func StatusTimeSeries(s *Snapshot, from, to time.Time) map[string]map[Status]int {
	out := map[string]map[Status]int{}
	for day := dateOf(from); !day.After(dateOf(to)); day = day.AddDate(0, 0, 1) {
		counts := map[Status]int{StatusLive: 0, StatusScheduled: 0, StatusFinished: 0}
		for _, rec := range s.Records {
			counts[Classify(rec, day)]++
		}
		out[day.Format("2006-01-02")] = counts
	}
	return out
}

func sortClassified(records []ClassifiedRecord) {
	slices.SortFunc(records, func(a, b ClassifiedRecord) int {
		return strings.Compare(string(a.Identity), string(b.Identity))
	})
}
