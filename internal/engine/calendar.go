package engine

import "time"

// Classify buckets a record against a reference date. Comparison is
// date-granular in UTC: a campaign ending today is still live, one
// starting today is already live, and an open end never finishes.
// Enrollment state is surfaced alongside but never overrides the
// date-derived status.
func Classify(r Record, referenceDate time.Time) Status {
	ref := dateOf(referenceDate)

	if r.CampaignStart != nil && dateOf(*r.CampaignStart).After(ref) {
		return StatusScheduled
	}
	if r.CampaignEnd != nil && dateOf(*r.CampaignEnd).Before(ref) {
		return StatusFinished
	}
	return StatusLive
}

// ClassifiedRecord pairs a record with its identity and computed
// status for calendar views.
type ClassifiedRecord struct {
	Identity Identity
	Status   Status
	Record   Record
}

// ClassifySnapshot classifies every record of a snapshot against the
// reference date, sorted by identity for stable output.
func ClassifySnapshot(s *Snapshot, referenceDate time.Time) []ClassifiedRecord {
	out := make([]ClassifiedRecord, 0, s.Len())
	for id, rec := range s.Records {
		out = append(out, ClassifiedRecord{
			Identity: id,
			Status:   Classify(rec, referenceDate),
			Record:   rec,
		})
	}
	sortClassified(out)
	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
