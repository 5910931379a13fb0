package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		ref   time.Time
		want  Status
	}{
		{
			name:  "open-ended campaign stays live",
			start: ts("2026-01-01"),
			end:   nil,
			ref:   time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
			want:  StatusLive,
		},
		{
			name:  "future start is scheduled",
			start: ts("2026-03-01"),
			end:   ts("2026-04-01"),
			ref:   day(15),
			want:  StatusScheduled,
		},
		{
			name:  "past end is finished",
			start: ts("2026-01-01"),
			end:   ts("2026-02-01"),
			ref:   day(15),
			want:  StatusFinished,
		},
		{
			name:  "inside the window is live",
			start: ts("2026-02-01"),
			end:   ts("2026-03-01"),
			ref:   day(15),
			want:  StatusLive,
		},
		{
			name:  "starts today is already live",
			start: ts("2026-02-15"),
			end:   ts("2026-03-01"),
			ref:   day(15),
			want:  StatusLive,
		},
		{
			name:  "ends today is still live",
			start: ts("2026-02-01"),
			end:   ts("2026-02-15"),
			ref:   day(15),
			want:  StatusLive,
		},
		{
			name:  "no dates at all defaults to live",
			start: nil,
			end:   nil,
			ref:   day(15),
			want:  StatusLive,
		},
		{
			name:  "intraday end still counts as ending today",
			start: ts("2026-02-01"),
			end:   func() *time.Time { x := time.Date(2026, time.February, 15, 9, 30, 0, 0, time.UTC); return &x }(),
			ref:   time.Date(2026, time.February, 15, 23, 0, 0, 0, time.UTC),
			want:  StatusLive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := record("p1", func(r *Record) {
				r.CampaignStart = tt.start
				r.CampaignEnd = tt.end
			})
			assert.Equal(t, tt.want, Classify(r, tt.ref))
		})
	}
}

func TestClassify_EnrollmentStateNeverOverrides(t *testing.T) {
	r := record("p1", func(r *Record) {
		r.CampaignStart = ts("2026-02-01")
		r.CampaignEnd = ts("2026-03-01")
		r.EnrollmentState = "disabled"
	})
	assert.Equal(t, StatusLive, Classify(r, day(15)))
}

func TestClassify_MonotonicOverTime(t *testing.T) {
	r := record("p1", func(r *Record) {
		r.CampaignStart = ts("2026-02-10")
		r.CampaignEnd = ts("2026-02-20")
	})

	rank := map[Status]int{StatusScheduled: 0, StatusLive: 1, StatusFinished: 2}
	prev := -1
	for d := 1; d <= 28; d++ {
		status := Classify(r, day(d))
		cur := rank[status]
		assert.GreaterOrEqual(t, cur, prev, "status went backward on day %d", d)
		prev = cur
	}
	assert.Equal(t, StatusScheduled, Classify(r, day(1)))
	assert.Equal(t, StatusLive, Classify(r, day(15)))
	assert.Equal(t, StatusFinished, Classify(r, day(28)))
}

func TestClassifySnapshot(t *testing.T) {
	s := snapshot(t,
		record("live", func(r *Record) { r.CampaignStart = ts("2026-02-01") }),
		record("sched", func(r *Record) { r.CampaignStart = ts("2026-03-01") }),
		record("done", func(r *Record) {
			r.CampaignStart = ts("2026-01-01")
			r.CampaignEnd = ts("2026-01-31")
		}),
	)

	classified := ClassifySnapshot(s, day(15))
	require.Len(t, classified, 3)

	byStatus := map[Status]int{}
	for _, cr := range classified {
		byStatus[cr.Status]++
	}
	assert.Equal(t, map[Status]int{StatusLive: 1, StatusScheduled: 1, StatusFinished: 1}, byStatus)

	// stable order by identity
	again := ClassifySnapshot(s, day(15))
	assert.Equal(t, classified, again)
}
