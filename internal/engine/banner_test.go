package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func updateEvent(changes []FieldChange, curr *Record) ChangeEvent {
	return ChangeEvent{
		Type:     EventCampaignUpdate,
		Identity: "abc12345",
		Current:  curr,
		Changes:  changes,
	}
}

func TestResolveBanner(t *testing.T) {
	futureStart := record("p1", func(r *Record) { r.CampaignStart = ts("2026-03-10") })
	pastStart := record("p1", func(r *Record) { r.CampaignStart = ts("2026-02-01") })

	tests := []struct {
		name       string
		event      ChangeEvent
		wantAction BannerAction
		wantOK     bool
	}{
		{
			name:       "campaign start always needs a banner",
			event:      ChangeEvent{Type: EventCampaignStart, Current: &futureStart},
			wantAction: BannerStart,
			wantOK:     true,
		},
		{
			name:       "campaign end always needs a banner",
			event:      ChangeEvent{Type: EventCampaignEnd, Previous: &pastStart},
			wantAction: BannerEnd,
			wantOK:     true,
		},
		{
			name:   "sole cost share change is back-office only",
			event:  updateEvent([]FieldChange{{Field: "cost_share_percentage", Old: "10", New: "15"}}, &pastStart),
			wantOK: false,
		},
		{
			name:       "min basket change is customer visible",
			event:      updateEvent([]FieldChange{{Field: "min_basket_size", Old: "50", New: "75"}}, &pastStart),
			wantAction: BannerUpdate,
			wantOK:     true,
		},
		{
			name:       "campaign id change is customer visible",
			event:      updateEvent([]FieldChange{{Field: "campaign_id", Old: "C-1", New: "C-2"}}, &pastStart),
			wantAction: BannerUpdate,
			wantOK:     true,
		},
		{
			name:       "end date change is customer visible",
			event:      updateEvent([]FieldChange{{Field: "campaign_end", Old: "", New: "2026-03-01T00:00:00Z"}}, &pastStart),
			wantAction: BannerUpdate,
			wantOK:     true,
		},
		{
			name: "pushed start of a future campaign reschedules the banner",
			event: updateEvent(
				[]FieldChange{{Field: "campaign_start", Old: "2026-03-01T00:00:00Z", New: "2026-03-10T00:00:00Z"}},
				&futureStart,
			),
			wantAction: BannerUpdate,
			wantOK:     true,
		},
		{
			name: "start change of an already live campaign needs no banner",
			event: updateEvent(
				[]FieldChange{{Field: "campaign_start", Old: "2026-01-01T00:00:00Z", New: "2026-02-01T00:00:00Z"}},
				&pastStart,
			),
			wantOK: false,
		},
		{
			name: "bonus max change alone needs no banner",
			event: updateEvent(
				[]FieldChange{{Field: "bonus_max_value", Old: "100", New: "200"}},
				&pastStart,
			),
			wantOK: false,
		},
	}

	referenceDate := day(15) // 2026-02-15

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, ok := ResolveBanner(tt.event, referenceDate)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantAction, action)
			} else {
				assert.Empty(t, action)
			}
		})
	}
}

func TestResolveBanner_PureFunction(t *testing.T) {
	curr := record("p1", func(r *Record) { r.CampaignStart = ts("2026-03-10") })
	ev := updateEvent([]FieldChange{{Field: "campaign_start", Old: "2026-03-01T00:00:00Z", New: "2026-03-10T00:00:00Z"}}, &curr)

	a1, ok1 := ResolveBanner(ev, day(15))
	a2, ok2 := ResolveBanner(ev, day(15))
	assert.Equal(t, a1, a2)
	assert.Equal(t, ok1, ok2)

	// same event, later reference date: start no longer in the future
	_, ok := ResolveBanner(ev, time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}
