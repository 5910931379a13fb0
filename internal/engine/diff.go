package engine

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonitoredFields are the attributes whose change between two snapshots
// of the same identity emits a campaign-update. Order is the order
// changed fields are reported in.
var MonitoredFields = []string{
	"min_basket_size",
	"campaign_id",
	"cost_share_percentage",
	"bonus_max_value",
	"campaign_start",
	"campaign_end",
}

// Diff compares two consecutive snapshots and returns one event per
// started, ended or updated identity. previous may be nil for the very
// first run, in which case every current identity starts. The output is
// sorted by identity (then type), so the same input pair always yields
// the same event list.
func Diff(previous, current *Snapshot) ([]ChangeEvent, error) {
	if current == nil || current.Len() == 0 {
		return nil, ErrEmptySnapshot
	}

	var events []ChangeEvent

	if previous == nil {
		for id, rec := range current.Records {
			rec := rec
			events = append(events, ChangeEvent{
				Type:     EventCampaignStart,
				Identity: id,
				Current:  &rec,
			})
		}
		sortEvents(events)
		return events, nil
	}
	if previous.Len() == 0 {
		return nil, ErrEmptySnapshot
	}

	for id, curr := range current.Records {
		curr := curr
		prev, ok := previous.Records[id]
		if !ok {
			events = append(events, ChangeEvent{
				Type:     EventCampaignStart,
				Identity: id,
				Current:  &curr,
			})
			continue
		}
		changes := detectChanges(prev, curr)
		if len(changes) == 0 {
			continue
		}
		events = append(events, ChangeEvent{
			Type:     EventCampaignUpdate,
			Identity: id,
			Current:  &curr,
			Previous: &prev,
			Changes:  changes,
		})
	}

	for id, prev := range previous.Records {
		if _, ok := current.Records[id]; ok {
			continue
		}
		prev := prev
		events = append(events, ChangeEvent{
			Type:     EventCampaignEnd,
			Identity: id,
			Previous: &prev,
		})
	}

	sortEvents(events)
	return events, nil
}

func sortEvents(events []ChangeEvent) {
	slices.SortFunc(events, func(a, b ChangeEvent) int {
		if c := strings.Compare(string(a.Identity), string(b.Identity)); c != 0 {
			return c
		}
		return strings.Compare(string(a.Type), string(b.Type))
	})
}

// detectChanges compares the monitored fields of two records with
// type-aware equality: decimals by numeric value, timestamps by
// instant, campaign id by string. Non-monitored fields (display name,
// account manager, ...) never produce an event.
func detectChanges(prev, curr Record) []FieldChange {
	var changes []FieldChange
	for _, field := range MonitoredFields {
		var equal bool
		var oldVal, newVal string
		switch field {
		case "min_basket_size":
			equal = decimalEqual(prev.MinBasketSize, curr.MinBasketSize)
			oldVal, newVal = formatDecimal(prev.MinBasketSize), formatDecimal(curr.MinBasketSize)
		case "campaign_id":
			equal = prev.CampaignID == curr.CampaignID
			oldVal, newVal = prev.CampaignID, curr.CampaignID
		case "cost_share_percentage":
			equal = decimalEqual(prev.CostSharePercentage, curr.CostSharePercentage)
			oldVal, newVal = formatDecimal(prev.CostSharePercentage), formatDecimal(curr.CostSharePercentage)
		case "bonus_max_value":
			equal = decimalEqual(prev.BonusMaxValue, curr.BonusMaxValue)
			oldVal, newVal = formatDecimal(prev.BonusMaxValue), formatDecimal(curr.BonusMaxValue)
		case "campaign_start":
			equal = timeEqual(prev.CampaignStart, curr.CampaignStart)
			oldVal, newVal = formatTime(prev.CampaignStart), formatTime(curr.CampaignStart)
		case "campaign_end":
			equal = timeEqual(prev.CampaignEnd, curr.CampaignEnd)
			oldVal, newVal = formatTime(prev.CampaignEnd), formatTime(curr.CampaignEnd)
		}
		if !equal {
			changes = append(changes, FieldChange{Field: field, Old: oldVal, New: newVal})
		}
	}
	return changes
}

func decimalEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
