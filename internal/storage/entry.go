package storage

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"promo-tracker/internal/engine"
)

// FromEvent flattens a change event and its resolved banner action
// into a persistable entry. date is the processing date (YYYY-MM-DD).
func FromEvent(runID uuid.UUID, date string, event engine.ChangeEvent, action engine.BannerAction) Entry {
	rec := event.Record()
	return Entry{
		RunID:        runID,
		Date:         date,
		EventType:    string(event.Type),
		CampaignHash: string(event.Identity),
		BannerAction: string(action),

		ProviderID:          rec.ProviderID,
		ProviderName:        rec.ProviderName,
		AccountManager:      rec.AccountManager,
		City:                rec.City,
		CampaignID:          rec.CampaignID,
		DiscountType:        rec.DiscountType,
		BonusType:           rec.BonusType,
		BonusPercentage:     nullDecimal(rec.BonusPercentage),
		BonusMaxValue:       nullDecimal(rec.BonusMaxValue),
		SpendObjective:      rec.SpendObjective,
		MinBasketSize:       nullDecimal(rec.MinBasketSize),
		CostSharePercentage: nullDecimal(rec.CostSharePercentage),
		CampaignStart:       rec.CampaignStart,
		CampaignEnd:         rec.CampaignEnd,

		ChangedFields: event.Changes,
	}
}

// DatedEvent projects the entry into the aggregator's input shape.
func (e Entry) DatedEvent() engine.DatedEvent {
	key := e.ProviderID
	if key == "" {
		key = e.ProviderName
	}
	return engine.DatedEvent{
		Date:         e.Date,
		Type:         engine.EventType(e.EventType),
		BannerAction: engine.BannerAction(e.BannerAction),
		ProviderKey:  key,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
