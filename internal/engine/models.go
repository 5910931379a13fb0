package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one campaign row as observed in a snapshot. Values are
// immutable once parsed; a changed campaign shows up as a new Record
// under the same Identity.
type Record struct {
	ProviderID     string
	ProviderName   string
	AccountManager string
	City           string
	CampaignID     string
	SpendObjective string
	DiscountType   string
	BonusType      string

	BonusPercentage     *decimal.Decimal
	BonusMaxValue       *decimal.Decimal
	MinBasketSize       *decimal.Decimal
	CostSharePercentage *decimal.Decimal

	CampaignStart *time.Time // UTC
	CampaignEnd   *time.Time // UTC; nil means open-ended

	OfferMode       string
	EnrollmentState string
}

// Identity is the reproducible short key a campaign is tracked by
// across snapshots. See Hash.
type Identity string

type EventType string

const (
	EventCampaignStart  EventType = "campaign-start"
	EventCampaignUpdate EventType = "campaign-update"
	EventCampaignEnd    EventType = "campaign-end"
)

type BannerAction string

const (
	BannerStart  BannerAction = "banner-start"
	BannerUpdate BannerAction = "banner-update"
	BannerEnd    BannerAction = "banner-end"
)

// FieldChange is one monitored field that differed between two
// snapshots of the same campaign. Old and New carry the canonical
// string form of the value ("" for absent).
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// ChangeEvent is the result of diffing one identity between two
// snapshots. Current is set for start/update, Previous for update/end,
// Changes only for updates, in monitored-field order.
type ChangeEvent struct {
	Type     EventType
	Identity Identity
	Current  *Record
	Previous *Record
	Changes  []FieldChange
}

// Record returns the record most representative of the event: the
// current one when present, otherwise the previous one.
func (e ChangeEvent) Record() *Record {
	if e.Current != nil {
		return e.Current
	}
	return e.Previous
}

// ChangedFieldNames returns the names from Changes, in order.
func (e ChangeEvent) ChangedFieldNames() []string {
	if len(e.Changes) == 0 {
		return nil
	}
	out := make([]string, len(e.Changes))
	for i, c := range e.Changes {
		out[i] = c.Field
	}
	return out
}

type Status string

const (
	StatusLive      Status = "live"
	StatusScheduled Status = "scheduled"
	StatusFinished  Status = "finished"
)

// Snapshot is the full observed campaign state at one ingestion time,
// keyed by identity. Build with NewSnapshot; never mutated afterwards.
type Snapshot struct {
	TakenAt time.Time
	Records map[Identity]Record

	// Collisions counts identities that appeared more than once in the
	// input. Only the first record per identity is kept.
	Collisions int
}

// ProviderKey is the key used for distinct-provider counting:
// provider_id when present, provider_name otherwise. The name fallback
// is a known weak point (two id-less providers with the same display
// name collapse into one) kept for continuity with historical counts.
func (r Record) ProviderKey() string {
	if r.ProviderID != "" {
		return r.ProviderID
	}
	return r.ProviderName
}
