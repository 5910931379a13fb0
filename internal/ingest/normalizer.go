package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"promo-tracker/internal/engine"
)

// MalformedRecordError reports a row that could not be normalized and
// which column is to blame. Such rows are skipped and counted, never
// fatal to the batch.
type MalformedRecordError struct {
	Column string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: column %q: %s", e.Column, e.Reason)
}

// columnAliases maps every accepted header spelling (lower-cased,
// whitespace-normalized) to the canonical field name. Both the raw
// export headers and already-canonical names are accepted.
var columnAliases = map[string]string{
	"provider id":              "provider_id",
	"provider_id":              "provider_id",
	"provider name":            "provider_name",
	"provider_name":            "provider_name",
	"account manager name":     "account_manager",
	"account_manager":          "account_manager",
	"city name":                "city",
	"city":                     "city",
	"campaign id":              "campaign_id",
	"campaign_id":              "campaign_id",
	"campaign spend objective": "spend_objective",
	"spend_objective":          "spend_objective",
	"discount type":            "discount_type",
	"discount_type":            "discount_type",
	"bonus type":               "bonus_type",
	"bonus_type":               "bonus_type",
	"bonus data percentage":    "bonus_percentage",
	"bonus_percentage":         "bonus_percentage",
	"bonus data max value":     "bonus_max_value",
	"bonus_max_value":          "bonus_max_value",
	"min basket size":          "min_basket_size",
	"min_basket_size":          "min_basket_size",
	"cost share percentage":    "cost_share_percentage",
	"cost_share_percentage":    "cost_share_percentage",
	"smart promo offer provider enrollment start ts utc time": "campaign_start",
	"campaign_start": "campaign_start",
	"smart promo offer provider enrollment end ts utc time":   "campaign_end",
	"campaign_end":   "campaign_end",
	"smart promo offer mode": "offer_mode",
	"offer_mode":             "offer_mode",
	"smart promo offer enrollment state": "enrollment_state",
	"offer_state":      "enrollment_state",
	"enrollment_state": "enrollment_state",
}

// absentValues are numeric/timestamp spellings that normalize to "no
// value" rather than a parse error.
var absentValues = map[string]struct{}{
	"":     {},
	"nat":  {},
	"none": {},
	"nan":  {},
	"null": {},
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// NormalizeRow coerces one raw row (column name to raw value) into a
// typed record. Column names go through the alias table; numerics and
// timestamps are parsed permissively.
func NormalizeRow(raw map[string]string) (engine.Record, error) {
	row := make(map[string]string, len(raw))
	for col, val := range raw {
		if canonical, ok := columnAliases[normalizeHeader(col)]; ok {
			row[canonical] = strings.TrimSpace(val)
		}
	}

	if row["provider_id"] == "" && row["provider_name"] == "" {
		return engine.Record{}, &MalformedRecordError{Column: "provider_id", Reason: "missing"}
	}
	if row["discount_type"] == "" {
		return engine.Record{}, &MalformedRecordError{Column: "discount_type", Reason: "missing"}
	}

	rec := engine.Record{
		ProviderID:      row["provider_id"],
		ProviderName:    row["provider_name"],
		AccountManager:  row["account_manager"],
		City:            row["city"],
		CampaignID:      row["campaign_id"],
		SpendObjective:  row["spend_objective"],
		DiscountType:    row["discount_type"],
		BonusType:       row["bonus_type"],
		OfferMode:       row["offer_mode"],
		EnrollmentState: row["enrollment_state"],
	}

	var err error
	if rec.BonusPercentage, err = parseDecimal(row["bonus_percentage"]); err != nil {
		return engine.Record{}, &MalformedRecordError{Column: "bonus_percentage", Reason: err.Error()}
	}
	if rec.BonusMaxValue, err = parseDecimal(row["bonus_max_value"]); err != nil {
		return engine.Record{}, &MalformedRecordError{Column: "bonus_max_value", Reason: err.Error()}
	}
	if rec.MinBasketSize, err = parseDecimal(row["min_basket_size"]); err != nil {
		return engine.Record{}, &MalformedRecordError{Column: "min_basket_size", Reason: err.Error()}
	}
	if rec.CostSharePercentage, err = parseDecimal(row["cost_share_percentage"]); err != nil {
		return engine.Record{}, &MalformedRecordError{Column: "cost_share_percentage", Reason: err.Error()}
	}
	if rec.CampaignStart, err = parseTimestamp(row["campaign_start"]); err != nil {
		return engine.Record{}, &MalformedRecordError{Column: "campaign_start", Reason: err.Error()}
	}
	// absent end means open-ended, not already ended
	if rec.CampaignEnd, err = parseTimestamp(row["campaign_end"]); err != nil {
		return engine.Record{}, &MalformedRecordError{Column: "campaign_end", Reason: err.Error()}
	}

	return rec, nil
}

// Stats reports what a snapshot read kept and dropped.
type Stats struct {
	Rows    int
	Skipped int
}

// ReadSnapshot decodes a CSV snapshot drop into normalized records.
// Rows that fail normalization are logged, counted in Stats.Skipped
// and excluded. The CSV reader tolerates ragged rows; short rows
// simply miss trailing columns.
func ReadSnapshot(r io.Reader) ([]engine.Record, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read csv header: %w", err)
	}

	var (
		records []engine.Record
		stats   Stats
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read csv row: %w", err)
		}
		stats.Rows++

		raw := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				raw[col] = row[i]
			}
		}

		rec, err := NormalizeRow(raw)
		if err != nil {
			stats.Skipped++
			log.Warn().Err(err).Int("row", stats.Rows).Msg("skipping malformed snapshot row")
			continue
		}
		records = append(records, rec)
	}
	return records, stats, nil
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	if _, absent := absentValues[strings.ToLower(s)]; absent {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &d, nil
}

func parseTimestamp(s string) (*time.Time, error) {
	if _, absent := absentValues[strings.ToLower(s)]; absent {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp: %q", s)
}
