package api

import (
	"time"

	"github.com/shopspring/decimal"

	"promo-tracker/internal/engine"
)

// campaignView is the calendar wire shape of one classified record.
type campaignView struct {
	CampaignHash        string           `json:"campaign_hash"`
	Status              engine.Status    `json:"status"`
	ProviderID          string           `json:"provider_id"`
	ProviderName        string           `json:"provider_name"`
	AccountManager      string           `json:"account_manager"`
	City                string           `json:"city"`
	CampaignID          string           `json:"campaign_id"`
	SpendObjective      string           `json:"spend_objective"`
	DiscountType        string           `json:"discount_type"`
	BonusType           string           `json:"bonus_type"`
	BonusPercentage     *decimal.Decimal `json:"bonus_percentage"`
	BonusMaxValue       *decimal.Decimal `json:"bonus_max_value"`
	MinBasketSize       *decimal.Decimal `json:"min_basket_size"`
	CostSharePercentage *decimal.Decimal `json:"cost_share_percentage"`
	CampaignStart       *time.Time       `json:"campaign_start"`
	CampaignEnd         *time.Time       `json:"campaign_end"`
	OfferMode           string           `json:"offer_mode"`
	EnrollmentState     string           `json:"enrollment_state"`
}

func newCampaignView(cr engine.ClassifiedRecord) campaignView {
	r := cr.Record
	return campaignView{
		CampaignHash:        string(cr.Identity),
		Status:              cr.Status,
		ProviderID:          r.ProviderID,
		ProviderName:        r.ProviderName,
		AccountManager:      r.AccountManager,
		City:                r.City,
		CampaignID:          r.CampaignID,
		SpendObjective:      r.SpendObjective,
		DiscountType:        r.DiscountType,
		BonusType:           r.BonusType,
		BonusPercentage:     r.BonusPercentage,
		BonusMaxValue:       r.BonusMaxValue,
		MinBasketSize:       r.MinBasketSize,
		CostSharePercentage: r.CostSharePercentage,
		CampaignStart:       r.CampaignStart,
		CampaignEnd:         r.CampaignEnd,
		OfferMode:           r.OfferMode,
		EnrollmentState:     r.EnrollmentState,
	}
}
