package engine

import "time"

// bannerUpdateFields is the subset of monitored fields whose change is
// customer-visible and therefore needs banner work. A sole
// cost_share_percentage change is a back-office adjustment and never
// produces an action.
var bannerUpdateFields = map[string]struct{}{
	"min_basket_size": {},
	"campaign_id":     {},
	"campaign_end":    {},
}

// ResolveBanner maps a change event to the recommended banner action,
// or ok=false when no action is needed. Pure function of the event and
// the reference date; starts and ends always need work, updates only
// when a banner-relevant field changed, or when the start date moved
// and the campaign is still in the future relative to referenceDate
// (a pushed start of a not-yet-live campaign still reschedules the
// banner).
func ResolveBanner(event ChangeEvent, referenceDate time.Time) (BannerAction, bool) {
	switch event.Type {
	case EventCampaignStart:
		return BannerStart, true
	case EventCampaignEnd:
		return BannerEnd, true
	case EventCampaignUpdate:
	default:
		return "", false
	}

	startChanged := false
	for _, c := range event.Changes {
		if _, ok := bannerUpdateFields[c.Field]; ok {
			return BannerUpdate, true
		}
		if c.Field == "campaign_start" {
			startChanged = true
		}
	}
	if startChanged && event.Current != nil && event.Current.CampaignStart != nil &&
		event.Current.CampaignStart.After(referenceDate) {
		return BannerUpdate, true
	}
	return "", false
}
