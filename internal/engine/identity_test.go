package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestHash_Deterministic(t *testing.T) {
	r := Record{
		ProviderID:      "P-1001",
		DiscountType:    "Percentage",
		BonusPercentage: dec("15"),
		SpendObjective:  "Growth",
	}
	first := Hash(r)
	assert.Len(t, string(first), 8)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Hash(r))
	}
}

func TestHash_IgnoresNonIdentityFields(t *testing.T) {
	base := Record{
		ProviderID:      "P-1001",
		DiscountType:    "percentage",
		BonusPercentage: dec("15"),
		SpendObjective:  "growth",
	}
	other := base
	other.CampaignID = "C-999"
	other.ProviderName = "Another Display Name"
	other.MinBasketSize = dec("50")

	assert.Equal(t, Hash(base), Hash(other))
}

func TestHash_NormalizesSpelling(t *testing.T) {
	a := Record{
		ProviderID:      " P-1001 ",
		DiscountType:    "Percentage",
		BonusPercentage: dec("15.0"),
		SpendObjective:  "GROWTH",
	}
	b := Record{
		ProviderID:      "P-1001",
		DiscountType:    "percentage",
		BonusPercentage: dec("15"),
		SpendObjective:  "growth",
	}
	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_DistinctTuples(t *testing.T) {
	a := Record{ProviderID: "P-1", DiscountType: "flat", SpendObjective: "growth"}
	b := a
	b.ProviderID = "P-2"
	c := a
	c.DiscountType = "percentage"
	d := a
	d.BonusPercentage = dec("5")

	hashes := map[Identity]struct{}{
		Hash(a): {}, Hash(b): {}, Hash(c): {}, Hash(d): {},
	}
	assert.Len(t, hashes, 4)
}

func TestHash_TupleBoundaries(t *testing.T) {
	a := Record{ProviderID: "ab", DiscountType: "c"}
	b := Record{ProviderID: "a", DiscountType: "bc"}
	assert.NotEqual(t, Hash(a), Hash(b))
}
