package engine

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/shopspring/decimal"
)

// Identity fields: provider, discount type, bonus percentage and spend
// objective. Everything else (campaign id, dates, basket and cost
// fields) is a mutable attribute of the same campaign and deliberately
// excluded, so that edits to those fields surface as updates instead of
// a new identity.

// Hash derives the campaign identity from a record. It is pure and
// seed-free: the same field tuple yields the same 8-character key on
// every run and every deployment. The separator keeps tuple boundaries
// unambiguous ("ab"|"c" never equals "a"|"bc").
func Hash(r Record) Identity {
	components := []string{
		strings.TrimSpace(r.ProviderID),
		strings.ToLower(strings.TrimSpace(r.DiscountType)),
		canonicalDecimal(r.BonusPercentage),
		strings.ToLower(strings.TrimSpace(r.SpendObjective)),
	}
	sum := sha256.Sum256([]byte(strings.Join(components, "|")))
	return Identity(base64.RawURLEncoding.EncodeToString(sum[:6]))
}

// canonicalDecimal renders a nullable numeric in a form stable across
// input spellings ("15", "15.0" and "15.00" all hash alike).
func canonicalDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
