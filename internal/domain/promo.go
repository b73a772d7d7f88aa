package domain

import (
	"strings"
	"time"
)

// PromoCode grants credits once per user.
type PromoCode struct {
	Code         string
	Name         string
	TotalCredits int
	UsedBy       []string
	CreatedAt    time.Time
}

// UsedByUser reports whether userID already redeemed the code.
func (p PromoCode) UsedByUser(userID string) bool {
	for _, u := range p.UsedBy {
		if u == userID {
			return true
		}
	}
	return false
}

// NormalizePromoCode makes lookups case-insensitive.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
