package domain

import (
	"strings"
	"time"
)

// PaymentMode selects who pays for generation.
type PaymentMode string

const (
	// PaymentCredits spends shared credits and uses the server's credential.
	PaymentCredits PaymentMode = "credits"
	// PaymentOwnKey uses the caller's own provider key at zero credit cost.
	PaymentOwnKey PaymentMode = "apiKey"
)

// ParsePaymentMode accepts the stored spelling and a few aliases.
func ParsePaymentMode(raw string) (PaymentMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "credits":
		return PaymentCredits, true
	case "apikey", "api_key", "own_key":
		return PaymentOwnKey, true
	default:
		return "", false
	}
}

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User is an account able to run generations.
type User struct {
	ID          string
	Username    string
	Role        UserRole
	Credits     int
	PaymentMode PaymentMode
	APIKey      string
	Locale      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin reports whether the user manages other accounts.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// HasOwnKey reports whether the user pays with a non-empty personal key.
func (u User) HasOwnKey() bool {
	return u.PaymentMode == PaymentOwnKey && strings.TrimSpace(u.APIKey) != ""
}

// UserChanges carries an admin edit. Nil fields stay as they are.
type UserChanges struct {
	Username *string
	Credits  *int
}

// Empty reports whether the edit changes nothing.
func (c UserChanges) Empty() bool {
	return c.Username == nil && c.Credits == nil
}
