package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidSelection    = errors.New("invalid selection")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPromoNotFound       = errors.New("promo code not found")
	ErrPromoAlreadyUsed    = errors.New("promo code already used")
	ErrUsernameTaken       = errors.New("username taken")
	ErrDuplicateOperation  = errors.New("duplicate operation")
)
