package domain

import "errors"

var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrKeyInactive        = errors.New("key inactive")
	ErrKeyExpired         = errors.New("key expired")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrOutOfStock         = errors.New("out of stock")

	ErrTokenNotFound         = errors.New("token not found")
	ErrNotDelivered          = errors.New("token was not delivered to this key")
	ErrTokenAlreadyDelivered = errors.New("token already delivered")

	ErrReportNotFound    = errors.New("report not found")
	ErrInvalidDecision   = errors.New("invalid decision")
	ErrAlreadyRefunded   = errors.New("report already refunded")
	ErrAlreadyRejected   = errors.New("report already rejected")
	ErrReportDataInvalid = errors.New("report data invalid")

	ErrDuplicateKey       = errors.New("key secret already exists")
	ErrDuplicateToken     = errors.New("token value already exists")
	ErrKeySecretRequired  = errors.New("key secret required")
	ErrTokenValueRequired = errors.New("token value required")
	ErrInvalidExpiry      = errors.New("invalid expiry")
	ErrInvalidCredit      = errors.New("credit must not be negative")
	ErrInvalidID          = errors.New("invalid id")
)
