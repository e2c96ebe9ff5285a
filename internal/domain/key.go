package domain

import (
	"strings"
	"time"
)

// Key is an access key holding prepaid credit. The secret is never exposed
// unmasked outside the owner's own summary.
type Key struct {
	ID          string
	Secret      string
	ExpiresAt   time.Time
	IsActive    bool
	CreditCents int64
	LastTokenAt *time.Time
	CreatedAt   time.Time
}

// KeySummary is the owner-facing view of a key.
type KeySummary struct {
	KeyID          string
	KeyMask        string
	IsActive       bool
	ExpiresAt      time.Time
	LastTokenAt    *time.Time
	DeliveredCount int
	CreditCents    int64
}

// MaskSecret keeps the first and last four characters of a key secret and
// hides the rest. Short secrets are masked entirely.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
