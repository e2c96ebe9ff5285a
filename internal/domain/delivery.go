package domain

import "time"

// Delivery is the audit record binding one token to one key. The storage
// layer enforces a unique constraint on TokenID, so a token can be delivered
// at most once.
type Delivery struct {
	ID          string
	KeyID       string
	TokenID     string
	DeliveredAt time.Time
}
