package domain

import "time"

// Report is a dispute over a delivered token. Exactly one of RefundedAt and
// RejectedAt may end up set; once set the report is terminal.
type Report struct {
	ID                string
	KeyID             string
	TokenID           string
	Reason            string
	ReportedAt        time.Time
	RefundedAt        *time.Time
	RefundAmountCents *int64
	RejectedAt        *time.Time
}

// Resolved reports whether the report already has a terminal state.
func (r Report) Resolved() bool {
	return r.RefundedAt != nil || r.RejectedAt != nil
}

// ReportListing is a report joined with the data the resolution screen
// needs; the key secret is already masked.
type ReportListing struct {
	Report
	KeyMask    string
	TokenValue string
}
