package http

import (
	"context"
	"net/http"
	"time"

	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// KeySummarizer is the minimal interface needed for the owner view.
type KeySummarizer interface {
	Summary(ctx context.Context, keyID string) (domain.KeySummary, error)
}

// HandleMe returns an HTTP handler for the caller's own key summary.
func HandleMe(svc KeySummarizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, ok := KeyIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		summary, err := svc.Summary(r.Context(), keyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, keySummaryResponse{
			KeyID:          summary.KeyID,
			KeyMask:        summary.KeyMask,
			IsActive:       summary.IsActive,
			ExpiresAt:      summary.ExpiresAt,
			LastTokenAt:    summary.LastTokenAt,
			DeliveredCount: summary.DeliveredCount,
			CreditCents:    summary.CreditCents,
		})
	}
}

type keySummaryResponse struct {
	KeyID          string     `json:"key_id"`
	KeyMask        string     `json:"key_mask"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastTokenAt    *time.Time `json:"last_token_at"`
	DeliveredCount int        `json:"delivered_count"`
	CreditCents    int64      `json:"credit_cents"`
}
