package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/huhumeme2002/CreditToken/internal/app"
	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// ReportFiler is the minimal interface needed to file a token report.
type ReportFiler interface {
	File(ctx context.Context, in app.FileReportInput) (domain.Report, error)
}

// HandleFileReport returns an HTTP handler for disputing a delivered token.
func HandleFileReport(svc ReportFiler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, ok := KeyIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		var req fileReportRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Token == "" {
			writeError(w, http.StatusBadRequest, codeTokenValueRequired, domain.ErrTokenValueRequired.Error())
			return
		}

		report, err := svc.File(r.Context(), app.FileReportInput{
			KeyID:      keyID,
			TokenValue: req.Token,
			Reason:     req.Reason,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, fileReportResponse{
			ID:         report.ID,
			ReportedAt: report.ReportedAt,
		})
	}
}

type fileReportRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason,omitempty"`
}

type fileReportResponse struct {
	ID         string    `json:"id"`
	ReportedAt time.Time `json:"reported_at"`
}
