package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/huhumeme2002/CreditToken/internal/app"
	"github.com/huhumeme2002/CreditToken/internal/domain"
)

// AdminService is the minimal interface needed for the privileged surface.
type AdminService interface {
	ImportKeys(ctx context.Context, inputs []app.ImportKeyInput) app.ImportOutcome
	ImportTokens(ctx context.Context, values []string) app.ImportOutcome
	SetCredit(ctx context.Context, keyID string, creditCents int64) (domain.Key, error)
	ListReports(ctx context.Context) ([]domain.ReportListing, error)
}

// ReportResolver is the minimal interface needed to settle reports.
type ReportResolver interface {
	Resolve(ctx context.Context, reportID string, decision app.Decision) (app.ResolveResult, error)
}

// HandleImportKeys creates keys in bulk; per-row failures do not abort the
// batch.
func HandleImportKeys(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importKeysRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		inputs := make([]app.ImportKeyInput, 0, len(req.Keys))
		for _, k := range req.Keys {
			inputs = append(inputs, app.ImportKeyInput{
				Secret:      k.Secret,
				CreditCents: k.CreditCents,
				ExpiresAt:   k.ExpiresAt,
			})
		}

		out := svc.ImportKeys(r.Context(), inputs)
		writeJSON(w, http.StatusOK, importOutcomeResponse{
			Succeeded: out.Succeeded,
			Failed:    out.Failed,
			Errors:    out.Errors,
		})
	}
}

// HandleImportTokens adds token values to the pool in bulk.
func HandleImportTokens(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importTokensRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		out := svc.ImportTokens(r.Context(), req.Tokens)
		writeJSON(w, http.StatusOK, importOutcomeResponse{
			Succeeded: out.Succeeded,
			Failed:    out.Failed,
			Errors:    out.Errors,
		})
	}
}

// HandleSetCredit overwrites a key's balance.
func HandleSetCredit(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID := chi.URLParam(r, "keyID")

		var req setCreditRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		key, err := svc.SetCredit(r.Context(), keyID, req.CreditCents)
		if err != nil {
			switch err {
			case domain.ErrKeyNotFound, domain.ErrInvalidID:
				writeError(w, http.StatusNotFound, codeKeyNotFound, domain.ErrKeyNotFound.Error())
			case domain.ErrInvalidCredit:
				writeError(w, http.StatusBadRequest, codeInvalidCredit, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, setCreditResponse{
			ID:          key.ID,
			CreditCents: key.CreditCents,
		})
	}
}

// HandleListReports lists disputes for the resolution screen.
func HandleListReports(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := svc.ListReports(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]reportListingResponse, 0, len(listings))
		for _, l := range listings {
			resp = append(resp, reportListingResponse{
				ID:                l.ID,
				KeyMask:           l.KeyMask,
				TokenValue:        l.TokenValue,
				Reason:            l.Reason,
				ReportedAt:        l.ReportedAt,
				RefundedAt:        l.RefundedAt,
				RefundAmountCents: l.RefundAmountCents,
				RejectedAt:        l.RejectedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleResolveReport settles a report with the given decision.
func HandleResolveReport(svc ReportResolver, decision app.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := chi.URLParam(r, "reportID")

		result, err := svc.Resolve(r.Context(), reportID, decision)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if result.Rejected {
			writeJSON(w, http.StatusOK, resolveReportResponse{Rejected: true})
			return
		}
		writeJSON(w, http.StatusOK, resolveReportResponse{
			Refunded:          true,
			RefundAmountCents: result.AmountCents,
			ElapsedMinutes:    &result.ElapsedMinutes,
		})
	}
}

type importKeysRequest struct {
	Keys []importKeyRow `json:"keys"`
}

type importKeyRow struct {
	Secret      string    `json:"secret"`
	CreditCents int64     `json:"credit_cents"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type importTokensRequest struct {
	Tokens []string `json:"tokens"`
}

type importOutcomeResponse struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type setCreditRequest struct {
	CreditCents int64 `json:"credit_cents"`
}

type setCreditResponse struct {
	ID          string `json:"id"`
	CreditCents int64  `json:"credit_cents"`
}

type reportListingResponse struct {
	ID                string     `json:"id"`
	KeyMask           string     `json:"key_mask"`
	TokenValue        string     `json:"token_value"`
	Reason            string     `json:"reason,omitempty"`
	ReportedAt        time.Time  `json:"reported_at"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
	RefundAmountCents *int64     `json:"refund_amount_cents,omitempty"`
	RejectedAt        *time.Time `json:"rejected_at,omitempty"`
}

type resolveReportResponse struct {
	Refunded          bool             `json:"refunded,omitempty"`
	Rejected          bool             `json:"rejected,omitempty"`
	RefundAmountCents int64            `json:"refund_amount_cents,omitempty"`
	ElapsedMinutes    *decimal.Decimal `json:"elapsed_minutes,omitempty"`
}
