package http

import (
	"encoding/json"
	"net/http"

	"github.com/huhumeme2002/CreditToken/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeInvalidID          = "invalid_id"
	codeInsufficientCredit = "insufficient_credit"
	codeOutOfStock         = "out_of_stock"
	codeTokenNotFound      = "token_not_found"
	codeTokenValueRequired = "token_value_required"
	codeReportNotFound     = "report_not_found"
	codeAlreadyRefunded    = "already_refunded"
	codeAlreadyRejected    = "already_rejected"
	codeInvalidDecision    = "invalid_decision"
	codeInvalidData        = "invalid_data"
	codeInvalidCredit      = "invalid_credit"
	codeKeyNotFound        = "key_not_found"
	codeRateLimited        = "rate_limited"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDomainError maps core errors onto transport status and code. Key
// entitlement failures all collapse to 401 so callers cannot probe which
// precondition failed.
func writeDomainError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrKeyNotFound, domain.ErrKeyInactive, domain.ErrKeyExpired:
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	case domain.ErrInsufficientCredit:
		writeError(w, http.StatusPaymentRequired, codeInsufficientCredit, err.Error())
	case domain.ErrOutOfStock:
		writeError(w, http.StatusConflict, codeOutOfStock, err.Error())
	case domain.ErrTokenNotFound:
		writeError(w, http.StatusNotFound, codeTokenNotFound, err.Error())
	case domain.ErrTokenValueRequired:
		writeError(w, http.StatusBadRequest, codeTokenValueRequired, err.Error())
	case domain.ErrNotDelivered:
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case domain.ErrReportNotFound:
		writeError(w, http.StatusNotFound, codeReportNotFound, err.Error())
	case domain.ErrAlreadyRefunded:
		writeError(w, http.StatusConflict, codeAlreadyRefunded, err.Error())
	case domain.ErrAlreadyRejected:
		writeError(w, http.StatusConflict, codeAlreadyRejected, err.Error())
	case domain.ErrInvalidDecision:
		writeError(w, http.StatusBadRequest, codeInvalidDecision, err.Error())
	case domain.ErrReportDataInvalid:
		writeError(w, http.StatusUnprocessableEntity, codeInvalidData, err.Error())
	case domain.ErrInvalidCredit:
		writeError(w, http.StatusBadRequest, codeInvalidCredit, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
