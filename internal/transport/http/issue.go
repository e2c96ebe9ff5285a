package http

import (
	"context"
	"net/http"
	"time"

	"github.com/huhumeme2002/CreditToken/internal/app"
)

// TokenIssuer is the minimal interface needed to issue a token.
type TokenIssuer interface {
	Issue(ctx context.Context, keyID string) (app.IssueResult, error)
}

// HandleIssueToken returns an HTTP handler that debits the caller's key and
// hands out one token.
func HandleIssueToken(svc TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, ok := KeyIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		result, err := svc.Issue(r.Context(), keyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, issueTokenResponse{
			Token:    result.TokenValue,
			IssuedAt: result.IssuedAt,
		})
	}
}

type issueTokenResponse struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}
