package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/huhumeme2002/CreditToken/internal/app"
	"github.com/huhumeme2002/CreditToken/internal/telemetry/metric"
)

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Issuer      TokenIssuer
	Reports     ReportFiler
	Resolver    ReportResolver
	Keys        KeySummarizer
	Admin       AdminService
	KeyResolver KeyResolver

	AdminToken     string
	CORSOrigins    []string
	IssuePerMinute int
	IssueBurst     int

	Logger  *zap.Logger
	Metrics *metric.Registry
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(Metrics(cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", HealthHandler)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(KeyAuth(cfg.KeyResolver))

		r.With(IssueRateLimit(cfg.IssuePerMinute, cfg.IssueBurst)).
			Post("/token", HandleIssueToken(cfg.Issuer))
		r.Post("/token/report", HandleFileReport(cfg.Reports))
		r.Get("/me", HandleMe(cfg.Keys))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminAuth(cfg.AdminToken))

		r.Post("/keys", HandleImportKeys(cfg.Admin))
		r.Patch("/keys/{keyID}/credit", HandleSetCredit(cfg.Admin))
		r.Post("/tokens", HandleImportTokens(cfg.Admin))
		r.Get("/reports", HandleListReports(cfg.Admin))
		r.Post("/reports/{reportID}/refund", HandleResolveReport(cfg.Resolver, app.DecisionRefund))
		r.Post("/reports/{reportID}/reject", HandleResolveReport(cfg.Resolver, app.DecisionReject))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	return r
}
