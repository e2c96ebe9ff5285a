package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/huhumeme2002/CreditToken/internal/telemetry/metric"
)

type keyIDContextKey struct{}

// KeyResolver maps a presented key secret to its key ID. Session handling
// proper lives outside this service; the resolver is the thin stand-in that
// supplies the verified key identifier the core trusts.
type KeyResolver interface {
	ResolveSecret(ctx context.Context, secret string) (string, error)
}

// KeyAuth authenticates callers by the key secret in the Authorization
// header and stores the resolved key ID on the request context.
func KeyAuth(resolver KeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := bearerToken(r)
			if secret == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
				return
			}

			keyID, err := resolver.ResolveSecret(r.Context(), secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), keyIDContextKey{}, keyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// KeyIDFromContext returns the key ID placed by KeyAuth.
func KeyIDFromContext(ctx context.Context) (string, bool) {
	keyID, ok := ctx.Value(keyIDContextKey{}).(string)
	return keyID, ok
}

// AdminAuth guards the privileged surface with a static bearer token. An
// empty configured token disables the surface entirely.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, http.StatusNotFound, codeNotFound, "not found")
				return
			}
			presented := bearerToken(r)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// IssueRateLimit throttles issuance per key. Limiters are kept per key ID
// and dropped only with the process; the set is bounded by the key
// population.
func IssueRateLimit(perMinute, burst int) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	limit := rate.Limit(float64(perMinute) / 60.0)

	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyID, ok := KeyIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
				return
			}

			mu.Lock()
			limiter, exists := limiters[keyID]
			if !exists {
				limiter = rate.NewLimiter(limit, burst)
				limiters[keyID] = limiter
			}
			mu.Unlock()

			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs request details and latency on the zap logger.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if log == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Metrics records request duration per route pattern and status class.
func Metrics(reg *metric.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if reg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			reg.RequestDuration.
				WithLabelValues(route, strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
