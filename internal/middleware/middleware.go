package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/PrecinctPulse/PP-Backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// TokenVerifier checks a caller-supplied admin token against stored credentials.
type TokenVerifier interface {
	VerifyAdminToken(token string) error
}

// BcryptVerifier verifies tokens against a bcrypt hash loaded at startup
// (ADMIN_TOKEN_HASH). An empty hash rejects everything.
type BcryptVerifier struct {
	Hash string
}

func (v BcryptVerifier) VerifyAdminToken(token string) error {
	return bcrypt.CompareHashAndPassword([]byte(v.Hash), []byte(token))
}

func AdminMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if token == "" {
				http.Error(w, "Missing admin token", http.StatusUnauthorized)
				return
			}

			if err := verifier.VerifyAdminToken(token); err != nil {
				http.Error(w, "Invalid admin token", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), utils.ContextAdminKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var allowed = map[string]struct{}{
	"http://localhost:5173":                {},
	"http://localhost:5174":                {},
	"https://precinctpulse.github.io":      {},
	"https://dashboard-dev.precinct.pulse": {},
	"https://dashboard.precinct.pulse":     {},
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it's on our allow-list
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware applies a per-client token bucket keyed by remote IP.
// Repeated dashboard re-renders can hammer the query endpoints; this keeps one
// misbehaving client from starving the rest.
func RateLimitMiddleware(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		lim, ok := limiters[key]
		if !ok {
			lim = rate.NewLimiter(rps, burst)
			limiters[key] = lim
		}
		return lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !limiterFor(host).Allow() {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
