package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// authMiddleware returns a chi-compatible middleware that validates Bearer token
// or Basic auth credentials using constant-time comparison. Failures are
// logged at Warn when a logger is given.
func authMiddleware(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				logAuthFailure(logger, r, "missing authorization header")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// Try Bearer token first.
			if cfg.BearerToken != "" {
				if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
					if constantTimeEqual(after, cfg.BearerToken) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			// Try Basic auth.
			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logAuthFailure(logger, r, "invalid credentials")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, detail string) {
	if logger == nil {
		return
	}
	logger.Warn("gateway auth failure",
		"detail", detail,
		"remote_addr", r.RemoteAddr,
		"method", r.Method,
		"path", r.URL.Path)
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
