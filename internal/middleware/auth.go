package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/s1natex/taskmanager-api/internal/apperr"
	"github.com/s1natex/taskmanager-api/internal/auth"
)

// TokenVerifier returns the identity a token was issued for.
type TokenVerifier interface {
	Verify(token string, now time.Time) (string, error)
}

type AuthConfig struct {
	Verifier  TokenVerifier
	SkipPaths []string
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

const bearerChallenge = `Bearer realm="tasks"`

// AuthMiddleware admits requests carrying a valid bearer token and binds the
// token's identity to the request context. Every failure gets the same 401.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, logger, "missing")
				return
			}
			id, err := cfg.Verifier.Verify(token, now())
			if err != nil {
				reject(w, r, logger, failureReason(err))
				return
			}

			ctx := auth.WithIdentity(r.Context(), id)
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", id))
			r = r.WithContext(ctx)
			noteIdentity(r)
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from "Bearer <token>"; the scheme is
// case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid"
	}
	return "error"
}

func reject(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
	logger.Debug("auth_rejected",
		slog.String("reason", reason),
		slog.String("path", r.URL.Path),
	)
	w.Header().Set("WWW-Authenticate", bearerChallenge)
	apperr.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
}
