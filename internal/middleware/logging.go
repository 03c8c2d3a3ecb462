package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/s1natex/taskmanager-api/internal/auth"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequestLogger writes one http_request line per request. The user id is
// included when an inner auth middleware bound one to the request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			lr := &loggedRequest{}
			r = r.WithContext(withLoggedRequest(r.Context(), lr))

			next.ServeHTTP(sw, r)

			dur := time.Since(start)
			attrs := []any{
				slog.String("req_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Float64("duration_ms", float64(dur.Microseconds())/1000.0),
				slog.Int("size", sw.bytes),
				slog.String("ip", clientIP(r)),
				slog.String("ua", r.UserAgent()),
			}
			if lr.userID != "" {
				attrs = append(attrs, slog.String("user_id", lr.userID))
			}
			logger.Info("http_request", attrs...)
		})
	}
}

// clientIP is the remote address, already rewritten by chi's RealIP when enabled.
func clientIP(r *http.Request) string {
	return r.RemoteAddr
}

// loggedRequest carries values from inner handlers back out to RequestLogger.
type loggedRequest struct {
	userID string
}

type loggedRequestKey struct{}

func withLoggedRequest(ctx context.Context, lr *loggedRequest) context.Context {
	return context.WithValue(ctx, loggedRequestKey{}, lr)
}

// noteIdentity records id on the enclosing RequestLogger entry, if any.
func noteIdentity(r *http.Request) {
	lr, ok := r.Context().Value(loggedRequestKey{}).(*loggedRequest)
	if !ok {
		return
	}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		lr.userID = id
	}
}
