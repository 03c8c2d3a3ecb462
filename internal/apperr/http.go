package apperr

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Response is the error body every endpoint returns.
type Response struct {
	Message string `json:"message"`
}

// WriteJSON writes v as the JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto its kind's status and a client-safe message.
// Server errors are logged with the request id and replaced by a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := KindOf(err)
	if kind == KindServer && logger != nil {
		logger.Error("request_failed",
			slog.String("req_id", chimw.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	WriteJSON(w, kind.Status(), Response{Message: MessageOf(err)})
}

// WriteMessage writes a {message} body with an explicit status.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Message: message})
}
