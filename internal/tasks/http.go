package tasks

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/taskmanager-api/internal/apperr"
	"github.com/s1natex/taskmanager-api/internal/auth"
)

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
}

// updateTaskRequest keeps dueDate raw so that absent, null and a value differ.
type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Priority    *string         `json:"priority"`
	DueDate     json.RawMessage `json:"dueDate"`
}

type taskResponse struct {
	Message string `json:"message"`
	Task    Task   `json:"task"`
}

// RegisterRoutes mounts the task endpoints. The router must already carry
// the auth middleware; handlers take the owner only from the request context.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Get("/", listTasks(svc, logger))
	r.Post("/", createTask(svc, logger))
	r.Get("/{id}", getTask(svc, logger))
	r.Put("/{id}", updateTask(svc, logger))
	r.Delete("/{id}", deleteTask(svc, logger))
}

func createTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteMessage(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		in := NewTask{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
		}
		if req.DueDate != nil && *req.DueDate != "" {
			due, err := parseDueDate(*req.DueDate)
			if err != nil {
				apperr.WriteError(w, r, logger, err)
				return
			}
			in.DueDate = &due
		}

		t, err := svc.Create(r.Context(), owner, in)
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		apperr.WriteJSON(w, http.StatusCreated, taskResponse{Message: "Task created successfully", Task: t})
	}
}

func listTasks(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		tasks, err := svc.List(r.Context(), owner, ParseListParams(r.URL.Query()))
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, tasks)
	}
}

func getTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		t, err := svc.Get(r.Context(), owner, chi.URLParam(r, "id"))
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, t)
	}
}

func updateTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		var req updateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteMessage(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		p := Patch{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
		}
		if err := applyDueDate(&p, req.DueDate); err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}

		t, err := svc.Update(r.Context(), owner, chi.URLParam(r, "id"), p)
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, taskResponse{Message: "Task updated successfully", Task: t})
	}
}

func deleteTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerFrom(w, r)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		apperr.WriteMessage(w, http.StatusOK, "Task deleted successfully")
	}
}

// ownerFrom answers 401 itself when no identity is bound.
func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		apperr.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
	}
	return id, ok
}

func applyDueDate(p *Patch, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if bytes.Equal(raw, []byte("null")) {
		p.ClearDueDate = true
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ErrInvalidDueDate
	}
	if s == "" {
		p.ClearDueDate = true
		return nil
	}
	due, err := parseDueDate(s)
	if err != nil {
		return err
	}
	p.DueDate = &due
	return nil
}

func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDueDate
}
