package users

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/taskmanager-api/internal/apperr"
	"github.com/s1natex/taskmanager-api/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type sessionResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type profileResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// RegisterAuthRoutes mounts POST /register and POST /login.
func RegisterAuthRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Post("/register", register(svc, logger))
	r.Post("/login", login(svc, logger))
}

// RegisterProfileRoutes mounts GET and PUT /profile. The router must already
// carry the auth middleware.
func RegisterProfileRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Get("/profile", getProfile(svc, logger))
	r.Put("/profile", updateProfile(svc, logger))
}

func register(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteMessage(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		sess, err := svc.Register(r.Context(), RegisterInput(req))
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		logger.Info("user_registered", slog.String("user_id", sess.User.ID))
		apperr.WriteJSON(w, http.StatusCreated, sessionResponse{
			Message: "User registered successfully",
			Token:   sess.Token,
			User:    sess.User,
		})
	}
}

func login(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteMessage(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Email == "" || req.Password == "" {
			apperr.WriteMessage(w, http.StatusBadRequest, "Please provide email and password")
			return
		}
		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		logger.Info("user_logged_in", slog.String("user_id", sess.User.ID))
		apperr.WriteJSON(w, http.StatusOK, sessionResponse{
			Message: "Login successful",
			Token:   sess.Token,
			User:    sess.User,
		})
	}
}

func getProfile(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			apperr.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		u, err := svc.Profile(r.Context(), id)
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, u)
	}
}

func updateProfile(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFrom(r.Context())
		if !ok {
			apperr.WriteMessage(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteMessage(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		u, err := svc.UpdateProfile(r.Context(), id, ProfileUpdate(req))
		if err != nil {
			apperr.WriteError(w, r, logger, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, profileResponse{
			Message: "Profile updated successfully",
			User:    u,
		})
	}
}
