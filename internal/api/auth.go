package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/identity"
)

const minPasswordLength = 8

// AuthHandler handles account signup, signin and session endpoints.
type AuthHandler struct {
	*Handler
	sessions      *identity.Sessions
	signinLimiter *RateLimiter
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler, sessions *identity.Sessions, signinLimiter *RateLimiter) *AuthHandler {
	return &AuthHandler{
		Handler:       base,
		sessions:      sessions,
		signinLimiter: signinLimiter,
	}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/signin", h.Signin)
		r.Post("/signout", h.Signout)
		r.With(identity.RequireAuth).Get("/me", h.Me)
	})
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *signupRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case req.Name == "":
		return "name is required"
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return "a valid email is required"
	case len(req.Password) < minPasswordLength:
		return "password must be at least 8 characters"
	}
	return ""
}

// Signup creates an account and signs the new user in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		Error(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	existing, err := h.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		slog.Error("Failed to look up email", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	if existing != nil {
		Error(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := h.repo.CreateUser(ctx, user); err != nil {
		slog.Error("Failed to create user", "error", err, "email", req.Email)
		Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	if err := h.sessions.Issue(w, user); err != nil {
		slog.Error("Failed to issue session", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("User signed up", "user_id", user.ID)
	JSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signin verifies credentials and sets the session cookie.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	if !h.signinLimiter.Allow(identity.IPFromRequest(r)) {
		Error(w, http.StatusTooManyRequests, "too many signin attempts")
		return
	}

	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to look up user", "error", err)
		Error(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if user == nil || !identity.CheckPassword(user.PasswordHash, req.Password) {
		Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := h.sessions.Issue(w, user); err != nil {
		slog.Error("Failed to issue session", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("User signed in", "user_id", user.ID)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// Signout clears the session cookie.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the current user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load user", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	if user == nil {
		// The session outlived the account.
		h.sessions.Clear(w)
		Error(w, http.StatusUnauthorized, "account not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
