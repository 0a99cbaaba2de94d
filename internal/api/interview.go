package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/identity"
	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/shared"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// InterviewHandler handles question generation and interview retrieval.
type InterviewHandler struct {
	*Handler
	svc             *interview.Service
	generateLimiter *RateLimiter
}

// NewInterviewHandler creates a new interview handler.
func NewInterviewHandler(base *Handler, svc *interview.Service, generateLimiter *RateLimiter) *InterviewHandler {
	return &InterviewHandler{
		Handler:         base,
		svc:             svc,
		generateLimiter: generateLimiter,
	}
}

// RegisterRoutes registers interview routes. The generate webhook is public;
// everything else requires a session.
func (h *InterviewHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/vapi/generate", h.Generate)
	r.Route("/api/interviews", func(r chi.Router) {
		r.Use(identity.RequireAuth)
		r.Get("/latest", h.Latest)
		r.Get("/mine", h.Mine)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/feedback", h.GetFeedback)
	})
}

// Generate handles the question generation webhook called by the voice
// workflow on the user's behalf.
func (h *InterviewHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req interview.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request body"})
		return
	}

	// Validate before rate limiting so malformed requests, which all share
	// the empty user ID key, cannot drain anyone's budget.
	if err := req.Validate(); err != nil {
		JSON(w, statusFor(err), map[string]interface{}{"success": false, "error": err.Error()})
		return
	}

	if !h.generateLimiter.Allow(req.UserID) {
		slog.Warn("Generate rate limit exceeded", "user_id", req.UserID)
		JSON(w, http.StatusTooManyRequests, map[string]interface{}{"success": false, "error": "too many requests"})
		return
	}

	interviewID, err := h.svc.GenerateInterview(r.Context(), req)
	if err != nil {
		msg := "failed to generate interview"
		if shared.IsInvalidInput(err) {
			msg = err.Error()
		}
		slog.Error("Interview generation failed", "error", err, "user_id", req.UserID)
		JSON(w, statusFor(err), map[string]interface{}{"success": false, "error": msg})
		return
	}

	slog.Info("Interview generated", "interview_id", interviewID, "user_id", req.UserID)
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Latest returns recent finalized interviews from other users.
func (h *InterviewHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	interviews, err := h.repo.ListLatestInterviews(r.Context(), userID, listLimit(r))
	if err != nil {
		slog.Error("Failed to list latest interviews", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list interviews")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"interviews": nonNil(interviews)})
}

// Mine returns the caller's interviews, newest first.
func (h *InterviewHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	interviews, err := h.repo.ListInterviewsByUser(r.Context(), userID, listLimit(r))
	if err != nil {
		slog.Error("Failed to list interviews", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list interviews")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"interviews": nonNil(interviews)})
}

// Get returns a single interview. Any signed-in user may view any interview;
// taking an interview from the community list depends on that.
func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")

	iv, err := h.repo.GetInterview(r.Context(), interviewID)
	if err != nil {
		slog.Error("Failed to load interview", "error", err, "interview_id", interviewID)
		Error(w, http.StatusInternalServerError, "failed to load interview")
		return
	}
	if iv == nil {
		Error(w, http.StatusNotFound, "interview not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"interview": iv})
}

// GetFeedback returns the caller's feedback for an interview.
func (h *InterviewHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")
	userID := identity.UserIDFromContext(r.Context())

	fb, err := h.repo.GetFeedback(r.Context(), interviewID, userID)
	if err != nil {
		slog.Error("Failed to load feedback", "error", err, "interview_id", interviewID, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}
	if fb == nil {
		Error(w, http.StatusNotFound, "feedback not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"feedback": fb})
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

func nonNil(interviews []*domain.Interview) []*domain.Interview {
	if interviews == nil {
		return []*domain.Interview{}
	}
	return interviews
}
