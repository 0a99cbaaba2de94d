// Package interview implements the question-generation and feedback flows
// around the store and the text-generation collaborator.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/llm"
	"github.com/prepwise/prepwise/internal/shared"
	"github.com/prepwise/prepwise/internal/store"
)

const maxQuestionAmount = 20

// Service coordinates interview creation and feedback scoring. Every
// collaborator call is issued exactly once; failures are reported to the
// caller, which decides whether to re-invoke.
type Service struct {
	repo      store.Repository
	generator llm.Generator
	logger    *slog.Logger
}

// NewService creates an interview service.
func NewService(repo store.Repository, generator llm.Generator, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		generator: generator,
		logger:    logger.With("component", "interview"),
	}
}

// GenerateRequest carries one question-generation call.
type GenerateRequest struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	TechStack string `json:"techstack"`
	Amount    int    `json:"amount"`
	UserID    string `json:"userid"`
}

// Validate checks the request shape before any external call is made.
func (r GenerateRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Type) == "":
		return fmt.Errorf("%w: type is required", shared.ErrInvalidInput)
	case strings.TrimSpace(r.Role) == "":
		return fmt.Errorf("%w: role is required", shared.ErrInvalidInput)
	case strings.TrimSpace(r.Level) == "":
		return fmt.Errorf("%w: level is required", shared.ErrInvalidInput)
	case strings.TrimSpace(r.TechStack) == "":
		return fmt.Errorf("%w: techstack is required", shared.ErrInvalidInput)
	case strings.TrimSpace(r.UserID) == "":
		return fmt.Errorf("%w: userid is required", shared.ErrInvalidInput)
	case r.Amount < 1 || r.Amount > maxQuestionAmount:
		return fmt.Errorf("%w: amount must be between 1 and %d", shared.ErrInvalidInput, maxQuestionAmount)
	}
	return nil
}

// GenerateInterview requests req.Amount questions from the text-generation
// collaborator, persists them with the input metadata as a new interview
// record, and marks the record finalized. Nothing is persisted when the
// external call fails.
func (s *Service) GenerateInterview(ctx context.Context, req GenerateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	questions, err := s.generator.GenerateQuestions(ctx, llm.QuestionRequest{
		Role:      req.Role,
		Level:     req.Level,
		Type:      req.Type,
		TechStack: req.TechStack,
		Amount:    req.Amount,
	})
	if err != nil {
		return "", fmt.Errorf("generate questions: %w: %w", shared.ErrExternal, err)
	}

	interview := &domain.Interview{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Role:      req.Role,
		Type:      req.Type,
		Level:     req.Level,
		TechStack: splitTechStack(req.TechStack),
		Questions: questions,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateInterview(ctx, interview); err != nil {
		return "", fmt.Errorf("persist interview: %w: %w", shared.ErrExternal, err)
	}
	if err := s.repo.FinalizeInterview(ctx, interview.ID, questions); err != nil {
		return "", fmt.Errorf("finalize interview: %w: %w", shared.ErrExternal, err)
	}

	s.logger.Info("Interview created",
		"interview_id", interview.ID,
		"user_id", req.UserID,
		"questions", len(questions))
	return interview.ID, nil
}

// splitTechStack turns the comma-joined inbound field into the ordered list
// persisted with the record.
func splitTechStack(raw string) []string {
	parts := strings.Split(raw, ",")
	stack := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			stack = append(stack, trimmed)
		}
	}
	return stack
}
