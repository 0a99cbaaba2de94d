// Package llm wraps the external text-generation collaborator behind a small
// interface so callers can substitute test doubles.
package llm

import (
	"context"

	"github.com/prepwise/prepwise/internal/domain"
)

// QuestionRequest describes one question-generation call.
type QuestionRequest struct {
	Role      string
	Level     string
	Type      string
	TechStack string // comma-joined
	Amount    int
}

// Generator produces interview questions and structured feedback. Every call
// is issued exactly once; failures are returned to the caller, never retried.
type Generator interface {
	// GenerateQuestions returns exactly req.Amount interview questions.
	GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error)

	// GenerateFeedback scores a formatted transcript and returns a feedback
	// object validated against the fixed category schema. Only the score and
	// text fields are populated; identifiers are the caller's concern.
	GenerateFeedback(ctx context.Context, transcript string) (*domain.Feedback, error)
}
