package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/shared"
)

// FeedbackParams carries one feedback-creation call. FeedbackID selects
// overwrite semantics when the caller already holds a record identifier.
type FeedbackParams struct {
	InterviewID string
	UserID      string
	FeedbackID  string
	Transcript  domain.Transcript
}

// Validate checks the parameter shape before any external call is made.
func (p FeedbackParams) Validate() error {
	switch {
	case p.InterviewID == "":
		return fmt.Errorf("%w: interview id is required", shared.ErrInvalidInput)
	case p.UserID == "":
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	case len(p.Transcript) == 0:
		return fmt.Errorf("%w: transcript is empty", shared.ErrInvalidInput)
	}
	return nil
}

// CreateFeedback formats the frozen transcript into a prompt, requests a
// schema-constrained scoring object from the text-generation collaborator,
// and creates or overwrites the feedback record. It returns the feedback ID.
func (s *Service) CreateFeedback(ctx context.Context, params FeedbackParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	feedback, err := s.generator.GenerateFeedback(ctx, params.Transcript.Format())
	if err != nil {
		return "", fmt.Errorf("generate feedback: %w: %w", shared.ErrExternal, err)
	}

	feedback.ID = params.FeedbackID
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	feedback.InterviewID = params.InterviewID
	feedback.UserID = params.UserID
	feedback.CreatedAt = time.Now()

	if err := s.repo.UpsertFeedback(ctx, feedback); err != nil {
		return "", fmt.Errorf("persist feedback: %w: %w", shared.ErrExternal, err)
	}

	s.logger.Info("Feedback stored",
		"feedback_id", feedback.ID,
		"interview_id", params.InterviewID,
		"user_id", params.UserID,
		"overall_score", feedback.OverallScore)
	return feedback.ID, nil
}
