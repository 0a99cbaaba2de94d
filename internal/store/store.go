// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/prepwise/prepwise/internal/domain"
)

// Repository defines the interface for persisting users, interviews and
// feedback. Lookups return (nil, nil) when no record matches.
type Repository interface {
	// CreateUser inserts a new account record.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateInterview inserts a new, typically unfinalized, interview record.
	CreateInterview(ctx context.Context, interview *domain.Interview) error

	// FinalizeInterview writes the generated question list and marks the
	// record finalized.
	FinalizeInterview(ctx context.Context, interviewID string, questions []string) error

	// GetInterview retrieves an interview by ID.
	GetInterview(ctx context.Context, interviewID string) (*domain.Interview, error)

	// ListInterviewsByUser returns a user's own interviews, newest first.
	ListInterviewsByUser(ctx context.Context, userID string, limit int) ([]*domain.Interview, error)

	// ListLatestInterviews returns finalized interviews from everyone except
	// excludeUserID, newest first.
	ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]*domain.Interview, error)

	// UpsertFeedback creates or overwrites the feedback row for the
	// (interview, user) pair.
	UpsertFeedback(ctx context.Context, feedback *domain.Feedback) error

	// GetFeedback retrieves the feedback a user received for an interview.
	GetFeedback(ctx context.Context, interviewID, userID string) (*domain.Feedback, error)

	// DeleteStaleUnfinalized removes unfinalized interviews older than maxAge
	// and reports how many rows were deleted.
	DeleteStaleUnfinalized(ctx context.Context, maxAge time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the
	// database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
