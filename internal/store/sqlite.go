package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prepwise/prepwise/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. List-valued fields are
// stored as JSON text columns, keeping the accessor a thin parameterized
// read/write layer over document-style records.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		tech_stack_json TEXT NOT NULL,
		questions_json TEXT,
		finalized INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interviews_user ON interviews(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_interviews_latest ON interviews(created_at) WHERE finalized = 1;

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT NOT NULL,
		interview_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		overall_score INTEGER NOT NULL,
		category_scores_json TEXT NOT NULL,
		strengths_json TEXT NOT NULL,
		improvement_areas_json TEXT NOT NULL,
		summary TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (interview_id, user_id)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new account record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (id, name, email, password_hash, created_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var createdAt int64

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateInterview inserts a new interview record.
func (s *SQLiteStore) CreateInterview(ctx context.Context, interview *domain.Interview) error {
	techStack, err := json.Marshal(interview.TechStack)
	if err != nil {
		return fmt.Errorf("marshal tech stack: %w", err)
	}

	var questions interface{}
	if interview.Questions != nil {
		b, err := json.Marshal(interview.Questions)
		if err != nil {
			return fmt.Errorf("marshal questions: %w", err)
		}
		questions = string(b)
	}

	query := `
	INSERT INTO interviews (id, user_id, role, type, level, tech_stack_json, questions_json, finalized, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		interview.ID, interview.UserID, interview.Role, interview.Type, interview.Level,
		string(techStack), questions, interview.Finalized, interview.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create interview: %w", err)
	}
	return nil
}

// FinalizeInterview writes the generated question list and marks the record finalized.
func (s *SQLiteStore) FinalizeInterview(ctx context.Context, interviewID string, questions []string) error {
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	query := `UPDATE interviews SET questions_json = ?, finalized = 1 WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, string(questionsJSON), interviewID)
	if err != nil {
		return fmt.Errorf("finalize interview: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("interview not found: %s", interviewID)
	}

	return nil
}

// GetInterview retrieves an interview by ID.
func (s *SQLiteStore) GetInterview(ctx context.Context, interviewID string) (*domain.Interview, error) {
	query := `
		SELECT id, user_id, role, type, level, tech_stack_json, questions_json, finalized, created_at
		FROM interviews WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, interviewID)

	var interview domain.Interview
	var techStackJSON string
	var questionsJSON sql.NullString
	var createdAt int64

	err := row.Scan(
		&interview.ID, &interview.UserID, &interview.Role, &interview.Type, &interview.Level,
		&techStackJSON, &questionsJSON, &interview.Finalized, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan interview row: %w", err)
	}

	if err := unmarshalInterviewFields(&interview, techStackJSON, questionsJSON); err != nil {
		return nil, err
	}
	interview.CreatedAt = time.Unix(createdAt, 0)

	return &interview, nil
}

// ListInterviewsByUser returns a user's own interviews, newest first.
func (s *SQLiteStore) ListInterviewsByUser(ctx context.Context, userID string, limit int) ([]*domain.Interview, error) {
	query := `
		SELECT id, user_id, role, type, level, tech_stack_json, questions_json, finalized, created_at
		FROM interviews WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query user interviews: %w", err)
	}
	return collectInterviews(rows)
}

// ListLatestInterviews returns finalized interviews from everyone except
// excludeUserID, newest first.
func (s *SQLiteStore) ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]*domain.Interview, error) {
	query := `
		SELECT id, user_id, role, type, level, tech_stack_json, questions_json, finalized, created_at
		FROM interviews WHERE finalized = 1 AND user_id != ?
		ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest interviews: %w", err)
	}
	return collectInterviews(rows)
}

func collectInterviews(rows *sql.Rows) ([]*domain.Interview, error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close interview rows", "error", closeErr)
		}
	}()

	var interviews []*domain.Interview
	for rows.Next() {
		var interview domain.Interview
		var techStackJSON string
		var questionsJSON sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&interview.ID, &interview.UserID, &interview.Role, &interview.Type, &interview.Level,
			&techStackJSON, &questionsJSON, &interview.Finalized, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan interview row: %w", err)
		}

		if err := unmarshalInterviewFields(&interview, techStackJSON, questionsJSON); err != nil {
			return nil, err
		}
		interview.CreatedAt = time.Unix(createdAt, 0)
		interviews = append(interviews, &interview)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interviews: %w", err)
	}

	return interviews, nil
}

func unmarshalInterviewFields(interview *domain.Interview, techStackJSON string, questionsJSON sql.NullString) error {
	if err := json.Unmarshal([]byte(techStackJSON), &interview.TechStack); err != nil {
		return fmt.Errorf("unmarshal tech stack: %w", err)
	}
	if questionsJSON.Valid {
		if err := json.Unmarshal([]byte(questionsJSON.String), &interview.Questions); err != nil {
			return fmt.Errorf("unmarshal questions: %w", err)
		}
	}
	return nil
}

// UpsertFeedback creates or overwrites the feedback row for the
// (interview, user) pair.
func (s *SQLiteStore) UpsertFeedback(ctx context.Context, feedback *domain.Feedback) error {
	categoryScores, err := json.Marshal(feedback.CategoryScores)
	if err != nil {
		return fmt.Errorf("marshal category scores: %w", err)
	}
	strengths, err := json.Marshal(feedback.Strengths)
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}
	improvementAreas, err := json.Marshal(feedback.ImprovementAreas)
	if err != nil {
		return fmt.Errorf("marshal improvement areas: %w", err)
	}

	query := `
	INSERT INTO feedback (
		id, interview_id, user_id, overall_score, category_scores_json,
		strengths_json, improvement_areas_json, summary, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(interview_id, user_id) DO UPDATE SET
		id = excluded.id,
		overall_score = excluded.overall_score,
		category_scores_json = excluded.category_scores_json,
		strengths_json = excluded.strengths_json,
		improvement_areas_json = excluded.improvement_areas_json,
		summary = excluded.summary,
		created_at = excluded.created_at`

	_, err = s.db.ExecContext(ctx, query,
		feedback.ID, feedback.InterviewID, feedback.UserID, feedback.OverallScore,
		string(categoryScores), string(strengths), string(improvementAreas),
		feedback.Summary, feedback.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

// GetFeedback retrieves the feedback a user received for an interview.
func (s *SQLiteStore) GetFeedback(ctx context.Context, interviewID, userID string) (*domain.Feedback, error) {
	query := `
		SELECT id, interview_id, user_id, overall_score, category_scores_json,
		       strengths_json, improvement_areas_json, summary, created_at
		FROM feedback WHERE interview_id = ? AND user_id = ?`

	row := s.db.QueryRowContext(ctx, query, interviewID, userID)

	var feedback domain.Feedback
	var categoryScoresJSON, strengthsJSON, improvementAreasJSON string
	var createdAt int64

	err := row.Scan(
		&feedback.ID, &feedback.InterviewID, &feedback.UserID, &feedback.OverallScore,
		&categoryScoresJSON, &strengthsJSON, &improvementAreasJSON,
		&feedback.Summary, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan feedback row: %w", err)
	}

	if err := json.Unmarshal([]byte(categoryScoresJSON), &feedback.CategoryScores); err != nil {
		return nil, fmt.Errorf("unmarshal category scores: %w", err)
	}
	if err := json.Unmarshal([]byte(strengthsJSON), &feedback.Strengths); err != nil {
		return nil, fmt.Errorf("unmarshal strengths: %w", err)
	}
	if err := json.Unmarshal([]byte(improvementAreasJSON), &feedback.ImprovementAreas); err != nil {
		return nil, fmt.Errorf("unmarshal improvement areas: %w", err)
	}
	feedback.CreatedAt = time.Unix(createdAt, 0)

	return &feedback, nil
}

// DeleteStaleUnfinalized removes unfinalized interviews older than maxAge.
func (s *SQLiteStore) DeleteStaleUnfinalized(ctx context.Context, maxAge time.Duration) (int64, error) {
	threshold := time.Now().Add(-maxAge).Unix()
	query := `DELETE FROM interviews WHERE finalized = 0 AND created_at < ?`
	result, err := s.db.ExecContext(ctx, query, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete stale interviews: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
