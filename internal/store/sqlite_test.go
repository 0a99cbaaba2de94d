package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()

	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return repo
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	user := &domain.User{
		ID:           "u1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:    time.Unix(1700000000, 0),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected user, got nil")
	}
	if got.ID != "u1" || got.Name != "Ada" || got.PasswordHash != user.PasswordHash {
		t.Errorf("Unexpected user: %+v", got)
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("Expected created_at %v, got %v", user.CreatedAt, got.CreatedAt)
	}

	missing, err := repo.GetUser(ctx, "nope")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing user, got %+v", missing)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	first := &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	if err := repo.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	second := &domain.User{ID: "u2", Name: "Other", Email: "ada@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	if err := repo.CreateUser(ctx, second); err == nil {
		t.Fatal("Expected error for duplicate email, got nil")
	}
}

func TestInterviewFinalizeFlow(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	interview := &domain.Interview{
		ID:        "iv1",
		UserID:    "u1",
		Role:      "Frontend Developer",
		Type:      "technical",
		Level:     "junior",
		TechStack: []string{"react", "typescript"},
		CreatedAt: time.Unix(1700000000, 0),
	}
	if err := repo.CreateInterview(ctx, interview); err != nil {
		t.Fatalf("CreateInterview failed: %v", err)
	}

	got, err := repo.GetInterview(ctx, "iv1")
	if err != nil {
		t.Fatalf("GetInterview failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected interview, got nil")
	}
	if got.Finalized {
		t.Error("Expected new interview to be unfinalized")
	}
	if len(got.Questions) != 0 {
		t.Errorf("Expected no questions yet, got %v", got.Questions)
	}

	questions := []string{"Q1", "Q2", "Q3", "Q4", "Q5"}
	if err := repo.FinalizeInterview(ctx, "iv1", questions); err != nil {
		t.Fatalf("FinalizeInterview failed: %v", err)
	}

	got, err = repo.GetInterview(ctx, "iv1")
	if err != nil {
		t.Fatalf("GetInterview after finalize failed: %v", err)
	}
	if !got.Finalized {
		t.Error("Expected interview to be finalized")
	}
	if len(got.Questions) != 5 {
		t.Fatalf("Expected 5 questions, got %d", len(got.Questions))
	}
	for i, q := range questions {
		if got.Questions[i] != q {
			t.Errorf("Question %d: expected %q, got %q", i, q, got.Questions[i])
		}
	}
	if len(got.TechStack) != 2 || got.TechStack[0] != "react" || got.TechStack[1] != "typescript" {
		t.Errorf("Unexpected tech stack: %v", got.TechStack)
	}
}

func TestFinalizeMissingInterview(t *testing.T) {
	repo := newTestStore(t)

	err := repo.FinalizeInterview(context.Background(), "nope", []string{"Q1"})
	if err == nil {
		t.Fatal("Expected error for missing interview, got nil")
	}
}

func TestLatestInterviewsExcludesRequesterAndLimits(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)

	// 25 eligible finalized interviews from other users, distinct timestamps.
	for i := 0; i < 25; i++ {
		iv := &domain.Interview{
			ID:        fmt.Sprintf("other-%02d", i),
			UserID:    fmt.Sprintf("u%d", i%5+2),
			Role:      "Backend Developer",
			Type:      "technical",
			Level:     "mid",
			TechStack: []string{"go"},
			Questions: []string{"Q1"},
			Finalized: true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateInterview(ctx, iv); err != nil {
			t.Fatalf("CreateInterview %d failed: %v", i, err)
		}
	}

	// The requester's own finalized interview must never appear.
	own := &domain.Interview{
		ID: "own", UserID: "u1", Role: "r", Type: "t", Level: "l",
		TechStack: []string{"go"}, Questions: []string{"Q1"},
		Finalized: true, CreatedAt: base.Add(48 * time.Hour),
	}
	if err := repo.CreateInterview(ctx, own); err != nil {
		t.Fatalf("CreateInterview own failed: %v", err)
	}

	// Unfinalized records are excluded regardless of owner.
	pending := &domain.Interview{
		ID: "pending", UserID: "u9", Role: "r", Type: "t", Level: "l",
		TechStack: []string{"go"}, CreatedAt: base.Add(72 * time.Hour),
	}
	if err := repo.CreateInterview(ctx, pending); err != nil {
		t.Fatalf("CreateInterview pending failed: %v", err)
	}

	got, err := repo.ListLatestInterviews(ctx, "u1", 20)
	if err != nil {
		t.Fatalf("ListLatestInterviews failed: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("Expected 20 interviews, got %d", len(got))
	}
	for i, iv := range got {
		if iv.UserID == "u1" {
			t.Errorf("Result %d belongs to excluded user", i)
		}
		if iv.ID == "pending" {
			t.Errorf("Result %d is an unfinalized interview", i)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Errorf("Results not ordered newest first at index %d", i)
		}
	}
	// Newest eligible record comes first.
	if got[0].ID != "other-24" {
		t.Errorf("Expected other-24 first, got %s", got[0].ID)
	}
}

func TestListInterviewsByUser(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i := 0; i < 3; i++ {
		iv := &domain.Interview{
			ID:        fmt.Sprintf("iv-%d", i),
			UserID:    "u1",
			Role:      "r", Type: "t", Level: "l",
			TechStack: []string{"go"},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.CreateInterview(ctx, iv); err != nil {
			t.Fatalf("CreateInterview %d failed: %v", i, err)
		}
	}
	other := &domain.Interview{
		ID: "iv-other", UserID: "u2", Role: "r", Type: "t", Level: "l",
		TechStack: []string{"go"}, CreatedAt: base,
	}
	if err := repo.CreateInterview(ctx, other); err != nil {
		t.Fatalf("CreateInterview other failed: %v", err)
	}

	got, err := repo.ListInterviewsByUser(ctx, "u1", 50)
	if err != nil {
		t.Fatalf("ListInterviewsByUser failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 interviews, got %d", len(got))
	}
	if got[0].ID != "iv-2" || got[2].ID != "iv-0" {
		t.Errorf("Unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestFeedbackUpsertOverwrites(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	scores := make([]domain.CategoryScore, 0, len(domain.FeedbackCategories))
	for _, name := range domain.FeedbackCategories {
		scores = append(scores, domain.CategoryScore{Name: name, Score: 70, Comment: "solid"})
	}

	first := &domain.Feedback{
		ID:               "fb1",
		InterviewID:      "iv1",
		UserID:           "u1",
		OverallScore:     70,
		CategoryScores:   scores,
		Strengths:        []string{"clear answers"},
		ImprovementAreas: []string{"system design depth"},
		Summary:          "Good baseline performance.",
		CreatedAt:        time.Unix(1700000000, 0),
	}
	if err := repo.UpsertFeedback(ctx, first); err != nil {
		t.Fatalf("UpsertFeedback failed: %v", err)
	}

	got, err := repo.GetFeedback(ctx, "iv1", "u1")
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected feedback, got nil")
	}
	if got.ID != "fb1" || got.OverallScore != 70 {
		t.Errorf("Unexpected feedback: id=%s score=%d", got.ID, got.OverallScore)
	}
	if len(got.CategoryScores) != 5 {
		t.Fatalf("Expected 5 category scores, got %d", len(got.CategoryScores))
	}
	for i, name := range domain.FeedbackCategories {
		if got.CategoryScores[i].Name != name {
			t.Errorf("Category %d: expected %q, got %q", i, name, got.CategoryScores[i].Name)
		}
	}

	second := *first
	second.ID = "fb2"
	second.OverallScore = 85
	second.Summary = "Improved on the retake."
	if err := repo.UpsertFeedback(ctx, &second); err != nil {
		t.Fatalf("UpsertFeedback overwrite failed: %v", err)
	}

	got, err = repo.GetFeedback(ctx, "iv1", "u1")
	if err != nil {
		t.Fatalf("GetFeedback after overwrite failed: %v", err)
	}
	if got.ID != "fb2" || got.OverallScore != 85 {
		t.Errorf("Expected overwritten feedback fb2/85, got %s/%d", got.ID, got.OverallScore)
	}

	missing, err := repo.GetFeedback(ctx, "iv1", "u2")
	if err != nil {
		t.Fatalf("GetFeedback missing failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing feedback, got %+v", missing)
	}
}

func TestDeleteStaleUnfinalized(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now()

	records := []*domain.Interview{
		{ID: "stale", UserID: "u1", Role: "r", Type: "t", Level: "l", TechStack: []string{"go"}, CreatedAt: old},
		{ID: "fresh", UserID: "u1", Role: "r", Type: "t", Level: "l", TechStack: []string{"go"}, CreatedAt: fresh},
		{ID: "done", UserID: "u1", Role: "r", Type: "t", Level: "l", TechStack: []string{"go"},
			Questions: []string{"Q1"}, Finalized: true, CreatedAt: old},
	}
	for _, iv := range records {
		if err := repo.CreateInterview(ctx, iv); err != nil {
			t.Fatalf("CreateInterview %s failed: %v", iv.ID, err)
		}
	}

	deleted, err := repo.DeleteStaleUnfinalized(ctx, time.Hour)
	if err != nil {
		t.Fatalf("DeleteStaleUnfinalized failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted row, got %d", deleted)
	}

	if iv, _ := repo.GetInterview(ctx, "stale"); iv != nil {
		t.Error("Expected stale interview to be deleted")
	}
	if iv, _ := repo.GetInterview(ctx, "fresh"); iv == nil {
		t.Error("Expected fresh interview to survive")
	}
	if iv, _ := repo.GetInterview(ctx, "done"); iv == nil {
		t.Error("Expected finalized interview to survive")
	}
}
