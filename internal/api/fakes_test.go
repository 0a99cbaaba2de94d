//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/identity"
	"github.com/prepwise/prepwise/internal/llm"
)

type fakeRepo struct {
	mu         sync.Mutex
	users      map[string]*domain.User
	interviews map[string]*domain.Interview
	feedback   map[string]*domain.Feedback
	pingErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      make(map[string]*domain.User),
		interviews: make(map[string]*domain.Interview),
		feedback:   make(map[string]*domain.Feedback),
	}
}

func feedbackKey(interviewID, userID string) string {
	return interviewID + ":" + userID
}

func (f *fakeRepo) CreateUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return errors.New("email already exists")
		}
	}
	copy := *user
	f.users[user.ID] = &copy
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	copy := *user
	return &copy, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) removeUser(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, userID)
}

func (f *fakeRepo) CreateInterview(_ context.Context, iv *domain.Interview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *iv
	f.interviews[iv.ID] = &copy
	return nil
}

func (f *fakeRepo) FinalizeInterview(_ context.Context, interviewID string, questions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv := f.interviews[interviewID]
	if iv == nil {
		return errors.New("interview not found")
	}
	iv.Questions = append([]string(nil), questions...)
	iv.Finalized = true
	return nil
}

func (f *fakeRepo) GetInterview(_ context.Context, interviewID string) (*domain.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv := f.interviews[interviewID]
	if iv == nil {
		return nil, nil
	}
	copy := *iv
	return &copy, nil
}

func (f *fakeRepo) ListInterviewsByUser(_ context.Context, userID string, limit int) ([]*domain.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Interview
	for _, iv := range f.interviews {
		if iv.UserID == userID {
			copy := *iv
			out = append(out, &copy)
		}
	}
	sortNewestFirst(out)
	return capLen(out, limit), nil
}

func (f *fakeRepo) ListLatestInterviews(_ context.Context, excludeUserID string, limit int) ([]*domain.Interview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Interview
	for _, iv := range f.interviews {
		if iv.Finalized && iv.UserID != excludeUserID {
			copy := *iv
			out = append(out, &copy)
		}
	}
	sortNewestFirst(out)
	return capLen(out, limit), nil
}

func (f *fakeRepo) UpsertFeedback(_ context.Context, fb *domain.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *fb
	f.feedback[feedbackKey(fb.InterviewID, fb.UserID)] = &copy
	return nil
}

func (f *fakeRepo) GetFeedback(_ context.Context, interviewID, userID string) (*domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb := f.feedback[feedbackKey(interviewID, userID)]
	if fb == nil {
		return nil, nil
	}
	copy := *fb
	return &copy, nil
}

func (f *fakeRepo) DeleteStaleUnfinalized(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeRepo) Close() error                 { return nil }

func (f *fakeRepo) interviewCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.interviews)
}

func sortNewestFirst(interviews []*domain.Interview) {
	sort.Slice(interviews, func(i, j int) bool {
		return interviews[i].CreatedAt.After(interviews[j].CreatedAt)
	})
}

func capLen(interviews []*domain.Interview, limit int) []*domain.Interview {
	if limit > 0 && len(interviews) > limit {
		return interviews[:limit]
	}
	return interviews
}

type fakeGenerator struct {
	mu          sync.Mutex
	questionErr error
	reqs        []llm.QuestionRequest
}

func (g *fakeGenerator) GenerateQuestions(_ context.Context, req llm.QuestionRequest) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	if g.questionErr != nil {
		return nil, g.questionErr
	}
	questions := make([]string, req.Amount)
	for i := range questions {
		questions[i] = fmt.Sprintf("Question %d", i+1)
	}
	return questions, nil
}

func (g *fakeGenerator) GenerateFeedback(_ context.Context, _ string) (*domain.Feedback, error) {
	return nil, errors.New("not used in these tests")
}

func seedUser(t *testing.T, repo *fakeRepo, id, name, email, password string) *domain.User {
	t.Helper()
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := &domain.User{ID: id, Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}

func seedInterview(t *testing.T, repo *fakeRepo, id, userID string, finalized bool, created time.Time) *domain.Interview {
	t.Helper()
	iv := &domain.Interview{
		ID:        id,
		UserID:    userID,
		Role:      "frontend",
		Type:      "technical",
		Level:     "junior",
		TechStack: []string{"react"},
		Questions: []string{"What is JSX?"},
		Finalized: finalized,
		CreatedAt: created,
	}
	if err := repo.CreateInterview(context.Background(), iv); err != nil {
		t.Fatalf("Failed to seed interview: %v", err)
	}
	if finalized {
		if err := repo.FinalizeInterview(context.Background(), id, iv.Questions); err != nil {
			t.Fatalf("Failed to finalize seeded interview: %v", err)
		}
	}
	return iv
}

func sessionCookie(t *testing.T, sessions *identity.Sessions, user *domain.User) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sessions.Issue(rec, user); err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == identity.SessionCookieName {
			return c
		}
	}
	t.Fatal("Expected a session cookie")
	return nil
}

func doRequest(router http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
