//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/voice"
)

func TestHealthHealthy(t *testing.T) {
	h := NewHealthHandler(newFakeRepo(), voice.NewSessionManager())

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.Checks["database"] != "ok" {
		t.Errorf("Unexpected health payload: %+v", resp)
	}
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	repo := newFakeRepo()
	repo.pingErr = errors.New("database locked")
	h := NewHealthHandler(repo, voice.NewSessionManager())

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", rr.Code)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "degraded" || resp.Checks["database"] != "unreachable" {
		t.Errorf("Unexpected health payload: %+v", resp)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)

	if !rl.Allow("key") || !rl.Allow("key") {
		t.Fatal("Expected the first two requests to pass")
	}
	if rl.Allow("key") {
		t.Fatal("Expected the third request to be limited")
	}
	if !rl.Allow("other") {
		t.Fatal("Expected an unrelated key to pass")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("key") {
		t.Fatal("Expected the window to reset")
	}
}
