package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/identity"
	"github.com/prepwise/prepwise/internal/store"
)

// Handler upgrades /ws/voice connections and relays commands and session
// events between the browser and the session controller.
type Handler struct {
	repo          store.Repository
	dialer        Dialer
	feedback      FeedbackCreator
	sessions      *SessionManager
	sessionLog    *SessionLogger
	allowedOrigin string
	isDev         bool
}

// NewHandler creates the browser-facing relay handler.
func NewHandler(repo store.Repository, dialer Dialer, feedback FeedbackCreator, sessions *SessionManager, sessionLog *SessionLogger, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		repo:          repo,
		dialer:        dialer,
		feedback:      feedback,
		sessions:      sessions,
		sessionLog:    sessionLog,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsCommand represents one inbound browser command.
type wsCommand struct {
	Type        string `json:"type"`
	Mode        string `json:"mode,omitempty"`
	InterviewID string `json:"interviewId,omitempty"`
	FeedbackID  string `json:"feedbackId,omitempty"`
}

// wsEvent is the JSON envelope of every frame pushed to the browser.
type wsEvent struct {
	Type       string `json:"type"`
	State      string `json:"state,omitempty"`
	Speaker    string `json:"speaker,omitempty"`
	Text       string `json:"text,omitempty"`
	FeedbackID string `json:"feedbackId,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	userName := identity.UserNameFromContext(r.Context())
	slog.Info("Voice relay connection request", "user_id", userID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sessions.Register(userID, ws)
	defer h.sessions.Unregister(userID, ws)

	sessionID := uuid.NewString()
	client := &wsClient{conn: ws}
	sink := &wsSink{client: client, log: h.sessionLog, sessionID: sessionID, userID: userID}

	var ctrl *Controller
	defer func() {
		if ctrl != nil {
			// Hanging up on disconnect still runs the session-end path,
			// including any feedback submission.
			ctrl.Stop()
			ctrl.Wait()
		}
		slog.Info("Voice relay disconnected", "user_id", userID, "session_id", sessionID)
	}()

	for {
		_, data, err := ws.Read(r.Context())
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			client.writeError("malformed command")
			continue
		}

		switch cmd.Type {
		case "start":
			next, err := h.startSession(r.Context(), ctrl, cmd, userID, userName, sink)
			if err != nil {
				slog.Warn("Rejected voice start command", "error", err, "user_id", userID)
				client.writeError(err.Error())
				continue
			}
			ctrl = next
		case "stop":
			if ctrl != nil {
				ctrl.Stop()
			}
		case "ping":
			if err := client.writeJSON(wsEvent{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			slog.Debug("Ignoring unknown voice command", "type", cmd.Type, "user_id", userID)
		}
	}
}

// startSession validates a start command, resolves the question list for
// conduct-interview mode, and spins up a fresh controller. A controller in a
// non-terminal state blocks new starts for this connection.
func (h *Handler) startSession(ctx context.Context, current *Controller, cmd wsCommand, userID, userName string, sink Sink) (*Controller, error) {
	if current != nil {
		switch current.Status() {
		case StateEnded, StateFailed:
		default:
			return nil, fmt.Errorf("session already active")
		}
	}

	cfg := StartConfig{
		UserID:      userID,
		UserName:    userName,
		Mode:        Mode(cmd.Mode),
		InterviewID: cmd.InterviewID,
		FeedbackID:  cmd.FeedbackID,
	}

	switch cfg.Mode {
	case ModeGenerateQuestions:
	case ModeConductInterview:
		if cfg.InterviewID == "" {
			return nil, fmt.Errorf("interviewId is required to conduct an interview")
		}
		iv, err := h.repo.GetInterview(ctx, cfg.InterviewID)
		if err != nil {
			return nil, fmt.Errorf("load interview: %w", err)
		}
		if iv == nil || !iv.Finalized {
			return nil, fmt.Errorf("interview not found")
		}
		cfg.Questions = iv.Questions
	default:
		return nil, fmt.Errorf("unknown session mode %q", cmd.Mode)
	}

	ctrl := NewController(h.dialer, h.feedback, sink, slog.Default())
	if err := ctrl.Start(ctx, cfg); err != nil {
		// The sink already carried the failure to the browser.
		slog.Warn("Voice session start failed", "error", err, "user_id", userID)
	}
	return ctrl, nil
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// wsClient serializes writes to one browser connection. Writes use a
// background context since the WebSocket library tracks its own connection
// state.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(context.Background(), websocket.MessageText, data)
}

func (c *wsClient) writeError(msg string) {
	if err := c.writeJSON(wsEvent{Type: "error", Message: msg}); err != nil {
		slog.Debug("Failed to send error frame", "error", err)
	}
}

// wsSink pushes controller updates to the browser and the session log.
type wsSink struct {
	client    *wsClient
	log       *SessionLogger
	sessionID string
	userID    string
}

var _ Sink = (*wsSink)(nil)

func (s *wsSink) OnStateChange(state State) {
	s.push(wsEvent{Type: "status", State: string(state)},
		SessionEvent{Type: "status", Detail: string(state)})
}

func (s *wsSink) OnTranscript(entry domain.TranscriptEntry) {
	s.push(wsEvent{Type: "transcript", Speaker: string(entry.Speaker), Text: entry.Text},
		SessionEvent{Type: "transcript", Speaker: string(entry.Speaker), Text: entry.Text})
}

func (s *wsSink) OnSpeaking(speaking bool) {
	frameType := "speech-end"
	if speaking {
		frameType = "speech-start"
	}
	s.push(wsEvent{Type: frameType}, SessionEvent{Type: frameType})
}

func (s *wsSink) OnFeedback(feedbackID string) {
	s.push(wsEvent{Type: "feedback", FeedbackID: feedbackID},
		SessionEvent{Type: "feedback", Detail: feedbackID})
}

func (s *wsSink) OnError(err error) {
	s.push(wsEvent{Type: "error", Message: err.Error()},
		SessionEvent{Type: "error", Detail: err.Error()})
}

func (s *wsSink) push(frame wsEvent, logEntry SessionEvent) {
	if err := s.client.writeJSON(frame); err != nil {
		slog.Debug("Failed to push voice event", "type", frame.Type, "error", err)
	}
	logEntry.SessionID = s.sessionID
	logEntry.UserID = s.userID
	s.log.Log(logEntry)
}
