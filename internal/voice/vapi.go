package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// Client dials the hosted voice service. Generate-questions sessions run the
// intake workflow; conduct-interview sessions run the interviewer assistant
// with the question list injected as a template variable.
type Client struct {
	host        string
	apiKey      string
	assistantID string
	workflowID  string
	logger      *slog.Logger
}

var _ Dialer = (*Client)(nil)

// NewClient creates a voice service client.
func NewClient(host, apiKey, assistantID, workflowID string, logger *slog.Logger) *Client {
	return &Client{
		host:        host,
		apiKey:      apiKey,
		assistantID: assistantID,
		workflowID:  workflowID,
		logger:      logger.With("component", "vapi"),
	}
}

// vapiFrame is the JSON envelope of every frame on the voice service socket.
type vapiFrame struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	Message        string `json:"message,omitempty"`
}

// startFrame opens a call once the socket is up.
type startFrame struct {
	Type           string            `json:"type"`
	AssistantID    string            `json:"assistantId,omitempty"`
	WorkflowID     string            `json:"workflowId,omitempty"`
	VariableValues map[string]string `json:"variableValues"`
}

// Dial connects to the voice service, sends the start frame and returns the
// live stream. The collaborator answers with call-start once audio is up.
func (c *Client) Dial(ctx context.Context, cfg StartConfig) (Stream, error) {
	conn, _, err := websocket.Dial(ctx, c.callURL(), &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + c.apiKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dial voice service: %w", err)
	}

	sess := &vapiSession{
		conn:   conn,
		events: make(chan Event, 16),
		logger: c.logger,
	}

	if err := sess.sendStart(ctx, c.startFrameFor(cfg)); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "start failed")
		return nil, fmt.Errorf("send start frame: %w", err)
	}

	go sess.readLoop()
	return sess, nil
}

func (c *Client) callURL() string {
	host := strings.TrimSuffix(c.host, "/")
	if !strings.Contains(host, "://") {
		host = "wss://" + host
	}
	return host + "/call"
}

func (c *Client) startFrameFor(cfg StartConfig) startFrame {
	frame := startFrame{
		Type: "start",
		VariableValues: map[string]string{
			"username": cfg.UserName,
			"userid":   cfg.UserID,
		},
	}
	if cfg.Mode == ModeGenerateQuestions {
		frame.WorkflowID = c.workflowID
		return frame
	}
	frame.AssistantID = c.assistantID
	frame.VariableValues["questions"] = formatQuestions(cfg.Questions)
	return frame
}

// formatQuestions renders the fixed question list as the newline-separated
// bullet lines the interviewer assistant template expects.
func formatQuestions(questions []string) string {
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		lines = append(lines, "- "+q)
	}
	return strings.Join(lines, "\n")
}

// vapiSession is one live call. readLoop is the only writer to events and
// closes it on exit, always after emitting a terminal notification.
type vapiSession struct {
	conn      *websocket.Conn
	events    chan Event
	logger    *slog.Logger
	stopped   atomic.Bool
	closeOnce sync.Once
}

var _ Stream = (*vapiSession)(nil)

// Events returns the notification channel.
func (s *vapiSession) Events() <-chan Event {
	return s.events
}

// Stop hangs up: a best-effort stop frame, then a normal close. The read
// loop turns the resulting close into a call-end notification.
func (s *vapiSession) Stop() {
	s.stopped.Store(true)
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.writeJSON(ctx, vapiFrame{Type: "stop"}); err != nil {
			s.logger.Debug("Failed to send stop frame", "error", err)
		}
		if err := s.conn.Close(websocket.StatusNormalClosure, "stop"); err != nil {
			s.logger.Debug("Failed to close voice socket", "error", err)
		}
	})
}

func (s *vapiSession) sendStart(ctx context.Context, frame startFrame) error {
	return s.writeJSON(ctx, frame)
}

func (s *vapiSession) writeJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *vapiSession) readLoop() {
	defer close(s.events)

	ctx := context.Background()
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			s.handleReadError(err)
			return
		}

		var frame vapiFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn("Discarding malformed voice frame", "error", err)
			continue
		}
		s.dispatch(frame)
	}
}

func (s *vapiSession) dispatch(frame vapiFrame) {
	switch frame.Type {
	case "call-start":
		s.events <- Event{Type: EventCallStart}
	case "call-end":
		s.events <- Event{Type: EventCallEnd}
	case "transcript":
		s.events <- Event{
			Type:       EventMessage,
			Role:       frame.Role,
			Transcript: frame.Transcript,
			Final:      frame.TranscriptType == "final",
		}
	case "speech-start":
		s.events <- Event{Type: EventSpeechStart}
	case "speech-end":
		s.events <- Event{Type: EventSpeechEnd}
	case "error":
		s.events <- Event{Type: EventError, Err: fmt.Errorf("voice service: %s", frame.Message)}
	default:
		s.logger.Debug("Ignoring unknown voice frame", "type", frame.Type)
	}
}

// handleReadError converts the socket teardown into a terminal notification.
// Our own Stop and the collaborator's normal close both end the call cleanly;
// anything else is a failure.
func (s *vapiSession) handleReadError(err error) {
	if s.stopped.Load() || isNormalClose(err) {
		s.events <- Event{Type: EventCallEnd}
		return
	}
	s.events <- Event{Type: EventError, Err: fmt.Errorf("voice stream: %w", err)}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
