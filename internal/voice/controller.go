package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/interview"
)

// Stream is one live connection to the voice collaborator. Events are
// delivered in chronological order and the channel is closed when the
// connection is torn down.
type Stream interface {
	Events() <-chan Event

	// Stop asks the collaborator to end the call. Safe to call repeatedly.
	Stop()
}

// Dialer opens a Stream for a session start command.
type Dialer interface {
	Dial(ctx context.Context, cfg StartConfig) (Stream, error)
}

// FeedbackCreator persists a schema-validated feedback record for a
// completed session.
type FeedbackCreator interface {
	CreateFeedback(ctx context.Context, params interview.FeedbackParams) (string, error)
}

// Sink receives presentation updates for one session.
type Sink interface {
	OnStateChange(state State)
	OnTranscript(entry domain.TranscriptEntry)
	OnSpeaking(speaking bool)
	OnFeedback(feedbackID string)
	OnError(err error)
}

// Controller owns one voice session: its lifecycle state and the ordered
// transcript. A single goroutine consumes the event stream, so exactly one
// notification is processed at a time, in arrival order. A controller is
// one-shot; restarting after Ended or Failed means creating a new one.
type Controller struct {
	dialer   Dialer
	feedback FeedbackCreator
	sink     Sink
	logger   *slog.Logger

	mu         sync.Mutex
	cfg        StartConfig
	state      State
	transcript domain.Transcript
	stream     Stream
	speaking   bool
	started    bool

	done chan struct{}
}

// NewController creates an idle session controller.
func NewController(dialer Dialer, feedback FeedbackCreator, sink Sink, logger *slog.Logger) *Controller {
	return &Controller{
		dialer:   dialer,
		feedback: feedback,
		sink:     sink,
		logger:   logger.With("component", "voice"),
		state:    StateIdle,
		done:     make(chan struct{}),
	}
}

// Start moves the session from Idle to Connecting and dials the voice
// collaborator. Subsequent lifecycle transitions are driven by the event
// stream. ctx covers the dial only.
func (c *Controller) Start(ctx context.Context, cfg StartConfig) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("start session: already %s", state)
	}
	c.cfg = cfg
	c.state = StateConnecting
	c.mu.Unlock()

	c.sink.OnStateChange(StateConnecting)
	c.logger.Info("Starting voice session", "user_id", cfg.UserID, "mode", cfg.Mode)

	stream, err := c.dialer.Dial(ctx, cfg)
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()
		c.sink.OnError(err)
		c.sink.OnStateChange(StateFailed)
		return fmt.Errorf("dial voice service: %w", err)
	}

	c.mu.Lock()
	c.stream = stream
	c.started = true
	c.mu.Unlock()

	go c.consumeEvents(stream)
	return nil
}

// Stop asks the voice collaborator to end the call. The Ended transition and
// any feedback submission still run on the event goroutine when the
// collaborator's call-end notification arrives.
func (c *Controller) Stop() {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
}

// Wait blocks until the event loop has finished, including any feedback
// submission triggered by the session end. It returns immediately when the
// session never got past dialing.
func (c *Controller) Wait() {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

// Status returns the current lifecycle state.
func (c *Controller) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns a copy of the transcript accumulated so far.
func (c *Controller) Transcript() domain.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(domain.Transcript, len(c.transcript))
	copy(out, c.transcript)
	return out
}

func (c *Controller) consumeEvents(stream Stream) {
	defer close(c.done)

	for ev := range stream.Events() {
		c.handleEvent(ev)
	}
	// A stream that closes without a terminal notification ends the call.
	c.onCallEnd()
}

func (c *Controller) handleEvent(ev Event) {
	switch ev.Type {
	case EventCallStart:
		c.onCallStart()
	case EventMessage:
		c.onMessage(ev)
	case EventSpeechStart:
		c.onSpeaking(true)
	case EventSpeechEnd:
		c.onSpeaking(false)
	case EventCallEnd:
		c.onCallEnd()
	case EventError:
		c.onError(ev.Err)
	default:
		c.logger.Debug("Ignoring unknown voice event", "type", ev.Type)
	}
}

func (c *Controller) onCallStart() {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateActive
	c.mu.Unlock()

	c.sink.OnStateChange(StateActive)
	c.logger.Info("Call started")
}

func (c *Controller) onMessage(ev Event) {
	c.mu.Lock()
	if c.state != StateActive || !ev.Final {
		c.mu.Unlock()
		return
	}
	entry := domain.TranscriptEntry{
		Speaker: speakerFromRole(ev.Role),
		Text:    ev.Transcript,
	}
	c.transcript = append(c.transcript, entry)
	c.mu.Unlock()

	c.sink.OnTranscript(entry)
}

func (c *Controller) onSpeaking(speaking bool) {
	c.mu.Lock()
	if c.state != StateActive || c.speaking == speaking {
		c.mu.Unlock()
		return
	}
	c.speaking = speaking
	c.mu.Unlock()

	c.sink.OnSpeaking(speaking)
}

func (c *Controller) onCallEnd() {
	c.mu.Lock()
	if c.state == StateEnded || c.state == StateFailed {
		c.mu.Unlock()
		return
	}
	c.state = StateEnded
	// The transcript is frozen here: no event can append once state left Active.
	frozen := c.transcript
	cfg := c.cfg
	c.mu.Unlock()

	c.sink.OnStateChange(StateEnded)
	c.logger.Info("Call ended", "mode", cfg.Mode, "transcript_len", len(frozen))

	if cfg.Mode != ModeConductInterview || len(frozen) == 0 {
		return
	}

	// The session is over; the scoring call must not die with the request
	// that started it. Timeouts are the collaborator's responsibility.
	feedbackID, err := c.feedback.CreateFeedback(context.Background(), interview.FeedbackParams{
		InterviewID: cfg.InterviewID,
		UserID:      cfg.UserID,
		FeedbackID:  cfg.FeedbackID,
		Transcript:  frozen,
	})
	if err != nil {
		c.logger.Error("Feedback creation failed", "error", err, "interview_id", cfg.InterviewID)
		c.sink.OnError(err)
		return
	}
	c.sink.OnFeedback(feedbackID)
}

func (c *Controller) onError(err error) {
	c.mu.Lock()
	if c.state == StateEnded || c.state == StateFailed {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	c.mu.Unlock()

	c.logger.Warn("Voice session failed", "error", err)
	c.sink.OnError(err)
	c.sink.OnStateChange(StateFailed)
}

// speakerFromRole maps the collaborator's role labels onto transcript
// speakers. The human is the candidate; the voice side is the interviewer.
func speakerFromRole(role string) domain.Speaker {
	if role == "user" {
		return domain.SpeakerCandidate
	}
	return domain.SpeakerInterviewer
}
