// Package voice implements the voice session lifecycle: the outbound
// connection to the hosted voice service, the per-session state machine with
// its transcript, and the browser-facing relay.
package voice

// EventType names one notification from the voice collaborator.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventMessage     EventType = "message"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventError       EventType = "error"
)

// Event is one notification delivered to a session controller. Role,
// Transcript and Final are set for EventMessage; Err is set for EventError.
type Event struct {
	Type       EventType
	Role       string
	Transcript string
	Final      bool
	Err        error
}

// State is the lifecycle state of one voice session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateEnded      State = "ended"
	StateFailed     State = "failed"
)

// Mode selects what a session is for. Generate-questions sessions walk the
// intake workflow and never produce feedback; conduct-interview sessions run
// the interviewer assistant and submit the transcript for scoring.
type Mode string

const (
	ModeGenerateQuestions Mode = "generate-questions"
	ModeConductInterview  Mode = "conduct-interview"
)

// StartConfig carries the inputs for one session start command.
type StartConfig struct {
	UserID      string
	UserName    string
	Mode        Mode
	InterviewID string
	FeedbackID  string
	Questions   []string
}
