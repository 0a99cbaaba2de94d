package voice

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionLogConfig controls NDJSON logging of voice session events.
type SessionLogConfig struct {
	// Enabled writes one file per session under Dir/<user>/<session>.ndjson.
	Enabled bool
	Dir     string

	// GlobalEnabled appends every event to a single file at GlobalPath.
	GlobalEnabled bool
	GlobalPath    string

	// QueueSize bounds the async write queue. Events are dropped, never
	// blocked on, when the queue is full.
	QueueSize int
}

// SessionEvent is one NDJSON line in the session log.
type SessionEvent struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Speaker   string    `json:"speaker,omitempty"`
	Text      string    `json:"text,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// SessionLogger appends session events as NDJSON for later inspection.
// Writing happens on a dedicated goroutine so logging never blocks the
// session event loop.
type SessionLogger struct {
	cfg    SessionLogConfig
	logger *slog.Logger
	queue  chan SessionEvent
	done   chan struct{}

	mu     sync.Mutex
	closed bool

	// Owned by the worker goroutine.
	files  map[string]*os.File
	global *os.File
}

// NewSessionLogger creates the logger and starts its write worker. With both
// outputs disabled, Log is a no-op.
func NewSessionLogger(cfg SessionLogConfig, logger *slog.Logger) (*SessionLogger, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	l := &SessionLogger{
		cfg:    cfg,
		logger: logger.With("component", "session-log"),
		queue:  make(chan SessionEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		files:  make(map[string]*os.File),
	}

	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create session log dir: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0755); err != nil {
			return nil, fmt.Errorf("create global session log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open global session log: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

// Log enqueues one event. It never blocks; when the queue is full the event
// is dropped.
func (l *SessionLogger) Log(ev SessionEvent) {
	if l == nil || (!l.cfg.Enabled && !l.cfg.GlobalEnabled) {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- ev:
	default:
		l.logger.Debug("Session log queue full, dropping event", "type", ev.Type)
	}
}

// Close drains the queue and closes all log files.
func (l *SessionLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	return nil
}

func (l *SessionLogger) run() {
	defer close(l.done)

	for ev := range l.queue {
		l.write(ev)
	}
	l.closeFiles()
}

func (l *SessionLogger) write(ev SessionEvent) {
	line, err := json.Marshal(ev)
	if err != nil {
		l.logger.Warn("Failed to marshal session event", "error", err)
		return
	}
	line = append(line, '\n')

	if l.cfg.Enabled {
		f, err := l.sessionFile(ev.UserID, ev.SessionID)
		if err != nil {
			l.logger.Warn("Failed to open session log file", "error", err)
		} else if _, err := f.Write(line); err != nil {
			l.logger.Warn("Failed to write session log", "error", err)
		}
	}

	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			l.logger.Warn("Failed to write global session log", "error", err)
		}
	}
}

func (l *SessionLogger) sessionFile(userID, sessionID string) (*os.File, error) {
	key := userID + "/" + sessionID
	if f, ok := l.files[key]; ok {
		return f, nil
	}

	dir := filepath.Join(l.cfg.Dir, userID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, sessionID+".ndjson"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l.files[key] = f
	return f, nil
}

func (l *SessionLogger) closeFiles() {
	for key, f := range l.files {
		if err := f.Close(); err != nil {
			l.logger.Debug("Failed to close session log file", "file", key, "error", err)
		}
	}
	if l.global != nil {
		if err := l.global.Close(); err != nil {
			l.logger.Debug("Failed to close global session log", "error", err)
		}
	}
}
