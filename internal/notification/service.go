package notification

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Broadcaster is the WebSocket fan-out the service pushes toast events to.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Event is the wire payload delivered to the toast UI.
type Event struct {
	Message string    `json:"message"`
	Level   Level     `json:"level"`
	SentAt  time.Time `json:"sentAt"`
}

// Service broadcasts notifications to connected clients and logs them.
type Service struct {
	hub    Broadcaster
	logger zerolog.Logger
}

// NewService creates a notification service backed by the given broadcaster.
func NewService(hub Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		hub:    hub,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Notify delivers a toast to all connected clients. Fire-and-forget:
// delivery failures are logged, never returned.
func (s *Service) Notify(message string, level Level) {
	event := Event{
		Message: message,
		Level:   level,
		SentAt:  time.Now().UTC(),
	}

	logEvent := s.logger.Info()
	if level == LevelError {
		logEvent = s.logger.Warn()
	}
	logEvent.Str("level", string(level)).Msg(message)

	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast("toast", event); err != nil {
		s.logger.Debug().Err(err).Msg("failed to broadcast notification")
	}
}

// Recorder is a Notifier that captures notifications for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(message string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Message: message, Level: level, SentAt: time.Now().UTC()})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns the number of recorded notifications.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
