// Package progress broadcasts activity progress events to connected
// WebSocket clients. Downloads are the main producer; maintenance tasks
// reuse the same event stream.
package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ActivityType identifies the type of activity being tracked.
type ActivityType string

const (
	ActivityTypeDownload    ActivityType = "download"
	ActivityTypeMaintenance ActivityType = "maintenance"
)

// Status represents the current state of an activity.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Indeterminate marks an activity whose total size is unknown.
const Indeterminate = -1

// Activity is one trackable activity with progress.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Subtitle    string       `json:"subtitle"`
	Progress    int          `json:"progress"` // 0-100, Indeterminate when unknown
	Status      Status       `json:"status"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// EventType identifies the type of progress event.
type EventType string

const (
	EventTypeStarted   EventType = "progress:started"
	EventTypeUpdate    EventType = "progress:update"
	EventTypeCompleted EventType = "progress:completed"
	EventTypeError     EventType = "progress:error"
)

// Broadcaster delivers events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Tracker tracks and broadcasts progress for active activities.
type Tracker struct {
	hub        Broadcaster
	activities map[string]*Activity
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewTracker creates a progress tracker. A nil hub disables broadcasting.
func NewTracker(hub Broadcaster, logger zerolog.Logger) *Tracker {
	return &Tracker{
		hub:        hub,
		activities: make(map[string]*Activity),
		logger:     logger.With().Str("component", "progress").Logger(),
	}
}

// Start begins tracking a new activity.
func (t *Tracker) Start(id string, activityType ActivityType, title string) *Activity {
	t.mu.Lock()
	defer t.mu.Unlock()

	activity := &Activity{
		ID:        id,
		Type:      activityType,
		Title:     title,
		Subtitle:  "Starting...",
		Status:    StatusInProgress,
		StartedAt: time.Now(),
	}

	t.activities[id] = activity
	t.broadcast(EventTypeStarted, activity)

	t.logger.Debug().
		Str("id", id).
		Str("type", string(activityType)).
		Str("title", title).
		Msg("Activity started")

	return activity
}

// Update updates an activity's subtitle and progress.
func (t *Tracker) Update(id string, subtitle string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	activity, exists := t.activities[id]
	if !exists {
		return
	}

	activity.Subtitle = subtitle
	activity.Progress = progress

	t.broadcast(EventTypeUpdate, activity)
}

// Complete marks an activity as completed and drops it from tracking.
func (t *Tracker) Complete(id string, subtitle string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	activity, exists := t.activities[id]
	if !exists {
		return
	}

	now := time.Now()
	activity.Status = StatusCompleted
	activity.Progress = 100
	activity.Subtitle = subtitle
	activity.CompletedAt = &now

	t.broadcast(EventTypeCompleted, activity)
	delete(t.activities, id)

	t.logger.Debug().
		Str("id", id).
		Str("title", activity.Title).
		Msg("Activity completed")
}

// Fail marks an activity as failed and drops it from tracking.
func (t *Tracker) Fail(id string, errorMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	activity, exists := t.activities[id]
	if !exists {
		return
	}

	now := time.Now()
	activity.Status = StatusFailed
	activity.Subtitle = errorMsg
	activity.CompletedAt = &now

	t.broadcast(EventTypeError, activity)
	delete(t.activities, id)

	t.logger.Debug().
		Str("id", id).
		Str("title", activity.Title).
		Str("error", errorMsg).
		Msg("Activity failed")
}

// Get returns an activity by ID, nil if not tracked.
func (t *Tracker) Get(id string) *Activity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activities[id]
}

// Active returns all activities currently tracked.
func (t *Tracker) Active() []*Activity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]*Activity, 0, len(t.activities))
	for _, activity := range t.activities {
		result = append(result, activity)
	}
	return result
}

func (t *Tracker) broadcast(eventType EventType, activity *Activity) {
	if t.hub == nil {
		return
	}
	t.hub.Broadcast(string(eventType), activity)
}
