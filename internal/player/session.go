package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/notification"
)

// ResumeStore persists playback positions keyed by source identity.
type ResumeStore interface {
	ResumePosition(ctx context.Context, identity string) (float64, bool)
	SetResumePosition(ctx context.Context, identity string, seconds float64) error
	ClearResumePosition(ctx context.Context, identity string) error
}

// StartRequest describes a playback session to start.
type StartRequest struct {
	SourceURL    string          `json:"sourceUrl"`
	Poster       string          `json:"poster"`
	Subtitles    []SubtitleTrack `json:"subtitles"`
	Capabilities Capabilities    `json:"capabilities"`
}

// Status is the externally visible snapshot of a session.
type Status struct {
	Handle    string  `json:"handle"`
	State     State   `json:"state"`
	Tier      Tier    `json:"tier"`
	SourceURL string  `json:"sourceUrl"`
	Position  float64 `json:"position"`
}

// Session is one playback session bound to a media surface. At most one
// session is active per process; the Manager enforces replacement.
type Session struct {
	handle  string
	surface MediaSurface
	engine  AdaptiveEngine
	tier    Tier
	source  string

	mu       sync.Mutex
	state    State
	position float64
	torn     bool

	resume   ResumeStore
	notifier notification.Notifier
	logger   zerolog.Logger

	done chan struct{}
}

// Manager owns the process-wide active session. Starting a new session
// while one is active replaces it: the old session is torn down first so
// global input handling never stacks.
type Manager struct {
	mu     sync.Mutex
	active *Session

	cfg      config.PlaybackConfig
	resume   ResumeStore
	notifier notification.Notifier
	logger   zerolog.Logger
}

// NewManager creates a playback session manager.
func NewManager(cfg config.PlaybackConfig, resume ResumeStore, notifier notification.Notifier, logger zerolog.Logger) *Manager {
	if notifier == nil {
		notifier = notification.Nop()
	}
	return &Manager{
		cfg:      cfg,
		resume:   resume,
		notifier: notifier,
		logger:   logger.With().Str("component", "player").Logger(),
	}
}

// Start tears down any active session, resolves the playback tier for the
// source and begins a new session. The returned session is already seeked
// to a persisted resume position when one exists.
func (m *Manager) Start(ctx context.Context, req StartRequest, surface MediaSurface, engine AdaptiveEngine) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.active.Teardown()
		m.active = nil
	}

	s := &Session{
		handle:   uuid.NewString(),
		surface:  surface,
		source:   req.SourceURL,
		state:    StateUninitialized,
		resume:   m.resume,
		notifier: m.notifier,
		logger:   m.logger,
		done:     make(chan struct{}),
	}

	if err := s.load(ctx, req, engine); err != nil {
		s.Teardown()
		return nil, err
	}

	interval := m.cfg.ResumeSaveInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go s.persistLoop(interval)

	m.active = s
	m.logger.Info().
		Str("handle", s.handle).
		Str("tier", string(s.tier)).
		Str("source", req.SourceURL).
		Msg("playback session started")
	return s, nil
}

// Stop tears down the session identified by handle. Unknown or stale
// handles are a no-op, so Stop is safe to call at any time.
func (m *Manager) Stop(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || (handle != "" && m.active.handle != handle) {
		return
	}
	m.active.Teardown()
	m.active = nil
}

// StopAll tears down whatever session is active.
func (m *Manager) StopAll() {
	m.Stop("")
}

// Active returns the active session, nil when none is running.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// HandleKey applies a keyboard shortcut to the active session. Unmapped
// keys and keys arriving with no session are ignored.
func (m *Manager) HandleKey(key string) error {
	action, ok := ActionForKey(key)
	if !ok {
		return nil
	}
	s := m.Active()
	if s == nil {
		return ErrNoActiveSession
	}
	return s.Apply(action)
}

// load resolves the playback tier, attaches subtitles and seeks to a
// persisted resume position. Tier order: software adaptive engine, native
// adaptive playback, then direct file playback.
func (s *Session) load(ctx context.Context, req StartRequest, engine AdaptiveEngine) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	switch {
	case isAdaptiveManifest(req.SourceURL) && req.Capabilities.AdaptiveEngine && engine != nil:
		if err := engine.Attach(req.SourceURL); err != nil {
			return fmt.Errorf("%w: %v", ErrStreamUnsupported, err)
		}
		s.engine = engine
		s.tier = TierAdaptiveEngine
	case isAdaptiveManifest(req.SourceURL) && req.Capabilities.NativeHLS:
		if err := s.surface.Load(req.SourceURL); err != nil {
			return fmt.Errorf("%w: %v", ErrStreamUnsupported, err)
		}
		s.tier = TierNativeHLS
	default:
		if err := s.surface.Load(req.SourceURL); err != nil {
			return fmt.Errorf("%w: %v", ErrStreamUnsupported, err)
		}
		s.tier = TierDirectFile
	}

	for _, track := range req.Subtitles {
		if track.URL == "" {
			continue
		}
		if err := s.surface.AddTextTrack(track.URL, track.Label); err != nil {
			s.logger.Warn().Err(err).Str("label", track.Label).Msg("failed to attach subtitle track")
		}
	}

	if pos, ok := s.resume.ResumePosition(ctx, s.source); ok && pos > 0 {
		if err := s.surface.Seek(pos); err != nil {
			s.logger.Warn().Err(err).Msg("resume seek failed")
		} else {
			s.mu.Lock()
			s.position = pos
			s.mu.Unlock()
			s.logger.Debug().Float64("position", pos).Msg("resumed playback position")
		}
	}

	return nil
}

// Handle returns the session's opaque identifier.
func (s *Session) Handle() string {
	return s.handle
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Handle:    s.handle,
		State:     s.state,
		Tier:      s.tier,
		SourceURL: s.source,
		Position:  s.position,
	}
}

// UpdatePosition records the latest playhead position reported by the
// surface. Persistence happens on the save interval, and only while the
// session is playing.
func (s *Session) UpdatePosition(position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
}

// HandleMediaEvent advances the state machine on surface events.
func (s *Session) HandleMediaEvent(ctx context.Context, event string) {
	s.mu.Lock()
	switch event {
	case "playing":
		s.state = StatePlaying
	case "paused":
		s.state = StatePaused
	case "ended":
		s.state = StateEnded
	}
	state := s.state
	s.mu.Unlock()

	// a finished title should restart from the beginning next time
	if state == StateEnded {
		if err := s.resume.ClearResumePosition(ctx, s.source); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear resume position")
		}
	}
}

// HandleEngineError applies the recovery policy for fatal adaptive-engine
// errors: resume loading after a network fault, in-place recovery after a
// decode fault, full teardown otherwise.
func (s *Session) HandleEngineError(kind EngineErrorKind) {
	if s.engine == nil {
		return
	}

	switch kind {
	case EngineErrorNetwork:
		s.logger.Warn().Msg("fatal network error, resuming stream load")
		s.notifier.Notify("Stream connection lost. Reconnecting...", notification.LevelInfo)
		if err := s.engine.StartLoad(); err != nil {
			s.fail("Playback failed after a network error.")
		}
	case EngineErrorMedia:
		s.logger.Warn().Msg("fatal media error, attempting recovery")
		s.notifier.Notify("Playback hiccup. Recovering...", notification.LevelInfo)
		if err := s.engine.RecoverMedia(); err != nil {
			s.fail("Playback failed after a media error.")
		}
	default:
		s.fail("Playback failed. Please restart the stream.")
	}
}

func (s *Session) fail(message string) {
	s.mu.Lock()
	s.state = StateError
	s.mu.Unlock()

	s.notifier.Notify(message, notification.LevelError)
	s.Teardown()
}

// Apply executes a playback control action.
func (s *Session) Apply(action Action) error {
	switch action {
	case ActionTogglePlay:
		s.mu.Lock()
		playing := s.state == StatePlaying
		s.mu.Unlock()
		if playing {
			return s.surface.Pause()
		}
		return s.surface.Play()
	case ActionSeekBack:
		return s.seekBy(-seekStepSeconds)
	case ActionSeekForward:
		return s.seekBy(seekStepSeconds)
	case ActionToggleFullscreen:
		return s.surface.ToggleFullscreen()
	}
	return nil
}

func (s *Session) seekBy(delta float64) error {
	s.mu.Lock()
	target := s.position + delta
	if target < 0 {
		target = 0
	}
	s.mu.Unlock()

	if err := s.surface.Seek(target); err != nil {
		return err
	}
	s.UpdatePosition(target)
	return nil
}

// persistLoop saves the playhead position on the configured interval, but
// only while the session is in the playing state.
func (s *Session) persistLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			playing := s.state == StatePlaying
			position := s.position
			s.mu.Unlock()

			if !playing || position <= 0 {
				continue
			}
			if err := s.resume.SetResumePosition(context.Background(), s.source, position); err != nil {
				s.logger.Warn().Err(err).Msg("failed to persist resume position")
			}
		}
	}
}

// Teardown releases the adaptive engine and the surface and stops the
// persistence loop. It is idempotent.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return
	}
	s.torn = true
	if s.state != StateError {
		s.state = StateEnded
	}
	s.mu.Unlock()

	close(s.done)
	if s.engine != nil {
		s.engine.Destroy()
	}
	s.surface.Teardown()
	s.logger.Debug().Str("handle", s.handle).Msg("playback session torn down")
}
