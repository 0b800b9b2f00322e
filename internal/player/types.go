// Package player manages playback sessions: source resolution with the
// three-tier adaptive-streaming fallback, resume positions, subtitle
// tracks, keyboard shortcuts and error recovery.
package player

import (
	"errors"
	"strings"
)

// ErrStreamUnsupported is returned when no playback tier can handle the
// resolved source.
var ErrStreamUnsupported = errors.New("stream format not supported")

// ErrNoActiveSession is returned by operations that need a running session.
var ErrNoActiveSession = errors.New("no active playback session")

// State is the playback session state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StatePlaying       State = "playing"
	StatePaused        State = "paused"
	StateEnded         State = "ended"
	StateError         State = "error"
)

// Tier is the playback path chosen during source resolution.
type Tier string

const (
	TierAdaptiveEngine Tier = "adaptive-engine"
	TierNativeHLS      Tier = "native-hls"
	TierDirectFile     Tier = "direct-file"
)

// EngineErrorKind classifies fatal adaptive-engine errors for recovery.
type EngineErrorKind string

const (
	EngineErrorNetwork EngineErrorKind = "network"
	EngineErrorMedia   EngineErrorKind = "media"
	EngineErrorOther   EngineErrorKind = "other"
)

// SubtitleTrack is one selectable text track. Tracks without a URL are
// skipped at attach time.
type SubtitleTrack struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Capabilities describes what the playback surface can do, reported by
// the client when a session starts.
type Capabilities struct {
	// AdaptiveEngine reports whether a software demuxer engine is available.
	AdaptiveEngine bool `json:"adaptiveEngine"`
	// NativeHLS reports whether the surface plays HLS manifests natively.
	NativeHLS bool `json:"nativeHls"`
}

// MediaSurface is the media element a session drives. The production
// surface relays commands to the connected client; tests use fakes.
type MediaSurface interface {
	Load(url string) error
	Seek(position float64) error
	Play() error
	Pause() error
	AddTextTrack(url, label string) error
	ToggleFullscreen() error
	Teardown()
}

// AdaptiveEngine is the software demuxer used for manifest playback when
// the surface lacks native support.
type AdaptiveEngine interface {
	Attach(manifestURL string) error
	// StartLoad resumes manifest loading after a fatal network error.
	StartLoad() error
	// RecoverMedia attempts in-place recovery from a fatal decode error.
	RecoverMedia() error
	Destroy()
}

// isAdaptiveManifest reports whether the URL points at an HLS manifest.
func isAdaptiveManifest(url string) bool {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".m3u8")
}
