package player

// Broadcaster delivers playback commands to the connected client.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// RemoteSurface drives the client's media element by broadcasting
// player commands over the WebSocket hub. The client echoes state and
// position back through the player API.
type RemoteSurface struct {
	hub    Broadcaster
	poster string
}

// NewRemoteSurface creates a surface bound to the hub.
func NewRemoteSurface(hub Broadcaster, poster string) *RemoteSurface {
	return &RemoteSurface{hub: hub, poster: poster}
}

func (s *RemoteSurface) Load(url string) error {
	return s.hub.Broadcast("player:load", map[string]string{"url": url, "poster": s.poster})
}

func (s *RemoteSurface) Seek(position float64) error {
	return s.hub.Broadcast("player:seek", map[string]float64{"position": position})
}

func (s *RemoteSurface) Play() error {
	return s.hub.Broadcast("player:play", nil)
}

func (s *RemoteSurface) Pause() error {
	return s.hub.Broadcast("player:pause", nil)
}

func (s *RemoteSurface) AddTextTrack(url, label string) error {
	return s.hub.Broadcast("player:texttrack", map[string]string{"url": url, "label": label})
}

func (s *RemoteSurface) ToggleFullscreen() error {
	return s.hub.Broadcast("player:fullscreen", nil)
}

func (s *RemoteSurface) Teardown() {
	s.hub.Broadcast("player:teardown", nil)
}

// RemoteEngine instructs the client's software demuxer over the hub.
type RemoteEngine struct {
	hub Broadcaster
}

// NewRemoteEngine creates an engine proxy bound to the hub.
func NewRemoteEngine(hub Broadcaster) *RemoteEngine {
	return &RemoteEngine{hub: hub}
}

func (e *RemoteEngine) Attach(manifestURL string) error {
	return e.hub.Broadcast("player:engine:attach", map[string]string{"url": manifestURL})
}

func (e *RemoteEngine) StartLoad() error {
	return e.hub.Broadcast("player:engine:startload", nil)
}

func (e *RemoteEngine) RecoverMedia() error {
	return e.hub.Broadcast("player:engine:recover", nil)
}

func (e *RemoteEngine) Destroy() {
	e.hub.Broadcast("player:engine:destroy", nil)
}
