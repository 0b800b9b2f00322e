package player

// Action is a playback control triggered by a keyboard shortcut.
type Action string

const (
	ActionTogglePlay       Action = "toggle-play"
	ActionSeekBack         Action = "seek-back"
	ActionSeekForward      Action = "seek-forward"
	ActionToggleFullscreen Action = "toggle-fullscreen"
)

// seekStepSeconds is the jump applied by the seek shortcuts.
const seekStepSeconds = 10

// defaultKeymap maps incoming key identifiers to playback actions. Keys
// use the DOM KeyboardEvent.key convention the client reports.
var defaultKeymap = map[string]Action{
	" ":          ActionTogglePlay,
	"ArrowLeft":  ActionSeekBack,
	"ArrowRight": ActionSeekForward,
	"f":          ActionToggleFullscreen,
	"F":          ActionToggleFullscreen,
}

// ActionForKey resolves a key identifier to an action; ok is false for
// unmapped keys.
func ActionForKey(key string) (Action, bool) {
	action, ok := defaultKeymap[key]
	return action, ok
}
