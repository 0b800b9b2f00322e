// Package notification delivers fire-and-forget user-facing messages to the
// toast UI. The core components call Notify and never wait on delivery.
package notification

// Level classifies a notification for presentation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier is the collaborator the core reports user-visible events to.
type Notifier interface {
	Notify(message string, level Level)
}

// Func adapts a plain function to the Notifier interface.
type Func func(message string, level Level)

func (f Func) Notify(message string, level Level) {
	f(message, level)
}

// Nop returns a Notifier that discards everything.
func Nop() Notifier {
	return Func(func(string, Level) {})
}
