// Package chat defines the transport-neutral surface between the Telegram
// adapter and the domain: incoming events, the sender's identity, and the
// responder used to reply. Domain packages depend on these types only and
// never on the bot framework.
package chat

import "context"

// Identity describes who sent an event.
type Identity struct {
	ID       int64
	FullName string
	Username string
}

// Location is a shared-location payload.
type Location struct {
	Lat float64
	Lng float64
}

// Event is one normalized incoming update. Exactly one of Text, Location
// or Callback is meaningful: plain messages carry Text, shared locations
// carry Location, and inline-button presses carry Callback data.
// FromCallback marks button presses explicitly, so an empty Callback
// payload still routes as a callback and never as text.
type Event struct {
	From         Identity
	Text         string
	Location     *Location
	Callback     string
	FromCallback bool
}

// IsCallback reports whether the event is an inline-button press.
func (e Event) IsCallback() bool { return e.FromCallback || e.Callback != "" }

// Responder delivers replies back to the chat the event came from.
type Responder interface {
	// Send delivers plain text.
	Send(ctx context.Context, text string) error
	// SendMenu delivers text together with a reply-keyboard of button
	// rows. An empty rows slice removes any existing keyboard.
	SendMenu(ctx context.Context, text string, rows [][]string) error
	// SendInline delivers text with inline buttons; each button carries
	// the callback data dispatched back when pressed.
	SendInline(ctx context.Context, text string, buttons [][]InlineButton) error
}

// InlineButton is one inline-keyboard button.
type InlineButton struct {
	Label string
	Data  string
}

// Notifier pushes a message to an arbitrary recipient outside the current
// exchange, e.g. telling a finder their account was approved.
type Notifier interface {
	Notify(ctx context.Context, recipient int64, text string) error
}
