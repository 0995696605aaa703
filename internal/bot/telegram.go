package bot

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"brokerbot/core/telegram"
	"brokerbot/internal/chat"
)

// EventFrom normalizes a telebot update into the transport-neutral event
// the router consumes.
func EventFrom(c tele.Context) chat.Event {
	var ev chat.Event
	if s := c.Sender(); s != nil {
		ev.From = chat.Identity{
			ID:       s.ID,
			FullName: strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName)),
			Username: s.Username,
		}
	}
	if m := c.Message(); m != nil {
		ev.Text = m.Text
		if m.Location != nil {
			ev.Location = &chat.Location{
				Lat: float64(m.Location.Lat),
				Lng: float64(m.Location.Lng),
			}
		}
	}
	if cb := c.Callback(); cb != nil {
		// Raw callback data arrives with a \f framing prefix.
		ev.FromCallback = true
		ev.Callback = strings.TrimPrefix(cb.Data, "\f")
	}
	return ev
}

// Responder adapts a telebot context to chat.Responder.
type Responder struct {
	c tele.Context
}

func NewResponder(c tele.Context) Responder { return Responder{c: c} }

func (r Responder) Send(_ context.Context, text string) error {
	return r.c.Send(text)
}

func (r Responder) SendMenu(_ context.Context, text string, rows [][]string) error {
	if len(rows) == 0 {
		return r.c.Send(text, telegram.RemoveKeyboard())
	}
	return r.c.Send(text, telegram.ReplyButtons(rows))
}

func (r Responder) SendInline(_ context.Context, text string, buttons [][]chat.InlineButton) error {
	// Buttons are built raw so the wire payload is exactly the
	// pipe-delimited decision string.
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(buttons))
	for i, row := range buttons {
		out := make([]tele.InlineButton, len(row))
		for j, b := range row {
			out[j] = tele.InlineButton{Text: b.Label, Data: b.Data}
		}
		inline[i] = out
	}
	markup.InlineKeyboard = inline
	return r.c.Send(text, markup)
}

// Notifier delivers out-of-band messages through the async dispatcher, so
// a slow or failing recipient never blocks update handling. The returned
// error reflects enqueueing only; delivery retries happen in the workers.
type Notifier struct {
	bot *tele.Bot
	d   *telegram.Dispatcher
}

func NewNotifier(bot *tele.Bot, d *telegram.Dispatcher) *Notifier {
	return &Notifier{bot: bot, d: d}
}

func (n *Notifier) Notify(ctx context.Context, recipient int64, text string) error {
	rec := tele.ChatID(recipient)
	return n.d.Enqueue(ctx, "notify", func() error {
		_, err := n.bot.Send(rec, text)
		return err
	})
}
