package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"brokerbot/core/logger"
	"brokerbot/internal/chat"
	"brokerbot/internal/store"
)

// OwnerCreator commits a finished draft, satisfied by *store.OwnerStore.
type OwnerCreator interface {
	Create(ctx context.Context, d store.OwnerDraft, claimedBy int64) (string, error)
}

// Recorder appends an audit entry, satisfied by *store.ActivityLog.
type Recorder interface {
	Record(ctx context.Context, e store.ActivityEntry) (string, error)
}

// Flow is the owner-creation wizard handler.
type Flow struct {
	sessions *Sessions
	owners   OwnerCreator
	audit    Recorder
	nav      map[string]struct{}
}

// NewFlow wires the wizard. navLabels is the reserved global-navigation
// set suppressed while a flow holds focus.
func NewFlow(sessions *Sessions, owners OwnerCreator, audit Recorder, navLabels []string) *Flow {
	nav := make(map[string]struct{}, len(navLabels))
	for _, l := range navLabels {
		nav[l] = struct{}{}
	}
	return &Flow{sessions: sessions, owners: owners, audit: audit, nav: nav}
}

// Sessions exposes the session registry for the router's active check.
func (f *Flow) Sessions() *Sessions { return f.sessions }

// Start begins a fresh flow for the sender and prompts for the owner type.
func (f *Flow) Start(ctx context.Context, ev chat.Event, r chat.Responder, role store.Role) error {
	f.sessions.Begin(ev.From.ID, role)
	logger.Info(ctx, "wizard", "flow_started", slog.Int64("user_id", ev.From.ID))
	return f.prompt(ctx, f.sessions.Get(ev.From.ID), r)
}

// Classify maps the event to an input class for the given session.
func (f *Flow) Classify(ev chat.Event) InputClass {
	if ev.Location != nil {
		return ClassLocation
	}
	switch strings.TrimSpace(ev.Text) {
	case BtnBack:
		return ClassBack
	case BtnCancel:
		return ClassCancel
	case BtnConfirm:
		return ClassConfirm
	case BtnEdit:
		return ClassEdit
	}
	if _, reserved := f.nav[strings.TrimSpace(ev.Text)]; reserved {
		return ClassNav
	}
	return ClassText
}

// Handle advances the sender's active flow by one event. The caller must
// have checked Sessions().Active first.
func (f *Flow) Handle(ctx context.Context, ev chat.Event, r chat.Responder) error {
	id := ev.From.ID
	sess := f.sessions.Get(id)
	if sess == nil {
		return nil
	}
	if f.sessions.Busy(id) {
		return r.Send(ctx, "Still saving, one moment…")
	}

	switch in := f.Classify(ev); in {
	case ClassNav:
		// Focus lock: global navigation cannot interrupt a flow in progress.
		return r.Send(ctx, "Please finish the current step first (or press "+BtnCancel+").")
	case ClassCancel:
		f.sessions.End(id)
		logger.Info(ctx, "wizard", "flow_cancelled", slog.Int64("user_id", id))
		return r.SendMenu(ctx, "Cancelled. Nothing was saved.", nil)
	default:
		return f.step(ctx, sess, ev, r, in)
	}
}

// step applies one table transition plus its side effect.
func (f *Flow) step(ctx context.Context, sess *Session, ev chat.Event, r chat.Responder, in InputClass) error {
	id := ev.From.ID
	text := strings.TrimSpace(ev.Text)

	next, ok := Next(sess.State, in)
	if !ok {
		// Illegal input for this state: re-prompt without moving.
		return f.prompt(ctx, sess, r)
	}

	switch sess.State {
	case StateTypeSelect:
		if in == ClassText {
			if !validOwnerType(text) {
				return f.prompt(ctx, sess, r)
			}
			sess.Draft.Type = text
		}
		if next == StateNone {
			f.sessions.End(id)
			return r.SendMenu(ctx, "Cancelled. Nothing was saved.", nil)
		}

	case StateOwnerName:
		if in == ClassText {
			sess.Draft.Name = text
		}

	case StateOwnerPhone:
		if in == ClassText {
			sess.Draft.Phone = text
		}

	case StateOwnerCity:
		if in == ClassText {
			sess.Draft.City = text
		}

	case StateEditSelect:
		if in == ClassText {
			if !validField(text) {
				return f.prompt(ctx, sess, r)
			}
			sess.Editing = text
		}

	case StateEditField:
		if in == ClassText {
			switch sess.Editing {
			case FieldName:
				sess.Draft.Name = text
			case FieldPhone:
				sess.Draft.Phone = text
			case FieldCity:
				sess.Draft.City = text
			}
			sess.Editing = ""
		}

	case StateLocation:
		if in == ClassLocation {
			return f.commit(ctx, sess, ev, r)
		}
	}

	sess.State = next
	return f.prompt(ctx, sess, r)
}

// commit performs the durable write bracketed by the busy mark, then
// ends the session.
func (f *Flow) commit(ctx context.Context, sess *Session, ev chat.Event, r chat.Responder) error {
	id := ev.From.ID
	if !f.sessions.BeginBusy(id) {
		return r.Send(ctx, "Still saving, one moment…")
	}
	defer f.sessions.EndBusy(id)

	sess.Draft.Lat = ev.Location.Lat
	sess.Draft.Lng = ev.Location.Lng
	ownerID, err := f.owners.Create(ctx, sess.Draft, id)
	if err != nil {
		logger.Error(ctx, "wizard", "owner_commit_failed",
			slog.Int64("user_id", id), slog.String("error", err.Error()))
		return r.Send(ctx, "Could not save the owner right now. Try the location again.")
	}
	if f.audit != nil {
		if _, aerr := f.audit.Record(ctx, store.ActivityEntry{
			Actor:   id,
			Role:    sess.Role,
			Action:  "OWNER_CREATED",
			OwnerID: ownerID,
			Details: fmt.Sprintf("type=%s name=%s", sess.Draft.Type, sess.Draft.Name),
			Result:  "OK",
		}); aerr != nil {
			logger.Warn(ctx, "wizard", "audit_record_failed", slog.String("error", aerr.Error()))
		}
	}
	f.sessions.End(id)
	logger.Info(ctx, "wizard", "owner_committed",
		slog.Int64("user_id", id), slog.String("owner_id", ownerID))
	return r.SendMenu(ctx, "Saved ✅ New owner registered as "+ownerID+".", nil)
}

// prompt sends the message and keyboard for the session's current state.
func (f *Flow) prompt(ctx context.Context, sess *Session, r chat.Responder) error {
	switch sess.State {
	case StateTypeSelect:
		rows := make([][]string, 0, len(OwnerTypes)+1)
		for _, t := range OwnerTypes {
			rows = append(rows, []string{t})
		}
		rows = append(rows, []string{BtnBack, BtnCancel})
		return r.SendMenu(ctx, "What kind of owner is this?", rows)
	case StateOwnerName:
		return r.SendMenu(ctx, "Owner's name?", [][]string{{BtnBack, BtnCancel}})
	case StateOwnerPhone:
		return r.SendMenu(ctx, "Owner's phone number?", [][]string{{BtnBack, BtnCancel}})
	case StateOwnerCity:
		return r.SendMenu(ctx, "City and state?", [][]string{{BtnBack, BtnCancel}})
	case StateConfirm:
		return r.SendMenu(ctx, f.summary(sess), [][]string{
			{BtnConfirm, BtnEdit},
			{BtnCancel},
		})
	case StateEditSelect:
		return r.SendMenu(ctx, "Which field do you want to change?", [][]string{
			{FieldName, FieldPhone, FieldCity},
			{BtnBack, BtnCancel},
		})
	case StateEditField:
		return r.SendMenu(ctx, "New value for "+strings.ToLower(sess.Editing)+"?",
			[][]string{{BtnBack, BtnCancel}})
	case StateLocation:
		return r.SendMenu(ctx, "Share the owner's location to finish (📎 → Location).",
			[][]string{{BtnBack, BtnCancel}})
	}
	return nil
}

func (f *Flow) summary(sess *Session) string {
	var b strings.Builder
	b.WriteString("Please review:\n")
	fmt.Fprintf(&b, "Type: %s\n", sess.Draft.Type)
	fmt.Fprintf(&b, "Name: %s\n", sess.Draft.Name)
	fmt.Fprintf(&b, "Phone: %s\n", sess.Draft.Phone)
	fmt.Fprintf(&b, "City: %s", sess.Draft.City)
	return b.String()
}

func validOwnerType(text string) bool {
	for _, t := range OwnerTypes {
		if t == text {
			return true
		}
	}
	return false
}

func validField(text string) bool {
	switch text {
	case FieldName, FieldPhone, FieldCity:
		return true
	}
	return false
}
