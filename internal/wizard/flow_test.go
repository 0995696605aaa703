package wizard

import (
	"context"
	"strings"
	"sync"
	"testing"

	"brokerbot/internal/chat"
	"brokerbot/internal/store"
	"brokerbot/internal/tabular"
)

type fakeResponder struct {
	mu    sync.Mutex
	texts []string
}

func (r *fakeResponder) Send(_ context.Context, text string) error {
	r.record(text)
	return nil
}

func (r *fakeResponder) SendMenu(_ context.Context, text string, _ [][]string) error {
	r.record(text)
	return nil
}

func (r *fakeResponder) SendInline(_ context.Context, text string, _ [][]chat.InlineButton) error {
	r.record(text)
	return nil
}

func (r *fakeResponder) record(text string) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
}

func (r *fakeResponder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func newTestFlow(t *testing.T) (*Flow, *store.OwnerStore) {
	t.Helper()
	tab := tabular.NewMemory()
	tables := store.Tables{Owners: "OWNERS_MASTER", Log: "ACTIVITY_LOG"}
	owners := store.NewOwnerStore(tab, tables, tabular.NewMemorySequencer())
	audit := store.NewActivityLog(tab, tables)
	ctx := context.Background()
	if err := owners.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if err := audit.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return NewFlow(NewSessions(), owners, audit, []string{"📋 Menu"}), owners
}

func textEvent(id int64, text string) chat.Event {
	return chat.Event{From: chat.Identity{ID: id}, Text: text}
}

func drive(t *testing.T, f *Flow, id int64, inputs ...string) *fakeResponder {
	t.Helper()
	ctx := context.Background()
	r := &fakeResponder{}
	for _, in := range inputs {
		if err := f.Handle(ctx, textEvent(id, in), r); err != nil {
			t.Fatalf("Handle(%q): %v", in, err)
		}
	}
	return r
}

func TestBackNavigationIsLossless(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFlow(t)
	r := &fakeResponder{}
	if err := f.Start(ctx, textEvent(1, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	drive(t, f, 1, "Truck Owner", "Alice")
	if got := f.Sessions().Get(1).State; got != StateOwnerPhone {
		t.Fatalf("state = %q, want OWNER_PHONE", got)
	}

	drive(t, f, 1, BtnBack)
	sess := f.Sessions().Get(1)
	if sess.State != StateOwnerName {
		t.Errorf("state after back = %q, want OWNER_NAME", sess.State)
	}
	if sess.Draft.Name != "Alice" {
		t.Errorf("draft name lost on back: %q", sess.Draft.Name)
	}
}

func TestFocusLockRejectsNavigation(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFlow(t)
	r := &fakeResponder{}
	if err := f.Start(ctx, textEvent(2, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	drive(t, f, 2, "Truck Owner", "Alice")

	got := drive(t, f, 2, "📋 Menu")
	if f.Sessions().Get(2).State != StateOwnerPhone {
		t.Errorf("nav label moved the state to %q", f.Sessions().Get(2).State)
	}
	if !strings.Contains(got.last(), "finish the current step") {
		t.Errorf("expected lock notice, got %q", got.last())
	}
}

func TestCommitAndReset(t *testing.T) {
	ctx := context.Background()
	f, owners := newTestFlow(t)
	r := &fakeResponder{}
	if err := f.Start(ctx, textEvent(3, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	drive(t, f, 3, "Truck Owner", "Bob", "555", "Metro", BtnConfirm)
	if got := f.Sessions().Get(3).State; got != StateLocation {
		t.Fatalf("state = %q, want LOCATION", got)
	}

	loc := chat.Event{From: chat.Identity{ID: 3}, Location: &chat.Location{Lat: 1.0, Lng: 2.0}}
	if err := f.Handle(ctx, loc, r); err != nil {
		t.Fatal(err)
	}

	if f.Sessions().Active(3) {
		t.Error("session should be destroyed after commit")
	}
	o, found, err := owners.Get(ctx, "OWN-000001")
	if err != nil || !found {
		t.Fatalf("owner row: found=%v err=%v", found, err)
	}
	if o.Type != "Truck Owner" || o.Name != "Bob" || o.Phone != "555" || o.City != "Metro" {
		t.Errorf("owner = %+v", o)
	}
	if o.ClaimedBy != 3 {
		t.Errorf("claimed_by = %d, want 3", o.ClaimedBy)
	}
	if !strings.Contains(o.MapsLink, "1.000000,2.000000") {
		t.Errorf("maps link = %q", o.MapsLink)
	}
}

func TestLocationStateReprompts(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFlow(t)
	r := &fakeResponder{}
	if err := f.Start(ctx, textEvent(4, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	drive(t, f, 4, "Truck Owner", "Bob", "555", "Metro", BtnConfirm)

	// Plain text at LOCATION re-prompts without moving or committing.
	got := drive(t, f, 4, "here you go")
	if f.Sessions().Get(4).State != StateLocation {
		t.Errorf("state = %q, want LOCATION", f.Sessions().Get(4).State)
	}
	if !strings.Contains(got.last(), "location") {
		t.Errorf("expected location re-prompt, got %q", got.last())
	}
}

func TestEditSingleFieldReturnsToConfirm(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFlow(t)
	r := &fakeResponder{}
	if err := f.Start(ctx, textEvent(5, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	drive(t, f, 5, "Truck Owner", "Bob", "555", "Metro", BtnEdit)
	if got := f.Sessions().Get(5).State; got != StateEditSelect {
		t.Fatalf("state = %q, want EDIT_SELECT", got)
	}

	drive(t, f, 5, FieldPhone, "777")
	sess := f.Sessions().Get(5)
	if sess.State != StateConfirm {
		t.Errorf("state after edit = %q, want CONFIRM", sess.State)
	}
	if sess.Draft.Phone != "777" {
		t.Errorf("phone = %q, want 777", sess.Draft.Phone)
	}
	if sess.Draft.Name != "Bob" || sess.Draft.City != "Metro" {
		t.Errorf("other fields disturbed: %+v", sess.Draft)
	}
}

func TestCancelDiscardsDraft(t *testing.T) {
	ctx := context.Background()
	f, owners := newTestFlow(t)
	r := &fakeResponder{}
	if err := f.Start(ctx, textEvent(6, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	drive(t, f, 6, "Truck Owner", "Bob", BtnCancel)

	if f.Sessions().Active(6) {
		t.Error("session should be destroyed on cancel")
	}
	if _, found, _ := owners.Get(ctx, "OWN-000001"); found {
		t.Error("cancel must not write an owner row")
	}
}

func TestBusyRejectsInput(t *testing.T) {
	f, _ := newTestFlow(t)
	r := &fakeResponder{}
	ctx := context.Background()
	if err := f.Start(ctx, textEvent(7, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if !f.Sessions().BeginBusy(7) {
		t.Fatal("BeginBusy failed")
	}
	got := drive(t, f, 7, "Truck Owner")
	if !strings.Contains(got.last(), "Still saving") {
		t.Errorf("expected busy notice, got %q", got.last())
	}
	if f.Sessions().Get(7).State != StateTypeSelect {
		t.Error("busy input must not advance the state")
	}
	f.Sessions().EndBusy(7)
	if f.Sessions().BeginBusy(7) == false {
		t.Error("BeginBusy should succeed after EndBusy")
	}
}

func TestUnknownTypeReprompts(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFlow(t)
	r := &fakeResponder{}
	if err := f.Start(ctx, textEvent(8, ""), r, store.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	drive(t, f, 8, "Spaceship Owner")
	if got := f.Sessions().Get(8).State; got != StateTypeSelect {
		t.Errorf("state = %q, want TYPE_SELECT after invalid option", got)
	}
}
