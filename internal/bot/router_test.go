package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"brokerbot/internal/chat"
	"brokerbot/internal/rolecache"
	"brokerbot/internal/store"
	"brokerbot/internal/tabular"
	"brokerbot/internal/wizard"
)

type fakeResponder struct {
	texts []string
}

func (r *fakeResponder) Send(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *fakeResponder) SendMenu(_ context.Context, text string, _ [][]string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *fakeResponder) SendInline(_ context.Context, text string, _ [][]chat.InlineButton) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *fakeResponder) last() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

type fakeNotifier struct {
	sent map[int64][]string
	fail map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[int64][]string), fail: make(map[int64]bool)}
}

func (n *fakeNotifier) Notify(_ context.Context, recipient int64, text string) error {
	if n.fail[recipient] {
		return fmt.Errorf("recipient %d unreachable", recipient)
	}
	n.sent[recipient] = append(n.sent[recipient], text)
	return nil
}

type fixture struct {
	router   *Router
	users    *store.UserStore
	owners   *store.OwnerStore
	items    *store.ItemStore
	cache    *rolecache.Cache
	notifier *fakeNotifier
}

// countingTab wraps a store and counts full-table scans.
type countingTab struct {
	tabular.Store
	scans int
}

func (c *countingTab) ScanRows(ctx context.Context, name string) ([]tabular.Row, error) {
	c.scans++
	return c.Store.ScanRows(ctx, name)
}

func newFixture(t *testing.T, admins ...int64) *fixture {
	t.Helper()
	return newFixtureWith(t, tabular.NewMemory(), admins...)
}

func newFixtureWith(t *testing.T, tab tabular.Store, admins ...int64) *fixture {
	t.Helper()
	ctx := context.Background()
	tables := store.Tables{
		Users:  "USERS_ROLES",
		Grants: "USER_GRANTS",
		Owners: "OWNERS_MASTER",
		Items:  "ITEMS_MASTER",
		Log:    "ACTIVITY_LOG",
		Tasks:  "TASKS_TODOS",
	}
	set := make(map[int64]struct{}, len(admins))
	for _, id := range admins {
		set[id] = struct{}{}
	}
	seq := tabular.NewMemorySequencer()
	users := store.NewUserStore(tab, tables, set)
	owners := store.NewOwnerStore(tab, tables, seq)
	items := store.NewItemStore(tab, tables, seq, 30, 40)
	tasks := store.NewTaskStore(tab, tables, seq, 60)
	audit := store.NewActivityLog(tab, tables)
	for _, ensure := range []func(context.Context) error{
		users.EnsureSchema, owners.EnsureSchema, items.EnsureSchema, tasks.EnsureSchema, audit.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			t.Fatal(err)
		}
	}
	cache := rolecache.New(users, set)
	flow := wizard.NewFlow(wizard.NewSessions(), owners, audit, NavLabels())
	notifier := newFakeNotifier()
	router := NewRouter(users, items, tasks, cache, flow, audit, notifier, admins)
	return &fixture{router: router, users: users, owners: owners, items: items, cache: cache, notifier: notifier}
}

func textEvent(id int64, text string) chat.Event {
	return chat.Event{From: chat.Identity{ID: id, FullName: "User " + fmt.Sprint(id)}, Text: text}
}

func callbackEvent(id int64, data string) chat.Event {
	return chat.Event{From: chat.Identity{ID: id}, Callback: data, FromCallback: true}
}

func TestStartRegistersPendingAndNotifiesAdmins(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}

	if err := fx.router.HandleEvent(ctx, textEvent(700, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "sent to admin") {
		t.Errorf("reply = %q", r.last())
	}
	if len(fx.notifier.sent[42]) != 1 {
		t.Fatalf("admin notifications = %v", fx.notifier.sent)
	}
	if !strings.Contains(fx.notifier.sent[42][0], "ID: 700") {
		t.Errorf("admin notice = %q", fx.notifier.sent[42][0])
	}

	// Repeat contact: still pending, no duplicate row, no second notice.
	if err := fx.router.HandleEvent(ctx, textEvent(700, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "waiting for approval") {
		t.Errorf("repeat reply = %q", r.last())
	}
	if len(fx.notifier.sent[42]) != 1 {
		t.Error("repeat /start should not re-notify admins")
	}
}

func TestPendingUserGetsNoticeNotMenu(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}
	if err := fx.router.HandleEvent(ctx, textEvent(700, "/start"), r); err != nil {
		t.Fatal(err)
	}

	if err := fx.router.HandleEvent(ctx, textEvent(700, BtnStart), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "waiting for approval") {
		t.Errorf("reply = %q, want pending notice", r.last())
	}
}

func TestUnknownIdentityTreatedAsPending(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}

	// Never registered, never /start: any routed text yields the notice.
	if err := fx.router.HandleEvent(ctx, textEvent(999, BtnStart), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "waiting for approval") {
		t.Errorf("reply = %q", r.last())
	}
}

func TestAdminBootstrapAndAccountsPanelEntersWizard(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}

	if err := fx.router.HandleEvent(ctx, textEvent(42, "/start"), r); err != nil {
		t.Fatal(err)
	}
	role, status, err := fx.cache.Resolve(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if role != store.RoleAdmin || status != store.StatusActive {
		t.Fatalf("bootstrapped admin: role=%q status=%q", role, status)
	}

	if err := fx.router.HandleEvent(ctx, textEvent(42, PanelAccounts), r); err != nil {
		t.Fatal(err)
	}
	sess := fx.router.flow.Sessions().Get(42)
	if sess == nil || sess.State != wizard.StateTypeSelect {
		t.Fatalf("accounts panel should start the wizard at TYPE_SELECT, got %+v", sess)
	}

	// With a session active, routing hands the event to the wizard.
	if err := fx.router.HandleEvent(ctx, textEvent(42, "Truck Owner"), r); err != nil {
		t.Fatal(err)
	}
	if got := fx.router.flow.Sessions().Get(42).State; got != wizard.StateOwnerName {
		t.Errorf("state = %q, want OWNER_NAME", got)
	}
}

func TestAdminBootstrapRunsOnce(t *testing.T) {
	ctx := context.Background()
	tab := &countingTab{Store: tabular.NewMemory()}
	fx := newFixtureWith(t, tab, 42)
	r := &fakeResponder{}

	if err := fx.router.HandleEvent(ctx, textEvent(42, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if !fx.cache.AdminMarked(42) {
		t.Fatal("bootstrap not marked after first /start")
	}

	// Repeat start: marked + warm cache means the only read left is the
	// registration existence check.
	before := tab.scans
	if err := fx.router.HandleEvent(ctx, textEvent(42, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if got := tab.scans - before; got != 1 {
		t.Errorf("repeat /start performed %d scans, want 1", got)
	}
	grants, err := fx.users.Grants(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 2 {
		t.Errorf("grants = %v, want the ADMIN and GATEKEEPER bundle once", grants)
	}
}

func TestApprovalInvalidatesCacheAndNotifies(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}
	if err := fx.router.HandleEvent(ctx, textEvent(42, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if err := fx.router.HandleEvent(ctx, textEvent(700, "/start"), r); err != nil {
		t.Fatal(err)
	}

	// Warm the cache with the pre-approval state.
	if role, _, err := fx.cache.Resolve(ctx, 700); err != nil || role != store.RoleNone {
		t.Fatalf("pre-approval role=%q err=%v", role, err)
	}

	if err := fx.router.HandleEvent(ctx, callbackEvent(42, "APPROVE|700|BOTH"), r); err != nil {
		t.Fatal(err)
	}

	role, status, err := fx.cache.Resolve(ctx, 700)
	if err != nil {
		t.Fatal(err)
	}
	if role != store.RoleBoth || status != store.StatusActive {
		t.Errorf("post-approval: role=%q status=%q, want BOTH/ACTIVE", role, status)
	}
	grants, _ := fx.users.Grants(ctx, 700)
	if len(grants) != 2 {
		t.Errorf("BOTH should land as two discrete grants, got %v", grants)
	}
	if len(fx.notifier.sent[700]) != 1 {
		t.Errorf("target notifications = %v", fx.notifier.sent[700])
	}
}

func TestUnauthorizedApprovalDenied(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}
	if err := fx.router.HandleEvent(ctx, textEvent(700, "/start"), r); err != nil {
		t.Fatal(err)
	}

	if err := fx.router.HandleEvent(ctx, callbackEvent(700, "APPROVE|700|ADMIN"), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "not allowed") {
		t.Errorf("reply = %q, want denial", r.last())
	}
	role, _, err := fx.users.EffectiveRole(ctx, 700)
	if err != nil {
		t.Fatal(err)
	}
	if role != store.RoleNone {
		t.Errorf("self-approval changed state: role=%q", role)
	}
}

func TestMalformedCallbackIgnored(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}

	for _, data := range []string{"APPROVE", "APPROVE|notanumber|FINDER", "APPROVE|700", "FROB|700", ""} {
		if err := fx.router.HandleEvent(ctx, callbackEvent(42, data), r); err != nil {
			t.Fatalf("callback %q: %v", data, err)
		}
	}
	if len(r.texts) != 0 {
		t.Errorf("malformed callbacks must produce no reply, got %v", r.texts)
	}

	// An empty payload from a pending user must still route as a
	// callback and never leak a text-path reply.
	if err := fx.router.HandleEvent(ctx, callbackEvent(700, ""), r); err != nil {
		t.Fatal(err)
	}
	if len(r.texts) != 0 {
		t.Errorf("empty callback payload replied: %v", r.texts)
	}
}

func TestUnmatchedTextSilentlyIgnored(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}
	if err := fx.router.HandleEvent(ctx, textEvent(42, "/start"), r); err != nil {
		t.Fatal(err)
	}
	before := len(r.texts)

	if err := fx.router.HandleEvent(ctx, textEvent(42, "random chatter"), r); err != nil {
		t.Fatal(err)
	}
	if len(r.texts) != before {
		t.Errorf("unmatched text replied: %q", r.last())
	}
}

func TestBroadcastReportsPartialFailure(t *testing.T) {
	ctx := context.Background()
	n := newFakeNotifier()
	n.fail[2] = true

	results := Broadcast(ctx, n, []int64{1, 2, 3}, "hello")
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy recipients failed: %+v", results)
	}
	if results[1].Err == nil {
		t.Error("failing recipient reported success")
	}
	if len(n.sent[1]) != 1 || len(n.sent[3]) != 1 {
		t.Error("one failure must not block other deliveries")
	}

	if err := CombineErrors(results); err == nil {
		t.Error("aggregate error should be non-nil on partial failure")
	}
	var none []DeliveryResult
	if err := CombineErrors(none); err != nil {
		t.Errorf("empty results aggregate = %v", err)
	}
}

func TestApprovePublishNextTakesOldest(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}
	if err := fx.router.HandleEvent(ctx, textEvent(42, "/start"), r); err != nil {
		t.Fatal(err)
	}

	a, err := fx.items.CreateDraft(ctx, 700, "OWN-000001", "", "Garcia", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := fx.items.CreateDraft(ctx, 700, "OWN-000001", "", "Smith", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{a, b} {
		if _, err := fx.items.SetStatus(ctx, id, store.ItemPendingReview); err != nil {
			t.Fatal(err)
		}
	}

	if err := fx.router.HandleEvent(ctx, textEvent(42, BtnApprovePublishNext), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), a) {
		t.Errorf("reply = %q, want oldest item %s published", r.last(), a)
	}
	it, _, err := fx.items.Get(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if it.Status != store.ItemActive {
		t.Errorf("status = %q, want ACTIVE", it.Status)
	}
	if next, found, _ := fx.items.NextPendingReview(ctx); !found || next.ID != b {
		t.Errorf("queue head = %+v, want %s", next, b)
	}

	// Non-reviewers fall through to the silent-ignore branch.
	if err := fx.router.HandleEvent(ctx, textEvent(700, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if err := fx.router.HandleEvent(ctx, callbackEvent(42, "APPROVE|700|FINDER"), r); err != nil {
		t.Fatal(err)
	}
	before := len(r.texts)
	if err := fx.router.HandleEvent(ctx, textEvent(700, BtnApprovePublishNext), r); err != nil {
		t.Fatal(err)
	}
	if len(r.texts) != before {
		t.Errorf("finder pressing a review button replied: %q", r.last())
	}
}

func TestNewItemCapturesCaption(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, 42)
	r := &fakeResponder{}
	if err := fx.router.HandleEvent(ctx, textEvent(42, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if err := fx.router.HandleEvent(ctx, textEvent(700, "/start"), r); err != nil {
		t.Fatal(err)
	}
	if err := fx.router.HandleEvent(ctx, callbackEvent(42, "APPROVE|700|FINDER"), r); err != nil {
		t.Fatal(err)
	}

	if err := fx.router.HandleEvent(ctx, textEvent(700, BtnNewItem), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "caption") {
		t.Fatalf("reply = %q, want caption prompt", r.last())
	}
	if err := fx.router.HandleEvent(ctx, textEvent(700, "2019 cascadia vin 3akjhhdr5ksku1234"), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "VP-") {
		t.Fatalf("reply = %q, want draft confirmation", r.last())
	}

	drafts, err := fx.items.ListByStatus(ctx, store.ItemDraft, 700, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 {
		t.Fatalf("drafts = %+v, want one", drafts)
	}
	if drafts[0].VIN != "3AKJHHDR5KSKU1234" {
		t.Errorf("VIN = %q, want uppercased extraction", drafts[0].VIN)
	}

	// Pressing a button abandons the capture instead of storing it.
	if err := fx.router.HandleEvent(ctx, textEvent(700, BtnNewItem), r); err != nil {
		t.Fatal(err)
	}
	if err := fx.router.HandleEvent(ctx, textEvent(700, BtnMyItems), r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.last(), "Your items") {
		t.Errorf("reply = %q, want item list", r.last())
	}
	if drafts, _ = fx.items.ListByStatus(ctx, store.ItemDraft, 700, 0); len(drafts) != 1 {
		t.Errorf("button press created a draft: %+v", drafts)
	}
}

func TestParseDecision(t *testing.T) {
	cases := []struct {
		data string
		ok   bool
	}{
		{"APPROVE|700|FINDER", true},
		{"APPROVE|700|BOTH", true},
		{"REJECT|700", true},
		{"REJECT|700|FINDER", true},
		{"APPROVE|700", false},
		{"APPROVE|700|WIZARD", false},
		{"APPROVE", false},
		{"|700", false},
		{"", false},
	}
	for _, tc := range cases {
		if _, ok := parseDecision(tc.data); ok != tc.ok {
			t.Errorf("parseDecision(%q) ok=%v, want %v", tc.data, ok, tc.ok)
		}
	}
}
