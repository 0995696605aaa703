// Package bot holds the role-gated router: it receives normalized chat
// events and dispatches them to the wizard, admin panels, approval
// handling, or role menus.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"brokerbot/core/logger"
	"brokerbot/internal/chat"
	"brokerbot/internal/rolecache"
	"brokerbot/internal/store"
	"brokerbot/internal/wizard"
)

// StartCommand unconditionally (re-)registers the sender, before any
// session or role check.
const StartCommand = "/start"

// Router dispatches inbound events. Errors from storage propagate to the
// transport boundary where the event is dropped; the router itself never
// retries.
type Router struct {
	users    *store.UserStore
	items    *store.ItemStore
	tasks    *store.TaskStore
	cache    *rolecache.Cache
	flow     *wizard.Flow
	audit    *store.ActivityLog
	notifier chat.Notifier
	admins   []int64
	labels   map[string]struct{}

	mu          sync.Mutex
	captionWait map[int64]struct{}
}

func NewRouter(users *store.UserStore, items *store.ItemStore, tasks *store.TaskStore, cache *rolecache.Cache, flow *wizard.Flow, audit *store.ActivityLog, notifier chat.Notifier, admins []int64) *Router {
	return &Router{
		users:       users,
		items:       items,
		tasks:       tasks,
		cache:       cache,
		flow:        flow,
		audit:       audit,
		notifier:    notifier,
		admins:      admins,
		labels:      menuLabels(),
		captionWait: make(map[int64]struct{}),
	}
}

// HandleEvent is the single entry point for normalized updates.
func (rt *Router) HandleEvent(ctx context.Context, ev chat.Event, r chat.Responder) error {
	if ev.IsCallback() {
		return rt.HandleCallback(ctx, ev, r)
	}

	id := ev.From.ID
	text := strings.TrimSpace(ev.Text)

	// The start trigger runs before anything else and always clears a
	// stale session: the user explicitly navigated away.
	if text == StartCommand {
		rt.flow.Sessions().End(id)
		rt.endItemCapture(id)
		return rt.handleStart(ctx, ev, r)
	}

	if rt.flow.Sessions().Active(id) {
		return rt.flow.Handle(ctx, ev, r)
	}

	role, status, err := rt.cache.Resolve(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve role for %d: %w", id, err)
	}
	if status != store.StatusActive {
		return r.Send(ctx, "Your access request is waiting for approval ⏳")
	}

	// A pending caption capture swallows the next free-form text; any
	// known button abandons it and routes normally.
	if text != "" {
		if _, isLabel := rt.labels[text]; rt.endItemCapture(id) && !isLabel {
			return rt.createDraftFromCaption(ctx, id, role, text, r)
		}
	}

	if role == store.RoleAdmin {
		if handled, err := rt.handleAdminPanel(ctx, ev, r, text); handled || err != nil {
			return err
		}
	}

	if handled, err := rt.handleWorkerAction(ctx, ev, r, role, text); handled || err != nil {
		return err
	}

	if text == BtnStart || text == BtnHelp {
		return rt.openMenu(ctx, r, role)
	}

	logger.Debug(ctx, "router", "event_ignored",
		slog.Int64("user_id", id), slog.String("text", logger.SanitizeLimit(text, 64)))
	return nil
}

// handleStart registers first-contact identities and welcomes known ones.
// Configured administrators self-provision their role bundle here.
func (rt *Router) handleStart(ctx context.Context, ev chat.Event, r chat.Responder) error {
	id := ev.From.ID

	// The bootstrap runs once per process; after the first pass the
	// cache mark short-circuits the store round trip.
	if !rt.cache.AdminMarked(id) {
		granted, err := rt.users.BootstrapAdmin(ctx, id, ev.From.FullName, ev.From.Username)
		if err != nil {
			return err
		}
		if granted {
			rt.cache.Invalidate(id)
		}
		if rt.cache.IsAdmin(id) {
			rt.cache.MarkAdmin(id)
		}
	}

	created, err := rt.users.RegisterPending(ctx, id, ev.From.FullName, ev.From.Username)
	if err != nil {
		return err
	}
	if !created {
		role, status, err := rt.cache.Resolve(ctx, id)
		if err != nil {
			return err
		}
		if status != store.StatusActive {
			return r.Send(ctx, "Your access request is waiting for approval ⏳")
		}
		return rt.openMenu(ctx, r, role)
	}

	if err := r.Send(ctx, "Your access request was sent to admin ⏳"); err != nil {
		return err
	}
	rt.notifyAdmins(ctx, fmt.Sprintf(
		"New user request:\n\nName: %s\nUsername: @%s\nID: %d",
		ev.From.FullName, ev.From.Username, id))
	return nil
}

// handleAdminPanel matches the closed set of admin panel labels.
// handled=false falls through to generic routing.
func (rt *Router) handleAdminPanel(ctx context.Context, ev chat.Event, r chat.Responder, text string) (bool, error) {
	switch text {
	case PanelAccounts:
		// The accounts panel is the entry point into the owner wizard.
		return true, rt.flow.Start(ctx, ev, r, store.RoleAdmin)
	case PanelUsers:
		return true, rt.openPendingUsers(ctx, r)
	case PanelTasks:
		return true, rt.openTasksPanel(ctx, ev.From.ID, r)
	case PanelItems, PanelWorkflow, PanelReports, PanelSystem:
		return true, r.SendMenu(ctx, "Opened "+text, adminMenu())
	case PanelBack:
		return true, r.SendMenu(ctx, "Admin panel", adminMenu())
	}
	return false, nil
}

func (rt *Router) openMenu(ctx context.Context, r chat.Responder, role store.Role) error {
	return r.SendMenu(ctx, "Opened "+menuTitle(role)+" menu", menuForRole(role))
}

func menuTitle(role store.Role) string {
	if role == store.RoleNone {
		return "guest"
	}
	return string(role)
}

func menuForRole(role store.Role) [][]string {
	switch role {
	case store.RoleFinder:
		return finderMenu()
	case store.RoleSeller:
		return sellerMenu()
	case store.RoleBoth:
		return bothMenu()
	case store.RoleGatekeeper:
		return gatekeeperMenu()
	case store.RoleAdmin:
		return adminMenu()
	}
	return [][]string{{BtnHelp}}
}

// notifyAdmins is fire-and-forget per recipient; one unreachable admin
// never blocks the rest.
func (rt *Router) notifyAdmins(ctx context.Context, text string) {
	results := Broadcast(ctx, rt.notifier, rt.admins, text)
	for _, res := range results {
		if res.Err != nil {
			logger.Warn(ctx, "router", "admin_notify_failed",
				slog.Int64("recipient", res.Recipient), slog.String("error", res.Err.Error()))
		}
	}
}
