package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"brokerbot/core/logger"
	"brokerbot/internal/chat"
	"brokerbot/internal/store"
)

// Callback action tags.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// approvalDecision is a parsed "ACTION|targetID[|ROLE]" payload.
type approvalDecision struct {
	Action string
	Target int64
	Role   store.Role
}

// parseDecision decodes the pipe-delimited callback payload. ok=false
// means the payload is malformed and must be ignored without reply.
func parseDecision(data string) (approvalDecision, bool) {
	parts := strings.Split(strings.TrimSpace(data), "|")
	if len(parts) < 2 {
		return approvalDecision{}, false
	}
	target, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return approvalDecision{}, false
	}
	d := approvalDecision{Action: parts[0], Target: target}
	switch d.Action {
	case ActionApprove:
		if len(parts) < 3 {
			return approvalDecision{}, false
		}
		role, ok := store.ParseRole(parts[2])
		if !ok {
			return approvalDecision{}, false
		}
		d.Role = role
	case ActionReject:
	default:
		return approvalDecision{}, false
	}
	return d, true
}

// HandleCallback executes an out-of-band approval decision. Only a
// configured administrator may decide; everyone else gets a denial and no
// state changes.
func (rt *Router) HandleCallback(ctx context.Context, ev chat.Event, r chat.Responder) error {
	d, ok := parseDecision(ev.Callback)
	if !ok {
		logger.Debug(ctx, "router", "callback_ignored",
			slog.String("data", logger.SanitizeLimit(ev.Callback, 64)))
		return nil
	}
	if !rt.cache.IsAdmin(ev.From.ID) {
		return r.Send(ctx, "You are not allowed to do that.")
	}

	switch d.Action {
	case ActionApprove:
		return rt.approve(ctx, ev.From.ID, d, r)
	case ActionReject:
		return rt.reject(ctx, ev.From.ID, d, r)
	}
	return nil
}

func (rt *Router) approve(ctx context.Context, by int64, d approvalDecision, r chat.Responder) error {
	// BOTH is a composite token: it lands as two discrete grants.
	if err := rt.users.Approve(ctx, d.Target, d.Role.Expand(), by); err != nil {
		return fmt.Errorf("approve %d: %w", d.Target, err)
	}
	rt.cache.Invalidate(d.Target)
	rt.recordDecision(ctx, by, d, "OK")

	// Telling the user is best-effort; the approval already happened.
	if err := rt.notifier.Notify(ctx, d.Target,
		fmt.Sprintf("You were approved as %s ✅ Press %s to begin.", d.Role, BtnStart)); err != nil {
		logger.Warn(ctx, "router", "approval_notify_failed",
			slog.Int64("target", d.Target), slog.String("error", err.Error()))
	}
	return r.Send(ctx, fmt.Sprintf("Approved %d as %s.", d.Target, d.Role))
}

func (rt *Router) reject(ctx context.Context, by int64, d approvalDecision, r chat.Responder) error {
	if err := rt.users.Reject(ctx, d.Target, by); err != nil {
		return fmt.Errorf("reject %d: %w", d.Target, err)
	}
	rt.cache.Invalidate(d.Target)
	rt.recordDecision(ctx, by, d, "OK")

	if err := rt.notifier.Notify(ctx, d.Target, "Your access request was declined."); err != nil {
		logger.Warn(ctx, "router", "rejection_notify_failed",
			slog.Int64("target", d.Target), slog.String("error", err.Error()))
	}
	return r.Send(ctx, fmt.Sprintf("Rejected %d.", d.Target))
}

func (rt *Router) recordDecision(ctx context.Context, by int64, d approvalDecision, result string) {
	if rt.audit == nil {
		return
	}
	details := fmt.Sprintf("target=%d", d.Target)
	if d.Role != store.RoleNone {
		details += " role=" + string(d.Role)
	}
	if _, err := rt.audit.Record(ctx, store.ActivityEntry{
		Actor:   by,
		Role:    store.RoleAdmin,
		Action:  "USER_" + d.Action,
		Details: details,
		Result:  result,
	}); err != nil {
		logger.Warn(ctx, "router", "audit_record_failed", slog.String("error", err.Error()))
	}
}
