package bot

import (
	"context"
	"fmt"
	"strconv"

	"brokerbot/internal/chat"
	"brokerbot/internal/store"
)

// pendingListLimit caps how many requests one panel message shows.
const pendingListLimit = 10

// openPendingUsers renders the users panel: each pending request with
// inline approve/reject decisions.
func (rt *Router) openPendingUsers(ctx context.Context, r chat.Responder) error {
	pending, err := rt.users.ListPending(ctx, pendingListLimit)
	if err != nil {
		return fmt.Errorf("list pending users: %w", err)
	}
	if len(pending) == 0 {
		return r.SendMenu(ctx, "No pending access requests.", adminMenu())
	}
	for _, u := range pending {
		text := fmt.Sprintf("Access request:\nName: %s\nUsername: @%s\nID: %d",
			u.FullName, u.Username, u.ID)
		if err := r.SendInline(ctx, text, decisionButtons(u.ID)); err != nil {
			return err
		}
	}
	return nil
}

// decisionButtons builds the approval keyboard for one pending user.
func decisionButtons(target int64) [][]chat.InlineButton {
	id := strconv.FormatInt(target, 10)
	row := func(role store.Role) chat.InlineButton {
		return chat.InlineButton{
			Label: "✅ " + string(role),
			Data:  ActionApprove + "|" + id + "|" + string(role),
		}
	}
	return [][]chat.InlineButton{
		{row(store.RoleFinder), row(store.RoleSeller)},
		{row(store.RoleBoth), row(store.RoleGatekeeper)},
		{{Label: "❌ Reject", Data: ActionReject + "|" + id}},
	}
}

// openTasksPanel lists the caller's open tasks.
func (rt *Router) openTasksPanel(ctx context.Context, userID int64, r chat.Responder) error {
	open, err := rt.tasks.OpenForUser(ctx, userID, pendingListLimit)
	if err != nil {
		return fmt.Errorf("list open tasks: %w", err)
	}
	if len(open) == 0 {
		return r.Send(ctx, "No open tasks.")
	}
	text := "Open tasks:\n"
	for _, t := range open {
		text += fmt.Sprintf("• %s %s", t.ID, t.Title)
		if t.DueAt != "" {
			text += " (due " + t.DueAt + ")"
		}
		text += "\n"
	}
	return r.Send(ctx, text)
}
