package bot

import (
	"context"
	"fmt"

	"brokerbot/internal/chat"
	"brokerbot/internal/store"
)

// handleWorkerAction matches role-gated item and task buttons.
// handled=false falls through to the generic menu routing.
func (rt *Router) handleWorkerAction(ctx context.Context, ev chat.Event, r chat.Responder, role store.Role, text string) (bool, error) {
	switch text {
	case BtnNewItem:
		if role != store.RoleFinder && role != store.RoleBoth {
			return false, nil
		}
		return true, rt.beginItemCapture(ctx, ev.From.ID, r)
	case BtnViewPending:
		if !canReview(role) {
			return false, nil
		}
		return true, rt.viewPendingItems(ctx, r)
	case BtnApprovePublishNext:
		if !canReview(role) {
			return false, nil
		}
		return true, rt.approvePublishNext(ctx, ev.From.ID, role, r)
	case BtnMyItems:
		if role != store.RoleFinder && role != store.RoleBoth {
			return false, nil
		}
		return true, rt.listMyItems(ctx, ev.From.ID, role, r)
	case BtnCompleteTask:
		return true, rt.openTasksPanel(ctx, ev.From.ID, r)
	}
	return false, nil
}

func canReview(role store.Role) bool {
	return role == store.RoleGatekeeper || role == store.RoleAdmin
}

// beginItemCapture arms a one-shot capture: the sender's next free-form
// text becomes a draft item caption.
func (rt *Router) beginItemCapture(ctx context.Context, id int64, r chat.Responder) error {
	rt.mu.Lock()
	rt.captionWait[id] = struct{}{}
	rt.mu.Unlock()
	return r.Send(ctx, "Send the item caption. Include the VIN if you have it.")
}

// endItemCapture atomically checks and clears the capture flag.
func (rt *Router) endItemCapture(id int64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.captionWait[id]; !ok {
		return false
	}
	delete(rt.captionWait, id)
	return true
}

func (rt *Router) createDraftFromCaption(ctx context.Context, finderID int64, role store.Role, caption string, r chat.Responder) error {
	id, err := rt.items.CreateDraft(ctx, finderID, "", "", "", caption, 0)
	if err != nil {
		return fmt.Errorf("create item draft: %w", err)
	}
	if rt.audit != nil {
		_, _ = rt.audit.Record(ctx, store.ActivityEntry{
			Actor:  finderID,
			Role:   role,
			Action: "ITEM_DRAFT_CREATED",
			ItemID: id,
			Result: "OK",
		})
	}
	return r.Send(ctx, fmt.Sprintf("Draft %s created ✅ Link an owner and photos before review.", id))
}

func (rt *Router) viewPendingItems(ctx context.Context, r chat.Responder) error {
	pending, err := rt.items.ListByStatus(ctx, store.ItemPendingReview, 0, pendingListLimit)
	if err != nil {
		return fmt.Errorf("list pending items: %w", err)
	}
	if len(pending) == 0 {
		return r.Send(ctx, "Review queue is empty.")
	}
	text := "Pending review:\n"
	for _, it := range pending {
		text += fmt.Sprintf("• %s %s (%s)\n", it.ID, it.OwnerNameCache, it.CreatedAt)
	}
	return r.Send(ctx, text)
}

// approvePublishNext takes the oldest pending-review item and publishes it.
func (rt *Router) approvePublishNext(ctx context.Context, by int64, role store.Role, r chat.Responder) error {
	it, found, err := rt.items.NextPendingReview(ctx)
	if err != nil {
		return fmt.Errorf("next pending review: %w", err)
	}
	if !found {
		return r.Send(ctx, "Review queue is empty.")
	}
	fields := map[string]string{
		"ESTADO_ITEM":   string(store.ItemActive),
		"GATEKEEPER_ID": fmt.Sprint(by),
	}
	if _, err := rt.items.UpdateFields(ctx, it.ID, fields); err != nil {
		return fmt.Errorf("publish %s: %w", it.ID, err)
	}
	if rt.audit != nil {
		_, _ = rt.audit.Record(ctx, store.ActivityEntry{
			Actor:  by,
			Role:   role,
			Action: "ITEM_PUBLISHED",
			ItemID: it.ID,
			Result: "OK",
		})
	}
	return r.Send(ctx, fmt.Sprintf("Published %s ✅", it.ID))
}

func (rt *Router) listMyItems(ctx context.Context, workerID int64, _ store.Role, r chat.Responder) error {
	var lines string
	for _, status := range []store.ItemStatus{store.ItemActive, store.ItemDraft} {
		items, err := rt.items.ListByStatus(ctx, status, workerID, pendingListLimit)
		if err != nil {
			return fmt.Errorf("list my items: %w", err)
		}
		for _, it := range items {
			lines += fmt.Sprintf("• %s [%s] %s\n", it.ID, it.Status, it.OwnerNameCache)
		}
	}
	if lines == "" {
		return r.Send(ctx, "You have no items yet.")
	}
	return r.Send(ctx, "Your items:\n"+lines)
}
