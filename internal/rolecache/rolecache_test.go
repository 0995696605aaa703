package rolecache

import (
	"context"
	"testing"

	"brokerbot/internal/store"
)

type countingResolver struct {
	role   store.Role
	status store.UserStatus
	calls  int
}

func (r *countingResolver) EffectiveRole(context.Context, int64) (store.Role, store.UserStatus, error) {
	r.calls++
	return r.role, r.status, nil
}

func TestResolveMemoizes(t *testing.T) {
	ctx := context.Background()
	res := &countingResolver{role: store.RoleFinder, status: store.StatusActive}
	c := New(res, nil)

	for i := 0; i < 5; i++ {
		role, status, err := c.Resolve(ctx, 700)
		if err != nil {
			t.Fatal(err)
		}
		if role != store.RoleFinder || status != store.StatusActive {
			t.Fatalf("resolve #%d: role=%q status=%q", i, role, status)
		}
	}
	if res.calls != 1 {
		t.Errorf("resolver called %d times, want 1", res.calls)
	}
}

func TestInvalidateForcesReread(t *testing.T) {
	ctx := context.Background()
	res := &countingResolver{role: store.RoleNone, status: store.StatusPending}
	c := New(res, nil)

	role, _, err := c.Resolve(ctx, 700)
	if err != nil {
		t.Fatal(err)
	}
	if role != store.RoleNone {
		t.Fatalf("role = %q, want none", role)
	}

	// Approval happens: the store now derives FINDER, but the cache still
	// holds the stale entry until invalidated.
	res.role, res.status = store.RoleFinder, store.StatusActive
	role, _, _ = c.Resolve(ctx, 700)
	if role != store.RoleNone {
		t.Fatalf("expected stale entry before invalidation, got %q", role)
	}

	c.Invalidate(700)
	role, status, err := c.Resolve(ctx, 700)
	if err != nil {
		t.Fatal(err)
	}
	if role != store.RoleFinder || status != store.StatusActive {
		t.Errorf("after invalidation: role=%q status=%q", role, status)
	}
	if res.calls != 2 {
		t.Errorf("resolver called %d times, want 2", res.calls)
	}
}

func TestIsAdmin(t *testing.T) {
	c := New(&countingResolver{}, map[int64]struct{}{42: {}})
	if !c.IsAdmin(42) {
		t.Error("configured admin not recognized")
	}
	if c.IsAdmin(43) {
		t.Error("unconfigured id recognized as admin")
	}
}

func TestMarkAdminMemoizesBootstrap(t *testing.T) {
	c := New(&countingResolver{}, map[int64]struct{}{42: {}})

	// Configured admins pass IsAdmin before any bootstrap mark.
	if c.AdminMarked(42) {
		t.Error("configured admin marked before bootstrap")
	}
	c.MarkAdmin(42)
	if !c.AdminMarked(42) {
		t.Error("mark not recorded")
	}

	// A mark alone also satisfies IsAdmin.
	if c.IsAdmin(77) {
		t.Error("unmarked id recognized as admin")
	}
	c.MarkAdmin(77)
	if !c.IsAdmin(77) || !c.AdminMarked(77) {
		t.Error("marked id not recognized as admin")
	}
}
