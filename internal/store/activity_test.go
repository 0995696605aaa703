package store

import (
	"context"
	"testing"

	"brokerbot/internal/tabular"
)

func TestActivityRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	l := NewActivityLog(tabular.NewMemory(), testTables())
	if err := l.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := l.Record(ctx, ActivityEntry{
		Actor: 700, Role: RoleFinder, Action: "OWNER_CREATED",
		OwnerID: "OWN-000001", Result: "OK",
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Record(ctx, ActivityEntry{
		Actor: 42, Role: RoleAdmin, Action: "USER_APPROVED", Details: "roles=BOTH", Result: "OK",
	})
	if err != nil {
		t.Fatal(err)
	}
	if first == "" || first == second {
		t.Errorf("entry ids must be unique and non-empty: %q, %q", first, second)
	}

	got, err := l.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Action != "USER_APPROVED" || got[0].Actor != 42 {
		t.Errorf("newest entry = %+v", got[0])
	}
}
