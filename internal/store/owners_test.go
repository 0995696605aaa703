package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"brokerbot/internal/tabular"
)

func newOwnerStore(t *testing.T) *OwnerStore {
	t.Helper()
	s := NewOwnerStore(tabular.NewMemory(), testTables(), tabular.NewMemorySequencer())
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestOwnerCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newOwnerStore(t)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local) }

	id, err := s.Create(ctx, OwnerDraft{
		Type:  "Truck Owner",
		Name:  "Bob",
		Phone: "555-0100",
		City:  "Metro",
		Lat:   1.0,
		Lng:   2.0,
	}, 700)
	if err != nil {
		t.Fatal(err)
	}
	if id != "OWN-000001" {
		t.Errorf("first id = %q, want OWN-000001", id)
	}

	o, found, err := s.Get(ctx, id)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if o.Status != OwnerPending {
		t.Errorf("status = %q, want PENDING", o.Status)
	}
	if o.ClaimedBy != 700 {
		t.Errorf("claimed_by = %d, want 700", o.ClaimedBy)
	}
	if o.CreatedAt != "2026-03-01 12:00:00" {
		t.Errorf("created_at = %q", o.CreatedAt)
	}
	if !strings.Contains(o.MapsLink, "1.000000,2.000000") {
		t.Errorf("maps link = %q", o.MapsLink)
	}

	id2, err := s.Create(ctx, OwnerDraft{Name: "Carl"}, 700)
	if err != nil {
		t.Fatal(err)
	}
	if id2 != "OWN-000002" {
		t.Errorf("second id = %q, want OWN-000002", id2)
	}
}

func TestOwnerApprove(t *testing.T) {
	ctx := context.Background()
	s := newOwnerStore(t)
	id, err := s.Create(ctx, OwnerDraft{Name: "Bob"}, 700)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.Approve(ctx, id, 42)
	if err != nil || !ok {
		t.Fatalf("Approve: ok=%v err=%v", ok, err)
	}
	o, _, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != OwnerApproved {
		t.Errorf("status = %q, want APPROVED", o.Status)
	}

	ok, err = s.Approve(ctx, "OWN-999999", 42)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("approving an unknown owner should report false")
	}
}

func TestOwnerFindMatches(t *testing.T) {
	ctx := context.Background()
	s := newOwnerStore(t)
	for _, d := range []OwnerDraft{
		{Name: "Garcia Trucking", Phone: "555-0101"},
		{Name: "Smith Auto", Phone: "555-0202"},
		{Name: "garcia motors", Phone: "777-0303"},
	} {
		if _, err := s.Create(ctx, d, 1); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.FindMatches(ctx, "GARCIA", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("name match count = %d, want 2", len(got))
	}

	got, err = s.FindMatches(ctx, "0202", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Smith Auto" {
		t.Errorf("phone match = %+v", got)
	}

	got, err = s.FindMatches(ctx, "  ", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Error("blank query should match nothing")
	}
}

func TestOwnerRecentForUser(t *testing.T) {
	ctx := context.Background()
	s := newOwnerStore(t)
	for _, d := range []OwnerDraft{{Name: "First"}, {Name: "Second"}, {Name: "Third"}} {
		if _, err := s.Create(ctx, d, 900); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Create(ctx, OwnerDraft{Name: "Other"}, 901); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentForUser(ctx, 900, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Third" || got[1].Name != "Second" {
		t.Errorf("order = %q, %q; want newest first", got[0].Name, got[1].Name)
	}
}
