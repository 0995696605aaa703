package store

import (
	"context"
	"testing"
	"time"

	"brokerbot/internal/tabular"
)

func newTaskStore(t *testing.T) *TaskStore {
	t.Helper()
	s := NewTaskStore(tabular.NewMemory(), testTables(), tabular.NewMemorySequencer(), 60)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestTaskCreateAndOpenForUser(t *testing.T) {
	ctx := context.Background()
	s := newTaskStore(t)

	due := time.Date(2026, 3, 5, 10, 0, 0, 0, time.Local)
	id, err := s.Create(ctx, NewTask{
		CreatedBy:      42,
		AssignedTo:     700,
		Type:           TaskFollowup,
		Title:          "Call Bob about the Cascadia",
		DueAt:          due,
		RelatedOwnerID: "OWN-000001",
		RelatedItemID:  "VP-000001",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "TASK-000001" {
		t.Errorf("id = %q, want TASK-000001", id)
	}

	if _, err := s.Create(ctx, NewTask{CreatedBy: 42, AssignedTo: 700, Type: TaskTodo, Title: "Photos"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, NewTask{CreatedBy: 42, AssignedTo: 701, Type: TaskTodo, Title: "Other"}); err != nil {
		t.Fatal(err)
	}

	open, err := s.OpenForUser(ctx, 700, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Fatalf("open count = %d, want 2", len(open))
	}
	if open[0].ID != id {
		t.Errorf("order = %q first, want oldest first", open[0].ID)
	}
	if open[0].DueAt != due.Format(timeLayout) {
		t.Errorf("due = %q", open[0].DueAt)
	}
	if open[0].RelatedOwnerID != "OWN-000001" {
		t.Errorf("related owner = %q", open[0].RelatedOwnerID)
	}
}

func TestTaskSetStatus(t *testing.T) {
	ctx := context.Background()
	s := newTaskStore(t)
	id, err := s.Create(ctx, NewTask{CreatedBy: 42, AssignedTo: 700, Type: TaskTodo, Title: "Photos"})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.SetStatus(ctx, id, TaskDone)
	if err != nil || !ok {
		t.Fatalf("SetStatus: ok=%v err=%v", ok, err)
	}
	open, err := s.OpenForUser(ctx, 700, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Errorf("done task still listed as open: %+v", open)
	}

	ok, err = s.SetStatus(ctx, "TASK-999999", TaskDone)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unknown task should report false")
	}
}

func TestTaskStampReminder(t *testing.T) {
	ctx := context.Background()
	s := newTaskStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	s.now = func() time.Time { return base }

	id, err := s.Create(ctx, NewTask{CreatedBy: 42, AssignedTo: 700, Type: TaskFollowup, Title: "Call"})
	if err != nil {
		t.Fatal(err)
	}
	ok, err := s.StampReminder(ctx, id)
	if err != nil || !ok {
		t.Fatalf("StampReminder: ok=%v err=%v", ok, err)
	}
	open, err := s.OpenForUser(ctx, 700, 0)
	if err != nil {
		t.Fatal(err)
	}
	if open[0].LastReminderAt != base.Format(timeLayout) {
		t.Errorf("last reminder = %q", open[0].LastReminderAt)
	}
}
