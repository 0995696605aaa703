package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"brokerbot/core/logger"
	"brokerbot/internal/tabular"
)

// TaskIDPrefix is prepended to the issued sequence number.
const TaskIDPrefix = "TASK-"

// Task is the decoded form of a row in the tasks table.
type Task struct {
	ID             string
	CreatedBy      int64
	AssignedTo     int64
	Type           TaskType
	Title          string
	Description    string
	DueAt          string
	Status         TaskStatus
	LastReminderAt string
	RelatedOwnerID string
	RelatedItemID  string
}

// TaskStore manages follow-up and to-do tasks.
type TaskStore struct {
	tab             tabular.Store
	table           string
	seq             tabular.Sequencer
	reminderFreqMin int
	now             func() time.Time
}

func NewTaskStore(tab tabular.Store, t Tables, seq tabular.Sequencer, reminderFreqMin int) *TaskStore {
	return &TaskStore{
		tab:             tab,
		table:           t.Tasks,
		seq:             seq,
		reminderFreqMin: reminderFreqMin,
		now:             time.Now,
	}
}

func (s *TaskStore) EnsureSchema(ctx context.Context) error {
	if err := s.tab.EnsureTable(ctx, s.table, tasksSchema); err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

func decodeTask(r tabular.Row) Task {
	createdBy, _ := strconv.ParseInt(r.Get(tColCreatedBy), 10, 64)
	assignedTo, _ := strconv.ParseInt(r.Get(tColAssignedTo), 10, 64)
	return Task{
		ID:             r.Get(tColID),
		CreatedBy:      createdBy,
		AssignedTo:     assignedTo,
		Type:           TaskType(r.Get(tColType)),
		Title:          r.Get(tColTitle),
		Description:    r.Get(tColDescription),
		DueAt:          r.Get(tColDueAt),
		Status:         TaskStatus(r.Get(tColStatus)),
		LastReminderAt: r.Get(tColLastReminderAt),
		RelatedOwnerID: r.Get(tColRelatedOwnerID),
		RelatedItemID:  r.Get(tColRelatedItemID),
	}
}

// NewTask is the input for Create; zero-value optional fields stay blank.
type NewTask struct {
	CreatedBy      int64
	AssignedTo     int64
	Type           TaskType
	Title          string
	Description    string
	DueAt          time.Time
	RelatedOwnerID string
	RelatedItemID  string
}

// Create issues the next task id and appends the record with status OPEN.
func (s *TaskStore) Create(ctx context.Context, t NewTask) (string, error) {
	n, err := s.seq.Next(ctx, "tasks")
	if err != nil {
		return "", fmt.Errorf("issue task id: %w", err)
	}
	id := tabular.FormatID(TaskIDPrefix, n)
	row := make([]string, len(tasksSchema))
	row[tColID] = id
	row[tColCreatedAt] = s.now().Format(timeLayout)
	row[tColCreatedBy] = strconv.FormatInt(t.CreatedBy, 10)
	row[tColAssignedTo] = strconv.FormatInt(t.AssignedTo, 10)
	row[tColType] = string(t.Type)
	row[tColTitle] = t.Title
	row[tColDescription] = t.Description
	if !t.DueAt.IsZero() {
		row[tColDueAt] = t.DueAt.Format(timeLayout)
	}
	row[tColStatus] = string(TaskOpen)
	row[tColReminderFreqMin] = strconv.Itoa(s.reminderFreqMin)
	row[tColRelatedOwnerID] = t.RelatedOwnerID
	row[tColRelatedItemID] = t.RelatedItemID
	if err := s.tab.AppendRow(ctx, s.table, row); err != nil {
		return "", fmt.Errorf("append task %s: %w", id, err)
	}
	logger.Info(ctx, "store", "task_created",
		slog.String("task_id", id), slog.Int64("assigned_to", t.AssignedTo))
	return id, nil
}

// OpenForUser lists the user's OPEN tasks, oldest first.
func (s *TaskStore) OpenForUser(ctx context.Context, assignedTo int64, limit int) ([]Task, error) {
	want := strconv.FormatInt(assignedTo, 10)
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return r.Get(tColAssignedTo) == want && TaskStatus(r.Get(tColStatus)) == TaskOpen
	}, tabular.OldestFirst, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeTask(r))
	}
	return out, nil
}

// SetStatus transitions the task; ok=false means the id is unknown.
func (s *TaskStore) SetStatus(ctx context.Context, id string, status TaskStatus) (bool, error) {
	rows, err := s.findRow(ctx, id)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	ok, err := s.tab.UpdateCell(ctx, s.table, rows[0].Index, "STATUS", string(status))
	if ok {
		logger.Info(ctx, "store", "task_status_changed",
			slog.String("task_id", id), slog.String("status", string(status)))
	}
	return ok, err
}

// StampReminder records that a reminder was just sent for the task.
func (s *TaskStore) StampReminder(ctx context.Context, id string) (bool, error) {
	rows, err := s.findRow(ctx, id)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	return s.tab.UpdateCell(ctx, s.table, rows[0].Index, "LAST_REMINDER_SENT_AT", s.now().Format(timeLayout))
}

func (s *TaskStore) findRow(ctx context.Context, id string) ([]tabular.Row, error) {
	return tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return r.Get(tColID) == id
	}, tabular.OldestFirst, 1)
}
