package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/ksuid"

	"brokerbot/internal/tabular"
)

// ActivityEntry is one audit record. Zero-value optional fields stay blank.
type ActivityEntry struct {
	Actor   int64
	Role    Role
	Action  string
	ItemID  string
	OwnerID string
	Details string
	Result  string
}

// ActivityLog is the append-only audit trail. Entries are never updated
// or deleted; failures to record are reported but must not block the
// action being logged.
type ActivityLog struct {
	tab   tabular.Store
	table string
	now   func() time.Time
}

func NewActivityLog(tab tabular.Store, t Tables) *ActivityLog {
	return &ActivityLog{tab: tab, table: t.Log, now: time.Now}
}

func (l *ActivityLog) EnsureSchema(ctx context.Context) error {
	if err := l.tab.EnsureTable(ctx, l.table, logSchema); err != nil {
		return fmt.Errorf("ensure %s: %w", l.table, err)
	}
	return nil
}

// Record appends one entry and returns its generated id.
func (l *ActivityLog) Record(ctx context.Context, e ActivityEntry) (string, error) {
	id := ksuid.New().String()
	row := make([]string, len(logSchema))
	row[lColEntryID] = id
	row[lColTimestamp] = l.now().Format(timeLayout)
	row[lColUserID] = strconv.FormatInt(e.Actor, 10)
	row[lColRole] = string(e.Role)
	row[lColAction] = e.Action
	row[lColItemID] = e.ItemID
	row[lColOwnerID] = e.OwnerID
	row[lColDetails] = e.Details
	row[lColResult] = e.Result
	if err := l.tab.AppendRow(ctx, l.table, row); err != nil {
		return "", fmt.Errorf("record activity: %w", err)
	}
	return id, nil
}

// Recent lists the latest entries, newest first.
func (l *ActivityLog) Recent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	rows, err := tabular.Filter(ctx, l.tab, l.table, func(tabular.Row) bool {
		return true
	}, tabular.NewestFirst, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ActivityEntry, 0, len(rows))
	for _, r := range rows {
		actor, _ := strconv.ParseInt(r.Get(lColUserID), 10, 64)
		out = append(out, ActivityEntry{
			Actor:   actor,
			Role:    Role(r.Get(lColRole)),
			Action:  r.Get(lColAction),
			ItemID:  r.Get(lColItemID),
			OwnerID: r.Get(lColOwnerID),
			Details: r.Get(lColDetails),
			Result:  r.Get(lColResult),
		})
	}
	return out, nil
}
