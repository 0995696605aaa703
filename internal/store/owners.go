package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"brokerbot/core/logger"
	"brokerbot/internal/tabular"
)

// OwnerIDPrefix is prepended to the issued sequence number.
const OwnerIDPrefix = "OWN-"

// Owner is the decoded form of a row in the owners table.
type Owner struct {
	ID        string
	Type      string
	Name      string
	Phone     string
	City      string
	MapsLink  string
	ClaimedBy int64
	Status    OwnerStatus
	CreatedAt string
}

// OwnerDraft is the wizard's collected input, ready to commit.
type OwnerDraft struct {
	Type  string
	Name  string
	Phone string
	City  string
	Lat   float64
	Lng   float64
}

// OwnerStore manages owner (source contact) records.
type OwnerStore struct {
	tab   tabular.Store
	table string
	seq   tabular.Sequencer
	now   func() time.Time
}

func NewOwnerStore(tab tabular.Store, t Tables, seq tabular.Sequencer) *OwnerStore {
	return &OwnerStore{tab: tab, table: t.Owners, seq: seq, now: time.Now}
}

func (s *OwnerStore) EnsureSchema(ctx context.Context) error {
	if err := s.tab.EnsureTable(ctx, s.table, ownersSchema); err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

func decodeOwner(r tabular.Row) Owner {
	claimed, _ := strconv.ParseInt(r.Get(oColClaimedBy), 10, 64)
	return Owner{
		ID:        r.Get(oColID),
		Type:      r.Get(oColType),
		Name:      r.Get(oColName),
		Phone:     r.Get(oColPhone),
		City:      r.Get(oColCity),
		MapsLink:  r.Get(oColMapsLink),
		ClaimedBy: claimed,
		Status:    OwnerStatus(r.Get(oColStatus)),
		CreatedAt: r.Get(oColCreatedAt),
	}
}

// MapsLink renders the captured coordinates as a shareable maps URL.
func MapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", lat, lng)
}

// Create issues the next owner id and appends the record with status
// PENDING, claimed by the submitting finder.
func (s *OwnerStore) Create(ctx context.Context, d OwnerDraft, claimedBy int64) (string, error) {
	n, err := s.seq.Next(ctx, "owners")
	if err != nil {
		return "", fmt.Errorf("issue owner id: %w", err)
	}
	id := tabular.FormatID(OwnerIDPrefix, n)
	row := make([]string, len(ownersSchema))
	row[oColID] = id
	row[oColType] = d.Type
	row[oColName] = d.Name
	row[oColPhone] = d.Phone
	row[oColCity] = d.City
	row[oColMapsLink] = MapsLink(d.Lat, d.Lng)
	row[oColClaimedBy] = strconv.FormatInt(claimedBy, 10)
	row[oColStatus] = string(OwnerPending)
	row[oColCreatedAt] = s.now().Format(timeLayout)
	if err := s.tab.AppendRow(ctx, s.table, row); err != nil {
		return "", fmt.Errorf("append owner %s: %w", id, err)
	}
	logger.Info(ctx, "store", "owner_created",
		slog.String("owner_id", id), slog.Int64("claimed_by", claimedBy))
	return id, nil
}

// Get returns the owner by id, found=false when absent.
func (s *OwnerStore) Get(ctx context.Context, id string) (Owner, bool, error) {
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return r.Get(oColID) == id
	}, tabular.OldestFirst, 1)
	if err != nil || len(rows) == 0 {
		return Owner{}, false, err
	}
	return decodeOwner(rows[0]), true, nil
}

// Approve marks the owner APPROVED and records who did it. ok=false when
// the id is unknown.
func (s *OwnerStore) Approve(ctx context.Context, id string, by int64) (bool, error) {
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return r.Get(oColID) == id
	}, tabular.OldestFirst, 1)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	if _, err := s.tab.UpdateCell(ctx, s.table, rows[0].Index, "OWNER_STATUS", string(OwnerApproved)); err != nil {
		return false, err
	}
	if _, err := s.tab.UpdateCell(ctx, s.table, rows[0].Index, "APPROVED_BY", strconv.FormatInt(by, 10)); err != nil {
		return false, err
	}
	logger.Info(ctx, "store", "owner_approved", slog.String("owner_id", id), slog.Int64("by", by))
	return true, nil
}

// TouchContacted stamps LAST_CONTACTED_AT with the current time.
func (s *OwnerStore) TouchContacted(ctx context.Context, id string) (bool, error) {
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return r.Get(oColID) == id
	}, tabular.OldestFirst, 1)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	return s.tab.UpdateCell(ctx, s.table, rows[0].Index, "LAST_CONTACTED_AT", s.now().Format(timeLayout))
}

// FindMatches searches by case-insensitive substring over name and phone,
// oldest first, up to limit.
func (s *OwnerStore) FindMatches(ctx context.Context, query string, limit int) ([]Owner, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return strings.Contains(strings.ToLower(r.Get(oColName)), q) ||
			strings.Contains(r.Get(oColPhone), q)
	}, tabular.OldestFirst, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Owner, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeOwner(r))
	}
	return out, nil
}

// RecentForUser lists the owners most recently claimed by the finder,
// newest first.
func (s *OwnerStore) RecentForUser(ctx context.Context, claimedBy int64, limit int) ([]Owner, error) {
	want := strconv.FormatInt(claimedBy, 10)
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return r.Get(oColClaimedBy) == want
	}, tabular.NewestFirst, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Owner, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeOwner(r))
	}
	return out, nil
}
