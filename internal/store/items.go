package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"brokerbot/core/logger"
	"brokerbot/internal/tabular"
)

// ItemIDPrefix is prepended to the issued sequence number.
const ItemIDPrefix = "VP-"

// Item is the decoded form of a row in the items table.
type Item struct {
	ID               string
	Status           ItemStatus
	FinderID         int64
	SellerID         int64
	OwnerID          string
	OwnerType        string
	OwnerNameCache   string
	RawCaption       string
	VIN              string
	PublicDesc       string
	PublicLocation   string
	ListPrice        string
	CreatedAt        string
	NextConfirmDueAt string
	AutoHideAt       string
}

// ItemStore manages item (inventory) records.
type ItemStore struct {
	tab   tabular.Store
	table string
	seq   tabular.Sequencer

	confirmWindow time.Duration
	autoHideAfter time.Duration

	now func() time.Time
}

// NewItemStore wires the item table. confirmDays is how long an item stays
// publishable before availability must be re-confirmed; autoHideDays is the
// hard deadline after which it is hidden automatically.
func NewItemStore(tab tabular.Store, t Tables, seq tabular.Sequencer, confirmDays, autoHideDays int) *ItemStore {
	return &ItemStore{
		tab:           tab,
		table:         t.Items,
		seq:           seq,
		confirmWindow: time.Duration(confirmDays) * 24 * time.Hour,
		autoHideAfter: time.Duration(autoHideDays) * 24 * time.Hour,
		now:           time.Now,
	}
}

func (s *ItemStore) EnsureSchema(ctx context.Context) error {
	if err := s.tab.EnsureTable(ctx, s.table, itemsSchema); err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

func decodeItem(r tabular.Row) Item {
	finder, _ := strconv.ParseInt(r.Get(iColFinderID), 10, 64)
	seller, _ := strconv.ParseInt(r.Get(iColSellerID), 10, 64)
	return Item{
		ID:               r.Get(iColID),
		Status:           ItemStatus(r.Get(iColStatus)),
		FinderID:         finder,
		SellerID:         seller,
		OwnerID:          r.Get(iColOwnerID),
		OwnerType:        r.Get(iColOwnerType),
		OwnerNameCache:   r.Get(iColOwnerNameCache),
		RawCaption:       r.Get(iColRawCaption),
		VIN:              r.Get(iColVIN),
		PublicDesc:       r.Get(iColPublicDesc),
		PublicLocation:   r.Get(iColPublicLocation),
		ListPrice:        r.Get(iColListPrice),
		CreatedAt:        r.Get(iColCreatedAt),
		NextConfirmDueAt: r.Get(iColNextConfirmDueAt),
		AutoHideAt:       r.Get(iColAutoHideAt),
	}
}

// vinPattern matches a 17-character VIN; I, O and Q are never used.
var vinPattern = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)

// ExtractVIN pulls the first plausible VIN out of free-form caption text,
// or "" when none is present. Matching is case-insensitive; the stored
// VIN is always uppercase.
func ExtractVIN(caption string) string {
	return vinPattern.FindString(strings.ToUpper(caption))
}

// CreateDraft issues the next item id and appends a DRAFT row linked to
// the given owner. The availability windows are stamped relative to now:
// NEXT_CONFIRM_DUE_AT after the confirm window, AUTO_HIDE_AT after the
// auto-hide deadline.
func (s *ItemStore) CreateDraft(ctx context.Context, finderID int64, ownerID, ownerType, ownerName, rawCaption string, photoCount int) (string, error) {
	n, err := s.seq.Next(ctx, "items")
	if err != nil {
		return "", fmt.Errorf("issue item id: %w", err)
	}
	id := tabular.FormatID(ItemIDPrefix, n)
	now := s.now()
	row := make([]string, len(itemsSchema))
	row[iColCreatedAt] = now.Format(timeLayout)
	row[iColID] = id
	row[iColStatus] = string(ItemDraft)
	row[iColFinderID] = strconv.FormatInt(finderID, 10)
	row[iColRawCaption] = rawCaption
	row[iColPhotoCount] = strconv.Itoa(photoCount)
	row[iColOwnerID] = ownerID
	row[iColOwnerType] = ownerType
	row[iColOwnerNameCache] = ownerName
	row[iColVIN] = ExtractVIN(rawCaption)
	row[iColNextConfirmDueAt] = now.Add(s.confirmWindow).Format(timeLayout)
	row[iColAutoHideAt] = now.Add(s.autoHideAfter).Format(timeLayout)
	if err := s.tab.AppendRow(ctx, s.table, row); err != nil {
		return "", fmt.Errorf("append item %s: %w", id, err)
	}
	logger.Info(ctx, "store", "item_draft_created",
		slog.String("item_id", id), slog.String("owner_id", ownerID), slog.Int64("finder_id", finderID))
	return id, nil
}

// Get returns the item by id, found=false when absent.
func (s *ItemStore) Get(ctx context.Context, id string) (Item, bool, error) {
	rows, err := s.findRow(ctx, id)
	if err != nil || len(rows) == 0 {
		return Item{}, false, err
	}
	return decodeItem(rows[0]), true, nil
}

// UpdateFields writes the given column values and stamps LAST_UPDATED_AT.
// ok=false when the item id is unknown.
func (s *ItemStore) UpdateFields(ctx context.Context, id string, fields map[string]string) (bool, error) {
	rows, err := s.findRow(ctx, id)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	for col, val := range fields {
		if _, err := s.tab.UpdateCell(ctx, s.table, rows[0].Index, col, val); err != nil {
			return false, fmt.Errorf("update %s on item %s: %w", col, id, err)
		}
	}
	if _, err := s.tab.UpdateCell(ctx, s.table, rows[0].Index, "LAST_UPDATED_AT", s.now().Format(timeLayout)); err != nil {
		return false, err
	}
	return true, nil
}

// SetStatus transitions the item and stamps LAST_UPDATED_AT.
func (s *ItemStore) SetStatus(ctx context.Context, id string, status ItemStatus) (bool, error) {
	ok, err := s.UpdateFields(ctx, id, map[string]string{"ESTADO_ITEM": string(status)})
	if ok {
		logger.Info(ctx, "store", "item_status_changed",
			slog.String("item_id", id), slog.String("status", string(status)))
	}
	return ok, err
}

// ConfirmAvailable re-opens the availability windows after an owner has
// confirmed the item is still for sale.
func (s *ItemStore) ConfirmAvailable(ctx context.Context, id string) (bool, error) {
	now := s.now()
	return s.UpdateFields(ctx, id, map[string]string{
		"LAST_CONFIRMED_AVAILABLE_AT": now.Format(timeLayout),
		"NEXT_CONFIRM_DUE_AT":         now.Add(s.confirmWindow).Format(timeLayout),
		"AUTO_HIDE_AT":                now.Add(s.autoHideAfter).Format(timeLayout),
	})
}

// ListByStatus lists items in the given state, newest first. workerID
// filters to a finder's or seller's own items when non-zero.
func (s *ItemStore) ListByStatus(ctx context.Context, status ItemStatus, workerID int64, limit int) ([]Item, error) {
	want := ""
	if workerID != 0 {
		want = strconv.FormatInt(workerID, 10)
	}
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		if ItemStatus(r.Get(iColStatus)) != status {
			return false
		}
		if want == "" {
			return true
		}
		return r.Get(iColFinderID) == want || r.Get(iColSellerID) == want
	}, tabular.NewestFirst, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeItem(r))
	}
	return out, nil
}

// NextPendingReview returns the oldest item awaiting gatekeeper review,
// found=false when the queue is empty.
func (s *ItemStore) NextPendingReview(ctx context.Context) (Item, bool, error) {
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return ItemStatus(r.Get(iColStatus)) == ItemPendingReview
	}, tabular.OldestFirst, 1)
	if err != nil || len(rows) == 0 {
		return Item{}, false, err
	}
	return decodeItem(rows[0]), true, nil
}

// OverdueForHide lists ACTIVE items whose AUTO_HIDE_AT deadline has
// passed, oldest first.
func (s *ItemStore) OverdueForHide(ctx context.Context) ([]Item, error) {
	now := s.now()
	rows, err := tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		if ItemStatus(r.Get(iColStatus)) != ItemActive {
			return false
		}
		due, err := time.ParseInLocation(timeLayout, r.Get(iColAutoHideAt), time.Local)
		return err == nil && now.After(due)
	}, tabular.OldestFirst, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeItem(r))
	}
	return out, nil
}

func (s *ItemStore) findRow(ctx context.Context, id string) ([]tabular.Row, error) {
	return tabular.Filter(ctx, s.tab, s.table, func(r tabular.Row) bool {
		return r.Get(iColID) == id
	}, tabular.OldestFirst, 1)
}
