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

// User is the decoded form of a row in the users table.
type User struct {
	ID         int64
	FullName   string
	Username   string
	Role       Role
	Status     UserStatus
	CreatedAt  string
	ApprovedBy string
	ApprovedAt string
}

// UserStore manages identities and their role grants.
//
// Roles live in two places: the grants table holds one row per discrete
// (user, role) pair and is authoritative; the ROLE column on the users row
// is a derived cache kept for at-a-glance reading. Derivation always runs
// over the grants.
type UserStore struct {
	tab    tabular.Store
	users  string
	grants string
	admins map[int64]struct{}
	now    func() time.Time
}

func NewUserStore(tab tabular.Store, t Tables, admins map[int64]struct{}) *UserStore {
	return &UserStore{
		tab:    tab,
		users:  t.Users,
		grants: t.Grants,
		admins: admins,
		now:    time.Now,
	}
}

// EnsureSchema creates or widens the users and grants tables.
func (s *UserStore) EnsureSchema(ctx context.Context) error {
	if err := s.tab.EnsureTable(ctx, s.users, usersSchema); err != nil {
		return fmt.Errorf("ensure %s: %w", s.users, err)
	}
	if err := s.tab.EnsureTable(ctx, s.grants, grantsSchema); err != nil {
		return fmt.Errorf("ensure %s: %w", s.grants, err)
	}
	return nil
}

func decodeUser(r tabular.Row) User {
	id, _ := strconv.ParseInt(r.Get(uColID), 10, 64)
	return User{
		ID:         id,
		FullName:   r.Get(uColFullName),
		Username:   r.Get(uColUsername),
		Role:       Role(r.Get(uColRole)),
		Status:     UserStatus(r.Get(uColStatus)),
		CreatedAt:  r.Get(uColCreatedAt),
		ApprovedBy: r.Get(uColApprovedBy),
		ApprovedAt: r.Get(uColApprovedAt),
	}
}

// FindByID returns the user's row, or found=false when the identity has
// never been registered.
func (s *UserStore) FindByID(ctx context.Context, id int64) (User, bool, error) {
	want := strconv.FormatInt(id, 10)
	rows, err := tabular.Filter(ctx, s.tab, s.users, func(r tabular.Row) bool {
		return r.Get(uColID) == want
	}, tabular.OldestFirst, 1)
	if err != nil {
		return User{}, false, err
	}
	if len(rows) == 0 {
		return User{}, false, nil
	}
	return decodeUser(rows[0]), true, nil
}

// RegisterPending records a first-contact identity with status PENDING.
// Idempotent: an already known user is left untouched and created=false is
// returned.
func (s *UserStore) RegisterPending(ctx context.Context, id int64, fullName, username string) (bool, error) {
	_, found, err := s.FindByID(ctx, id)
	if err != nil || found {
		return false, err
	}
	row := make([]string, len(usersSchema))
	row[uColID] = strconv.FormatInt(id, 10)
	row[uColFullName] = fullName
	row[uColUsername] = username
	row[uColStatus] = string(StatusPending)
	row[uColCreatedAt] = s.now().Format(timeLayout)
	if err := s.tab.AppendRow(ctx, s.users, row); err != nil {
		return false, fmt.Errorf("register pending: %w", err)
	}
	logger.Info(ctx, "store", "user_registered_pending", slog.Int64("user_id", id))
	return true, nil
}

// ListPending returns users still waiting for approval, oldest first.
func (s *UserStore) ListPending(ctx context.Context, limit int) ([]User, error) {
	rows, err := tabular.Filter(ctx, s.tab, s.users, func(r tabular.Row) bool {
		return UserStatus(r.Get(uColStatus)) == StatusPending
	}, tabular.OldestFirst, limit)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeUser(r))
	}
	return out, nil
}

// Grants lists the discrete role grants held by the user.
func (s *UserStore) Grants(ctx context.Context, id int64) ([]Role, error) {
	want := strconv.FormatInt(id, 10)
	rows, err := tabular.Filter(ctx, s.tab, s.grants, func(r tabular.Row) bool {
		return r.Get(gColUserID) == want
	}, tabular.OldestFirst, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Role, 0, len(rows))
	for _, r := range rows {
		if role, ok := ParseRole(r.Get(gColRole)); ok {
			out = append(out, role)
		}
	}
	return out, nil
}

// AssignRole grants a discrete role. A duplicate (user, role) pair is
// refused with added=false and no write. On a successful grant the user's
// cached ROLE label is re-derived and their status promoted to ACTIVE.
func (s *UserStore) AssignRole(ctx context.Context, id int64, role Role, grantedBy int64) (bool, error) {
	have, err := s.Grants(ctx, id)
	if err != nil {
		return false, err
	}
	for _, g := range have {
		if g == role {
			return false, nil
		}
	}
	row := make([]string, len(grantsSchema))
	row[gColUserID] = strconv.FormatInt(id, 10)
	row[gColRole] = string(role)
	row[gColGrantedBy] = strconv.FormatInt(grantedBy, 10)
	row[gColGrantedAt] = s.now().Format(timeLayout)
	if err := s.tab.AppendRow(ctx, s.grants, row); err != nil {
		return false, fmt.Errorf("assign role: %w", err)
	}
	if err := s.refreshDerived(ctx, id, append(have, role)); err != nil {
		return true, err
	}
	logger.Info(ctx, "store", "role_assigned", slog.Int64("user_id", id), slog.String("role", string(role)), slog.Int64("by", grantedBy))
	return true, nil
}

// RemoveRole revokes a discrete grant by blanking its row. removed=false
// means the pair did not exist.
func (s *UserStore) RemoveRole(ctx context.Context, id int64, role Role) (bool, error) {
	want := strconv.FormatInt(id, 10)
	rows, err := tabular.Filter(ctx, s.tab, s.grants, func(r tabular.Row) bool {
		return r.Get(gColUserID) == want && r.Get(gColRole) == string(role)
	}, tabular.OldestFirst, 1)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	// Rows are append-only, so a revoked grant is marked by clearing its
	// USER_ID cell rather than deleting the row.
	ok, err := s.tab.UpdateCell(ctx, s.grants, rows[0].Index, "USER_ID", "")
	if err != nil || !ok {
		return false, err
	}
	have, err := s.Grants(ctx, id)
	if err != nil {
		return true, err
	}
	if err := s.refreshDerived(ctx, id, have); err != nil {
		return true, err
	}
	logger.Info(ctx, "store", "role_removed", slog.Int64("user_id", id), slog.String("role", string(role)))
	return true, nil
}

// EffectiveRole derives the user's single effective role and returns it
// with their status. Unknown identities report (none, PENDING); a known
// user whose status is not ACTIVE also reports role none, since a role is
// meaningless for gating until approval.
func (s *UserStore) EffectiveRole(ctx context.Context, id int64) (Role, UserStatus, error) {
	u, found, err := s.FindByID(ctx, id)
	if err != nil {
		return RoleNone, StatusPending, err
	}
	if !found {
		return RoleNone, StatusPending, nil
	}
	if u.Status != StatusActive {
		return RoleNone, u.Status, nil
	}
	grants, err := s.Grants(ctx, id)
	if err != nil {
		return RoleNone, u.Status, err
	}
	role := DeriveRole(grants)
	if role == RoleNone {
		// Legacy rows predate the grants table; fall back to the cached label.
		if cached, ok := ParseRole(string(u.Role)); ok {
			role = cached
		}
	}
	return role, u.Status, nil
}

// BootstrapAdmin self-provisions a configured administrator on first
// contact: registers the identity if needed and grants the ADMIN and
// GATEKEEPER bundle. Idempotent; non-configured ids are rejected.
func (s *UserStore) BootstrapAdmin(ctx context.Context, id int64, fullName, username string) (bool, error) {
	if _, ok := s.admins[id]; !ok {
		return false, nil
	}
	if _, err := s.RegisterPending(ctx, id, fullName, username); err != nil {
		return false, err
	}
	granted := false
	for _, role := range []Role{RoleAdmin, RoleGatekeeper} {
		added, err := s.AssignRole(ctx, id, role, id)
		if err != nil {
			return granted, err
		}
		granted = granted || added
	}
	if granted {
		logger.Info(ctx, "store", "admin_bootstrapped", slog.Int64("user_id", id))
	}
	return granted, nil
}

// Approve grants the requested roles to a pending user and stamps the
// approval columns. BOTH is expanded into its discrete grants by the
// caller before reaching here.
func (s *UserStore) Approve(ctx context.Context, target int64, roles []Role, by int64) error {
	for _, role := range roles {
		if _, err := s.AssignRole(ctx, target, role, by); err != nil {
			return err
		}
	}
	now := s.now().Format(timeLayout)
	if err := s.updateUserCells(ctx, target, map[string]string{
		"APPROVED_BY": strconv.FormatInt(by, 10),
		"APPROVED_AT": now,
	}); err != nil {
		return err
	}
	logger.Info(ctx, "store", "user_approved", slog.Int64("user_id", target), slog.Int64("by", by))
	return nil
}

// Reject blocks a pending user.
func (s *UserStore) Reject(ctx context.Context, target int64, by int64) error {
	if err := s.updateUserCells(ctx, target, map[string]string{
		"STATUS":      string(StatusBlocked),
		"APPROVED_BY": strconv.FormatInt(by, 10),
	}); err != nil {
		return err
	}
	logger.Info(ctx, "store", "user_rejected", slog.Int64("user_id", target), slog.Int64("by", by))
	return nil
}

// refreshDerived recomputes the cached ROLE label and promotes status to
// ACTIVE whenever at least one grant remains.
func (s *UserStore) refreshDerived(ctx context.Context, id int64, grants []Role) error {
	cells := map[string]string{"ROLE": string(DeriveRole(grants))}
	if len(grants) > 0 {
		cells["STATUS"] = string(StatusActive)
	}
	return s.updateUserCells(ctx, id, cells)
}

func (s *UserStore) updateUserCells(ctx context.Context, id int64, cells map[string]string) error {
	want := strconv.FormatInt(id, 10)
	rows, err := tabular.Filter(ctx, s.tab, s.users, func(r tabular.Row) bool {
		return r.Get(uColID) == want
	}, tabular.OldestFirst, 1)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("user %d not found in %s", id, s.users)
	}
	for col, val := range cells {
		if _, err := s.tab.UpdateCell(ctx, s.users, rows[0].Index, col, val); err != nil {
			return fmt.Errorf("update %s for user %d: %w", col, id, err)
		}
	}
	return nil
}
