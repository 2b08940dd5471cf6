package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/storage"
)

// CreateGroup persists a new group together with its owner membership.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, owner *models.Member) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now
	if group.Status == "" {
		group.Status = models.StatusPref
	}

	return s.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		if _, err := db.NewInsert().Model(group).Exec(ctx); err != nil {
			return insertErr(err, "group")
		}
		if owner == nil {
			return nil
		}
		owner.GroupID = group.ID
		if owner.JoinedAt.IsZero() {
			owner.JoinedAt = now
		}
		if _, err := db.NewInsert().Model(owner).Exec(ctx); err != nil {
			return insertErr(err, "member")
		}
		return nil
	})
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := new(models.Group)
	err := s.db.NewSelect().Model(group).Where("g.id = ?", groupID).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "group", groupID)
	}
	return group, nil
}

// GetGroupByInviteCode retrieves a group by its invite code.
func (s *SQLiteStore) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	group := new(models.Group)
	err := s.db.NewSelect().Model(group).Where("g.invite_code = ?", code).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "group", code)
	}
	return group, nil
}

// UpdateGroupStatus is a compare-and-swap on (status, version).
func (s *SQLiteStore) UpdateGroupStatus(ctx context.Context, group *models.Group, to models.Status) error {
	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*models.Group)(nil)).
		Set("status = ?", to).
		Set("version = version + 1").
		Set("updated_at = ?", now).
		Where("id = ?", group.ID).
		Where("status = ?", group.Status).
		Where("version = ?", group.Version).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrConflict)
	}

	group.Status = to
	group.Version++
	group.UpdatedAt = now
	return nil
}

// AddMember persists a membership.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	if _, err := s.db.NewInsert().Model(member).Exec(ctx); err != nil {
		return insertErr(err, "member")
	}
	return nil
}

// GetMember retrieves one membership.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	member := new(models.Member)
	err := s.db.NewSelect().Model(member).
		Where("m.group_id = ?", groupID).
		Where("m.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "member", userID)
	}
	return member, nil
}

// ListMembers returns a group's members ordered by join time.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	var members []models.Member
	err := s.db.NewSelect().Model(&members).
		Where("m.group_id = ?", groupID).
		Order("m.joined_at ASC", "m.user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// ListMembersWithPreferences returns every member, with a nil Preference when none was saved.
func (s *SQLiteStore) ListMembersWithPreferences(ctx context.Context, groupID string) ([]storage.MemberPreference, error) {
	members, err := s.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.ListPreferences(ctx, groupID)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*models.Preference, len(prefs))
	for i := range prefs {
		byUser[prefs[i].UserID] = &prefs[i]
	}

	out := make([]storage.MemberPreference, 0, len(members))
	for _, m := range members {
		out = append(out, storage.MemberPreference{Member: m, Preference: byUser[m.UserID]})
	}
	return out, nil
}

// CountMembers returns the number of members in a group.
func (s *SQLiteStore) CountMembers(ctx context.Context, groupID string) (int, error) {
	n, err := s.db.NewSelect().Model((*models.Member)(nil)).
		Where("m.group_id = ?", groupID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// CountSubmittedMembers returns the number of members that submitted availability.
func (s *SQLiteStore) CountSubmittedMembers(ctx context.Context, groupID string) (int, error) {
	n, err := s.db.NewSelect().Model((*models.Member)(nil)).
		Where("m.group_id = ?", groupID).
		Where("m.submitted_at IS NOT NULL").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count submitted members: %w", err)
	}
	return n, nil
}

// MarkSubmitted sets a member's submitted-at timestamp.
func (s *SQLiteStore) MarkSubmitted(ctx context.Context, groupID, userID string, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*models.Member)(nil)).
		Set("submitted_at = ?", at).
		Where("group_id = ?", groupID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark member submitted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %w: %s", storage.ErrNotFound, userID)
	}
	return nil
}
