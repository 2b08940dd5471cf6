package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/mmynk/tripmatch/internal/models"
)

// GetPreference retrieves a member's preference row.
func (s *SQLiteStore) GetPreference(ctx context.Context, groupID, userID string) (*models.Preference, error) {
	pref := new(models.Preference)
	err := s.db.NewSelect().Model(pref).
		Where("p.group_id = ?", groupID).
		Where("p.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "preference", userID)
	}
	return pref, nil
}

// UpsertPreference inserts or replaces a member's preference row.
func (s *SQLiteStore) UpsertPreference(ctx context.Context, pref *models.Preference) error {
	now := time.Now()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now

	_, err := s.db.NewInsert().Model(pref).
		On("CONFLICT (group_id, user_id) DO UPDATE").
		Set("hotel_budget = EXCLUDED.hotel_budget").
		Set("hotel_rating = EXCLUDED.hotel_rating").
		Set("accept_transfer = EXCLUDED.accept_transfer").
		Set("destinations = EXCLUDED.destinations").
		Set("total_budget = EXCLUDED.total_budget").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}

// ListPreferences returns every preference row of a group.
func (s *SQLiteStore) ListPreferences(ctx context.Context, groupID string) ([]models.Preference, error) {
	var prefs []models.Preference
	err := s.db.NewSelect().Model(&prefs).
		Where("p.group_id = ?", groupID).
		Order("p.created_at ASC", "p.user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}

// ReplaceTimeSlots deletes all of a member's slots and inserts the new set.
func (s *SQLiteStore) ReplaceTimeSlots(ctx context.Context, groupID, userID string, slots []models.TimeSlot) error {
	return s.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewDelete().Model((*models.TimeSlot)(nil)).
			Where("group_id = ?", groupID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete time slots: %w", err)
		}
		if len(slots) == 0 {
			return nil
		}

		for i := range slots {
			if slots[i].ID == "" {
				slots[i].ID = uuid.New().String()
			}
			slots[i].GroupID = groupID
			slots[i].UserID = userID
		}
		if _, err := db.NewInsert().Model(&slots).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert time slots: %w", err)
		}
		return nil
	})
}

// ListTimeSlots returns every slot of a group.
func (s *SQLiteStore) ListTimeSlots(ctx context.Context, groupID string) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := s.db.NewSelect().Model(&slots).
		Where("ts.group_id = ?", groupID).
		Order("ts.user_id ASC", "ts.start_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	return slots, nil
}
