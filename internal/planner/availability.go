package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/tripmatch/internal/calculator"
	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/storage"
)

// PreferenceInput is one member's travel preferences.
type PreferenceInput struct {
	HotelBudget    int
	HotelRating    int
	AcceptTransfer *bool
	Destinations   string
	TotalBudget    int
}

func (in PreferenceInput) validate() error {
	if in.HotelBudget < 0 || in.TotalBudget < 0 {
		return fmt.Errorf("%w: budgets must not be negative", ErrValidation)
	}
	if in.HotelRating < 0 || in.HotelRating > calculator.MaxStarRating {
		return fmt.Errorf("%w: hotel rating must be between 0 and %d", ErrValidation, calculator.MaxStarRating)
	}
	return nil
}

func (in PreferenceInput) model(groupID, userID string) *models.Preference {
	return &models.Preference{
		GroupID:        groupID,
		UserID:         userID,
		HotelBudget:    in.HotelBudget,
		HotelRating:    in.HotelRating,
		AcceptTransfer: in.AcceptTransfer,
		Destinations:   strings.TrimSpace(in.Destinations),
		TotalBudget:    in.TotalBudget,
	}
}

// Slot is one free interval, inclusive of both calendar days.
type Slot struct {
	Start time.Time
	End   time.Time
}

// AvailabilityInput is a member's complete submission. Preference is optional and is
// written together with the slots.
type AvailabilityInput struct {
	Slots      []Slot
	Preference *PreferenceInput
}

// UpsertPreference saves the caller's preferences. Rejected once the caller has
// submitted availability.
func (p *Planner) UpsertPreference(ctx context.Context, userID, groupID string, in PreferenceInput) (*models.Preference, models.Status, error) {
	if err := in.validate(); err != nil {
		return nil, "", err
	}

	unlock, err := p.lockGroup(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	pref := in.model(groupID, userID)
	err = p.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		group, member, err := membership(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if err := requireActive(group); err != nil {
			return err
		}
		if member.Submitted() {
			return fmt.Errorf("%w: preferences are locked after availability submission", ErrPolicyViolation)
		}
		if err := tx.UpsertPreference(ctx, pref); err != nil {
			return fmt.Errorf("failed to save preference: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	status, err := p.TryAdvance(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	return pref, status, nil
}

// SaveAvailability fully replaces the caller's slots and marks them submitted.
// Re-submission is allowed.
func (p *Planner) SaveAvailability(ctx context.Context, userID, groupID string, in AvailabilityInput) (int, models.Status, error) {
	for i, s := range in.Slots {
		if s.Start.IsZero() || s.End.IsZero() {
			return 0, "", fmt.Errorf("%w: slot %d is missing a date", ErrValidation, i)
		}
		if s.End.Before(s.Start) {
			return 0, "", fmt.Errorf("%w: slot %d ends before it starts", ErrValidation, i)
		}
	}
	if in.Preference != nil {
		if err := in.Preference.validate(); err != nil {
			return 0, "", err
		}
	}

	unlock, err := p.lockGroup(ctx, groupID)
	if err != nil {
		return 0, "", err
	}
	defer unlock()

	err = p.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		group, _, err := membership(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if err := requireActive(group); err != nil {
			return err
		}

		slots := make([]models.TimeSlot, 0, len(in.Slots))
		for _, s := range in.Slots {
			slots = append(slots, models.TimeSlot{Start: s.Start, End: s.End})
		}
		if err := tx.ReplaceTimeSlots(ctx, groupID, userID, slots); err != nil {
			return err
		}

		if in.Preference != nil {
			if err := tx.UpsertPreference(ctx, in.Preference.model(groupID, userID)); err != nil {
				return err
			}
		}

		return tx.MarkSubmitted(ctx, groupID, userID, p.now())
	})
	if err != nil {
		return 0, "", err
	}

	slog.Info("Availability saved", "group_id", groupID, "user_id", userID, "slots", len(in.Slots))

	status, err := p.TryAdvance(ctx, groupID)
	if err != nil {
		return 0, "", err
	}
	return len(in.Slots), status, nil
}

// WindowResult is the output of the common window calculation.
type WindowResult struct {
	Threshold int
	Ranges    []calculator.TimeRange
}

// CommonTimeRanges computes the group's quorum windows.
func (p *Planner) CommonTimeRanges(ctx context.Context, userID, groupID string) (*WindowResult, error) {
	group, _, err := membership(ctx, p.store, groupID, userID)
	if err != nil {
		return nil, err
	}
	return p.windows(ctx, p.store, group)
}

func (p *Planner) windows(ctx context.Context, store storage.Store, group *models.Group) (*WindowResult, error) {
	members, err := store.CountMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	rows, err := store.ListTimeSlots(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	slots := make([]calculator.Availability, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, calculator.Availability{MemberID: r.UserID, Start: r.Start, End: r.End})
	}

	target := targetMembers(group, members)
	ranges := calculator.CommonTimeRanges(calculator.WindowInput{
		Target:   target,
		Slots:    slots,
		From:     group.StartDate,
		To:       group.EndDate,
		MinDays:  p.tripDays(group),
		Location: p.rules.Location,
	})
	return &WindowResult{Threshold: calculator.QuorumThreshold(target), Ranges: ranges}, nil
}
