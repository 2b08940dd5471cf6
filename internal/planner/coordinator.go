package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/storage"
)

// CreateGroupInput is the owner's request to open a group.
type CreateGroupInput struct {
	Title         string
	Departure     string
	TargetMembers int
	TripDays      int
	StartDate     time.Time
	EndDate       time.Time
}

func (in CreateGroupInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.TargetMembers < 0 {
		return fmt.Errorf("%w: target members must not be negative", ErrValidation)
	}
	if in.TripDays < 0 {
		return fmt.Errorf("%w: trip days must not be negative", ErrValidation)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrValidation)
	}
	return nil
}

// CreateGroup opens a group in PREF with the caller as owner.
// Invite code collisions are retried with a fresh code.
func (p *Planner) CreateGroup(ctx context.Context, ownerID string, in CreateGroupInput) (*models.Group, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	loc := p.rules.Location
	for attempt := 1; attempt <= p.rules.InviteCodeAttempts; attempt++ {
		code, err := newInviteCode()
		if err != nil {
			return nil, err
		}

		group := &models.Group{
			OwnerID:       ownerID,
			InviteCode:    code,
			TargetMembers: in.TargetMembers,
			Title:         strings.TrimSpace(in.Title),
			Departure:     strings.ToUpper(strings.TrimSpace(in.Departure)),
			TripDays:      in.TripDays,
			StartDate:     midnight(in.StartDate, loc),
			EndDate:       midnight(in.EndDate, loc),
			Status:        models.StatusPref,
		}
		owner := &models.Member{
			UserID:   ownerID,
			Role:     models.RoleOwner,
			JoinedAt: p.now(),
		}

		err = p.store.CreateGroup(ctx, group, owner)
		if errors.Is(err, storage.ErrDuplicate) {
			slog.Warn("Invite code collision, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create group: %w", err)
		}

		slog.Info("Group created", "group_id", group.ID, "owner_id", ownerID, "invite_code", code)
		return group, nil
	}

	return nil, fmt.Errorf("%w: could not issue a unique invite code", ErrConflict)
}

// JoinGroup adds the caller to the group behind inviteCode. Joining twice returns
// the existing membership unchanged.
func (p *Planner) JoinGroup(ctx context.Context, userID, inviteCode string) (*models.Group, *models.Member, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, nil, fmt.Errorf("%w: invite code is required", ErrValidation)
	}

	var (
		group  *models.Group
		member *models.Member
	)
	err := p.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		g, err := tx.GetGroupByInviteCode(ctx, code)
		if err != nil {
			return translate(err)
		}
		group = g

		existing, err := tx.GetMember(ctx, g.ID, userID)
		if err == nil {
			member = existing
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if err := requireActive(g); err != nil {
			return err
		}

		m := &models.Member{
			GroupID:    g.ID,
			UserID:     userID,
			Role:       models.RoleMember,
			InviteCode: code,
			JoinedAt:   p.now(),
		}
		if err := tx.AddMember(ctx, m); err != nil {
			return err
		}
		member = m

		if _, err := tx.GetPreference(ctx, g.ID, userID); errors.Is(err, storage.ErrNotFound) {
			if err := tx.UpsertPreference(ctx, &models.Preference{GroupID: g.ID, UserID: userID}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("Member joined group", "group_id", group.ID, "user_id", userID, "role", member.Role)
	return group, member, nil
}
