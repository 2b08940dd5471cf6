package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/tripmatch/internal/calculator"
	"github.com/mmynk/tripmatch/internal/metrics"
	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/storage"
)

// StatusReport is a group's status with the counts that drive it.
type StatusReport struct {
	Group           *models.Group
	MemberCount     int
	TargetMembers   int
	SubmittedCount  int
	PreferenceCount int
}

// GroupStatus re-evaluates the state machine and reports the group's progress.
func (p *Planner) GroupStatus(ctx context.Context, userID, groupID string) (*StatusReport, error) {
	if _, _, err := membership(ctx, p.store, groupID, userID); err != nil {
		return nil, err
	}
	if _, err := p.TryAdvance(ctx, groupID); err != nil {
		return nil, err
	}

	group, err := p.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, translate(err)
	}
	report, err := progress(ctx, p.store, group)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// TryAdvance moves a PREF group to VOTING once every target member has both a
// non-empty destination preference and a submission. Any other status is returned
// unchanged; the machine never moves backward and never reaches JOINING by itself.
func (p *Planner) TryAdvance(ctx context.Context, groupID string) (models.Status, error) {
	group, err := p.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", translate(err)
	}
	if group.Status != models.StatusPref {
		return group.Status, nil
	}

	report, err := progress(ctx, p.store, group)
	if err != nil {
		return "", err
	}
	target := report.TargetMembers
	if target == 0 || report.SubmittedCount < target || report.PreferenceCount < target {
		return group.Status, nil
	}

	from := group.Status
	err = moveStatus(ctx, p.store, group, models.StatusVoting)
	if errors.Is(err, storage.ErrConflict) {
		// Someone else moved the group first; report where it is now
		current, err := p.store.GetGroup(ctx, groupID)
		if err != nil {
			return "", translate(err)
		}
		return current.Status, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to advance group: %w", err)
	}

	metrics.StatusTransitions.WithLabelValues(string(from), string(group.Status)).Inc()
	slog.Info("Group status advanced", "group_id", groupID, "from", from, "to", group.Status)
	return group.Status, nil
}

// progress counts members, submissions and non-empty destination preferences.
func progress(ctx context.Context, store storage.Store, group *models.Group) (*StatusReport, error) {
	members, err := store.CountMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	submitted, err := store.CountSubmittedMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	prefs, err := store.ListPreferences(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	withDestinations := 0
	for _, pref := range prefs {
		if len(calculator.SplitDestinations(pref.Destinations)) > 0 {
			withDestinations++
		}
	}

	return &StatusReport{
		Group:           group,
		MemberCount:     members,
		TargetMembers:   targetMembers(group, members),
		SubmittedCount:  submitted,
		PreferenceCount: withDestinations,
	}, nil
}
