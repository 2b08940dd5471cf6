package planner

import (
	"context"
	"log/slog"

	"github.com/mmynk/tripmatch/internal/storage"
)

// Tally counts distinct voters against the member count.
type Tally struct {
	Voted   int
	Members int
}

// AllVoted reports whether every member has voted.
func (t Tally) AllVoted() bool {
	return t.Members > 0 && t.Voted >= t.Members
}

func (p *Planner) tally(ctx context.Context, store storage.Store, groupID string) (Tally, error) {
	voted, err := store.CountVoters(ctx, groupID)
	if err != nil {
		return Tally{}, err
	}
	members, err := store.CountMembers(ctx, groupID)
	if err != nil {
		return Tally{}, err
	}
	return Tally{Voted: voted, Members: members}, nil
}

// VoteResult is the outcome of a vote submission.
type VoteResult struct {
	// AcceptedIDs are the submitted IDs that belong to the group, deduplicated.
	AcceptedIDs []string
	AllVoted    bool
}

// SubmitVotes replaces the caller's votes. IDs that are not candidates of the group
// are dropped silently. Every vote count in the group is rebuilt from the vote rows
// in the same transaction.
func (p *Planner) SubmitVotes(ctx context.Context, userID, groupID string, candidateIDs []string) (*VoteResult, error) {
	unlock, err := p.lockGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var accepted []string
	err = p.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		group, _, err := membership(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if err := requireOpen(group); err != nil {
			return err
		}

		candidates, err := tx.ListCandidates(ctx, groupID)
		if err != nil {
			return err
		}
		valid := make(map[string]bool, len(candidates))
		for _, c := range candidates {
			valid[c.ID] = true
		}

		seen := make(map[string]bool)
		accepted = make([]string, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			if !valid[id] || seen[id] {
				continue
			}
			seen[id] = true
			accepted = append(accepted, id)
		}

		if err := tx.ReplaceVotes(ctx, groupID, userID, accepted); err != nil {
			return err
		}
		return tx.RecountVotes(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}

	tally, err := p.tally(ctx, p.store, groupID)
	if err != nil {
		return nil, err
	}
	slog.Info("Votes submitted", "group_id", groupID, "user_id", userID,
		"submitted", len(candidateIDs), "accepted", len(accepted), "voted", tally.Voted, "members", tally.Members)

	if _, err := p.TryAdvance(ctx, groupID); err != nil {
		return nil, err
	}
	return &VoteResult{AcceptedIDs: accepted, AllVoted: tally.AllVoted()}, nil
}

// AllMembersVoted reports whether the number of distinct voters has reached the member count.
func (p *Planner) AllMembersVoted(ctx context.Context, userID, groupID string) (Tally, error) {
	if _, _, err := membership(ctx, p.store, groupID, userID); err != nil {
		return Tally{}, err
	}
	return p.tally(ctx, p.store, groupID)
}
