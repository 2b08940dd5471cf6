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

// ReplaceCandidates deletes a group's votes and candidates and inserts the new set.
func (s *SQLiteStore) ReplaceCandidates(ctx context.Context, groupID string, candidates []models.Candidate) error {
	return s.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		if _, err := db.NewDelete().Model((*models.Vote)(nil)).Where("group_id = ?", groupID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		if _, err := db.NewDelete().Model((*models.Candidate)(nil)).Where("group_id = ?", groupID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete candidates: %w", err)
		}
		if len(candidates) == 0 {
			return nil
		}

		now := time.Now()
		for i := range candidates {
			if candidates[i].ID == "" {
				candidates[i].ID = uuid.New().String()
			}
			candidates[i].GroupID = groupID
			candidates[i].VoteCount = 0
			candidates[i].CreatedAt = now
			candidates[i].UpdatedAt = now
		}
		if _, err := db.NewInsert().Model(&candidates).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert candidates: %w", err)
		}
		return nil
	})
}

// ListCandidates returns a group's candidates ordered by start date and destination.
func (s *SQLiteStore) ListCandidates(ctx context.Context, groupID string) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := s.db.NewSelect().Model(&candidates).
		Where("c.group_id = ?", groupID).
		Order("c.start_date ASC", "c.destination ASC", "c.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

// GetCandidate retrieves a candidate by ID.
func (s *SQLiteStore) GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error) {
	candidate := new(models.Candidate)
	err := s.db.NewSelect().Model(candidate).Where("c.id = ?", candidateID).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "candidate", candidateID)
	}
	return candidate, nil
}

// UpdateCandidateQuote stores a fresh price and flight/hotel data for a candidate.
func (s *SQLiteStore) UpdateCandidateQuote(ctx context.Context, candidate *models.Candidate) error {
	candidate.UpdatedAt = time.Now()
	res, err := s.db.NewUpdate().Model(candidate).
		Column("flight_out", "flight_return", "outbound_leg", "return_leg",
			"hotel_name", "flight_price", "total_price", "booking_links", "priced", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("candidate %w: %s", storage.ErrNotFound, candidate.ID)
	}
	return nil
}

// ReplaceVotes deletes a member's votes in a group and inserts one per candidate ID.
func (s *SQLiteStore) ReplaceVotes(ctx context.Context, groupID, userID string, candidateIDs []string) error {
	return s.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewDelete().Model((*models.Vote)(nil)).
			Where("group_id = ?", groupID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		if len(candidateIDs) == 0 {
			return nil
		}

		now := time.Now()
		votes := make([]models.Vote, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			votes = append(votes, models.Vote{GroupID: groupID, UserID: userID, CandidateID: id, CreatedAt: now})
		}
		if _, err := db.NewInsert().Model(&votes).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert votes: %w", err)
		}
		return nil
	})
}

// RecountVotes rebuilds every candidate's vote count in a group from the votes table.
func (s *SQLiteStore) RecountVotes(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET vote_count = (SELECT COUNT(*) FROM votes WHERE votes.candidate_id = candidates.id) WHERE group_id = ?`,
		groupID)
	if err != nil {
		return fmt.Errorf("failed to recount votes: %w", err)
	}
	return nil
}

// ListVotes returns a member's votes in a group.
func (s *SQLiteStore) ListVotes(ctx context.Context, groupID, userID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.NewSelect().Model(&votes).
		Where("v.group_id = ?", groupID).
		Where("v.user_id = ?", userID).
		Order("v.created_at ASC", "v.candidate_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	return votes, nil
}

// CountVoters returns the number of distinct members that voted in a group.
func (s *SQLiteStore) CountVoters(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.db.NewSelect().Model((*models.Vote)(nil)).
		ColumnExpr("COUNT(DISTINCT v.user_id)").
		Where("v.group_id = ?", groupID).
		Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return n, nil
}
