package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/mmynk/tripmatch/internal/models"
)

// CreateTrip persists a trip with its flights, accommodations and members.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now()
	}

	for i := range trip.Flights {
		if trip.Flights[i].ID == "" {
			trip.Flights[i].ID = uuid.New().String()
		}
		trip.Flights[i].TripID = trip.ID
	}
	for i := range trip.Accommodations {
		if trip.Accommodations[i].ID == "" {
			trip.Accommodations[i].ID = uuid.New().String()
		}
		trip.Accommodations[i].TripID = trip.ID
	}
	for i := range trip.Members {
		trip.Members[i].TripID = trip.ID
	}

	return s.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		if _, err := db.NewInsert().Model(trip).Exec(ctx); err != nil {
			return insertErr(err, "trip")
		}
		if len(trip.Flights) > 0 {
			if _, err := db.NewInsert().Model(&trip.Flights).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert flights: %w", err)
			}
		}
		if len(trip.Accommodations) > 0 {
			if _, err := db.NewInsert().Model(&trip.Accommodations).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert accommodations: %w", err)
			}
		}
		if len(trip.Members) > 0 {
			if _, err := db.NewInsert().Model(&trip.Members).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert trip members: %w", err)
			}
		}
		return nil
	})
}

// GetTrip retrieves a trip with its flights, accommodations and members.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip := new(models.Trip)
	err := s.db.NewSelect().Model(trip).
		Relation("Flights", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("f.depart_at ASC")
		}).
		Relation("Accommodations").
		Relation("Members", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("tm.user_id ASC")
		}).
		Where("t.id = ?", tripID).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "trip", tripID)
	}
	return trip, nil
}

// CountTrips returns the number of trips finalized from a group.
func (s *SQLiteStore) CountTrips(ctx context.Context, groupID string) (int, error) {
	n, err := s.db.NewSelect().Model((*models.Trip)(nil)).
		Where("t.group_id = ?", groupID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return n, nil
}

// FindRegion looks a region up by code or name, case-insensitively.
func (s *SQLiteStore) FindRegion(ctx context.Context, query string) (*models.Region, error) {
	q := strings.TrimSpace(query)
	region := new(models.Region)
	err := s.db.NewSelect().Model(region).
		Where("lower(r.code) = lower(?) OR lower(r.name) = lower(?)", q, q).
		OrderExpr("CASE WHEN lower(r.code) = lower(?) THEN 0 ELSE 1 END", q).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "region", q)
	}
	return region, nil
}
