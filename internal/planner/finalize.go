package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/tripmatch/internal/metrics"
	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/storage"
)

// storeRegions resolves regions through the transaction's own store.
type storeRegions struct {
	store storage.Store
}

func (r storeRegions) LookupRegion(ctx context.Context, destination string) (string, bool, error) {
	region, err := r.store.FindRegion(ctx, destination)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return region.ID, true, nil
}

// FinalizeTrip converts the winning candidate into a trip and moves the group to
// JOINING. Everything happens in one transaction: a failure at any step, including
// a region lookup error, leaves no trip rows behind and the group unchanged.
func (p *Planner) FinalizeTrip(ctx context.Context, userID, groupID, candidateID string) (*models.Trip, error) {
	unlock, err := p.lockGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		trip *models.Trip
		from models.Status
	)
	err = p.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		group, _, err := membership(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		if err := requireOpen(group); err != nil {
			return err
		}
		from = group.Status

		tally, err := p.tally(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !tally.AllVoted() {
			return fmt.Errorf("%w: %d of %d members have voted", ErrPolicyViolation, tally.Voted, tally.Members)
		}

		candidate, err := groupCandidate(ctx, tx, groupID, candidateID)
		if err != nil {
			return err
		}

		members, err := tx.ListMembersWithPreferences(ctx, groupID)
		if err != nil {
			return err
		}

		regions := p.regions
		if regions == nil {
			regions = storeRegions{store: tx}
		}
		regionID, found, err := regions.LookupRegion(ctx, candidate.Destination)
		if err != nil {
			return fmt.Errorf("%w: region lookup for %q: %v", ErrExternalDependency, candidate.Destination, err)
		}
		if !found {
			slog.Debug("No region for destination, skipping link", "destination", candidate.Destination)
		}

		t := p.buildTrip(group, candidate, members, regionID)
		if err := p.createTrip(ctx, tx, t); err != nil {
			return err
		}

		if err := moveStatus(ctx, tx, group, models.StatusJoining); err != nil {
			return translate(err)
		}
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TripsFinalized.Inc()
	metrics.StatusTransitions.WithLabelValues(string(from), string(models.StatusJoining)).Inc()
	slog.Info("Trip finalized", "group_id", groupID, "trip_id", trip.ID, "candidate_id", candidateID,
		"flights", len(trip.Flights), "members", len(trip.Members), "region_id", trip.RegionID)
	return trip, nil
}

// buildTrip assembles the trip and its children from the candidate.
func (p *Planner) buildTrip(group *models.Group, c *models.Candidate, members []storage.MemberPreference, regionID string) *models.Trip {
	loc := p.rules.Location
	trip := &models.Trip{
		GroupID:     group.ID,
		CandidateID: c.ID,
		Title:       group.Title,
		Destination: c.Destination,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		RegionID:    regionID,
		CreatedAt:   p.now(),
	}

	// Outbound flies on the first day, return on the last
	if c.OutboundLeg.Valid {
		depart, arrive := c.OutboundLeg.Schedule(c.StartDate, loc)
		trip.Flights = append(trip.Flights, flight(models.DirectionOutbound, c.OutboundLeg, depart, arrive))
	}
	if c.ReturnLeg.Valid {
		depart, arrive := c.ReturnLeg.Schedule(c.EndDate, loc)
		trip.Flights = append(trip.Flights, flight(models.DirectionReturn, c.ReturnLeg, depart, arrive))
	}

	if c.HotelName != "" {
		trip.Accommodations = append(trip.Accommodations, models.Accommodation{
			Name:     c.HotelName,
			CheckIn:  c.StartDate,
			CheckOut: c.EndDate,
		})
	}

	for _, mp := range members {
		role := models.TripRoleSecondary
		if mp.Member.Role == models.RoleOwner {
			role = models.TripRolePrimary
		}
		budget := 0
		if mp.Preference != nil {
			budget = mp.Preference.TotalBudget
		}
		trip.Members = append(trip.Members, models.TripMember{UserID: mp.Member.UserID, Role: role, Budget: budget})
	}

	return trip
}

func flight(direction string, leg models.FlightLeg, depart, arrive time.Time) models.Flight {
	return models.Flight{
		Direction:    direction,
		Carrier:      leg.Carrier,
		FlightNumber: leg.FlightNumber,
		DepartAt:     depart,
		ArriveAt:     arrive,
	}
}

// createTrip inserts the trip with a fresh invite code, retrying on collision.
func (p *Planner) createTrip(ctx context.Context, tx storage.Store, trip *models.Trip) error {
	for attempt := 1; attempt <= p.rules.InviteCodeAttempts; attempt++ {
		code, err := newInviteCode()
		if err != nil {
			return err
		}
		trip.InviteCode = code

		err = tx.CreateTrip(ctx, trip)
		if errors.Is(err, storage.ErrDuplicate) {
			trip.ID = ""
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create trip: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: could not issue a unique trip invite code", ErrConflict)
}
