package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tripmatch/internal/middleware"
	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/planner"
	"github.com/mmynk/tripmatch/internal/pricing"
	"github.com/mmynk/tripmatch/pkg/api"
)

var errNoIdentity = errors.New("no caller identity in context")

// toConnectError maps planner errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, planner.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, planner.ErrPolicyViolation):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, planner.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, planner.ErrExternalDependency):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, planner.ErrConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, errNoIdentity):
		return connect.NewError(connect.CodeUnauthenticated, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// parseDate accepts a calendar date (YYYY-MM-DD, in loc) or an RFC 3339 instant.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(api.DateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", planner.ErrValidation, s)
	}
	return t, nil
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(api.DateLayout)
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func callerID(ctx context.Context) (string, error) {
	id := middleware.GetUserID(ctx)
	if id == "" {
		return "", errNoIdentity
	}
	return id, nil
}

func groupToAPI(g *models.Group, loc *time.Location) *api.Group {
	return &api.Group{
		ID:            g.ID,
		OwnerID:       g.OwnerID,
		InviteCode:    g.InviteCode,
		Title:         g.Title,
		Departure:     g.Departure,
		TargetMembers: g.TargetMembers,
		TripDays:      g.TripDays,
		StartDate:     formatDate(g.StartDate, loc),
		EndDate:       formatDate(g.EndDate, loc),
		Status:        string(g.Status),
		CreatedAt:     formatInstant(g.CreatedAt),
	}
}

func memberToAPI(m *models.Member) *api.Member {
	return &api.Member{
		GroupID:     m.GroupID,
		UserID:      m.UserID,
		Role:        m.Role,
		JoinedAt:    formatInstant(m.JoinedAt),
		SubmittedAt: formatInstant(m.SubmittedAt),
	}
}

func preferenceToAPI(p *models.Preference) *api.Preference {
	return &api.Preference{
		HotelBudget:    p.HotelBudget,
		HotelRating:    p.HotelRating,
		AcceptTransfer: p.AcceptTransfer,
		Destinations:   p.Destinations,
		TotalBudget:    p.TotalBudget,
	}
}

func preferenceFromAPI(p *api.Preference) *planner.PreferenceInput {
	if p == nil {
		return nil
	}
	return &planner.PreferenceInput{
		HotelBudget:    p.HotelBudget,
		HotelRating:    p.HotelRating,
		AcceptTransfer: p.AcceptTransfer,
		Destinations:   p.Destinations,
		TotalBudget:    p.TotalBudget,
	}
}

func legToAPI(l models.FlightLeg) *api.FlightLeg {
	if !l.Valid {
		return nil
	}
	clock := func(minute int) string { return fmt.Sprintf("%02d:%02d", minute/60, minute%60) }
	return &api.FlightLeg{
		Carrier:      l.Carrier,
		FlightNumber: l.FlightNumber,
		Depart:       clock(l.DepartMinute),
		Arrive:       clock(l.ArriveMinute),
		NextDay:      l.NextDay,
	}
}

func candidateToAPI(c *models.Candidate, loc *time.Location) api.Candidate {
	links := []string(c.BookingLinks)
	if links == nil {
		links = []string{}
	}
	return api.Candidate{
		ID:           c.ID,
		StartDate:    formatDate(c.StartDate, loc),
		EndDate:      formatDate(c.EndDate, loc),
		Destination:  c.Destination,
		FlightOut:    c.FlightOut,
		FlightReturn: c.FlightReturn,
		OutboundLeg:  legToAPI(c.OutboundLeg),
		ReturnLeg:    legToAPI(c.ReturnLeg),
		HotelName:    c.HotelName,
		FlightPrice:  c.FlightPrice,
		TotalPrice:   c.TotalPrice,
		BookingLinks: links,
		Priced:       c.Priced,
		VoteCount:    c.VoteCount,
	}
}

func candidatesToAPI(cs []models.Candidate, loc *time.Location) []api.Candidate {
	out := make([]api.Candidate, 0, len(cs))
	for i := range cs {
		out = append(out, candidateToAPI(&cs[i], loc))
	}
	return out
}

func quoteToAPI(q *pricing.Quote) *api.Quote {
	return &api.Quote{
		FlightOut:    q.FlightOut,
		FlightReturn: q.FlightReturn,
		FlightPrice:  q.FlightPrice,
		HotelName:    q.HotelName,
		TotalPrice:   q.TotalPrice,
		BookingLinks: q.BookingLinks,
	}
}
