package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tripmatch/internal/calculator"
	"github.com/mmynk/tripmatch/internal/metrics"
	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/pricing"
	"github.com/mmynk/tripmatch/internal/storage"
)

// GenerationResult is the outcome of a regeneration.
type GenerationResult struct {
	Candidates []models.Candidate
	// FailedCount is the number of pairings whose pricing failed and were stored unpriced.
	FailedCount int
}

// GenerateRecommendations replaces the group's candidates with one per
// (common window, destination) pairing. A failed pricing call yields an unpriced
// candidate rather than aborting the batch. Prior candidates and their votes are
// only replaced once the new set is ready.
func (p *Planner) GenerateRecommendations(ctx context.Context, userID, groupID string) (*GenerationResult, error) {
	unlock, err := p.lockGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	group, _, err := membership(ctx, p.store, groupID, userID)
	if err != nil {
		return nil, err
	}
	if err := requireOpen(group); err != nil {
		return nil, err
	}

	windows, err := p.windows(ctx, p.store, group)
	if err != nil {
		return nil, err
	}
	settings, memberCount, err := p.settings(ctx, p.store, groupID)
	if err != nil {
		return nil, err
	}

	type pairing struct {
		start, end  time.Time
		destination string
	}
	var pairings []pairing
	for _, r := range windows.Ranges {
		start, end := calculator.ClipToTripLength(r, p.tripDays(group))
		for _, dest := range settings.Destinations {
			pairings = append(pairings, pairing{start: start, end: end, destination: dest})
		}
	}

	candidates := make([]models.Candidate, len(pairings))
	failed := make([]bool, len(pairings))

	var g errgroup.Group
	g.SetLimit(p.rules.PricingConcurrency)
	for i, pr := range pairings {
		g.Go(func() error {
			req := pricing.Request{
				Destination:    pr.destination,
				Departure:      group.Departure,
				Start:          pr.start,
				End:            pr.end,
				AcceptTransfer: settings.AcceptTransfer,
				MemberCount:    memberCount,
				StarRating:     settings.StarRating,
				MaxBudget:      settings.MaxBudget,
			}
			c := models.Candidate{StartDate: pr.start, EndDate: pr.end, Destination: pr.destination}

			quote, err := p.quote(ctx, req)
			if err != nil {
				slog.Warn("Pricing failed, storing unpriced candidate",
					"group_id", groupID, "destination", pr.destination, "start", pr.start.Format("2006-01-02"), "error", err)
				metrics.PricingFailures.Inc()
				failed[i] = true
			} else {
				applyQuote(&c, quote)
			}
			candidates[i] = c
			return nil
		})
	}
	// Workers record failures per item and always return nil.
	_ = g.Wait()

	// A cancelled request must not replace good candidates with unpriced ones
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.store.ReplaceCandidates(ctx, groupID, candidates); err != nil {
		return nil, fmt.Errorf("failed to store candidates: %w", err)
	}

	failedCount := 0
	for _, f := range failed {
		if f {
			failedCount++
		}
	}
	metrics.CandidatesGenerated.Add(float64(len(candidates)))
	slog.Info("Recommendations generated",
		"group_id", groupID, "windows", len(windows.Ranges), "destinations", len(settings.Destinations),
		"candidates", len(candidates), "failed", failedCount)

	if _, err := p.TryAdvance(ctx, groupID); err != nil {
		return nil, err
	}

	stored, err := p.store.ListCandidates(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{Candidates: stored, FailedCount: failedCount}, nil
}

// settings aggregates the group's preferences and returns the member count.
func (p *Planner) settings(ctx context.Context, store storage.Store, groupID string) (calculator.GroupSettings, int, error) {
	prefs, err := store.ListPreferences(ctx, groupID)
	if err != nil {
		return calculator.GroupSettings{}, 0, err
	}
	members, err := store.CountMembers(ctx, groupID)
	if err != nil {
		return calculator.GroupSettings{}, 0, err
	}

	in := make([]calculator.MemberPreference, 0, len(prefs))
	for _, pref := range prefs {
		in = append(in, calculator.MemberPreference{
			Destinations:   pref.Destinations,
			HotelBudget:    pref.HotelBudget,
			HotelRating:    pref.HotelRating,
			AcceptTransfer: pref.AcceptTransfer,
		})
	}
	return calculator.AggregatePreferences(in, p.rules.PlaceholderDestination), members, nil
}

// quote calls the pricing collaborator under the per-call timeout.
func (p *Planner) quote(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
	if p.pricing == nil {
		return nil, pricing.ErrUnavailable
	}
	cctx, cancel := context.WithTimeout(ctx, p.rules.PricingTimeout)
	defer cancel()

	type result struct {
		q   *pricing.Quote
		err error
	}
	// Buffered so a lookup that ignores cctx can still finish after we give up on it.
	done := make(chan result, 1)
	go func() {
		q, err := p.pricing.Quote(cctx, req)
		done <- result{q: q, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.q == nil {
			return nil, pricing.ErrUnavailable
		}
		return r.q, nil
	case <-cctx.Done():
		return nil, cctx.Err()
	}
}

// applyQuote copies a quote onto a candidate and parses its flight summaries once.
// Unparseable summaries keep their text but produce invalid legs.
func applyQuote(c *models.Candidate, q *pricing.Quote) {
	c.FlightOut = q.FlightOut
	c.FlightReturn = q.FlightReturn
	c.FlightPrice = q.FlightPrice
	c.HotelName = q.HotelName
	c.TotalPrice = q.TotalPrice
	c.BookingLinks = models.Links(q.BookingLinks)
	c.Priced = true

	c.OutboundLeg, _ = models.ParseFlightLeg(q.FlightOut)
	c.ReturnLeg, _ = models.ParseFlightLeg(q.FlightReturn)
}

// RecommendationView is what a member sees while voting.
type RecommendationView struct {
	Group *models.Group
	// Candidates are ordered by votes (desc), priced before unpriced, then price (asc).
	Candidates  []models.Candidate
	MyVotes     []string
	VotedCount  int
	MemberCount int
	AllVoted    bool
}

// RecommendationView assembles the voting screen for the caller.
func (p *Planner) RecommendationView(ctx context.Context, userID, groupID string) (*RecommendationView, error) {
	group, _, err := membership(ctx, p.store, groupID, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := p.store.ListCandidates(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		if a.Priced != b.Priced {
			return a.Priced
		}
		return a.TotalPrice < b.TotalPrice
	})

	votes, err := p.store.ListVotes(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	mine := make([]string, 0, len(votes))
	for _, v := range votes {
		mine = append(mine, v.CandidateID)
	}

	tally, err := p.tally(ctx, p.store, groupID)
	if err != nil {
		return nil, err
	}

	return &RecommendationView{
		Group:       group,
		Candidates:  candidates,
		MyVotes:     mine,
		VotedCount:  tally.Voted,
		MemberCount: tally.Members,
		AllVoted:    tally.AllVoted(),
	}, nil
}

// LiveTravelPrice re-prices one candidate and stores the fresh quote on it.
// Unlike generation, a pricing failure here is returned to the caller.
func (p *Planner) LiveTravelPrice(ctx context.Context, userID, groupID, candidateID string) (*pricing.Quote, *models.Candidate, error) {
	unlock, err := p.lockGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	group, _, err := membership(ctx, p.store, groupID, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireActive(group); err != nil {
		return nil, nil, err
	}
	candidate, err := groupCandidate(ctx, p.store, groupID, candidateID)
	if err != nil {
		return nil, nil, err
	}

	settings, memberCount, err := p.settings(ctx, p.store, groupID)
	if err != nil {
		return nil, nil, err
	}
	quote, err := p.quote(ctx, pricing.Request{
		Destination:    candidate.Destination,
		Departure:      group.Departure,
		Start:          candidate.StartDate,
		End:            candidate.EndDate,
		AcceptTransfer: settings.AcceptTransfer,
		MemberCount:    memberCount,
		StarRating:     settings.StarRating,
		MaxBudget:      settings.MaxBudget,
	})
	if err != nil {
		metrics.PricingFailures.Inc()
		return nil, nil, fmt.Errorf("%w: pricing %s: %v", ErrExternalDependency, candidate.Destination, err)
	}

	applyQuote(candidate, quote)
	if err := p.store.UpdateCandidateQuote(ctx, candidate); err != nil {
		return nil, nil, translate(err)
	}

	slog.Info("Candidate re-priced", "group_id", groupID, "candidate_id", candidateID, "total_price", candidate.TotalPrice)
	return quote, candidate, nil
}

// groupCandidate loads a candidate and checks it belongs to the group.
func groupCandidate(ctx context.Context, store storage.Store, groupID, candidateID string) (*models.Candidate, error) {
	candidate, err := store.GetCandidate(ctx, candidateID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && candidate.GroupID != groupID) {
		return nil, fmt.Errorf("%w: candidate %s in group %s", ErrNotFound, candidateID, groupID)
	}
	if err != nil {
		return nil, err
	}
	return candidate, nil
}
