// Package planner implements the group travel-matching workflow: group creation and
// joining, availability and preference intake, common window computation, candidate
// generation, voting, the group state machine and trip finalization.
//
// Every operation is synchronous and scoped to one group. Operations that replace
// rows (availability, candidates, votes, finalize) run under a per-group lock and
// inside a single storage transaction.
package planner

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mmynk/tripmatch/internal/lock"
	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/pricing"
	"github.com/mmynk/tripmatch/internal/storage"
)

// Rules holds the tunable fallbacks and limits of the workflow.
type Rules struct {
	// Location defines calendar days for windows, trip dates and flight schedules.
	Location *time.Location

	// PlaceholderDestination is priced when no member named a destination.
	PlaceholderDestination string

	// DefaultTripDays is used when a group has no trip length.
	DefaultTripDays int

	// PricingTimeout bounds each pricing call.
	PricingTimeout time.Duration

	// PricingConcurrency bounds in-flight pricing calls per generation.
	PricingConcurrency int

	// InviteCodeAttempts is how many codes are tried before giving up on collisions.
	InviteCodeAttempts int
}

// DefaultRules returns the rules used when none are configured.
func DefaultRules() Rules {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		loc = time.FixedZone("Asia/Taipei", 8*60*60)
	}
	return Rules{
		Location:               loc,
		PlaceholderDestination: "ANY",
		DefaultTripDays:        3,
		PricingTimeout:         5 * time.Second,
		PricingConcurrency:     4,
		InviteCodeAttempts:     5,
	}
}

// RegionLookup resolves a free-text or code destination to a region ID.
// found is false when nothing matched; err is reserved for lookup failures.
type RegionLookup interface {
	LookupRegion(ctx context.Context, destination string) (regionID string, found bool, err error)
}

// RegionLookupFunc adapts a function to RegionLookup.
type RegionLookupFunc func(ctx context.Context, destination string) (string, bool, error)

// LookupRegion calls f.
func (f RegionLookupFunc) LookupRegion(ctx context.Context, destination string) (string, bool, error) {
	return f(ctx, destination)
}

// Planner orchestrates the workflow over a Store.
type Planner struct {
	store   storage.Store
	pricing pricing.Lookup
	regions RegionLookup
	locker  lock.Locker
	rules   Rules
	now     func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithRegionLookup replaces the store-backed region lookup.
func WithRegionLookup(r RegionLookup) Option {
	return func(p *Planner) { p.regions = r }
}

// WithLocker replaces the in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(p *Planner) { p.locker = l }
}

// WithRules replaces the default rules. Zero fields keep their defaults.
func WithRules(r Rules) Option {
	return func(p *Planner) {
		d := p.rules
		if r.Location != nil {
			d.Location = r.Location
		}
		if r.PlaceholderDestination != "" {
			d.PlaceholderDestination = r.PlaceholderDestination
		}
		if r.DefaultTripDays > 0 {
			d.DefaultTripDays = r.DefaultTripDays
		}
		if r.PricingTimeout > 0 {
			d.PricingTimeout = r.PricingTimeout
		}
		if r.PricingConcurrency > 0 {
			d.PricingConcurrency = r.PricingConcurrency
		}
		if r.InviteCodeAttempts > 0 {
			d.InviteCodeAttempts = r.InviteCodeAttempts
		}
		p.rules = d
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a Planner.
func New(store storage.Store, lookup pricing.Lookup, opts ...Option) *Planner {
	p := &Planner{
		store:   store,
		pricing: lookup,
		locker:  lock.NewLocal(),
		rules:   DefaultRules(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rules returns the effective rules.
func (p *Planner) Rules() Rules {
	return p.rules
}

// lockGroup serializes writers of one group.
func (p *Planner) lockGroup(ctx context.Context, groupID string) (func(), error) {
	unlock, err := p.locker.Lock(ctx, "group:"+groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock group %s: %w", groupID, err)
	}
	return unlock, nil
}

// membership loads a group and the caller's membership in it.
func membership(ctx context.Context, store storage.Store, groupID, userID string) (*models.Group, *models.Member, error) {
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, translate(err)
	}
	member, err := store.GetMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user %s is not a member of group %s", ErrNotFound, userID, groupID)
		}
		return nil, nil, err
	}
	return group, member, nil
}

// requireActive rejects mutations on a cancelled group.
func requireActive(group *models.Group) error {
	if group.Status == models.StatusCancelled {
		return fmt.Errorf("%w: group %s is cancelled", ErrPolicyViolation, group.ID)
	}
	return nil
}

// requireOpen rejects mutations on a cancelled or finalized group.
func requireOpen(group *models.Group) error {
	if err := requireActive(group); err != nil {
		return err
	}
	if group.Status == models.StatusJoining {
		return fmt.Errorf("%w: group %s is already finalized", ErrPolicyViolation, group.ID)
	}
	return nil
}

// moveStatus applies a forward-only status change with the group's version as guard.
func moveStatus(ctx context.Context, store storage.Store, group *models.Group, to models.Status) error {
	if !group.Status.Precedes(to) {
		return fmt.Errorf("%w: group %s cannot move from %s to %s", ErrPolicyViolation, group.ID, group.Status, to)
	}
	return store.UpdateGroupStatus(ctx, group, to)
}

// translate maps storage errors onto planner errors.
func translate(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

// targetMembers is the quorum base: the configured target, else the current member count.
func targetMembers(group *models.Group, memberCount int) int {
	if group.TargetMembers > 0 {
		return group.TargetMembers
	}
	return memberCount
}

// tripDays is the group's trip length, else the configured default.
func (p *Planner) tripDays(group *models.Group) int {
	if group.TripDays > 0 {
		return group.TripDays
	}
	return p.rules.DefaultTripDays
}

const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newInviteCode returns a random 6-character code.
func newInviteCode() (string, error) {
	return inviteCode(rand.Reader)
}

// inviteCode draws bytes from r, discarding those at or above the largest multiple of
// the alphabet size so every character is equally likely.
func inviteCode(r io.Reader) (string, error) {
	const limit = 256 - 256%len(inviteAlphabet)

	code := make([]byte, 0, 6)
	buf := make([]byte, 16)
	for len(code) < cap(code) {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, inviteAlphabet[int(b)%len(inviteAlphabet)])
			if len(code) == cap(code) {
				break
			}
		}
	}
	return string(code), nil
}

// midnight truncates t to its calendar date in loc.
func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
