// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/tripmatch/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict is returned when a compare-and-swap update matched no row.
	ErrConflict = errors.New("concurrent modification")
)

// MemberPreference is a member joined with their (optional) preference row.
type MemberPreference struct {
	Member     models.Member
	Preference *models.Preference
}

// Store defines the interface for trip-matching storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the planner.
type Store interface {
	// WithTx runs fn inside a transaction. The Store passed to fn is bound to the
	// transaction; any error returned by fn rolls everything back. Calling WithTx on
	// a transaction-bound Store reuses the open transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// CreateGroup persists a new group together with its owner membership.
	// Returns ErrDuplicate if the invite code is already taken.
	CreateGroup(ctx context.Context, group *models.Group, owner *models.Member) error

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByInviteCode retrieves a group by its invite code.
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)

	// UpdateGroupStatus moves a group from one status to another if its version still
	// matches. Returns ErrConflict otherwise. On success group.Status and group.Version
	// are updated in place.
	UpdateGroupStatus(ctx context.Context, group *models.Group, to models.Status) error

	// AddMember persists a membership. Returns ErrDuplicate if it already exists.
	AddMember(ctx context.Context, member *models.Member) error

	// GetMember retrieves one membership.
	GetMember(ctx context.Context, groupID, userID string) (*models.Member, error)

	// ListMembers returns a group's members ordered by join time.
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)

	// ListMembersWithPreferences left-joins members with their preference rows.
	ListMembersWithPreferences(ctx context.Context, groupID string) ([]MemberPreference, error)

	// CountMembers returns the number of members in a group.
	CountMembers(ctx context.Context, groupID string) (int, error)

	// CountSubmittedMembers returns the number of members that submitted availability.
	CountSubmittedMembers(ctx context.Context, groupID string) (int, error)

	// MarkSubmitted sets a member's submitted-at timestamp.
	MarkSubmitted(ctx context.Context, groupID, userID string, at time.Time) error

	// GetPreference retrieves a member's preference row.
	GetPreference(ctx context.Context, groupID, userID string) (*models.Preference, error)

	// UpsertPreference inserts or replaces a member's preference row.
	UpsertPreference(ctx context.Context, pref *models.Preference) error

	// ListPreferences returns every preference row of a group.
	ListPreferences(ctx context.Context, groupID string) ([]models.Preference, error)

	// ReplaceTimeSlots deletes all of a member's slots and inserts the new set.
	ReplaceTimeSlots(ctx context.Context, groupID, userID string, slots []models.TimeSlot) error

	// ListTimeSlots returns every slot of a group.
	ListTimeSlots(ctx context.Context, groupID string) ([]models.TimeSlot, error)

	// ReplaceCandidates deletes a group's votes and candidates and inserts the new set.
	ReplaceCandidates(ctx context.Context, groupID string, candidates []models.Candidate) error

	// ListCandidates returns a group's candidates ordered by start date and destination.
	ListCandidates(ctx context.Context, groupID string) ([]models.Candidate, error)

	// GetCandidate retrieves a candidate by ID.
	GetCandidate(ctx context.Context, candidateID string) (*models.Candidate, error)

	// UpdateCandidateQuote stores a fresh price and flight/hotel data for a candidate.
	UpdateCandidateQuote(ctx context.Context, candidate *models.Candidate) error

	// ReplaceVotes deletes a member's votes in a group and inserts one per candidate ID.
	ReplaceVotes(ctx context.Context, groupID, userID string, candidateIDs []string) error

	// RecountVotes rebuilds every candidate's vote count in a group from the votes table.
	RecountVotes(ctx context.Context, groupID string) error

	// ListVotes returns a member's votes in a group.
	ListVotes(ctx context.Context, groupID, userID string) ([]models.Vote, error)

	// CountVoters returns the number of distinct members that voted in a group.
	CountVoters(ctx context.Context, groupID string) (int, error)

	// CreateTrip persists a trip with its flights, accommodations and members.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip retrieves a trip with its flights, accommodations and members.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// CountTrips returns the number of trips finalized from a group.
	CountTrips(ctx context.Context, groupID string) (int, error)

	// FindRegion looks a region up by code or name, case-insensitively.
	FindRegion(ctx context.Context, query string) (*models.Region, error)

	// Close releases any resources held by the store.
	Close() error
}
