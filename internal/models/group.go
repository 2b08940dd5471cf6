package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Status is the lifecycle state of a travel group.
type Status string

const (
	// StatusPref means members are still submitting preferences and availability.
	StatusPref Status = "PREF"
	// StatusVoting means every target member has submitted and candidates can be voted on.
	StatusVoting Status = "VOTING"
	// StatusJoining means a trip has been finalized from the winning candidate.
	StatusJoining Status = "JOINING"
	// StatusCancelled is terminal and only ever set from outside the state machine.
	StatusCancelled Status = "CANCELLED"
)

// rank orders the forward-moving statuses. CANCELLED is not part of the order.
func (s Status) rank() int {
	switch s {
	case StatusPref:
		return 0
	case StatusVoting:
		return 1
	case StatusJoining:
		return 2
	default:
		return -1
	}
}

// Precedes reports whether moving from s to next is a forward transition.
func (s Status) Precedes(next Status) bool {
	return s.rank() >= 0 && next.rank() > s.rank()
}

// Member roles within a group.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Group represents a travel-matching session.
type Group struct {
	bun.BaseModel `bun:"table:travel_groups,alias:g"`

	// ID is the unique identifier for the group (UUID format).
	ID string `bun:"id,pk"`

	// OwnerID is the user ID of the member who created the group.
	OwnerID string `bun:"owner_id,notnull"`

	// InviteCode is the 6-character alphanumeric code members use to join.
	InviteCode string `bun:"invite_code,notnull,unique"`

	// TargetMembers is the configured group size. Zero means "use the current member count".
	TargetMembers int `bun:"target_members,notnull"`

	// Title is the display name of the group (e.g., "Spring in Tokyo").
	Title string `bun:"title,notnull"`

	// Departure is the departure point, usually an airport code (e.g., "TPE").
	Departure string `bun:"departure,notnull"`

	// TripDays is the desired trip length in days. Common windows shorter than this are dropped.
	TripDays int `bun:"trip_days,notnull"`

	// StartDate and EndDate bound the dates members can travel (inclusive).
	StartDate time.Time `bun:"start_date,notnull"`
	EndDate   time.Time `bun:"end_date,notnull"`

	// Status is the lifecycle state. Only the state machine and the finalize step change it.
	Status Status `bun:"status,notnull"`

	// Version is bumped on every status change and guards compare-and-swap updates.
	Version int64 `bun:"version,notnull"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull"`
}

// Member links a user to a group.
type Member struct {
	bun.BaseModel `bun:"table:group_members,alias:m"`

	GroupID string `bun:"group_id,pk"`
	UserID  string `bun:"user_id,pk"`

	// Role is RoleOwner or RoleMember.
	Role string `bun:"role,notnull"`

	// InviteCode is the code the member joined with (empty for the owner).
	InviteCode string `bun:"invite_code"`

	JoinedAt time.Time `bun:"joined_at,nullzero,notnull"`

	// SubmittedAt is set when the member submits availability. It doubles as the
	// "locked" flag for preference upserts.
	SubmittedAt time.Time `bun:"submitted_at,nullzero"`
}

// Submitted reports whether the member has submitted availability.
func (m *Member) Submitted() bool {
	return !m.SubmittedAt.IsZero()
}

// Preference holds one member's travel preferences for a group.
// There is at most one row per (group, member).
type Preference struct {
	bun.BaseModel `bun:"table:preferences,alias:p"`

	GroupID string `bun:"group_id,pk"`
	UserID  string `bun:"user_id,pk"`

	// HotelBudget is the per-night hotel budget. Zero means no preference.
	HotelBudget int `bun:"hotel_budget,notnull"`

	// HotelRating is the preferred hotel star rating. Zero means no preference.
	HotelRating int `bun:"hotel_rating,notnull"`

	// AcceptTransfer is whether the member tolerates connecting flights. Nil means unanswered.
	AcceptTransfer *bool `bun:"accept_transfer"`

	// Destinations is the free-text, comma-separated destination list.
	Destinations string `bun:"destinations,notnull"`

	// TotalBudget is the member's total trip budget, carried over to the trip.
	TotalBudget int `bun:"total_budget,notnull"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull"`
}

// TimeSlot is one free interval submitted by a member.
type TimeSlot struct {
	bun.BaseModel `bun:"table:time_slots,alias:ts"`

	ID      string    `bun:"id,pk"`
	GroupID string    `bun:"group_id,notnull"`
	UserID  string    `bun:"user_id,notnull"`
	Start   time.Time `bun:"start_at,notnull"`
	End     time.Time `bun:"end_at,notnull"`
}
