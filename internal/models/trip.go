package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Trip member roles.
const (
	TripRolePrimary   = "primary"
	TripRoleSecondary = "secondary"
)

// Flight directions.
const (
	DirectionOutbound = "outbound"
	DirectionReturn   = "return"
)

// Trip is the persisted, bookable result of finalizing a group.
type Trip struct {
	bun.BaseModel `bun:"table:trips,alias:t"`

	// ID is the unique identifier for the trip (UUID format).
	ID string `bun:"id,pk"`

	// GroupID is the group this trip was finalized from.
	GroupID string `bun:"group_id,notnull"`

	// CandidateID is the winning candidate.
	CandidateID string `bun:"candidate_id,notnull"`

	Title       string    `bun:"title,notnull"`
	Destination string    `bun:"destination,notnull"`
	StartDate   time.Time `bun:"start_date,notnull"`
	EndDate     time.Time `bun:"end_date,notnull"`

	// InviteCode is a fresh code for the trip, independent of the group's code.
	InviteCode string `bun:"invite_code,notnull,unique"`

	// RegionID links the trip to a known region. Empty when the destination was not resolved.
	RegionID string `bun:"region_id"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull"`

	Flights        []Flight        `bun:"rel:has-many,join:id=trip_id"`
	Accommodations []Accommodation `bun:"rel:has-many,join:id=trip_id"`
	Members        []TripMember    `bun:"rel:has-many,join:id=trip_id"`
}

// Flight is one scheduled flight of a trip.
type Flight struct {
	bun.BaseModel `bun:"table:flights,alias:f"`

	ID           string    `bun:"id,pk"`
	TripID       string    `bun:"trip_id,notnull"`
	Direction    string    `bun:"direction,notnull"`
	Carrier      string    `bun:"carrier,notnull"`
	FlightNumber string    `bun:"flight_number,notnull"`
	DepartAt     time.Time `bun:"depart_at,notnull"`
	ArriveAt     time.Time `bun:"arrive_at,notnull"`
}

// Accommodation is the lodging booked for a trip.
type Accommodation struct {
	bun.BaseModel `bun:"table:accommodations,alias:a"`

	ID       string    `bun:"id,pk"`
	TripID   string    `bun:"trip_id,notnull"`
	Name     string    `bun:"name,notnull"`
	CheckIn  time.Time `bun:"check_in,notnull"`
	CheckOut time.Time `bun:"check_out,notnull"`
}

// TripMember is a traveler on a finalized trip.
type TripMember struct {
	bun.BaseModel `bun:"table:trip_members,alias:tm"`

	TripID string `bun:"trip_id,pk"`
	UserID string `bun:"user_id,pk"`

	// Role is TripRolePrimary for the group owner, TripRoleSecondary otherwise.
	Role string `bun:"role,notnull"`

	// Budget is carried over from the member's preference total budget.
	Budget int `bun:"budget,notnull"`
}

// Region is a structured destination that trips can be linked to.
type Region struct {
	bun.BaseModel `bun:"table:regions,alias:r"`

	ID      string `bun:"id,pk"`
	Code    string `bun:"code,notnull,unique"`
	Name    string `bun:"name,notnull"`
	Country string `bun:"country,notnull"`
}
