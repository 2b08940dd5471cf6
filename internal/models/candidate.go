package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Candidate is a generated, priced (destination, date range) pairing available for voting.
// Candidates are a derived cache: regenerating a group's candidates replaces all of them.
type Candidate struct {
	bun.BaseModel `bun:"table:candidates,alias:c"`

	// ID is the unique identifier for the candidate (UUID format).
	ID string `bun:"id,pk"`

	GroupID string `bun:"group_id,notnull"`

	// StartDate and EndDate are the window clipped to the group's trip length.
	StartDate time.Time `bun:"start_date,notnull"`
	EndDate   time.Time `bun:"end_date,notnull"`

	// Destination is the free-text or code destination this candidate was priced for.
	Destination string `bun:"destination,notnull"`

	// FlightOut and FlightReturn are the display summaries returned by pricing,
	// formatted as "<code>(<HH:mm> - <HH:mm>)".
	FlightOut    string `bun:"flight_out,notnull"`
	FlightReturn string `bun:"flight_return,notnull"`

	// OutboundLeg and ReturnLeg are parsed once from the summaries at generation time.
	OutboundLeg FlightLeg `bun:"outbound_leg,type:text"`
	ReturnLeg   FlightLeg `bun:"return_leg,type:text"`

	HotelName    string `bun:"hotel_name,notnull"`
	FlightPrice  int    `bun:"flight_price,notnull"`
	TotalPrice   int    `bun:"total_price,notnull"`
	BookingLinks Links  `bun:"booking_links,type:text"`

	// Priced is false when the pricing lookup failed and the candidate carries defaults.
	Priced bool `bun:"priced,notnull"`

	// VoteCount is a denormalized count, always rebuilt from the votes table.
	VoteCount int `bun:"vote_count,notnull"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull"`
}

// Vote records that a member voted for a candidate.
type Vote struct {
	bun.BaseModel `bun:"table:votes,alias:v"`

	GroupID     string    `bun:"group_id,notnull"`
	UserID      string    `bun:"user_id,pk"`
	CandidateID string    `bun:"candidate_id,pk"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull"`
}

// Links is a list of booking URLs stored as a JSON array.
type Links []string

// Value implements driver.Valuer.
func (l Links) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode links: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *Links) Scan(src any) error {
	data, ok, err := textBytes(src)
	if err != nil || !ok {
		*l = nil
		return err
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to decode links: %w", err)
	}
	*l = out
	return nil
}

func textBytes(src any) ([]byte, bool, error) {
	switch v := src.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []byte(v), v != "", nil
	case []byte:
		return v, len(v) > 0, nil
	default:
		return nil, false, fmt.Errorf("unsupported column type %T", src)
	}
}
