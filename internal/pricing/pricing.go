// Package pricing defines the external travel-pricing collaborator and a deterministic mock.
package pricing

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when a quote cannot be produced.
var ErrUnavailable = errors.New("pricing unavailable")

// Request describes one (destination, date range) pairing to price.
type Request struct {
	Destination    string
	Departure      string
	Start          time.Time
	End            time.Time
	AcceptTransfer bool
	MemberCount    int

	// StarRating and MaxBudget are zero when the group expressed no preference.
	StarRating int
	MaxBudget  int
}

// Quote is the priced result for a Request.
// FlightOut and FlightReturn are display summaries formatted as "<code>(<HH:mm> - <HH:mm>)".
type Quote struct {
	FlightOut    string
	FlightReturn string
	FlightPrice  int
	HotelName    string
	TotalPrice   int
	BookingLinks []string
}

// Lookup prices travel for a group. Implementations may be slow or fail;
// callers bound each call with a context deadline.
type Lookup interface {
	Quote(ctx context.Context, req Request) (*Quote, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, req Request) (*Quote, error)

// Quote calls f.
func (f LookupFunc) Quote(ctx context.Context, req Request) (*Quote, error) {
	return f(ctx, req)
}
