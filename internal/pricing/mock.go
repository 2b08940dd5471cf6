package pricing

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
)

var carriers = []string{"BR", "CI", "JX", "IT", "MM", "7C"}

var hotelChains = []string{"Grand Plaza", "Harbor Inn", "City Lights Hotel", "Sakura Stay", "Riverside Suites"}

// Mock is a deterministic Lookup: the same request always yields the same quote.
type Mock struct{}

// NewMock creates a mock pricing collaborator.
func NewMock() *Mock {
	return &Mock{}
}

// Quote builds a synthetic quote from a hash of the destination and dates.
func (m *Mock) Quote(ctx context.Context, req Request) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		return nil, fmt.Errorf("%w: empty destination", ErrUnavailable)
	}

	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s", strings.ToUpper(dest), req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	seed := int(h.Sum32())

	carrier := carriers[seed%len(carriers)]
	if !req.AcceptTransfer {
		// Direct-flight carriers only
		carrier = carriers[seed%2]
	}
	departHour := 6 + seed%8
	returnHour := 14 + seed%8
	// Late returns land after midnight
	returnArrive := (returnHour + 4) % 24

	members := req.MemberCount
	if members < 1 {
		members = 1
	}
	nights := int(req.End.Sub(req.Start).Hours() / 24)
	if nights < 1 {
		nights = 1
	}

	flightPrice := 6000 + (seed%40)*100
	stars := req.StarRating
	if stars == 0 {
		stars = 3
	}
	nightly := 1500 + stars*500 + (seed%10)*100
	if req.MaxBudget > 0 && nightly > req.MaxBudget {
		nightly = req.MaxBudget
	}

	hotel := fmt.Sprintf("%s %s (%d★)", dest, hotelChains[seed%len(hotelChains)], stars)
	search := url.Values{}
	search.Set("to", dest)
	search.Set("from", req.Departure)
	search.Set("depart", req.Start.Format("2006-01-02"))
	search.Set("return", req.End.Format("2006-01-02"))

	return &Quote{
		FlightOut:    fmt.Sprintf("%s%d(%02d:%02d - %02d:%02d)", carrier, 100+seed%800, departHour, 5*(seed%12), departHour+4, 5*(seed%12)),
		FlightReturn: fmt.Sprintf("%s%d(%02d:%02d - %02d:%02d)", carrier, 101+seed%800, returnHour, 30, returnArrive, 15),
		FlightPrice:  flightPrice,
		HotelName:    hotel,
		TotalPrice:   flightPrice*members + nightly*nights,
		BookingLinks: []string{
			"https://flights.example.com/search?" + search.Encode(),
			"https://hotels.example.com/search?" + url.Values{"q": {dest}}.Encode(),
		},
	}, nil
}
