package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidFlightSummary is returned when a flight summary does not match
// the "<code>(<HH:mm> - <HH:mm>)" format.
var ErrInvalidFlightSummary = errors.New("invalid flight summary")

var flightSummaryPattern = regexp.MustCompile(`^\s*([A-Z0-9]{2})\s*(\d{1,4}[A-Z]?)\s*\(\s*(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})\s*\)\s*$`)

// FlightLeg is the structured form of one flight summary.
// Times are local wall-clock minutes after midnight.
type FlightLeg struct {
	Carrier      string `json:"carrier"`
	FlightNumber string `json:"flight_number"`
	DepartMinute int    `json:"depart_minute"`
	ArriveMinute int    `json:"arrive_minute"`

	// NextDay is set when the arrival clock time is earlier than the departure clock time.
	NextDay bool `json:"next_day"`

	// Valid is false for a leg that could not be parsed or was never priced.
	Valid bool `json:"valid"`
}

// ParseFlightLeg parses a summary like "BR198(08:50 - 13:15)".
func ParseFlightLeg(summary string) (FlightLeg, error) {
	m := flightSummaryPattern.FindStringSubmatch(summary)
	if m == nil {
		return FlightLeg{}, fmt.Errorf("%w: %q", ErrInvalidFlightSummary, summary)
	}

	depart, err := clockMinute(m[3], m[4])
	if err != nil {
		return FlightLeg{}, fmt.Errorf("%w: %q: %v", ErrInvalidFlightSummary, summary, err)
	}
	arrive, err := clockMinute(m[5], m[6])
	if err != nil {
		return FlightLeg{}, fmt.Errorf("%w: %q: %v", ErrInvalidFlightSummary, summary, err)
	}

	return FlightLeg{
		Carrier:      m[1],
		FlightNumber: m[1] + m[2],
		DepartMinute: depart,
		ArriveMinute: arrive,
		NextDay:      arrive < depart,
		Valid:        true,
	}, nil
}

func clockMinute(hh, mm string) (int, error) {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("clock time %s:%s out of range", hh, mm)
	}
	return h*60 + m, nil
}

// Schedule places the leg on the given local date and returns departure and arrival instants.
// An overnight leg arrives on the following day.
func (l FlightLeg) Schedule(date time.Time, loc *time.Location) (depart, arrive time.Time) {
	local := date.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	depart = midnight.Add(time.Duration(l.DepartMinute) * time.Minute)
	arriveDay := midnight
	if l.NextDay {
		arriveDay = midnight.AddDate(0, 0, 1)
	}
	arrive = arriveDay.Add(time.Duration(l.ArriveMinute) * time.Minute)
	return depart, arrive
}

// Value implements driver.Valuer. Invalid legs are stored as NULL.
func (l FlightLeg) Value() (driver.Value, error) {
	if !l.Valid {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flight leg: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *FlightLeg) Scan(src any) error {
	data, ok, err := textBytes(src)
	if err != nil || !ok {
		*l = FlightLeg{}
		return err
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("failed to decode flight leg: %w", err)
	}
	return nil
}
