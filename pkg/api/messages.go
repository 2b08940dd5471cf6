package api

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Group is a travel-matching group.
type Group struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	InviteCode    string `json:"invite_code"`
	Title         string `json:"title"`
	Departure     string `json:"departure"`
	TargetMembers int    `json:"target_members"`
	TripDays      int    `json:"trip_days"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Member is a user's membership in a group.
type Member struct {
	GroupID     string `json:"group_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	JoinedAt    string `json:"joined_at"`
	SubmittedAt string `json:"submitted_at,omitempty"`
}

// Preference is one member's travel preferences.
type Preference struct {
	HotelBudget    int    `json:"hotel_budget"`
	HotelRating    int    `json:"hotel_rating"`
	AcceptTransfer *bool  `json:"accept_transfer,omitempty"`
	Destinations   string `json:"destinations"`
	TotalBudget    int    `json:"total_budget"`
}

// Slot is a free interval. Start and End are dates (YYYY-MM-DD) or RFC 3339 instants.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeRange is a common window.
type TimeRange struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	DurationDays  int    `json:"duration_days"`
	MinAttendance int    `json:"min_attendance"`
}

// FlightLeg is a parsed flight summary. Times are local HH:MM.
type FlightLeg struct {
	Carrier      string `json:"carrier"`
	FlightNumber string `json:"flight_number"`
	Depart       string `json:"depart"`
	Arrive       string `json:"arrive"`
	NextDay      bool   `json:"next_day"`
}

// Candidate is a priced (destination, date range) option.
type Candidate struct {
	ID           string     `json:"id"`
	StartDate    string     `json:"start_date"`
	EndDate      string     `json:"end_date"`
	Destination  string     `json:"destination"`
	FlightOut    string     `json:"flight_out"`
	FlightReturn string     `json:"flight_return"`
	OutboundLeg  *FlightLeg `json:"outbound_leg,omitempty"`
	ReturnLeg    *FlightLeg `json:"return_leg,omitempty"`
	HotelName    string     `json:"hotel_name"`
	FlightPrice  int        `json:"flight_price"`
	TotalPrice   int        `json:"total_price"`
	BookingLinks []string   `json:"booking_links"`
	Priced       bool       `json:"priced"`
	VoteCount    int        `json:"vote_count"`
}

// Quote is a fresh pricing result.
type Quote struct {
	FlightOut    string   `json:"flight_out"`
	FlightReturn string   `json:"flight_return"`
	FlightPrice  int      `json:"flight_price"`
	HotelName    string   `json:"hotel_name"`
	TotalPrice   int      `json:"total_price"`
	BookingLinks []string `json:"booking_links"`
}

type CreateGroupRequest struct {
	Title         string `json:"title"`
	Departure     string `json:"departure"`
	TargetMembers int    `json:"target_members"`
	TripDays      int    `json:"trip_days"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"invite_code"`
}

type JoinGroupResponse struct {
	GroupID string  `json:"group_id"`
	Member  *Member `json:"member"`
}

type GetGroupStatusRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupStatusResponse struct {
	Status          string `json:"status"`
	MemberCount     int    `json:"member_count"`
	TargetMembers   int    `json:"target_members"`
	SubmittedCount  int    `json:"submitted_count"`
	PreferenceCount int    `json:"preference_count"`
}

type UpsertPreferenceRequest struct {
	GroupID        string `json:"group_id"`
	HotelBudget    int    `json:"hotel_budget"`
	HotelRating    int    `json:"hotel_rating"`
	AcceptTransfer *bool  `json:"accept_transfer,omitempty"`
	Destinations   string `json:"destinations"`
	TotalBudget    int    `json:"total_budget"`
}

type UpsertPreferenceResponse struct {
	Preference *Preference `json:"preference"`
	Status     string      `json:"status"`
}

type SaveAvailabilityRequest struct {
	GroupID    string      `json:"group_id"`
	Slots      []Slot      `json:"slots"`
	Preference *Preference `json:"preference,omitempty"`
}

type SaveAvailabilityResponse struct {
	SlotCount int    `json:"slot_count"`
	Status    string `json:"status"`
}

type GetCommonTimeRangesRequest struct {
	GroupID string `json:"group_id"`
}

type GetCommonTimeRangesResponse struct {
	Threshold int         `json:"threshold"`
	Ranges    []TimeRange `json:"ranges"`
}

type GenerateRecommendationsRequest struct {
	GroupID string `json:"group_id"`
}

type GenerateRecommendationsResponse struct {
	Candidates  []Candidate `json:"candidates"`
	FailedCount int         `json:"failed_count"`
}

type GetRecommendationViewModelRequest struct {
	GroupID string `json:"group_id"`
}

type GetRecommendationViewModelResponse struct {
	Status      string      `json:"status"`
	Candidates  []Candidate `json:"candidates"`
	MyVotes     []string    `json:"my_votes"`
	VotedCount  int         `json:"voted_count"`
	MemberCount int         `json:"member_count"`
	AllVoted    bool        `json:"all_voted"`
}

type SubmitVotesRequest struct {
	GroupID      string   `json:"group_id"`
	CandidateIDs []string `json:"candidate_ids"`
}

type SubmitVotesResponse struct {
	AcceptedIDs []string `json:"accepted_ids"`
	AllVoted    bool     `json:"all_voted"`
}

type CheckAllVotedRequest struct {
	GroupID string `json:"group_id"`
}

type CheckAllVotedResponse struct {
	AllVoted    bool `json:"all_voted"`
	VotedCount  int  `json:"voted_count"`
	MemberCount int  `json:"member_count"`
}

type FinalizeTripRequest struct {
	GroupID     string `json:"group_id"`
	CandidateID string `json:"candidate_id"`
}

type FinalizeTripResponse struct {
	TripID string `json:"trip_id"`
}

type GetLiveTravelPriceRequest struct {
	GroupID     string `json:"group_id"`
	CandidateID string `json:"candidate_id"`
}

type GetLiveTravelPriceResponse struct {
	Quote     *Quote     `json:"quote"`
	Candidate *Candidate `json:"candidate"`
}
