package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tripmatch/internal/planner"
	"github.com/mmynk/tripmatch/pkg/api"
)

// MatchService implements the Connect MatchService on top of the planner.
type MatchService struct {
	planner *planner.Planner
	loc     *time.Location
}

var _ api.MatchServiceHandler = (*MatchService)(nil)

// NewMatchService creates a MatchService. Calendar dates on the wire are read and
// written in loc.
func NewMatchService(p *planner.Planner, loc *time.Location) *MatchService {
	if loc == nil {
		loc = p.Rules().Location
	}
	return &MatchService{planner: p, loc: loc}
}

// CreateGroup opens a new group owned by the caller.
func (s *MatchService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("CreateGroup request received",
		"user_id", userID,
		"title", req.Msg.Title,
		"target_members", req.Msg.TargetMembers,
	)

	start, err := parseDate(req.Msg.StartDate, s.loc)
	if err != nil {
		return nil, toConnectError(err)
	}
	end, err := parseDate(req.Msg.EndDate, s.loc)
	if err != nil {
		return nil, toConnectError(err)
	}

	group, err := s.planner.CreateGroup(ctx, userID, planner.CreateGroupInput{
		Title:         req.Msg.Title,
		Departure:     req.Msg.Departure,
		TargetMembers: req.Msg.TargetMembers,
		TripDays:      req.Msg.TripDays,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		slog.Error("CreateGroup failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_id", group.ID, "invite_code", group.InviteCode)

	return connect.NewResponse(&api.CreateGroupResponse{Group: groupToAPI(group, s.loc)}), nil
}

// JoinGroup adds the caller to the group with the given invite code.
func (s *MatchService) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("JoinGroup request received", "user_id", userID, "invite_code", req.Msg.InviteCode)

	group, member, err := s.planner.JoinGroup(ctx, userID, req.Msg.InviteCode)
	if err != nil {
		slog.Error("JoinGroup failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("JoinGroup successful", "group_id", group.ID, "user_id", userID)

	return connect.NewResponse(&api.JoinGroupResponse{
		GroupID: group.ID,
		Member:  memberToAPI(member),
	}), nil
}

// GetGroupStatus re-evaluates and reports the group's lifecycle state.
func (s *MatchService) GetGroupStatus(ctx context.Context, req *connect.Request[api.GetGroupStatusRequest]) (*connect.Response[api.GetGroupStatusResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	report, err := s.planner.GroupStatus(ctx, userID, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetGroupStatus failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetGroupStatusResponse{
		Status:          string(report.Group.Status),
		MemberCount:     report.MemberCount,
		TargetMembers:   report.TargetMembers,
		SubmittedCount:  report.SubmittedCount,
		PreferenceCount: report.PreferenceCount,
	}), nil
}

// UpsertPreference saves the caller's travel preferences.
func (s *MatchService) UpsertPreference(ctx context.Context, req *connect.Request[api.UpsertPreferenceRequest]) (*connect.Response[api.UpsertPreferenceResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("UpsertPreference request received", "group_id", req.Msg.GroupID, "user_id", userID)

	pref, status, err := s.planner.UpsertPreference(ctx, userID, req.Msg.GroupID, planner.PreferenceInput{
		HotelBudget:    req.Msg.HotelBudget,
		HotelRating:    req.Msg.HotelRating,
		AcceptTransfer: req.Msg.AcceptTransfer,
		Destinations:   req.Msg.Destinations,
		TotalBudget:    req.Msg.TotalBudget,
	})
	if err != nil {
		slog.Error("UpsertPreference failed", "group_id", req.Msg.GroupID, "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.UpsertPreferenceResponse{
		Preference: preferenceToAPI(pref),
		Status:     string(status),
	}), nil
}

// SaveAvailability replaces the caller's free slots and marks them submitted.
func (s *MatchService) SaveAvailability(ctx context.Context, req *connect.Request[api.SaveAvailabilityRequest]) (*connect.Response[api.SaveAvailabilityResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("SaveAvailability request received",
		"group_id", req.Msg.GroupID,
		"user_id", userID,
		"slots", len(req.Msg.Slots),
	)

	slots := make([]planner.Slot, 0, len(req.Msg.Slots))
	for _, sl := range req.Msg.Slots {
		start, err := parseDate(sl.Start, s.loc)
		if err != nil {
			return nil, toConnectError(err)
		}
		end, err := parseDate(sl.End, s.loc)
		if err != nil {
			return nil, toConnectError(err)
		}
		slots = append(slots, planner.Slot{Start: start, End: end})
	}

	count, status, err := s.planner.SaveAvailability(ctx, userID, req.Msg.GroupID, planner.AvailabilityInput{
		Slots:      slots,
		Preference: preferenceFromAPI(req.Msg.Preference),
	})
	if err != nil {
		slog.Error("SaveAvailability failed", "group_id", req.Msg.GroupID, "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.SaveAvailabilityResponse{
		SlotCount: count,
		Status:    string(status),
	}), nil
}

// GetCommonTimeRanges returns the windows where a quorum of members is free.
func (s *MatchService) GetCommonTimeRanges(ctx context.Context, req *connect.Request[api.GetCommonTimeRangesRequest]) (*connect.Response[api.GetCommonTimeRangesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	result, err := s.planner.CommonTimeRanges(ctx, userID, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetCommonTimeRanges failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	ranges := make([]api.TimeRange, 0, len(result.Ranges))
	for _, r := range result.Ranges {
		ranges = append(ranges, api.TimeRange{
			Start:         formatDate(r.Start, s.loc),
			End:           formatDate(r.End, s.loc),
			DurationDays:  r.DurationDays,
			MinAttendance: r.MinAttendance,
		})
	}

	return connect.NewResponse(&api.GetCommonTimeRangesResponse{
		Threshold: result.Threshold,
		Ranges:    ranges,
	}), nil
}

// GenerateRecommendations rebuilds and prices the group's candidates.
func (s *MatchService) GenerateRecommendations(ctx context.Context, req *connect.Request[api.GenerateRecommendationsRequest]) (*connect.Response[api.GenerateRecommendationsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("GenerateRecommendations request received", "group_id", req.Msg.GroupID, "user_id", userID)

	result, err := s.planner.GenerateRecommendations(ctx, userID, req.Msg.GroupID)
	if err != nil {
		slog.Error("GenerateRecommendations failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GenerateRecommendations successful",
		"group_id", req.Msg.GroupID,
		"candidates", len(result.Candidates),
		"failed", result.FailedCount,
	)

	return connect.NewResponse(&api.GenerateRecommendationsResponse{
		Candidates:  candidatesToAPI(result.Candidates, s.loc),
		FailedCount: result.FailedCount,
	}), nil
}

// GetRecommendationViewModel returns the voting screen for the caller.
func (s *MatchService) GetRecommendationViewModel(ctx context.Context, req *connect.Request[api.GetRecommendationViewModelRequest]) (*connect.Response[api.GetRecommendationViewModelResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	view, err := s.planner.RecommendationView(ctx, userID, req.Msg.GroupID)
	if err != nil {
		slog.Error("GetRecommendationViewModel failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	myVotes := view.MyVotes
	if myVotes == nil {
		myVotes = []string{}
	}

	return connect.NewResponse(&api.GetRecommendationViewModelResponse{
		Status:      string(view.Group.Status),
		Candidates:  candidatesToAPI(view.Candidates, s.loc),
		MyVotes:     myVotes,
		VotedCount:  view.VotedCount,
		MemberCount: view.MemberCount,
		AllVoted:    view.AllVoted,
	}), nil
}

// SubmitVotes replaces the caller's votes.
func (s *MatchService) SubmitVotes(ctx context.Context, req *connect.Request[api.SubmitVotesRequest]) (*connect.Response[api.SubmitVotesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("SubmitVotes request received",
		"group_id", req.Msg.GroupID,
		"user_id", userID,
		"candidates", len(req.Msg.CandidateIDs),
	)

	result, err := s.planner.SubmitVotes(ctx, userID, req.Msg.GroupID, req.Msg.CandidateIDs)
	if err != nil {
		slog.Error("SubmitVotes failed", "group_id", req.Msg.GroupID, "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	accepted := result.AcceptedIDs
	if accepted == nil {
		accepted = []string{}
	}

	return connect.NewResponse(&api.SubmitVotesResponse{
		AcceptedIDs: accepted,
		AllVoted:    result.AllVoted,
	}), nil
}

// CheckAllVoted reports whether every member has voted.
func (s *MatchService) CheckAllVoted(ctx context.Context, req *connect.Request[api.CheckAllVotedRequest]) (*connect.Response[api.CheckAllVotedResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	tally, err := s.planner.AllMembersVoted(ctx, userID, req.Msg.GroupID)
	if err != nil {
		slog.Error("CheckAllVoted failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CheckAllVotedResponse{
		AllVoted:    tally.AllVoted(),
		VotedCount:  tally.Voted,
		MemberCount: tally.Members,
	}), nil
}

// FinalizeTrip turns the chosen candidate into a trip.
func (s *MatchService) FinalizeTrip(ctx context.Context, req *connect.Request[api.FinalizeTripRequest]) (*connect.Response[api.FinalizeTripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("FinalizeTrip request received",
		"group_id", req.Msg.GroupID,
		"candidate_id", req.Msg.CandidateID,
		"user_id", userID,
	)

	trip, err := s.planner.FinalizeTrip(ctx, userID, req.Msg.GroupID, req.Msg.CandidateID)
	if err != nil {
		slog.Error("FinalizeTrip failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("FinalizeTrip successful", "group_id", req.Msg.GroupID, "trip_id", trip.ID)

	return connect.NewResponse(&api.FinalizeTripResponse{TripID: trip.ID}), nil
}

// GetLiveTravelPrice re-prices one candidate.
func (s *MatchService) GetLiveTravelPrice(ctx context.Context, req *connect.Request[api.GetLiveTravelPriceRequest]) (*connect.Response[api.GetLiveTravelPriceResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	quote, candidate, err := s.planner.LiveTravelPrice(ctx, userID, req.Msg.GroupID, req.Msg.CandidateID)
	if err != nil {
		slog.Error("GetLiveTravelPrice failed",
			"group_id", req.Msg.GroupID,
			"candidate_id", req.Msg.CandidateID,
			"error", err,
		)
		return nil, toConnectError(err)
	}

	c := candidateToAPI(candidate, s.loc)
	return connect.NewResponse(&api.GetLiveTravelPriceResponse{
		Quote:     quoteToAPI(quote),
		Candidate: &c,
	}), nil
}
