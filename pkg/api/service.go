package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// MatchServiceName is the fully-qualified name of the MatchService service.
const MatchServiceName = "tripmatch.v1.MatchService"

// Fully-qualified procedure names, used as HTTP routes.
const (
	MatchServiceCreateGroupProcedure                = "/tripmatch.v1.MatchService/CreateGroup"
	MatchServiceJoinGroupProcedure                  = "/tripmatch.v1.MatchService/JoinGroup"
	MatchServiceGetGroupStatusProcedure             = "/tripmatch.v1.MatchService/GetGroupStatus"
	MatchServiceUpsertPreferenceProcedure           = "/tripmatch.v1.MatchService/UpsertPreference"
	MatchServiceSaveAvailabilityProcedure           = "/tripmatch.v1.MatchService/SaveAvailability"
	MatchServiceGetCommonTimeRangesProcedure        = "/tripmatch.v1.MatchService/GetCommonTimeRanges"
	MatchServiceGenerateRecommendationsProcedure    = "/tripmatch.v1.MatchService/GenerateRecommendations"
	MatchServiceGetRecommendationViewModelProcedure = "/tripmatch.v1.MatchService/GetRecommendationViewModel"
	MatchServiceSubmitVotesProcedure                = "/tripmatch.v1.MatchService/SubmitVotes"
	MatchServiceCheckAllVotedProcedure              = "/tripmatch.v1.MatchService/CheckAllVoted"
	MatchServiceFinalizeTripProcedure               = "/tripmatch.v1.MatchService/FinalizeTrip"
	MatchServiceGetLiveTravelPriceProcedure         = "/tripmatch.v1.MatchService/GetLiveTravelPrice"
)

// MatchServiceHandler is implemented by the server.
type MatchServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	JoinGroup(context.Context, *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error)
	GetGroupStatus(context.Context, *connect.Request[GetGroupStatusRequest]) (*connect.Response[GetGroupStatusResponse], error)
	UpsertPreference(context.Context, *connect.Request[UpsertPreferenceRequest]) (*connect.Response[UpsertPreferenceResponse], error)
	SaveAvailability(context.Context, *connect.Request[SaveAvailabilityRequest]) (*connect.Response[SaveAvailabilityResponse], error)
	GetCommonTimeRanges(context.Context, *connect.Request[GetCommonTimeRangesRequest]) (*connect.Response[GetCommonTimeRangesResponse], error)
	GenerateRecommendations(context.Context, *connect.Request[GenerateRecommendationsRequest]) (*connect.Response[GenerateRecommendationsResponse], error)
	GetRecommendationViewModel(context.Context, *connect.Request[GetRecommendationViewModelRequest]) (*connect.Response[GetRecommendationViewModelResponse], error)
	SubmitVotes(context.Context, *connect.Request[SubmitVotesRequest]) (*connect.Response[SubmitVotesResponse], error)
	CheckAllVoted(context.Context, *connect.Request[CheckAllVotedRequest]) (*connect.Response[CheckAllVotedResponse], error)
	FinalizeTrip(context.Context, *connect.Request[FinalizeTripRequest]) (*connect.Response[FinalizeTripResponse], error)
	GetLiveTravelPrice(context.Context, *connect.Request[GetLiveTravelPriceRequest]) (*connect.Response[GetLiveTravelPriceResponse], error)
}

// NewMatchServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewMatchServiceHandler(svc MatchServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(MatchServiceCreateGroupProcedure, connect.NewUnaryHandler(MatchServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(MatchServiceJoinGroupProcedure, connect.NewUnaryHandler(MatchServiceJoinGroupProcedure, svc.JoinGroup, opts...))
	mux.Handle(MatchServiceGetGroupStatusProcedure, connect.NewUnaryHandler(MatchServiceGetGroupStatusProcedure, svc.GetGroupStatus, opts...))
	mux.Handle(MatchServiceUpsertPreferenceProcedure, connect.NewUnaryHandler(MatchServiceUpsertPreferenceProcedure, svc.UpsertPreference, opts...))
	mux.Handle(MatchServiceSaveAvailabilityProcedure, connect.NewUnaryHandler(MatchServiceSaveAvailabilityProcedure, svc.SaveAvailability, opts...))
	mux.Handle(MatchServiceGetCommonTimeRangesProcedure, connect.NewUnaryHandler(MatchServiceGetCommonTimeRangesProcedure, svc.GetCommonTimeRanges, opts...))
	mux.Handle(MatchServiceGenerateRecommendationsProcedure, connect.NewUnaryHandler(MatchServiceGenerateRecommendationsProcedure, svc.GenerateRecommendations, opts...))
	mux.Handle(MatchServiceGetRecommendationViewModelProcedure, connect.NewUnaryHandler(MatchServiceGetRecommendationViewModelProcedure, svc.GetRecommendationViewModel, opts...))
	mux.Handle(MatchServiceSubmitVotesProcedure, connect.NewUnaryHandler(MatchServiceSubmitVotesProcedure, svc.SubmitVotes, opts...))
	mux.Handle(MatchServiceCheckAllVotedProcedure, connect.NewUnaryHandler(MatchServiceCheckAllVotedProcedure, svc.CheckAllVoted, opts...))
	mux.Handle(MatchServiceFinalizeTripProcedure, connect.NewUnaryHandler(MatchServiceFinalizeTripProcedure, svc.FinalizeTrip, opts...))
	mux.Handle(MatchServiceGetLiveTravelPriceProcedure, connect.NewUnaryHandler(MatchServiceGetLiveTravelPriceProcedure, svc.GetLiveTravelPrice, opts...))

	return "/" + MatchServiceName + "/", mux
}

// MatchServiceClient calls a MatchService over Connect.
type MatchServiceClient struct {
	createGroup                *connect.Client[CreateGroupRequest, CreateGroupResponse]
	joinGroup                  *connect.Client[JoinGroupRequest, JoinGroupResponse]
	getGroupStatus             *connect.Client[GetGroupStatusRequest, GetGroupStatusResponse]
	upsertPreference           *connect.Client[UpsertPreferenceRequest, UpsertPreferenceResponse]
	saveAvailability           *connect.Client[SaveAvailabilityRequest, SaveAvailabilityResponse]
	getCommonTimeRanges        *connect.Client[GetCommonTimeRangesRequest, GetCommonTimeRangesResponse]
	generateRecommendations    *connect.Client[GenerateRecommendationsRequest, GenerateRecommendationsResponse]
	getRecommendationViewModel *connect.Client[GetRecommendationViewModelRequest, GetRecommendationViewModelResponse]
	submitVotes                *connect.Client[SubmitVotesRequest, SubmitVotesResponse]
	checkAllVoted              *connect.Client[CheckAllVotedRequest, CheckAllVotedResponse]
	finalizeTrip               *connect.Client[FinalizeTripRequest, FinalizeTripResponse]
	getLiveTravelPrice         *connect.Client[GetLiveTravelPriceRequest, GetLiveTravelPriceResponse]
}

// NewMatchServiceClient creates a client for the service at baseURL (e.g. http://localhost:8080).
func NewMatchServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MatchServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &MatchServiceClient{
		createGroup:                connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+MatchServiceCreateGroupProcedure, opts...),
		joinGroup:                  connect.NewClient[JoinGroupRequest, JoinGroupResponse](httpClient, baseURL+MatchServiceJoinGroupProcedure, opts...),
		getGroupStatus:             connect.NewClient[GetGroupStatusRequest, GetGroupStatusResponse](httpClient, baseURL+MatchServiceGetGroupStatusProcedure, opts...),
		upsertPreference:           connect.NewClient[UpsertPreferenceRequest, UpsertPreferenceResponse](httpClient, baseURL+MatchServiceUpsertPreferenceProcedure, opts...),
		saveAvailability:           connect.NewClient[SaveAvailabilityRequest, SaveAvailabilityResponse](httpClient, baseURL+MatchServiceSaveAvailabilityProcedure, opts...),
		getCommonTimeRanges:        connect.NewClient[GetCommonTimeRangesRequest, GetCommonTimeRangesResponse](httpClient, baseURL+MatchServiceGetCommonTimeRangesProcedure, opts...),
		generateRecommendations:    connect.NewClient[GenerateRecommendationsRequest, GenerateRecommendationsResponse](httpClient, baseURL+MatchServiceGenerateRecommendationsProcedure, opts...),
		getRecommendationViewModel: connect.NewClient[GetRecommendationViewModelRequest, GetRecommendationViewModelResponse](httpClient, baseURL+MatchServiceGetRecommendationViewModelProcedure, opts...),
		submitVotes:                connect.NewClient[SubmitVotesRequest, SubmitVotesResponse](httpClient, baseURL+MatchServiceSubmitVotesProcedure, opts...),
		checkAllVoted:              connect.NewClient[CheckAllVotedRequest, CheckAllVotedResponse](httpClient, baseURL+MatchServiceCheckAllVotedProcedure, opts...),
		finalizeTrip:               connect.NewClient[FinalizeTripRequest, FinalizeTripResponse](httpClient, baseURL+MatchServiceFinalizeTripProcedure, opts...),
		getLiveTravelPrice:         connect.NewClient[GetLiveTravelPriceRequest, GetLiveTravelPriceResponse](httpClient, baseURL+MatchServiceGetLiveTravelPriceProcedure, opts...),
	}
}

func (c *MatchServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *MatchServiceClient) JoinGroup(ctx context.Context, req *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error) {
	return c.joinGroup.CallUnary(ctx, req)
}

func (c *MatchServiceClient) GetGroupStatus(ctx context.Context, req *connect.Request[GetGroupStatusRequest]) (*connect.Response[GetGroupStatusResponse], error) {
	return c.getGroupStatus.CallUnary(ctx, req)
}

func (c *MatchServiceClient) UpsertPreference(ctx context.Context, req *connect.Request[UpsertPreferenceRequest]) (*connect.Response[UpsertPreferenceResponse], error) {
	return c.upsertPreference.CallUnary(ctx, req)
}

func (c *MatchServiceClient) SaveAvailability(ctx context.Context, req *connect.Request[SaveAvailabilityRequest]) (*connect.Response[SaveAvailabilityResponse], error) {
	return c.saveAvailability.CallUnary(ctx, req)
}

func (c *MatchServiceClient) GetCommonTimeRanges(ctx context.Context, req *connect.Request[GetCommonTimeRangesRequest]) (*connect.Response[GetCommonTimeRangesResponse], error) {
	return c.getCommonTimeRanges.CallUnary(ctx, req)
}

func (c *MatchServiceClient) GenerateRecommendations(ctx context.Context, req *connect.Request[GenerateRecommendationsRequest]) (*connect.Response[GenerateRecommendationsResponse], error) {
	return c.generateRecommendations.CallUnary(ctx, req)
}

func (c *MatchServiceClient) GetRecommendationViewModel(ctx context.Context, req *connect.Request[GetRecommendationViewModelRequest]) (*connect.Response[GetRecommendationViewModelResponse], error) {
	return c.getRecommendationViewModel.CallUnary(ctx, req)
}

func (c *MatchServiceClient) SubmitVotes(ctx context.Context, req *connect.Request[SubmitVotesRequest]) (*connect.Response[SubmitVotesResponse], error) {
	return c.submitVotes.CallUnary(ctx, req)
}

func (c *MatchServiceClient) CheckAllVoted(ctx context.Context, req *connect.Request[CheckAllVotedRequest]) (*connect.Response[CheckAllVotedResponse], error) {
	return c.checkAllVoted.CallUnary(ctx, req)
}

func (c *MatchServiceClient) FinalizeTrip(ctx context.Context, req *connect.Request[FinalizeTripRequest]) (*connect.Response[FinalizeTripResponse], error) {
	return c.finalizeTrip.CallUnary(ctx, req)
}

func (c *MatchServiceClient) GetLiveTravelPrice(ctx context.Context, req *connect.Request[GetLiveTravelPriceRequest]) (*connect.Response[GetLiveTravelPriceResponse], error) {
	return c.getLiveTravelPrice.CallUnary(ctx, req)
}
