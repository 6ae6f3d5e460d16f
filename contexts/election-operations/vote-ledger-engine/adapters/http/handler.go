package httpadapter

import (
	"context"
	"log/slog"

	"evote/contexts/election-operations/vote-ledger-engine/application/commands"
	"evote/contexts/election-operations/vote-ledger-engine/application/queries"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	httptransport "evote/contexts/election-operations/vote-ledger-engine/transport/http"
)

type Handler struct {
	Voters    commands.VoterUseCase
	Lifecycle commands.LifecycleUseCase
	Cast      commands.CastUseCase
	Publish   commands.PublishUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) RegisterVoterHandler(
	ctx context.Context,
	principal string,
	req httptransport.RegisterVoterRequest,
) (httptransport.VoterResponse, error) {
	voter, err := h.Voters.RegisterVoter(ctx, principal, commands.RegisterVoterCommand{
		VoterID:    req.VoterID,
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
	})
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		VoterID:    voter.VoterID,
		Name:       voter.Name,
		Email:      voter.Email,
		Department: voter.Department,
		HasSession: voter.SessionToken != "",
		CreatedAt:  voter.CreatedAt,
	}, nil
}

func (h Handler) IssueSessionHandler(
	ctx context.Context,
	req httptransport.IssueSessionRequest,
) (httptransport.SessionTokenResponse, error) {
	token, err := h.Voters.IssueSessionToken(ctx, req.VoterID)
	if err != nil {
		return httptransport.SessionTokenResponse{}, err
	}
	return httptransport.SessionTokenResponse{
		VoterID:      req.VoterID,
		SessionToken: token,
	}, nil
}

func (h Handler) ValidateSessionHandler(
	ctx context.Context,
	req httptransport.ValidateSessionRequest,
) (httptransport.SessionResponse, error) {
	voter, err := h.Voters.ResolveSession(ctx, req.SessionToken)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return httptransport.SessionResponse{
		VoterID:    voter.VoterID,
		Name:       voter.Name,
		Department: voter.Department,
	}, nil
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	principal string,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.CreateElection(ctx, principal, req.ElectionID, req.Title)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return electionResponse(election), nil
}

func (h Handler) AddCandidateHandler(
	ctx context.Context,
	principal string,
	electionID string,
	req httptransport.AddCandidateRequest,
) (httptransport.CandidateResponse, error) {
	candidate, err := h.Lifecycle.AddCandidate(ctx, principal, entities.Candidate{
		CandidateID: req.CandidateID,
		ElectionID:  electionID,
		Name:        req.Name,
		Party:       req.Party,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return candidateResponse(candidate), nil
}

func (h Handler) ListCandidatesHandler(
	ctx context.Context,
	electionID string,
) (httptransport.CandidateListResponse, error) {
	candidates, err := h.Lifecycle.ListCandidates(ctx, electionID)
	if err != nil {
		return httptransport.CandidateListResponse{}, err
	}
	items := make([]httptransport.CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, candidateResponse(candidate))
	}
	return httptransport.CandidateListResponse{Items: items}, nil
}

func (h Handler) StartElectionHandler(
	ctx context.Context,
	principal string,
	electionID string,
) (httptransport.LifecycleResponse, error) {
	block, err := h.Lifecycle.StartElection(ctx, principal, electionID)
	if err != nil {
		return httptransport.LifecycleResponse{}, err
	}
	return httptransport.LifecycleResponse{
		ElectionID:  electionID,
		BlockNumber: block,
	}, nil
}

func (h Handler) EndElectionHandler(
	ctx context.Context,
	principal string,
	electionID string,
) (httptransport.LifecycleResponse, error) {
	block, err := h.Lifecycle.EndElection(ctx, principal, electionID)
	if err != nil {
		return httptransport.LifecycleResponse{}, err
	}
	return httptransport.LifecycleResponse{
		ElectionID:  electionID,
		BlockNumber: block,
	}, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	electionID string,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Cast.Cast(ctx, commands.CastCommand{
		VoterID:     req.VoterID,
		CandidateID: req.CandidateID,
		ElectionID:  electionID,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		ElectionID:      electionID,
		ConfirmationRef: result.ConfirmationRef,
		BlockNumber:     result.BlockNumber,
	}, nil
}

func (h Handler) PublishResultsHandler(
	ctx context.Context,
	principal string,
	electionID string,
	force bool,
) (httptransport.ResultsResponse, error) {
	report, err := h.Publish.Publish(ctx, principal, electionID, force)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return resultsResponse(report), nil
}

func (h Handler) PublicResultsHandler(
	ctx context.Context,
	electionID string,
) (httptransport.ResultsResponse, error) {
	report, err := h.Results.GetPublished(ctx, electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return resultsResponse(report), nil
}

func (h Handler) PublicElectionsHandler(ctx context.Context) (httptransport.PublishedElectionsResponse, error) {
	elections, err := h.Results.ListPublished(ctx)
	if err != nil {
		return httptransport.PublishedElectionsResponse{}, err
	}
	items := make([]httptransport.ElectionResponse, 0, len(elections))
	for _, election := range elections {
		items = append(items, electionResponse(election))
	}
	return httptransport.PublishedElectionsResponse{Items: items}, nil
}

func (h Handler) AuditRecountHandler(
	ctx context.Context,
	principal string,
	electionID string,
) (httptransport.ResultsResponse, error) {
	report, err := h.Results.AuditRecount(ctx, principal, electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return resultsResponse(report), nil
}

func electionResponse(election entities.Election) httptransport.ElectionResponse {
	return httptransport.ElectionResponse{
		ElectionID:       election.ElectionID,
		Title:            election.Title,
		IsActive:         election.IsActive,
		StartedAt:        election.StartedAt,
		EndedAt:          election.EndedAt,
		StartedBlock:     election.StartedBlock,
		EndedBlock:       election.EndedBlock,
		ResultsPublished: election.ResultsPublished,
		PublishedAt:      election.PublishedAt,
	}
}

func candidateResponse(candidate entities.Candidate) httptransport.CandidateResponse {
	return httptransport.CandidateResponse{
		CandidateID: candidate.CandidateID,
		ElectionID:  candidate.ElectionID,
		Name:        candidate.Name,
		Party:       candidate.Party,
	}
}

func resultsResponse(report entities.TallyReport) httptransport.ResultsResponse {
	items := make([]httptransport.TallyItem, 0, len(report.Results))
	for _, tally := range report.Results {
		items = append(items, httptransport.TallyItem{
			CandidateID: tally.CandidateID,
			Name:        tally.Name,
			Party:       tally.Party,
			Votes:       tally.Votes,
		})
	}
	return httptransport.ResultsResponse{
		ElectionID:  report.ElectionID,
		Source:      string(report.Source),
		Results:     items,
		FromBlock:   report.FromBlock,
		ToBlock:     report.ToBlock,
		GeneratedAt: report.GeneratedAt,
	}
}
