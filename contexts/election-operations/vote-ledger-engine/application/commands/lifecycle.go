package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "evote/contexts/election-operations/vote-ledger-engine/application"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// LifecycleUseCase owns Election entities and their one-way transitions. It
// is the single source of truth for "is voting currently permitted": the
// local IsActive flag is a cache, the ledger is authoritative, and every
// gate before an irreversible action re-validates against the ledger.
type LifecycleUseCase struct {
	Elections      ports.ElectionRepository
	Candidates     ports.CandidateRepository
	Voters         ports.VoterRepository
	Ledger         ports.LedgerGateway
	Outbox         ports.OutboxWriter
	Authz          ports.Authorizer
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	ConfirmTimeout time.Duration
	Logger         *slog.Logger
}

// CreateElection registers a new election in the created state.
func (uc LifecycleUseCase) CreateElection(
	ctx context.Context,
	principal string,
	electionID string,
	title string,
) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	title = strings.TrimSpace(title)
	if electionID == "" || title == "" {
		return entities.Election{}, domainerrors.ErrInvalidInput
	}
	if err := uc.authorize(ctx, principal, "election.create"); err != nil {
		return entities.Election{}, err
	}

	now := uc.now()
	election := entities.Election{
		ElectionID: electionID,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.Elections.CreateElection(ctx, election); err != nil {
		return entities.Election{}, err
	}
	logger.Info("election created",
		"event", "election_created",
		"module", "election-operations/vote-ledger-engine",
		"layer", "application",
		"election_id", electionID,
	)
	return election, nil
}

// AddCandidate registers a candidate for an election that has not started.
// Candidates freeze once the voting window opens.
func (uc LifecycleUseCase) AddCandidate(
	ctx context.Context,
	principal string,
	candidate entities.Candidate,
) (entities.Candidate, error) {
	candidate.CandidateID = strings.TrimSpace(candidate.CandidateID)
	candidate.ElectionID = strings.TrimSpace(candidate.ElectionID)
	candidate.Name = strings.TrimSpace(candidate.Name)
	if candidate.CandidateID == "" || candidate.ElectionID == "" || candidate.Name == "" {
		return entities.Candidate{}, domainerrors.ErrInvalidInput
	}
	if err := uc.authorize(ctx, principal, "candidate.create"); err != nil {
		return entities.Candidate{}, err
	}

	election, err := uc.Elections.GetElection(ctx, candidate.ElectionID)
	if err != nil {
		return entities.Candidate{}, err
	}
	if election.Started() {
		return entities.Candidate{}, domainerrors.ErrCandidatesFrozen
	}

	candidate.CreatedAt = uc.now()
	if err := uc.Candidates.CreateCandidate(ctx, candidate); err != nil {
		return entities.Candidate{}, err
	}
	return candidate, nil
}

// ListCandidates returns the candidates registered for an election.
func (uc LifecycleUseCase) ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error) {
	if _, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID)); err != nil {
		return nil, err
	}
	return uc.Candidates.ListCandidates(ctx, strings.TrimSpace(electionID))
}

// StartElection opens the voting window. The transition is gated by a
// confirmed ledger transaction and can happen at most once per election.
func (uc LifecycleUseCase) StartElection(
	ctx context.Context,
	principal string,
	electionID string,
) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return 0, domainerrors.ErrInvalidInput
	}
	if err := uc.authorize(ctx, principal, "election.start"); err != nil {
		return 0, err
	}

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return 0, err
	}
	if election.Started() || election.IsActive {
		return 0, domainerrors.ErrAlreadyStarted
	}

	tx, err := uc.Ledger.SubmitLifecycle(ctx, electionID, ports.LifecycleStart)
	if err != nil {
		logger.Error("election start submission failed",
			"event", "election_start_submit_failed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return 0, err
	}
	confirmedBlock, err := uc.awaitConfirmation(ctx, tx)
	if err != nil {
		return 0, err
	}

	// Optimistic re-check immediately before the write. Start is a
	// low-frequency administrator action; the remaining race window is a
	// documented limitation.
	election, err = uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return 0, err
	}
	if election.Started() || election.IsActive {
		return 0, domainerrors.ErrAlreadyStarted
	}

	now := uc.now()
	election.IsActive = true
	election.StartedAt = &now
	election.StartedBlock = &confirmedBlock
	election.ResultsPublished = false
	election.PublishedAt = nil
	election.UpdatedAt = now
	if err := uc.Elections.UpdateElection(ctx, election); err != nil {
		return 0, err
	}

	if err := uc.appendLifecycleEvent(ctx, "election.started", electionID, now, map[string]any{
		"confirmed_block": confirmedBlock,
		"tx_reference":    tx.Reference,
	}); err != nil {
		return 0, err
	}
	logger.Info("election started",
		"event", "election_started",
		"module", "election-operations/vote-ledger-engine",
		"layer", "application",
		"election_id", electionID,
		"started_block", confirmedBlock,
	)
	return confirmedBlock, nil
}

// EndElection closes the voting window and resets the ending election's
// consumed voter sessions. The reset is scoped to this election only.
func (uc LifecycleUseCase) EndElection(
	ctx context.Context,
	principal string,
	electionID string,
) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return 0, domainerrors.ErrInvalidInput
	}
	if err := uc.authorize(ctx, principal, "election.end"); err != nil {
		return 0, err
	}

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return 0, err
	}
	if !election.IsActive {
		return 0, domainerrors.ErrElectionNotActive
	}

	tx, err := uc.Ledger.SubmitLifecycle(ctx, electionID, ports.LifecycleEnd)
	if err != nil {
		logger.Error("election end submission failed",
			"event", "election_end_submit_failed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return 0, err
	}
	confirmedBlock, err := uc.awaitConfirmation(ctx, tx)
	if err != nil {
		return 0, err
	}

	election, err = uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return 0, err
	}
	if !election.IsActive {
		return 0, domainerrors.ErrElectionNotActive
	}

	now := uc.now()
	election.IsActive = false
	election.EndedAt = &now
	election.EndedBlock = &confirmedBlock
	election.UpdatedAt = now
	if err := uc.Elections.UpdateElection(ctx, election); err != nil {
		return 0, err
	}

	resetCount, err := uc.Voters.ResetSessionsForElection(ctx, electionID)
	if err != nil {
		// The window is already closed on the ledger; session cleanup is
		// recoverable, so log and continue.
		logger.Warn("session reset after election end failed",
			"event", "election_end_session_reset_failed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
	}

	if err := uc.appendLifecycleEvent(ctx, "election.ended", electionID, now, map[string]any{
		"confirmed_block": confirmedBlock,
		"tx_reference":    tx.Reference,
		"sessions_reset":  resetCount,
	}); err != nil {
		return 0, err
	}
	logger.Info("election ended",
		"event", "election_ended",
		"module", "election-operations/vote-ledger-engine",
		"layer", "application",
		"election_id", electionID,
		"ended_block", confirmedBlock,
		"sessions_reset", resetCount,
	)
	return confirmedBlock, nil
}

// IsOpenForVoting reports whether casts are currently permitted, consulting
// both the local record and the ledger.
func (uc LifecycleUseCase) IsOpenForVoting(ctx context.Context, electionID string) error {
	_, err := electionOpenForVoting(ctx, uc.Elections, uc.Ledger, strings.TrimSpace(electionID))
	return err
}

func (uc LifecycleUseCase) authorize(ctx context.Context, principal string, action string) error {
	if uc.Authz == nil {
		return domainerrors.ErrUnauthorized
	}
	return uc.Authz.Authorize(ctx, strings.TrimSpace(principal), action)
}

func (uc LifecycleUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc LifecycleUseCase) awaitConfirmation(ctx context.Context, tx ports.PendingTx) (uint64, error) {
	timeout := uc.ConfirmTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	confirmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return uc.Ledger.AwaitConfirmation(confirmCtx, tx)
}

func (uc LifecycleUseCase) appendLifecycleEvent(
	ctx context.Context,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"election_id": electionID,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	envelope, err := newEngineEnvelope(eventID, eventType, electionID, occurredAt, payload)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

// electionOpenForVoting is the shared voting-permission gate: the local
// flags must allow it and the ledger must agree the election is active.
func electionOpenForVoting(
	ctx context.Context,
	elections ports.ElectionRepository,
	ledger ports.LedgerGateway,
	electionID string,
) (entities.Election, error) {
	election, err := elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if election.ResultsPublished {
		return entities.Election{}, domainerrors.ErrResultsPublished
	}
	if !election.IsActive {
		return entities.Election{}, domainerrors.ErrElectionNotActive
	}
	active, err := ledger.IsElectionActive(ctx, electionID)
	if err != nil {
		return entities.Election{}, err
	}
	if !active {
		// Local and ledger state diverged; the ledger wins and the window
		// is treated as closed.
		return entities.Election{}, domainerrors.ErrElectionNotActive
	}
	return election, nil
}
