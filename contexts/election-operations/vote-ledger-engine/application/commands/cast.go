package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	application "evote/contexts/election-operations/vote-ledger-engine/application"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// CastCommand is the write-model input for a single vote submission.
type CastCommand struct {
	VoterID     string
	CandidateID string
	ElectionID  string
}

// CastResult carries the confirmation reference of the landed ledger
// transaction.
type CastResult struct {
	ConfirmationRef string
	BlockNumber     uint64
}

// CastUseCase orchestrates one vote end to end: per-voter lock, local and
// ledger-side double-vote guards, election gate, ledger submission with a
// bounded confirmation wait, and the local commit of history plus audit
// mirror. The per-voter lock is released on every exit path.
type CastUseCase struct {
	Voters         ports.VoterRepository
	Elections      ports.ElectionRepository
	Candidates     ports.CandidateRepository
	Records        ports.VoteRecordRepository
	Ledger         ports.LedgerGateway
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	ConfirmTimeout time.Duration
	Logger         *slog.Logger
}

// Cast submits one vote. Contending casts for the same voter fail with
// ErrVoteInProgress instead of queueing. A confirmation timeout surfaces as
// ErrSubmissionUncertain and must be resolved by a ledger read, never by a
// blind resubmit.
func (uc CastUseCase) Cast(ctx context.Context, cmd CastCommand) (CastResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	candidateID := strings.TrimSpace(cmd.CandidateID)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if voterID == "" || candidateID == "" || electionID == "" {
		return CastResult{}, domainerrors.ErrInvalidInput
	}

	if _, err := uc.Voters.GetVoter(ctx, voterID); err != nil {
		return CastResult{}, err
	}

	acquired, err := uc.Voters.TryAcquireVoteLock(ctx, voterID)
	if err != nil {
		return CastResult{}, err
	}
	if !acquired {
		logger.Warn("vote rejected on lock contention",
			"event", "cast_lock_contention",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"voter_id", voterID,
			"election_id", electionID,
		)
		return CastResult{}, domainerrors.ErrVoteInProgress
	}
	// Release must run even when ctx is already canceled, so the cleanup
	// uses a detached context.
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if releaseErr := uc.Voters.ReleaseVoteLock(releaseCtx, voterID); releaseErr != nil {
			logger.Error("vote lock release failed",
				"event", "cast_lock_release_failed",
				"module", "election-operations/vote-ledger-engine",
				"layer", "application",
				"voter_id", voterID,
				"error", releaseErr.Error(),
			)
		}
	}()

	voted, err := uc.Voters.HasVotedIn(ctx, voterID, electionID)
	if err != nil {
		return CastResult{}, err
	}
	if voted {
		return CastResult{}, domainerrors.ErrAlreadyVoted
	}

	if _, err := electionOpenForVoting(ctx, uc.Elections, uc.Ledger, electionID); err != nil {
		return CastResult{}, err
	}

	// Only the one-way fingerprint crosses the privacy boundary to the
	// ledger; the raw voter identity never does.
	voterHash := VoterFingerprint(voterID)

	// Ledger-authoritative duplicate check. Catches local records that
	// lagged or were reset, and the aftermath of an uncertain submission.
	onChain, err := uc.Ledger.HasVoted(ctx, electionID, voterHash)
	if err != nil {
		return CastResult{}, err
	}
	if onChain {
		logger.Warn("vote rejected by ledger duplicate check",
			"event", "cast_ledger_duplicate",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
		)
		return CastResult{}, domainerrors.ErrAlreadyVoted
	}

	if _, err := uc.Candidates.GetCandidate(ctx, electionID, candidateID); err != nil {
		if errors.Is(err, domainerrors.ErrCandidateNotFound) {
			return CastResult{}, domainerrors.ErrInvalidCandidate
		}
		return CastResult{}, err
	}

	tx, err := uc.Ledger.SubmitVote(ctx, voterHash, electionID, candidateID)
	if err != nil {
		logger.Error("vote submission failed",
			"event", "cast_submit_failed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return CastResult{}, err
	}

	confirmTimeout := uc.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 90 * time.Second
	}
	confirmCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	confirmedBlock, err := uc.Ledger.AwaitConfirmation(confirmCtx, tx)
	cancel()
	if err != nil {
		if errors.Is(err, domainerrors.ErrSubmissionFailed) {
			// Definite rejection: nothing landed, safe to retry later.
			return CastResult{}, err
		}
		// The transaction was submitted and may still confirm. From here
		// only the ledger can answer; an operator or a recount resolves it.
		logger.Error("vote confirmation indeterminate",
			"event", "cast_confirmation_indeterminate",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
			"tx_reference", tx.Reference,
			"error", err.Error(),
		)
		return CastResult{}, domainerrors.ErrSubmissionUncertain
	}

	now := uc.now()
	record := entities.VoteRecord{
		VoterHash:   voterHash,
		ElectionID:  electionID,
		CandidateID: candidateID,
		TxReference: tx.Reference,
		BlockNumber: confirmedBlock,
		RecordedAt:  now,
	}
	if err := uc.Records.AppendVoteRecord(ctx, record); err != nil {
		return CastResult{}, err
	}
	if err := uc.Voters.AppendVoteHistory(ctx, voterID, electionID, now); err != nil {
		return CastResult{}, err
	}
	if err := uc.Voters.MarkSessionConsumed(ctx, voterID, electionID); err != nil {
		return CastResult{}, err
	}

	if err := uc.appendCastEvent(ctx, record, now); err != nil {
		return CastResult{}, err
	}

	logger.Info("vote confirmed",
		"event", "cast_confirmed",
		"module", "election-operations/vote-ledger-engine",
		"layer", "application",
		"election_id", electionID,
		"candidate_id", candidateID,
		"block_number", confirmedBlock,
		"tx_reference", tx.Reference,
	)
	return CastResult{ConfirmationRef: tx.Reference, BlockNumber: confirmedBlock}, nil
}

func (uc CastUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc CastUseCase) appendCastEvent(ctx context.Context, record entities.VoteRecord, occurredAt time.Time) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newEngineEnvelope(eventID, "vote.confirmed", record.ElectionID, occurredAt, map[string]any{
		"election_id":  record.ElectionID,
		"candidate_id": record.CandidateID,
		"voter_hash":   record.VoterHash,
		"tx_reference": record.TxReference,
		"block_number": record.BlockNumber,
		"occurred_at":  occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

// VoterFingerprint derives the non-reversible on-ledger identifier for a
// voter. The same derivation must be used everywhere a fingerprint is
// compared against ledger state.
func VoterFingerprint(voterID string) string {
	return crypto.Keccak256Hash([]byte(strings.TrimSpace(voterID))).Hex()
}
