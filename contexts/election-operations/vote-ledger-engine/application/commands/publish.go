package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "evote/contexts/election-operations/vote-ledger-engine/application"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// PublishUseCase maintains the per-candidate results snapshot. It is a
// log-replay consumer over the ledger event stream with a persisted cursor
// (LastCountedBlock): incremental catch-up folds only new blocks, a force
// recount discards the snapshot and replays the whole window.
type PublishUseCase struct {
	Elections  ports.ElectionRepository
	Candidates ports.CandidateRepository
	Ledger     ports.LedgerGateway
	Outbox     ports.OutboxWriter
	Authz      ports.Authorizer
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// Publish computes and stores the results snapshot. Re-running without new
// ledger blocks is a no-op returning the cached snapshot; overlapping
// publishes for the same election are rejected via the per-election lock.
func (uc PublishUseCase) Publish(
	ctx context.Context,
	principal string,
	electionID string,
	force bool,
) (entities.TallyReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.TallyReport{}, domainerrors.ErrInvalidInput
	}
	if uc.Authz == nil {
		return entities.TallyReport{}, domainerrors.ErrUnauthorized
	}
	if err := uc.Authz.Authorize(ctx, strings.TrimSpace(principal), "results.publish"); err != nil {
		return entities.TallyReport{}, err
	}

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.TallyReport{}, err
	}
	if election.IsActive {
		return entities.TallyReport{}, domainerrors.ErrElectionStillActive
	}

	acquired, err := uc.Elections.TryAcquirePublishLock(ctx, electionID)
	if err != nil {
		return entities.TallyReport{}, err
	}
	if !acquired {
		return entities.TallyReport{}, domainerrors.ErrPublishInProgress
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if releaseErr := uc.Elections.ReleasePublishLock(releaseCtx, electionID); releaseErr != nil {
			logger.Error("publish lock release failed",
				"event", "publish_lock_release_failed",
				"module", "election-operations/vote-ledger-engine",
				"layer", "application",
				"election_id", electionID,
				"error", releaseErr.Error(),
			)
		}
	}()

	// Re-read under the lock; another publish may have advanced the cursor
	// between the precondition check and acquisition.
	election, err = uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.TallyReport{}, err
	}
	if election.IsActive {
		return entities.TallyReport{}, domainerrors.ErrElectionStillActive
	}

	height, err := uc.Ledger.CurrentHeight(ctx)
	if err != nil {
		return entities.TallyReport{}, err
	}

	now := uc.now()
	if !force && election.ResultsPublished && height <= election.LastCountedBlock {
		logger.Info("publish short-circuited, no new blocks",
			"event", "publish_no_new_votes",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
			"last_counted_block", election.LastCountedBlock,
		)
		return entities.TallyReport{
			ElectionID:  electionID,
			Source:      entities.TallySourceCached,
			Results:     election.ResultsSnapshot,
			ToBlock:     election.LastCountedBlock,
			GeneratedAt: now,
		}, nil
	}

	counts := make(map[string]uint64)
	var fromBlock uint64
	if force {
		// Full authoritative replay from the window floor; the prior
		// snapshot is discarded entirely.
		if election.StartedBlock != nil {
			fromBlock = *election.StartedBlock
		}
	} else {
		fromBlock = election.LastCountedBlock + 1
		if election.StartedBlock != nil && *election.StartedBlock > fromBlock {
			fromBlock = *election.StartedBlock
		}
		for _, row := range election.ResultsSnapshot {
			counts[row.CandidateID] = row.Votes
		}
	}

	if fromBlock <= height {
		events, err := uc.Ledger.VoteEventsInRange(ctx, fromBlock, height)
		if err != nil {
			return entities.TallyReport{}, err
		}
		folded := foldVoteEvents(counts, events, electionID)
		logger.Info("ledger scan folded into snapshot",
			"event", "publish_scan_completed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "application",
			"election_id", electionID,
			"from_block", fromBlock,
			"to_block", height,
			"events_folded", folded,
			"force", force,
		)
	}

	snapshot, err := uc.materializeSnapshot(ctx, electionID, counts)
	if err != nil {
		return entities.TallyReport{}, err
	}

	election.ResultsSnapshot = snapshot
	if height > election.LastCountedBlock {
		election.LastCountedBlock = height
	}
	election.ResultsPublished = true
	election.PublishedAt = &now
	election.UpdatedAt = now
	if err := uc.Elections.UpdateElection(ctx, election); err != nil {
		return entities.TallyReport{}, err
	}

	if err := uc.appendPublishEvent(ctx, electionID, now, force, election.LastCountedBlock); err != nil {
		return entities.TallyReport{}, err
	}

	return entities.TallyReport{
		ElectionID:  electionID,
		Source:      entities.TallySourceLedger,
		Results:     snapshot,
		FromBlock:   fromBlock,
		ToBlock:     height,
		GeneratedAt: now,
	}, nil
}

func (uc PublishUseCase) materializeSnapshot(
	ctx context.Context,
	electionID string,
	counts map[string]uint64,
) ([]entities.CandidateTally, error) {
	logger := application.ResolveLogger(uc.Logger)
	candidates, err := uc.Candidates.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(candidates))
	snapshot := make([]entities.CandidateTally, 0, len(candidates))
	for _, candidate := range candidates {
		known[candidate.CandidateID] = true
		snapshot = append(snapshot, entities.CandidateTally{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			Party:       candidate.Party,
			Votes:       counts[candidate.CandidateID],
		})
	}
	for candidateID := range counts {
		if !known[candidateID] {
			// Still countable through an audit recount; the snapshot only
			// carries registered candidates.
			logger.Warn("ledger vote for unregistered candidate",
				"event", "publish_unknown_candidate",
				"module", "election-operations/vote-ledger-engine",
				"layer", "application",
				"election_id", electionID,
				"candidate_id", candidateID,
			)
		}
	}
	sortTallies(snapshot)
	return snapshot, nil
}

func (uc PublishUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc PublishUseCase) appendPublishEvent(
	ctx context.Context,
	electionID string,
	occurredAt time.Time,
	force bool,
	lastCountedBlock uint64,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newEngineEnvelope(eventID, "results.published", electionID, occurredAt, map[string]any{
		"election_id":        electionID,
		"force":              force,
		"last_counted_block": lastCountedBlock,
		"occurred_at":        occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

// foldVoteEvents adds matching events into counts and returns how many were
// folded. Events from other elections share the ledger and are skipped.
func foldVoteEvents(counts map[string]uint64, events []ports.VoteCastEvent, electionID string) int {
	folded := 0
	for _, event := range events {
		if event.ElectionID != electionID {
			continue
		}
		counts[event.CandidateID]++
		folded++
	}
	return folded
}

func sortTallies(items []entities.CandidateTally) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Votes != items[j].Votes {
			return items[i].Votes > items[j].Votes
		}
		return items[i].CandidateID < items[j].CandidateID
	})
}
