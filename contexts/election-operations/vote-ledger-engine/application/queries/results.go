package queries

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

// ResultsUseCase serves published snapshots and the non-mutating audit
// recount that cross-checks them against the ledger event log.
type ResultsUseCase struct {
	Elections  ports.ElectionRepository
	Candidates ports.CandidateRepository
	Ledger     ports.LedgerGateway
	Authz      ports.Authorizer
	Clock      ports.Clock
	Logger     *slog.Logger
}

// GetPublished returns the cached snapshot of a published election.
func (uc ResultsUseCase) GetPublished(ctx context.Context, electionID string) (entities.TallyReport, error) {
	election, err := uc.Elections.GetElection(ctx, strings.TrimSpace(electionID))
	if err != nil {
		return entities.TallyReport{}, err
	}
	if election.IsActive {
		return entities.TallyReport{}, domainerrors.ErrElectionStillActive
	}
	if !election.ResultsPublished {
		return entities.TallyReport{}, domainerrors.ErrResultsNotPublished
	}
	return entities.TallyReport{
		ElectionID:  election.ElectionID,
		Source:      entities.TallySourceCached,
		Results:     election.ResultsSnapshot,
		ToBlock:     election.LastCountedBlock,
		GeneratedAt: uc.now(),
	}, nil
}

// ListPublished returns elections whose results are visible to the public,
// most recently ended first.
func (uc ResultsUseCase) ListPublished(ctx context.Context) ([]entities.Election, error) {
	elections, err := uc.Elections.ListPublishedElections(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(elections, func(i, j int) bool {
		left, right := elections[i].EndedAt, elections[j].EndedAt
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return right.Before(*left)
		}
	})
	return elections, nil
}

// AuditRecount replays the ledger event log over the election's own
// recorded window [startedBlock, endedBlock], independent of any snapshot
// and without mutating state. The report is labeled ledger-verified so it
// can be compared against the cached snapshot.
func (uc ResultsUseCase) AuditRecount(
	ctx context.Context,
	principal string,
	electionID string,
) (entities.TallyReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID = strings.TrimSpace(electionID)
	if electionID == "" {
		return entities.TallyReport{}, domainerrors.ErrInvalidInput
	}
	if uc.Authz == nil {
		return entities.TallyReport{}, domainerrors.ErrUnauthorized
	}
	if err := uc.Authz.Authorize(ctx, strings.TrimSpace(principal), "results.audit"); err != nil {
		return entities.TallyReport{}, err
	}

	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		return entities.TallyReport{}, err
	}
	if election.IsActive {
		return entities.TallyReport{}, domainerrors.ErrElectionStillActive
	}
	if !election.HasBlockRange() {
		return entities.TallyReport{}, domainerrors.ErrBlockRangeMissing
	}

	fromBlock := *election.StartedBlock
	toBlock := *election.EndedBlock
	events, err := uc.Ledger.VoteEventsInRange(ctx, fromBlock, toBlock)
	if err != nil {
		return entities.TallyReport{}, err
	}

	counts := make(map[string]uint64)
	for _, event := range events {
		if event.ElectionID != electionID {
			continue
		}
		counts[event.CandidateID]++
	}

	candidates, err := uc.Candidates.ListCandidates(ctx, electionID)
	if err != nil {
		return entities.TallyReport{}, err
	}
	results := make([]entities.CandidateTally, 0, len(candidates))
	for _, candidate := range candidates {
		results = append(results, entities.CandidateTally{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			Party:       candidate.Party,
			Votes:       counts[candidate.CandidateID],
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].CandidateID < results[j].CandidateID
	})

	logger.Info("audit recount completed",
		"event", "audit_recount_completed",
		"module", "election-operations/vote-ledger-engine",
		"layer", "application",
		"election_id", electionID,
		"from_block", fromBlock,
		"to_block", toBlock,
		"events_counted", len(events),
	)
	return entities.TallyReport{
		ElectionID:  electionID,
		Source:      entities.TallySourceLedger,
		Results:     results,
		FromBlock:   fromBlock,
		ToBlock:     toBlock,
		GeneratedAt: uc.now(),
	}, nil
}

func (uc ResultsUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
