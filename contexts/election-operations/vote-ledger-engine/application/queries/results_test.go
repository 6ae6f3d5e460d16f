package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"evote/contexts/election-operations/vote-ledger-engine/adapters/memory"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
)

func newResultsFixture(t *testing.T) (ResultsUseCase, *memory.Store, *memory.Ledger) {
	t.Helper()
	store := memory.NewStore()
	ledger := memory.NewLedger()
	uc := ResultsUseCase{
		Elections:  store,
		Candidates: store,
		Ledger:     ledger,
		Authz:      memory.NewStaticAuthorizer([]string{"admin-1"}),
		Clock:      store,
	}
	return uc, store, ledger
}

func TestGetPublishedGates(t *testing.T) {
	uc, store, _ := newResultsFixture(t)
	ctx := context.Background()

	if _, err := uc.GetPublished(ctx, "election-404"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected ErrElectionNotFound, got %v", err)
	}

	if err := store.CreateElection(ctx, entities.Election{ElectionID: "election-1", Title: "Board", IsActive: true}); err != nil {
		t.Fatalf("create election: %v", err)
	}
	if _, err := uc.GetPublished(ctx, "election-1"); !errors.Is(err, domainerrors.ErrElectionStillActive) {
		t.Fatalf("expected ErrElectionStillActive, got %v", err)
	}

	election, _ := store.GetElection(ctx, "election-1")
	election.IsActive = false
	if err := store.UpdateElection(ctx, election); err != nil {
		t.Fatalf("update election: %v", err)
	}
	if _, err := uc.GetPublished(ctx, "election-1"); !errors.Is(err, domainerrors.ErrResultsNotPublished) {
		t.Fatalf("expected ErrResultsNotPublished, got %v", err)
	}

	election, _ = store.GetElection(ctx, "election-1")
	election.ResultsPublished = true
	election.LastCountedBlock = 7
	election.ResultsSnapshot = []entities.CandidateTally{{CandidateID: "candidate-1", Votes: 4}}
	if err := store.UpdateElection(ctx, election); err != nil {
		t.Fatalf("update election: %v", err)
	}

	report, err := uc.GetPublished(ctx, "election-1")
	if err != nil {
		t.Fatalf("get published: %v", err)
	}
	if report.Source != entities.TallySourceCached {
		t.Fatalf("Source = %q, want %q", report.Source, entities.TallySourceCached)
	}
	if report.ToBlock != 7 || len(report.Results) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestListPublishedOrdersByEndTime(t *testing.T) {
	uc, store, _ := newResultsFixture(t)
	ctx := context.Background()

	older := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, election := range []entities.Election{
		{ElectionID: "election-old", ResultsPublished: true, EndedAt: &older},
		{ElectionID: "election-new", ResultsPublished: true, EndedAt: &newer},
		{ElectionID: "election-unpublished"},
	} {
		if err := store.CreateElection(ctx, election); err != nil {
			t.Fatalf("create election: %v", err)
		}
	}

	elections, err := uc.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(elections) != 2 {
		t.Fatalf("expected two published elections, got %d", len(elections))
	}
	if elections[0].ElectionID != "election-new" || elections[1].ElectionID != "election-old" {
		t.Fatalf("unexpected order: %s, %s", elections[0].ElectionID, elections[1].ElectionID)
	}
}

func TestAuditRecountReplaysRecordedWindow(t *testing.T) {
	uc, store, ledger := newResultsFixture(t)
	ctx := context.Background()

	// One pre-window vote, three in-window votes, one post-window vote.
	ledger.SeedVote("hash-early", "election-1", "candidate-1")
	startedBlock := ledger.SeedVote("hash-1", "election-1", "candidate-1")
	ledger.SeedVote("hash-2", "election-1", "candidate-2")
	endedBlock := ledger.SeedVote("hash-3", "election-1", "candidate-1")
	ledger.SeedVote("hash-late", "election-1", "candidate-2")

	if err := store.CreateElection(ctx, entities.Election{
		ElectionID:   "election-1",
		Title:        "Board",
		StartedBlock: &startedBlock,
		EndedBlock:   &endedBlock,
	}); err != nil {
		t.Fatalf("create election: %v", err)
	}
	for _, candidate := range []entities.Candidate{
		{CandidateID: "candidate-1", ElectionID: "election-1", Name: "Grace"},
		{CandidateID: "candidate-2", ElectionID: "election-1", Name: "Alan"},
	} {
		if err := store.CreateCandidate(ctx, candidate); err != nil {
			t.Fatalf("create candidate: %v", err)
		}
	}

	report, err := uc.AuditRecount(ctx, "admin-1", "election-1")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if report.Source != entities.TallySourceLedger {
		t.Fatalf("Source = %q, want %q", report.Source, entities.TallySourceLedger)
	}
	if report.FromBlock != startedBlock || report.ToBlock != endedBlock {
		t.Fatalf("window [%d,%d], want [%d,%d]", report.FromBlock, report.ToBlock, startedBlock, endedBlock)
	}
	if report.Results[0].CandidateID != "candidate-1" || report.Results[0].Votes != 2 {
		t.Fatalf("unexpected leader: %+v", report.Results[0])
	}
	if report.Results[1].CandidateID != "candidate-2" || report.Results[1].Votes != 1 {
		t.Fatalf("unexpected runner-up: %+v", report.Results[1])
	}

	// The recount is read-only.
	election, _ := store.GetElection(ctx, "election-1")
	if election.ResultsPublished || election.LastCountedBlock != 0 {
		t.Fatalf("audit must not mutate the election: %+v", election)
	}
}

func TestAuditRecountRequiresCompleteWindow(t *testing.T) {
	uc, store, _ := newResultsFixture(t)
	ctx := context.Background()

	startedBlock := uint64(1)
	if err := store.CreateElection(ctx, entities.Election{
		ElectionID:   "election-1",
		Title:        "Board",
		StartedBlock: &startedBlock,
	}); err != nil {
		t.Fatalf("create election: %v", err)
	}
	if _, err := uc.AuditRecount(ctx, "admin-1", "election-1"); !errors.Is(err, domainerrors.ErrBlockRangeMissing) {
		t.Fatalf("expected ErrBlockRangeMissing, got %v", err)
	}
	if _, err := uc.AuditRecount(ctx, "stranger", "election-1"); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
