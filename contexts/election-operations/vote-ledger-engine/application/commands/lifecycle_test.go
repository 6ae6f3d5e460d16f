package commands

import (
	"context"
	"errors"
	"testing"

	"evote/contexts/election-operations/vote-ledger-engine/adapters/memory"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
)

func newLifecycleFixture(t *testing.T) (LifecycleUseCase, *memory.Store, *memory.Ledger) {
	t.Helper()
	store := memory.NewStore()
	ledger := memory.NewLedger()
	uc := LifecycleUseCase{
		Elections: store,
		Candidates: store,
		Voters:    store,
		Ledger:    ledger,
		Outbox:    store,
		Authz:     memory.NewStaticAuthorizer([]string{"admin-1"}),
		Clock:     store,
		IDGen:     store,
	}
	return uc, store, ledger
}

func TestCreateElectionRequiresAdmin(t *testing.T) {
	uc, _, _ := newLifecycleFixture(t)
	ctx := context.Background()

	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := uc.CreateElection(ctx, "stranger", "election-2", "Other"); !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); !errors.Is(err, domainerrors.ErrElectionExists) {
		t.Fatalf("expected ErrElectionExists, got %v", err)
	}
}

func TestStartElectionRecordsWindowFloor(t *testing.T) {
	uc, store, ledger := newLifecycleFixture(t)
	ctx := context.Background()

	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); err != nil {
		t.Fatalf("create: %v", err)
	}

	block, err := uc.StartElection(ctx, "admin-1", "election-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if block == 0 {
		t.Fatal("expected confirmed start block")
	}

	election, err := store.GetElection(ctx, "election-1")
	if err != nil {
		t.Fatalf("get election: %v", err)
	}
	if !election.IsActive || !election.Started() {
		t.Fatal("election must be active and started")
	}
	if election.StartedBlock == nil || *election.StartedBlock != block {
		t.Fatalf("StartedBlock = %v, want %d", election.StartedBlock, block)
	}
	active, err := ledger.IsElectionActive(ctx, "election-1")
	if err != nil || !active {
		t.Fatalf("ledger activity: active=%v err=%v", active, err)
	}

	if _, err := uc.StartElection(ctx, "admin-1", "election-1"); !errors.Is(err, domainerrors.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartElectionSubmissionFailureLeavesStateUntouched(t *testing.T) {
	uc, store, ledger := newLifecycleFixture(t)
	ctx := context.Background()

	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); err != nil {
		t.Fatalf("create: %v", err)
	}
	ledger.FailSubmit = domainerrors.ErrSubmissionFailed

	if _, err := uc.StartElection(ctx, "admin-1", "election-1"); !errors.Is(err, domainerrors.ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	election, _ := store.GetElection(ctx, "election-1")
	if election.IsActive || election.Started() {
		t.Fatal("failed start must not transition the election")
	}
}

func TestAddCandidateFreezesOnceStarted(t *testing.T) {
	uc, _, _ := newLifecycleFixture(t)
	ctx := context.Background()

	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := uc.AddCandidate(ctx, "admin-1", entities.Candidate{
		CandidateID: "candidate-1", ElectionID: "election-1", Name: "Grace",
	}); err != nil {
		t.Fatalf("add candidate: %v", err)
	}
	if _, err := uc.StartElection(ctx, "admin-1", "election-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := uc.AddCandidate(ctx, "admin-1", entities.Candidate{
		CandidateID: "candidate-2", ElectionID: "election-1", Name: "Alan",
	})
	if !errors.Is(err, domainerrors.ErrCandidatesFrozen) {
		t.Fatalf("expected ErrCandidatesFrozen, got %v", err)
	}

	items, err := uc.ListCandidates(ctx, "election-1")
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	if len(items) != 1 || items[0].CandidateID != "candidate-1" {
		t.Fatalf("unexpected candidate list: %+v", items)
	}
}

func TestEndElectionRequiresActiveWindow(t *testing.T) {
	uc, _, _ := newLifecycleFixture(t)
	ctx := context.Background()

	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := uc.EndElection(ctx, "admin-1", "election-1"); !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive, got %v", err)
	}
}

func TestEndElectionResetsOnlyItsOwnSessions(t *testing.T) {
	uc, store, ledger := newLifecycleFixture(t)
	ctx := context.Background()

	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := uc.StartElection(ctx, "admin-1", "election-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, voterID := range []string{"voter-1", "voter-2"} {
		if err := store.CreateVoter(ctx, entities.Voter{VoterID: voterID, Name: voterID}); err != nil {
			t.Fatalf("create voter: %v", err)
		}
		if err := store.SetSessionToken(ctx, voterID, "token-"+voterID); err != nil {
			t.Fatalf("set token: %v", err)
		}
	}
	// voter-1 voted in this election, voter-2 in an unrelated one.
	if err := store.MarkSessionConsumed(ctx, "voter-1", "election-1"); err != nil {
		t.Fatalf("consume session: %v", err)
	}
	if err := store.MarkSessionConsumed(ctx, "voter-2", "election-other"); err != nil {
		t.Fatalf("consume session: %v", err)
	}

	endedBlock, err := uc.EndElection(ctx, "admin-1", "election-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	election, _ := store.GetElection(ctx, "election-1")
	if election.IsActive {
		t.Fatal("ended election must not be active")
	}
	if election.EndedBlock == nil || *election.EndedBlock != endedBlock {
		t.Fatalf("EndedBlock = %v, want %d", election.EndedBlock, endedBlock)
	}
	if !election.HasBlockRange() {
		t.Fatal("ended election must carry a complete block range")
	}
	active, _ := ledger.IsElectionActive(ctx, "election-1")
	if active {
		t.Fatal("ledger must report the window closed")
	}

	voter1, _ := store.GetVoter(ctx, "voter-1")
	if voter1.SessionUsed {
		t.Fatal("session consumed by the ended election must be reset")
	}
	voter2, _ := store.GetVoter(ctx, "voter-2")
	if !voter2.SessionUsed || voter2.SessionElectionID != "election-other" {
		t.Fatal("sessions of other elections must not be reset")
	}

	if _, err := uc.EndElection(ctx, "admin-1", "election-1"); !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive on double end, got %v", err)
	}
}

func TestIsOpenForVotingConsultsLedger(t *testing.T) {
	uc, _, ledger := newLifecycleFixture(t)
	ctx := context.Background()

	if _, err := uc.CreateElection(ctx, "admin-1", "election-1", "Board Election"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := uc.IsOpenForVoting(ctx, "election-1"); !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive before start, got %v", err)
	}
	if _, err := uc.StartElection(ctx, "admin-1", "election-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := uc.IsOpenForVoting(ctx, "election-1"); err != nil {
		t.Fatalf("expected open window, got %v", err)
	}
	ledger.SetElectionActive("election-1", false)
	if err := uc.IsOpenForVoting(ctx, "election-1"); !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive on divergence, got %v", err)
	}
}
