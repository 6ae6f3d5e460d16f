package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"evote/contexts/election-operations/vote-ledger-engine/adapters/memory"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
)

func newCastFixture(t *testing.T) (CastUseCase, *memory.Store, *memory.Ledger) {
	t.Helper()
	store := memory.NewStore()
	ledger := memory.NewLedger()
	ctx := context.Background()

	if err := store.CreateVoter(ctx, entities.Voter{VoterID: "voter-1", Name: "Ada", Email: "ada@example.org"}); err != nil {
		t.Fatalf("create voter: %v", err)
	}
	startedBlock := uint64(1)
	if err := store.CreateElection(ctx, entities.Election{
		ElectionID:   "election-1",
		Title:        "Board Election",
		IsActive:     true,
		StartedBlock: &startedBlock,
	}); err != nil {
		t.Fatalf("create election: %v", err)
	}
	if err := store.CreateCandidate(ctx, entities.Candidate{
		CandidateID: "candidate-1",
		ElectionID:  "election-1",
		Name:        "Grace",
	}); err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	ledger.SetElectionActive("election-1", true)

	uc := CastUseCase{
		Voters:         store,
		Elections:      store,
		Candidates:     store,
		Records:        store,
		Ledger:         ledger,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		ConfirmTimeout: time.Second,
	}
	return uc, store, ledger
}

func TestCastConfirmsAndCommitsLocally(t *testing.T) {
	uc, store, _ := newCastFixture(t)
	ctx := context.Background()

	result, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if result.ConfirmationRef == "" {
		t.Fatal("expected confirmation reference")
	}
	if result.BlockNumber == 0 {
		t.Fatal("expected confirmed block number")
	}

	voter, err := store.GetVoter(ctx, "voter-1")
	if err != nil {
		t.Fatalf("get voter: %v", err)
	}
	if !voter.HasVotedIn("election-1") {
		t.Fatal("expected vote history entry")
	}
	if !voter.SessionUsed || voter.SessionElectionID != "election-1" {
		t.Fatal("expected session marked consumed for the election")
	}
	if voter.VoteInProgress {
		t.Fatal("vote lock must be released after a successful cast")
	}

	records, err := store.ListVoteRecords(ctx, "election-1")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one audit record, got %d", len(records))
	}
	if records[0].TxReference != result.ConfirmationRef {
		t.Fatalf("audit record reference %q does not match %q", records[0].TxReference, result.ConfirmationRef)
	}
	if records[0].VoterHash != VoterFingerprint("voter-1") {
		t.Fatal("audit record must carry the voter fingerprint, not the identity")
	}
}

func TestCastRejectsSecondVoteInSameElection(t *testing.T) {
	uc, _, _ := newCastFixture(t)
	ctx := context.Background()

	if _, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"}); err != nil {
		t.Fatalf("first cast: %v", err)
	}
	_, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}

func TestCastRejectsWhileLockHeld(t *testing.T) {
	uc, store, _ := newCastFixture(t)
	ctx := context.Background()

	acquired, err := store.TryAcquireVoteLock(ctx, "voter-1")
	if err != nil || !acquired {
		t.Fatalf("acquire lock: acquired=%v err=%v", acquired, err)
	}
	_, err = uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrVoteInProgress) {
		t.Fatalf("expected ErrVoteInProgress, got %v", err)
	}

	// The contending cast must not have cleared the lock it failed to take.
	voter, err := store.GetVoter(ctx, "voter-1")
	if err != nil {
		t.Fatalf("get voter: %v", err)
	}
	if !voter.VoteInProgress {
		t.Fatal("rejected cast must leave the held lock untouched")
	}
}

func TestCastRejectsLedgerSideDuplicate(t *testing.T) {
	uc, store, ledger := newCastFixture(t)
	ctx := context.Background()

	// The ledger already holds a vote for this fingerprint even though the
	// local history does not.
	ledger.SeedVote(VoterFingerprint("voter-1"), "election-1", "candidate-1")

	_, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	voter, _ := store.GetVoter(ctx, "voter-1")
	if voter.VoteInProgress {
		t.Fatal("vote lock must be released after ledger duplicate rejection")
	}
}

func TestCastRejectsUnknownCandidate(t *testing.T) {
	uc, store, _ := newCastFixture(t)
	ctx := context.Background()

	_, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-404", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrInvalidCandidate) {
		t.Fatalf("expected ErrInvalidCandidate, got %v", err)
	}
	voter, _ := store.GetVoter(ctx, "voter-1")
	if voter.VoteInProgress {
		t.Fatal("vote lock must be released after candidate rejection")
	}
}

func TestCastRejectsWhenElectionClosedLocally(t *testing.T) {
	uc, store, _ := newCastFixture(t)
	ctx := context.Background()

	election, err := store.GetElection(ctx, "election-1")
	if err != nil {
		t.Fatalf("get election: %v", err)
	}
	election.IsActive = false
	if err := store.UpdateElection(ctx, election); err != nil {
		t.Fatalf("update election: %v", err)
	}

	_, err = uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive, got %v", err)
	}
}

func TestCastRejectsOnLedgerActivityDivergence(t *testing.T) {
	uc, _, ledger := newCastFixture(t)
	ctx := context.Background()

	// Local flag says open, the ledger says closed. The ledger wins.
	ledger.SetElectionActive("election-1", false)

	_, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive, got %v", err)
	}
}

func TestCastRejectsAfterResultsPublished(t *testing.T) {
	uc, store, _ := newCastFixture(t)
	ctx := context.Background()

	election, _ := store.GetElection(ctx, "election-1")
	election.IsActive = false
	election.ResultsPublished = true
	if err := store.UpdateElection(ctx, election); err != nil {
		t.Fatalf("update election: %v", err)
	}

	_, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrResultsPublished) {
		t.Fatalf("expected ErrResultsPublished, got %v", err)
	}
}

func TestCastSurfacesDefiniteSubmissionFailure(t *testing.T) {
	uc, store, ledger := newCastFixture(t)
	ctx := context.Background()

	ledger.FailSubmit = domainerrors.ErrSubmissionFailed

	_, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}

	voter, _ := store.GetVoter(ctx, "voter-1")
	if voter.VoteInProgress {
		t.Fatal("vote lock must be released after a definite failure")
	}
	if voter.HasVotedIn("election-1") {
		t.Fatal("nothing landed, so no history entry may exist")
	}

	// A definite failure is retryable.
	ledger.FailSubmit = nil
	if _, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"}); err != nil {
		t.Fatalf("retry after definite failure: %v", err)
	}
}

func TestCastReportsUncertainOnConfirmationTimeout(t *testing.T) {
	uc, store, ledger := newCastFixture(t)
	ctx := context.Background()

	ledger.HangConfirm = true
	ledger.LandWhileHanging = true
	uc.ConfirmTimeout = 50 * time.Millisecond

	_, err := uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrSubmissionUncertain) {
		t.Fatalf("expected ErrSubmissionUncertain, got %v", err)
	}

	voter, _ := store.GetVoter(ctx, "voter-1")
	if voter.VoteInProgress {
		t.Fatal("vote lock must be released even after an indeterminate outcome")
	}
	if voter.HasVotedIn("election-1") {
		t.Fatal("an indeterminate outcome must not write local history")
	}

	// The hanging transaction did land. A resubmission attempt must be
	// stopped by the ledger-side duplicate check, not accepted again.
	ledger.HangConfirm = false
	_, err = uc.Cast(ctx, CastCommand{VoterID: "voter-1", CandidateID: "candidate-1", ElectionID: "election-1"})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted after landed-while-uncertain, got %v", err)
	}
}

func TestCastValidatesInputAndVoterExistence(t *testing.T) {
	uc, _, _ := newCastFixture(t)
	ctx := context.Background()

	if _, err := uc.Cast(ctx, CastCommand{VoterID: " ", CandidateID: "candidate-1", ElectionID: "election-1"}); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := uc.Cast(ctx, CastCommand{VoterID: "voter-404", CandidateID: "candidate-1", ElectionID: "election-1"}); !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected ErrVoterNotFound, got %v", err)
	}
}

func TestVoterFingerprintIsStableAndOpaque(t *testing.T) {
	first := VoterFingerprint("voter-1")
	second := VoterFingerprint(" voter-1 ")
	if first != second {
		t.Fatal("fingerprint must ignore surrounding whitespace")
	}
	if first == "voter-1" || len(first) != 66 {
		t.Fatalf("expected 0x-prefixed 32-byte digest, got %q", first)
	}
	if first == VoterFingerprint("voter-2") {
		t.Fatal("distinct voters must not collide")
	}
}
