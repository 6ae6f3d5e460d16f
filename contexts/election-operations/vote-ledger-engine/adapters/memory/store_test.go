package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

func TestVoteLockIsTestAndSet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.TryAcquireVoteLock(ctx, "voter-404"); !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected ErrVoterNotFound, got %v", err)
	}

	if err := store.CreateVoter(ctx, entities.Voter{VoterID: "voter-1", Name: "Ada"}); err != nil {
		t.Fatalf("create voter: %v", err)
	}
	acquired, err := store.TryAcquireVoteLock(ctx, "voter-1")
	if err != nil || !acquired {
		t.Fatalf("first acquire: acquired=%v err=%v", acquired, err)
	}
	acquired, err = store.TryAcquireVoteLock(ctx, "voter-1")
	if err != nil || acquired {
		t.Fatalf("second acquire must fail without error: acquired=%v err=%v", acquired, err)
	}
	if err := store.ReleaseVoteLock(ctx, "voter-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	acquired, err = store.TryAcquireVoteLock(ctx, "voter-1")
	if err != nil || !acquired {
		t.Fatalf("reacquire after release: acquired=%v err=%v", acquired, err)
	}

	// Releasing an unknown voter is a no-op, not an error.
	if err := store.ReleaseVoteLock(ctx, "voter-404"); err != nil {
		t.Fatalf("release unknown voter: %v", err)
	}
}

func TestUpdateElectionPreservesHeldPublishLock(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.CreateElection(ctx, entities.Election{ElectionID: "election-1", Title: "Board"}); err != nil {
		t.Fatalf("create election: %v", err)
	}
	if acquired, err := store.TryAcquirePublishLock(ctx, "election-1"); err != nil || !acquired {
		t.Fatalf("acquire: acquired=%v err=%v", acquired, err)
	}

	// A full-record write racing with a publish must not drop the lock,
	// even when the caller's copy predates acquisition.
	election, _ := store.GetElection(ctx, "election-1")
	election.Title = "Renamed"
	election.PublishInProgress = false
	if err := store.UpdateElection(ctx, election); err != nil {
		t.Fatalf("update: %v", err)
	}

	if acquired, err := store.TryAcquirePublishLock(ctx, "election-1"); err != nil || acquired {
		t.Fatalf("lock must still be held: acquired=%v err=%v", acquired, err)
	}
	if err := store.ReleasePublishLock(ctx, "election-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if acquired, err := store.TryAcquirePublishLock(ctx, "election-1"); err != nil || !acquired {
		t.Fatalf("reacquire after release: acquired=%v err=%v", acquired, err)
	}
}

func TestAppendVoteHistoryRejectsDuplicateElection(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.CreateVoter(ctx, entities.Voter{VoterID: "voter-1", Name: "Ada"}); err != nil {
		t.Fatalf("create voter: %v", err)
	}
	now := time.Now().UTC()
	if err := store.AppendVoteHistory(ctx, "voter-1", "election-1", now); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := store.AppendVoteHistory(ctx, "voter-1", "election-1", now); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if err := store.AppendVoteHistory(ctx, "voter-1", "election-2", now); err != nil {
		t.Fatalf("append for other election: %v", err)
	}
}

func TestOutboxAppendIsIdempotentPerEventID(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	envelope := ports.EventEnvelope{
		EventID:      "event-1",
		EventType:    "vote.confirmed",
		PartitionKey: "election-1",
		OccurredAt:   time.Now().UTC(),
		Payload:      []byte(`{"election_id":"election-1"}`),
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("idempotent re-append: %v", err)
	}

	conflicting := envelope
	conflicting.Payload = []byte(`{"election_id":"election-2"}`)
	if err := store.AppendOutbox(ctx, conflicting); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on payload conflict, got %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d", len(pending))
	}
	if err := store.MarkOutboxPublished(ctx, "event-1", time.Now().UTC()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := store.MarkOutboxPublished(ctx, "event-404", time.Now().UTC()); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown outbox id, got %v", err)
	}
}

func TestGetVoterByToken(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.CreateVoter(ctx, entities.Voter{VoterID: "voter-1", Name: "Ada"}); err != nil {
		t.Fatalf("create voter: %v", err)
	}
	if err := store.SetSessionToken(ctx, "voter-1", "token-1"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	voter, err := store.GetVoterByToken(ctx, "token-1")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if voter.VoterID != "voter-1" {
		t.Fatalf("resolved %q, want voter-1", voter.VoterID)
	}
	if _, err := store.GetVoterByToken(ctx, "token-404"); !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected ErrVoterNotFound, got %v", err)
	}
}
