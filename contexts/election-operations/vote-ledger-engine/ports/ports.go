package ports

import (
	"context"
	"time"

	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
)

type VoterRepository interface {
	CreateVoter(ctx context.Context, voter entities.Voter) error
	GetVoter(ctx context.Context, voterID string) (entities.Voter, error)
	GetVoterByToken(ctx context.Context, token string) (entities.Voter, error)

	// TryAcquireVoteLock atomically flips VoteInProgress false->true against
	// durable state. It returns false without error when the lock is held;
	// callers reject instead of queueing.
	TryAcquireVoteLock(ctx context.Context, voterID string) (bool, error)
	// ReleaseVoteLock unconditionally clears VoteInProgress. Idempotent.
	ReleaseVoteLock(ctx context.Context, voterID string) error

	HasVotedIn(ctx context.Context, voterID string, electionID string) (bool, error)
	// AppendVoteHistory fails with ErrDuplicateVote when an entry for the
	// election already exists.
	AppendVoteHistory(ctx context.Context, voterID string, electionID string, votedAt time.Time) error

	// SetSessionToken stores a freshly issued session token for the voter.
	SetSessionToken(ctx context.Context, voterID string, token string) error
	// MarkSessionConsumed is idempotent and tags the session with the
	// election that consumed it.
	MarkSessionConsumed(ctx context.Context, voterID string, electionID string) error
	// ResetSessionsForElection clears consumed sessions tagged with the
	// election and returns how many voters were reset.
	ResetSessionsForElection(ctx context.Context, electionID string) (int, error)
}

type ElectionRepository interface {
	CreateElection(ctx context.Context, election entities.Election) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	UpdateElection(ctx context.Context, election entities.Election) error
	ListPublishedElections(ctx context.Context) ([]entities.Election, error)

	// TryAcquirePublishLock / ReleasePublishLock guard snapshot writes with
	// the same durable compare-and-swap discipline as the voter lock.
	TryAcquirePublishLock(ctx context.Context, electionID string) (bool, error)
	ReleasePublishLock(ctx context.Context, electionID string) error
}

type CandidateRepository interface {
	CreateCandidate(ctx context.Context, candidate entities.Candidate) error
	GetCandidate(ctx context.Context, electionID string, candidateID string) (entities.Candidate, error)
	ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error)
}

type VoteRecordRepository interface {
	AppendVoteRecord(ctx context.Context, record entities.VoteRecord) error
	ListVoteRecords(ctx context.Context, electionID string) ([]entities.VoteRecord, error)
}

// PendingTx is an opaque handle for a submitted, not yet confirmed ledger
// transaction.
type PendingTx struct {
	Reference string
}

type LifecycleAction string

const (
	LifecycleStart LifecycleAction = "start"
	LifecycleEnd   LifecycleAction = "end"
)

// VoteCastEvent is one decoded entry of the ledger event log.
type VoteCastEvent struct {
	VoterHash   string
	ElectionID  string
	CandidateID string
	BlockNumber uint64
	TxReference string
}

// LedgerGateway wraps the external append-only ledger. Reads are idempotent
// and may be retried with bounded backoff; submits are never retried by the
// gateway or its callers.
type LedgerGateway interface {
	// CurrentHeight terminates in bounded time: a few attempts with a short
	// fixed delay, then ErrLedgerUnreachable.
	CurrentHeight(ctx context.Context) (uint64, error)

	SubmitVote(ctx context.Context, voterHash string, electionID string, candidateID string) (PendingTx, error)
	SubmitLifecycle(ctx context.Context, electionID string, action LifecycleAction) (PendingTx, error)

	// AwaitConfirmation blocks until the transaction is included, the
	// ledger rejects it (ErrSubmissionFailed), or ctx expires
	// (ErrSubmissionUncertain). Returns the confirmed block number.
	AwaitConfirmation(ctx context.Context, tx PendingTx) (uint64, error)

	HasVoted(ctx context.Context, electionID string, voterHash string) (bool, error)
	IsElectionActive(ctx context.Context, electionID string) (bool, error)

	// VoteEventsInRange scans [fromBlock, toBlock] in bounded chunks. A
	// failed chunk is logged and skipped, so results may be a lower bound.
	// Each call re-issues the query; the result is finite and one-shot.
	VoteEventsInRange(ctx context.Context, fromBlock uint64, toBlock uint64) ([]VoteCastEvent, error)
}

// Authorizer gates administrative operations. Implementations live in the
// identity layer; the engine only needs the yes/no answer, delivered before
// any state is touched.
type Authorizer interface {
	Authorize(ctx context.Context, principal string, action string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	PartitionKey string    `json:"partition_key"`
	OccurredAt   time.Time `json:"occurred_at"`
	Payload      []byte    `json:"payload"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
