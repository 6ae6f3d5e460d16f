package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory implementation of every engine repository port,
// used for tests and local development. The mutex stands in for the
// per-record atomic read-modify-write the durable store provides.
type Store struct {
	mu sync.RWMutex

	voters     map[string]entities.Voter
	tokens     map[string]string
	elections  map[string]entities.Election
	candidates map[string]entities.Candidate
	records    []entities.VoteRecord
	outbox     map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		voters:     make(map[string]entities.Voter),
		tokens:     make(map[string]string),
		elections:  make(map[string]entities.Election),
		candidates: make(map[string]entities.Candidate),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *Store) CreateVoter(_ context.Context, voter entities.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(voter.VoterID)
	if _, exists := s.voters[key]; exists {
		return domainerrors.ErrVoterExists
	}
	s.voters[key] = cloneVoter(voter)
	return nil
}

func (s *Store) GetVoter(_ context.Context, voterID string) (entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[strings.TrimSpace(voterID)]
	if !ok {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return cloneVoter(voter), nil
}

func (s *Store) GetVoterByToken(_ context.Context, token string) (entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voterID, ok := s.tokens[strings.TrimSpace(token)]
	if !ok {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	voter, ok := s.voters[voterID]
	if !ok {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return cloneVoter(voter), nil
}

func (s *Store) TryAcquireVoteLock(_ context.Context, voterID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(voterID)
	voter, ok := s.voters[key]
	if !ok {
		return false, domainerrors.ErrVoterNotFound
	}
	if voter.VoteInProgress {
		return false, nil
	}
	voter.VoteInProgress = true
	voter.UpdatedAt = time.Now().UTC()
	s.voters[key] = voter
	return true, nil
}

func (s *Store) ReleaseVoteLock(_ context.Context, voterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(voterID)
	voter, ok := s.voters[key]
	if !ok {
		return nil
	}
	voter.VoteInProgress = false
	voter.UpdatedAt = time.Now().UTC()
	s.voters[key] = voter
	return nil
}

func (s *Store) HasVotedIn(_ context.Context, voterID string, electionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[strings.TrimSpace(voterID)]
	if !ok {
		return false, domainerrors.ErrVoterNotFound
	}
	return voter.HasVotedIn(strings.TrimSpace(electionID)), nil
}

func (s *Store) AppendVoteHistory(
	_ context.Context,
	voterID string,
	electionID string,
	votedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(voterID)
	voter, ok := s.voters[key]
	if !ok {
		return domainerrors.ErrVoterNotFound
	}
	if voter.HasVotedIn(strings.TrimSpace(electionID)) {
		return domainerrors.ErrDuplicateVote
	}
	voter.History = append(voter.History, entities.VoteHistoryEntry{
		ElectionID: strings.TrimSpace(electionID),
		VotedAt:    votedAt.UTC(),
	})
	voter.UpdatedAt = time.Now().UTC()
	s.voters[key] = voter
	return nil
}

func (s *Store) SetSessionToken(_ context.Context, voterID string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(voterID)
	voter, ok := s.voters[key]
	if !ok {
		return domainerrors.ErrVoterNotFound
	}
	voter.SessionToken = strings.TrimSpace(token)
	voter.SessionUsed = false
	voter.SessionElectionID = ""
	voter.UpdatedAt = time.Now().UTC()
	s.voters[key] = voter
	s.tokens[voter.SessionToken] = key
	return nil
}

func (s *Store) MarkSessionConsumed(_ context.Context, voterID string, electionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(voterID)
	voter, ok := s.voters[key]
	if !ok {
		return domainerrors.ErrVoterNotFound
	}
	voter.SessionUsed = true
	voter.SessionElectionID = strings.TrimSpace(electionID)
	voter.UpdatedAt = time.Now().UTC()
	s.voters[key] = voter
	return nil
}

func (s *Store) ResetSessionsForElection(_ context.Context, electionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reset := 0
	for key, voter := range s.voters {
		if !voter.SessionUsed || voter.SessionElectionID != strings.TrimSpace(electionID) {
			continue
		}
		voter.SessionUsed = false
		voter.SessionElectionID = ""
		voter.UpdatedAt = time.Now().UTC()
		s.voters[key] = voter
		reset++
	}
	return reset, nil
}

func (s *Store) CreateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(election.ElectionID)
	if _, exists := s.elections[key]; exists {
		return domainerrors.ErrElectionExists
	}
	s.elections[key] = cloneElection(election)
	return nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return cloneElection(election), nil
}

func (s *Store) UpdateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(election.ElectionID)
	existing, ok := s.elections[key]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	// The publish lock is owned by its CAS operations, not by full-record
	// writes.
	election.PublishInProgress = existing.PublishInProgress
	s.elections[key] = cloneElection(election)
	return nil
}

func (s *Store) ListPublishedElections(_ context.Context) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0)
	for _, election := range s.elections {
		if election.ResultsPublished && !election.IsActive {
			items = append(items, cloneElection(election))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ElectionID < items[j].ElectionID
	})
	return items, nil
}

func (s *Store) TryAcquirePublishLock(_ context.Context, electionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(electionID)
	election, ok := s.elections[key]
	if !ok {
		return false, domainerrors.ErrElectionNotFound
	}
	if election.PublishInProgress {
		return false, nil
	}
	election.PublishInProgress = true
	s.elections[key] = election
	return true, nil
}

func (s *Store) ReleasePublishLock(_ context.Context, electionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(electionID)
	election, ok := s.elections[key]
	if !ok {
		return nil
	}
	election.PublishInProgress = false
	s.elections[key] = election
	return nil
}

func (s *Store) CreateCandidate(_ context.Context, candidate entities.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := candidateKey(candidate.ElectionID, candidate.CandidateID)
	if _, exists := s.candidates[key]; exists {
		return domainerrors.ErrCandidateExists
	}
	s.candidates[key] = candidate
	return nil
}

func (s *Store) GetCandidate(_ context.Context, electionID string, candidateID string) (entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidate, ok := s.candidates[candidateKey(electionID, candidateID)]
	if !ok {
		return entities.Candidate{}, domainerrors.ErrCandidateNotFound
	}
	return candidate, nil
}

func (s *Store) ListCandidates(_ context.Context, electionID string) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Candidate, 0)
	for _, candidate := range s.candidates {
		if candidate.ElectionID == strings.TrimSpace(electionID) {
			items = append(items, candidate)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CandidateID < items[j].CandidateID
	})
	return items, nil
}

func (s *Store) AppendVoteRecord(_ context.Context, record entities.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *Store) ListVoteRecords(_ context.Context, electionID string) ([]entities.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VoteRecord, 0)
	for _, record := range s.records {
		if record.ElectionID == strings.TrimSpace(electionID) {
			items = append(items, record)
		}
	}
	return items, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, envelope.Payload) {
			return domainerrors.ErrInvalidInput
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      envelope.Payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrInvalidInput
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func candidateKey(electionID string, candidateID string) string {
	return strings.TrimSpace(electionID) + "/" + strings.TrimSpace(candidateID)
}

func cloneVoter(voter entities.Voter) entities.Voter {
	clone := voter
	clone.History = append([]entities.VoteHistoryEntry(nil), voter.History...)
	return clone
}

func cloneElection(election entities.Election) entities.Election {
	clone := election
	clone.ResultsSnapshot = append([]entities.CandidateTally(nil), election.ResultsSnapshot...)
	if election.StartedBlock != nil {
		value := *election.StartedBlock
		clone.StartedBlock = &value
	}
	if election.EndedBlock != nil {
		value := *election.EndedBlock
		clone.EndedBlock = &value
	}
	if election.StartedAt != nil {
		value := *election.StartedAt
		clone.StartedAt = &value
	}
	if election.EndedAt != nil {
		value := *election.EndedAt
		clone.EndedAt = &value
	}
	if election.PublishedAt != nil {
		value := *election.PublishedAt
		clone.PublishedAt = &value
	}
	return clone
}

var _ ports.VoterRepository = (*Store)(nil)
var _ ports.ElectionRepository = (*Store)(nil)
var _ ports.CandidateRepository = (*Store)(nil)
var _ ports.VoteRecordRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
