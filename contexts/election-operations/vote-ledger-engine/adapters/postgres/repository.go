package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModelFromEntity(voter)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrVoterExists
		}
		return r.logError("ledger_repo_create_voter_failed", create.Error,
			"voter_id", strings.TrimSpace(voter.VoterID),
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrVoterExists
	}
	return nil
}

func (r *Repository) GetVoter(ctx context.Context, voterID string) (entities.Voter, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, domainerrors.ErrVoterNotFound
		}
		return entities.Voter{}, r.logError("ledger_repo_get_voter_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	history, err := r.loadHistory(ctx, row.VoterID)
	if err != nil {
		return entities.Voter{}, err
	}
	return row.toEntity(history), nil
}

func (r *Repository) GetVoterByToken(ctx context.Context, token string) (entities.Voter, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("session_token = ?", strings.TrimSpace(token)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, domainerrors.ErrVoterNotFound
		}
		return entities.Voter{}, r.logError("ledger_repo_get_voter_by_token_failed", err)
	}
	history, err := r.loadHistory(ctx, row.VoterID)
	if err != nil {
		return entities.Voter{}, err
	}
	return row.toEntity(history), nil
}

// TryAcquireVoteLock is the durable compare-and-swap behind single-flight
// casting. The WHERE clause makes the flip atomic: of two concurrent
// requests, exactly one update matches a row.
func (r *Repository) TryAcquireVoteLock(ctx context.Context, voterID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Where("vote_in_progress = ?", false).
		Updates(map[string]any{
			"vote_in_progress": true,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, r.logError("ledger_repo_acquire_vote_lock_failed", result.Error,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Count(&count).Error; err != nil {
		return false, r.logError("ledger_repo_acquire_vote_lock_lookup_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	if count == 0 {
		return false, domainerrors.ErrVoterNotFound
	}
	return false, nil
}

func (r *Repository) ReleaseVoteLock(ctx context.Context, voterID string) error {
	result := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Updates(map[string]any{
			"vote_in_progress": false,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_release_vote_lock_failed", result.Error,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return nil
}

func (r *Repository) HasVotedIn(ctx context.Context, voterID string, electionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&voteHistoryModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("ledger_repo_has_voted_in_failed", err,
			"voter_id", strings.TrimSpace(voterID),
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return count > 0, nil
}

func (r *Repository) AppendVoteHistory(
	ctx context.Context,
	voterID string,
	electionID string,
	votedAt time.Time,
) error {
	row := voteHistoryModel{
		VoterID:    strings.TrimSpace(voterID),
		ElectionID: strings.TrimSpace(electionID),
		VotedAt:    votedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}, {Name: "election_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrDuplicateVote
		}
		return r.logError("ledger_repo_append_vote_history_failed", create.Error,
			"voter_id", row.VoterID,
			"election_id", row.ElectionID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrDuplicateVote
	}
	return nil
}

func (r *Repository) SetSessionToken(ctx context.Context, voterID string, token string) error {
	result := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Updates(map[string]any{
			"session_token":       strings.TrimSpace(token),
			"session_used":        false,
			"session_election_id": "",
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_set_session_token_failed", result.Error,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoterNotFound
	}
	return nil
}

func (r *Repository) MarkSessionConsumed(ctx context.Context, voterID string, electionID string) error {
	result := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Updates(map[string]any{
			"session_used":        true,
			"session_election_id": strings.TrimSpace(electionID),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_mark_session_consumed_failed", result.Error,
			"voter_id", strings.TrimSpace(voterID),
			"election_id", strings.TrimSpace(electionID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoterNotFound
	}
	return nil
}

func (r *Repository) ResetSessionsForElection(ctx context.Context, electionID string) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Where("session_used = ?", true).
		Where("session_election_id = ?", strings.TrimSpace(electionID)).
		Updates(map[string]any{
			"session_used":        false,
			"session_election_id": "",
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, r.logError("ledger_repo_reset_sessions_failed", result.Error,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) CreateElection(ctx context.Context, election entities.Election) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return r.logError("ledger_repo_create_election_marshal_failed", err,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrElectionExists
		}
		return r.logError("ledger_repo_create_election_failed", create.Error,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrElectionExists
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("ledger_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity()
}

// UpdateElection persists the full election record except the publish lock
// column, which is owned exclusively by the lock operations below. A stale
// in-memory copy must never clear a lock another request holds.
func (r *Repository) UpdateElection(ctx context.Context, election entities.Election) error {
	row, err := electionModelFromEntity(election)
	if err != nil {
		return r.logError("ledger_repo_update_election_marshal_failed", err,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	result := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("election_id = ?", row.ElectionID).
		Updates(map[string]any{
			"title":              row.Title,
			"is_active":          row.IsActive,
			"started_at":         row.StartedAt,
			"ended_at":           row.EndedAt,
			"started_block":      row.StartedBlock,
			"ended_block":        row.EndedBlock,
			"results_published":  row.ResultsPublished,
			"published_at":       row.PublishedAt,
			"results_snapshot":   row.ResultsSnapshot,
			"last_counted_block": row.LastCountedBlock,
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_update_election_failed", result.Error,
			"election_id", row.ElectionID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrElectionNotFound
	}
	return nil
}

func (r *Repository) ListPublishedElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Where("results_published = ?", true).
		Order("ended_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_published_elections_failed", err)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) TryAcquirePublishLock(ctx context.Context, electionID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("publish_in_progress = ?", false).
		Updates(map[string]any{
			"publish_in_progress": true,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return false, r.logError("ledger_repo_acquire_publish_lock_failed", result.Error,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Count(&count).Error; err != nil {
		return false, r.logError("ledger_repo_acquire_publish_lock_lookup_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	if count == 0 {
		return false, domainerrors.ErrElectionNotFound
	}
	return false, nil
}

func (r *Repository) ReleasePublishLock(ctx context.Context, electionID string) error {
	result := r.db.WithContext(ctx).
		Model(&electionModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Updates(map[string]any{
			"publish_in_progress": false,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_release_publish_lock_failed", result.Error,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return nil
}

func (r *Repository) CreateCandidate(ctx context.Context, candidate entities.Candidate) error {
	row := candidateModel{
		ElectionID:  strings.TrimSpace(candidate.ElectionID),
		CandidateID: strings.TrimSpace(candidate.CandidateID),
		Name:        strings.TrimSpace(candidate.Name),
		Party:       strings.TrimSpace(candidate.Party),
		CreatedAt:   candidate.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}, {Name: "candidate_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrCandidateExists
		}
		return r.logError("ledger_repo_create_candidate_failed", create.Error,
			"election_id", row.ElectionID,
			"candidate_id", row.CandidateID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrCandidateExists
	}
	return nil
}

func (r *Repository) GetCandidate(
	ctx context.Context,
	electionID string,
	candidateID string,
) (entities.Candidate, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Where("candidate_id = ?", strings.TrimSpace(candidateID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, domainerrors.ErrCandidateNotFound
		}
		return entities.Candidate{}, r.logError("ledger_repo_get_candidate_failed", err,
			"election_id", strings.TrimSpace(electionID),
			"candidate_id", strings.TrimSpace(candidateID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error) {
	var rows []candidateModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_candidates_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// AppendVoteRecord keys on the ledger transaction reference, so replaying a
// confirmation is a no-op rather than a duplicate row.
func (r *Repository) AppendVoteRecord(ctx context.Context, record entities.VoteRecord) error {
	row := voteRecordModel{
		TxReference: strings.TrimSpace(record.TxReference),
		VoterHash:   strings.TrimSpace(record.VoterHash),
		ElectionID:  strings.TrimSpace(record.ElectionID),
		CandidateID: strings.TrimSpace(record.CandidateID),
		BlockNumber: record.BlockNumber,
		RecordedAt:  record.RecordedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_reference"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_append_vote_record_failed", create.Error,
			"tx_reference", row.TxReference,
			"election_id", row.ElectionID,
		)
	}
	return nil
}

func (r *Repository) ListVoteRecords(ctx context.Context, electionID string) ([]entities.VoteRecord, error) {
	var rows []voteRecordModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("block_number ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_vote_records_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.VoteRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.VoteRecord{
			VoterHash:   row.VoterHash,
			ElectionID:  row.ElectionID,
			CandidateID: row.CandidateID,
			TxReference: row.TxReference,
			BlockNumber: row.BlockNumber,
			RecordedAt:  row.RecordedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ledger_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ledger_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidInput
	}
	return nil
}

func (r *Repository) loadHistory(ctx context.Context, voterID string) ([]entities.VoteHistoryEntry, error) {
	var rows []voteHistoryModel
	if err := r.db.WithContext(ctx).
		Where("voter_id = ?", voterID).
		Order("voted_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_load_vote_history_failed", err, "voter_id", voterID)
	}
	history := make([]entities.VoteHistoryEntry, 0, len(rows))
	for _, row := range rows {
		history = append(history, entities.VoteHistoryEntry{
			ElectionID: row.ElectionID,
			VotedAt:    row.VotedAt.UTC(),
		})
	}
	return history, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "election-operations/vote-ledger-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("vote ledger repository operation failed", fields...)
	return err
}

type voterModel struct {
	VoterID           string    `gorm:"column:voter_id;primaryKey"`
	Name              string    `gorm:"column:name"`
	Email             string    `gorm:"column:email"`
	Department        string    `gorm:"column:department"`
	SessionToken      string    `gorm:"column:session_token"`
	SessionUsed       bool      `gorm:"column:session_used"`
	SessionElectionID string    `gorm:"column:session_election_id"`
	VoteInProgress    bool      `gorm:"column:vote_in_progress"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (voterModel) TableName() string {
	return "voters"
}

func voterModelFromEntity(voter entities.Voter) voterModel {
	row := voterModel{
		VoterID:           strings.TrimSpace(voter.VoterID),
		Name:              strings.TrimSpace(voter.Name),
		Email:             strings.TrimSpace(voter.Email),
		Department:        strings.TrimSpace(voter.Department),
		SessionToken:      strings.TrimSpace(voter.SessionToken),
		SessionUsed:       voter.SessionUsed,
		SessionElectionID: strings.TrimSpace(voter.SessionElectionID),
		VoteInProgress:    voter.VoteInProgress,
		CreatedAt:         voter.CreatedAt.UTC(),
		UpdatedAt:         voter.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m voterModel) toEntity(history []entities.VoteHistoryEntry) entities.Voter {
	return entities.Voter{
		VoterID:           m.VoterID,
		Name:              m.Name,
		Email:             m.Email,
		Department:        m.Department,
		SessionToken:      m.SessionToken,
		SessionUsed:       m.SessionUsed,
		SessionElectionID: m.SessionElectionID,
		VoteInProgress:    m.VoteInProgress,
		History:           history,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

type voteHistoryModel struct {
	VoterID    string    `gorm:"column:voter_id;primaryKey"`
	ElectionID string    `gorm:"column:election_id;primaryKey"`
	VotedAt    time.Time `gorm:"column:voted_at"`
}

func (voteHistoryModel) TableName() string {
	return "vote_history"
}

type electionModel struct {
	ElectionID        string     `gorm:"column:election_id;primaryKey"`
	Title             string     `gorm:"column:title"`
	IsActive          bool       `gorm:"column:is_active"`
	StartedAt         *time.Time `gorm:"column:started_at"`
	EndedAt           *time.Time `gorm:"column:ended_at"`
	StartedBlock      *uint64    `gorm:"column:started_block"`
	EndedBlock        *uint64    `gorm:"column:ended_block"`
	ResultsPublished  bool       `gorm:"column:results_published"`
	PublishedAt       *time.Time `gorm:"column:published_at"`
	ResultsSnapshot   []byte     `gorm:"column:results_snapshot"`
	LastCountedBlock  uint64     `gorm:"column:last_counted_block"`
	PublishInProgress bool       `gorm:"column:publish_in_progress"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) (electionModel, error) {
	var snapshot []byte
	if len(election.ResultsSnapshot) > 0 {
		payload, err := json.Marshal(election.ResultsSnapshot)
		if err != nil {
			return electionModel{}, err
		}
		snapshot = payload
	}
	row := electionModel{
		ElectionID:        strings.TrimSpace(election.ElectionID),
		Title:             strings.TrimSpace(election.Title),
		IsActive:          election.IsActive,
		StartedAt:         normalizeOptionalTime(election.StartedAt),
		EndedAt:           normalizeOptionalTime(election.EndedAt),
		StartedBlock:      election.StartedBlock,
		EndedBlock:        election.EndedBlock,
		ResultsPublished:  election.ResultsPublished,
		PublishedAt:       normalizeOptionalTime(election.PublishedAt),
		ResultsSnapshot:   snapshot,
		LastCountedBlock:  election.LastCountedBlock,
		PublishInProgress: election.PublishInProgress,
		CreatedAt:         election.CreatedAt.UTC(),
		UpdatedAt:         election.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m electionModel) toEntity() (entities.Election, error) {
	var snapshot []entities.CandidateTally
	if len(m.ResultsSnapshot) > 0 {
		if err := json.Unmarshal(m.ResultsSnapshot, &snapshot); err != nil {
			return entities.Election{}, err
		}
	}
	return entities.Election{
		ElectionID:        m.ElectionID,
		Title:             m.Title,
		IsActive:          m.IsActive,
		StartedAt:         normalizeOptionalTime(m.StartedAt),
		EndedAt:           normalizeOptionalTime(m.EndedAt),
		StartedBlock:      m.StartedBlock,
		EndedBlock:        m.EndedBlock,
		ResultsPublished:  m.ResultsPublished,
		PublishedAt:       normalizeOptionalTime(m.PublishedAt),
		ResultsSnapshot:   snapshot,
		LastCountedBlock:  m.LastCountedBlock,
		PublishInProgress: m.PublishInProgress,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}, nil
}

type candidateModel struct {
	ElectionID  string    `gorm:"column:election_id;primaryKey"`
	CandidateID string    `gorm:"column:candidate_id;primaryKey"`
	Name        string    `gorm:"column:name"`
	Party       string    `gorm:"column:party"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		CandidateID: m.CandidateID,
		ElectionID:  m.ElectionID,
		Name:        m.Name,
		Party:       m.Party,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type voteRecordModel struct {
	TxReference string    `gorm:"column:tx_reference;primaryKey"`
	VoterHash   string    `gorm:"column:voter_hash"`
	ElectionID  string    `gorm:"column:election_id"`
	CandidateID string    `gorm:"column:candidate_id"`
	BlockNumber uint64    `gorm:"column:block_number"`
	RecordedAt  time.Time `gorm:"column:recorded_at"`
}

func (voteRecordModel) TableName() string {
	return "vote_records"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "vote_ledger_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.VoterRepository = (*Repository)(nil)
var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.CandidateRepository = (*Repository)(nil)
var _ ports.VoteRecordRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
