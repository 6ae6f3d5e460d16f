package errors

import "errors"

var (
	ErrVoterNotFound     = errors.New("voter not found")
	ErrElectionNotFound  = errors.New("election not found")
	ErrCandidateNotFound = errors.New("candidate not found")

	ErrVoterExists     = errors.New("voter already exists")
	ErrElectionExists  = errors.New("election already exists")
	ErrCandidateExists = errors.New("candidate already exists")

	ErrAlreadyVoted      = errors.New("voter has already voted in this election")
	ErrVoteInProgress    = errors.New("a vote is already in progress for this voter")
	ErrDuplicateVote     = errors.New("vote history entry already exists for this election")
	ErrAlreadyStarted    = errors.New("election was already started")
	ErrAlreadyPublished  = errors.New("results are already published")
	ErrPublishInProgress = errors.New("a publish or recount is already in progress for this election")

	ErrElectionNotActive   = errors.New("election is not active")
	ErrElectionStillActive = errors.New("election is still active")
	ErrResultsPublished    = errors.New("results are published; voting window is closed")
	ErrResultsNotPublished = errors.New("results are not published")
	ErrInvalidCandidate    = errors.New("candidate does not exist for this election")
	ErrCandidatesFrozen    = errors.New("candidates cannot change after the election has started")
	ErrBlockRangeMissing   = errors.New("election block range is not recorded")
	ErrSessionConsumed     = errors.New("session token was already used or is invalid")

	ErrLedgerUnreachable = errors.New("ledger is unreachable")

	// ErrSubmissionFailed is a definite rejection: the ledger reported the
	// transaction as failed and it is safe to retry a cast.
	ErrSubmissionFailed = errors.New("ledger submission failed")

	// ErrSubmissionUncertain means the transaction may or may not have
	// landed. Callers must not retry the submission; only a ledger read
	// (duplicate check or audit recount) can resolve the outcome.
	ErrSubmissionUncertain = errors.New("ledger submission outcome is uncertain")

	ErrUnauthorized = errors.New("operation requires an authorized administrator")

	ErrInvalidInput = errors.New("invalid input")
)
