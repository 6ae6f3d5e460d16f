package entities

import "time"

// Voter is the mutable local registration record. The ledger only ever sees
// the keccak fingerprint of VoterID, never the record itself.
type Voter struct {
	VoterID    string
	Name       string
	Email      string
	Department string

	// SessionToken is the opaque voting-day token issued to the voter.
	// SessionUsed flips once, when the token is consumed by a confirmed
	// cast; SessionElectionID records which election consumed it so an
	// election-end reset touches only its own sessions.
	SessionToken      string
	SessionUsed       bool
	SessionElectionID string

	// VoteInProgress is the durable per-voter cast lock, set and cleared
	// only through the repository compare-and-swap operations.
	VoteInProgress bool

	History []VoteHistoryEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoteHistoryEntry is append-only; a voter has at most one entry per
// election.
type VoteHistoryEntry struct {
	ElectionID string
	VotedAt    time.Time
}

// HasVotedIn reports whether the local history already holds an entry for
// the election.
func (v Voter) HasVotedIn(electionID string) bool {
	for _, entry := range v.History {
		if entry.ElectionID == electionID {
			return true
		}
	}
	return false
}

// VoteRecord is the local audit mirror of a confirmed ledger vote. It is
// written only after confirmation and is never the tallying source of truth.
type VoteRecord struct {
	VoterHash   string
	ElectionID  string
	CandidateID string
	TxReference string
	BlockNumber uint64
	RecordedAt  time.Time
}
