package entities

import "time"

// Election lifecycle is one way: created -> started -> ended -> published.
// StartedBlock and EndedBlock bound the voting window on the ledger and are
// each set exactly once, by a confirmed lifecycle transaction.
type Election struct {
	ElectionID string
	Title      string

	IsActive     bool
	StartedAt    *time.Time
	EndedAt      *time.Time
	StartedBlock *uint64
	EndedBlock   *uint64

	ResultsPublished bool
	PublishedAt      *time.Time
	ResultsSnapshot  []CandidateTally

	// LastCountedBlock is the high-water mark of ledger blocks already
	// folded into ResultsSnapshot. Monotonically non-decreasing.
	LastCountedBlock uint64

	// PublishInProgress is the durable per-election publish lock. Owned by
	// the results reconciler the same way VoteInProgress is owned by the
	// voter lock.
	PublishInProgress bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Started reports whether the election has ever been started. Elections
// cannot restart, so this stays true after the voting window closes.
func (e Election) Started() bool {
	return e.StartedBlock != nil
}

// HasBlockRange reports whether both window markers are recorded, which an
// audit recount requires.
func (e Election) HasBlockRange() bool {
	return e.StartedBlock != nil && e.EndedBlock != nil
}

type CandidateTally struct {
	CandidateID string
	Name        string
	Party       string
	Votes       uint64
}

type Candidate struct {
	CandidateID string
	ElectionID  string
	Name        string
	Party       string
	CreatedAt   time.Time
}

type TallySource string

const (
	// TallySourceLedger marks a tally rebuilt from the ledger event log.
	TallySourceLedger TallySource = "ledger-verified"
	// TallySourceCached marks a tally served from the stored snapshot.
	TallySourceCached TallySource = "cached"
)

// TallyReport is the output of a results read or an audit recount.
type TallyReport struct {
	ElectionID  string
	Source      TallySource
	Results     []CandidateTally
	FromBlock   uint64
	ToBlock     uint64
	GeneratedAt time.Time
}
