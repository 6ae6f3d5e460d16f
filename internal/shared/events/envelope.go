package events

// Canonical event types emitted through the outbox. Topic name equals event
// type; consumers partition by the election identifier.
const (
	TypeElectionStarted  = "election.started"
	TypeElectionEnded    = "election.ended"
	TypeVoteConfirmed    = "vote.confirmed"
	TypeResultsPublished = "results.published"
)
