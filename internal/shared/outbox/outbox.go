package outbox

// Outbox row statuses. Rows are written in the same store operation batch as
// the state change they announce; the worker relay publishes pending rows and
// flips them to published.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
)
