package memory

import (
	"context"

	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// NoopPublisher drops events. The outbox keeps them durable until a real
// broker publisher replaces this in deployment.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ string, _ ports.EventEnvelope) error {
	return nil
}

var _ ports.EventPublisher = NoopPublisher{}
