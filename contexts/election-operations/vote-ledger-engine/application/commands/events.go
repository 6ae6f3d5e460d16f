package commands

import (
	"encoding/json"
	"time"

	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// newEngineEnvelope builds the outbox envelope shared by all engine events.
func newEngineEnvelope(
	eventID string,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:      eventID,
		EventType:    eventType,
		PartitionKey: partitionKey,
		OccurredAt:   occurredAt.UTC(),
		Payload:      payload,
	}, nil
}
