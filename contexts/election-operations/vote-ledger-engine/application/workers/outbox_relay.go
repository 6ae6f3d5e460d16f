package workers

import (
	"context"
	"log/slog"
	"time"

	application "evote/contexts/election-operations/vote-ledger-engine/application"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each
// row published only after the publish succeeds. It stops on the first
// failure so the retry loop can reprocess remaining rows safely.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list failed",
			"event", "engine_outbox_list_failed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		event := ports.EventEnvelope{
			EventID:      row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			OccurredAt:   row.CreatedAt,
			Payload:      row.Payload,
		}
		if err := r.Publisher.Publish(ctx, row.EventType, event); err != nil {
			logger.Error("outbox publish failed",
				"event", "engine_outbox_publish_failed",
				"module", "election-operations/vote-ledger-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", row.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("outbox mark published failed",
				"event", "engine_outbox_mark_published_failed",
				"module", "election-operations/vote-ledger-engine",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("outbox relay cycle completed",
		"event", "engine_outbox_relay_completed",
		"module", "election-operations/vote-ledger-engine",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}
