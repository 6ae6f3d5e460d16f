package workers

import (
	"context"
	"errors"
	"log/slog"

	application "evote/contexts/election-operations/vote-ledger-engine/application"
	"evote/contexts/election-operations/vote-ledger-engine/application/commands"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// SystemPrincipal identifies background jobs to the authorizer.
const SystemPrincipal = "system"

// LedgerCatchup keeps published snapshots current with the ledger. Each
// cycle runs an incremental (non-force) publish per published election,
// which is a no-op when the cursor already sits at the chain head.
type LedgerCatchup struct {
	Elections ports.ElectionRepository
	Publisher commands.PublishUseCase
	Logger    *slog.Logger
}

// RunOnce folds new ledger blocks into every published snapshot. A held
// publish lock means an operator publish is in flight; that election is
// skipped and retried next cycle.
func (w LedgerCatchup) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(w.Logger)

	elections, err := w.Elections.ListPublishedElections(ctx)
	if err != nil {
		logger.Error("catchup election list failed",
			"event", "engine_catchup_list_failed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	var firstErr error
	for _, election := range elections {
		if election.IsActive {
			continue
		}
		_, err := w.Publisher.Publish(ctx, SystemPrincipal, election.ElectionID, false)
		if err == nil || errors.Is(err, domainerrors.ErrPublishInProgress) {
			continue
		}
		logger.Error("catchup publish failed",
			"event", "engine_catchup_publish_failed",
			"module", "election-operations/vote-ledger-engine",
			"layer", "worker",
			"election_id", election.ElectionID,
			"error", err.Error(),
		)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
