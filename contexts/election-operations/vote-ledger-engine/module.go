package voteledgerengine

import (
	"log/slog"
	"time"

	httpadapter "evote/contexts/election-operations/vote-ledger-engine/adapters/http"
	"evote/contexts/election-operations/vote-ledger-engine/adapters/memory"
	"evote/contexts/election-operations/vote-ledger-engine/application/commands"
	"evote/contexts/election-operations/vote-ledger-engine/application/queries"
	"evote/contexts/election-operations/vote-ledger-engine/application/workers"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Catchup workers.LedgerCatchup
	Relay   workers.OutboxRelay

	Store  *memory.Store
	Ledger *memory.Ledger
}

type Dependencies struct {
	Voters     ports.VoterRepository
	Elections  ports.ElectionRepository
	Candidates ports.CandidateRepository
	Records    ports.VoteRecordRepository
	Ledger     ports.LedgerGateway
	Outbox     ports.OutboxWriter
	OutboxRepo ports.OutboxRepository
	Publisher  ports.EventPublisher
	Authz      ports.Authorizer
	Clock      ports.Clock
	IDGen      ports.IDGenerator

	// ConfirmTimeout bounds how long a cast or lifecycle call waits for
	// ledger confirmation before reporting the outcome uncertain.
	ConfirmTimeout time.Duration

	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	voterUseCase := commands.VoterUseCase{
		Voters: deps.Voters,
		Authz:  deps.Authz,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	lifecycleUseCase := commands.LifecycleUseCase{
		Elections:      deps.Elections,
		Candidates:     deps.Candidates,
		Voters:         deps.Voters,
		Ledger:         deps.Ledger,
		Outbox:         deps.Outbox,
		Authz:          deps.Authz,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		ConfirmTimeout: deps.ConfirmTimeout,
		Logger:         deps.Logger,
	}
	castUseCase := commands.CastUseCase{
		Voters:         deps.Voters,
		Elections:      deps.Elections,
		Candidates:     deps.Candidates,
		Records:        deps.Records,
		Ledger:         deps.Ledger,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		ConfirmTimeout: deps.ConfirmTimeout,
		Logger:         deps.Logger,
	}
	publishUseCase := commands.PublishUseCase{
		Elections:  deps.Elections,
		Candidates: deps.Candidates,
		Ledger:     deps.Ledger,
		Outbox:     deps.Outbox,
		Authz:      deps.Authz,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Elections:  deps.Elections,
		Candidates: deps.Candidates,
		Ledger:     deps.Ledger,
		Authz:      deps.Authz,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Voters:    voterUseCase,
			Lifecycle: lifecycleUseCase,
			Cast:      castUseCase,
			Publish:   publishUseCase,
			Results:   resultsUseCase,
			Logger:    deps.Logger,
		},
		Catchup: workers.LedgerCatchup{
			Elections: deps.Elections,
			Publisher: publishUseCase,
			Logger:    deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.OutboxRepo,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against the in-memory store and ledger,
// for local development and tests.
func NewInMemoryModule(admins []string, logger *slog.Logger) Module {
	store := memory.NewStore()
	ledger := memory.NewLedger()
	module := NewModule(Dependencies{
		Voters:         store,
		Elections:      store,
		Candidates:     store,
		Records:        store,
		Ledger:         ledger,
		Outbox:         store,
		OutboxRepo:     store,
		Publisher:      memory.NoopPublisher{},
		Authz:          memory.NewStaticAuthorizer(admins),
		Clock:          store,
		IDGen:          store,
		ConfirmTimeout: 90 * time.Second,
		Logger:         logger,
	})
	module.Store = store
	module.Ledger = ledger
	return module
}
