package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	voteledgerengine "evote/contexts/election-operations/vote-ledger-engine"
	ethereumadapter "evote/contexts/election-operations/vote-ledger-engine/adapters/ethereum"
	"evote/contexts/election-operations/vote-ledger-engine/adapters/memory"
	postgresadapter "evote/contexts/election-operations/vote-ledger-engine/adapters/postgres"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
	"evote/internal/platform/config"
	"evote/internal/platform/db"
	"evote/internal/platform/httpserver"
	"evote/internal/platform/messaging"
	"evote/internal/shared/events"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres
	engine   voteledgerengine.Module
	bus      *messaging.Kafka
	cfg      config.Config
	logger   *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	engine, pg, err := buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(engine, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	engine, pg, err := buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewKafka(nil, logger)
	if err != nil {
		return nil, err
	}
	engine.Relay.Publisher = bus

	return &WorkerApp{
		postgres: pg,
		engine:   engine,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// buildEngine wires repositories and the ledger gateway. Without a postgres
// DSN the in-memory store serves local development; without a ledger RPC URL
// the in-memory ledger stands in.
func buildEngine(cfg config.Config, logger *slog.Logger) (voteledgerengine.Module, *db.Postgres, error) {
	var pg *db.Postgres
	var (
		voters     ports.VoterRepository
		elections  ports.ElectionRepository
		candidates ports.CandidateRepository
		records    ports.VoteRecordRepository
		outboxW    ports.OutboxWriter
		outboxR    ports.OutboxRepository
		clock      ports.Clock
		idGen      ports.IDGenerator
	)

	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		conn, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return voteledgerengine.Module{}, nil, err
		}
		pg = conn
		repo := postgresadapter.NewRepository(conn.DB, logger)
		voters, elections, candidates, records = repo, repo, repo, repo
		outboxW, outboxR = repo, repo
		clock = postgresadapter.SystemClock{}
		idGen = postgresadapter.UUIDGenerator{}
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory store",
			"event", "bootstrap_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		store := memory.NewStore()
		voters, elections, candidates, records = store, store, store, store
		outboxW, outboxR = store, store
		clock = store
		idGen = store
	}

	var ledger ports.LedgerGateway
	if strings.TrimSpace(cfg.LedgerRPCURL) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		gateway, err := ethereumadapter.New(ctx, ethereumadapter.Config{
			RPCURL:          cfg.LedgerRPCURL,
			ContractAddress: cfg.VotingContractAddress,
			AdminPrivateKey: cfg.AdminPrivateKey,
			ChunkSize:       cfg.LedgerChunkSize,
		}, logger)
		if err != nil {
			if pg != nil {
				_ = pg.Close()
			}
			return voteledgerengine.Module{}, nil, err
		}
		ledger = gateway
	} else {
		logger.Warn("LEDGER_RPC_URL not set, using in-memory ledger",
			"event", "bootstrap_memory_ledger",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		ledger = memory.NewLedger()
	}

	engine := voteledgerengine.NewModule(voteledgerengine.Dependencies{
		Voters:         voters,
		Elections:      elections,
		Candidates:     candidates,
		Records:        records,
		Ledger:         ledger,
		Outbox:         outboxW,
		OutboxRepo:     outboxR,
		Publisher:      memory.NoopPublisher{},
		Authz:          memory.NewStaticAuthorizer(cfg.AdminIDs),
		Clock:          clock,
		IDGen:          idGen,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})
	return engine, pg, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.bus.Subscribe(ctx, events.TypeResultsPublished, "evote-results-audit-cg",
		func(_ context.Context, event ports.EventEnvelope) error {
			w.logger.Info("results published event observed",
				"event", "results_published_observed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"event_id", event.EventID,
				"partition_key", event.PartitionKey,
			)
			return nil
		},
	); err != nil {
		return err
	}

	catchupTicker := time.NewTicker(w.cfg.CatchupInterval)
	defer catchupTicker.Stop()
	relayTicker := time.NewTicker(w.cfg.RelayInterval)
	defer relayTicker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"catchup_interval", w.cfg.CatchupInterval.String(),
		"relay_interval", w.cfg.RelayInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-relayTicker.C:
			if !w.cfg.EnableOutboxRelay {
				continue
			}
			if err := w.engine.Relay.RunOnce(ctx); err != nil {
				return err
			}
		case <-catchupTicker.C:
			if !w.cfg.EnableLedgerCatchup {
				continue
			}
			if err := w.engine.Catchup.RunOnce(ctx); err != nil {
				w.logger.Error("ledger catchup cycle failed",
					"event", "bootstrap_catchup_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
