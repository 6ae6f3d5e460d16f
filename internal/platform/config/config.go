package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	LedgerRPCURL          string
	VotingContractAddress string
	AdminPrivateKey       string
	LedgerChunkSize       uint64

	// ConfirmTimeout bounds how long a cast or lifecycle request waits
	// for ledger confirmation before reporting the outcome uncertain.
	ConfirmTimeout time.Duration

	AdminIDs []string

	EnableLedgerCatchup bool
	EnableOutboxRelay   bool
	CatchupInterval     time.Duration
	RelayInterval       time.Duration
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "evote"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var admins []string
	for _, value := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			admins = append(admins, value)
		}
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		LedgerRPCURL:          os.Getenv("LEDGER_RPC_URL"),
		VotingContractAddress: os.Getenv("VOTING_CONTRACT_ADDRESS"),
		AdminPrivateKey:       os.Getenv("ADMIN_PRIVATE_KEY"),
		LedgerChunkSize:       envUint("LEDGER_CHUNK_SIZE", 2000),

		ConfirmTimeout: envDuration("CONFIRM_TIMEOUT", 90*time.Second),

		AdminIDs: admins,

		EnableLedgerCatchup: envBool("ENABLE_LEDGER_CATCHUP", true),
		EnableOutboxRelay:   envBool("ENABLE_OUTBOX_RELAY", true),
		CatchupInterval:     envDuration("CATCHUP_INTERVAL", time.Minute),
		RelayInterval:       envDuration("RELAY_INTERVAL", 5*time.Second),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envUint(name string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
