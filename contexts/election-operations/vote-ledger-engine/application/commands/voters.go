package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "evote/contexts/election-operations/vote-ledger-engine/application"
	"evote/contexts/election-operations/vote-ledger-engine/domain/entities"
	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// RegisterVoterCommand is the input for voter registration.
type RegisterVoterCommand struct {
	VoterID    string
	Name       string
	Email      string
	Department string
}

// VoterUseCase covers voter registration and voting-day session tokens.
// Tokens are opaque one-shot credentials: issuing is idempotent, resolving
// a consumed token is rejected, and consumption itself happens only inside
// a confirmed cast.
type VoterUseCase struct {
	Voters ports.VoterRepository
	Authz  ports.Authorizer
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// RegisterVoter creates a voter record.
func (uc VoterUseCase) RegisterVoter(
	ctx context.Context,
	principal string,
	cmd RegisterVoterCommand,
) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	name := strings.TrimSpace(cmd.Name)
	if voterID == "" || name == "" {
		return entities.Voter{}, domainerrors.ErrInvalidInput
	}
	if uc.Authz == nil {
		return entities.Voter{}, domainerrors.ErrUnauthorized
	}
	if err := uc.Authz.Authorize(ctx, strings.TrimSpace(principal), "voter.create"); err != nil {
		return entities.Voter{}, err
	}

	now := uc.now()
	voter := entities.Voter{
		VoterID:    voterID,
		Name:       name,
		Email:      strings.TrimSpace(cmd.Email),
		Department: strings.TrimSpace(cmd.Department),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.Voters.CreateVoter(ctx, voter); err != nil {
		return entities.Voter{}, err
	}
	logger.Info("voter registered",
		"event", "voter_registered",
		"module", "election-operations/vote-ledger-engine",
		"layer", "application",
		"voter_id", voterID,
	)
	return voter, nil
}

// IssueSessionToken returns the voter's session token, generating one on
// first call. Re-issuing returns the same token; a voter keeps one
// credential per election cycle.
func (uc VoterUseCase) IssueSessionToken(ctx context.Context, voterID string) (string, error) {
	voter, err := uc.Voters.GetVoter(ctx, strings.TrimSpace(voterID))
	if err != nil {
		return "", err
	}
	if voter.SessionToken != "" {
		return voter.SessionToken, nil
	}
	token, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return "", err
	}
	if err := uc.Voters.SetSessionToken(ctx, voter.VoterID, token); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveSession maps a session token back to its voter. A consumed token
// is rejected; consumption is owned by the cast path after confirmation.
func (uc VoterUseCase) ResolveSession(ctx context.Context, token string) (entities.Voter, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return entities.Voter{}, domainerrors.ErrInvalidInput
	}
	voter, err := uc.Voters.GetVoterByToken(ctx, token)
	if err != nil {
		return entities.Voter{}, err
	}
	if voter.SessionUsed {
		return entities.Voter{}, domainerrors.ErrSessionConsumed
	}
	return voter, nil
}

func (uc VoterUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
