package memory

import (
	"context"
	"strings"

	domainerrors "evote/contexts/election-operations/vote-ledger-engine/domain/errors"
	"evote/contexts/election-operations/vote-ledger-engine/ports"
)

// StaticAuthorizer is a fixed allow-list stand-in for the identity layer.
// The real authorization decision lives outside this engine; the contract
// here is only that unauthorized calls fail before any state is touched.
type StaticAuthorizer struct {
	Admins map[string]bool
}

func NewStaticAuthorizer(admins []string) StaticAuthorizer {
	allowed := make(map[string]bool, len(admins))
	for _, admin := range admins {
		admin = strings.TrimSpace(admin)
		if admin != "" {
			allowed[admin] = true
		}
	}
	return StaticAuthorizer{Admins: allowed}
}

func (a StaticAuthorizer) Authorize(_ context.Context, principal string, _ string) error {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return domainerrors.ErrUnauthorized
	}
	if principal == "system" || a.Admins[principal] {
		return nil
	}
	return domainerrors.ErrUnauthorized
}

var _ ports.Authorizer = StaticAuthorizer{}
