// Package auth is the boundary to the credential verifier. The booking
// core trusts the Identity produced here and never parses tokens itself.
package auth

import (
	"context"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

// Identity is a verified caller.
type Identity struct {
	UserID string
	Role   domain.Role
}

// Authenticator turns a raw credential into an Identity or fails with
// domain.ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

// Static maps fixed credentials to identities, for tests and local
// development.
type Static struct {
	identities map[string]Identity
}

func NewStatic(identities map[string]Identity) *Static {
	return &Static{identities: identities}
}

func (s *Static) Authenticate(_ context.Context, credential string) (Identity, error) {
	id, ok := s.identities[credential]
	if !ok {
		return Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}
