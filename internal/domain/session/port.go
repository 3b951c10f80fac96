package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Store persists refresh-session records keyed by token hash. Lookup by hash
// must be a point lookup; it runs on every refresh call.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	FindByHash(ctx context.Context, tokenHash string) (*Record, error)

	// Revoke flips the record to revoked and reports whether this call did
	// the flip. Revoking an already-revoked record is a no-op returning
	// false, not an error: the losing side of a concurrent rotation must be
	// able to tell it lost.
	Revoke(ctx context.Context, id uuid.UUID) (bool, error)

	RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID) error
}
