package session

import (
	"time"

	"github.com/google/uuid"
)

// Record is the persisted state of one refresh credential. Only a SHA-256
// hash of the raw token is ever stored; the raw value cannot be recovered
// from a Record. Revoked is monotonic: once true it never goes back.
type Record struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	TokenHash   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Revoked     bool
}

func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Live reports whether the record still accepts refresh calls.
func (r *Record) Live(now time.Time) bool {
	return !r.Revoked && !r.Expired(now)
}
