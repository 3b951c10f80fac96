package principal

import (
	"time"

	"github.com/google/uuid"
)

// Principal is an account that can authenticate. Password material is stored
// only as a bcrypt digest; the Active flag disables authentication without
// deleting history.
type Principal struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
