package audit

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRegister        Kind = "REGISTER"
	KindLogin           Kind = "LOGIN"
	KindTokenRefresh    Kind = "TOKEN_REFRESH"
	KindPasswordChanged Kind = "PASSWORD_CHANGED"
	KindLogout          Kind = "LOGOUT"
	KindSessionsRevoked Kind = "SESSIONS_REVOKED"
	KindAccountDisabled Kind = "ACCOUNT_DISABLED"
)

// Event is one audit record handed to the external sink. PrincipalID is nil
// for events that cannot be tied to an account.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	PrincipalID *uuid.UUID     `json:"principal_id,omitempty"`
	Kind        Kind           `json:"event_kind"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewEvent(principalID *uuid.UUID, kind Kind, details map[string]any) *Event {
	return &Event{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Kind:        kind,
		Details:     details,
		CreatedAt:   time.Now().UTC(),
	}
}
