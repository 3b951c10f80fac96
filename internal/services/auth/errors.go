package auth

import "errors"

// Domain error kinds. Login failures are deliberately indistinguishable:
// unknown email, wrong password and disabled account all surface as
// ErrInvalidCredentials. Token-verification failures keep distinct kinds
// internally and collapse to one 401 at the boundary.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email format")

	ErrInvalidToken   = errors.New("invalid refresh token")
	ErrSessionRevoked = errors.New("refresh token revoked")
	ErrSessionExpired = errors.New("refresh token expired")

	// ErrTransient marks store or signing infrastructure failure. Safe to
	// retry; never grounds for letting a request through.
	ErrTransient = errors.New("auth backend unavailable")
)
