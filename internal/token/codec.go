package token

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind tags a token as short-lived access or long-lived refresh. A refresh
// token is never accepted where an access token is expected and vice versa.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
	ErrWrongType    = errors.New("token type mismatch")
)

type claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Codec mints and verifies HMAC-signed bearer tokens. Verification is a pure
// function of the token and the signing key: no store lookups, safe on every
// request. Rotating the key invalidates everything outstanding.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte) *Codec {
	return &Codec{
		secret: secret,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the codec using the given time source.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) Issue(subject uuid.UUID, kind Kind, ttl time.Duration) (string, error) {
	now := c.now()
	cl := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps tokens unique even when two are minted for the same
			// subject within one second; persisted hashes must never collide.
			ID:        uuid.NewString(),
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
}

// Verify checks structure, signature, expiry and type tag, in that order of
// severity, and returns the subject on success.
func (c *Codec) Verify(raw string, want Kind) (uuid.UUID, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return uuid.Nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return uuid.Nil, ErrBadSignature
	default:
		return uuid.Nil, ErrMalformed
	}
	if cl.Kind != want {
		return uuid.Nil, ErrWrongType
	}
	subject, err := uuid.Parse(cl.Subject)
	if err != nil {
		return uuid.Nil, ErrMalformed
	}
	return subject, nil
}

// Hash is the one-way digest under which refresh tokens are persisted. The
// raw token never touches storage.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
