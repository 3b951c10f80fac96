package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskward/taskward/internal/domain/session"
)

var _ session.Store = (*SessionRepo)(nil)

// SessionRepo is the Postgres revocation store. Records are only ever
// inserted and flipped to revoked; cleanup of long-expired rows is a
// retention concern, not part of the request flow.
type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

const (
	qSessionInsert = `
INSERT INTO refresh_tokens (id, user_id, token_hash, issued_at, expires_at, revoked)
VALUES ($1, $2, $3, $4, $5, FALSE);`

	qSessionByHash = `
SELECT id, user_id, token_hash, issued_at, expires_at, revoked
FROM refresh_tokens
WHERE token_hash = $1
LIMIT 1;`

	// Conditioned on revoked = FALSE so concurrent rotations race on the row
	// and exactly one caller observes the flip.
	qSessionRevoke = `
UPDATE refresh_tokens SET revoked = TRUE
WHERE id = $1 AND revoked = FALSE;`

	qSessionRevokeAll = `
UPDATE refresh_tokens SET revoked = TRUE
WHERE user_id = $1 AND revoked = FALSE;`
)

func (r *SessionRepo) Create(ctx context.Context, rec *session.Record) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.execQueryer(ctx).
		Exec(ctx, qSessionInsert, rec.ID, rec.PrincipalID, rec.TokenHash, rec.IssuedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("session insert: %w", err)
	}
	return nil
}

func (r *SessionRepo) FindByHash(ctx context.Context, tokenHash string) (*session.Record, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rec session.Record
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qSessionByHash, tokenHash).
		Scan(&rec.ID, &rec.PrincipalID, &rec.TokenHash, &rec.IssuedAt, &rec.ExpiresAt, &rec.Revoked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("session by hash: %w", err)
	}
	return &rec, nil
}

func (r *SessionRepo) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qSessionRevoke, id)
	if err != nil {
		return false, fmt.Errorf("session revoke: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SessionRepo) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qSessionRevokeAll, principalID); err != nil {
		return fmt.Errorf("session revoke all: %w", err)
	}
	return nil
}
