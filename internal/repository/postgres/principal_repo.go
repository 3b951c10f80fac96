package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskward/taskward/internal/domain/principal"
)

var _ principal.Repo = (*PrincipalRepo)(nil)

type PrincipalRepo struct {
	db *DB
}

func NewPrincipalRepo(db *DB) *PrincipalRepo { return &PrincipalRepo{db: db} }

const (
	qPrincipalInsert = `
INSERT INTO users (id, email, password_hash, full_name, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at;`

	qPrincipalByID = `
SELECT id, email, password_hash, full_name, is_active, created_at, updated_at
FROM users
WHERE id = $1;`

	qPrincipalByEmail = `
SELECT id, email, password_hash, full_name, is_active, created_at, updated_at
FROM users
WHERE email = $1;`

	qPrincipalUpdate = `
UPDATE users
SET password_hash = $2,
    full_name     = $3,
    is_active     = $4,
    updated_at    = NOW()
WHERE id = $1
RETURNING updated_at;`
)

func (r *PrincipalRepo) Create(ctx context.Context, p *principal.Principal) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).
		QueryRow(ctx, qPrincipalInsert, p.ID, p.Email, p.PasswordHash, p.FullName, p.Active).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return principal.ErrEmailTaken
		}
		return fmt.Errorf("principal insert: %w", err)
	}
	return nil
}

func (r *PrincipalRepo) GetByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanPrincipal(r.db.execQueryer(ctx).QueryRow(ctx, qPrincipalByID, id))
}

func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*principal.Principal, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanPrincipal(r.db.execQueryer(ctx).QueryRow(ctx, qPrincipalByEmail, email))
}

func (r *PrincipalRepo) Update(ctx context.Context, p *principal.Principal) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).
		QueryRow(ctx, qPrincipalUpdate, p.ID, p.PasswordHash, p.FullName, p.Active).
		Scan(&p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return principal.ErrNotFound
		}
		return fmt.Errorf("principal update: %w", err)
	}
	return nil
}

func scanPrincipal(row pgx.Row) (*principal.Principal, error) {
	var p principal.Principal
	if err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, principal.ErrNotFound
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	return &p, nil
}
