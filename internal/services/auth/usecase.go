package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/domain/audit"
	"github.com/taskward/taskward/internal/domain/principal"
	"github.com/taskward/taskward/internal/domain/session"
	"github.com/taskward/taskward/internal/obs"
	"github.com/taskward/taskward/internal/password"
	pg "github.com/taskward/taskward/internal/repository/postgres"
	"github.com/taskward/taskward/internal/token"
)

const minPasswordLen = 8

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// TokenPair is the caller-visible result of Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// Usecase orchestrates the credential lifecycle: registration, login,
// rotate-on-use refresh, password change and logout. All cross-request
// coordination happens through the session store's atomicity; the usecase
// itself holds no mutable state.
type Usecase struct {
	log        *zap.Logger
	principals principal.Repo
	sessions   session.Store
	tx         pg.Transactor
	codec      *token.Codec
	hasher     *password.Hasher
	sink       audit.Sink
	metrics    *obs.AuthMetrics
	cfg        Config

	// digest of an unused password, compared against on unknown-email logins
	// so both failure paths pay one bcrypt verification.
	decoyDigest string
}

func NewUsecase(
	log *zap.Logger,
	principals principal.Repo,
	sessions session.Store,
	tx pg.Transactor,
	codec *token.Codec,
	hasher *password.Hasher,
	sink audit.Sink,
	metrics *obs.AuthMetrics,
	cfg Config,
) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	decoy, _ := hasher.Hash(uuid.NewString())
	return &Usecase{
		log:         log,
		principals:  principals,
		sessions:    sessions,
		tx:          tx,
		codec:       codec,
		hasher:      hasher,
		sink:        sink,
		metrics:     metrics,
		cfg:         cfg,
		decoyDigest: decoy,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates a principal. It does not log the new principal in.
func (u *Usecase) Register(ctx context.Context, email, pass, fullName string) (*principal.Principal, error) {
	email = normalizeEmail(email)
	if !emailRx.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(pass) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	digest, err := u.hasher.Hash(pass)
	if err != nil {
		return nil, u.transient("hash password", err)
	}

	now := u.cfg.Now()
	p := &principal.Principal{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: digest,
		FullName:     strings.TrimSpace(fullName),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.principals.Create(ctx, p); err != nil {
		if errors.Is(err, principal.ErrEmailTaken) {
			u.metrics.Track("register", "conflict")
			return nil, ErrEmailExists
		}
		return nil, u.transient("create principal", err)
	}

	u.metrics.Track("register", "success")
	u.emitAudit(ctx, &p.ID, audit.KindRegister, map[string]any{"email": email})
	return p, nil
}

// Login verifies credentials and mints a token pair. Unknown email, wrong
// password and disabled account return the identical error, and the unknown
// path burns a bcrypt comparison so response times match.
func (u *Usecase) Login(ctx context.Context, email, pass string) (*TokenPair, *principal.Principal, error) {
	email = normalizeEmail(email)

	p, err := u.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			u.hasher.Verify(pass, u.decoyDigest)
			u.metrics.Track("login", "failure")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, u.transient("load principal", err)
	}

	if !u.hasher.Verify(pass, p.PasswordHash) || !p.Active {
		u.metrics.Track("login", "failure")
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := u.issueSession(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}

	u.metrics.Track("login", "success")
	u.emitAudit(ctx, &p.ID, audit.KindLogin, nil)
	return pair, p, nil
}

// Refresh rotates a refresh credential: the presented token's session is
// revoked and a fresh pair is issued, both inside one transaction. A token
// already rotated away is rejected, and because reuse of a dead token is the
// theft signal, every session of that principal is revoked on the spot.
func (u *Usecase) Refresh(ctx context.Context, raw string) (*TokenPair, uuid.UUID, error) {
	subject, err := u.codec.Verify(raw, token.Refresh)
	if err != nil {
		u.log.Debug("refresh token rejected by codec", zap.Error(err))
		u.metrics.Track("refresh", "failure")
		return nil, uuid.Nil, ErrInvalidToken
	}

	rec, err := u.sessions.FindByHash(ctx, token.Hash(raw))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			u.metrics.Track("refresh", "failure")
			return nil, uuid.Nil, ErrInvalidToken
		}
		return nil, uuid.Nil, u.transient("find session", err)
	}
	if rec.PrincipalID != subject {
		u.metrics.Track("refresh", "failure")
		return nil, uuid.Nil, ErrInvalidToken
	}

	now := u.cfg.Now()
	if rec.Revoked {
		u.revokeAllOnReuse(ctx, rec.PrincipalID)
		u.metrics.Track("refresh", "reuse")
		return nil, uuid.Nil, ErrSessionRevoked
	}
	if rec.Expired(now) {
		u.metrics.Track("refresh", "failure")
		return nil, uuid.Nil, ErrSessionExpired
	}

	var pair *TokenPair
	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		flipped, err := u.sessions.Revoke(ctx, rec.ID)
		if err != nil {
			return u.transient("revoke session", err)
		}
		if !flipped {
			// a concurrent refresh with the same token won the race
			return ErrSessionRevoked
		}
		pair, err = u.issueSession(ctx, rec.PrincipalID)
		return err
	})
	if err != nil {
		u.metrics.Track("refresh", "failure")
		return nil, uuid.Nil, err
	}

	u.metrics.Track("refresh", "success")
	u.emitAudit(ctx, &rec.PrincipalID, audit.KindTokenRefresh, nil)
	return pair, rec.PrincipalID, nil
}

// ChangePassword replaces the credential hash and revokes every outstanding
// session so long-lived refresh tokens die with the old password.
func (u *Usecase) ChangePassword(ctx context.Context, principalID uuid.UUID, current, next string) error {
	p, err := u.principals.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return u.transient("load principal", err)
	}
	if !u.hasher.Verify(current, p.PasswordHash) {
		u.metrics.Track("change_password", "failure")
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLen {
		return ErrWeakPassword
	}

	digest, err := u.hasher.Hash(next)
	if err != nil {
		return u.transient("hash password", err)
	}
	p.PasswordHash = digest
	p.UpdatedAt = u.cfg.Now()

	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.principals.Update(ctx, p); err != nil {
			return u.transient("update principal", err)
		}
		if err := u.sessions.RevokeAllForPrincipal(ctx, principalID); err != nil {
			return u.transient("revoke sessions", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.metrics.Track("change_password", "success")
	u.emitAudit(ctx, &principalID, audit.KindPasswordChanged, nil)
	return nil
}

// Logout is best effort: an invalid or already-dead token is still a
// successful logout from the caller's perspective.
func (u *Usecase) Logout(ctx context.Context, raw string) {
	if raw == "" {
		return
	}
	if _, err := u.codec.Verify(raw, token.Refresh); err != nil {
		u.log.Debug("logout with unverifiable token", zap.Error(err))
		return
	}
	rec, err := u.sessions.FindByHash(ctx, token.Hash(raw))
	if err != nil {
		return
	}
	flipped, err := u.sessions.Revoke(ctx, rec.ID)
	if err != nil {
		u.log.Warn("logout revoke failed", zap.Error(err))
		return
	}
	if flipped {
		u.metrics.Track("logout", "success")
		u.emitAudit(ctx, &rec.PrincipalID, audit.KindLogout, nil)
	}
}

// Deactivate disables authentication for a principal and kills its sessions.
// History stays intact.
func (u *Usecase) Deactivate(ctx context.Context, principalID uuid.UUID) error {
	p, err := u.principals.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return u.transient("load principal", err)
	}
	p.Active = false
	p.UpdatedAt = u.cfg.Now()

	err = u.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := u.principals.Update(ctx, p); err != nil {
			return u.transient("update principal", err)
		}
		if err := u.sessions.RevokeAllForPrincipal(ctx, principalID); err != nil {
			return u.transient("revoke sessions", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.metrics.Track("deactivate", "success")
	u.emitAudit(ctx, &principalID, audit.KindAccountDisabled, nil)
	return nil
}

// Profile loads the authenticated principal for /me style handlers.
func (u *Usecase) Profile(ctx context.Context, principalID uuid.UUID) (*principal.Principal, error) {
	p, err := u.principals.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return nil, principal.ErrNotFound
		}
		return nil, u.transient("load principal", err)
	}
	return p, nil
}

// VerifyAccess is the gate's hook: pure codec verification, no store lookup.
func (u *Usecase) VerifyAccess(raw string) (uuid.UUID, error) {
	return u.codec.Verify(raw, token.Access)
}

func (u *Usecase) issueSession(ctx context.Context, principalID uuid.UUID) (*TokenPair, error) {
	now := u.cfg.Now()

	access, err := u.codec.Issue(principalID, token.Access, u.cfg.AccessTTL)
	if err != nil {
		return nil, u.transient("sign access token", err)
	}
	refresh, err := u.codec.Issue(principalID, token.Refresh, u.cfg.RefreshTTL)
	if err != nil {
		return nil, u.transient("sign refresh token", err)
	}

	rec := &session.Record{
		ID:          uuid.New(),
		PrincipalID: principalID,
		TokenHash:   token.Hash(refresh),
		IssuedAt:    now,
		ExpiresAt:   now.Add(u.cfg.RefreshTTL),
	}
	if err := u.sessions.Create(ctx, rec); err != nil {
		return nil, u.transient("save session", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(u.cfg.AccessTTL.Seconds()),
	}, nil
}

func (u *Usecase) revokeAllOnReuse(ctx context.Context, principalID uuid.UUID) {
	u.log.Warn("revoked refresh token reused, revoking all sessions",
		zap.String("principal_id", principalID.String()))
	if err := u.sessions.RevokeAllForPrincipal(ctx, principalID); err != nil {
		u.log.Error("revoke all after reuse failed", zap.Error(err))
		return
	}
	u.emitAudit(ctx, &principalID, audit.KindSessionsRevoked, map[string]any{"reason": "refresh_token_reuse"})
}

// emitAudit never propagates sink errors; audit is observability, not a
// precondition of the auth response.
func (u *Usecase) emitAudit(ctx context.Context, principalID *uuid.UUID, kind audit.Kind, details map[string]any) {
	e := audit.NewEvent(principalID, kind, details)
	if err := u.sink.Emit(ctx, e); err != nil {
		obs.WithTrace(ctx, u.log).Warn("audit emit failed",
			zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (u *Usecase) transient(op string, err error) error {
	u.log.Error(op, zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrTransient)
}
