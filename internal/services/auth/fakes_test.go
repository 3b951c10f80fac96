package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/taskward/taskward/internal/domain/audit"
	"github.com/taskward/taskward/internal/domain/principal"
	"github.com/taskward/taskward/internal/domain/session"
)

// In-memory doubles for the store ports. The session fake keeps the same
// compare-and-swap revoke semantics as the Postgres adapter so concurrency
// tests exercise the real contract.

type memPrincipals struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]principal.Principal
	byEmail map[string]uuid.UUID
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{
		byID:    make(map[uuid.UUID]principal.Principal),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (m *memPrincipals) Create(_ context.Context, p *principal.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[p.Email]; ok {
		return principal.ErrEmailTaken
	}
	m.byID[p.ID] = *p
	m.byEmail[p.Email] = p.ID
	return nil
}

func (m *memPrincipals) GetByID(_ context.Context, id uuid.UUID) (*principal.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, principal.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *memPrincipals) GetByEmail(_ context.Context, email string) (*principal.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, principal.ErrNotFound
	}
	p := m.byID[id]
	cp := p
	return &cp, nil
}

func (m *memPrincipals) Update(_ context.Context, p *principal.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return principal.ErrNotFound
	}
	m.byID[p.ID] = *p
	return nil
}

type memSessions struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]session.Record
	byHash     map[string]uuid.UUID
	failCreate bool
}

func newMemSessions() *memSessions {
	return &memSessions{
		byID:   make(map[uuid.UUID]session.Record),
		byHash: make(map[string]uuid.UUID),
	}
}

func (m *memSessions) Create(_ context.Context, rec *session.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("session store down")
	}
	m.byID[rec.ID] = *rec
	m.byHash[rec.TokenHash] = rec.ID
	return nil
}

func (m *memSessions) FindByHash(_ context.Context, tokenHash string) (*session.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byHash[tokenHash]
	if !ok {
		return nil, session.ErrNotFound
	}
	rec := m.byID[id]
	cp := rec
	return &cp, nil
}

func (m *memSessions) Revoke(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	m.byID[id] = rec
	return true, nil
}

func (m *memSessions) RevokeAllForPrincipal(_ context.Context, principalID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.byID {
		if rec.PrincipalID == principalID && !rec.Revoked {
			rec.Revoked = true
			m.byID[id] = rec
		}
	}
	return nil
}

// expire backdates a record's expiry, simulating a session that outlived its
// window while the signed token is still within its own.
func (m *memSessions) expire(tokenHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byHash[tokenHash]; ok {
		rec := m.byID[id]
		rec.ExpiresAt = rec.IssuedAt.Add(-1)
		m.byID[id] = rec
	}
}

type memSink struct {
	mu     sync.Mutex
	events []*audit.Event
	fail   bool
}

func (m *memSink) Emit(_ context.Context, e *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sink down")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) kinds() []audit.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Kind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

type nopTx struct{}

func (nopTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
