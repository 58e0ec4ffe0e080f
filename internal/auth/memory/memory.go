// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package memory provides in-memory repository implementations.
//
// The mutex-guarded maps give the same conditional-insert guarantees as the
// PostgreSQL schema's unique indexes, so service behavior under concurrency
// is identical in tests and dev mode. They intentionally favor clarity over
// performance.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// IdentityRepository implements auth.IdentityRepository in memory.
type IdentityRepository struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]auth.Identity
	byUsername map[string]ulid.ULID
	byEmail    map[string]ulid.ULID
}

// NewIdentityRepository creates an empty IdentityRepository.
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:       make(map[ulid.ULID]auth.Identity),
		byUsername: make(map[string]ulid.ULID),
		byEmail:    make(map[string]ulid.ULID),
	}
}

// Create stores a new identity. The uniqueness check and the insert happen
// under one lock, matching the atomicity of the SQL unique indexes.
func (r *IdentityRepository) Create(_ context.Context, identity *auth.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	username := strings.ToLower(identity.Username)
	email := strings.ToLower(identity.Email)
	if _, taken := r.byUsername[username]; taken {
		return auth.ErrDuplicateIdentity
	}
	if _, taken := r.byEmail[email]; taken {
		return auth.ErrDuplicateIdentity
	}

	r.byID[identity.ID] = *identity
	r.byUsername[username] = identity.ID
	r.byEmail[email] = identity.ID
	return nil
}

// GetByID retrieves an identity by ID.
func (r *IdentityRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &identity, nil
}

// GetByUsername retrieves an identity by username (case-insensitive).
func (r *IdentityRepository) GetByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	r.mu.RLock()
	id, ok := r.byUsername[strings.ToLower(username)]
	r.mu.RUnlock()
	if !ok {
		return nil, auth.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// GetByEmail retrieves an identity by email (case-insensitive).
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, auth.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// SessionRepository implements auth.SessionRepository in memory.
type SessionRepository struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]auth.Session
	byIdentity map[ulid.ULID]ulid.ULID
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byID:       make(map[ulid.ULID]auth.Session),
		byIdentity: make(map[ulid.ULID]ulid.ULID),
	}
}

// Create stores a new session. The one-session-per-identity check and the
// insert happen under one lock; concurrent callers serialize here.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.byIdentity[session.IdentityID]; live {
		return auth.ErrSessionExists
	}

	r.byID[session.ID] = *session
	r.byIdentity[session.IdentityID] = session.ID
	return nil
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &session, nil
}

// GetByIdentity retrieves the live session for an identity.
func (r *SessionRepository) GetByIdentity(ctx context.Context, identityID ulid.ULID) (*auth.Session, error) {
	r.mu.RLock()
	id, ok := r.byIdentity[identityID]
	r.mu.RUnlock()
	if !ok {
		return nil, auth.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byIdentity, session.IdentityID)
	return nil
}

// DeleteExpired removes sessions issued before cutoff.
func (r *SessionRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, session := range r.byID {
		if session.IssuedAt.Before(cutoff) {
			delete(r.byID, id)
			delete(r.byIdentity, session.IdentityID)
			deleted++
		}
	}
	return deleted, nil
}
