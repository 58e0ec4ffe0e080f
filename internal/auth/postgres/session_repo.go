// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a new session. The unique index on identity_id makes this the
// atomic one-session-per-identity check; a collision surfaces as
// auth.ErrSessionExists.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, identity_id, token, issued_at)
		VALUES ($1, $2, $3, $4)
	`,
		session.ID.String(),
		session.IdentityID.String(),
		session.Token,
		session.IssuedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return oops.Code("SESSION_DUPLICATE").
				With("identity_id", session.IdentityID.String()).
				Wrap(auth.ErrSessionExists)
		}
		return wrapStore("insert session", err)
	}
	return nil
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, identity_id, token, issued_at
		FROM sessions
		WHERE id = $1
	`, id.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, wrapStore("get session by id", err)
	}
	return session, nil
}

// GetByIdentity retrieves the live session for an identity.
func (r *SessionRepository) GetByIdentity(ctx context.Context, identityID ulid.ULID) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, identity_id, token, issued_at
		FROM sessions
		WHERE identity_id = $1
	`, identityID.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("identity_id", identityID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, wrapStore("get session by identity", err)
	}
	return session, nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE id = $1
	`, id.String())
	if err != nil {
		return wrapStore("delete session", err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes sessions issued before cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE issued_at < $1
	`, cutoff)
	if err != nil {
		return 0, wrapStore("delete expired sessions", err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single session row.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var session auth.Session
	var idStr, identityIDStr string

	if err := row.Scan(&idStr, &identityIDStr, &session.Token, &session.IssuedAt); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	identityID, err := ulid.Parse(identityIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_CORRUPT_ID").
			With("identity_id", identityIDStr).
			Wrap(err)
	}
	session.ID = id
	session.IdentityID = identityID
	return &session, nil
}
