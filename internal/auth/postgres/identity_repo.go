// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// IdentityRepository implements auth.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	pool Pool
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(pool Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Create stores a new identity. The unique indexes on username and email make
// this the atomic uniqueness check; a collision on either surfaces as
// auth.ErrDuplicateIdentity.
func (r *IdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO identities (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		identity.ID.String(),
		identity.Username,
		identity.Email,
		identity.PasswordHash,
		identity.CreatedAt,
	)
	if err != nil {
		if uniqueViolation(err) {
			return oops.Code("IDENTITY_DUPLICATE").
				With("username", identity.Username).
				Wrap(auth.ErrDuplicateIdentity)
		}
		return wrapStore("insert identity", err)
	}
	return nil
}

// GetByID retrieves an identity by ID.
func (r *IdentityRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM identities
		WHERE id = $1
	`, id.String())

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, wrapStore("get identity by id", err)
	}
	return identity, nil
}

// GetByUsername retrieves an identity by username (case-insensitive).
func (r *IdentityRepository) GetByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM identities
		WHERE LOWER(username) = LOWER($1)
	`, username)

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, wrapStore("get identity by username", err)
	}
	return identity, nil
}

// GetByEmail retrieves an identity by email (case-insensitive).
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM identities
		WHERE LOWER(email) = LOWER($1)
	`, email)

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, wrapStore("get identity by email", err)
	}
	return identity, nil
}

// scanIdentity scans a single identity row.
func scanIdentity(row pgx.Row) (*auth.Identity, error) {
	var identity auth.Identity
	var idStr string

	if err := row.Scan(&idStr, &identity.Username, &identity.Email, &identity.PasswordHash, &identity.CreatedAt); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("IDENTITY_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	identity.ID = id
	return &identity, nil
}
