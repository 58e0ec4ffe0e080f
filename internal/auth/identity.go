// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Identity represents a registered account. Identities are immutable after
// creation and are never deleted by this package.
type Identity struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// NewIdentity creates a validated Identity with a freshly assigned ID.
// The password hash must come from a PasswordHasher; plaintext never reaches
// this constructor.
func NewIdentity(username, email, passwordHash string) (*Identity, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).
			With("field", "password_hash").
			Errorf("password hash cannot be empty")
	}
	return &Identity{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// IdentityRepository manages identity persistence.
type IdentityRepository interface {
	// Create stores a new identity. Uniqueness of both username and email is
	// enforced by the store in the same operation as the insert; a collision
	// on either surfaces as ErrDuplicateIdentity.
	Create(ctx context.Context, identity *Identity) error

	// GetByID retrieves an identity by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Identity, error)

	// GetByUsername retrieves an identity by username (case-insensitive).
	// Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*Identity, error)

	// GetByEmail retrieves an identity by email (case-insensitive).
	// Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*Identity, error)
}
