// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// BearerScheme is the scheme label callers present in front of the opaque
// session id on each request.
const BearerScheme = "Bearer"

// Session is the server-side record of an active login. The signed token is
// the authoritative credential; the session row is its revocation-list entry.
// Deleting the row revokes the login before the token's own expiry.
type Session struct {
	ID         ulid.ULID
	IdentityID ulid.ULID
	Token      string
	IssuedAt   time.Time
}

// NewSession creates a validated Session bound to an identity and its signed
// token. The stored token must verify to exactly IdentityID; the Service is
// the only writer and guarantees the two never diverge.
func NewSession(identityID ulid.ULID, token string) (*Session, error) {
	if identityID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code(CodeInvalidInput).
			With("field", "identity_id").
			Errorf("identity ID cannot be zero")
	}
	if token == "" {
		return nil, oops.Code(CodeInvalidInput).
			With("field", "token").
			Errorf("signed token cannot be empty")
	}
	return &Session{
		ID:         ulid.Make(),
		IdentityID: identityID,
		Token:      token,
		IssuedAt:   time.Now(),
	}, nil
}

// ParseBearer extracts the opaque session id from a presented bearer value of
// the form "Bearer <session-id>". The scheme label is matched
// case-insensitively per RFC 7235.
func ParseBearer(value string) (ulid.ULID, error) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(value), " ")
	if !found || !strings.EqualFold(scheme, BearerScheme) {
		return ulid.ULID{}, oops.Code(CodeMalformedHeader).
			Errorf("bearer value must be %q followed by a session id", BearerScheme)
	}
	id, err := ulid.Parse(strings.TrimSpace(rest))
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeMalformedHeader).
			With("operation", "parse session id").
			Wrap(err)
	}
	return id, nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session. At most one session may exist per identity;
	// the store enforces this in the same operation as the insert and a
	// collision surfaces as ErrSessionExists.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	// GetByIdentity retrieves the live session for an identity.
	// Returns ErrNotFound if the identity has no session.
	GetByIdentity(ctx context.Context, identityID ulid.ULID) (*Session, error)

	// Delete removes a session by ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes sessions issued before cutoff and returns the
	// count of deleted records. Callers derive cutoff from the token TTL so
	// only sessions whose tokens have already expired are purged.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
