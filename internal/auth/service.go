// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("gatewarden/auth")

// DefaultTokenTTL is the session token lifetime policy.
const DefaultTokenTTL = 2 * time.Hour

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service orchestrates the four authentication operations. Every operation is
// a linear pipeline: validate, look up, mutate at most once, convert failures
// to coded errors. The service holds no mutable state of its own; all
// correctness-critical ordering lives in the stores' conditional inserts.
type Service struct {
	identities IdentityRepository
	sessions   SessionRepository
	hasher     PasswordHasher
	signer     TokenSigner
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTokenTTL overrides DefaultTokenTTL.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenTTL = ttl
	}
}

// WithLogger attaches a logger for internal diagnostics.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service.
func NewService(identities IdentityRepository, sessions SessionRepository, hasher PasswordHasher, signer TokenSigner, opts ...ServiceOption) (*Service, error) {
	if identities == nil {
		return nil, errors.New("identity repository is required")
	}
	if sessions == nil {
		return nil, errors.New("session repository is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if signer == nil {
		return nil, errors.New("token signer is required")
	}
	s := &Service{
		identities: identities,
		sessions:   sessions,
		hasher:     hasher,
		signer:     signer,
		tokenTTL:   DefaultTokenTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokenTTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	if s.logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return s, nil
}

// Register creates a new identity from raw registration input and returns its
// assigned id. Uniqueness of username and email is enforced by the store in
// the same operation as the insert. No session is created.
func (s *Service) Register(ctx context.Context, username, email, password string) (id ulid.ULID, err error) {
	ctx, span := tracer.Start(ctx, "auth.register",
		trace.WithAttributes(attribute.String("auth.username", username)),
	)
	defer func() { endSpan(span, err) }()

	if err := ValidateRegistration(username, email, password); err != nil {
		return ulid.ULID{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeAuthFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	identity, err := NewIdentity(username, email, hash)
	if err != nil {
		return ulid.ULID{}, err
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return ulid.ULID{}, oops.Code(CodeAlreadyExists).
				Errorf("username or email is already registered")
		}
		return ulid.ULID{}, s.storeError("create identity", err)
	}

	s.logger.InfoContext(ctx, "identity registered", "identity_id", identity.ID.String())
	return identity.ID, nil
}

// SignIn authenticates raw credentials and creates the identity's single live
// session, returning the new session's id. A missing identity and a wrong
// password report the same failure; verification runs against a dummy hash
// when the identity is absent so response time stays consistent.
func (s *Service) SignIn(ctx context.Context, username, password string) (sessionID ulid.ULID, err error) {
	ctx, span := tracer.Start(ctx, "auth.signin",
		trace.WithAttributes(attribute.String("auth.username", username)),
	)
	defer func() { endSpan(span, err) }()

	if err := ValidateSignIn(username, password); err != nil {
		return ulid.ULID{}, err
	}

	identity, lookupErr := s.identities.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	identityExists := false
	switch {
	case lookupErr == nil:
		targetHash = identity.PasswordHash
		identityExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Keep the dummy hash and fail after the verify below.
	default:
		return ulid.ULID{}, s.storeError("get identity by username", lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && identityExists {
		return ulid.ULID{}, oops.Code(CodeAuthFailed).
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !identityExists || !valid {
		return ulid.ULID{}, oops.Code(CodeAuthFailed).
			Errorf("invalid username or password")
	}

	token, err := s.signer.Issue(identity.ID, s.tokenTTL)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeAuthFailed).
			With("operation", "issue token").
			Wrap(err)
	}

	session, err := NewSession(identity.ID, token)
	if err != nil {
		return ulid.ULID{}, err
	}

	// The one-session-per-identity check and the insert are a single store
	// operation; two concurrent sign-ins cannot both pass.
	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, ErrSessionExists) {
			return ulid.ULID{}, oops.Code(CodeAlreadySignedIn).
				With("identity_id", identity.ID.String()).
				Errorf("identity already has an active session")
		}
		return ulid.ULID{}, s.storeError("create session", err)
	}

	s.logger.InfoContext(ctx, "session created",
		"identity_id", identity.ID.String(),
		"session_id", session.ID.String(),
	)
	return session.ID, nil
}

// SignOut revokes a session. It is idempotent: signing out an unknown or
// already revoked session id acknowledges success with active=false.
func (s *Service) SignOut(ctx context.Context, sessionID ulid.ULID) (active bool, err error) {
	ctx, span := tracer.Start(ctx, "auth.signout",
		trace.WithAttributes(attribute.String("auth.session_id", sessionID.String())),
	)
	defer func() { endSpan(span, err) }()

	err = s.sessions.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, s.storeError("delete session", err)
	}
	s.logger.InfoContext(ctx, "session revoked", "session_id", sessionID.String())
	return true, nil
}

// ValidateToken resolves a presented bearer value to a verified identity id.
// It is read-only; it runs on every protected request and mutates nothing.
// A signed-out session and one that never existed are indistinguishable.
func (s *Service) ValidateToken(ctx context.Context, bearer string) (identityID ulid.ULID, err error) {
	ctx, span := tracer.Start(ctx, "auth.validate")
	defer func() { endSpan(span, err) }()

	sessionID, err := ParseBearer(bearer)
	if err != nil {
		return ulid.ULID{}, err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code(CodeNotFound).
				Errorf("no active session for presented credential")
		}
		return ulid.ULID{}, s.storeError("get session by id", err)
	}

	identityID, ok := s.signer.Verify(session.Token)
	if !ok {
		return ulid.ULID{}, oops.Code(CodeInvalidToken).
			Errorf("session token is not valid")
	}

	// The signed token is the source of truth; the stored owner must agree.
	if identityID.Compare(session.IdentityID) != 0 {
		s.logger.ErrorContext(ctx, "session owner diverged from signed token",
			"session_id", session.ID.String(),
		)
		return ulid.ULID{}, oops.Code(CodeInvalidToken).
			Errorf("session token is not valid")
	}

	return identityID, nil
}

// endSpan closes an operation span, recording err when the operation failed.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
	}
	span.End()
}

// storeError wraps a repository failure as server-attributable and
// retryable. The caller cannot correct these by changing the request.
func (s *Service) storeError(operation string, err error) error {
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		With("retryable", true).
		Wrap(err)
}
