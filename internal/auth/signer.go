// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSigningKeyLength is the minimum accepted HMAC key length. Shorter keys
// weaken the signature below the hash's own strength.
const MinSigningKeyLength = 32

// tokenClaims binds the identity id to the registered time claims.
type tokenClaims struct {
	jwt.RegisteredClaims
	IdentityID string `json:"identity_id"`
}

// TokenSigner issues and verifies signed, time-bounded tokens bound to an
// identity.
type TokenSigner interface {
	// Issue produces a token binding identityID and an absolute expiry.
	Issue(identityID ulid.ULID, ttl time.Duration) (string, error)

	// Verify checks signature integrity first, then expiry. It returns
	// ok=false for both failures without distinguishing them to the caller.
	Verify(token string) (ulid.ULID, bool)
}

// HMACSigner implements TokenSigner using HMAC-SHA256 JWTs. The signing key
// is process-wide configuration, read once at startup. Secondary keys are
// accepted during verification only, so a future key rotation can drain old
// tokens without invalidating them.
type HMACSigner struct {
	signKey    []byte
	verifyKeys [][]byte
	now        func() time.Time
	logger     *slog.Logger
}

// HMACSignerOption configures an HMACSigner.
type HMACSignerOption func(*HMACSigner)

// WithVerificationKeys adds secondary keys accepted during verification.
func WithVerificationKeys(keys ...[]byte) HMACSignerOption {
	return func(s *HMACSigner) {
		s.verifyKeys = append(s.verifyKeys, keys...)
	}
}

// WithClock overrides the signer's time source. Used by tests to probe expiry
// boundaries deterministically.
func WithClock(now func() time.Time) HMACSignerOption {
	return func(s *HMACSigner) {
		s.now = now
	}
}

// WithSignerLogger attaches a logger for verification diagnostics. The logger
// may distinguish bad-signature from expired; callers of Verify never can.
func WithSignerLogger(logger *slog.Logger) HMACSignerOption {
	return func(s *HMACSigner) {
		s.logger = logger
	}
}

// NewHMACSigner creates an HMACSigner with the given signing key.
func NewHMACSigner(signKey []byte, opts ...HMACSignerOption) (*HMACSigner, error) {
	if len(signKey) < MinSigningKeyLength {
		return nil, oops.Code("AUTH_WEAK_SIGNING_KEY").
			With("min_bytes", MinSigningKeyLength).
			Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	}
	s := &HMACSigner{
		signKey: signKey,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Issue produces a signed token binding identityID and an absolute expiry.
func (s *HMACSigner) Issue(identityID ulid.ULID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", oops.Code("AUTH_INVALID_TTL").
			With("ttl", ttl.String()).
			Errorf("token TTL must be positive")
	}
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		IdentityID: identityID.String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return "", oops.Code("AUTH_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify checks the token against the signing key and every secondary
// verification key. Signature and expiry failures are indistinguishable to
// the caller; the internal log records which it was.
func (s *HMACSigner) Verify(token string) (ulid.ULID, bool) {
	var lastErr error
	for _, key := range append([][]byte{s.signKey}, s.verifyKeys...) {
		claims := &tokenClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return key, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.now),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			lastErr = err
			continue
		}
		id, parseErr := ulid.Parse(claims.IdentityID)
		if parseErr != nil {
			lastErr = parseErr
			continue
		}
		return id, true
	}
	s.logger.Debug("token verification failed", "error", lastErr)
	return ulid.ULID{}, false
}
