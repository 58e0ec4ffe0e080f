// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes attached to every error the service surfaces. Transports map
// these to their own status vocabulary; the service never leaks raw store or
// crypto errors.
const (
	CodeInvalidInput     = "AUTH_INVALID_INPUT"
	CodeAlreadyExists    = "AUTH_ALREADY_EXISTS"
	CodeAlreadySignedIn  = "AUTH_ALREADY_SIGNED_IN"
	CodeNotFound         = "AUTH_NOT_FOUND"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeInvalidToken     = "AUTH_INVALID_TOKEN"
	CodeMalformedHeader  = "AUTH_MALFORMED_HEADER"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Sentinel errors used by repository implementations. Service code matches on
// these with errors.Is and re-wraps them with the codes above.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateIdentity is returned by IdentityRepository.Create when the
	// username or email is already taken.
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrSessionExists is returned by SessionRepository.Create when the
	// identity already owns a live session.
	ErrSessionExists = errors.New("session already exists for identity")

	// ErrStoreUnavailable is returned when a store call times out or the
	// backend cannot be reached. Callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// clientCodes are the failures the caller can correct by changing the request.
// Everything else is server-attributable and retryable.
var clientCodes = map[string]struct{}{
	CodeInvalidInput:    {},
	CodeAlreadyExists:   {},
	CodeAlreadySignedIn: {},
	CodeNotFound:        {},
	CodeAuthFailed:      {},
	CodeInvalidToken:    {},
	CodeMalformedHeader: {},
}

// ErrorCode extracts the error code, or "" for uncoded errors.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// ClientError reports whether err is attributable to the caller's request.
// Uncoded errors are treated as server-side.
func ClientError(err error) bool {
	_, ok := clientCodes[ErrorCode(err)]
	return ok
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	return ErrorCode(err) == CodeStoreUnavailable
}
