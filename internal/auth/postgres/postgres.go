// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package postgres provides PostgreSQL repository implementations.
//
// Uniqueness invariants (one identity per username/email, one live session
// per identity) are enforced by unique indexes in the schema, so every Create
// is an atomic conditional insert.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// Pool abstracts the pgx query surface so repositories run against both
// *pgxpool.Pool and pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueViolation reports whether err is a unique-index violation.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// unavailable reports whether err means the store could not be reached in
// time. These failures are retryable; everything else is not.
func unavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ConnectionException,
			pgerrcode.ConnectionFailure,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.SQLClientUnableToEstablishSQLConnection,
			pgerrcode.TooManyConnections,
			pgerrcode.QueryCanceled:
			return true
		}
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// wrapStore wraps a residual pgx error, marking reachability failures with
// the retryable store-unavailable code.
func wrapStore(operation string, err error) error {
	if unavailable(err) {
		return oops.Code(auth.CodeStoreUnavailable).
			With("operation", operation).
			Wrap(errors.Join(auth.ErrStoreUnavailable, err))
	}
	return oops.With("operation", operation).Wrap(err)
}
