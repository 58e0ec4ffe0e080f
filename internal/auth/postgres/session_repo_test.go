// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/auth/postgres"
)

func testSession(t *testing.T) *auth.Session {
	t.Helper()
	return &auth.Session{
		ID:         ulid.Make(),
		IdentityID: ulid.Make(),
		Token:      "signed.jwt.token",
		IssuedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts session", func(t *testing.T) {
		mock := newPool(t)
		session := testSession(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), session.IdentityID.String(),
				session.Token, session.IssuedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.Create(ctx, session))
	})

	t.Run("unique violation maps to ErrSessionExists", func(t *testing.T) {
		mock := newPool(t)
		session := testSession(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), session.IdentityID.String(),
				session.Token, session.IssuedAt).
			WillReturnError(&pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "sessions_identity_id_key",
			})

		repo := postgres.NewSessionRepository(mock)
		err := repo.Create(ctx, session)
		require.ErrorIs(t, err, auth.ErrSessionExists)
	})

	t.Run("connection failure is retryable", func(t *testing.T) {
		mock := newPool(t)
		session := testSession(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(session.ID.String(), session.IdentityID.String(),
				session.Token, session.IssuedAt).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.TooManyConnections})

		repo := postgres.NewSessionRepository(mock)
		err := repo.Create(ctx, session)
		require.ErrorIs(t, err, auth.ErrStoreUnavailable)
		assert.True(t, auth.Retryable(err))
	})
}

func TestSessionRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns session", func(t *testing.T) {
		mock := newPool(t)
		session := testSession(t)
		mock.ExpectQuery(`SELECT id, identity_id, token, issued_at`).
			WithArgs(session.ID.String()).
			WillReturnRows(pgxmock.
				NewRows([]string{"id", "identity_id", "token", "issued_at"}).
				AddRow(session.ID.String(), session.IdentityID.String(),
					session.Token, session.IssuedAt))

		repo := postgres.NewSessionRepository(mock)
		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.IdentityID, got.IdentityID)
		assert.Equal(t, session.Token, got.Token)
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		mock := newPool(t)
		id := ulid.Make()
		mock.ExpectQuery(`SELECT id, identity_id, token, issued_at`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.
				NewRows([]string{"id", "identity_id", "token", "issued_at"}))

		repo := postgres.NewSessionRepository(mock)
		_, err := repo.GetByID(ctx, id)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_GetByIdentity(t *testing.T) {
	ctx := context.Background()
	mock := newPool(t)
	session := testSession(t)
	mock.ExpectQuery(`WHERE identity_id = \$1`).
		WithArgs(session.IdentityID.String()).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "identity_id", "token", "issued_at"}).
			AddRow(session.ID.String(), session.IdentityID.String(),
				session.Token, session.IssuedAt))

	repo := postgres.NewSessionRepository(mock)
	got, err := repo.GetByIdentity(ctx, session.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes session", func(t *testing.T) {
		mock := newPool(t)
		id := ulid.Make()
		mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		repo := postgres.NewSessionRepository(mock)
		require.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("zero rows maps to ErrNotFound", func(t *testing.T) {
		mock := newPool(t)
		id := ulid.Make()
		mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := postgres.NewSessionRepository(mock)
		err := repo.Delete(ctx, id)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	mock := newPool(t)
	cutoff := time.Now().Add(-2 * time.Hour)
	mock.ExpectExec(`DELETE FROM sessions WHERE issued_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	repo := postgres.NewSessionRepository(mock)
	deleted, err := repo.DeleteExpired(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
