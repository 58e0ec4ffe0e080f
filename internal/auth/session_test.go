// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/pkg/errutil"
)

func TestNewSession(t *testing.T) {
	t.Run("valid session", func(t *testing.T) {
		identityID := ulid.Make()
		session, err := auth.NewSession(identityID, "signed.jwt.token")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, session.ID)
		assert.Equal(t, identityID, session.IdentityID)
		assert.Equal(t, "signed.jwt.token", session.Token)
		assert.False(t, session.IssuedAt.IsZero())
	})

	t.Run("zero identity id", func(t *testing.T) {
		session, err := auth.NewSession(ulid.ULID{}, "signed.jwt.token")
		require.Error(t, err)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
	})

	t.Run("empty token", func(t *testing.T) {
		session, err := auth.NewSession(ulid.Make(), "")
		require.Error(t, err)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
	})
}

func TestParseBearer(t *testing.T) {
	sessionID := ulid.Make()

	t.Run("accepted forms", func(t *testing.T) {
		tests := []struct {
			name  string
			value string
		}{
			{"canonical", "Bearer " + sessionID.String()},
			{"lowercase scheme", "bearer " + sessionID.String()},
			{"uppercase scheme", "BEARER " + sessionID.String()},
			{"surrounding whitespace", "  Bearer " + sessionID.String() + "  "},
			{"extra inner whitespace", "Bearer  " + sessionID.String()},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := auth.ParseBearer(tt.value)
				require.NoError(t, err)
				assert.Equal(t, sessionID, got)
			})
		}
	})

	t.Run("rejected forms", func(t *testing.T) {
		tests := []struct {
			name  string
			value string
		}{
			{"empty", ""},
			{"scheme only", "Bearer"},
			{"scheme with trailing space", "Bearer "},
			{"wrong scheme", "Basic " + sessionID.String()},
			{"missing scheme", sessionID.String()},
			{"garbage id", "Bearer not-a-ulid"},
			{"truncated id", "Bearer " + sessionID.String()[:10]},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := auth.ParseBearer(tt.value)
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, auth.CodeMalformedHeader)
			})
		}
	})
}
