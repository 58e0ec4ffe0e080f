// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/auth/memory"
	"github.com/gatewarden/gatewarden/internal/httpapi"
)

func startAPI(t *testing.T) string {
	t.Helper()

	hasher := auth.NewArgon2idHasher(auth.Argon2Params{
		Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
	})
	signer, err := auth.NewHMACSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	service, err := auth.NewService(
		memory.NewIdentityRepository(),
		memory.NewSessionRepository(),
		hasher,
		signer,
	)
	require.NoError(t, err)

	server, err := httpapi.NewServer("127.0.0.1:0", service,
		httpapi.WithStoreTimeout(5*time.Second))
	require.NoError(t, err)

	_, err = server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, server.Stop(ctx))
	})

	return "http://" + server.Addr()
}

func postJSON(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, decodeResponse(t, resp.Body)
}

func getValidate(t *testing.T, base, authorization string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, base+"/v1/validate", nil)
	require.NoError(t, err)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, decodeResponse(t, resp.Body)
}

func decodeResponse(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&decoded))
	return decoded
}

func TestAPI_FullLifecycle(t *testing.T) {
	base := startAPI(t)

	status, body := postJSON(t, base+"/v1/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret1pw",
	})
	require.Equal(t, http.StatusCreated, status)
	identityID, _ := body["identity_id"].(string)
	require.NotEmpty(t, identityID)

	status, body = postJSON(t, base+"/v1/signin", map[string]string{
		"username": "alice",
		"password": "secret1pw",
	})
	require.Equal(t, http.StatusOK, status)
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)

	status, body = getValidate(t, base, "Bearer "+sessionID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, identityID, body["identity_id"])

	status, body = postJSON(t, base+"/v1/signout", map[string]string{
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["acknowledged"])
	assert.Equal(t, true, body["was_active"])

	status, body = getValidate(t, base, "Bearer "+sessionID)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["valid"])
	assert.NotEmpty(t, body["error"])

	// Second sign-out still acknowledges, with was_active=false.
	status, body = postJSON(t, base+"/v1/signout", map[string]string{
		"session_id": sessionID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["acknowledged"])
	assert.Equal(t, false, body["was_active"])
}

func TestAPI_RegisterErrors(t *testing.T) {
	base := startAPI(t)

	t.Run("invalid input", func(t *testing.T) {
		status, body := postJSON(t, base+"/v1/register", map[string]string{
			"username": "ab",
			"email":    "alice@example.com",
			"password": "secret1pw",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, auth.CodeInvalidInput, body["code"])
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(base+"/v1/register", "application/json",
			bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		status, _ := postJSON(t, base+"/v1/register", map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "secret1pw",
			"admin":    "true",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		payload := map[string]string{
			"username": "bob",
			"email":    "bob@example.com",
			"password": "secret1pw",
		}
		status, _ := postJSON(t, base+"/v1/register", payload)
		require.Equal(t, http.StatusCreated, status)

		status, body := postJSON(t, base+"/v1/register", payload)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, auth.CodeAlreadyExists, body["code"])
	})
}

func TestAPI_SignInErrors(t *testing.T) {
	base := startAPI(t)

	status, _ := postJSON(t, base+"/v1/register", map[string]string{
		"username": "carol",
		"email":    "carol@example.com",
		"password": "secret1pw",
	})
	require.Equal(t, http.StatusCreated, status)

	t.Run("wrong password", func(t *testing.T) {
		status, body := postJSON(t, base+"/v1/signin", map[string]string{
			"username": "carol",
			"password": "wrongpass1",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, auth.CodeAuthFailed, body["code"])
	})

	t.Run("unknown user gets the same response", func(t *testing.T) {
		status, body := postJSON(t, base+"/v1/signin", map[string]string{
			"username": "nobody",
			"password": "wrongpass1",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, auth.CodeAuthFailed, body["code"])
	})

	t.Run("second sign-in conflicts", func(t *testing.T) {
		payload := map[string]string{"username": "carol", "password": "secret1pw"}
		status, _ := postJSON(t, base+"/v1/signin", payload)
		require.Equal(t, http.StatusOK, status)

		status, body := postJSON(t, base+"/v1/signin", payload)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, auth.CodeAlreadySignedIn, body["code"])
	})
}

func TestAPI_SignOutInvalidSessionID(t *testing.T) {
	base := startAPI(t)

	status, body := postJSON(t, base+"/v1/signout", map[string]string{
		"session_id": "not-a-ulid",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, auth.CodeInvalidInput, body["code"])
}

func TestAPI_ValidateMalformedAuthorization(t *testing.T) {
	base := startAPI(t)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-ulid"} {
		status, body := getValidate(t, base, header)
		assert.Equal(t, http.StatusBadRequest, status, "header %q", header)
		assert.Equal(t, false, body["valid"])
	}
}

func TestAPI_GracefulShutdownLeavesNoGoroutines(t *testing.T) {
	// Idle keep-alive connections from earlier subtests hold goroutines.
	http.DefaultClient.CloseIdleConnections()
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	hasher := auth.NewArgon2idHasher(auth.Argon2Params{
		Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
	})
	signer, err := auth.NewHMACSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	service, err := auth.NewService(
		memory.NewIdentityRepository(),
		memory.NewSessionRepository(),
		hasher,
		signer,
	)
	require.NoError(t, err)

	server, err := httpapi.NewServer("127.0.0.1:0", service)
	require.NoError(t, err)

	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case serveErr, ok := <-errCh:
		require.False(t, ok, "unexpected serve error: %v", serveErr)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after graceful stop")
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	hasher := auth.NewArgon2idHasher(auth.Argon2Params{
		Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
	})
	signer, err := auth.NewHMACSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	service, err := auth.NewService(
		memory.NewIdentityRepository(),
		memory.NewSessionRepository(),
		hasher,
		signer,
	)
	require.NoError(t, err)

	server, err := httpapi.NewServer("127.0.0.1:0", service)
	require.NoError(t, err)

	_, err = server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})

	_, err = server.Start()
	require.Error(t, err)
}

func TestNewServer_RequiresService(t *testing.T) {
	server, err := httpapi.NewServer("127.0.0.1:0", nil)
	require.Error(t, err)
	assert.Nil(t, server)
}
