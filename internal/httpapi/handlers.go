// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi

import (
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/pkg/errutil"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	IdentityID string `json:"identity_id"`
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	SessionID string `json:"session_id"`
}

type signOutRequest struct {
	SessionID string `json:"session_id"`
}

type signOutResponse struct {
	Acknowledged bool `json:"acknowledged"`
	WasActive    bool `json:"was_active"`
}

type validateResponse struct {
	IdentityID string `json:"identity_id,omitempty"`
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps an error code onto an HTTP status. Client-attributable codes
// map to 4xx; everything else is a retryable 503.
func statusFor(err error) int {
	switch auth.ErrorCode(err) {
	case auth.CodeInvalidInput, auth.CodeMalformedHeader:
		return http.StatusBadRequest
	case auth.CodeAlreadyExists, auth.CodeAlreadySignedIn:
		return http.StatusConflict
	case auth.CodeAuthFailed, auth.CodeInvalidToken, auth.CodeNotFound:
		return http.StatusUnauthorized
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Code:  auth.ErrorCode(err),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.record("register", err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	identityID, err := s.service.Register(ctx, req.Username, req.Email, req.Password)
	s.record("register", err)
	if err != nil {
		errutil.LogError(s.logger, "register failed", err)
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{IdentityID: identityID.String()})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.record("signin", err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	sessionID, err := s.service.SignIn(ctx, req.Username, req.Password)
	s.record("signin", err)
	if err != nil {
		errutil.LogError(s.logger, "signin failed", err)
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{SessionID: sessionID.String()})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	var req signOutRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.record("signout", err)
		return
	}

	sessionID, err := ulid.Parse(req.SessionID)
	if err != nil {
		parseErr := invalidInput("session_id is not a valid id")
		s.record("signout", parseErr)
		s.writeError(w, parseErr)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	wasActive, err := s.service.SignOut(ctx, sessionID)
	s.record("signout", err)
	if err != nil {
		errutil.LogError(s.logger, "signout failed", err)
		s.writeError(w, err)
		return
	}

	if s.metrics != nil && wasActive {
		s.metrics.SessionsRevoked.WithLabelValues("signout").Inc()
	}
	writeJSON(w, http.StatusOK, signOutResponse{Acknowledged: true, WasActive: wasActive})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	identityID, err := s.service.ValidateToken(ctx, r.Header.Get("Authorization"))
	s.record("validate", err)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusServiceUnavailable {
			s.writeError(w, err)
			return
		}
		writeJSON(w, status, validateResponse{Valid: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{IdentityID: identityID.String(), Valid: true})
}
