// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// maxBodyBytes bounds request bodies; auth payloads are tiny.
const maxBodyBytes = 16 << 10

// invalidInput builds a client-attributable input error.
func invalidInput(msg string) error {
	return oops.Code(auth.CodeInvalidInput).Errorf("%s", msg)
}

// decodeBody parses a JSON request body into dst, writing the error response
// itself on failure so handlers can simply return.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		wrapped := oops.Code(auth.CodeInvalidInput).
			With("operation", "decode request body").
			Wrap(err)
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "request body is not valid JSON for this endpoint",
			Code:  auth.CodeInvalidInput,
		})
		return wrapped
	}
	return nil
}
