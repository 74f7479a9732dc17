// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tmojlabs/catalogd/internal/auth"
	"github.com/tmojlabs/catalogd/internal/metrics"
)

// AuthHandler serves token issuance and principal introspection.
type AuthHandler struct {
	authenticator *auth.Authenticator
}

// NewAuthHandler creates the authentication handler.
func NewAuthHandler(authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string         `json:"token"`
	User  auth.Principal `json:"user"`
}

// Login verifies credentials and returns a signed token plus the principal.
// Bad username and bad password get the same 401; throttled attempts get 429.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, r, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteBadRequest(w, r, "username and password are required")
		return
	}

	token, principal, err := h.authenticator.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLoginThrottled):
			metrics.RecordAuthFailure("throttled")
			WriteTooManyRequests(w, r, "too many login attempts, try again later")
		case errors.Is(err, auth.ErrIdentityNotFound):
			metrics.RecordAuthFailure("credentials")
			WriteUnauthorized(w, r)
		default:
			WriteInternalError(w, r, err)
		}
		return
	}

	WriteData(w, r, loginResponse{Token: token, User: principal})
}

// Me returns the principal resolved for the current request. Runs behind
// Authenticate, so the principal is always present.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteUnauthorized(w, r)
		return
	}
	WriteData(w, r, principal)
}
