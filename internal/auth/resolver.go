// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmojlabs/catalogd/internal/logging"
)

// ErrUnauthenticated covers every principal-resolution failure: missing or
// malformed header, invalid or expired token, or a token naming a deleted
// identity. Callers surface one generic message so the failing check is not
// leaked.
var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver turns a raw Authorization header value into a Principal. It is a
// pure per-request computation: verify the token, then confirm the identity
// still exists. Nothing is cached across requests.
type Resolver struct {
	jwt        *JWTManager
	identities *IdentityStore
}

// NewResolver creates a principal resolver.
func NewResolver(jwt *JWTManager, identities *IdentityStore) *Resolver {
	return &Resolver{jwt: jwt, identities: identities}
}

// Resolve verifies the bearer credential and resolves it to a principal.
// Every failure branch returns ErrUnauthenticated; the underlying cause is
// logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, authHeader string) (Principal, error) {
	token, err := extractBearerToken(authHeader)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}

	claims, err := r.jwt.Validate(token)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("token validation failed")
		return Principal{}, ErrUnauthenticated
	}

	// A token can outlive the identity it names; confirm it still exists
	// and take the role from the live record, not the token.
	identity, err := r.identities.GetByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, ErrIdentityNotFound) {
			logging.Ctx(ctx).Error().Err(err).Msg("identity lookup failed")
		}
		return Principal{}, ErrUnauthenticated
	}

	return identity.Principal(), nil
}

// extractBearerToken parses an Authorization header of the shape
// "Bearer <token>".
func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header")
	}

	return parts[1], nil
}
