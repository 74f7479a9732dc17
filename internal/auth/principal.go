// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

// Package auth provides principal resolution for the API: bearer token
// verification, the identity store the tokens are checked against, and
// credential verification for token issuance.
package auth

import "context"

// Roles form a small closed set. Write permissions are granted per role by
// the authorization policy; viewer is the unprivileged default.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEditor || role == RoleViewer
}

// Principal is the authenticated identity attached to a request. It is
// resolved fresh on every request and owned by the request lifetime only.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal returns a context carrying the resolved principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal resolved for this request.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}
