// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package api

import (
	"net/http"

	"github.com/tmojlabs/catalogd/internal/auth"
	"github.com/tmojlabs/catalogd/internal/authz"
	"github.com/tmojlabs/catalogd/internal/logging"
	"github.com/tmojlabs/catalogd/internal/metrics"
)

// Authenticate resolves the bearer token to a principal and attaches it to
// the request context. Requests that fail resolution are answered with one
// uniform 401 regardless of the failing check.
func Authenticate(resolver *auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				metrics.RecordAuthFailure("token")
				WriteUnauthorized(w, r)
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize checks the resolved principal's role against the policy for the
// given object and action. Runs strictly after Authenticate; a request with
// no principal in context is answered 401, not 403.
func Authorize(enforcer *authz.Enforcer, object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				metrics.RecordAuthFailure("principal")
				WriteUnauthorized(w, r)
				return
			}

			allowed, err := enforcer.Allowed(principal.Role, object, action)
			if err != nil {
				WriteInternalError(w, r, err)
				return
			}
			if !allowed {
				metrics.RecordAuthFailure("permission")
				logging.Ctx(r.Context()).Warn().
					Str("username", principal.Username).
					Str("role", principal.Role).
					Str("object", object).
					Str("action", action).
					Msg("permission denied")
				WriteForbidden(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
