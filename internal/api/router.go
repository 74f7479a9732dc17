// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tmojlabs/catalogd/internal/auth"
	"github.com/tmojlabs/catalogd/internal/authz"
	"github.com/tmojlabs/catalogd/internal/catalog"
	"github.com/tmojlabs/catalogd/internal/config"
	"github.com/tmojlabs/catalogd/internal/middleware"
)

// Router builds the HTTP handler from the assembled application parts.
type Router struct {
	security config.SecurityConfig
	resolver *auth.Resolver
	enforcer *authz.Enforcer
	services map[catalog.Kind]*catalog.Service
	authH    *AuthHandler
	healthH  *HealthHandler
}

// NewRouter creates a router over the given services and pipeline stages.
func NewRouter(
	security config.SecurityConfig,
	resolver *auth.Resolver,
	enforcer *authz.Enforcer,
	services map[catalog.Kind]*catalog.Service,
	authHandler *AuthHandler,
	healthHandler *HealthHandler,
) *Router {
	return &Router{
		security: security,
		resolver: resolver,
		enforcer: enforcer,
		services: services,
		authH:    authHandler,
		healthH:  healthHandler,
	}
}

// Handler assembles the route tree. The request pipeline for catalog routes
// is fixed: request id, metrics, authenticate, authorize, handle.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.Limit(
		router.security.RateLimitRequests,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		// Rate-limit rejections answer in the same envelope as every
		// other error path.
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteTooManyRequests(w, r, "rate limit exceeded, try again later")
		}),
	))
	r.Use(middleware.PrometheusMetrics)

	r.Get("/api/health", router.healthH.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", router.authH.Login)
		r.With(Authenticate(router.resolver)).Get("/me", router.authH.Me)
	})

	for kind, service := range router.services {
		router.mountResource(r, kind, service)
	}

	return r
}

// mountResource wires one catalog kind's CRUD routes. Every route requires
// authentication; reads need the read permission, mutations write, removal
// delete.
func (router *Router) mountResource(r chi.Router, kind catalog.Kind, service *catalog.Service) {
	handler := NewResourceHandler(service)
	object := kind.String()

	r.Route("/api/"+object, func(r chi.Router) {
		r.Use(Authenticate(router.resolver))

		r.With(Authorize(router.enforcer, object, authz.ActionRead)).Get("/", handler.List)
		r.With(Authorize(router.enforcer, object, authz.ActionRead)).Get("/{id}", handler.Get)
		r.With(Authorize(router.enforcer, object, authz.ActionWrite)).Post("/", handler.Create)
		r.With(Authorize(router.enforcer, object, authz.ActionWrite)).Put("/{id}", handler.Update)
		r.With(Authorize(router.enforcer, object, authz.ActionDelete)).Delete("/{id}", handler.Delete)
	})
}
