// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

// Command server runs the Catalogd API: an authenticated catalog
// administration backend serving movies, series, and music records over a
// role-guarded CRUD API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tmojlabs/catalogd/internal/api"
	"github.com/tmojlabs/catalogd/internal/auth"
	"github.com/tmojlabs/catalogd/internal/authz"
	"github.com/tmojlabs/catalogd/internal/catalog"
	"github.com/tmojlabs/catalogd/internal/config"
	"github.com/tmojlabs/catalogd/internal/logging"
	"github.com/tmojlabs/catalogd/internal/store"
	"github.com/tmojlabs/catalogd/internal/supervisor"
	"github.com/tmojlabs/catalogd/internal/supervisor/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	logging.Info().Str("version", version).Msg("starting catalogd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("close store")
		}
	}()

	identities := auth.NewIdentityStore(db.DB())
	if err := identities.Seed(ctx, cfg.Seed); err != nil {
		return fmt.Errorf("seed identities: %w", err)
	}

	jwtManager, err := auth.NewJWTManager(cfg.Security)
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}
	resolver := auth.NewResolver(jwtManager, identities)
	authenticator := auth.NewAuthenticator(identities, jwtManager, cfg.Security.LoginAttemptsPerMinute)

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		return fmt.Errorf("create enforcer: %w", err)
	}

	catalogServices := make(map[catalog.Kind]*catalog.Service, len(catalog.Kinds))
	for _, kind := range catalog.Kinds {
		schema, err := catalog.SchemaFor(kind)
		if err != nil {
			return err
		}
		catalogServices[kind] = catalog.NewService(schema, db.Collection(kind))
	}

	router := api.NewRouter(
		cfg.Security,
		resolver,
		enforcer,
		catalogServices,
		api.NewAuthHandler(authenticator),
		api.NewHealthHandler(version),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeConfig)

	if !cfg.Store.InMemory {
		tree.AddStorageService(services.NewStoreGCService(db, cfg.Store.GCInterval))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("shutdown complete")
	return nil
}
