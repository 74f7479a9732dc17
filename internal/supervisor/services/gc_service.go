// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package services

import (
	"context"
	"time"

	"github.com/tmojlabs/catalogd/internal/logging"
)

// GarbageCollector is the slice of the store this service drives.
type GarbageCollector interface {
	RunGC() error
}

// StoreGCService periodically reclaims value-log space in the store. Badger
// does not garbage-collect on its own; a supervised ticker keeps disk usage
// bounded on long-running deployments.
type StoreGCService struct {
	store    GarbageCollector
	interval time.Duration
}

// NewStoreGCService creates a GC service ticking at the given interval.
func NewStoreGCService(store GarbageCollector, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{store: store, interval: interval}
}

// Serve implements suture.Service. A failed GC cycle is logged and retried
// on the next tick rather than restarting the service.
func (g *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.store.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("store garbage collection failed")
			}
		}
	}
}

// String identifies the service in supervisor log messages.
func (g *StoreGCService) String() string {
	return "store-gc"
}
