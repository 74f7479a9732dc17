// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package catalog

import (
	"context"
	"fmt"
	"time"
)

// Service is the generic filtered-CRUD engine. It is instantiated once per
// resource schema; all three kinds share the exact operation logic and
// differ only in the schema value, so a filter or timestamp rule can never
// diverge between kinds.
type Service struct {
	schema Schema
	col    Collection

	// nowFunc is replaceable in tests to control timestamps.
	nowFunc func() time.Time
}

// NewService creates the engine for one resource schema backed by the given
// collection.
func NewService(schema Schema, col Collection) *Service {
	return &Service{
		schema:  schema,
		col:     col,
		nowFunc: time.Now,
	}
}

// Kind returns the resource kind this engine serves.
func (s *Service) Kind() Kind {
	return s.schema.Kind
}

// List returns all records matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Record, error) {
	records, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.schema.Kind, err)
	}
	return records, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	rec, err := s.col.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Create validates input and persists a new record with server-assigned
// timestamps. On validation failure nothing is written.
func (s *Service) Create(ctx context.Context, input Input) (Record, error) {
	rec, verr := s.schema.Validate(input)
	if verr != nil {
		return Record{}, verr
	}

	now := s.nowFunc().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	stored, err := s.col.Insert(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("create %s: %w", s.schema.Kind, err)
	}
	return stored, nil
}

// Update fully replaces the mutable fields of an existing record. Existence
// is confirmed before validation so a missing target reports NotFound, not
// a validation failure. CreatedAt is preserved; UpdatedAt is refreshed.
func (s *Service) Update(ctx context.Context, id string, input Input) (Record, error) {
	existing, err := s.col.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}

	rec, verr := s.schema.Validate(input)
	if verr != nil {
		return Record{}, verr
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = s.nowFunc().UTC()

	stored, err := s.col.ReplaceByID(ctx, id, rec)
	if err != nil {
		return Record{}, fmt.Errorf("update %s %s: %w", s.schema.Kind, id, err)
	}
	return stored, nil
}

// Delete removes the record with the given id, or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.DeleteByID(ctx, id)
}
