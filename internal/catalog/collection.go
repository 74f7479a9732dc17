// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package catalog

import "context"

// Filter restricts a Find to records whose fields exactly match every
// constraint present. Absent constraints apply no restriction. No partial
// matching, no case normalization.
type Filter struct {
	Profile  string
	Platform string
	Category string
}

// IsEmpty reports whether the filter applies no constraints.
func (f Filter) IsEmpty() bool {
	return f.Profile == "" && f.Platform == "" && f.Category == ""
}

// Matches reports whether a record satisfies every present constraint.
func (f Filter) Matches(rec Record) bool {
	if f.Profile != "" && rec.Profile != f.Profile {
		return false
	}
	if f.Platform != "" && rec.Platform != f.Platform {
		return false
	}
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	return true
}

// Collection is the storage collaborator contract for one resource kind.
// Implementations own their internal concurrency control; every single-
// record operation is atomic. FindByID, ReplaceByID, and DeleteByID return
// ErrNotFound when the id does not exist.
type Collection interface {
	// Find returns all records matching the filter, ordered by CreatedAt
	// descending. An empty result is success, not an error.
	Find(ctx context.Context, filter Filter) ([]Record, error)

	// FindByID returns the record with the given id.
	FindByID(ctx context.Context, id string) (Record, error)

	// Insert persists a new record, assigning its opaque id, and returns
	// the stored record.
	Insert(ctx context.Context, rec Record) (Record, error)

	// ReplaceByID overwrites the record with the given id.
	ReplaceByID(ctx context.Context, id string, rec Record) (Record, error)

	// DeleteByID removes the record with the given id.
	DeleteByID(ctx context.Context, id string) error
}
