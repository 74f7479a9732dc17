// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tmojlabs/catalogd/internal/catalog"
	"github.com/tmojlabs/catalogd/internal/metrics"
)

const recordKeyPrefix = "record:"

// Collection returns the record collection for one resource kind. All
// collections share the database; keys are namespaced per kind.
func (s *Store) Collection(kind catalog.Kind) catalog.Collection {
	return &collection{
		db:     s.db,
		kind:   kind,
		prefix: []byte(recordKeyPrefix + kind.String() + ":"),
	}
}

// collection implements catalog.Collection on Badger. Single-record
// operations run in one transaction each; Badger serializes conflicting
// writes, so concurrent mutations of the same id are last-write-wins
// without read tearing.
type collection struct {
	db     *badger.DB
	kind   catalog.Kind
	prefix []byte
}

func (c *collection) key(id string) []byte {
	return append(append([]byte{}, c.prefix...), id...)
}

// Find returns all records matching the filter, CreatedAt descending.
// Ties keep key order, which is stable across reads with no writes.
func (c *collection) Find(ctx context.Context, filter catalog.Filter) (records []catalog.Record, err error) {
	defer c.observe("find", time.Now(), &err)

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	err = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(c.prefix); it.ValidForPrefix(c.prefix); it.Next() {
			var rec catalog.Record
			decodeErr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if decodeErr != nil {
				return fmt.Errorf("decode record %s: %w", it.Item().Key(), decodeErr)
			}
			if filter.Matches(rec) {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.kind, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

// FindByID returns the record with the given id.
func (c *collection) FindByID(ctx context.Context, id string) (rec catalog.Record, err error) {
	defer c.observe("find_by_id", time.Now(), &err)

	if err = ctx.Err(); err != nil {
		return catalog.Record{}, err
	}

	err = c.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(c.key(id))
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return catalog.ErrNotFound
		}
		if getErr != nil {
			return fmt.Errorf("get %s %s: %w", c.kind, id, getErr)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return catalog.Record{}, err
	}
	return rec, nil
}

// Insert persists a new record under a freshly assigned id.
func (c *collection) Insert(ctx context.Context, rec catalog.Record) (stored catalog.Record, err error) {
	defer c.observe("insert", time.Now(), &err)

	if err = ctx.Err(); err != nil {
		return catalog.Record{}, err
	}

	rec.ID = uuid.NewString()

	data, err := json.Marshal(rec)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("encode %s record: %w", c.kind, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key(rec.ID), data)
	})
	if err != nil {
		return catalog.Record{}, fmt.Errorf("insert %s: %w", c.kind, err)
	}
	return rec, nil
}

// ReplaceByID overwrites an existing record in a single transaction.
func (c *collection) ReplaceByID(ctx context.Context, id string, rec catalog.Record) (stored catalog.Record, err error) {
	defer c.observe("replace", time.Now(), &err)

	if err = ctx.Err(); err != nil {
		return catalog.Record{}, err
	}

	rec.ID = id

	data, err := json.Marshal(rec)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("encode %s record: %w", c.kind, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		_, getErr := txn.Get(c.key(id))
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return catalog.ErrNotFound
		}
		if getErr != nil {
			return fmt.Errorf("get %s %s: %w", c.kind, id, getErr)
		}
		return txn.Set(c.key(id), data)
	})
	if err != nil {
		return catalog.Record{}, err
	}
	return rec, nil
}

// DeleteByID removes an existing record in a single transaction.
func (c *collection) DeleteByID(ctx context.Context, id string) (err error) {
	defer c.observe("delete", time.Now(), &err)

	if err = ctx.Err(); err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		_, getErr := txn.Get(c.key(id))
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return catalog.ErrNotFound
		}
		if getErr != nil {
			return fmt.Errorf("get %s %s: %w", c.kind, id, getErr)
		}
		return txn.Delete(c.key(id))
	})
}

// observe records store metrics for one completed operation.
func (c *collection) observe(operation string, start time.Time, err *error) {
	metrics.RecordStoreOperation(operation, c.kind.String(), time.Since(start), *err)
}
