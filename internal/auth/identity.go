// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmojlabs/catalogd/internal/config"
	"github.com/tmojlabs/catalogd/internal/logging"
)

// Key prefixes for the identity keyspace.
const (
	identityKeyPrefix     = "identity:"
	identityNameKeyPrefix = "identity_name:"
)

// ErrIdentityNotFound is returned when no identity matches the lookup.
var ErrIdentityNotFound = errors.New("identity not found")

// Identity is a stored user account. The password hash never leaves this
// package.
type Identity struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	PasswordHash []byte `json:"password_hash"`
}

// Principal returns the request-facing view of the identity.
func (i Identity) Principal() Principal {
	return Principal{ID: i.ID, Username: i.Username, Role: i.Role}
}

// IdentityStore keeps user accounts in Badger, indexed by id and username.
type IdentityStore struct {
	db *badger.DB
}

// NewIdentityStore creates an identity store on the shared database.
func NewIdentityStore(db *badger.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// GetByID returns the identity with the given id, or ErrIdentityNotFound.
func (s *IdentityStore) GetByID(ctx context.Context, id string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	var identity Identity
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(identityKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrIdentityNotFound
		}
		if err != nil {
			return fmt.Errorf("get identity %s: %w", id, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &identity)
		})
	})
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// GetByUsername returns the identity with the given username, or
// ErrIdentityNotFound.
func (s *IdentityStore) GetByUsername(ctx context.Context, username string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(identityNameKeyPrefix + username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrIdentityNotFound
		}
		if err != nil {
			return fmt.Errorf("get identity index %s: %w", username, err)
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return Identity{}, err
	}

	return s.GetByID(ctx, id)
}

// Create stores a new identity with a bcrypt-hashed password.
func (s *IdentityStore) Create(ctx context.Context, username, password, role string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if username == "" {
		return Identity{}, fmt.Errorf("username is required")
	}
	if !ValidRole(role) {
		return Identity{}, fmt.Errorf("invalid role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	identity := Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         role,
		PasswordHash: hash,
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return Identity{}, fmt.Errorf("encode identity: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		nameKey := []byte(identityNameKeyPrefix + username)
		if _, err := txn.Get(nameKey); err == nil {
			return fmt.Errorf("username %q already exists", username)
		}
		if err := txn.Set([]byte(identityKeyPrefix+identity.ID), data); err != nil {
			return fmt.Errorf("set identity: %w", err)
		}
		if err := txn.Set(nameKey, []byte(identity.ID)); err != nil {
			return fmt.Errorf("set identity index: %w", err)
		}
		return nil
	})
	if err != nil {
		return Identity{}, err
	}

	return identity, nil
}

// Delete removes an identity and its username index. Tokens naming the
// identity keep verifying cryptographically but fail the live lookup.
func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	identity, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(identityKeyPrefix + id)); err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		if err := txn.Delete([]byte(identityNameKeyPrefix + identity.Username)); err != nil {
			return fmt.Errorf("delete identity index: %w", err)
		}
		return nil
	})
}

// VerifyCredentials checks a username/password pair and returns the identity
// on success. Bad username and bad password are indistinguishable to the
// caller.
func (s *IdentityStore) VerifyCredentials(ctx context.Context, username, password string) (Identity, error) {
	identity, err := s.GetByUsername(ctx, username)
	if err != nil {
		return Identity{}, ErrIdentityNotFound
	}

	if err := bcrypt.CompareHashAndPassword(identity.PasswordHash, []byte(password)); err != nil {
		return Identity{}, ErrIdentityNotFound
	}

	return identity, nil
}

// Seed ensures the configured administrator account exists. Called once at
// startup; an existing account is left untouched.
func (s *IdentityStore) Seed(ctx context.Context, cfg config.SeedConfig) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		logging.Warn().Msg("admin seed credentials not configured; skipping identity seed")
		return nil
	}

	_, err := s.GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return err
	}

	identity, err := s.Create(ctx, cfg.AdminUsername, cfg.AdminPassword, RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin identity: %w", err)
	}

	logging.Info().Str("username", identity.Username).Msg("seeded administrator identity")
	return nil
}
