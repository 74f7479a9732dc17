// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrLoginThrottled is returned when a username has exceeded its login
// attempt budget.
var ErrLoginThrottled = errors.New("too many login attempts")

// Authenticator verifies credentials and issues tokens. Login attempts are
// throttled per username so a single account cannot be brute-forced at
// request-rate.
type Authenticator struct {
	identities *IdentityStore
	jwt        *JWTManager
	limiter    *loginLimiter
}

// NewAuthenticator creates an authenticator throttled to attemptsPerMinute
// login attempts per username.
func NewAuthenticator(identities *IdentityStore, jwt *JWTManager, attemptsPerMinute int) *Authenticator {
	return &Authenticator{
		identities: identities,
		jwt:        jwt,
		limiter:    newLoginLimiter(attemptsPerMinute),
	}
}

// Login verifies the credential pair and returns a signed token plus the
// principal it names. Returns ErrLoginThrottled when the attempt budget is
// exhausted and ErrIdentityNotFound for any bad credential.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, Principal, error) {
	if !a.limiter.allow(username) {
		return "", Principal{}, ErrLoginThrottled
	}

	identity, err := a.identities.VerifyCredentials(ctx, username, password)
	if err != nil {
		return "", Principal{}, err
	}

	token, err := a.jwt.Generate(identity.ID, identity.Role)
	if err != nil {
		return "", Principal{}, err
	}

	return token, identity.Principal(), nil
}

// loginLimiter keeps a token bucket per username with periodic cleanup of
// stale entries.
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*loginLimiterEntry
	rate     rate.Limit
	burst    int
}

type loginLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newLoginLimiter(attemptsPerMinute int) *loginLimiter {
	if attemptsPerMinute <= 0 {
		attemptsPerMinute = 10
	}
	return &loginLimiter{
		limiters: make(map[string]*loginLimiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(attemptsPerMinute)),
		burst:    attemptsPerMinute,
	}
}

func (l *loginLimiter) allow(username string) bool {
	l.mu.Lock()
	entry, exists := l.limiters[username]
	if !exists {
		entry = &loginLimiterEntry{
			limiter: rate.NewLimiter(l.rate, l.burst),
		}
		l.limiters[username] = entry
		l.cleanupLocked()
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// cleanupLocked drops entries idle for over an hour. Called with mu held,
// on the entry-creation path only, to bound map growth without a background
// goroutine.
func (l *loginLimiter) cleanupLocked() {
	threshold := time.Now().Add(-1 * time.Hour)
	for username, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, username)
		}
	}
}
