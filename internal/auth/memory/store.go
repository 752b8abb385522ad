// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

// Package memory provides an in-memory AccountStore for tests and dev mode.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/signet-auth/signet/internal/auth"
)

// Store implements auth.AccountStore with mutex-guarded maps. Uniqueness is
// enforced under a single lock, so Create is atomic the same way the
// Postgres store's constraints make it.
type Store struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.Account
	byEmail    map[string]ulid.ULID
	byUsername map[string]ulid.ULID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byID:       make(map[ulid.ULID]*auth.Account),
		byEmail:    make(map[string]ulid.ULID),
		byUsername: make(map[string]ulid.ULID),
	}
}

// Create stores a new account, enforcing email and username uniqueness.
func (s *Store) Create(_ context.Context, account *auth.Account) error {
	emailKey := strings.ToLower(account.Email)
	usernameKey := strings.ToLower(account.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[emailKey]; ok {
		return oops.Code("ACCOUNT_DUPLICATE").With("email", account.Email).Wrap(auth.ErrDuplicateEmail)
	}
	if _, ok := s.byUsername[usernameKey]; ok {
		return oops.Code("ACCOUNT_DUPLICATE").With("username", account.Username).Wrap(auth.ErrDuplicateUsername)
	}

	clone := *account
	s.byID[account.ID] = &clone
	s.byEmail[emailKey] = account.ID
	s.byUsername[usernameKey] = account.ID
	return nil
}

// GetByID retrieves an account by ID.
func (s *Store) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	clone := *account
	return &clone, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (s *Store) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	clone := *s.byID[id]
	return &clone, nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (s *Store) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	clone := *s.byID[id]
	return &clone, nil
}

// Delete removes an account.
func (s *Store) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(s.byEmail, strings.ToLower(account.Email))
	delete(s.byUsername, strings.ToLower(account.Username))
	delete(s.byID, id)
	return nil
}

// Len reports the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Compile-time interface check.
var _ auth.AccountStore = (*Store)(nil)
