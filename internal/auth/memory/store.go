// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Package memory provides an in-process auth.UserStore.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/keyward/keyward/internal/auth"
)

// UserStore implements auth.UserStore in memory. All methods are safe for
// concurrent use; InsertUser checks and inserts under a single lock.
type UserStore struct {
	mu        sync.RWMutex
	byID      map[ulid.ULID]*auth.User
	byEmail   map[string]ulid.ULID
	bySession map[string]ulid.ULID
	now       func() time.Time
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:      make(map[ulid.ULID]*auth.User),
		byEmail:   make(map[string]ulid.ULID),
		bySession: make(map[string]ulid.ULID),
		now:       time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(auth.NormalizeEmail(email))
}

// FindByEmail looks up a user by email (case-insensitive).
func (s *UserStore) FindByEmail(_ context.Context, email string) (auth.FindResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return auth.NotFound(), nil
	}
	return auth.Found(copyUser(s.byID[id])), nil
}

// FindBySessionToken looks up the user currently holding token.
func (s *UserStore) FindBySessionToken(_ context.Context, token string) (auth.FindResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySession[token]
	if !ok {
		return auth.NotFound(), nil
	}
	return auth.Found(copyUser(s.byID[id])), nil
}

// InsertUser creates a user, or returns auth.ErrDuplicateUser if the email is taken.
func (s *UserStore) InsertUser(_ context.Context, email string, hashedPassword []byte) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(email)
	if _, exists := s.byEmail[key]; exists {
		return nil, oops.Code("USER_DUPLICATE_EMAIL").Wrap(auth.ErrDuplicateUser)
	}

	now := s.now().UTC()
	user := &auth.User{
		ID:             ulid.Make(),
		Email:          auth.NormalizeEmail(email),
		HashedPassword: append([]byte(nil), hashedPassword...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.byID[user.ID] = user
	s.byEmail[key] = user.ID

	return copyUser(user), nil
}

// UpdateUser sets a single field on the user with the given ID.
func (s *UserStore) UpdateUser(_ context.Context, id ulid.ULID, field auth.Field, value string) error {
	if !field.Valid() {
		return oops.Code("STORE_UNKNOWN_FIELD").
			With("field", string(field)).
			Errorf("unknown user field %q", field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	switch field {
	case auth.FieldSessionToken:
		if user.SessionToken != nil {
			delete(s.bySession, *user.SessionToken)
		}
		token := value
		user.SessionToken = &token
		s.bySession[token] = user.ID
	}
	user.UpdatedAt = s.now().UTC()
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// List returns copies of all stored users in ID (creation) order.
func (s *UserStore) List(_ context.Context) ([]*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*auth.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, copyUser(u))
	}
	slices.SortFunc(users, func(a, b *auth.User) int {
		return a.ID.Compare(b.ID)
	})
	return users, nil
}

func copyUser(u *auth.User) *auth.User {
	c := *u
	c.HashedPassword = append([]byte(nil), u.HashedPassword...)
	if u.SessionToken != nil {
		token := *u.SessionToken
		c.SessionToken = &token
	}
	return &c
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
