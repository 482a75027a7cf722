// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents one registered account.
type User struct {
	ID             ulid.ULID
	Email          string
	HashedPassword []byte
	SessionToken   *string // nil until a session is created
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSession returns true if a session token has been issued to the user.
func (u *User) HasSession() bool {
	return u.SessionToken != nil && *u.SessionToken != ""
}

// Field names a mutable User column for UserStore.UpdateUser.
type Field string

// Fields accepted by UpdateUser.
const (
	FieldSessionToken Field = "session_token"
)

// Valid returns true if f is a field UpdateUser knows how to write.
func (f Field) Valid() bool {
	switch f {
	case FieldSessionToken:
		return true
	default:
		return false
	}
}

// FindResult is the outcome of a successful store lookup.
// Found is false when no user matched; User is nil in that case.
type FindResult struct {
	User  *User
	Found bool
}

// Found wraps a user in a FindResult.
func Found(u *User) FindResult {
	return FindResult{User: u, Found: true}
}

// NotFound is the FindResult for a lookup that matched nothing.
func NotFound() FindResult {
	return FindResult{}
}

// UserStore persists user records. It is the sole arbiter of email uniqueness:
// InsertUser must atomically insert-if-absent and return ErrDuplicateUser
// when the email is already taken.
type UserStore interface {
	// FindByEmail looks up a user by email (case-insensitive).
	// A missing user is reported as NotFound() with a nil error.
	FindByEmail(ctx context.Context, email string) (FindResult, error)

	// FindBySessionToken looks up the user currently holding token.
	FindBySessionToken(ctx context.Context, token string) (FindResult, error)

	// InsertUser creates a user with a store-assigned ID.
	InsertUser(ctx context.Context, email string, hashedPassword []byte) (*User, error)

	// UpdateUser sets a single field on the user with the given ID.
	// Returns ErrNotFound if no such user exists.
	UpdateUser(ctx context.Context, id ulid.ULID, field Field, value string) error
}

// NormalizeEmail trims surrounding whitespace. Case is preserved for storage;
// stores compare emails case-insensitively.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// ValidateEmail rejects empty emails.
func ValidateEmail(email string) error {
	if NormalizeEmail(email) == "" {
		return oops.Code(CodeInvalidEmail).Errorf("email cannot be empty")
	}
	return nil
}
