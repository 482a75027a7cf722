// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Package auth registers users, checks their credentials and issues session
// tokens.
//
// # Service
//
// Service is stateless. Every call reads from or writes to a UserStore,
// which is the single source of truth and the arbiter of email uniqueness.
// The three core operations are:
//   - Register - stores a salted hash of the password; a taken email yields ErrDuplicateUser
//   - ValidateLogin - reports whether a password matches; unknown emails are just false
//   - CreateSession - replaces the user's session token with a fresh UUID
//
// UserFromSession resolves a token back to its user.
//
// # Stores
//
// UserStore lookups return a FindResult: Found with a user, NotFound, or an
// error. Implementations live in the memory and postgres subpackages.
//
// # Errors
//
// Store failures other than "not found" surface as *StoreError (see
// IsStoreError) and are never reported as absence.
package auth
