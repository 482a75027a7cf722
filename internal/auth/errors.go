// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned by a UserStore when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when registering an email that already exists.
var ErrDuplicateUser = errors.New("user already exists")

// Error codes attached to errors returned by Service.
const (
	CodeDuplicateUser = "AUTH_DUPLICATE_USER"
	CodeStoreFailed   = "AUTH_STORE_FAILED"
	CodeInvalidEmail  = "AUTH_INVALID_EMAIL"
	CodeEmptyPassword = "AUTH_EMPTY_PASSWORD"
	CodeInvalidHash   = "AUTH_INVALID_HASH"
	CodeInvalidConfig = "AUTH_INVALID_CONFIG"
)

// StoreError is a persistence failure that is not a "not found" signal.
// It always carries the underlying store error.
//
// StoreError ends the oops chain: errors.Is and errors.As reach Err and
// anything it wraps, except oops.OopsError. The code and context of a
// Service error are therefore the Service's own; the store's code and
// operation are copied into the store_code and store_operation context keys.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return "store: " + e.Operation + ": " + e.Err.Error()
}

// Is reports whether target is in the store error's chain.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As finds the first error in the store error's chain that matches target.
// An oops.OopsError target never matches.
func (e *StoreError) As(target any) bool {
	if _, ok := target.(*oops.OopsError); ok {
		return false
	}
	return errors.As(e.Err, target)
}

// storeError wraps a store failure in a StoreError tagged CodeStoreFailed
// with the Service operation that failed.
func storeError(operation string, err error) error {
	b := oops.Code(CodeStoreFailed).With("operation", operation)
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			b = b.With("store_code", code)
		}
		if op, ok := oopsErr.Context()["operation"]; ok {
			b = b.With("store_operation", op)
		}
	}
	return b.Wrap(&StoreError{Operation: operation, Err: err})
}

// IsStoreError reports whether err is a persistence failure surfaced by Service.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
