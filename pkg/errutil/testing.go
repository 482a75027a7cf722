// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package errutil

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that the code resolved for err is code.
// On mismatch the error's context is included in the failure message.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, code, Code(err), "context: %v", oopsErr.Context())
}

// AssertErrorContext asserts that the context resolved for err maps key to value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	ctx := oopsErr.Context()
	if assert.Contains(t, ctx, key, "context: %v", ctx) {
		assert.Equal(t, value, ctx[key], "context key %q", key)
	}
}

// AssertErrorAs asserts that err's chain holds an error of type E, checks
// its code with AssertErrorCode, and returns the typed error.
func AssertErrorAs[E error](t *testing.T, err error, code string) E {
	t.Helper()
	var target E
	require.True(t, errors.As(err, &target), "expected %T in chain of %v", target, err)
	AssertErrorCode(t, err, code)
	return target
}
