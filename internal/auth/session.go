// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package auth

import (
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// SessionTokenLength is the length of a token in canonical UUID form.
const SessionTokenLength = 36

// GenerateSessionToken returns a fresh random (version 4) UUID in canonical
// string form. It carries 122 bits of randomness from crypto/rand.
func GenerateSessionToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "uuid.NewRandom").
			Wrap(err)
	}
	return id.String(), nil
}
