// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/keyward/keyward/internal/auth"
)

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) ([]byte, error) {
	ret := m.Called(password)
	var hash []byte
	if ret.Get(0) != nil {
		hash = ret.Get(0).([]byte) //nolint:errcheck,forcetypeassert // mock
	}
	return hash, ret.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password string, hash []byte) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}
