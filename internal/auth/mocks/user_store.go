// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Package mocks provides testify mocks of the auth interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/keyward/keyward/internal/auth"
)

// MockUserStore is a mock of auth.UserStore.
type MockUserStore struct {
	mock.Mock
}

var _ auth.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates a MockUserStore whose expectations are asserted
// when the test ends.
func NewMockUserStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserStore {
	m := &MockUserStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByEmail provides a mock function.
func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (auth.FindResult, error) {
	ret := m.Called(ctx, email)
	if fn, ok := ret.Get(0).(func(context.Context, string) (auth.FindResult, error)); ok {
		return fn(ctx, email)
	}
	return ret.Get(0).(auth.FindResult), ret.Error(1) //nolint:errcheck,forcetypeassert // mock
}

// FindBySessionToken provides a mock function.
func (m *MockUserStore) FindBySessionToken(ctx context.Context, token string) (auth.FindResult, error) {
	ret := m.Called(ctx, token)
	if fn, ok := ret.Get(0).(func(context.Context, string) (auth.FindResult, error)); ok {
		return fn(ctx, token)
	}
	return ret.Get(0).(auth.FindResult), ret.Error(1) //nolint:errcheck,forcetypeassert // mock
}

// InsertUser provides a mock function.
func (m *MockUserStore) InsertUser(ctx context.Context, email string, hashedPassword []byte) (*auth.User, error) {
	ret := m.Called(ctx, email, hashedPassword)
	if fn, ok := ret.Get(0).(func(context.Context, string, []byte) (*auth.User, error)); ok {
		return fn(ctx, email, hashedPassword)
	}
	var user *auth.User
	if ret.Get(0) != nil {
		user = ret.Get(0).(*auth.User) //nolint:errcheck,forcetypeassert // mock
	}
	return user, ret.Error(1)
}

// UpdateUser provides a mock function.
func (m *MockUserStore) UpdateUser(ctx context.Context, id ulid.ULID, field auth.Field, value string) error {
	ret := m.Called(ctx, id, field, value)
	return ret.Error(0)
}
