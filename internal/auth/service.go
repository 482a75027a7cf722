// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/keyward/keyward/pkg/errutil"
)

// Service registers users, validates credentials and issues session tokens.
// It holds no state between calls; all mutable state lives in the UserStore.
type Service struct {
	store          UserStore
	hasher         PasswordHasher
	logger         *slog.Logger
	newToken       func() (string, error)
	equalizeTiming bool
	dummyHash      []byte
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTokenGenerator replaces the session token generator.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newToken = gen
	}
}

// WithEqualizedLoginTiming makes ValidateLogin run a password verification
// against a throwaway hash when the email is unknown, so both failure
// branches cost one hash comparison.
func WithEqualizedLoginTiming(enabled bool) Option {
	return func(s *Service) {
		s.equalizeTiming = enabled
	}
}

// NewService creates a Service over the given store and hasher.
func NewService(store UserStore, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, oops.Code(CodeInvalidConfig).Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code(CodeInvalidConfig).Errorf("password hasher is required")
	}

	s := &Service{
		store:    store,
		hasher:   hasher,
		logger:   slog.Default(),
		newToken: GenerateSessionToken,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Code(CodeInvalidConfig).Errorf("logger is required")
	}
	if s.newToken == nil {
		return nil, oops.Code(CodeInvalidConfig).Errorf("token generator is required")
	}

	if s.equalizeTiming {
		dummy, err := hasher.Hash(uuid.NewString())
		if err != nil {
			return nil, oops.Code(CodeInvalidConfig).
				With("operation", "hash timing placeholder").
				Wrap(err)
		}
		s.dummyHash = dummy
	}

	return s, nil
}

// Register creates a user with a salted hash of password.
// Returns ErrDuplicateUser (code AUTH_DUPLICATE_USER) if the email is taken;
// an existing user is never overwritten.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	start := time.Now()
	user, err := s.register(ctx, email, password)
	switch {
	case err == nil:
		recordOperation(opRegister, resultOK, start)
		s.logger.InfoContext(ctx, "user registered",
			"operation", opRegister,
			"user_id", user.ID.String(),
			"email", user.Email)
	case errors.Is(err, ErrDuplicateUser):
		recordOperation(opRegister, resultDuplicate, start)
		s.logger.InfoContext(ctx, "registration rejected, user exists",
			"operation", opRegister,
			"email", email)
	case isInvalidInput(err):
		recordOperation(opRegister, resultInvalid, start)
	default:
		recordOperation(opRegister, resultError, start)
	}
	return user, err
}

// isInvalidInput reports whether err rejects the caller's input rather than
// reporting a hashing or store failure.
func isInvalidInput(err error) bool {
	switch errutil.Code(err) {
	case CodeInvalidEmail, CodeEmptyPassword:
		return true
	}
	return false
}

func (s *Service) register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, emptyPassword()
	}
	email = NormalizeEmail(email)

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError("find user by email", err)
	}
	if existing.Found {
		return nil, duplicateUser()
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	user, err := s.store.InsertUser(ctx, email, hash)
	if err != nil {
		// A concurrent Register won the insert.
		if errors.Is(err, ErrDuplicateUser) {
			return nil, duplicateUser()
		}
		return nil, storeError("insert user", err)
	}
	return user, nil
}

// ValidateLogin reports whether password matches the stored hash for email.
// An unknown email and a wrong password both yield false with a nil error.
// Only store failures other than "not found" produce an error.
func (s *Service) ValidateLogin(ctx context.Context, email, password string) (bool, error) {
	start := time.Now()
	ok, err := s.validateLogin(ctx, email, password)
	switch {
	case err != nil:
		recordOperation(opValidateLogin, resultError, start)
	case ok:
		recordOperation(opValidateLogin, resultOK, start)
	default:
		recordOperation(opValidateLogin, resultInvalid, start)
	}
	return ok, err
}

func (s *Service) validateLogin(ctx context.Context, email, password string) (bool, error) {
	email = NormalizeEmail(email)
	// Empty input is rejected without a store lookup or hash work. The
	// result does not depend on whether the email exists, so this path
	// reveals nothing even with equalized timing.
	if email == "" || password == "" {
		return false, nil
	}

	res, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return false, storeError("find user by email", err)
	}
	if !res.Found {
		if s.equalizeTiming {
			_, _ = s.hasher.Verify(password, s.dummyHash) //nolint:errcheck // result is discarded
		}
		return false, nil
	}

	valid, err := s.hasher.Verify(password, res.User.HashedPassword)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash could not be verified",
			"operation", opValidateLogin,
			"user_id", res.User.ID.String(),
			"code", errutil.Code(err))
		return false, nil
	}
	return valid, nil
}

// CreateSession issues a new session token for email, replacing any previous
// token. ok is false, with a nil error, when no user has that email.
func (s *Service) CreateSession(ctx context.Context, email string) (token string, ok bool, err error) {
	start := time.Now()
	token, ok, err = s.createSession(ctx, email)
	switch {
	case err != nil:
		recordOperation(opCreateSession, resultError, start)
	case !ok:
		recordOperation(opCreateSession, resultAbsent, start)
	default:
		recordOperation(opCreateSession, resultOK, start)
	}
	return token, ok, err
}

func (s *Service) createSession(ctx context.Context, email string) (string, bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", false, nil
	}

	res, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return "", false, storeError("find user by email", err)
	}
	if !res.Found {
		return "", false, nil
	}

	token, err := s.newToken()
	if err != nil {
		return "", false, oops.With("operation", "generate session token").Wrap(err)
	}

	if err := s.store.UpdateUser(ctx, res.User.ID, FieldSessionToken, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, storeError("update session token", err)
	}

	s.logger.DebugContext(ctx, "session created",
		"operation", opCreateSession,
		"user_id", res.User.ID.String())

	return token, true, nil
}

// UserFromSession resolves a session token to the user holding it.
// ok is false when the token is empty or no longer current.
func (s *Service) UserFromSession(ctx context.Context, token string) (user *User, ok bool, err error) {
	start := time.Now()
	defer func() {
		switch {
		case err != nil:
			recordOperation(opUserFromSession, resultError, start)
		case !ok:
			recordOperation(opUserFromSession, resultAbsent, start)
		default:
			recordOperation(opUserFromSession, resultOK, start)
		}
	}()

	if token == "" {
		return nil, false, nil
	}

	res, err := s.store.FindBySessionToken(ctx, token)
	if err != nil {
		return nil, false, storeError("find user by session token", err)
	}
	if !res.Found {
		return nil, false, nil
	}
	return res.User, true, nil
}

func duplicateUser() error {
	return oops.Code(CodeDuplicateUser).
		With("operation", opRegister).
		Wrap(ErrDuplicateUser)
}
