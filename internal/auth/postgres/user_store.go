// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

// Package postgres implements auth.UserStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/keyward/keyward/internal/auth"
)

// EmailIndex is the unique index enforcing one user per email.
const EmailIndex = "users_email_lower_idx"

// poolIface is the subset of *pgxpool.Pool used by UserStore.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// fieldColumns maps updatable fields to their columns.
var fieldColumns = map[auth.Field]string{
	auth.FieldSessionToken: "session_token",
}

const selectUser = `
		SELECT id, email, hashed_password, session_token, created_at, updated_at
		FROM users`

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	pool poolIface
	now  func() time.Time
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool, now: time.Now}
}

// FindByEmail retrieves a user by email (case-insensitive).
func (s *UserStore) FindByEmail(ctx context.Context, email string) (auth.FindResult, error) {
	row := s.pool.QueryRow(ctx, selectUser+`
		WHERE LOWER(email) = LOWER($1)
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.NotFound(), nil
	}
	if err != nil {
		return auth.FindResult{}, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return auth.Found(user), nil
}

// FindBySessionToken retrieves the user holding token.
func (s *UserStore) FindBySessionToken(ctx context.Context, token string) (auth.FindResult, error) {
	row := s.pool.QueryRow(ctx, selectUser+`
		WHERE session_token = $1
	`, token)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.NotFound(), nil
	}
	if err != nil {
		return auth.FindResult{}, oops.Code("USER_GET_BY_SESSION_FAILED").
			With("operation", "get user by session token").
			Wrap(err)
	}
	return auth.Found(user), nil
}

// InsertUser stores a new user. A unique violation on EmailIndex is
// reported as auth.ErrDuplicateUser.
func (s *UserStore) InsertUser(ctx context.Context, email string, hashedPassword []byte) (*auth.User, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	user := &auth.User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Email,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == EmailIndex {
			return nil, oops.Code("USER_DUPLICATE_EMAIL").
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrDuplicateUser)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return user, nil
}

// UpdateUser sets a single field on the user with the given ID.
func (s *UserStore) UpdateUser(ctx context.Context, id ulid.ULID, field auth.Field, value string) error {
	column, ok := fieldColumns[field]
	if !ok {
		return oops.Code("STORE_UNKNOWN_FIELD").
			With("field", string(field)).
			Errorf("unknown user field %q", field)
	}

	//nolint:gosec // G201: column comes from the fieldColumns allowlist
	query := fmt.Sprintf(`UPDATE users SET %s = $2, updated_at = $3 WHERE id = $1`, column)

	result, err := s.pool.Exec(ctx, query, id.String(), value, s.now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			With("field", string(field)).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns all users ordered by ID.
func (s *UserStore) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.pool.Query(ctx, selectUser+`
		ORDER BY id
	`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan user row").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// scanUser scans a single row into a User. Errors carry no code or
// operation; callers attach both. pgx.ErrNoRows is returned unwrapped.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr          string
		email          string
		hashedPassword []byte
		sessionToken   *string
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(&idStr, &email, &hashedPassword, &sessionToken, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.With("step", "scan user").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("step", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:             id,
		Email:          email,
		HashedPassword: hashedPassword,
		SessionToken:   sessionToken,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
