package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS dashboard_users (
  identifier    TEXT PRIMARY KEY,
  password_hash TEXT NOT NULL,
  role          TEXT NOT NULL CHECK (role IN ('doctor', 'patient', 'nurse', 'admin', 'frontdesk')),
  display_name  TEXT NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// LookupUser returns model.ErrUserNotFound for an unknown identifier.
func (s *Store) LookupUser(ctx context.Context, identifier string) (model.User, error) {
	var (
		user model.User
		role string
	)
	row := s.pool.QueryRow(ctx, `
    SELECT identifier, password_hash, role, display_name
    FROM dashboard_users
    WHERE identifier = $1
  `, identifier)
	err := row.Scan(&user.Identifier, &user.PasswordHash, &role, &user.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	parsed, err := model.ParseRole(role)
	if err != nil {
		return model.User{}, fmt.Errorf("user %s: %w", identifier, err)
	}
	user.Role = parsed
	return user, nil
}

func (s *Store) UpsertUser(ctx context.Context, user model.User) error {
	if !user.Role.Valid() {
		return fmt.Errorf("invalid role %q", user.Role)
	}
	_, err := s.pool.Exec(ctx, `
    INSERT INTO dashboard_users (identifier, password_hash, role, display_name)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (identifier) DO UPDATE
    SET password_hash = EXCLUDED.password_hash,
        role = EXCLUDED.role,
        display_name = EXCLUDED.display_name,
        updated_at = now()
  `, user.Identifier, user.PasswordHash, string(user.Role), user.DisplayName)
	return err
}

func (s *Store) DeleteUser(ctx context.Context, identifier string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dashboard_users WHERE identifier = $1`, identifier)
	return err
}
