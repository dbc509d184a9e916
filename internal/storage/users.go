package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUserExists indicates a duplicate sign-up email.
var ErrUserExists = errors.New("user already exists")

// User is a sign-in identity.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// CreateUser inserts a new identity and assigns its ID.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u == nil {
		return fmt.Errorf("nil user")
	}
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return fmt.Errorf("email required")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.ID = newID()
	u.Email = email
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email, password_hash, display_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, email, u.PasswordHash, nullString(u.DisplayName), u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByEmail retrieves a user by case-insensitive email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, password_hash, display_name, created_at FROM users WHERE email = ?`, strings.TrimSpace(email))
	return scanUser(row)
}

// UserByID retrieves a user by identifier.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, password_hash, display_name, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UpdateDisplayName changes the name shown for a user.
func (s *Store) UpdateDisplayName(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET display_name = ? WHERE id = ?`, nullString(name), id)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return requireAffected(res)
}

func scanUser(rs rowScanner) (*User, error) {
	var u User
	var name sql.NullString
	var created string
	if err := rs.Scan(&u.ID, &u.Email, &u.PasswordHash, &name, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.DisplayName = nullStringToString(name)
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		u.CreatedAt = t
	}
	return &u, nil
}
