// Package session persists the authenticated session: the upstream bearer
// credential and the user record it belongs to. It never talks to the
// network; callers decide when a session is created or destroyed.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jkoblar/garrison/internal/model"
)

// Session is a restored authenticated session.
type Session struct {
	ID    string
	Token string
	User  model.User
}

// Store reads and writes sessions in the local database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a session store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Login persists the credential together with its user record and returns
// the new session ID. Both fields land in a single row with one INSERT, so
// a reader can never observe one without the other.
func (s *Store) Login(ctx context.Context, token string, user model.User) (string, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("encoding user record: %w", err)
	}

	id := uuid.NewString()
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, token, user_json) VALUES (?, ?, ?)`,
		id, token, string(userJSON),
	)
	if err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return id, nil
}

// Get restores the session with the given ID. A missing row yields (nil, nil).
// If the stored user record does not parse, the row is deleted and the
// session is reported as absent — a half-restored session is never returned.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var token, userJSON string
	err := s.DB.QueryRowContext(ctx,
		`SELECT token, user_json FROM sessions WHERE id = ?`, id,
	).Scan(&token, &userJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	var user model.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		slog.Warn("clearing session with malformed user record", "session", id, "error", err)
		if err := s.Logout(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &Session{ID: id, Token: token, User: user}, nil
}

// Logout removes the session unconditionally. Deleting a session that does
// not exist is not an error.
func (s *Store) Logout(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
