package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/padraicbc/rallyapi/models"
)

// UserByUsername loads a signin user.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().Model(user).
		Where("username = ?", strings.TrimSpace(username)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store.UserByUsername: %w", err)
	}
	return user, nil
}

// SaveUser creates a user or replaces the password and admin flag of an
// existing one.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	_, err := s.db.NewInsert().Model(user).
		On("CONFLICT (username) DO UPDATE").
		Set("password = EXCLUDED.password").
		Set("is_admin = EXCLUDED.is_admin").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store.SaveUser: %w", err)
	}
	return nil
}
