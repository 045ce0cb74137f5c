package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Preference keys used by the report engine.
const (
	PrefTimezone   = "timezone"
	PrefCustomLogo = "custom_logo_base64"
)

// Preference returns the stored value for key, or fallback when unset.
func (s *Store) Preference(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM user_preferences WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, nil
}

// SetPreference inserts or updates a preference value.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_preferences (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// DeletePreference removes a preference value. Missing keys are not an error.
func (s *Store) DeletePreference(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM user_preferences WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}
