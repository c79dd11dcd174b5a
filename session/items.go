package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Items persists the front end's key/value state for one session, so the
// signed-in user and API token survive between requests.
type Items struct {
	db        *sql.DB
	sessionID uuid.UUID
}

func (s *Items) GetItem(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM session_items WHERE session_id = $1 AND key = $2`

	var value string
	err := s.db.QueryRowContext(ctx, query, s.sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying session item: %w", err)
	}
	return value, true, nil
}

func (s *Items) SetItem(ctx context.Context, key, value string) error {
	query := `
        INSERT INTO session_items (session_id, key, value, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
    `
	_, err := s.db.ExecContext(ctx, query, s.sessionID, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving session item: %w", err)
	}
	return nil
}

func (s *Items) RemoveItem(ctx context.Context, key string) error {
	query := `DELETE FROM session_items WHERE session_id = $1 AND key = $2`
	_, err := s.db.ExecContext(ctx, query, s.sessionID, key)
	return err
}

func (s *Items) Clear(ctx context.Context) error {
	query := `DELETE FROM session_items WHERE session_id = $1`
	_, err := s.db.ExecContext(ctx, query, s.sessionID)
	return err
}
