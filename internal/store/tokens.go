package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"appointment-service/internal/booking"
)

// SaveCalendarToken stores the provider's OAuth token (JSON) for the calendar mirror.
func (s *Store) SaveCalendarToken(ctx context.Context, providerID string, token []byte) error {
	q := `INSERT INTO calendar_tokens (provider_id, token, updated_at)
	      VALUES ($1, $2, $3)
	      ON CONFLICT (provider_id) DO UPDATE SET token=EXCLUDED.token, updated_at=EXCLUDED.updated_at`
	if _, err := s.db.Exec(ctx, q, providerID, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("store: save calendar token: %w", err)
	}
	return nil
}

func (s *Store) ReadCalendarToken(ctx context.Context, providerID string) ([]byte, error) {
	var token []byte
	err := s.db.QueryRow(ctx, `SELECT token FROM calendar_tokens WHERE provider_id=$1`, providerID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read calendar token: %w", err)
	}
	return token, nil
}
