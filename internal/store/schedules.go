package store

import (
	"context"
	"fmt"
	"time"

	"appointment-service/internal/schedule"
)

// ReadSchedule returns the provider's weekly schedule, or nil when none is stored.
func (s *Store) ReadSchedule(ctx context.Context, providerID string) (*schedule.WeeklySchedule, error) {
	q := `SELECT day_of_week,
	             COALESCE(to_char(start_time, 'HH24:MI'), ''),
	             COALESCE(to_char(end_time, 'HH24:MI'), ''),
	             available, updated_at
	      FROM availability_rules WHERE provider_id=$1 ORDER BY day_of_week`
	rows, err := s.db.Query(ctx, q, providerID)
	if err != nil {
		return nil, fmt.Errorf("store: read schedule: %w", err)
	}
	defer rows.Close()

	ws := &schedule.WeeklySchedule{ProviderID: providerID}
	for rows.Next() {
		var d schedule.DaySchedule
		var updated time.Time
		if err := rows.Scan(&d.DayOfWeek, &d.StartTime, &d.EndTime, &d.Available, &updated); err != nil {
			return nil, fmt.Errorf("store: scan schedule: %w", err)
		}
		if updated.After(ws.UpdatedAt) {
			ws.UpdatedAt = updated
		}
		ws.Days = append(ws.Days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read schedule: %w", err)
	}
	if len(ws.Days) == 0 {
		return nil, nil
	}
	return ws, nil
}

// SaveSchedule replaces every rule of the provider in one transaction.
func (s *Store) SaveSchedule(ctx context.Context, ws schedule.WeeklySchedule) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	ws.Sort()
	now := time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE provider_id=$1`, ws.ProviderID); err != nil {
		return fmt.Errorf("store: clear schedule: %w", err)
	}

	q := `INSERT INTO availability_rules
          (provider_id, day_of_week, start_time, end_time, available, created_at, updated_at)
          VALUES ($1, $2, NULLIF($3, '')::time, NULLIF($4, '')::time, $5, $6, $7)`
	for _, d := range ws.Days {
		if _, err := tx.Exec(ctx, q, ws.ProviderID, d.DayOfWeek, d.StartTime, d.EndTime, d.Available, now, now); err != nil {
			return fmt.Errorf("store: insert rule for day %d: %w", d.DayOfWeek, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit schedule: %w", err)
	}
	return nil
}
