package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"appointment-service/internal/booking"
)

const appointmentColumns = `id::text, user_id, specialist_id, specialist_name, service_id, service_name,
	date::text, start_time, end_time, start_at, end_at, status, notes, price::float8, created_at`

func scanAppointment(row pgx.Row) (booking.Appointment, error) {
	var a booking.Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.SpecialistID, &a.SpecialistName, &a.ServiceID, &a.ServiceName,
		&a.Date, &a.StartTime, &a.EndTime, &a.StartAt, &a.EndAt, &a.Status, &a.Notes, &a.Price, &a.CreatedAt)
	return a, err
}

// CreateAppointment writes the appointment and its calendar-event row in one
// transaction. Bookings for the same provider are serialized with an advisory
// lock, and any overlapping non-cancelled appointment fails the write with
// booking.ErrSlotUnavailable.
func (s *Store) CreateAppointment(ctx context.Context, a *booking.Appointment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, a.SpecialistID); err != nil {
		return "", fmt.Errorf("store: lock provider: %w", err)
	}

	checkQ := `SELECT id::text FROM appointments
	           WHERE specialist_id=$1 AND status <> 'cancelled'
	             AND start_at < $3 AND end_at > $2
	           LIMIT 1`
	var existingID string
	err = tx.QueryRow(ctx, checkQ, a.SpecialistID, a.StartAt.UTC(), a.EndAt.UTC()).Scan(&existingID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("store: overlap check: %w", err)
	}
	if existingID != "" {
		return "", booking.ErrSlotUnavailable
	}

	insertQ := `INSERT INTO appointments
		(id, user_id, specialist_id, specialist_name, service_id, service_name,
		 date, start_time, end_time, start_at, end_at, status, notes, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id::text`
	var newID string
	err = tx.QueryRow(ctx, insertQ,
		a.ID, a.UserID, a.SpecialistID, a.SpecialistName, a.ServiceID, a.ServiceName,
		a.Date, a.StartTime, a.EndTime, a.StartAt.UTC(), a.EndAt.UTC(), a.Status, a.Notes, a.Price, a.CreatedAt,
	).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("store: insert appointment: %w", err)
	}

	eventQ := `INSERT INTO calendar_events
		(id, appointment_id, provider_id, user_id, title, start_at, end_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	title := a.ServiceName + " with " + a.SpecialistName
	if _, err := tx.Exec(ctx, eventQ,
		uuid.NewString(), newID, a.SpecialistID, a.UserID, title, a.StartAt.UTC(), a.EndAt.UTC(), a.CreatedAt,
	); err != nil {
		return "", fmt.Errorf("store: insert calendar event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("store: commit appointment: %w", err)
	}
	return newID, nil
}

// ReadAppointmentsInRange returns the provider's non-cancelled appointments overlapping [from, to).
func (s *Store) ReadAppointmentsInRange(ctx context.Context, providerID string, from, to time.Time) ([]booking.Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments
	      WHERE specialist_id=$1 AND status <> 'cancelled'
	        AND start_at < $3 AND end_at > $2
	      ORDER BY start_at`
	return s.queryAppointments(ctx, q, providerID, from.UTC(), to.UTC())
}

func (s *Store) ListAppointmentsForUser(ctx context.Context, userID string) ([]booking.Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments
	      WHERE user_id=$1 ORDER BY start_at`
	return s.queryAppointments(ctx, q, userID)
}

func (s *Store) ReadAppointment(ctx context.Context, id string) (*booking.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id=$1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read appointment: %w", err)
	}
	return &a, nil
}

func (s *Store) queryAppointments(ctx context.Context, q string, args ...any) ([]booking.Appointment, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query appointments: %w", err)
	}
	defer rows.Close()

	var out []booking.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAppointmentStatus moves a scheduled appointment to completed or cancelled.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	var current string
	err := s.db.QueryRow(ctx, `SELECT status FROM appointments WHERE id=$1::uuid`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: read status: %w", err)
	}
	if !booking.ValidTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", booking.ErrInvalidTransition, current, status)
	}

	res, err := s.db.Exec(ctx, `UPDATE appointments SET status=$1 WHERE id=$2::uuid AND status=$3`, status, id, current)
	if err != nil {
		return fmt.Errorf("store: update status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: status changed concurrently", booking.ErrInvalidTransition)
	}
	return nil
}
