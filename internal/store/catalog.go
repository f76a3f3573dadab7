package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"appointment-service/internal/booking"
)

func (s *Store) ListProviders(ctx context.Context) ([]booking.Provider, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, role FROM providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list providers: %w", err)
	}
	defer rows.Close()

	var out []booking.Provider
	for rows.Next() {
		var p booking.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Role); err != nil {
			return nil, fmt.Errorf("store: scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ReadProvider(ctx context.Context, id string) (*booking.Provider, error) {
	var p booking.Provider
	err := s.db.QueryRow(ctx, `SELECT id, name, role FROM providers WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read provider: %w", err)
	}
	return &p, nil
}

const serviceColumns = `id, COALESCE(provider_id, ''), name, category, duration_minutes, price::float8`

// ReadServices lists the provider's own services plus global ones. An empty
// providerID lists every service; category narrows the result when set.
func (s *Store) ReadServices(ctx context.Context, providerID, category string) ([]booking.ServiceOffering, error) {
	q := `SELECT ` + serviceColumns + ` FROM services
	      WHERE ($1 = '' OR provider_id IS NULL OR provider_id = $1)
	        AND ($2 = '' OR category = $2)
	      ORDER BY name`
	rows, err := s.db.Query(ctx, q, providerID, category)
	if err != nil {
		return nil, fmt.Errorf("store: read services: %w", err)
	}
	defer rows.Close()

	var out []booking.ServiceOffering
	for rows.Next() {
		var sv booking.ServiceOffering
		if err := rows.Scan(&sv.ID, &sv.ProviderID, &sv.Name, &sv.Category, &sv.Duration, &sv.Price); err != nil {
			return nil, fmt.Errorf("store: scan service: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (s *Store) ReadService(ctx context.Context, id string) (*booking.ServiceOffering, error) {
	var sv booking.ServiceOffering
	err := s.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id).
		Scan(&sv.ID, &sv.ProviderID, &sv.Name, &sv.Category, &sv.Duration, &sv.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read service: %w", err)
	}
	return &sv, nil
}
