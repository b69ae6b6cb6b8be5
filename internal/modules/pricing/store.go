// README: Pricing store backed by PostgreSQL (pricing_rates table).
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const rateColumns = `id::text, customer_type, distance_min_km, distance_max_km, rate_per_km::text, is_active, created_at, updated_at`

func (s *Store) ActiveRates(ctx context.Context) ([]Rate, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+rateColumns+`
        FROM pricing_rates
        WHERE is_active = true
        ORDER BY customer_type, distance_min_km`)
	if err != nil {
		return nil, fmt.Errorf("query active rates: %w", err)
	}
	return collectRates(rows)
}

func (s *Store) ListRates(ctx context.Context) ([]Rate, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+rateColumns+`
        FROM pricing_rates
        ORDER BY customer_type, distance_min_km`)
	if err != nil {
		return nil, fmt.Errorf("query rates: %w", err)
	}
	return collectRates(rows)
}

func (s *Store) CreateRate(ctx context.Context, in RateInput) (Rate, error) {
	row := s.db.QueryRow(ctx, `
        INSERT INTO pricing_rates (customer_type, distance_min_km, distance_max_km, rate_per_km, is_active)
        VALUES ($1, $2, $3, $4::numeric, $5)
        RETURNING `+rateColumns,
		string(in.CustomerType), in.DistanceMinKm, in.DistanceMaxKm, in.RatePerKm.String(), in.IsActive,
	)
	return scanRate(row)
}

func (s *Store) UpdateRate(ctx context.Context, id string, in RateInput) (Rate, error) {
	row := s.db.QueryRow(ctx, `
        UPDATE pricing_rates
        SET customer_type = $2,
            distance_min_km = $3,
            distance_max_km = $4,
            rate_per_km = $5::numeric,
            is_active = $6,
            updated_at = NOW()
        WHERE id = $1::uuid
        RETURNING `+rateColumns,
		id, string(in.CustomerType), in.DistanceMinKm, in.DistanceMaxKm, in.RatePerKm.String(), in.IsActive,
	)
	r, err := scanRate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrNotFound
	}
	return r, err
}

func (s *Store) DeleteRate(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM pricing_rates WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectRates(rows pgx.Rows) ([]Rate, error) {
	defer rows.Close()
	out := make([]Rate, 0)
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRate(row pgx.Row) (Rate, error) {
	var r Rate
	var customerType, ratePerKm string
	err := row.Scan(
		&r.ID, &customerType, &r.DistanceMinKm, &r.DistanceMaxKm, &ratePerKm,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return Rate{}, err
	}
	r.CustomerType = CustomerType(customerType)
	r.RatePerKm, err = decimal.NewFromString(ratePerKm)
	if err != nil {
		return Rate{}, fmt.Errorf("parse rate_per_km %q: %w", ratePerKm, err)
	}
	return r, nil
}
