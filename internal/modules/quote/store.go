// README: Request record store backed by PostgreSQL (convoyage_requests table).
package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"convoyage/internal/modules/pricing"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const requestColumns = `id::text, departure_location, arrival_location, vehicle_brand, vehicle_model,
               license_plate, vin_number, distance_km, customer_type, calculated_price::text,
               client_name, client_email, client_phone, company_name, siret_number, notes,
               status, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, r *Request) error {
	row := s.db.QueryRow(ctx, `
        INSERT INTO convoyage_requests (
            departure_location, arrival_location, vehicle_brand, vehicle_model,
            license_plate, vin_number, distance_km, customer_type, calculated_price,
            client_name, client_email, client_phone, company_name, siret_number, notes
        ) VALUES (
            $1, $2, $3, $4,
            $5, $6, $7, $8, $9::numeric,
            $10, $11, $12, $13, $14, $15
        )
        RETURNING id::text, status, created_at, updated_at`,
		r.DepartureLocation, r.ArrivalLocation, r.VehicleBrand, r.VehicleModel,
		r.LicensePlate, r.VINNumber, r.DistanceKm, string(r.CustomerType), r.CalculatedPrice.StringFixed(2),
		r.ClientName, r.ClientEmail, r.ClientPhone, r.CompanyName, r.SiretNumber, r.Notes,
	)
	return row.Scan(&r.ID, &r.Status, &r.CreatedAt, &r.UpdatedAt)
}

func (s *Store) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+requestColumns+`
        FROM convoyage_requests
        WHERE id = $1::uuid`, id)
	r, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	return r, err
}

// List returns requests newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Request, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `
        SELECT `+requestColumns+`
        FROM convoyage_requests
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	out := make([]*Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	var customerType, price string
	err := row.Scan(
		&r.ID, &r.DepartureLocation, &r.ArrivalLocation, &r.VehicleBrand, &r.VehicleModel,
		&r.LicensePlate, &r.VINNumber, &r.DistanceKm, &customerType, &price,
		&r.ClientName, &r.ClientEmail, &r.ClientPhone, &r.CompanyName, &r.SiretNumber, &r.Notes,
		&r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CustomerType = pricing.CustomerType(customerType)
	r.CalculatedPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse calculated_price %q: %w", price, err)
	}
	return &r, nil
}
