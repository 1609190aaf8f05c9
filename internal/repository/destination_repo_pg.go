package repository

import (
	"context"
	"strings"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AirportRepository interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Airport, error)
}

type PGAirportRepository struct {
	db *pgxpool.Pool
}

func NewAirportRepository(db *pgxpool.Pool) AirportRepository {
	return &PGAirportRepository{db: db}
}

// Search matches the query against airport name, city and IATA code,
// case-insensitively.
func (r *PGAirportRepository) Search(ctx context.Context, query string, limit int) ([]domain.Airport, error) {
	term := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	rows, err := r.db.Query(ctx, `SELECT airport_id, name, city, iata_code
		FROM airports
		WHERE name ILIKE $1 OR city ILIKE $1 OR iata_code ILIKE $1
		LIMIT $2`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	airports := make([]domain.Airport, 0)
	for rows.Next() {
		var a domain.Airport
		if err := rows.Scan(&a.ID, &a.Name, &a.City, &a.IATACode); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

var _ AirportRepository = (*PGAirportRepository)(nil)
