package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

// LocationRepo implements ports.LocationRepository over gps_locations.
type LocationRepo struct {
	q Querier
}

// NewLocationRepo creates a new LocationRepo. Pass db.Pool in production.
func NewLocationRepo(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

// ListByRental returns the raw fixes of a rental, oldest first.
// Timestamps and coordinates are returned as stored; decoding is left to the caller.
func (r *LocationRepo) ListByRental(ctx context.Context, rentalID string) ([]domain.LocationRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT timestamp, coordinates
		FROM gps_locations
		WHERE rental_id = $1
		ORDER BY recorded_at, id
	`, rentalID)
	if err != nil {
		return nil, fmt.Errorf("query gps_locations: %w", err)
	}
	defer rows.Close()

	var records []domain.LocationRecord
	for rows.Next() {
		var rec domain.LocationRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Coordinates); err != nil {
			return nil, fmt.Errorf("scan gps_locations: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrRentalNotFound
	}
	return records, nil
}
