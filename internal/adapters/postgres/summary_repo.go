package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

// SummaryRepo implements ports.SummaryRepository over ride_summaries.
type SummaryRepo struct {
	q Querier
}

// NewSummaryRepo creates a new SummaryRepo.
func NewSummaryRepo(q Querier) *SummaryRepo {
	return &SummaryRepo{q: q}
}

// Save inserts or replaces the summary of a rental.
func (r *SummaryRepo) Save(ctx context.Context, s *domain.RideSummary) error {
	warnings, err := json.Marshal(s.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO ride_summaries (
			rental_id, total_distance_km, total_time_hours, average_speed_kmh,
			point_count, started_at, ended_at, start_geohash, end_geohash,
			min_lat, min_lng, max_lat, max_lng, warnings, computed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (rental_id) DO UPDATE
		SET total_distance_km = EXCLUDED.total_distance_km,
		    total_time_hours = EXCLUDED.total_time_hours,
		    average_speed_kmh = EXCLUDED.average_speed_kmh,
		    point_count = EXCLUDED.point_count,
		    started_at = EXCLUDED.started_at,
		    ended_at = EXCLUDED.ended_at,
		    start_geohash = EXCLUDED.start_geohash,
		    end_geohash = EXCLUDED.end_geohash,
		    min_lat = EXCLUDED.min_lat, min_lng = EXCLUDED.min_lng,
		    max_lat = EXCLUDED.max_lat, max_lng = EXCLUDED.max_lng,
		    warnings = EXCLUDED.warnings,
		    computed_at = EXCLUDED.computed_at
	`, s.RentalID, s.Metrics.TotalDistanceKm, s.Metrics.TotalTimeHours, s.Metrics.AverageSpeedKmh,
		s.PointCount, s.StartedAt, s.EndedAt, s.StartGeohash, s.EndGeohash,
		s.Bounds.MinLat, s.Bounds.MinLng, s.Bounds.MaxLat, s.Bounds.MaxLng, warnings, s.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert ride summary: %w", err)
	}
	return nil
}

// Get returns the stored summary of a rental or domain.ErrSummaryNotFound.
func (r *SummaryRepo) Get(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
	var (
		s        domain.RideSummary
		warnings []byte
	)
	err := r.q.QueryRow(ctx, `
		SELECT rental_id, total_distance_km, total_time_hours, average_speed_kmh,
		       point_count, started_at, ended_at, start_geohash, end_geohash,
		       min_lat, min_lng, max_lat, max_lng, warnings, computed_at
		FROM ride_summaries WHERE rental_id = $1
	`, rentalID).Scan(
		&s.RentalID, &s.Metrics.TotalDistanceKm, &s.Metrics.TotalTimeHours, &s.Metrics.AverageSpeedKmh,
		&s.PointCount, &s.StartedAt, &s.EndedAt, &s.StartGeohash, &s.EndGeohash,
		&s.Bounds.MinLat, &s.Bounds.MinLng, &s.Bounds.MaxLat, &s.Bounds.MaxLng, &warnings, &s.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ride summary: %w", err)
	}

	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &s.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return &s, nil
}
