package domain

import (
	"errors"
	"time"
)

var (
	// ErrRentalNotFound is returned when a rental has no recorded fixes.
	ErrRentalNotFound = errors.New("rental not found")

	// ErrSummaryNotFound is returned when no summary was stored for a rental.
	ErrSummaryNotFound = errors.New("ride summary not found")
)

// LocationRecord is a raw GPS fix as produced by the tracking device feed.
// Coordinates is a JSON-encoded {"lat": ..., "lng": ...} object.
type LocationRecord struct {
	Timestamp   string `json:"timestamp"`
	Coordinates string `json:"coordinates"`
}

// TripMetrics is the aggregate of a trip. It is only ever built complete.
type TripMetrics struct {
	TotalDistanceKm float64 `json:"totalDistance"`
	TotalTimeHours  float64 `json:"totalTimeHours"`
	AverageSpeedKmh float64 `json:"averageSpeed"`
}

// OrderingWarning flags an adjacent pair (Index, Index+1) whose time delta is negative.
type OrderingWarning struct {
	Index        int     `json:"index"`
	DeltaSeconds float64 `json:"delta_seconds"`
}

// RideSummary is the service-level view of a finished rental.
type RideSummary struct {
	RentalID     string            `json:"rental_id"`
	Metrics      TripMetrics       `json:"metrics"`
	PointCount   int               `json:"point_count"`
	StartedAt    time.Time         `json:"started_at"`
	EndedAt      time.Time         `json:"ended_at"`
	StartGeohash string            `json:"start_geohash,omitempty"`
	EndGeohash   string            `json:"end_geohash,omitempty"`
	Bounds       Bounds            `json:"bounds"`
	Warnings     []OrderingWarning `json:"warnings,omitempty"`
	ComputedAt   time.Time         `json:"computed_at"`
}

// RentalCompleted is emitted by the rental system once a rental is closed.
type RentalCompleted struct {
	RentalID    string    `json:"rental_id"`
	CompletedAt time.Time `json:"completed_at"`
}
