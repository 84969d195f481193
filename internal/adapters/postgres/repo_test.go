package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

func TestLocationRepo_ListByRental(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT timestamp, coordinates\s+FROM gps_locations`).
		WithArgs("r-1").
		WillReturnRows(pgxmock.NewRows([]string{"timestamp", "coordinates"}).
			AddRow("2024-05-01T10:00:00Z", `{"lat":43.26,"lng":-2.93}`).
			AddRow("2024-05-01T10:05:00Z", `{"lat":43.27,"lng":-2.94}`))

	repo := NewLocationRepo(mock)
	records, err := repo.ListByRental(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Timestamp != "2024-05-01T10:05:00Z" {
		t.Errorf("unexpected order: %+v", records)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLocationRepo_ListByRental_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM gps_locations`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"timestamp", "coordinates"}))

	_, err = NewLocationRepo(mock).ListByRental(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRentalNotFound) {
		t.Fatalf("expected ErrRentalNotFound, got %v", err)
	}
}

func TestLocationRepo_ListByRental_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM gps_locations`).WithArgs("r-1").WillReturnError(errors.New("boom"))

	_, err = NewLocationRepo(mock).ListByRental(context.Background(), "r-1")
	if err == nil || errors.Is(err, domain.ErrRentalNotFound) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
}

func TestSummaryRepo_SaveAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	summary := &domain.RideSummary{
		RentalID:     "r-1",
		Metrics:      domain.TripMetrics{TotalDistanceKm: 2.5, TotalTimeHours: 0.25, AverageSpeedKmh: 10},
		PointCount:   3,
		StartedAt:    start,
		EndedAt:      start.Add(15 * time.Minute),
		StartGeohash: "ezs42e4",
		EndGeohash:   "ezs42e5",
		Bounds:       domain.Bounds{MinLat: 43.26, MinLng: -2.94, MaxLat: 43.27, MaxLng: -2.93},
		Warnings:     []domain.OrderingWarning{{Index: 1, DeltaSeconds: -4}},
		ComputedAt:   start.Add(time.Hour),
	}

	mock.ExpectExec(`INSERT INTO ride_summaries`).
		WithArgs("r-1", 2.5, 0.25, 10.0, 3, summary.StartedAt, summary.EndedAt, "ezs42e4", "ezs42e5",
			43.26, -2.94, 43.27, -2.93, pgxmock.AnyArg(), summary.ComputedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewSummaryRepo(mock)
	if err := repo.Save(context.Background(), summary); err != nil {
		t.Fatalf("save: %v", err)
	}

	mock.ExpectQuery(`SELECT rental_id, total_distance_km`).
		WithArgs("r-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"rental_id", "total_distance_km", "total_time_hours", "average_speed_kmh",
			"point_count", "started_at", "ended_at", "start_geohash", "end_geohash",
			"min_lat", "min_lng", "max_lat", "max_lng", "warnings", "computed_at",
		}).AddRow("r-1", 2.5, 0.25, 10.0, 3, summary.StartedAt, summary.EndedAt, "ezs42e4", "ezs42e5",
			43.26, -2.94, 43.27, -2.93, []byte(`[{"index":1,"delta_seconds":-4}]`), summary.ComputedAt))

	loaded, err := repo.Get(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Metrics.AverageSpeedKmh != 10 || loaded.PointCount != 3 {
		t.Errorf("unexpected summary %+v", loaded)
	}
	if len(loaded.Warnings) != 1 || loaded.Warnings[0].DeltaSeconds != -4 {
		t.Errorf("unexpected warnings %+v", loaded.Warnings)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSummaryRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM ride_summaries`).WithArgs("r-2").WillReturnError(pgx.ErrNoRows)

	_, err = NewSummaryRepo(mock).Get(context.Background(), "r-2")
	if !errors.Is(err, domain.ErrSummaryNotFound) {
		t.Fatalf("expected ErrSummaryNotFound, got %v", err)
	}
}
