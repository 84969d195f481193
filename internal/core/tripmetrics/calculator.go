// Package tripmetrics folds an ordered sequence of GPS fixes into distance,
// elapsed time and average speed. It does no I/O and no logging.
package tripmetrics

import (
	"time"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/pkg/geospatial"
)

// Compute decodes records and accumulates their metrics.
//
// The returned error is one of ErrInsufficientData, *MalformedCoordinateError,
// *MalformedTimestampError or *NonPositiveDurationError; metrics must not be
// read when it is non-nil. Warnings are returned with every outcome reached
// after decoding, so callers can log them even when the trip is rejected.
func Compute(records []domain.LocationRecord) (domain.TripMetrics, []domain.OrderingWarning, error) {
	_, m, warnings, err := ComputeFixes(records)
	return m, warnings, err
}

// ComputeFixes is Compute that also returns the decoded fixes. Fixes are nil
// when decoding did not complete.
func ComputeFixes(records []domain.LocationRecord) ([]Fix, domain.TripMetrics, []domain.OrderingWarning, error) {
	if len(records) < 2 {
		return nil, domain.TripMetrics{}, nil, ErrInsufficientData
	}
	fixes, err := Decode(records)
	if err != nil {
		return nil, domain.TripMetrics{}, nil, err
	}
	m, warnings, err := Accumulate(fixes)
	return fixes, m, warnings, err
}

// Accumulate sums pairwise haversine distance and signed time deltas over fixes.
// Records are never reordered: a negative delta is kept in the total and reported.
func Accumulate(fixes []Fix) (domain.TripMetrics, []domain.OrderingWarning, error) {
	if len(fixes) < 2 {
		return domain.TripMetrics{}, nil, ErrInsufficientData
	}

	var (
		totalKm      float64
		totalSeconds float64
		warnings     []domain.OrderingWarning
	)
	for i := 0; i < len(fixes)-1; i++ {
		seconds := elapsedSeconds(fixes[i].Time, fixes[i+1].Time)
		if seconds < 0 {
			warnings = append(warnings, domain.OrderingWarning{Index: i, DeltaSeconds: seconds})
		}
		totalKm += geospatial.HaversineKm(fixes[i].Coord, fixes[i+1].Coord)
		totalSeconds += seconds
	}

	hours := totalSeconds / 3600
	if hours <= 0 {
		return domain.TripMetrics{}, warnings, &NonPositiveDurationError{Hours: hours}
	}

	return domain.TripMetrics{
		TotalDistanceKm: totalKm,
		TotalTimeHours:  hours,
		AverageSpeedKmh: totalKm / hours,
	}, warnings, nil
}

// elapsedSeconds is b minus a in seconds. time.Duration saturates past about
// 292 years, so the difference is taken on Unix seconds instead.
func elapsedSeconds(a, b time.Time) float64 {
	return float64(b.Unix()-a.Unix()) + float64(b.Nanosecond()-a.Nanosecond())/1e9
}
