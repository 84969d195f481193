package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/ports"
	"github.com/samirrijal/ridemetrics/internal/core/tripmetrics"
	"github.com/samirrijal/ridemetrics/internal/pkg/logging"
	"github.com/samirrijal/ridemetrics/internal/pkg/metrics"
)

// ErrEmptyRentalID is returned when a rental lookup is given no ID.
var ErrEmptyRentalID = errors.New("rental id must not be empty")

// ErrOutOfOrder is returned under a strict policy when any pair of fixes goes back in time.
var ErrOutOfOrder = errors.New("fixes are out of chronological order")

// OutcomeOutOfOrder labels ErrOutOfOrder in metrics and API error codes.
const OutcomeOutOfOrder tripmetrics.Outcome = "out_of_order"

const geohashPrecision = 7

var tracer = otel.Tracer("github.com/samirrijal/ridemetrics/internal/core/usecases")

// SummaryPolicy controls caching and ordering strictness of RideService.
type SummaryPolicy struct {
	CacheTTLSeconds  int
	RejectOutOfOrder bool
}

// RideService turns recorded rental fixes into ride summaries.
type RideService struct {
	locations ports.LocationRepository
	summaries ports.SummaryRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	policy    SummaryPolicy
	now       func() time.Time
}

// NewRideService creates a new RideService. summaries, cache and publisher may be nil.
func NewRideService(
	locations ports.LocationRepository,
	summaries ports.SummaryRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	policy SummaryPolicy,
) *RideService {
	return &RideService{
		locations: locations,
		summaries: summaries,
		cache:     cache,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
	}
}

// OutcomeOf classifies err, including the strict-ordering rejection.
func OutcomeOf(err error) tripmetrics.Outcome {
	if errors.Is(err, ErrOutOfOrder) {
		return OutcomeOutOfOrder
	}
	return tripmetrics.Kind(err)
}

// Coordinates returns the raw fixes of a rental in recorded order.
func (s *RideService) Coordinates(ctx context.Context, rentalID string) ([]domain.LocationRecord, error) {
	if rentalID == "" {
		return nil, ErrEmptyRentalID
	}
	return s.locations.ListByRental(ctx, rentalID)
}

// Summary returns the summary of a rental: cached, then stored, then computed.
func (s *RideService) Summary(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
	if rentalID == "" {
		return nil, ErrEmptyRentalID
	}
	ctx, span := tracer.Start(ctx, "RideService.Summary", trace.WithAttributes(attribute.String("rental.id", rentalID)))
	defer span.End()

	cacheKey := "rides:summary:" + rentalID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var summary domain.RideSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				metrics.CacheHits.WithLabelValues("ride_summary").Inc()
				return &summary, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("ride_summary").Inc()
	}

	if s.summaries != nil {
		stored, err := s.summaries.Get(ctx, rentalID)
		switch {
		case err == nil:
			s.store(ctx, cacheKey, stored)
			return stored, nil
		case !errors.Is(err, domain.ErrSummaryNotFound):
			logging.FromContext(ctx).Warn("stored summary lookup failed", "rental_id", rentalID, "error", err)
		}
	}

	summary, err := s.compute(ctx, rentalID)
	if err != nil {
		span.SetStatus(codes.Error, string(OutcomeOf(err)))
		return nil, err
	}

	s.store(ctx, cacheKey, summary)
	return summary, nil
}

// Summarize computes a summary for caller-supplied records. Nothing is cached or stored.
func (s *RideService) Summarize(ctx context.Context, records []domain.LocationRecord) (*domain.RideSummary, error) {
	ctx, span := tracer.Start(ctx, "RideService.Summarize", trace.WithAttributes(attribute.Int("records", len(records))))
	defer span.End()

	summary, err := s.summarize(ctx, "", records)
	if err != nil {
		span.SetStatus(codes.Error, string(OutcomeOf(err)))
		return nil, err
	}
	return summary, nil
}

// Finalize computes and stores the summary of a completed rental.
func (s *RideService) Finalize(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
	if rentalID == "" {
		return nil, ErrEmptyRentalID
	}
	ctx, span := tracer.Start(ctx, "RideService.Finalize", trace.WithAttributes(attribute.String("rental.id", rentalID)))
	defer span.End()

	summary, err := s.compute(ctx, rentalID)
	if err != nil {
		span.SetStatus(codes.Error, string(OutcomeOf(err)))
		return nil, err
	}

	if s.summaries != nil {
		if err := s.summaries.Save(ctx, summary); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("save summary %s: %w", rentalID, err)
		}
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "rides:summary:"+rentalID)
	}
	return summary, nil
}

// Publish announces a summary to downstream consumers.
func (s *RideService) Publish(ctx context.Context, summary *domain.RideSummary) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishRideSummary(ctx, summary); err != nil {
		metrics.SummariesPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish summary %s: %w", summary.RentalID, err)
	}
	metrics.SummariesPublished.WithLabelValues("ok").Inc()
	return nil
}

func (s *RideService) compute(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
	records, err := s.locations.ListByRental(ctx, rentalID)
	if err != nil {
		if errors.Is(err, domain.ErrRentalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("list fixes for rental %s: %w", rentalID, err)
	}
	return s.summarize(ctx, rentalID, records)
}

func (s *RideService) summarize(ctx context.Context, rentalID string, records []domain.LocationRecord) (*domain.RideSummary, error) {
	log := logging.FromContext(ctx)
	if rentalID != "" {
		log = log.With("rental_id", rentalID)
	}

	fixes, tripMetrics, warnings, err := tripmetrics.ComputeFixes(records)

	for _, w := range warnings {
		log.Warn("negative time interval between fixes",
			"from", w.Index, "to", w.Index+1, "delta_seconds", w.DeltaSeconds)
	}
	metrics.OrderingWarnings.Add(float64(len(warnings)))

	if err == nil && s.policy.RejectOutOfOrder && len(warnings) > 0 {
		err = fmt.Errorf("%w: %d pair(s) go back in time", ErrOutOfOrder, len(warnings))
	}

	outcome := OutcomeOf(err)
	metrics.SummariesComputed.WithLabelValues(string(outcome)).Inc()
	if err != nil {
		log.Info("ride summary unavailable", "outcome", outcome, "records", len(records), "error", err)
		return nil, err
	}
	metrics.SummaryDistance.Observe(tripMetrics.TotalDistanceKm)

	first, last := fixes[0], fixes[len(fixes)-1]
	coords := make([]domain.GeoCoordinate, len(fixes))
	for i, f := range fixes {
		coords[i] = f.Coord
	}

	return &domain.RideSummary{
		RentalID:     rentalID,
		Metrics:      tripMetrics,
		PointCount:   len(fixes),
		StartedAt:    first.Time.UTC(),
		EndedAt:      last.Time.UTC(),
		StartGeohash: geohash.EncodeWithPrecision(first.Coord.Lat, first.Coord.Lng, geohashPrecision),
		EndGeohash:   geohash.EncodeWithPrecision(last.Coord.Lat, last.Coord.Lng, geohashPrecision),
		Bounds:       domain.BoundsOf(coords),
		Warnings:     warnings,
		ComputedAt:   s.now().UTC(),
	}, nil
}

func (s *RideService) store(ctx context.Context, key string, summary *domain.RideSummary) {
	if s.cache == nil || s.policy.CacheTTLSeconds <= 0 {
		return
	}
	if data, err := json.Marshal(summary); err == nil {
		_ = s.cache.Set(ctx, key, data, s.policy.CacheTTLSeconds)
	}
}
