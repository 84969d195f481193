package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/tripmetrics"
	"github.com/samirrijal/ridemetrics/internal/core/usecases"
)

// --- Mocks ---

type mockLocationRepo struct {
	listByRentalFn func(ctx context.Context, rentalID string) ([]domain.LocationRecord, error)
	calls          int
}

func (m *mockLocationRepo) ListByRental(ctx context.Context, rentalID string) ([]domain.LocationRecord, error) {
	m.calls++
	if m.listByRentalFn != nil {
		return m.listByRentalFn(ctx, rentalID)
	}
	return nil, domain.ErrRentalNotFound
}

type mockSummaryRepo struct {
	saveFn func(ctx context.Context, summary *domain.RideSummary) error
	getFn  func(ctx context.Context, rentalID string) (*domain.RideSummary, error)
}

func (m *mockSummaryRepo) Save(ctx context.Context, summary *domain.RideSummary) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, summary)
	}
	return nil
}

func (m *mockSummaryRepo) Get(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
	if m.getFn != nil {
		return m.getFn(ctx, rentalID)
	}
	return nil, domain.ErrSummaryNotFound
}

type mockCache struct {
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type mockPublisher struct {
	publishFn func(ctx context.Context, summary *domain.RideSummary) error
}

func (m *mockPublisher) PublishRideSummary(ctx context.Context, summary *domain.RideSummary) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, summary)
	}
	return nil
}

// --- Fixtures ---

func equatorRide() []domain.LocationRecord {
	return []domain.LocationRecord{
		{Timestamp: "2024-05-01T10:00:00Z", Coordinates: `{"lat":0,"lng":0}`},
		{Timestamp: "2024-05-01T11:00:00Z", Coordinates: `{"lat":0,"lng":1}`},
	}
}

func fixedRecords(records []domain.LocationRecord) *mockLocationRepo {
	return &mockLocationRepo{
		listByRentalFn: func(ctx context.Context, rentalID string) ([]domain.LocationRecord, error) {
			return records, nil
		},
	}
}

// --- Tests ---

func TestRideService_Summary_Computes(t *testing.T) {
	cache := newMockCache()
	svc := usecases.NewRideService(fixedRecords(equatorRide()), &mockSummaryRepo{}, cache, nil,
		usecases.SummaryPolicy{CacheTTLSeconds: 60})

	summary, err := svc.Summary(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RentalID != "r-1" {
		t.Errorf("expected rental r-1, got %s", summary.RentalID)
	}
	if math.Abs(summary.Metrics.TotalDistanceKm-111.19) > 0.01 {
		t.Errorf("expected ~111.19 km, got %f", summary.Metrics.TotalDistanceKm)
	}
	if summary.Metrics.TotalTimeHours != 1 {
		t.Errorf("expected 1 hour, got %f", summary.Metrics.TotalTimeHours)
	}
	if summary.PointCount != 2 {
		t.Errorf("expected 2 points, got %d", summary.PointCount)
	}
	if len(summary.StartGeohash) != 7 || summary.StartGeohash != "s000000" {
		t.Errorf("unexpected start geohash %q", summary.StartGeohash)
	}
	if summary.Bounds.MaxLng != 1 || summary.Bounds.MinLng != 0 {
		t.Errorf("unexpected bounds %+v", summary.Bounds)
	}
	if _, ok := cache.data["rides:summary:r-1"]; !ok {
		t.Error("expected summary to be cached")
	}
}

func TestRideService_Summary_CacheHit(t *testing.T) {
	cache := newMockCache()
	cached, _ := json.Marshal(domain.RideSummary{RentalID: "r-1", PointCount: 42})
	cache.data["rides:summary:r-1"] = cached

	repo := fixedRecords(equatorRide())
	svc := usecases.NewRideService(repo, nil, cache, nil, usecases.SummaryPolicy{CacheTTLSeconds: 60})

	summary, err := svc.Summary(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PointCount != 42 {
		t.Errorf("expected cached summary, got %+v", summary)
	}
	if repo.calls != 0 {
		t.Errorf("expected no repository call on cache hit, got %d", repo.calls)
	}
}

func TestRideService_Summary_StoredSummary(t *testing.T) {
	repo := fixedRecords(equatorRide())
	summaries := &mockSummaryRepo{
		getFn: func(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
			return &domain.RideSummary{RentalID: rentalID, PointCount: 7}, nil
		},
	}
	svc := usecases.NewRideService(repo, summaries, nil, nil, usecases.SummaryPolicy{})

	summary, err := svc.Summary(context.Background(), "r-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PointCount != 7 {
		t.Errorf("expected stored summary, got %+v", summary)
	}
	if repo.calls != 0 {
		t.Error("expected stored summary to short-circuit computation")
	}
}

func TestRideService_Summary_StoreFailureFallsBack(t *testing.T) {
	summaries := &mockSummaryRepo{
		getFn: func(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := usecases.NewRideService(fixedRecords(equatorRide()), summaries, nil, nil, usecases.SummaryPolicy{})

	summary, err := svc.Summary(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PointCount != 2 {
		t.Errorf("expected computed summary, got %+v", summary)
	}
}

func TestRideService_Summary_EmptyID(t *testing.T) {
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, nil, usecases.SummaryPolicy{})
	ctx := context.Background()
	if _, err := svc.Summary(ctx, ""); !errors.Is(err, usecases.ErrEmptyRentalID) {
		t.Errorf("Summary: expected ErrEmptyRentalID, got %v", err)
	}
	if _, err := svc.Coordinates(ctx, ""); !errors.Is(err, usecases.ErrEmptyRentalID) {
		t.Errorf("Coordinates: expected ErrEmptyRentalID, got %v", err)
	}
	if _, err := svc.Finalize(ctx, ""); !errors.Is(err, usecases.ErrEmptyRentalID) {
		t.Errorf("Finalize: expected ErrEmptyRentalID, got %v", err)
	}
	if got := usecases.OutcomeOf(usecases.ErrEmptyRentalID); got != tripmetrics.OutcomeError {
		t.Errorf("empty id is not a computation outcome, got %s", got)
	}
}

func TestRideService_Summary_RentalNotFound(t *testing.T) {
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, nil, usecases.SummaryPolicy{})
	_, err := svc.Summary(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRentalNotFound) {
		t.Errorf("expected ErrRentalNotFound, got %v", err)
	}
}

func TestRideService_Summary_InsufficientData(t *testing.T) {
	cache := newMockCache()
	svc := usecases.NewRideService(fixedRecords(equatorRide()[:1]), nil, cache, nil,
		usecases.SummaryPolicy{CacheTTLSeconds: 60})

	_, err := svc.Summary(context.Background(), "r-1")
	if !errors.Is(err, tripmetrics.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if len(cache.data) != 0 {
		t.Error("failed computations must not be cached")
	}
}

func TestRideService_Summarize_OutOfOrderLenient(t *testing.T) {
	records := []domain.LocationRecord{
		{Timestamp: "2024-05-01T10:00:00Z", Coordinates: `{"lat":0,"lng":0}`},
		{Timestamp: "2024-05-01T12:00:00Z", Coordinates: `{"lat":0,"lng":1}`},
		{Timestamp: "2024-05-01T11:00:00Z", Coordinates: `{"lat":0,"lng":2}`},
	}
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, nil, usecases.SummaryPolicy{})

	summary, err := svc.Summarize(context.Background(), records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary.Warnings) != 1 || summary.Warnings[0].Index != 1 {
		t.Fatalf("expected one warning at index 1, got %+v", summary.Warnings)
	}
	if summary.Warnings[0].DeltaSeconds != -3600 {
		t.Errorf("expected -3600s delta, got %f", summary.Warnings[0].DeltaSeconds)
	}
	if summary.Metrics.TotalTimeHours != 1 {
		t.Errorf("expected signed sum of 1 hour, got %f", summary.Metrics.TotalTimeHours)
	}
	if summary.RentalID != "" {
		t.Errorf("expected no rental id for ad-hoc summaries, got %q", summary.RentalID)
	}
}

func TestRideService_Summarize_OutOfOrderStrict(t *testing.T) {
	records := []domain.LocationRecord{
		{Timestamp: "2024-05-01T10:00:00Z", Coordinates: `{"lat":0,"lng":0}`},
		{Timestamp: "2024-05-01T12:00:00Z", Coordinates: `{"lat":0,"lng":1}`},
		{Timestamp: "2024-05-01T11:00:00Z", Coordinates: `{"lat":0,"lng":2}`},
	}
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, nil, usecases.SummaryPolicy{RejectOutOfOrder: true})

	_, err := svc.Summarize(context.Background(), records)
	if !errors.Is(err, usecases.ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	if usecases.OutcomeOf(err) != usecases.OutcomeOutOfOrder {
		t.Errorf("expected out_of_order outcome, got %s", usecases.OutcomeOf(err))
	}
}

func TestRideService_Summarize_MalformedCoordinate(t *testing.T) {
	records := []domain.LocationRecord{
		{Timestamp: "2024-05-01T10:00:00Z", Coordinates: `{"lat":0,"lng":0}`},
		{Timestamp: "2024-05-01T11:00:00Z", Coordinates: `not json`},
	}
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, nil, usecases.SummaryPolicy{})

	_, err := svc.Summarize(context.Background(), records)
	if !errors.Is(err, tripmetrics.ErrMalformedCoordinate) {
		t.Fatalf("expected ErrMalformedCoordinate, got %v", err)
	}
	if idx, ok := tripmetrics.RecordIndex(err); !ok || idx != 1 {
		t.Errorf("expected record index 1, got %d (%v)", idx, ok)
	}
}

func TestRideService_Summarize_NonPositiveDuration(t *testing.T) {
	records := []domain.LocationRecord{
		{Timestamp: "2024-05-01T10:00:00Z", Coordinates: `{"lat":0,"lng":0}`},
		{Timestamp: "2024-05-01T10:00:00Z", Coordinates: `{"lat":0,"lng":1}`},
	}
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, nil, usecases.SummaryPolicy{})

	_, err := svc.Summarize(context.Background(), records)
	if !errors.Is(err, tripmetrics.ErrNonPositiveDuration) {
		t.Errorf("expected ErrNonPositiveDuration, got %v", err)
	}
}

func TestRideService_Finalize_SavesAndInvalidates(t *testing.T) {
	var saved *domain.RideSummary
	summaries := &mockSummaryRepo{
		saveFn: func(ctx context.Context, summary *domain.RideSummary) error {
			saved = summary
			return nil
		},
	}
	cache := newMockCache()
	cache.data["rides:summary:r-1"] = []byte(`{}`)
	svc := usecases.NewRideService(fixedRecords(equatorRide()), summaries, cache, nil, usecases.SummaryPolicy{})

	summary, err := svc.Finalize(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved != summary {
		t.Error("expected computed summary to be saved")
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != "rides:summary:r-1" {
		t.Errorf("expected cache invalidation, got %v", cache.deleted)
	}
}

func TestRideService_Finalize_SaveError(t *testing.T) {
	summaries := &mockSummaryRepo{
		saveFn: func(ctx context.Context, summary *domain.RideSummary) error {
			return errors.New("disk full")
		},
	}
	svc := usecases.NewRideService(fixedRecords(equatorRide()), summaries, nil, nil, usecases.SummaryPolicy{})

	if _, err := svc.Finalize(context.Background(), "r-1"); err == nil {
		t.Error("expected save error")
	}
}

func TestRideService_Publish(t *testing.T) {
	var got string
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, summary *domain.RideSummary) error {
			got = summary.RentalID
			return nil
		},
	}
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, pub, usecases.SummaryPolicy{})

	if err := svc.Publish(context.Background(), &domain.RideSummary{RentalID: "r-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "r-1" {
		t.Errorf("expected r-1 to be published, got %q", got)
	}
}

func TestRideService_Publish_NoPublisher(t *testing.T) {
	svc := usecases.NewRideService(&mockLocationRepo{}, nil, nil, nil, usecases.SummaryPolicy{})
	if err := svc.Publish(context.Background(), &domain.RideSummary{RentalID: "r-1"}); err != nil {
		t.Errorf("expected nil error without publisher, got %v", err)
	}
}

func TestRideService_Coordinates(t *testing.T) {
	svc := usecases.NewRideService(fixedRecords(equatorRide()), nil, nil, nil, usecases.SummaryPolicy{})
	records, err := svc.Coordinates(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}
