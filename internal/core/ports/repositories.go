package ports

import (
	"context"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

// LocationRepository reads raw GPS fixes.
type LocationRepository interface {
	// ListByRental returns the fixes of a rental in the order they were recorded.
	// It returns domain.ErrRentalNotFound when the rental has none.
	ListByRental(ctx context.Context, rentalID string) ([]domain.LocationRecord, error)
}

// SummaryRepository persists computed ride summaries.
type SummaryRepository interface {
	Save(ctx context.Context, summary *domain.RideSummary) error
	Get(ctx context.Context, rentalID string) (*domain.RideSummary, error)
}
