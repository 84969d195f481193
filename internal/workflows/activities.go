package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/tripmetrics"
	"github.com/samirrijal/ridemetrics/internal/core/usecases"
)

// errTypeRentalNotFound is the application error type for a rental without fixes.
const errTypeRentalNotFound = "rental_not_found"

// RideActivities holds the activity implementations for the ride summary workflow.
type RideActivities struct {
	Rides *usecases.RideService
}

// ComputeRideSummary computes and stores the summary of a rental.
// Computation outcomes cannot change on retry and are returned as non-retryable errors
// whose type is the outcome name.
func (a *RideActivities) ComputeRideSummary(ctx context.Context, rentalID string) (*domain.RideSummary, error) {
	summary, err := a.Rides.Finalize(ctx, rentalID)
	if err == nil {
		return summary, nil
	}

	if errors.Is(err, domain.ErrRentalNotFound) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeRentalNotFound, err)
	}
	if outcome := usecases.OutcomeOf(err); outcome != tripmetrics.OutcomeError {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), string(outcome), err)
	}

	activity.GetLogger(ctx).Warn("ride summary attempt failed", "rental_id", rentalID, "error", err)
	return nil, fmt.Errorf("compute ride summary %s: %w", rentalID, err)
}

// PublishRideSummary announces a computed summary.
func (a *RideActivities) PublishRideSummary(ctx context.Context, summary *domain.RideSummary) error {
	return a.Rides.Publish(ctx, summary)
}
