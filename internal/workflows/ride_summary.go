package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/tripmetrics"
)

// TaskQueue is the default task queue of the summarizer worker.
const TaskQueue = "ride-summary-queue"

// RideSummaryInput is the input for the ride summary workflow.
type RideSummaryInput struct {
	RentalID string
}

// RideSummaryResult reports how a ride summary run ended.
// Outcome is "ok" or the name of the computation outcome that prevented a summary.
type RideSummaryResult struct {
	RentalID  string
	Outcome   string
	Summary   *domain.RideSummary
	Published bool
}

// WorkflowID is the workflow ID used for a rental, so each rental is summarized once.
func WorkflowID(rentalID string) string {
	return "ride-summary-" + rentalID
}

// RideSummaryWorkflow computes, stores and publishes the summary of a completed rental.
// A rental that cannot be summarized completes the workflow with its outcome rather than failing it.
func RideSummaryWorkflow(ctx workflow.Context, input RideSummaryInput) (*RideSummaryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting ride summary workflow", "rentalID", input.RentalID)

	computeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	})

	result := &RideSummaryResult{RentalID: input.RentalID}

	var summary domain.RideSummary
	err := workflow.ExecuteActivity(computeCtx, "ComputeRideSummary", input.RentalID).Get(ctx, &summary)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.NonRetryable() {
			logger.Info("Ride cannot be summarized", "rentalID", input.RentalID, "outcome", appErr.Type())
			result.Outcome = appErr.Type()
			return result, nil
		}
		return nil, err
	}
	result.Outcome = string(tripmetrics.OutcomeOK)
	result.Summary = &summary

	// Publishing only retries the broker call; the summary is already stored.
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    10,
		},
	})
	if err := workflow.ExecuteActivity(publishCtx, "PublishRideSummary", &summary).Get(ctx, nil); err != nil {
		logger.Warn("Ride summary publish failed", "rentalID", input.RentalID, "error", err)
		return nil, err
	}
	result.Published = true

	logger.Info("Ride summary published", "rentalID", input.RentalID, "distanceKm", summary.Metrics.TotalDistanceKm)
	return result, nil
}
