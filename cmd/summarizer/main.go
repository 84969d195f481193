package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/ridemetrics/internal/adapters/nats"
	"github.com/samirrijal/ridemetrics/internal/adapters/postgres"
	"github.com/samirrijal/ridemetrics/internal/adapters/valkey"
	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/ports"
	"github.com/samirrijal/ridemetrics/internal/core/usecases"
	"github.com/samirrijal/ridemetrics/internal/pkg/config"
	"github.com/samirrijal/ridemetrics/internal/pkg/logging"
	"github.com/samirrijal/ridemetrics/internal/pkg/telemetry"
	"github.com/samirrijal/ridemetrics/internal/workflows"
)

func main() {
	cfg, err := config.Load("ridemetrics-summarizer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr, "ridemetrics"); err != nil {
		slog.Warn("valkey unavailable, summaries will not be invalidated", "error", err)
	} else {
		defer c.Close()
		cache = c
	}

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	rides := usecases.NewRideService(
		postgres.NewLocationRepo(db.Pool),
		postgres.NewSummaryRepo(db.Pool),
		cache,
		publisher,
		usecases.SummaryPolicy{
			CacheTTLSeconds:  cfg.Rides.CacheTTL,
			RejectOutOfOrder: cfg.Rides.RejectOutOfOrder,
		},
	)

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RideSummaryWorkflow)
	w.RegisterActivity(&workflows.RideActivities{Rides: rides})

	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer subscriber.Close()

	err = subscriber.SubscribeRentalCompleted(ctx, func(ctx context.Context, event *domain.RentalCompleted) error {
		return startSummary(ctx, tc, cfg.Temporal.TaskQueue, event.RentalID)
	})
	if err != nil {
		log.Fatalf("subscribe rentals.completed: %v", err)
	}

	slog.Info("summarizer started", "task_queue", cfg.Temporal.TaskQueue)
	<-ctx.Done()
	slog.Info("summarizer stopping")
}

// startSummary starts the workflow for a rental. A redelivered event for a rental
// whose workflow already exists is not an error.
func startSummary(ctx context.Context, tc client.Client, taskQueue, rentalID string) error {
	opts := client.StartWorkflowOptions{
		ID:                    workflows.WorkflowID(rentalID),
		TaskQueue:             taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	run, err := tc.ExecuteWorkflow(ctx, opts, workflows.RideSummaryWorkflow, workflows.RideSummaryInput{RentalID: rentalID})
	if err != nil {
		if _, ok := err.(*serviceerror.WorkflowExecutionAlreadyStarted); ok {
			return nil
		}
		slog.Error("start ride summary workflow failed", "rental_id", rentalID, "error", err)
		return err
	}
	slog.Info("ride summary workflow started", "rental_id", rentalID, "run_id", run.GetRunID())
	return nil
}
