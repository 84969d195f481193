package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/ridemetrics/internal/adapters/http"
	natsadapter "github.com/samirrijal/ridemetrics/internal/adapters/nats"
	"github.com/samirrijal/ridemetrics/internal/adapters/postgres"
	"github.com/samirrijal/ridemetrics/internal/adapters/valkey"
	"github.com/samirrijal/ridemetrics/internal/core/ports"
	"github.com/samirrijal/ridemetrics/internal/core/usecases"
	"github.com/samirrijal/ridemetrics/internal/pkg/config"
	"github.com/samirrijal/ridemetrics/internal/pkg/logging"
	"github.com/samirrijal/ridemetrics/internal/pkg/metrics"
	"github.com/samirrijal/ridemetrics/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("ridemetrics-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
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
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{DB: db}

	// Interface values stay nil when an optional backend is unavailable.
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr, "ridemetrics"); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer c.Close()
		cache = c
		deps.Cache = c
	}

	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer p.Close()
		publisher = p
		deps.Events = p
	}

	deps.Rides = usecases.NewRideService(
		postgres.NewLocationRepo(db.Pool),
		postgres.NewSummaryRepo(db.Pool),
		cache,
		publisher,
		usecases.SummaryPolicy{
			CacheTTLSeconds:  cfg.Rides.CacheTTL,
			RejectOutOfOrder: cfg.Rides.RejectOutOfOrder,
		},
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // a long ride is a few thousand fixes
		AppName:      "Ride Metrics API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Prefer, If-None-Match",
		ExposeHeaders:    "ETag, Link, Deprecation, Sunset, Preference-Applied",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
