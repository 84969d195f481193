package http

import (
	"context"

	"github.com/samirrijal/ridemetrics/internal/adapters/postgres"
	"github.com/samirrijal/ridemetrics/internal/adapters/valkey"
	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/usecases"
)

// RentalEvents announces closed rentals to the summarizer.
type RentalEvents interface {
	PublishRentalCompleted(ctx context.Context, event *domain.RentalCompleted) error
	Connected() bool
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Rides  *usecases.RideService
	Events RentalEvents
	DB     *postgres.DB
	Cache  *valkey.Cache
}
