package http

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/tripmetrics"
	"github.com/samirrijal/ridemetrics/internal/pkg/logging"
)

const maxRentalIDLength = 128

func rentalID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if id == "" {
		return "", errBadRequest(c, "rental id is required")
	}
	if len(id) > maxRentalIDLength {
		return "", errBadRequest(c, "rental id too long (max 128 characters)")
	}
	return id, nil
}

// RentalCoordinatesHandler returns the raw fixes of a rental, paginated.
func RentalCoordinatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := rentalID(c)
		if err != nil {
			return err
		}

		records, err := deps.Rides.Coordinates(c.UserContext(), id)
		if err != nil {
			return errRide(c, err)
		}

		pg := pageParams(c, len(records))
		start, end := pg.window()
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: records[start:end], Pagination: pg})
	}
}

// LegacyCoordinatesHandler serves the bare record array the map frontend parses.
// An unknown rental yields an empty array rather than an error object.
func LegacyCoordinatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := rentalID(c)
		if err != nil {
			return err
		}

		records, err := deps.Rides.Coordinates(c.UserContext(), id)
		if errors.Is(err, domain.ErrRentalNotFound) {
			return c.JSON([]domain.LocationRecord{})
		}
		if err != nil {
			return errRide(c, err)
		}
		return c.JSON(records)
	}
}

// RideSummaryHandler returns the summary of a rental.
func RideSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := rentalID(c)
		if err != nil {
			return err
		}

		summary, err := deps.Rides.Summary(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, tripmetrics.ErrInsufficientData) && preferMinimal(c) {
				c.Set("Preference-Applied", "return=minimal")
				return c.SendStatus(fiber.StatusNoContent)
			}
			return errRide(c, err)
		}
		return c.JSON(summary)
	}
}

// SummarizeHandler computes a summary for the records in the request body.
func SummarizeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var records []domain.LocationRecord
		if err := c.BodyParser(&records); err != nil {
			return errBadRequest(c, "body must be a JSON array of {timestamp, coordinates} records")
		}

		summary, err := deps.Rides.Summarize(c.UserContext(), records)
		if err != nil {
			return errRide(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(summary)
	}
}

// CompleteRentalHandler queues a closed rental for summarisation.
// The summary is computed asynchronously; the response only acknowledges the event.
func CompleteRentalHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := rentalID(c)
		if err != nil {
			return err
		}
		if deps.Events == nil {
			return newError(c, fiber.StatusServiceUnavailable, "unavailable", "event broker not configured")
		}

		event := &domain.RentalCompleted{RentalID: id, CompletedAt: time.Now().UTC()}
		if err := deps.Events.PublishRentalCompleted(c.UserContext(), event); err != nil {
			logging.FromContext(c.UserContext()).Error("publish rental completed", slog.String("rental_id", id), slog.Any("error", err))
			return newError(c, fiber.StatusServiceUnavailable, "unavailable", "could not queue rental")
		}

		c.Set(fiber.HeaderLocation, "/v1/rentals/"+id+"/summary")
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"rental_id": id,
			"status":    "queued",
		})
	}
}
