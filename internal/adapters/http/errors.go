package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/tripmetrics"
	"github.com/samirrijal/ridemetrics/internal/core/usecases"
	"github.com/samirrijal/ridemetrics/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, insufficient_data, etc.
	Message   string `json:"message"` // Human-readable message
	Index     *int   `json:"index,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(apiError(c, status, code, message))
}

func apiError(c *fiber.Ctx, status int, code, message string) APIError {
	reqID, _ := c.Locals("requestid").(string)
	return APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	}
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// preferMinimal reports whether the client sent Prefer: return=minimal.
func preferMinimal(c *fiber.Ctx) bool {
	for _, p := range strings.Split(c.Get("Prefer"), ",") {
		if strings.EqualFold(strings.TrimSpace(p), "return=minimal") {
			return true
		}
	}
	return false
}

// errRide maps a ride use case error onto a response.
// Every computation outcome is a 422 carrying its outcome name as code.
func errRide(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrRentalNotFound) {
		return errNotFound(c, "rental not found")
	}
	if errors.Is(err, usecases.ErrEmptyRentalID) {
		return errBadRequest(c, err.Error())
	}

	outcome := usecases.OutcomeOf(err)
	if outcome == tripmetrics.OutcomeError {
		logging.FromContext(c.UserContext()).Error("ride summary failed", "error", err)
		return errInternal(c, "failed to compute ride summary")
	}

	body := apiError(c, fiber.StatusUnprocessableEntity, string(outcome), err.Error())
	if idx, ok := tripmetrics.RecordIndex(err); ok {
		body.Index = &idx
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
}
