package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zeorvi/restaurant-reservations/internal/availability"
	"github.com/zeorvi/restaurant-reservations/internal/occupancy"
	"github.com/zeorvi/restaurant-reservations/internal/repository"
	"github.com/zeorvi/restaurant-reservations/internal/schedule"
)

// writeError maps engine and repository errors onto HTTP responses.
// Validation failures are 400, state conflicts 409, missing rows 404
// and transient persistence failures 503; anything unrecognized is a
// plain 500 without leaking internals.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, schedule.ErrInvalidTimeFormat),
		errors.Is(err, schedule.ErrInvalidDateExpression),
		errors.Is(err, availability.ErrInvalidPartySize):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, occupancy.ErrTableUnavailable),
		errors.Is(err, availability.ErrTableConflict),
		errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
