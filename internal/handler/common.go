package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/lakeview/spot-reservation/internal/database"
    "github.com/lakeview/spot-reservation/internal/model"
    "github.com/lakeview/spot-reservation/internal/repository"
)

// jsonError maps the repository and storage sentinel errors onto HTTP
// responses.  Every handler funnels unexpected errors through here so
// the status codes stay consistent across the API: 404 for missing rows,
// 409 for guard violations, 503 when the storage handle exhausted its
// reconnect attempt, 500 for everything else.
func jsonError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, repository.ErrInvalidTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid transition"})
    case errors.Is(err, repository.ErrTooLateToCancel):
        return c.JSON(http.StatusConflict, echo.Map{"error": "too late to cancel"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
    case errors.Is(err, database.ErrUnavailable):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// parseDay parses a calendar day in the canonical YYYY-MM-DD form.
func parseDay(s string) (time.Time, error) {
    return time.Parse(model.DayKey, s)
}
