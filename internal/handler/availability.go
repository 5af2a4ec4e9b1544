package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/lakeview/spot-reservation/internal/availability"
    "github.com/lakeview/spot-reservation/internal/repository"
)

// maxAvailabilityRangeDays caps one availability query; the calendar UI
// asks for at most two months at a time.
const maxAvailabilityRangeDays = 92

// PublicHandler exposes the unauthenticated browse endpoints: the spot
// inventory and the availability calendar.
type PublicHandler struct {
    Spots  *repository.SpotRepo
    Engine *availability.Engine
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(spots *repository.SpotRepo, engine *availability.Engine) *PublicHandler {
    if spots == nil || engine == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Spots: spots, Engine: engine}
}

// ListSpots handles GET /v1/spots and returns the active inventory.
func (h *PublicHandler) ListSpots(c echo.Context) error {
    spots, err := h.Spots.ListActive(c.Request().Context())
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"spots": spots})
}

// Range handles GET /v1/availability?from=YYYY-MM-DD&to=YYYY-MM-DD.  The
// range is end-exclusive; when "to" is omitted it defaults to 31 days
// after "from", and "from" defaults to today.  The response lists, per
// active spot, the busy days within the range.
func (h *PublicHandler) Range(c echo.Context) error {
    from := time.Now().UTC().Truncate(24 * time.Hour)
    if raw := c.QueryParam("from"); raw != "" {
        parsed, err := parseDay(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
        }
        from = parsed
    }
    to := from.AddDate(0, 0, 31)
    if raw := c.QueryParam("to"); raw != "" {
        parsed, err := parseDay(raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to"})
        }
        to = parsed
    }
    if !from.Before(to) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be after from"})
    }
    if to.Sub(from) > maxAvailabilityRangeDays*24*time.Hour {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "range too large"})
    }
    result, err := h.Engine.Range(c.Request().Context(), from, to)
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "from":  from.Format("2006-01-02"),
        "to":    to.Format("2006-01-02"),
        "spots": result,
    })
}
