package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/lakeview/spot-reservation/internal/lifecycle"
    "github.com/lakeview/spot-reservation/internal/model"
    "github.com/lakeview/spot-reservation/internal/repository"
)

// AdminHandler groups the operator endpoints: spot inventory management,
// manual day blocks, forced reservation transitions and the ledger
// repair pass.  All routes sit behind JWT authentication plus the ADMIN
// role.
type AdminHandler struct {
    Spots        *repository.SpotRepo
    Blocks       *repository.BlockRepo
    Reservations *repository.ReservationRepo
    Machine      *lifecycle.Machine
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(spots *repository.SpotRepo, blocks *repository.BlockRepo,
    reservations *repository.ReservationRepo, machine *lifecycle.Machine) *AdminHandler {
    if spots == nil || blocks == nil || reservations == nil || machine == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Spots: spots, Blocks: blocks, Reservations: reservations, Machine: machine}
}

func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id != 0
}

// CreateSpot handles POST /v1/admin/spots.
func (h *AdminHandler) CreateSpot(c echo.Context) error {
    var body struct {
        Name     string `json:"name"`
        IsActive *bool  `json:"is_active"`
    }
    if err := c.Bind(&body); err != nil || body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    spot := &model.Spot{Name: body.Name, IsActive: true}
    if body.IsActive != nil {
        spot.IsActive = *body.IsActive
    }
    if err := h.Spots.Create(c.Request().Context(), spot); err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusCreated, spot)
}

// DeleteSpot handles DELETE /v1/admin/spots/:id.  Deletion is refused
// with 409 while live reservations still reference the spot.
func (h *AdminHandler) DeleteSpot(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
    }
    if err := h.Spots.Delete(c.Request().Context(), id); err != nil {
        return jsonError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListSpotReservations handles GET /v1/admin/spots/:id/reservations.
func (h *AdminHandler) ListSpotReservations(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Spots.GetByID(ctx, id); err != nil {
        return jsonError(c, err)
    }
    list, err := h.Reservations.ListBySpot(ctx, id)
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// AddBlock handles POST /v1/admin/spots/:id/blocks.  It places a manual
// block on a single day; lifecycle transitions never remove it.
func (h *AdminHandler) AddBlock(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
    }
    var body struct {
        Day string `json:"day"`
    }
    if err := c.Bind(&body); err != nil || body.Day == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "day is required"})
    }
    day, err := parseDay(body.Day)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day"})
    }
    ctx := c.Request().Context()
    if _, err := h.Spots.GetByID(ctx, id); err != nil {
        return jsonError(c, err)
    }
    if err := h.Blocks.AddAdmin(ctx, id, day); err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"spot_id": id, "day": body.Day, "source": model.SourceAdmin})
}

// RemoveBlock handles DELETE /v1/admin/spots/:id/blocks/:day.  It clears
// every block row on the day, regardless of source.
func (h *AdminHandler) RemoveBlock(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
    }
    day, err := parseDay(c.Param("day"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid day"})
    }
    if err := h.Blocks.RemoveDay(c.Request().Context(), id, day); err != nil {
        return jsonError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListBlocks handles GET /v1/admin/spots/:id/blocks.
func (h *AdminHandler) ListBlocks(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
    }
    entries, err := h.Blocks.ListBySpot(c.Request().Context(), id)
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"blocks": entries})
}

// TransitionReservation handles PATCH /v1/admin/reservations/:id/status.
// The operator may drive any edge of the transition table, including the
// admin cancellation that bypasses the guest lead-time guard and the
// refund completion edges.
func (h *AdminHandler) TransitionReservation(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body struct {
        Status model.Status `json:"status"`
    }
    if err := c.Bind(&body); err != nil || body.Status == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
    }
    if !body.Status.Valid() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
    }
    ctx := c.Request().Context()
    if err := h.Machine.Transition(ctx, id, body.Status); err != nil {
        return jsonError(c, err)
    }
    res, err := h.Reservations.GetByID(ctx, id)
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// RepairBlocks handles POST /v1/admin/repair-blocks.  It reconverges the
// lifecycle-owned ledger rows with the live reservation rows and reports
// how many rows were inserted and deleted.
func (h *AdminHandler) RepairBlocks(c echo.Context) error {
    result, err := lifecycle.RepairBlocks(c.Request().Context(), h.Reservations, h.Blocks)
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, result)
}
