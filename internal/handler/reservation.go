package handler

import (
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/lakeview/spot-reservation/internal/availability"
    "github.com/lakeview/spot-reservation/internal/captcha"
    "github.com/lakeview/spot-reservation/internal/config"
    "github.com/lakeview/spot-reservation/internal/lifecycle"
    "github.com/lakeview/spot-reservation/internal/model"
    "github.com/lakeview/spot-reservation/internal/payment"
    "github.com/lakeview/spot-reservation/internal/repository"
)

// ReservationHandler implements the guest-facing reservation endpoints.
// Guests never authenticate; a reservation is addressed exclusively by
// the opaque token returned at creation time, so possession of the token
// is the authorization.
type ReservationHandler struct {
    Reservations *repository.ReservationRepo
    Spots        *repository.SpotRepo
    Machine      *lifecycle.Machine
    Engine       *availability.Engine
    Reconciler   *payment.Reconciler
    Captcha      captcha.Verifier
    Cfg          *config.Config
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations *repository.ReservationRepo, spots *repository.SpotRepo,
    machine *lifecycle.Machine, engine *availability.Engine, reconciler *payment.Reconciler,
    verifier captcha.Verifier, cfg *config.Config) *ReservationHandler {
    if reservations == nil || spots == nil || machine == nil || engine == nil || cfg == nil {
        panic("nil dependency passed to NewReservationHandler")
    }
    return &ReservationHandler{
        Reservations: reservations,
        Spots:        spots,
        Machine:      machine,
        Engine:       engine,
        Reconciler:   reconciler,
        Captcha:      verifier,
        Cfg:          cfg,
    }
}

// Create handles POST /v1/reservations.  The body carries the spot, the
// stay range (end day exclusive), guest contact details and a captcha
// token.  Amount is optional; when omitted the price is the configured
// nightly rate times the number of nights.  On success the new pending
// reservation is returned with its access token; the guest has the
// pending TTL to start a payment before the reservation expires.
func (h *ReservationHandler) Create(c echo.Context) error {
    var body struct {
        SpotID       uint64  `json:"spot_id"`
        StartDate    string  `json:"start_date"`
        EndDate      string  `json:"end_date"`
        FirstName    string  `json:"first_name"`
        LastName     string  `json:"last_name"`
        Phone        string  `json:"phone"`
        Email        string  `json:"email"`
        Amount       float64 `json:"amount"`
        CaptchaToken string  `json:"captcha_token"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.SpotID == 0 || body.StartDate == "" || body.EndDate == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "spot_id, start_date and end_date are required"})
    }
    if body.FirstName == "" || body.LastName == "" || body.Email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest details are required"})
    }
    ctx := c.Request().Context()

    if h.Captcha != nil {
        ok, err := h.Captcha.Verify(ctx, body.CaptchaToken, c.RealIP())
        if err != nil {
            log.Printf("handler: captcha verification failed: %v", err)
            return c.JSON(http.StatusBadGateway, echo.Map{"error": "captcha verification unavailable"})
        }
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "captcha rejected"})
        }
    }

    start, err := parseDay(body.StartDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
    }
    end, err := parseDay(body.EndDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_date"})
    }
    if !start.Before(end) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be after start_date"})
    }
    today := time.Now().UTC().Truncate(24 * time.Hour)
    if start.Before(today) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date is in the past"})
    }

    spot, err := h.Spots.GetByID(ctx, body.SpotID)
    if err != nil {
        return jsonError(c, err)
    }
    if !spot.IsActive {
        return c.JSON(http.StatusConflict, echo.Map{"error": "spot is not available"})
    }

    free, err := h.Engine.IsFree(ctx, body.SpotID, start, end)
    if err != nil {
        return jsonError(c, err)
    }
    if !free {
        return c.JSON(http.StatusConflict, echo.Map{"error": "spot is already booked for the requested days"})
    }

    amount := body.Amount
    if amount <= 0 {
        amount = float64(model.Nights(start, end)) * h.Cfg.NightlyRate
    }
    res := &model.Reservation{
        Token:     uuid.NewString(),
        SpotID:    body.SpotID,
        StartDate: start,
        EndDate:   end,
        Amount:    amount,
        FirstName: body.FirstName,
        LastName:  body.LastName,
        Phone:     body.Phone,
        Email:     body.Email,
    }
    if err := h.Machine.Create(ctx, res); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "spot is already booked for the requested days"})
        }
        return jsonError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// reconcileIfInFlight runs an opportunistic reconciliation pass when the
// reservation is still awaiting its payment and a gateway session
// exists.  Guests land on the confirmation page right after paying, so
// this read path often confirms the payment seconds before the
// five-second sweep would.  Errors are logged and swallowed: the read
// must succeed even when the gateway is down.  The outcome is returned
// so callers can tell the guest about a declined payment instead of
// letting them poll forever.
func (h *ReservationHandler) reconcileIfInFlight(c echo.Context, res *model.Reservation) (*model.Reservation, payment.Outcome) {
    if h.Reconciler == nil || res.PaymentSessionID == "" {
        return res, payment.OutcomePending
    }
    if res.Status != model.StatusPending && res.Status != model.StatusPaymentInProgress {
        return res, payment.OutcomePending
    }
    ctx := c.Request().Context()
    outcome, err := h.Reconciler.CheckAndConfirm(ctx, res)
    if err != nil {
        log.Printf("handler: opportunistic reconciliation for reservation %d: %v", res.ID, err)
        return res, payment.OutcomeUnknown
    }
    if outcome != payment.OutcomeConfirmed {
        return res, outcome
    }
    fresh, err := h.Reservations.GetByID(ctx, res.ID)
    if err != nil {
        log.Printf("handler: reload reservation %d after confirmation: %v", res.ID, err)
        return res, outcome
    }
    return fresh, outcome
}

// paymentDeclinedPath is the frontend route the guest is redirected to
// after the gateway reports their transaction as not realized.
func paymentDeclinedPath(token string) string {
    return "/reservation-error/" + token + "?fromPayment=true"
}

// GetByToken handles GET /v1/reservations/token/:token.  Besides reading
// the row it reconciles an in-flight payment first, so the response the
// guest sees after returning from the gateway already says paid.  When
// the gateway declared the payment declined the reservation is returned
// with a payment_error flag and the error-page redirect; the row itself
// stays untouched so the guest may retry within the remaining TTL.
func (h *ReservationHandler) GetByToken(c echo.Context) error {
    res, err := h.Reservations.GetByToken(c.Request().Context(), c.Param("token"))
    if err != nil {
        return jsonError(c, err)
    }
    res, outcome := h.reconcileIfInFlight(c, res)
    if outcome == payment.OutcomeDeclined {
        return c.JSON(http.StatusOK, struct {
            *model.Reservation
            PaymentError bool   `json:"payment_error"`
            RedirectTo   string `json:"redirect_to"`
        }{res, true, paymentDeclinedPath(res.Token)})
    }
    return c.JSON(http.StatusOK, res)
}

// PollStatus handles GET /v1/reservations/token/:token/status.  A light
// variant of GetByToken for the confirmation page's polling loop: same
// opportunistic reconciliation, minimal body, same declined signalling.
func (h *ReservationHandler) PollStatus(c echo.Context) error {
    res, err := h.Reservations.GetByToken(c.Request().Context(), c.Param("token"))
    if err != nil {
        return jsonError(c, err)
    }
    res, outcome := h.reconcileIfInFlight(c, res)
    body := echo.Map{
        "status":     res.Status,
        "updated_at": res.UpdatedAt,
    }
    if outcome == payment.OutcomeDeclined {
        body["payment_error"] = true
        body["redirect_to"] = paymentDeclinedPath(res.Token)
    }
    return c.JSON(http.StatusOK, body)
}

// Cancel handles POST /v1/reservations/token/:token/cancel.  A pending
// reservation is cancelled outright; a paid one becomes a refund
// request, subject to the lead-time guard.  Any other state is rejected
// as an invalid transition.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    ctx := c.Request().Context()
    res, err := h.Reservations.GetByToken(ctx, c.Param("token"))
    if err != nil {
        return jsonError(c, err)
    }
    target := model.StatusCancelled
    if res.Status == model.StatusPaid {
        target = model.StatusRefundRequested
    }
    if err := h.Machine.Transition(ctx, res.ID, target); err != nil {
        return jsonError(c, err)
    }
    fresh, err := h.Reservations.GetByID(ctx, res.ID)
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, fresh)
}

// CanCancel handles GET /v1/reservations/token/:token/can-cancel.  The
// frontend uses it to decide whether to render the cancel button.
func (h *ReservationHandler) CanCancel(c echo.Context) error {
    res, err := h.Reservations.GetByToken(c.Request().Context(), c.Param("token"))
    if err != nil {
        return jsonError(c, err)
    }
    allowed := res.Status == model.StatusPending || h.Machine.CanCancel(res)
    return c.JSON(http.StatusOK, echo.Map{"allowed": allowed})
}

// CanRefund handles GET /v1/reservations/token/:token/can-refund.  Only
// a paid reservation within the lead-time window qualifies for a refund
// request.
func (h *ReservationHandler) CanRefund(c echo.Context) error {
    res, err := h.Reservations.GetByToken(c.Request().Context(), c.Param("token"))
    if err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"allowed": h.Machine.CanCancel(res)})
}
