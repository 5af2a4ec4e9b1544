package handler

import (
    "fmt"
    "log"
    "net/http"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/lakeview/spot-reservation/internal/config"
    "github.com/lakeview/spot-reservation/internal/model"
    "github.com/lakeview/spot-reservation/internal/payment"
    "github.com/lakeview/spot-reservation/internal/repository"
)

// PaymentHandler implements payment registration and the gateway's
// server-to-server status callback.
type PaymentHandler struct {
    Reservations *repository.ReservationRepo
    Gateway      *payment.Client
    Reconciler   *payment.Reconciler
    Cfg          *config.Config
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(reservations *repository.ReservationRepo, gateway *payment.Client,
    reconciler *payment.Reconciler, cfg *config.Config) *PaymentHandler {
    if reservations == nil || gateway == nil || reconciler == nil || cfg == nil {
        panic("nil dependency passed to NewPaymentHandler")
    }
    return &PaymentHandler{Reservations: reservations, Gateway: gateway, Reconciler: reconciler, Cfg: cfg}
}

// CreatePayment handles POST /v1/payment/create.  It registers a gateway
// transaction for the reservation identified by token and returns the
// redirect URL the guest must open to pay.  Only a pending reservation
// may register: once a session exists and the payment window has opened,
// reconciliation checks exactly that session, and replacing it would
// orphan a late settlement of the old one.  A guest whose payment was
// declined stays pending and may simply register again.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
    var body struct {
        Token string `json:"token"`
    }
    if err := c.Bind(&body); err != nil || body.Token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
    }
    ctx := c.Request().Context()
    res, err := h.Reservations.GetByToken(ctx, body.Token)
    if err != nil {
        return jsonError(c, err)
    }
    if res.Status != model.StatusPending {
        return c.JSON(http.StatusConflict, echo.Map{"error": "a new payment can no longer be started for this reservation"})
    }

    sessionID := fmt.Sprintf("%d-%s", res.ID, uuid.NewString())
    gatewayToken, err := h.Gateway.Register(ctx, payment.RegisterRequest{
        SessionID:   sessionID,
        Amount:      model.MinorUnits(res.Amount),
        Description: fmt.Sprintf("Reservation %d, spot %d, %s - %s", res.ID, res.SpotID, res.StartDate.Format(model.DayKey), res.EndDate.Format(model.DayKey)),
        Email:       res.Email,
        URLReturn:   h.Cfg.FrontendURL + "/confirmation?token=" + res.Token,
        URLStatus:   h.Cfg.BackendURL + "/v1/payment/p24/status",
    })
    if err != nil {
        log.Printf("handler: register payment for reservation %d: %v", res.ID, err)
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
    }
    if err := h.Reservations.AttachPaymentSession(ctx, res.ID, sessionID, gatewayToken); err != nil {
        return jsonError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "session_id":   sessionID,
        "redirect_url": h.Gateway.RedirectURL(gatewayToken),
    })
}

// StatusCallback handles POST /v1/payment/p24/status, the webhook the
// gateway calls once the payer finishes.  The notification body is
// treated as a hint only: the handler re-reads the authoritative status
// from the gateway through the reconciler rather than trusting the
// posted fields.  The gateway retries on any non-200, so transient
// failures return 500 to request a retry.
func (h *PaymentHandler) StatusCallback(c echo.Context) error {
    var body struct {
        SessionID string `json:"sessionId"`
    }
    if err := c.Bind(&body); err != nil || body.SessionID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sessionId is required"})
    }
    ctx := c.Request().Context()
    res, err := h.Reservations.GetBySessionID(ctx, body.SessionID)
    if err != nil {
        return jsonError(c, err)
    }
    outcome, err := h.Reconciler.CheckAndConfirm(ctx, res)
    if err != nil {
        log.Printf("handler: status callback for session %s: %v", body.SessionID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
    }
    log.Printf("handler: status callback for session %s: %s", body.SessionID, outcome)
    return c.String(http.StatusOK, "OK")
}
