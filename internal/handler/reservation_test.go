package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/lakeview/spot-reservation/internal/availability"
	"github.com/lakeview/spot-reservation/internal/config"
	"github.com/lakeview/spot-reservation/internal/database"
	"github.com/lakeview/spot-reservation/internal/lifecycle"
	"github.com/lakeview/spot-reservation/internal/model"
	"github.com/lakeview/spot-reservation/internal/payment"
	"github.com/lakeview/spot-reservation/internal/repository"
)

func reservationHandlerWithMock(t *testing.T, gatewayURL string) (*ReservationHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	h := database.Wrap(db)
	reservations := repository.NewReservationRepo(h)
	blocks := repository.NewBlockRepo(h)
	spots := repository.NewSpotRepo(h)
	machine := lifecycle.NewMachine(reservations, blocks, nil)
	engine := availability.NewEngine(blocks, reservations, spots, 900*time.Second)
	client := payment.NewClient(config.GatewayConfig{
		MerchantID: 1, PosID: 2, CRC: "crc", ReportKey: "key", BaseURL: gatewayURL,
	})
	handler := NewReservationHandler(reservations, spots, machine, engine,
		payment.NewReconciler(client, machine), nil, &config.Config{NightlyRate: 70})
	return handler, mock, func() { _ = db.Close() }
}

func tokenContext(t *testing.T, path, token string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues(token)
	return c, rec
}

func TestPollStatusSurfacesDeclinedPayment(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":0,"amount":14000,"orderId":0,"currency":"PLN"}}`))
	}))
	defer gw.Close()
	h, mock, cleanup := reservationHandlerWithMock(t, gw.URL)
	defer cleanup()

	mock.ExpectQuery("FROM reservations WHERE token").
		WithArgs("tok").
		WillReturnRows(reservationRow(t, model.StatusPaymentInProgress, "1-session"))

	c, rec := tokenContext(t, "/v1/reservations/token/tok/status", "tok")
	if err := h.PollStatus(c); err != nil {
		t.Fatalf("poll status: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Status       string `json:"status"`
		PaymentError bool   `json:"payment_error"`
		RedirectTo   string `json:"redirect_to"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != string(model.StatusPaymentInProgress) {
		t.Fatalf("a declined payment must not change the status, got %s", out.Status)
	}
	if !out.PaymentError {
		t.Fatalf("declined payment must set payment_error: %s", rec.Body.String())
	}
	if out.RedirectTo != "/reservation-error/tok?fromPayment=true" {
		t.Fatalf("redirect_to = %q", out.RedirectTo)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("a declined payment must not write anything: %v", err)
	}
}

func TestGetByTokenSurfacesDeclinedPayment(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":0,"amount":14000,"orderId":0,"currency":"PLN"}}`))
	}))
	defer gw.Close()
	h, mock, cleanup := reservationHandlerWithMock(t, gw.URL)
	defer cleanup()

	mock.ExpectQuery("FROM reservations WHERE token").
		WithArgs("tok").
		WillReturnRows(reservationRow(t, model.StatusPaymentInProgress, "1-session"))

	c, rec := tokenContext(t, "/v1/reservations/token/tok", "tok")
	if err := h.GetByToken(c); err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token        string `json:"token"`
		Status       string `json:"status"`
		PaymentError bool   `json:"payment_error"`
		RedirectTo   string `json:"redirect_to"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Token != "tok" || !out.PaymentError || out.RedirectTo == "" {
		t.Fatalf("declined payment must carry the reservation plus the error signal: %s", rec.Body.String())
	}
}

func TestPollStatusOmitsErrorSignalWhilePending(t *testing.T) {
	// Gateway still reports the session as unsettled (not status 0); the
	// poll body must stay free of the error fields so the client keeps
	// polling.
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"status":5,"amount":14000,"orderId":0,"currency":"PLN"}}`))
	}))
	defer gw.Close()
	h, mock, cleanup := reservationHandlerWithMock(t, gw.URL)
	defer cleanup()

	mock.ExpectQuery("FROM reservations WHERE token").
		WithArgs("tok").
		WillReturnRows(reservationRow(t, model.StatusPaymentInProgress, "1-session"))

	c, rec := tokenContext(t, "/v1/reservations/token/tok/status", "tok")
	if err := h.PollStatus(c); err != nil {
		t.Fatalf("poll status: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, present := out["payment_error"]; present {
		t.Fatalf("an unsettled payment must not look like an error: %s", rec.Body.String())
	}
}
