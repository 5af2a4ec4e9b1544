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
	"github.com/lakeview/spot-reservation/internal/database"
	"github.com/lakeview/spot-reservation/internal/repository"
)

func publicHandlerWithMock(t *testing.T) (*PublicHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	h := database.Wrap(db)
	spots := repository.NewSpotRepo(h)
	engine := availability.NewEngine(
		repository.NewBlockRepo(h),
		repository.NewReservationRepo(h),
		spots,
		900*time.Second,
	)
	return NewPublicHandler(spots, engine), mock, func() { _ = db.Close() }
}

func rangeContext(t *testing.T, query string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/availability"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRangeRejectsMalformedDates(t *testing.T) {
	h, _, cleanup := publicHandlerWithMock(t)
	defer cleanup()

	c, rec := rangeContext(t, "?from=10-09-2026")
	if err := h.Range(c); err != nil {
		t.Fatalf("range: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRangeRejectsInvertedRange(t *testing.T) {
	h, _, cleanup := publicHandlerWithMock(t)
	defer cleanup()

	c, rec := rangeContext(t, "?from=2026-09-10&to=2026-09-05")
	if err := h.Range(c); err != nil {
		t.Fatalf("range: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRangeRejectsOversizedRange(t *testing.T) {
	h, _, cleanup := publicHandlerWithMock(t)
	defer cleanup()

	c, rec := rangeContext(t, "?from=2026-01-01&to=2026-12-31")
	if err := h.Range(c); err != nil {
		t.Fatalf("range: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRangeReturnsPerSpotBusyDays(t *testing.T) {
	h, mock, cleanup := publicHandlerWithMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM spots WHERE is_active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_active"}).
			AddRow(1, "Spot 1", true))
	day, _ := time.Parse("2006-01-02", "2026-09-11")
	mock.ExpectQuery("FROM spot_blocks WHERE day >=").
		WithArgs("2026-09-10", "2026-09-13").
		WillReturnRows(sqlmock.NewRows([]string{"spot_id", "day", "source"}).
			AddRow(1, day, "admin"))
	mock.ExpectQuery("FROM reservations").
		WillReturnRows(sqlmock.NewRows(reservationColumnsListForTest()))

	c, rec := rangeContext(t, "?from=2026-09-10&to=2026-09-13")
	if err := h.Range(c); err != nil {
		t.Fatalf("range: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Spots []struct {
			SpotID   uint64   `json:"spot_id"`
			BusyDays []string `json:"busy_days"`
		} `json:"spots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Spots) != 1 || len(out.Spots[0].BusyDays) != 1 || out.Spots[0].BusyDays[0] != "2026-09-11" {
		t.Fatalf("unexpected availability payload: %s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func reservationColumnsListForTest() []string {
	return []string{"id", "token", "spot_id", "start_date", "end_date", "status", "amount",
		"payment_session_id", "gateway_token", "first_name", "last_name", "phone", "email",
		"created_at", "updated_at"}
}
