package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lakeview/spot-reservation/internal/config"
	"github.com/lakeview/spot-reservation/internal/utils"
)

func loginContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func testAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := utils.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return NewAuthHandler(&config.Config{
		JWTSecret:         "test-secret",
		AccessTTLMin:      15,
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: hash,
	})
}

func TestLoginIssuesToken(t *testing.T) {
	h := testAuthHandler(t)
	c, rec := loginContext(t, `{"email":"admin@example.com","password":"s3cret"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatalf("expected a signed access token")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := testAuthHandler(t)
	c, rec := loginContext(t, `{"email":"admin@example.com","password":"wrong"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	h := testAuthHandler(t)
	c, rec := loginContext(t, `{"email":"intruder@example.com","password":"s3cret"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	h := testAuthHandler(t)
	c, rec := loginContext(t, `{"email":"admin@example.com"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
