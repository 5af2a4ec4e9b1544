package payment

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lakeview/spot-reservation/internal/config"
)

func testGatewayConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		MerchantID: 12345,
		PosID:      12345,
		CRC:        "deadbeef",
		ReportKey:  "report-secret",
		BaseURL:    baseURL + "/api/v1",
		Sandbox:    true,
	}
}

func wantAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("12345:report-secret"))
}

func TestRegisterSignsAndParsesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/transaction/register" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != wantAuth() {
			t.Fatalf("authorization header = %q", got)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode register body: %v", err)
		}
		// Recompute the expected signature the way the gateway would.
		canonical := fmt.Sprintf(`{"sessionId":%q,"merchantId":%d,"amount":%d,"currency":"PLN","crc":%q}`,
			"sess-1", 12345, 14000, "deadbeef")
		sum := sha512.Sum384([]byte(canonical))
		if body["sign"] != hex.EncodeToString(sum[:]) {
			t.Fatalf("register signature mismatch: %v", body["sign"])
		}
		if body["amount"].(float64) != 14000 || body["currency"] != "PLN" {
			t.Fatalf("unexpected register payload: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"token": "gw-token-1"},
		})
	}))
	defer srv.Close()

	client := NewClient(testGatewayConfig(srv.URL))
	token, err := client.Register(context.Background(), RegisterRequest{
		SessionID:   "sess-1",
		Amount:      14000,
		Description: "Reservation 1",
		Email:       "guest@example.com",
		URLReturn:   "https://front/confirmation",
		URLStatus:   "https://back/v1/payment/p24/status",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token != "gw-token-1" {
		t.Fatalf("token = %q", token)
	}
	if got := client.RedirectURL(token); got != srv.URL+"/trnRequest/gw-token-1" {
		t.Fatalf("redirect url = %q", got)
	}
}

func TestRegisterEmptyTokenIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": "invalid sign"})
	}))
	defer srv.Close()

	client := NewClient(testGatewayConfig(srv.URL))
	if _, err := client.Register(context.Background(), RegisterRequest{SessionID: "s", Amount: 1}); err == nil {
		t.Fatalf("expected error on missing token")
	}
}

func TestStatusBySession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/transaction/by/sessionId/sess-9" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"status": 1, "amount": 7000, "orderId": 42, "currency": "PLN"},
		})
	}))
	defer srv.Close()

	client := NewClient(testGatewayConfig(srv.URL))
	st, err := client.StatusBySession(context.Background(), "sess-9")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != 1 || st.Amount != 7000 || st.OrderID != 42 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestVerifySignsAndReportsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/transaction/verify" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode verify body: %v", err)
		}
		canonical := fmt.Sprintf(`{"sessionId":%q,"orderId":%d,"amount":%d,"currency":"PLN","crc":%q}`,
			"sess-9", 42, 7000, "deadbeef")
		sum := sha512.Sum384([]byte(canonical))
		if body["sign"] != hex.EncodeToString(sum[:]) {
			t.Fatalf("verify signature mismatch: %v", body["sign"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"status": "success"},
		})
	}))
	defer srv.Close()

	client := NewClient(testGatewayConfig(srv.URL))
	ok, err := client.Verify(context.Background(), "sess-9", 42, 7000)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("verification should succeed")
	}
}

func TestDoSurfacesGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer srv.Close()

	client := NewClient(testGatewayConfig(srv.URL))
	if _, err := client.StatusBySession(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on 401")
	}
}
