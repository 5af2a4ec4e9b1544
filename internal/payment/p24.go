// Package payment integrates with the Przelewy24 payment gateway: it
// registers transactions, resolves their status by session id, and runs
// the server-to-server verification that releases the funds.  All three
// calls authenticate with HTTP Basic (posId:reportKey) and the write
// calls carry a SHA-384 signature over a canonical JSON document.
package payment

import (
    "bytes"
    "context"
    "crypto/sha512"
    "encoding/base64"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/lakeview/spot-reservation/internal/config"
)

// Client talks to the Przelewy24 REST API.
type Client struct {
    baseURL    string
    hostURL    string
    merchantID int
    posID      int
    crc        string
    reportKey  string
    httpClient *http.Client
}

// NewClient builds a gateway client from configuration.  The panel host
// (used for the guest redirect URL) is derived from the API base URL.
func NewClient(cfg config.GatewayConfig) *Client {
    host := strings.TrimSuffix(cfg.BaseURL, "/api/v1")
    return &Client{
        baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
        hostURL:    host,
        merchantID: cfg.MerchantID,
        posID:      cfg.PosID,
        crc:        cfg.CRC,
        reportKey:  cfg.ReportKey,
        httpClient: &http.Client{Timeout: 30 * time.Second},
    }
}

func (c *Client) basicAuth() string {
    creds := strconv.Itoa(c.posID) + ":" + c.reportKey
    return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// sign returns the lowercase hex SHA-384 digest of the canonical JSON
// encoding of v.  The gateway recomputes the digest over the same field
// order, so the structs passed here list fields exactly as the API
// documents them.
func sign(v interface{}) (string, error) {
    payload, err := json.Marshal(v)
    if err != nil {
        return "", err
    }
    sum := sha512.Sum384(payload)
    return hex.EncodeToString(sum[:]), nil
}

// registerSignInput is the signature base for transaction registration.
type registerSignInput struct {
    SessionID  string `json:"sessionId"`
    MerchantID int    `json:"merchantId"`
    Amount     int    `json:"amount"`
    Currency   string `json:"currency"`
    CRC        string `json:"crc"`
}

// verifySignInput is the signature base for transaction verification.
type verifySignInput struct {
    SessionID string `json:"sessionId"`
    OrderID   int64  `json:"orderId"`
    Amount    int    `json:"amount"`
    Currency  string `json:"currency"`
    CRC       string `json:"crc"`
}

// RegisterRequest describes one transaction to register.  Amount is in
// minor units (grosz).
type RegisterRequest struct {
    SessionID   string
    Amount      int
    Description string
    Email       string
    URLReturn   string
    URLStatus   string
}

type registerBody struct {
    MerchantID  int    `json:"merchantId"`
    PosID       int    `json:"posId"`
    SessionID   string `json:"sessionId"`
    Amount      int    `json:"amount"`
    Currency    string `json:"currency"`
    Description string `json:"description"`
    Email       string `json:"email"`
    Country     string `json:"country"`
    Language    string `json:"language"`
    URLReturn   string `json:"urlReturn"`
    URLStatus   string `json:"urlStatus"`
    Sign        string `json:"sign"`
}

// Register creates a transaction at the gateway and returns the gateway
// token the guest is redirected with.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
    s, err := sign(registerSignInput{
        SessionID:  req.SessionID,
        MerchantID: c.merchantID,
        Amount:     req.Amount,
        Currency:   "PLN",
        CRC:        c.crc,
    })
    if err != nil {
        return "", fmt.Errorf("sign register: %w", err)
    }
    body := registerBody{
        MerchantID:  c.merchantID,
        PosID:       c.posID,
        SessionID:   req.SessionID,
        Amount:      req.Amount,
        Currency:    "PLN",
        Description: req.Description,
        Email:       req.Email,
        Country:     "PL",
        Language:    "pl",
        URLReturn:   req.URLReturn,
        URLStatus:   req.URLStatus,
        Sign:        s,
    }
    var out struct {
        Data struct {
            Token string `json:"token"`
        } `json:"data"`
        Error string `json:"error"`
    }
    if err := c.do(ctx, http.MethodPost, "/transaction/register", body, &out); err != nil {
        return "", err
    }
    if out.Data.Token == "" {
        return "", fmt.Errorf("gateway register: empty token (error=%q)", out.Error)
    }
    return out.Data.Token, nil
}

// TransactionStatus is the gateway's view of one registered transaction.
// Status 0 means awaiting or declined, 1 means funds received but not yet
// verified, 2 means verified.
type TransactionStatus struct {
    Status   int    `json:"status"`
    Amount   int    `json:"amount"`
    OrderID  int64  `json:"orderId"`
    Currency string `json:"currency"`
}

// StatusBySession fetches the current transaction status for a payment
// session.  The call is bounded at 15 seconds so a slow gateway cannot
// stall a sweep; registration keeps the client's longer 30 second budget.
func (c *Client) StatusBySession(ctx context.Context, sessionID string) (*TransactionStatus, error) {
    ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
    defer cancel()
    var out struct {
        Data TransactionStatus `json:"data"`
    }
    path := "/transaction/by/sessionId/" + sessionID
    if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
        return nil, err
    }
    return &out.Data, nil
}

type verifyBody struct {
    MerchantID int    `json:"merchantId"`
    PosID      int    `json:"posId"`
    SessionID  string `json:"sessionId"`
    Amount     int    `json:"amount"`
    Currency   string `json:"currency"`
    OrderID    int64  `json:"orderId"`
    Sign       string `json:"sign"`
}

// Verify confirms receipt of the funds for an order.  It returns true
// when the gateway acknowledges the verification.  Verifying an already
// verified transaction succeeds again, so callers may retry freely.
func (c *Client) Verify(ctx context.Context, sessionID string, orderID int64, amount int) (bool, error) {
    ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
    defer cancel()
    s, err := sign(verifySignInput{
        SessionID: sessionID,
        OrderID:   orderID,
        Amount:    amount,
        Currency:  "PLN",
        CRC:       c.crc,
    })
    if err != nil {
        return false, fmt.Errorf("sign verify: %w", err)
    }
    body := verifyBody{
        MerchantID: c.merchantID,
        PosID:      c.posID,
        SessionID:  sessionID,
        Amount:     amount,
        Currency:   "PLN",
        OrderID:    orderID,
        Sign:       s,
    }
    var out struct {
        Data struct {
            Status string `json:"status"`
        } `json:"data"`
    }
    if err := c.do(ctx, http.MethodPut, "/transaction/verify", body, &out); err != nil {
        return false, err
    }
    return out.Data.Status == "success", nil
}

// RedirectURL returns the panel URL the guest must open to pay for the
// registered transaction.
func (c *Client) RedirectURL(token string) string {
    return c.hostURL + "/trnRequest/" + token
}

// do performs one authenticated API call and decodes the JSON response
// into out.  Non-2xx responses become errors carrying the response body,
// which is where the gateway puts its diagnostic messages.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
    var reader io.Reader
    if body != nil {
        payload, err := json.Marshal(body)
        if err != nil {
            return err
        }
        reader = bytes.NewReader(payload)
    }
    req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
    if err != nil {
        return err
    }
    req.Header.Set("Authorization", c.basicAuth())
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }
    resp, err := c.httpClient.Do(req)
    if err != nil {
        return fmt.Errorf("gateway %s %s: %w", method, path, err)
    }
    defer resp.Body.Close()
    raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
    if err != nil {
        return fmt.Errorf("gateway %s %s: read body: %w", method, path, err)
    }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, raw)
    }
    if out == nil {
        return nil
    }
    if err := json.Unmarshal(raw, out); err != nil {
        return fmt.Errorf("gateway %s %s: decode: %w", method, path, err)
    }
    return nil
}
