package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses sweep intervals and TTL durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for
// deadlines, ints for identifiers the gateway requires to be numeric.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    JWTSecret         string // secret used to sign admin JWTs
    AccessTTLMin      int    // admin access token time-to-live in minutes
    AdminEmail        string // login for the single admin account
    AdminPasswordHash string // bcrypt hash of the admin password

    Gateway GatewayConfig // external payment gateway settings

    FrontendURL string // base URL the gateway redirects the payer back to
    BackendURL  string // base URL the gateway posts status callbacks to

    PendingTTL           time.Duration // T1: how long a pending reservation holds its dates
    PaymentTTL           time.Duration // T2: how long payment_in_progress may remain unresolved
    StatusSweepInterval  time.Duration // tick of the expiry sweep
    PaymentSweepInterval time.Duration // tick of the gateway reconciliation sweep

    NightlyRate   float64 // fallback price per night when the client sends no amount
    CaptchaSecret string  // shared secret for the human-verification service
}

// GatewayConfig carries the credentials and endpoints for the payment
// gateway.  MerchantID and PosID are numeric per the gateway contract;
// ReportKey is the secret half of the Basic credential and CRC is the
// shared secret mixed into request signatures.
type GatewayConfig struct {
    MerchantID int
    PosID      int
    CRC        string
    ReportKey  string
    BaseURL    string
    Sandbox    bool
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Sweep intervals and
// TTLs default to the production deadlines and are only overridden in
// tests or staging.
func Load() Config {
    sandbox := envBoolDef("P24_SANDBOX", false)
    baseURL := os.Getenv("P24_BASE_URL")
    if baseURL == "" {
        if sandbox {
            baseURL = "https://sandbox.przelewy24.pl/api/v1"
        } else {
            baseURL = "https://secure.przelewy24.pl/api/v1"
        }
    }
    return Config{
        Env:  must("APP_ENV"),
        Port: must("APP_PORT"),

        DBUser: must("DB_USER"),
        DBPass: os.Getenv("DB_PASS"), // empty allowed
        DBHost: must("DB_HOST"),
        DBPort: must("DB_PORT"),
        DBName: must("DB_NAME"),

        JWTSecret:         must("JWT_SECRET"),
        AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
        AdminEmail:        must("ADMIN_EMAIL"),
        AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),

        Gateway: GatewayConfig{
            MerchantID: mustInt("P24_MERCHANT_ID"),
            PosID:      mustInt("P24_POS_ID"),
            CRC:        must("P24_CRC"),
            ReportKey:  must("P24_REPORT_KEY"),
            BaseURL:    baseURL,
            Sandbox:    sandbox,
        },

        FrontendURL: envDef("FRONTEND_URL", "https://lakeview.example"),
        BackendURL:  envDef("BACKEND_URL", "http://localhost:8080"),

        PendingTTL:           envDurDef("RESERVATION_PENDING_TTL", 900*time.Second),
        PaymentTTL:           envDurDef("RESERVATION_PAYMENT_TTL", 330*time.Second),
        StatusSweepInterval:  envDurDef("STATUS_SWEEP_INTERVAL", time.Second),
        PaymentSweepInterval: envDurDef("PAYMENT_SWEEP_INTERVAL", 5*time.Second),

        NightlyRate:   envFloatDef("NIGHTLY_RATE", 70),
        CaptchaSecret: must("RECAPTCHA_SECRET_KEY"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// envDef returns the environment value or the given default when unset.
func envDef(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// envDurDef parses a duration environment variable, falling back to the
// default when unset.  A malformed value is fatal rather than silently
// replaced so a typo in a deadline never reaches production.
func envDurDef(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil {
        log.Fatalf("invalid duration for %s: %q", key, v)
    }
    return d
}

// envFloatDef parses a float environment variable with a default.
func envFloatDef(key string, def float64) float64 {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil {
        log.Fatalf("invalid number for %s: %q", key, v)
    }
    return f
}

// envBoolDef interprets common truthy/falsy spellings with a default.
func envBoolDef(key string, def bool) bool {
    switch os.Getenv(key) {
    case "1", "true", "TRUE", "True":
        return true
    case "0", "false", "FALSE", "False":
        return false
    }
    return def
}
