package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME/DATE -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// ErrUnavailable is returned when the storage backend cannot be reached
// even after the handle recreated its pool.  Handlers translate it into
// an HTTP 503 response; no automatic retries happen beyond the single
// reconnect attempt.
var ErrUnavailable = errors.New("storage unavailable")

// Handle owns the shared connection pool.  The pool is created at process
// start and lazily recreated when a connectivity fault is detected, so a
// dropped MySQL connection costs the triggering request one reconnect
// instead of taking the whole process down.  All repositories go through
// the same Handle.
type Handle struct {
	mu   sync.Mutex
	db   *sql.DB
	open func() (*sql.DB, error)
}

// NewHandle opens the initial pool and wraps it in a Handle.  The opener
// is retained so the pool can be rebuilt after a fault.
func NewHandle(user, pass, host, port, name string) (*Handle, error) {
	open := func() (*sql.DB, error) { return Open(user, pass, host, port, name) }
	db, err := open()
	if err != nil {
		return nil, err
	}
	return &Handle{db: db, open: open}, nil
}

// Wrap builds a Handle around an existing pool.  There is no opener, so a
// connectivity fault surfaces immediately instead of triggering a
// reconnect.  Used by tests and by callers that manage the pool lifecycle
// themselves.
func Wrap(db *sql.DB) *Handle {
	return &Handle{db: db}
}

// DB returns the current pool without any liveness check.  Prefer Run for
// operations that should survive a single connectivity fault.
func (h *Handle) DB() *sql.DB {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db
}

// Run executes op against the current pool.  When op fails with a
// connectivity error the pool is recreated and op runs once more; any
// second failure is reported as ErrUnavailable.  Non-connectivity errors
// pass through untouched so callers can match their own sentinels.
func (h *Handle) Run(ctx context.Context, op func(db *sql.DB) error) error {
	err := op(h.DB())
	if err == nil || !IsConnErr(err) {
		return err
	}
	if rerr := h.reconnect(ctx); rerr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err = op(h.DB()); err != nil {
		if IsConnErr(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}
	return nil
}

// Close tears down the pool at shutdown.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// reconnect swaps in a fresh pool.  The old pool is closed best-effort;
// in-flight statements on it fail and are retried by their own callers.
func (h *Handle) reconnect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open == nil {
		return ErrUnavailable
	}
	db, err := h.open()
	if err != nil {
		return err
	}
	if h.db != nil {
		_ = h.db.Close()
	}
	h.db = db

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(pingCtx)
}

// IsConnErr reports whether err looks like a lost or unreachable
// connection rather than a statement-level failure.  database/sql retries
// driver.ErrBadConn internally, so what reaches us is usually a network
// error or a MySQL shutdown error code.
func IsConnErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1053 server shutdown, 1077/1079 shutdown in progress
		switch myErr.Number {
		case 1053, 1077, 1079:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset")
}
