package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/lakeview/spot-reservation/internal/database"
    "github.com/lakeview/spot-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations table.  All
// timestamp fields are stored in UTC.  Status writes go exclusively
// through UpdateStatusCAS so that two concurrent callers can never both
// succeed with stale preconditions; every other method is read-only or
// touches non-status columns.
type ReservationRepo struct {
    h *database.Handle
}

// NewReservationRepo returns a new ReservationRepo bound to the given handle.
func NewReservationRepo(h *database.Handle) *ReservationRepo { return &ReservationRepo{h: h} }

// Handle exposes the underlying storage handle for callers that need to
// coordinate a transaction across repositories.
func (r *ReservationRepo) Handle() *database.Handle { return r.h }

const reservationColumns = `id, token, spot_id, start_date, end_date, status, amount,
       payment_session_id, gateway_token, first_name, last_name, phone, email,
       created_at, updated_at`

// scanReservation reads one row into a model.Reservation.  Nullable
// gateway correlation columns collapse to empty strings.
func scanReservation(row interface{ Scan(...interface{}) error }) (*model.Reservation, error) {
    var res model.Reservation
    var sessionID, gatewayToken sql.NullString
    err := row.Scan(
        &res.ID, &res.Token, &res.SpotID, &res.StartDate, &res.EndDate, &res.Status, &res.Amount,
        &sessionID, &gatewayToken, &res.FirstName, &res.LastName, &res.Phone, &res.Email,
        &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    res.PaymentSessionID = sessionID.String
    res.GatewayToken = gatewayToken.String
    return &res, nil
}

// Create inserts a new pending reservation and populates the generated ID
// and timestamps on the provided record.  The status column is written
// verbatim; callers must pass model.StatusPending for client-created rows.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    return r.h.Run(ctx, func(db *sql.DB) error {
        const q = `INSERT INTO reservations
                   (token, spot_id, start_date, end_date, status, amount, first_name, last_name, phone, email)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
        result, err := db.ExecContext(ctx, q,
            res.Token, res.SpotID, res.StartDate.Format(model.DayKey), res.EndDate.Format(model.DayKey),
            res.Status, res.Amount, res.FirstName, res.LastName, res.Phone, res.Email)
        if err != nil {
            return err
        }
        id, err := result.LastInsertId()
        if err != nil {
            return err
        }
        res.ID = uint64(id)
        // Query back the full row to populate timestamps and defaults
        const sel = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
        got, err := scanReservation(db.QueryRowContext(ctx, sel, res.ID))
        if err != nil {
            return err
        }
        *res = *got
        return nil
    })
}

// GetByID returns a reservation by primary key or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    var res *model.Reservation
    err := r.h.Run(ctx, func(db *sql.DB) error {
        const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
        var err error
        res, err = scanReservation(db.QueryRowContext(ctx, q, id))
        return err
    })
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// GetByToken returns a reservation by its public opaque token or
// ErrNotFound.  The token is the only identifier clients ever see.
func (r *ReservationRepo) GetByToken(ctx context.Context, token string) (*model.Reservation, error) {
    var res *model.Reservation
    err := r.h.Run(ctx, func(db *sql.DB) error {
        const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE token = ?`
        var err error
        res, err = scanReservation(db.QueryRowContext(ctx, q, token))
        return err
    })
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// GetBySessionID returns the reservation correlated with a gateway
// payment session, or ErrNotFound.  Used by the status callback.
func (r *ReservationRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Reservation, error) {
    var res *model.Reservation
    err := r.h.Run(ctx, func(db *sql.DB) error {
        const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE payment_session_id = ?`
        var err error
        res, err = scanReservation(db.QueryRowContext(ctx, q, sessionID))
        return err
    })
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// UpdateStatusCAS performs the conditional status write that arbitrates
// every transition.  The UPDATE is guarded by the previously-read status,
// so of any number of concurrent callers exactly one observes swapped ==
// true; the losers see false and must re-read before deciding anything.
func (r *ReservationRepo) UpdateStatusCAS(ctx context.Context, id uint64, from, to model.Status) (bool, error) {
    var swapped bool
    err := r.h.Run(ctx, func(db *sql.DB) error {
        const q = `UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
        result, err := db.ExecContext(ctx, q, to, id, from)
        if err != nil {
            return err
        }
        n, err := result.RowsAffected()
        if err != nil {
            return err
        }
        swapped = n == 1
        return nil
    })
    return swapped, err
}

// AttachPaymentSession stores the gateway correlation pair produced by a
// successful transaction registration.  It does not touch the status
// column: attaching a session while pending is not a lifecycle edge.
func (r *ReservationRepo) AttachPaymentSession(ctx context.Context, id uint64, sessionID, gatewayToken string) error {
    return r.h.Run(ctx, func(db *sql.DB) error {
        const q = `UPDATE reservations SET payment_session_id = ?, gateway_token = ? WHERE id = ?`
        result, err := db.ExecContext(ctx, q, sessionID, gatewayToken, id)
        if err != nil {
            return err
        }
        n, err := result.RowsAffected()
        if err != nil {
            return err
        }
        if n == 0 {
            return ErrNotFound
        }
        return nil
    })
}

// Delete removes a reservation row outright.  Only the lifecycle layer
// calls this, to unwind a freshly inserted reservation that lost the
// ledger race before it ever held a block; settled rows are never
// deleted.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
    return r.h.Run(ctx, func(db *sql.DB) error {
        const q = `DELETE FROM reservations WHERE id = ?`
        result, err := db.ExecContext(ctx, q, id)
        if err != nil {
            return err
        }
        n, err := result.RowsAffected()
        if err != nil {
            return err
        }
        if n == 0 {
            return ErrNotFound
        }
        return nil
    })
}

// ListPendingOlderThan selects pending reservations whose age from
// created_at has reached ttl.  The selection predicate is what makes the
// expiry sweep idempotent: a row moved out of pending no longer matches.
func (r *ReservationRepo) ListPendingOlderThan(ctx context.Context, ttl time.Duration) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE status = ? AND TIMESTAMPDIFF(SECOND, created_at, UTC_TIMESTAMP()) >= ?`
    return r.list(ctx, q, model.StatusPending, int64(ttl.Seconds()))
}

// ListPaymentInProgressOlderThan selects payment_in_progress reservations
// whose updated_at is at least ttl in the past.  Reaching this deadline
// means the gateway reconciliation did not confirm in time.
func (r *ReservationRepo) ListPaymentInProgressOlderThan(ctx context.Context, ttl time.Duration) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE status = ? AND TIMESTAMPDIFF(SECOND, updated_at, UTC_TIMESTAMP()) >= ?`
    return r.list(ctx, q, model.StatusPaymentInProgress, int64(ttl.Seconds()))
}

// ListPaymentInProgress selects every reservation currently awaiting
// gateway confirmation, regardless of age.  The reconciliation sweep
// checks each of these against the gateway.
func (r *ReservationRepo) ListPaymentInProgress(ctx context.Context) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE status = ?`
    return r.list(ctx, q, model.StatusPaymentInProgress)
}

// ListOverlapping returns reservations in the given statuses whose date
// range intersects [from, to).  Used by the availability engine.
func (r *ReservationRepo) ListOverlapping(ctx context.Context, from, to time.Time, statuses []model.Status) ([]model.Reservation, error) {
    if len(statuses) == 0 {
        return nil, nil
    }
    q := `SELECT ` + reservationColumns + ` FROM reservations
          WHERE start_date < ? AND end_date > ? AND status IN (`
    args := []interface{}{to.Format(model.DayKey), from.Format(model.DayKey)}
    for i, s := range statuses {
        if i > 0 {
            q += ","
        }
        q += "?"
        args = append(args, s)
    }
    q += ")"
    return r.list(ctx, q, args...)
}

// ListBySpot returns every reservation for a spot, newest first.
func (r *ReservationRepo) ListBySpot(ctx context.Context, spotID uint64) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE spot_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, spotID)
}

// ListBlocking returns all reservations whose status currently owns
// ledger rows.  The repair pass derives the desired ledger from this set.
func (r *ReservationRepo) ListBlocking(ctx context.Context) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE status IN (?, ?, ?)`
    return r.list(ctx, q, model.StatusPending, model.StatusPaymentInProgress, model.StatusPaid)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Reservation, error) {
    var out []model.Reservation
    err := r.h.Run(ctx, func(db *sql.DB) error {
        out = out[:0]
        rows, err := db.QueryContext(ctx, query, args...)
        if err != nil {
            return err
        }
        defer rows.Close()
        for rows.Next() {
            res, err := scanReservation(rows)
            if err != nil {
                return err
            }
            out = append(out, *res)
        }
        return rows.Err()
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}
