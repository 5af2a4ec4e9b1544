package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/lakeview/spot-reservation/internal/database"
    "github.com/lakeview/spot-reservation/internal/model"
)

// SpotRepo provides data access to the spots table.
type SpotRepo struct {
    h *database.Handle
}

// NewSpotRepo returns a new SpotRepo bound to the given handle.
func NewSpotRepo(h *database.Handle) *SpotRepo { return &SpotRepo{h: h} }

// ListActive returns every active spot ordered by id.
func (r *SpotRepo) ListActive(ctx context.Context) ([]model.Spot, error) {
    var out []model.Spot
    err := r.h.Run(ctx, func(db *sql.DB) error {
        out = out[:0]
        rows, err := db.QueryContext(ctx, `SELECT id, name, is_active FROM spots WHERE is_active = 1 ORDER BY id`)
        if err != nil {
            return err
        }
        defer rows.Close()
        for rows.Next() {
            var s model.Spot
            if err := rows.Scan(&s.ID, &s.Name, &s.IsActive); err != nil {
                return err
            }
            out = append(out, s)
        }
        return rows.Err()
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

// GetByID returns a spot or ErrNotFound.
func (r *SpotRepo) GetByID(ctx context.Context, id uint64) (*model.Spot, error) {
    var s model.Spot
    err := r.h.Run(ctx, func(db *sql.DB) error {
        return db.QueryRowContext(ctx,
            `SELECT id, name, is_active FROM spots WHERE id = ?`, id).
            Scan(&s.ID, &s.Name, &s.IsActive)
    })
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// Create inserts a spot and populates its generated ID.
func (r *SpotRepo) Create(ctx context.Context, s *model.Spot) error {
    return r.h.Run(ctx, func(db *sql.DB) error {
        result, err := db.ExecContext(ctx,
            `INSERT INTO spots (name, is_active) VALUES (?, ?)`, s.Name, s.IsActive)
        if err != nil {
            return err
        }
        id, err := result.LastInsertId()
        if err != nil {
            return err
        }
        s.ID = uint64(id)
        return nil
    })
}

// Delete removes a spot.  ErrConflict is returned while reservations
// still reference it; the admin must resolve those first.
func (r *SpotRepo) Delete(ctx context.Context, id uint64) error {
    return r.h.Run(ctx, func(db *sql.DB) error {
        var n int
        if err := db.QueryRowContext(ctx,
            `SELECT COUNT(*) FROM reservations WHERE spot_id = ? AND status IN (?, ?, ?)`,
            id, model.StatusPending, model.StatusPaymentInProgress, model.StatusPaid).Scan(&n); err != nil {
            return err
        }
        if n > 0 {
            return ErrConflict
        }
        result, err := db.ExecContext(ctx, `DELETE FROM spots WHERE id = ?`, id)
        if err != nil {
            return err
        }
        affected, err := result.RowsAffected()
        if err != nil {
            return err
        }
        if affected == 0 {
            return ErrNotFound
        }
        return nil
    })
}
