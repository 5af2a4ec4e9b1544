package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/lakeview/spot-reservation/internal/database"
    "github.com/lakeview/spot-reservation/internal/model"
)

// BlockRepo is the block ledger: one row per (spot, day, source) that is
// occupied.  Ranges are end-exclusive everywhere; the departure day is
// never blocked, since checkout precedes the next check-in.  Lifecycle
// transitions drive Occupy/Release/Promote; admin rows are written only
// through AddAdmin/RemoveDay and survive every lifecycle operation.
type BlockRepo struct {
    h *database.Handle
}

// NewBlockRepo returns a new BlockRepo bound to the given handle.
func NewBlockRepo(h *database.Handle) *BlockRepo { return &BlockRepo{h: h} }

// Occupy inserts one BlockEntry per day in [start, end) with the given
// source.  Passing an empty range has no effect and returns nil.
func (r *BlockRepo) Occupy(ctx context.Context, spotID uint64, start, end time.Time, source model.BlockSource) error {
    days := model.DaysIn(start, end)
    if len(days) == 0 {
        return nil
    }
    return r.h.Run(ctx, func(db *sql.DB) error {
        query := `INSERT INTO spot_blocks (spot_id, day, source) VALUES `
        args := make([]interface{}, 0, len(days)*3)
        for i, d := range days {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?)"
            args = append(args, spotID, d.Format(model.DayKey), source)
        }
        _, err := db.ExecContext(ctx, query, args...)
        return err
    })
}

// Release deletes the rows for [start, end) whose source is in sources.
// Admin rows are preserved unless SourceAdmin is explicitly listed, which
// lifecycle callers never do (they pass model.LifecycleSources).
func (r *BlockRepo) Release(ctx context.Context, spotID uint64, start, end time.Time, sources []model.BlockSource) error {
    days := model.DaysIn(start, end)
    if len(days) == 0 || len(sources) == 0 {
        return nil
    }
    return r.h.Run(ctx, func(db *sql.DB) error {
        query := `DELETE FROM spot_blocks WHERE spot_id = ? AND day IN (`
        args := []interface{}{spotID}
        for i, d := range days {
            if i > 0 {
                query += ","
            }
            query += "?"
            args = append(args, d.Format(model.DayKey))
        }
        query += `) AND source IN (`
        for i, s := range sources {
            if i > 0 {
                query += ","
            }
            query += "?"
            args = append(args, s)
        }
        query += `)`
        _, err := db.ExecContext(ctx, query, args...)
        return err
    })
}

// Promote atomically replaces fromSource rows with toSource rows for the
// range.  Used exactly once per reservation, when it becomes paid, so
// that confirmed occupancy is distinguishable from merely-held occupancy.
// The swap runs inside one transaction: a reader never observes a day
// with neither row.
func (r *BlockRepo) Promote(ctx context.Context, spotID uint64, start, end time.Time, from, to model.BlockSource) error {
    days := model.DaysIn(start, end)
    if len(days) == 0 {
        return nil
    }
    return r.h.Run(ctx, func(db *sql.DB) error {
        tx, err := db.BeginTx(ctx, nil)
        if err != nil {
            return err
        }
        committed := false
        defer func() {
            if !committed {
                _ = tx.Rollback()
            }
        }()
        for _, d := range days {
            day := d.Format(model.DayKey)
            if _, err := tx.ExecContext(ctx,
                `DELETE FROM spot_blocks WHERE spot_id = ? AND day = ? AND source = ?`,
                spotID, day, from); err != nil {
                return err
            }
            if _, err := tx.ExecContext(ctx,
                `INSERT INTO spot_blocks (spot_id, day, source) VALUES (?, ?, ?)`,
                spotID, day, to); err != nil {
                return err
            }
        }
        if err := tx.Commit(); err != nil {
            return err
        }
        committed = true
        return nil
    })
}

// AddAdmin places a manual block on a single day.
func (r *BlockRepo) AddAdmin(ctx context.Context, spotID uint64, day time.Time) error {
    return r.h.Run(ctx, func(db *sql.DB) error {
        _, err := db.ExecContext(ctx,
            `INSERT INTO spot_blocks (spot_id, day, source) VALUES (?, ?, ?)`,
            spotID, day.Format(model.DayKey), model.SourceAdmin)
        return err
    })
}

// RemoveDay deletes every block row for a (spot, day) regardless of
// source.  Admin tooling only; lifecycle code never calls this.
func (r *BlockRepo) RemoveDay(ctx context.Context, spotID uint64, day time.Time) error {
    return r.h.Run(ctx, func(db *sql.DB) error {
        _, err := db.ExecContext(ctx,
            `DELETE FROM spot_blocks WHERE spot_id = ? AND day = ?`,
            spotID, day.Format(model.DayKey))
        return err
    })
}

// ListBySpot returns all block entries for a spot.
func (r *BlockRepo) ListBySpot(ctx context.Context, spotID uint64) ([]model.BlockEntry, error) {
    const q = `SELECT spot_id, day, source FROM spot_blocks WHERE spot_id = ? ORDER BY day`
    return r.list(ctx, q, spotID)
}

// ListRange returns all block entries for days in [from, to), across all
// spots and sources.  The availability engine consumes this.
func (r *BlockRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.BlockEntry, error) {
    const q = `SELECT spot_id, day, source FROM spot_blocks WHERE day >= ? AND day < ? ORDER BY spot_id, day`
    return r.list(ctx, q, from.Format(model.DayKey), to.Format(model.DayKey))
}

// ListLifecycle returns every non-admin block row.  The repair pass diffs
// this set against the one derived from live reservations.
func (r *BlockRepo) ListLifecycle(ctx context.Context) ([]model.BlockEntry, error) {
    const q = `SELECT spot_id, day, source FROM spot_blocks WHERE source IN (?, ?) ORDER BY spot_id, day`
    return r.list(ctx, q, model.SourceReservation, model.SourcePaidReservation)
}

// InsertEntries writes pre-built entries; used by the repair pass.
func (r *BlockRepo) InsertEntries(ctx context.Context, entries []model.BlockEntry) error {
    if len(entries) == 0 {
        return nil
    }
    return r.h.Run(ctx, func(db *sql.DB) error {
        query := `INSERT INTO spot_blocks (spot_id, day, source) VALUES `
        args := make([]interface{}, 0, len(entries)*3)
        for i, e := range entries {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?)"
            args = append(args, e.SpotID, e.Day.Format(model.DayKey), e.Source)
        }
        _, err := db.ExecContext(ctx, query, args...)
        return err
    })
}

// DeleteEntries removes pre-built entries by exact key; used by the
// repair pass.  Each key is matched individually so an admin row sharing
// the day is untouched.
func (r *BlockRepo) DeleteEntries(ctx context.Context, entries []model.BlockEntry) error {
    if len(entries) == 0 {
        return nil
    }
    return r.h.Run(ctx, func(db *sql.DB) error {
        for _, e := range entries {
            if _, err := db.ExecContext(ctx,
                `DELETE FROM spot_blocks WHERE spot_id = ? AND day = ? AND source = ?`,
                e.SpotID, e.Day.Format(model.DayKey), e.Source); err != nil {
                return err
            }
        }
        return nil
    })
}

func (r *BlockRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.BlockEntry, error) {
    var out []model.BlockEntry
    err := r.h.Run(ctx, func(db *sql.DB) error {
        out = out[:0]
        rows, err := db.QueryContext(ctx, query, args...)
        if err != nil {
            return err
        }
        defer rows.Close()
        for rows.Next() {
            var e model.BlockEntry
            if err := rows.Scan(&e.SpotID, &e.Day, &e.Source); err != nil {
                return err
            }
            out = append(out, e)
        }
        return rows.Err()
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}
