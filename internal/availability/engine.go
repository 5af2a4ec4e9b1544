// Package availability answers "is this spot free on these days".  A day
// is busy when the block ledger carries any row for it, or when a live
// reservation's date range covers it.  The second clause exists because
// ledger writes happen after the status write: the reservation row is
// authoritative, the ledger is a fast denormalization.  Pending
// reservations only count while their hold window is still open, so a
// pending row the expiry sweep has not yet aged never extends its hold.
package availability

import (
    "context"
    "time"

    "github.com/lakeview/spot-reservation/internal/model"
)

// BlockSource reads the block ledger.  *repository.BlockRepo satisfies it.
type BlockSource interface {
    ListRange(ctx context.Context, from, to time.Time) ([]model.BlockEntry, error)
}

// ReservationSource reads live reservations.  *repository.ReservationRepo
// satisfies it.
type ReservationSource interface {
    ListOverlapping(ctx context.Context, from, to time.Time, statuses []model.Status) ([]model.Reservation, error)
}

// SpotSource reads the spot inventory.  *repository.SpotRepo satisfies it.
type SpotSource interface {
    ListActive(ctx context.Context) ([]model.Spot, error)
}

// Engine computes availability.
type Engine struct {
    blocks       BlockSource
    reservations ReservationSource
    spots        SpotSource
    pendingTTL   time.Duration
    now          func() time.Time
}

// NewEngine builds an Engine.  pendingTTL is the hold window granted to
// pending reservations; it must match the expiry sweep's deadline.
func NewEngine(blocks BlockSource, reservations ReservationSource, spots SpotSource, pendingTTL time.Duration) *Engine {
    return &Engine{
        blocks:       blocks,
        reservations: reservations,
        spots:        spots,
        pendingTTL:   pendingTTL,
        now:          func() time.Time { return time.Now().UTC() },
    }
}

// WithClock overrides the engine's time source for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
    e.now = now
    return e
}

// holds reports whether the reservation currently makes its days busy.
func (e *Engine) holds(res *model.Reservation) bool {
    switch res.Status {
    case model.StatusPaid, model.StatusPaymentInProgress:
        return true
    case model.StatusPending:
        return e.now().Sub(res.CreatedAt) < e.pendingTTL
    }
    return false
}

// liveStatuses are the reservation statuses that can make days busy.
var liveStatuses = []model.Status{model.StatusPending, model.StatusPaymentInProgress, model.StatusPaid}

// SpotAvailability lists the busy days of one spot within a queried range.
type SpotAvailability struct {
    SpotID   uint64   `json:"spot_id"`
    Name     string   `json:"name"`
    BusyDays []string `json:"busy_days"`
}

// Range reports, for every active spot, which days in [from, to) are
// busy.  A spot missing from the ledger and from live reservations has an
// empty BusyDays slice.
func (e *Engine) Range(ctx context.Context, from, to time.Time) ([]SpotAvailability, error) {
    spots, err := e.spots.ListActive(ctx)
    if err != nil {
        return nil, err
    }
    busy, err := e.busyDays(ctx, from, to)
    if err != nil {
        return nil, err
    }
    out := make([]SpotAvailability, 0, len(spots))
    for _, s := range spots {
        days := make([]string, 0)
        for _, d := range model.DaysIn(from, to) {
            key := d.Format(model.DayKey)
            if busy[s.ID][key] {
                days = append(days, key)
            }
        }
        out = append(out, SpotAvailability{SpotID: s.ID, Name: s.Name, BusyDays: days})
    }
    return out, nil
}

// IsFree reports whether the spot is free for the whole range [from, to).
func (e *Engine) IsFree(ctx context.Context, spotID uint64, from, to time.Time) (bool, error) {
    busy, err := e.busyDays(ctx, from, to)
    if err != nil {
        return false, err
    }
    for _, d := range model.DaysIn(from, to) {
        if busy[spotID][d.Format(model.DayKey)] {
            return false, nil
        }
    }
    return true, nil
}

// busyDays merges the ledger and the live reservations into one busy set
// per spot, keyed by day string.
func (e *Engine) busyDays(ctx context.Context, from, to time.Time) (map[uint64]map[string]bool, error) {
    busy := make(map[uint64]map[string]bool)
    mark := func(spotID uint64, day string) {
        if busy[spotID] == nil {
            busy[spotID] = make(map[string]bool)
        }
        busy[spotID][day] = true
    }

    entries, err := e.blocks.ListRange(ctx, from, to)
    if err != nil {
        return nil, err
    }
    for _, entry := range entries {
        mark(entry.SpotID, entry.Day.Format(model.DayKey))
    }

    live, err := e.reservations.ListOverlapping(ctx, from, to, liveStatuses)
    if err != nil {
        return nil, err
    }
    for i := range live {
        res := &live[i]
        if !e.holds(res) {
            continue
        }
        for _, d := range model.DaysIn(res.StartDate, res.EndDate) {
            if d.Before(from) || !d.Before(to) {
                continue
            }
            mark(res.SpotID, d.Format(model.DayKey))
        }
    }
    return busy, nil
}
