package lifecycle

import (
    "context"
    "fmt"
    "time"

    "github.com/lakeview/spot-reservation/internal/model"
)

// RepairStore is the extra storage surface the repair pass needs beyond
// what the machine uses.
type RepairStore interface {
    ListBlocking(ctx context.Context) ([]model.Reservation, error)
}

// LedgerStore gives the repair pass read and bulk-write access to the
// lifecycle-owned half of the block ledger.  *repository.BlockRepo
// satisfies it.
type LedgerStore interface {
    ListLifecycle(ctx context.Context) ([]model.BlockEntry, error)
    InsertEntries(ctx context.Context, entries []model.BlockEntry) error
    DeleteEntries(ctx context.Context, entries []model.BlockEntry) error
}

// RepairResult summarizes one repair run.
type RepairResult struct {
    Inserted int `json:"inserted"`
    Deleted  int `json:"deleted"`
}

// blockKey identifies one lifecycle ledger row for set arithmetic.
type blockKey struct {
    spotID uint64
    day    string
    source model.BlockSource
}

// RepairBlocks reconverges the lifecycle-owned ledger rows with the set
// implied by live reservations: every reservation in a blocking status
// owns exactly one row per day of its range, with source paid_reservation
// for paid rows and reservation otherwise.  Rows nothing owns are
// deleted; missing rows are inserted.  Admin rows are invisible to the
// diff.  The pass is idempotent: a second run right after a first finds
// nothing to do.
func RepairBlocks(ctx context.Context, reservations RepairStore, ledger LedgerStore) (*RepairResult, error) {
    live, err := reservations.ListBlocking(ctx)
    if err != nil {
        return nil, fmt.Errorf("list blocking reservations: %w", err)
    }
    existing, err := ledger.ListLifecycle(ctx)
    if err != nil {
        return nil, fmt.Errorf("list ledger rows: %w", err)
    }

    desired := make(map[blockKey]struct{})
    for _, res := range live {
        source := model.SourceReservation
        if res.Status == model.StatusPaid {
            source = model.SourcePaidReservation
        }
        for _, d := range model.DaysIn(res.StartDate, res.EndDate) {
            desired[blockKey{res.SpotID, d.Format(model.DayKey), source}] = struct{}{}
        }
    }

    // (spot_id, day, source) is unique in the table, so the existing
    // rows form a set.
    present := make(map[blockKey]struct{}, len(existing))
    var stale []model.BlockEntry
    for _, e := range existing {
        k := blockKey{e.SpotID, e.Day.Format(model.DayKey), e.Source}
        present[k] = struct{}{}
        if _, ok := desired[k]; !ok {
            stale = append(stale, e)
        }
    }

    var missing []model.BlockEntry
    for k := range desired {
        if _, ok := present[k]; ok {
            continue
        }
        day, err := time.Parse(model.DayKey, k.day)
        if err != nil {
            return nil, fmt.Errorf("parse ledger day %q: %w", k.day, err)
        }
        missing = append(missing, model.BlockEntry{SpotID: k.spotID, Day: day, Source: k.source})
    }

    if err := ledger.DeleteEntries(ctx, stale); err != nil {
        return nil, fmt.Errorf("delete stale rows: %w", err)
    }
    if err := ledger.InsertEntries(ctx, missing); err != nil {
        return nil, fmt.Errorf("insert missing rows: %w", err)
    }
    return &RepairResult{Inserted: len(missing), Deleted: len(stale)}, nil
}
