// Package lifecycle implements the reservation state machine.  Every
// status change in the system funnels through Machine.Transition, which
// validates the edge against the allowed-transition table, wins or loses
// the conditional status write, and performs the block-ledger and
// notification side effects only after winning.  Losers re-read the row
// and either observe the transition already applied (no-op) or report
// the conflict.
package lifecycle

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/lakeview/spot-reservation/internal/model"
    "github.com/lakeview/spot-reservation/internal/queue"
    "github.com/lakeview/spot-reservation/internal/repository"
)

// ReservationStore is the slice of the reservation repository the machine
// needs.  *repository.ReservationRepo satisfies it.
type ReservationStore interface {
    Create(ctx context.Context, res *model.Reservation) error
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    UpdateStatusCAS(ctx context.Context, id uint64, from, to model.Status) (bool, error)
    Delete(ctx context.Context, id uint64) error
}

// BlockStore is the slice of the block ledger the machine needs.
// *repository.BlockRepo satisfies it.
type BlockStore interface {
    Occupy(ctx context.Context, spotID uint64, start, end time.Time, source model.BlockSource) error
    Release(ctx context.Context, spotID uint64, start, end time.Time, sources []model.BlockSource) error
    Promote(ctx context.Context, spotID uint64, start, end time.Time, from, to model.BlockSource) error
}

// Notifier delivers lifecycle events to interested parties.  Delivery is
// best-effort: the machine never fails a transition because a
// notification could not be sent.
type Notifier interface {
    Notify(ctx context.Context, kind queue.EventKind, res *model.Reservation)
}

// Machine coordinates reservation lifecycle transitions.
type Machine struct {
    reservations ReservationStore
    blocks       BlockStore
    notifier     Notifier
    now          func() time.Time
}

// NewMachine builds a Machine.  notifier may be nil, in which case no
// events are emitted (useful in tests and one-off tooling).
func NewMachine(reservations ReservationStore, blocks BlockStore, notifier Notifier) *Machine {
    return &Machine{
        reservations: reservations,
        blocks:       blocks,
        notifier:     notifier,
        now:          func() time.Time { return time.Now().UTC() },
    }
}

// WithClock overrides the machine's time source.  Tests use this to pin
// the cancellation guard to a known instant.
func (m *Machine) WithClock(now func() time.Time) *Machine {
    m.now = now
    return m
}

// Create inserts a new pending reservation and occupies its block range.
// The ledger write doubles as the double-booking arbiter: two concurrent
// creates for overlapping days can both pass the availability check, but
// only one bulk insert survives the (spot_id, day, source) unique key.
// The loser's row is deleted and the create fails with ErrConflict.  Any
// other ledger fault is logged and left to the repair pass; the
// reservation itself stands.
func (m *Machine) Create(ctx context.Context, res *model.Reservation) error {
    res.Status = model.StatusPending
    if err := m.reservations.Create(ctx, res); err != nil {
        return err
    }
    if err := m.blocks.Occupy(ctx, res.SpotID, res.StartDate, res.EndDate, model.SourceReservation); err != nil {
        if repository.IsDuplicateEntry(err) {
            if derr := m.reservations.Delete(ctx, res.ID); derr != nil {
                log.Printf("lifecycle: unwind conflicting reservation %d: %v", res.ID, derr)
            }
            return fmt.Errorf("%w: spot %d is already held for the requested days", repository.ErrConflict, res.SpotID)
        }
        log.Printf("lifecycle: occupy blocks for reservation %d failed: %v", res.ID, err)
    }
    m.notify(ctx, queue.EventReservationCreated, res)
    return nil
}

// minCancelLeadDays is how many full days must remain before the start
// day for a guest to cancel or request a refund of a paid reservation.
const minCancelLeadDays = 3

// CanCancel reports whether the cancellation guard permits a guest
// cancellation or refund request of a paid reservation right now.  For
// any other status it returns false; the transition table governs those.
func (m *Machine) CanCancel(res *model.Reservation) bool {
    if res.Status != model.StatusPaid {
        return false
    }
    return !m.tooLate(res.StartDate)
}

func (m *Machine) tooLate(start time.Time) bool {
    return m.now().After(start.AddDate(0, 0, -minCancelLeadDays))
}

// guestGuarded are the edges out of paid that the lead-time guard covers.
// Admin cancellation bypasses the guard.
func guestGuarded(from, to model.Status) bool {
    if from != model.StatusPaid {
        return false
    }
    return to == model.StatusCancelled || to == model.StatusRefundRequested
}

// Transition moves reservation id to target.  It returns
// repository.ErrNotFound when the row does not exist,
// repository.ErrInvalidTransition when the edge is not allowed (also
// after losing a concurrent race to a different target), and
// repository.ErrTooLateToCancel when the lead-time guard rejects a guest
// cancellation.  A lost race to the same target returns nil: the caller's
// intent already holds.
func (m *Machine) Transition(ctx context.Context, id uint64, target model.Status) error {
    res, err := m.reservations.GetByID(ctx, id)
    if err != nil {
        return err
    }
    if res.Status == target {
        return nil
    }
    if !model.CanTransition(res.Status, target) {
        return fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, res.Status, target)
    }
    if guestGuarded(res.Status, target) && m.tooLate(res.StartDate) {
        return repository.ErrTooLateToCancel
    }

    swapped, err := m.reservations.UpdateStatusCAS(ctx, id, res.Status, target)
    if err != nil {
        return err
    }
    if !swapped {
        // A concurrent transition won.  Re-read: if it landed on our
        // target the outcome is what the caller asked for.
        cur, err := m.reservations.GetByID(ctx, id)
        if err != nil {
            return err
        }
        if cur.Status == target {
            return nil
        }
        return fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, cur.Status, target)
    }

    res.Status = target
    m.applyEffects(ctx, res)
    return nil
}

// applyEffects runs the ledger and notification side effects for a won
// transition.  Ledger errors are logged, not returned: the status row is
// the source of truth and the repair pass reconverges the ledger.
func (m *Machine) applyEffects(ctx context.Context, res *model.Reservation) {
    switch res.Status {
    case model.StatusPaymentInProgress:
        // Blocks already held under SourceReservation; nothing to do.
    case model.StatusPaid:
        if err := m.blocks.Promote(ctx, res.SpotID, res.StartDate, res.EndDate,
            model.SourceReservation, model.SourcePaidReservation); err != nil {
            log.Printf("lifecycle: promote blocks for reservation %d failed: %v", res.ID, err)
        }
        m.notify(ctx, queue.EventPaymentConfirmed, res)
    case model.StatusUnpaid:
        m.release(ctx, res)
        m.notify(ctx, queue.EventReservationExpired, res)
    case model.StatusCancelled:
        m.release(ctx, res)
        m.notify(ctx, queue.EventReservationCancelled, res)
    case model.StatusRefundRequested:
        m.release(ctx, res)
        m.notify(ctx, queue.EventRefundRequested, res)
    case model.StatusAdminCancelled:
        m.release(ctx, res)
        m.notify(ctx, queue.EventAdminCancelled, res)
    case model.StatusRefundCompleted:
        m.notify(ctx, queue.EventRefundCompleted, res)
    case model.StatusAdminRefundCompleted:
        m.notify(ctx, queue.EventAdminRefundCompleted, res)
    }
}

func (m *Machine) release(ctx context.Context, res *model.Reservation) {
    if err := m.blocks.Release(ctx, res.SpotID, res.StartDate, res.EndDate, model.LifecycleSources); err != nil {
        log.Printf("lifecycle: release blocks for reservation %d failed: %v", res.ID, err)
    }
}

func (m *Machine) notify(ctx context.Context, kind queue.EventKind, res *model.Reservation) {
    if m.notifier == nil {
        return
    }
    m.notifier.Notify(ctx, kind, res)
}
