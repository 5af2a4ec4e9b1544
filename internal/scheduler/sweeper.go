// Package scheduler runs the background sweeps: the expiry sweep that
// ages pending and payment_in_progress reservations past their deadlines,
// and the reconciliation sweep that polls the gateway for in-flight
// payments.  Both are plain tickers; every pass re-selects its rows by
// predicate, so a missed or doubled tick never corrupts state.
package scheduler

import (
    "context"
    "log"
    "time"

    "github.com/lakeview/spot-reservation/internal/config"
    "github.com/lakeview/spot-reservation/internal/model"
    "github.com/lakeview/spot-reservation/internal/payment"
)

// ReservationLister is the selection surface the sweeps read from.
// *repository.ReservationRepo satisfies it.
type ReservationLister interface {
    ListPendingOlderThan(ctx context.Context, ttl time.Duration) ([]model.Reservation, error)
    ListPaymentInProgressOlderThan(ctx context.Context, ttl time.Duration) ([]model.Reservation, error)
    ListPaymentInProgress(ctx context.Context) ([]model.Reservation, error)
}

// Transitioner is the slice of the lifecycle machine the sweeps drive.
type Transitioner interface {
    Transition(ctx context.Context, id uint64, target model.Status) error
}

// Reconciler checks one reservation against the payment gateway.
// *payment.Reconciler satisfies it.
type Reconciler interface {
    CheckAndConfirm(ctx context.Context, res *model.Reservation) (payment.Outcome, error)
}

// Sweeper owns the background loops.
type Sweeper struct {
    reservations ReservationLister
    machine      Transitioner
    reconciler   Reconciler

    pendingTTL      time.Duration
    paymentTTL      time.Duration
    statusInterval  time.Duration
    paymentInterval time.Duration
}

// New builds a Sweeper from configuration.
func New(reservations ReservationLister, machine Transitioner, reconciler Reconciler, cfg *config.Config) *Sweeper {
    return &Sweeper{
        reservations:    reservations,
        machine:         machine,
        reconciler:      reconciler,
        pendingTTL:      cfg.PendingTTL,
        paymentTTL:      cfg.PaymentTTL,
        statusInterval:  cfg.StatusSweepInterval,
        paymentInterval: cfg.PaymentSweepInterval,
    }
}

// Run blocks until ctx is cancelled, firing the expiry sweep on the
// status interval and the reconciliation sweep on the payment interval.
func (s *Sweeper) Run(ctx context.Context) {
    statusTick := time.NewTicker(s.statusInterval)
    defer statusTick.Stop()
    paymentTick := time.NewTicker(s.paymentInterval)
    defer paymentTick.Stop()

    log.Printf("scheduler: sweeps started (expiry every %s, reconciliation every %s)", s.statusInterval, s.paymentInterval)
    for {
        select {
        case <-ctx.Done():
            log.Printf("scheduler: sweeps stopped: %v", ctx.Err())
            return
        case <-statusTick.C:
            s.ExpirySweep(ctx)
        case <-paymentTick.C:
            s.ReconcileSweep(ctx)
        }
    }
}

// ExpirySweep ages overdue reservations.  A pending row past its TTL
// moves to payment_in_progress when a payment session exists (the guest
// reached the gateway, grant the shorter payment window) and straight to
// unpaid otherwise.  A payment_in_progress row whose payment window
// elapsed moves to unpaid.  Every transition goes through the machine, so
// a row confirmed paid between select and update simply loses the
// conditional write and is skipped.
func (s *Sweeper) ExpirySweep(ctx context.Context) {
    overduePending, err := s.reservations.ListPendingOlderThan(ctx, s.pendingTTL)
    if err != nil {
        log.Printf("scheduler: list overdue pending: %v", err)
    } else {
        for _, res := range overduePending {
            target := model.StatusUnpaid
            if res.PaymentSessionID != "" {
                target = model.StatusPaymentInProgress
            }
            if err := s.machine.Transition(ctx, res.ID, target); err != nil {
                log.Printf("scheduler: expire pending reservation %d -> %s: %v", res.ID, target, err)
                continue
            }
            log.Printf("scheduler: reservation %d aged pending -> %s", res.ID, target)
        }
    }

    overduePayment, err := s.reservations.ListPaymentInProgressOlderThan(ctx, s.paymentTTL)
    if err != nil {
        log.Printf("scheduler: list overdue payment_in_progress: %v", err)
        return
    }
    for _, res := range overduePayment {
        if err := s.machine.Transition(ctx, res.ID, model.StatusUnpaid); err != nil {
            log.Printf("scheduler: expire payment reservation %d: %v", res.ID, err)
            continue
        }
        log.Printf("scheduler: reservation %d aged payment_in_progress -> unpaid", res.ID)
    }
}

// ReconcileSweep polls the gateway for every in-flight payment.  Errors
// are per-row: one unreachable session never stalls the rest.
func (s *Sweeper) ReconcileSweep(ctx context.Context) {
    inFlight, err := s.reservations.ListPaymentInProgress(ctx)
    if err != nil {
        log.Printf("scheduler: list payment_in_progress: %v", err)
        return
    }
    for i := range inFlight {
        res := &inFlight[i]
        outcome, err := s.reconciler.CheckAndConfirm(ctx, res)
        if err != nil {
            log.Printf("scheduler: reconcile reservation %d: %v", res.ID, err)
            continue
        }
        if outcome == payment.OutcomeConfirmed {
            log.Printf("scheduler: reconciliation confirmed reservation %d", res.ID)
        }
    }
}
