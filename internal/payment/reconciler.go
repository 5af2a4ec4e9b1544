package payment

import (
    "context"
    "fmt"
    "log"

    "github.com/lakeview/spot-reservation/internal/model"
)

// Outcome classifies one reconciliation check of a reservation against
// the gateway.
type Outcome int

const (
    // OutcomePending means the gateway has not settled the payment yet,
    // or no payment session exists to check.
    OutcomePending Outcome = iota
    // OutcomeConfirmed means the payment was verified and the
    // reservation moved (or already was) paid.
    OutcomeConfirmed
    // OutcomeDeclined means the gateway reported the transaction as not
    // realized.  The reservation is left alone; the expiry sweep will
    // move it to unpaid on its own deadline.
    OutcomeDeclined
    // OutcomeUnknown means the check could not be completed: a gateway
    // error, an amount mismatch, or a failed verification.  Nothing is
    // mutated; the next sweep retries.
    OutcomeUnknown
)

func (o Outcome) String() string {
    switch o {
    case OutcomePending:
        return "pending"
    case OutcomeConfirmed:
        return "confirmed"
    case OutcomeDeclined:
        return "declined"
    default:
        return "unknown"
    }
}

// Transitioner is the slice of the lifecycle machine the reconciler
// drives.  *lifecycle.Machine satisfies it.
type Transitioner interface {
    Transition(ctx context.Context, id uint64, target model.Status) error
}

// Reconciler checks reservations against the gateway and confirms the
// paid ones through the state machine.
type Reconciler struct {
    gateway *Client
    machine Transitioner
}

// NewReconciler builds a Reconciler.
func NewReconciler(gateway *Client, machine Transitioner) *Reconciler {
    return &Reconciler{gateway: gateway, machine: machine}
}

// CheckAndConfirm asks the gateway about the reservation's payment
// session and, when the funds are confirmed for the exact registered
// amount, verifies the transaction and drives the reservation to paid.
// The reservation is never mutated on any other outcome: a declined or
// unreadable gateway answer leaves expiry to the sweeper, which keeps a
// flaky gateway from cancelling money that actually arrived.
func (r *Reconciler) CheckAndConfirm(ctx context.Context, res *model.Reservation) (Outcome, error) {
    if res.PaymentSessionID == "" {
        return OutcomePending, nil
    }

    st, err := r.gateway.StatusBySession(ctx, res.PaymentSessionID)
    if err != nil {
        return OutcomeUnknown, fmt.Errorf("status for session %s: %w", res.PaymentSessionID, err)
    }

    switch st.Status {
    case 1, 2:
        // 1 = funds received, 2 = already verified (a prior run may have
        // crashed between verifying and recording the transition).
        want := model.MinorUnits(res.Amount)
        if st.Amount != want {
            // Paying a different amount must never confirm the
            // reservation.
            return OutcomeUnknown, fmt.Errorf("amount mismatch for session %s: gateway=%d expected=%d",
                res.PaymentSessionID, st.Amount, want)
        }
        if st.OrderID == 0 {
            return OutcomeUnknown, fmt.Errorf("missing order id for session %s", res.PaymentSessionID)
        }
        ok, err := r.gateway.Verify(ctx, res.PaymentSessionID, st.OrderID, want)
        if err != nil {
            return OutcomeUnknown, fmt.Errorf("verify session %s: %w", res.PaymentSessionID, err)
        }
        if !ok {
            return OutcomeUnknown, fmt.Errorf("verification rejected for session %s", res.PaymentSessionID)
        }
        if err := r.machine.Transition(ctx, res.ID, model.StatusPaid); err != nil {
            // Transition is idempotent for an already-paid row; any
            // other failure surfaces so the sweep retries.
            return OutcomeUnknown, fmt.Errorf("confirm reservation %d: %w", res.ID, err)
        }
        log.Printf("payment: confirmed reservation %d (session %s, order %d)", res.ID, res.PaymentSessionID, st.OrderID)
        return OutcomeConfirmed, nil
    case 0:
        return OutcomeDeclined, nil
    default:
        return OutcomePending, nil
    }
}
