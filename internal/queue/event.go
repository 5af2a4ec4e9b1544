// Package queue defines message payloads exchanged over the message broker.
package queue

// EventKind names a reservation lifecycle event.  Consumers switch on it
// to decide which notification to render; the payload is identical for
// every kind.
type EventKind string

const (
    EventReservationCreated   EventKind = "reservation.created"
    EventPaymentConfirmed     EventKind = "payment.confirmed"
    EventReservationExpired   EventKind = "reservation.expired"
    EventReservationCancelled EventKind = "reservation.cancelled"
    EventRefundRequested      EventKind = "refund.requested"
    EventRefundCompleted      EventKind = "refund.completed"
    EventAdminCancelled       EventKind = "admin.cancelled"
    EventAdminRefundCompleted EventKind = "admin.refund.completed"
)

// ReservationEvent is published whenever a reservation passes a lifecycle
// edge that owes the guest a notification.  It contains enough information
// for downstream consumers to render an email or trigger analytics without
// querying the primary database.  Delivery is at-least-once; the state
// machine's conditional status update guarantees each qualifying
// transition publishes at most one event, so consumers may treat the
// (kind, reservation_id) pair as unique.
type ReservationEvent struct {
    Kind          EventKind `json:"kind"`
    ReservationID uint64    `json:"reservation_id"`
    Token         string    `json:"token"`
    SpotID        uint64    `json:"spot_id"`
    StartDate     string    `json:"start_date"`
    EndDate       string    `json:"end_date"`
    Status        string    `json:"status"`
    Amount        float64   `json:"amount"`
    Email         string    `json:"email"`
    FirstName     string    `json:"first_name"`
    LastName      string    `json:"last_name"`
    OccurredAt    string    `json:"occurred_at"`
}
