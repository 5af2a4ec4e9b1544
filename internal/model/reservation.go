package model

import "time"

// Status enumerates the reservation lifecycle states.  The zero value is
// not a valid status; every reservation is created as StatusPending and
// only ever moves along an edge present in transitions below.
type Status string

const (
	StatusPending              Status = "pending"
	StatusPaymentInProgress    Status = "payment_in_progress"
	StatusPaid                 Status = "paid"
	StatusUnpaid               Status = "unpaid"
	StatusCancelled            Status = "cancelled"
	StatusRefundRequested      Status = "refund_requested"
	StatusRefundCompleted      Status = "refund_completed"
	StatusAdminCancelled       Status = "admin_cancelled"
	StatusAdminRefundCompleted Status = "admin_refund_completed"
)

// transitions is the authoritative allowed-transition table.  No code path
// may set a status except by walking one of these edges; the state machine
// consults this table before every write.  pending -> paid is the inline
// happy path taken when the gateway confirms before the expiry sweep has
// observed the row.
var transitions = map[Status][]Status{
	StatusPending:           {StatusPaymentInProgress, StatusUnpaid, StatusCancelled, StatusPaid},
	StatusPaymentInProgress: {StatusUnpaid, StatusPaid},
	StatusPaid:              {StatusCancelled, StatusRefundRequested, StatusAdminCancelled},
	StatusRefundRequested:   {StatusRefundCompleted},
	StatusAdminCancelled:    {StatusAdminRefundCompleted},
}

// CanTransition reports whether the edge from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edge leaves the given status.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaymentInProgress, StatusPaid, StatusUnpaid,
		StatusCancelled, StatusRefundRequested, StatusRefundCompleted,
		StatusAdminCancelled, StatusAdminRefundCompleted:
		return true
	}
	return false
}

// Blocking reports whether a reservation in this status owns block ledger
// rows for its date range.  The ledger invariant is: rows with source
// reservation/paid_reservation exist exactly while the status is in this
// set, and are gone otherwise.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusPaymentInProgress || s == StatusPaid
}

// Reservation is a booking of one spot for a range of calendar days.
// StartDate is the arrival day (inclusive), EndDate the departure day
// (exclusive for blocking purposes: checkout at 10:00 precedes the next
// check-in).  Amount is the full price in major currency units; the
// gateway works in minor units via MinorUnits.  The row is owned by the
// state machine; everything else only reads it.
type Reservation struct {
	ID               uint64    `json:"id"`
	Token            string    `json:"token"`
	SpotID           uint64    `json:"spot_id"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Status           Status    `json:"status"`
	Amount           float64   `json:"amount"`
	PaymentSessionID string    `json:"payment_session_id,omitempty"`
	GatewayToken     string    `json:"-"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MinorUnits converts a major-unit amount to the gateway's minor units
// (grosz).  Both payment registration and reconciliation go through this
// helper so the registered and the verified amount can never disagree on
// rounding.
func MinorUnits(amount float64) int {
	if amount < 0 {
		return int(amount*100 - 0.5)
	}
	return int(amount*100 + 0.5)
}

// Nights returns the number of booked nights for the range, minimum one.
// Same-day arrival and departure still counts as a single night, matching
// the pricing rules.
func Nights(start, end time.Time) int {
	n := int(end.Sub(start).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}
