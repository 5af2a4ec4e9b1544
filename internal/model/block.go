package model

import "time"

// BlockSource tags why a (spot, day) pair is occupied.  Reservation-owned
// sources are created and removed by lifecycle transitions; admin rows are
// placed manually and never touched by the lifecycle.
type BlockSource string

const (
	SourceReservation     BlockSource = "reservation"      // held by an unpaid reservation
	SourcePaidReservation BlockSource = "paid_reservation" // held by a confirmed reservation
	SourceAdmin           BlockSource = "admin"            // withheld manually
)

// LifecycleSources are the sources owned by reservation transitions.
// Release operations driven by the state machine are restricted to this
// set so an admin block survives any reservation outcome.
var LifecycleSources = []BlockSource{SourceReservation, SourcePaidReservation}

// BlockEntry marks a single calendar day of a spot as unavailable.  The
// composite key is (SpotID, Day, Source); several sources may coexist on
// the same day and the day is busy as long as at least one row exists.
type BlockEntry struct {
	SpotID uint64      `json:"spot_id"`
	Day    time.Time   `json:"day"`
	Source BlockSource `json:"source"`
}

// DayKey is the canonical string form of a ledger day.
const DayKey = "2006-01-02"

// DaysIn expands [start, end) into one entry per calendar day.  The end
// day is excluded: the departure day is never blocked.  An inverted or
// empty range yields nil.
func DaysIn(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
