package model

// Spot is a bookable physical resource with a capacity of one occupant
// per calendar day.  Inactive spots are hidden from availability queries
// but keep their historical reservations.
type Spot struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
