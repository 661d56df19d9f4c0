package domain

import "time"

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
	ReservationExpired   ReservationStatus = "expired"
)

// Reservation is a time-bounded hold against a variant's available pool.
type Reservation struct {
	ID        string
	VariantID string
	Quantity  int
	// Holder is the cart/session or order reference that owns the hold.
	Holder string
	// UserID is the buyer the hold was taken for. Flash-sale per-user caps
	// are enforced against this value, not whatever a later commit claims.
	UserID string
	// SaleID is set when the hold was taken under a flash sale window.
	SaleID    string
	OrderID   string
	Status    ReservationStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Terminal reports whether the reservation can no longer change state.
func (r Reservation) Terminal() bool {
	return r.Status != ReservationActive
}

// ExpiredAt reports whether the hold is past its TTL at t.
func (r Reservation) ExpiredAt(t time.Time) bool {
	return !r.ExpiresAt.After(t)
}
