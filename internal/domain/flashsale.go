package domain

import "time"

// FlashSale caps committed units for one variant during a sale window.
// SoldCount only increases, and only on commit, never on mere reservation.
type FlashSale struct {
	ID            string
	VariantID     string
	QuantityLimit int
	SoldCount     int
	// MaxPerUser caps cumulative committed quantity per buyer for the event.
	MaxPerUser int
	StartsAt   time.Time
	EndsAt     time.Time
	CreatedAt  time.Time
}

// WindowOpen reports whether new reservations are accepted at t.
func (s FlashSale) WindowOpen(t time.Time) bool {
	return !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

// Remaining is the number of units still commitable under the cap.
func (s FlashSale) Remaining() int {
	if n := s.QuantityLimit - s.SoldCount; n > 0 {
		return n
	}
	return 0
}
