package domain

import "time"

type OrderLineState string

const (
	OrderLineReserved  OrderLineState = "reserved"
	OrderLineCommitted OrderLineState = "committed"
	OrderLineCancelled OrderLineState = "cancelled"
	OrderLineReturned  OrderLineState = "returned"
)

// OrderLine tracks one order line's disposition from reservation to final
// state. Every transition writes a ledger entry attributed to OrderID.
type OrderLine struct {
	ID            string
	OrderID       string
	VariantID     string
	ReservationID string
	Quantity      int
	State         OrderLineState
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanTransition reports whether the state machine permits from -> to.
// RESERVED -> COMMITTED | CANCELLED; COMMITTED -> CANCELLED | RETURNED.
func CanTransition(from, to OrderLineState) bool {
	switch from {
	case OrderLineReserved:
		return to == OrderLineCommitted || to == OrderLineCancelled
	case OrderLineCommitted:
		return to == OrderLineCancelled || to == OrderLineReturned
	}
	return false
}
