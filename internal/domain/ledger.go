package domain

import "time"

type LedgerReason string

const (
	ReasonRestock          LedgerReason = "RESTOCK"
	ReasonSaleCommit       LedgerReason = "SALE_COMMIT"
	ReasonReturnCredit     LedgerReason = "RETURN_CREDIT"
	ReasonManualAdjustment LedgerReason = "MANUAL_ADJUSTMENT"
	ReasonReserve          LedgerReason = "RESERVE"
	ReasonReserveExpire    LedgerReason = "RESERVE_EXPIRE"
	ReasonReserveRelease   LedgerReason = "RESERVE_RELEASE"
)

// LedgerEntry is one append-only quantity change. QuantityChange is signed:
// positive credits on_hand or releases reserved units, negative debits.
type LedgerEntry struct {
	ID             string
	Seq            int64
	VariantID      string
	QuantityChange int
	Reason         LedgerReason
	OrderID        string
	UserID         string
	CreatedAt      time.Time
}

// Apply folds the entry into an (onHand, reserved) pair. Which counter a
// change touches is determined by the reason, so replaying entries in seq
// order reproduces the cached counters exactly.
func (e LedgerEntry) Apply(onHand, reserved int) (int, int) {
	switch e.Reason {
	case ReasonRestock, ReasonManualAdjustment, ReasonReturnCredit:
		return onHand + e.QuantityChange, reserved
	case ReasonReserve:
		// Stored as a debit of available; reserved grows by the magnitude.
		return onHand, reserved - e.QuantityChange
	case ReasonReserveRelease, ReasonReserveExpire:
		return onHand, reserved - e.QuantityChange
	case ReasonSaleCommit:
		// The unit leaves both the sellable pool and the hold.
		return onHand + e.QuantityChange, reserved + e.QuantityChange
	}
	return onHand, reserved
}

// Replay folds entries in order from a zero state.
func Replay(entries []LedgerEntry) (onHand, reserved int) {
	for _, e := range entries {
		onHand, reserved = e.Apply(onHand, reserved)
	}
	return onHand, reserved
}

// ValidReason reports whether r is one of the closed set of reasons.
func ValidReason(r LedgerReason) bool {
	switch r {
	case ReasonRestock, ReasonSaleCommit, ReasonReturnCredit,
		ReasonManualAdjustment, ReasonReserve, ReasonReserveExpire,
		ReasonReserveRelease:
		return true
	}
	return false
}
