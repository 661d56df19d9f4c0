package domain

import "time"

// VariantStock holds the authoritative counters for one sellable variant.
// The counters are a cache of the ledger fold; all writes go through the
// per-variant row lock together with a ledger append.
type VariantStock struct {
	VariantID         string
	SKU               string
	OnHand            int
	Reserved          int
	MinimumStockLevel int
	// Tracked is false for legacy SKUs whose quantities are not managed;
	// the engine reports unlimited availability and skips accounting.
	Tracked bool
	// Frozen is set when a ledger replay mismatch is detected; every
	// further mutation is rejected until manual reconciliation.
	Frozen    bool
	CreatedAt time.Time
}

// Available is derived, never stored.
func (v VariantStock) Available() int {
	if n := v.OnHand - v.Reserved; n > 0 {
		return n
	}
	return 0
}

// LowStock reports whether the variant sits at or below its alert threshold.
func (v VariantStock) LowStock() bool {
	return v.Tracked && v.MinimumStockLevel > 0 && v.Available() <= v.MinimumStockLevel
}

// Availability is the read contract exposed to carts and product pages.
// When Tracked is false the Available value is meaningless and callers must
// treat the variant as unlimited.
type Availability struct {
	VariantID string
	Available int
	Tracked   bool
}
