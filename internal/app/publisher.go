package app

import (
	"context"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

// Publisher receives stock events. Services call it only after the owning
// transaction has committed, never inside the per-variant lock, and treat
// delivery as best-effort.
type Publisher interface {
	LedgerAppended(ctx context.Context, e domain.LedgerEntry)
	LowStock(ctx context.Context, v domain.VariantStock)
}

// NopPublisher drops all events; the default when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) LedgerAppended(context.Context, domain.LedgerEntry) {}

func (NopPublisher) LowStock(context.Context, domain.VariantStock) {}
