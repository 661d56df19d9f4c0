package postgres

import (
	"context"
	"fmt"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

func (s *Store) AppendLedger(ctx context.Context, e domain.LedgerEntry) error {
	const stmt = `
INSERT INTO stock_ledger (id, variant_id, quantity_change, reason, order_id, user_id, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)`

	_, err := s.exec(ctx, stmt,
		e.ID, e.VariantID, e.QuantityChange, string(e.Reason), e.OrderID, e.UserID, e.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrVariantNotFound
		}
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// ListLedger returns every entry for a variant in append order. Replaying
// the result must reproduce the cached counters.
func (s *Store) ListLedger(ctx context.Context, variantID string) ([]domain.LedgerEntry, error) {
	const query = `
SELECT id, seq, variant_id, quantity_change, reason, COALESCE(order_id, ''), COALESCE(user_id, ''), created_at
FROM stock_ledger
WHERE variant_id = $1
ORDER BY seq ASC`

	rows, err := s.query(ctx, query, variantID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var reason string
		if err := rows.Scan(&e.ID, &e.Seq, &e.VariantID, &e.QuantityChange, &reason, &e.OrderID, &e.UserID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Reason = domain.LedgerReason(reason)
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate ledger: %w", rows.Err())
	}
	return entries, nil
}
