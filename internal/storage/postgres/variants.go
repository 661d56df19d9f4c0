package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

const variantColumns = `id, sku, on_hand, reserved, minimum_stock_level, tracked, frozen, created_at`

func (s *Store) CreateVariant(ctx context.Context, v domain.VariantStock) error {
	const stmt = `
INSERT INTO variants (id, sku, on_hand, reserved, minimum_stock_level, tracked, frozen, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, stmt,
		v.VariantID, v.SKU, v.OnHand, v.Reserved, v.MinimumStockLevel, v.Tracked, v.Frozen, v.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVariantExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create variant: %w", err)
	}
	return nil
}

func (s *Store) GetVariant(ctx context.Context, variantID string) (domain.VariantStock, error) {
	const query = `SELECT ` + variantColumns + ` FROM variants WHERE id = $1`
	return s.scanVariant(s.queryRow(ctx, query, variantID))
}

// GetVariantForUpdate locks the variant row; this is the per-variant
// serialization boundary for every mutating operation.
func (s *Store) GetVariantForUpdate(ctx context.Context, variantID string) (domain.VariantStock, error) {
	const query = `SELECT ` + variantColumns + ` FROM variants WHERE id = $1 FOR UPDATE`
	return s.scanVariant(s.queryRow(ctx, query, variantID))
}

func (s *Store) scanVariant(row pgx.Row) (domain.VariantStock, error) {
	var v domain.VariantStock
	err := row.Scan(&v.VariantID, &v.SKU, &v.OnHand, &v.Reserved, &v.MinimumStockLevel, &v.Tracked, &v.Frozen, &v.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.VariantStock{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.VariantStock{}, domain.ErrVariantNotFound
		}
		return domain.VariantStock{}, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

func (s *Store) UpdateCounters(ctx context.Context, variantID string, onHand, reserved int) error {
	const stmt = `UPDATE variants SET on_hand = $2, reserved = $3 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, variantID, onHand, reserved)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

func (s *Store) SetFrozen(ctx context.Context, variantID string, frozen bool) error {
	const stmt = `UPDATE variants SET frozen = $2 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, variantID, frozen)
	if err != nil {
		return fmt.Errorf("set frozen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVariantNotFound
	}
	return nil
}

func (s *Store) ListVariants(ctx context.Context) ([]domain.VariantStock, error) {
	const query = `SELECT ` + variantColumns + ` FROM variants ORDER BY created_at ASC`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.VariantStock
	for rows.Next() {
		var v domain.VariantStock
		if err := rows.Scan(&v.VariantID, &v.SKU, &v.OnHand, &v.Reserved, &v.MinimumStockLevel, &v.Tracked, &v.Frozen, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate variants: %w", rows.Err())
	}
	return variants, nil
}
