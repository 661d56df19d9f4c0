package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

const saleColumns = `id, variant_id, quantity_limit, sold_count, max_per_user, starts_at, ends_at, created_at`

func (s *Store) CreateFlashSale(ctx context.Context, sale domain.FlashSale) error {
	const stmt = `
INSERT INTO flash_sales (id, variant_id, quantity_limit, sold_count, max_per_user, starts_at, ends_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, stmt,
		sale.ID, sale.VariantID, sale.QuantityLimit, sale.SoldCount, sale.MaxPerUser, sale.StartsAt, sale.EndsAt, sale.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrVariantNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create flash sale: %w", err)
	}
	return nil
}

// LatestSaleForVariant returns the most recent sale whose window has
// started, or nil when the variant is not enrolled. A sale keeps governing
// reservations after its window closes until a newer one starts.
func (s *Store) LatestSaleForVariant(ctx context.Context, variantID string, now time.Time) (*domain.FlashSale, error) {
	const query = `SELECT ` + saleColumns + `
FROM flash_sales
WHERE variant_id = $1 AND starts_at <= $2
ORDER BY starts_at DESC
LIMIT 1`

	sale, err := s.scanSale(s.queryRow(ctx, query, variantID, now))
	if err != nil {
		if err == domain.ErrSaleNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListFlashSales(ctx context.Context) ([]domain.FlashSale, error) {
	const query = `SELECT ` + saleColumns + ` FROM flash_sales ORDER BY starts_at DESC`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list flash sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.FlashSale
	for rows.Next() {
		var sale domain.FlashSale
		if err := rows.Scan(&sale.ID, &sale.VariantID, &sale.QuantityLimit, &sale.SoldCount, &sale.MaxPerUser, &sale.StartsAt, &sale.EndsAt, &sale.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flash sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate flash sales: %w", rows.Err())
	}
	return sales, nil
}

func (s *Store) GetSaleForUpdate(ctx context.Context, id string) (domain.FlashSale, error) {
	const query = `SELECT ` + saleColumns + ` FROM flash_sales WHERE id = $1 FOR UPDATE`
	return s.scanSale(s.queryRow(ctx, query, id))
}

func (s *Store) scanSale(row pgx.Row) (domain.FlashSale, error) {
	var sale domain.FlashSale
	err := row.Scan(&sale.ID, &sale.VariantID, &sale.QuantityLimit, &sale.SoldCount, &sale.MaxPerUser, &sale.StartsAt, &sale.EndsAt, &sale.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.FlashSale{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.FlashSale{}, domain.ErrSaleNotFound
		}
		return domain.FlashSale{}, fmt.Errorf("get flash sale: %w", err)
	}
	return sale, nil
}

// IncrementSoldCount bumps sold_count only while the cap holds; the false
// return is the authoritative CapExceeded signal at commit time.
func (s *Store) IncrementSoldCount(ctx context.Context, id string, qty int) (bool, error) {
	const stmt = `
UPDATE flash_sales
SET sold_count = sold_count + $2
WHERE id = $1 AND sold_count + $2 <= quantity_limit`

	tag, err := s.exec(ctx, stmt, id, qty)
	if err != nil {
		return false, fmt.Errorf("increment sold count: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SumUserCommitted(ctx context.Context, saleID, userID string) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM flash_sale_purchases
WHERE sale_id = $1 AND user_id = $2`

	var total int
	if err := s.queryRow(ctx, query, saleID, userID).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum user committed: %w", err)
	}
	return total, nil
}

func (s *Store) RecordUserPurchase(ctx context.Context, saleID, userID string, qty int) error {
	const stmt = `
INSERT INTO flash_sale_purchases (sale_id, user_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (sale_id, user_id) DO UPDATE SET quantity = flash_sale_purchases.quantity + EXCLUDED.quantity`

	if _, err := s.exec(ctx, stmt, saleID, userID, qty); err != nil {
		return fmt.Errorf("record user purchase: %w", err)
	}
	return nil
}
