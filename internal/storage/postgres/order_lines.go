package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

func (s *Store) CreateOrderLine(ctx context.Context, line domain.OrderLine) error {
	const stmt = `
INSERT INTO order_lines (id, order_id, variant_id, reservation_id, quantity, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.exec(ctx, stmt,
		line.ID, line.OrderID, line.VariantID, line.ReservationID, line.Quantity, string(line.State), line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrReservationInvalid
		}
		if isForeignKeyViolation(err) {
			return domain.ErrReservationNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create order line: %w", err)
	}
	return nil
}

func (s *Store) GetOrderLineForUpdate(ctx context.Context, id string) (domain.OrderLine, error) {
	const query = `
SELECT id, order_id, variant_id, reservation_id, quantity, state, created_at, updated_at
FROM order_lines
WHERE id = $1
FOR UPDATE`

	var line domain.OrderLine
	var state string
	err := s.queryRow(ctx, query, id).
		Scan(&line.ID, &line.OrderID, &line.VariantID, &line.ReservationID, &line.Quantity, &state, &line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.OrderLine{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.OrderLine{}, domain.ErrOrderLineNotFound
		}
		return domain.OrderLine{}, fmt.Errorf("get order line: %w", err)
	}
	line.State = domain.OrderLineState(state)
	return line, nil
}

func (s *Store) UpdateOrderLineState(ctx context.Context, id string, state domain.OrderLineState, updatedAt time.Time) error {
	const stmt = `UPDATE order_lines SET state = $2, updated_at = $3 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, id, string(state), updatedAt)
	if err != nil {
		return fmt.Errorf("update order line state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderLineNotFound
	}
	return nil
}
