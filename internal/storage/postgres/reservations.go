package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

const reservationColumns = `id, variant_id, quantity, holder, user_id, COALESCE(sale_id::text, ''), COALESCE(order_id, ''), status, created_at, expires_at`

func (s *Store) CreateReservation(ctx context.Context, r domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, variant_id, quantity, holder, user_id, sale_id, order_id, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, NULLIF($7, ''), $8, $9, $10)`

	_, err := s.exec(ctx, stmt,
		r.ID, r.VariantID, r.Quantity, r.Holder, r.UserID, r.SaleID, r.OrderID, string(r.Status), r.CreatedAt, r.ExpiresAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrVariantNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	return s.scanReservation(s.queryRow(ctx, query, id))
}

func (s *Store) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	return s.scanReservation(s.queryRow(ctx, query, id))
}

func (s *Store) scanReservation(row pgx.Row) (domain.Reservation, error) {
	var r domain.Reservation
	var status string
	err := row.Scan(&r.ID, &r.VariantID, &r.Quantity, &r.Holder, &r.UserID, &r.SaleID, &r.OrderID, &status, &r.CreatedAt, &r.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	r.Status = domain.ReservationStatus(status)
	return r, nil
}

func (s *Store) UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	const stmt = `UPDATE reservations SET status = $2 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, id, string(status))
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// MarkReservationCommitted records the terminal commit together with the
// order that caused it.
func (s *Store) MarkReservationCommitted(ctx context.Context, id, orderID string) error {
	const stmt = `UPDATE reservations SET status = $2, order_id = $3 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, id, string(domain.ReservationCommitted), orderID)
	if err != nil {
		return fmt.Errorf("mark reservation committed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (s *Store) UpdateReservationExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	const stmt = `UPDATE reservations SET expires_at = $2 WHERE id = $1`

	tag, err := s.exec(ctx, stmt, id, expiresAt)
	if err != nil {
		return fmt.Errorf("update reservation expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// DueReservations returns ids of active holds past their TTL, oldest first.
func (s *Store) DueReservations(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `
SELECT id
FROM reservations
WHERE status = 'active' AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := s.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due reservations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due reservation: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate due reservations: %w", rows.Err())
	}
	return ids, nil
}

// OldestActiveReservations locks and returns the variant's unexpired holds
// oldest first, for the oversell recovery policy.
func (s *Store) OldestActiveReservations(ctx context.Context, variantID string, now time.Time) ([]domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + `
FROM reservations
WHERE variant_id = $1 AND status = 'active' AND expires_at > $2
ORDER BY created_at ASC
FOR UPDATE`

	rows, err := s.query(ctx, query, variantID, now)
	if err != nil {
		return nil, fmt.Errorf("oldest active reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var r domain.Reservation
		var status string
		if err := rows.Scan(&r.ID, &r.VariantID, &r.Quantity, &r.Holder, &r.UserID, &r.SaleID, &r.OrderID, &status, &r.CreatedAt, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r.Status = domain.ReservationStatus(status)
		reservations = append(reservations, r)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	return reservations, nil
}

// SumHolderPending totals a holder's active unexpired reservations taken
// under a sale; the enforcer's advisory pre-check reads it.
func (s *Store) SumHolderPending(ctx context.Context, saleID, holder string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM reservations
WHERE sale_id = $1 AND holder = $2 AND status = 'active' AND expires_at > $3`

	var total int
	if err := s.queryRow(ctx, query, saleID, holder, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum holder pending: %w", err)
	}
	return total, nil
}
