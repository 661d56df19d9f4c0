package app

import (
	"context"
	"errors"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/clock"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

type OrderLineRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrderLine(ctx context.Context, line domain.OrderLine) error
	GetOrderLineForUpdate(ctx context.Context, id string) (domain.OrderLine, error)
	UpdateOrderLineState(ctx context.Context, id string, state domain.OrderLineState, updatedAt time.Time) error
}

// ReservationCommitter is the cap-enforced commit/release path; in
// production it is the flash sale service wrapping the reservation service.
type ReservationCommitter interface {
	Commit(ctx context.Context, in CommitInput) (domain.Reservation, error)
	Release(ctx context.Context, id string, reason domain.LedgerReason) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
}

// StockCreditor returns sold units to the sellable pool.
type StockCreditor interface {
	ReturnCredit(ctx context.Context, in ReturnCreditInput) (domain.VariantStock, error)
}

// FulfillmentService drives the order line state machine
// RESERVED -> COMMITTED -> {CANCELLED, RETURNED}, with RESERVED ->
// CANCELLED on payment failure. Each transition is the single point where
// a ledger entry carrying the order id is written.
type FulfillmentService struct {
	repo  OrderLineRepository
	resv  ReservationCommitter
	stock StockCreditor
	clock clock.Clock
}

func NewFulfillmentService(repo OrderLineRepository, resv ReservationCommitter, stock StockCreditor, clk clock.Clock) *FulfillmentService {
	return &FulfillmentService{
		repo:  repo,
		resv:  resv,
		stock: stock,
		clock: clk,
	}
}

type OpenLineInput struct {
	OrderID       string
	ReservationID string
}

// OpenLine binds a live reservation to an order line in state RESERVED.
func (s *FulfillmentService) OpenLine(ctx context.Context, in OpenLineInput) (domain.OrderLine, error) {
	if in.OrderID == "" || in.ReservationID == "" {
		return domain.OrderLine{}, domain.ErrInvalidID
	}

	r, err := s.resv.Get(ctx, in.ReservationID)
	if err != nil {
		return domain.OrderLine{}, err
	}
	now := s.clock.Now()
	if r.Terminal() || r.ExpiredAt(now) {
		return domain.OrderLine{}, domain.ErrReservationInvalid
	}

	line := domain.OrderLine{
		ID:            newID(),
		OrderID:       in.OrderID,
		VariantID:     r.VariantID,
		ReservationID: r.ID,
		Quantity:      r.Quantity,
		State:         domain.OrderLineReserved,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateOrderLine(ctx, line); err != nil {
		return domain.OrderLine{}, err
	}
	return line, nil
}

// CapturePayment moves RESERVED -> COMMITTED once payment has already
// succeeded; the payment call itself never happens under the variant lock.
// If the flash sale cap was exhausted while the buyer paid, the reservation
// is gone and the line lands in CANCELLED with CapExceeded for the caller.
func (s *FulfillmentService) CapturePayment(ctx context.Context, lineID, userID string) (domain.OrderLine, error) {
	now := s.clock.Now()
	var result domain.OrderLine
	var capHit bool
	var box *outbox
	var owned bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)
		capHit = false

		line, err := s.repo.GetOrderLineForUpdate(txCtx, lineID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(line.State, domain.OrderLineCommitted) {
			return domain.ErrInvalidTransition
		}

		_, err = s.resv.Commit(txCtx, CommitInput{
			ReservationID: line.ReservationID,
			OrderID:       line.OrderID,
			UserID:        userID,
		})
		if err != nil {
			if errors.Is(err, domain.ErrCapExceeded) {
				// The enforcer already released the hold; record the line
				// as cancelled rather than rolling that back.
				if err := s.repo.UpdateOrderLineState(txCtx, line.ID, domain.OrderLineCancelled, now); err != nil {
					return err
				}
				line.State = domain.OrderLineCancelled
				line.UpdatedAt = now
				result = line
				capHit = true
				return nil
			}
			return err
		}

		if err := s.repo.UpdateOrderLineState(txCtx, line.ID, domain.OrderLineCommitted, now); err != nil {
			return err
		}
		line.State = domain.OrderLineCommitted
		line.UpdatedAt = now
		result = line
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, err
	}
	if owned {
		box.flush(ctx)
	}
	if capHit {
		return result, domain.ErrCapExceeded
	}
	return result, nil
}

// FailPayment cancels a RESERVED line whose payment attempt failed and
// releases its hold. Unlike Cancel it never touches a COMMITTED line;
// captured payments must be unwound through Cancel.
func (s *FulfillmentService) FailPayment(ctx context.Context, lineID string) (domain.OrderLine, error) {
	now := s.clock.Now()
	var result domain.OrderLine
	var box *outbox
	var owned bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)

		line, err := s.repo.GetOrderLineForUpdate(txCtx, lineID)
		if err != nil {
			return err
		}
		if line.State != domain.OrderLineReserved {
			return domain.ErrInvalidTransition
		}
		if err := s.resv.Release(txCtx, line.ReservationID, domain.ReasonReserveRelease); err != nil {
			return err
		}
		if err := s.repo.UpdateOrderLineState(txCtx, line.ID, domain.OrderLineCancelled, now); err != nil {
			return err
		}
		line.State = domain.OrderLineCancelled
		line.UpdatedAt = now
		result = line
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, err
	}
	if owned {
		box.flush(ctx)
	}
	return result, nil
}

// Cancel handles both failure modes: a RESERVED line (payment failed or
// checkout abandoned) releases its hold; a COMMITTED line (pre-shipment
// cancellation) credits the units back as fresh stock.
func (s *FulfillmentService) Cancel(ctx context.Context, lineID, userID string) (domain.OrderLine, error) {
	return s.finalize(ctx, lineID, userID, domain.OrderLineCancelled)
}

// Return moves a COMMITTED line to RETURNED after delivery; the units
// re-enter the sellable pool via RETURN_CREDIT, never via reserved.
func (s *FulfillmentService) Return(ctx context.Context, lineID, userID string) (domain.OrderLine, error) {
	return s.finalize(ctx, lineID, userID, domain.OrderLineReturned)
}

func (s *FulfillmentService) finalize(ctx context.Context, lineID, userID string, target domain.OrderLineState) (domain.OrderLine, error) {
	now := s.clock.Now()
	var result domain.OrderLine
	var box *outbox
	var owned bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)

		line, err := s.repo.GetOrderLineForUpdate(txCtx, lineID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(line.State, target) {
			return domain.ErrInvalidTransition
		}

		switch line.State {
		case domain.OrderLineReserved:
			if err := s.resv.Release(txCtx, line.ReservationID, domain.ReasonReserveRelease); err != nil {
				return err
			}
		case domain.OrderLineCommitted:
			if _, err := s.stock.ReturnCredit(txCtx, ReturnCreditInput{
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				OrderID:   line.OrderID,
				UserID:    userID,
			}); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateOrderLineState(txCtx, line.ID, target, now); err != nil {
			return err
		}
		line.State = target
		line.UpdatedAt = now
		result = line
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, err
	}
	if owned {
		box.flush(ctx)
	}
	return result, nil
}
