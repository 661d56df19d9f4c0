package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/qh20812/shopnest-inventory/internal/clock"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetVariantForUpdate(ctx context.Context, variantID string) (domain.VariantStock, error)
	UpdateCounters(ctx context.Context, variantID string, onHand, reserved int) error
	AppendLedger(ctx context.Context, e domain.LedgerEntry) error
	CreateReservation(ctx context.Context, r domain.Reservation) error
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error
	MarkReservationCommitted(ctx context.Context, id, orderID string) error
	UpdateReservationExpiry(ctx context.Context, id string, expiresAt time.Time) error
	DueReservations(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// ReservationService creates, extends, commits and releases time-bounded
// holds against variant stock.
type ReservationService struct {
	repo       ReservationRepository
	clock      clock.Clock
	logger     *zap.Logger
	publisher  Publisher
	defaultTTL time.Duration
	extendTTL  time.Duration
}

const (
	defaultHoldTTL   = 15 * time.Minute
	defaultExtendTTL = 10 * time.Minute
)

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:       repo,
		clock:      clk,
		logger:     zap.NewNop(),
		publisher:  NopPublisher{},
		defaultTTL: defaultHoldTTL,
		extendTTL:  defaultExtendTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithDefaultTTL overrides the TTL applied when a reserve request carries
// none.
func WithDefaultTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

// WithExtendTTL overrides the TTL applied when an extend request carries
// none; extensions happen during checkout and typically run shorter than
// the initial cart hold.
func WithExtendTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.extendTTL = d
		}
	}
}

func WithReservationLogger(l *zap.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithReservationPublisher(p Publisher) ReservationServiceOption {
	return func(s *ReservationService) {
		if p != nil {
			s.publisher = p
		}
	}
}

type ReserveInput struct {
	VariantID string
	Quantity  int
	Holder    string
	UserID    string
	TTL       time.Duration
	// SaleID is set by the flash sale enforcer, never by outside callers.
	SaleID string
}

// Reserve places a hold on available stock. It fails atomically with
// InsufficientStock when available < quantity at evaluation time; there is
// no partial reservation. A bare retry of Reserve is not idempotent;
// callers that time out must query the hold before retrying.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	if in.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	if in.Holder == "" {
		return domain.Reservation{}, domain.ErrHolderRequired
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.clock.Now()
	var result domain.Reservation
	var emitted []domain.LedgerEntry
	var low domain.VariantStock
	var box *outbox
	var owned bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)
		emitted = emitted[:0]

		v, err := s.repo.GetVariantForUpdate(txCtx, in.VariantID)
		if err != nil {
			return err
		}
		if v.Frozen {
			return domain.ErrVariantFrozen
		}

		r := domain.Reservation{
			ID:        newID(),
			VariantID: v.VariantID,
			Quantity:  in.Quantity,
			Holder:    in.Holder,
			UserID:    in.UserID,
			SaleID:    in.SaleID,
			Status:    domain.ReservationActive,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}

		if v.Tracked {
			if v.Available() < in.Quantity {
				return domain.ErrInsufficientStock
			}
			entry := domain.LedgerEntry{
				ID:             newID(),
				VariantID:      v.VariantID,
				QuantityChange: -in.Quantity,
				Reason:         domain.ReasonReserve,
				UserID:         in.UserID,
				CreatedAt:      now,
			}
			if err := s.repo.AppendLedger(txCtx, entry); err != nil {
				return err
			}
			v.Reserved += in.Quantity
			if err := s.repo.UpdateCounters(txCtx, v.VariantID, v.OnHand, v.Reserved); err != nil {
				return err
			}
			emitted = append(emitted, entry)
		}

		if err := s.repo.CreateReservation(txCtx, r); err != nil {
			return err
		}
		result = r
		low = v
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	box.stage(func(pubCtx context.Context) { s.publish(pubCtx, emitted, low) })
	if owned {
		box.flush(ctx)
	}
	return result, nil
}

// Get reads the current state of a hold; callers that timed out on Reserve
// use it before retrying.
func (s *ReservationService) Get(ctx context.Context, id string) (domain.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

// Extend refreshes the hold's expiry. No quantity changes, no ledger entry.
func (s *ReservationService) Extend(ctx context.Context, id string, ttl time.Duration) (domain.Reservation, error) {
	if ttl <= 0 {
		ttl = s.extendTTL
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		r, err := s.repo.GetReservationForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, domain.ErrReservationNotFound) || errors.Is(err, domain.ErrInvalidID) {
				return domain.ErrReservationInvalid
			}
			return err
		}
		if r.Terminal() || r.ExpiredAt(now) {
			return domain.ErrReservationInvalid
		}

		r.ExpiresAt = now.Add(ttl)
		if err := s.repo.UpdateReservationExpiry(txCtx, r.ID, r.ExpiresAt); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Release returns held quantity to the available pool. It is idempotent:
// releasing an unknown or already-terminal reservation is a no-op so that
// client and sweeper retries are safe.
func (s *ReservationService) Release(ctx context.Context, id string, reason domain.LedgerReason) error {
	if reason != domain.ReasonReserveExpire {
		reason = domain.ReasonReserveRelease
	}

	now := s.clock.Now()
	var emitted []domain.LedgerEntry
	var low domain.VariantStock
	var box *outbox
	var owned bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)
		emitted = emitted[:0]

		r, err := s.repo.GetReservationForUpdate(txCtx, id)
		if err != nil {
			if errors.Is(err, domain.ErrReservationNotFound) || errors.Is(err, domain.ErrInvalidID) {
				return nil
			}
			return err
		}
		if r.Terminal() {
			return nil
		}

		v, err := s.repo.GetVariantForUpdate(txCtx, r.VariantID)
		if err != nil {
			return err
		}
		if v.Frozen {
			return domain.ErrVariantFrozen
		}

		if v.Tracked {
			if v.Reserved < r.Quantity {
				return domain.ErrLedgerMismatch
			}
			entry := domain.LedgerEntry{
				ID:             newID(),
				VariantID:      v.VariantID,
				QuantityChange: r.Quantity,
				Reason:         reason,
				CreatedAt:      now,
			}
			if err := s.repo.AppendLedger(txCtx, entry); err != nil {
				return err
			}
			v.Reserved -= r.Quantity
			if err := s.repo.UpdateCounters(txCtx, v.VariantID, v.OnHand, v.Reserved); err != nil {
				return err
			}
			emitted = append(emitted, entry)
		}

		status := domain.ReservationReleased
		if reason == domain.ReasonReserveExpire {
			status = domain.ReservationExpired
		}
		if err := s.repo.UpdateReservationStatus(txCtx, r.ID, status); err != nil {
			return err
		}
		low = v
		return nil
	})
	if err != nil {
		return err
	}

	box.stage(func(pubCtx context.Context) { s.publish(pubCtx, emitted, low) })
	if owned {
		box.flush(ctx)
	}
	return nil
}

type CommitInput struct {
	ReservationID string
	OrderID       string
	UserID        string
}

// Commit converts a live hold into a sale: on_hand and reserved both drop
// by the held quantity and a SALE_COMMIT entry ties the change to the
// order. A repeated commit for the same order returns the terminal state;
// any other terminal or expired hold fails with ReservationInvalid.
func (s *ReservationService) Commit(ctx context.Context, in CommitInput) (domain.Reservation, error) {
	if in.OrderID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Reservation
	var emitted []domain.LedgerEntry
	var low domain.VariantStock
	var box *outbox
	var owned bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)
		emitted = emitted[:0]

		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			if errors.Is(err, domain.ErrReservationNotFound) || errors.Is(err, domain.ErrInvalidID) {
				return domain.ErrReservationInvalid
			}
			return err
		}
		if r.Status == domain.ReservationCommitted {
			if r.OrderID == in.OrderID {
				result = r
				return nil
			}
			return domain.ErrReservationInvalid
		}
		if r.Terminal() || r.ExpiredAt(now) {
			return domain.ErrReservationInvalid
		}

		v, err := s.repo.GetVariantForUpdate(txCtx, r.VariantID)
		if err != nil {
			return err
		}
		if v.Frozen {
			return domain.ErrVariantFrozen
		}

		if v.Tracked {
			if v.OnHand < r.Quantity || v.Reserved < r.Quantity {
				return domain.ErrLedgerMismatch
			}
			userID := in.UserID
			if userID == "" {
				userID = r.UserID
			}
			entry := domain.LedgerEntry{
				ID:             newID(),
				VariantID:      v.VariantID,
				QuantityChange: -r.Quantity,
				Reason:         domain.ReasonSaleCommit,
				OrderID:        in.OrderID,
				UserID:         userID,
				CreatedAt:      now,
			}
			if err := s.repo.AppendLedger(txCtx, entry); err != nil {
				return err
			}
			v.OnHand -= r.Quantity
			v.Reserved -= r.Quantity
			if err := s.repo.UpdateCounters(txCtx, v.VariantID, v.OnHand, v.Reserved); err != nil {
				return err
			}
			emitted = append(emitted, entry)
		}

		if err := s.repo.MarkReservationCommitted(txCtx, r.ID, in.OrderID); err != nil {
			return err
		}
		r.Status = domain.ReservationCommitted
		r.OrderID = in.OrderID
		result = r
		low = v
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	box.stage(func(pubCtx context.Context) { s.publish(pubCtx, emitted, low) })
	if owned {
		box.flush(ctx)
	}
	return result, nil
}

// ExpireDue releases holds past their TTL. Each release runs in its own
// per-variant transaction; a failure on one hold does not stop the sweep.
func (s *ReservationService) ExpireDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	ids, err := s.repo.DueReservations(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		if err := s.Release(ctx, id, domain.ReasonReserveExpire); err != nil {
			s.logger.Warn("expiry release failed",
				zap.String("reservation_id", id),
				zap.Error(err),
			)
			continue
		}
		released++
	}
	return released, nil
}

func (s *ReservationService) publish(ctx context.Context, entries []domain.LedgerEntry, v domain.VariantStock) {
	for _, e := range entries {
		s.publisher.LedgerAppended(ctx, e)
	}
	if v.LowStock() {
		s.publisher.LowStock(ctx, v)
	}
}
