package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qh20812/shopnest-inventory/internal/clock"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

type StockRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateVariant(ctx context.Context, v domain.VariantStock) error
	GetVariant(ctx context.Context, variantID string) (domain.VariantStock, error)
	GetVariantForUpdate(ctx context.Context, variantID string) (domain.VariantStock, error)
	UpdateCounters(ctx context.Context, variantID string, onHand, reserved int) error
	SetFrozen(ctx context.Context, variantID string, frozen bool) error
	AppendLedger(ctx context.Context, e domain.LedgerEntry) error
	ListLedger(ctx context.Context, variantID string) ([]domain.LedgerEntry, error)
	ListVariants(ctx context.Context) ([]domain.VariantStock, error)
	OldestActiveReservations(ctx context.Context, variantID string, now time.Time) ([]domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error
}

// StockService owns the variant counters and the ledger. Every quantity
// change appends a ledger entry and updates the cached counters in the same
// transaction, under the variant row lock.
type StockService struct {
	repo      StockRepository
	clock     clock.Clock
	logger    *zap.Logger
	publisher Publisher
}

func NewStockService(repo StockRepository, clk clock.Clock, opts ...StockServiceOption) *StockService {
	svc := &StockService{
		repo:      repo,
		clock:     clk,
		logger:    zap.NewNop(),
		publisher: NopPublisher{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type StockServiceOption func(*StockService)

func WithStockLogger(l *zap.Logger) StockServiceOption {
	return func(s *StockService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithStockPublisher(p Publisher) StockServiceOption {
	return func(s *StockService) {
		if p != nil {
			s.publisher = p
		}
	}
}

type CreateVariantInput struct {
	SKU               string
	InitialOnHand     int
	MinimumStockLevel int
	Tracked           bool
}

func (s *StockService) CreateVariant(ctx context.Context, in CreateVariantInput) (domain.VariantStock, error) {
	if in.SKU == "" {
		return domain.VariantStock{}, domain.ErrInvalidID
	}
	if in.InitialOnHand < 0 || in.MinimumStockLevel < 0 {
		return domain.VariantStock{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	v := domain.VariantStock{
		VariantID:         newID(),
		SKU:               in.SKU,
		OnHand:            in.InitialOnHand,
		MinimumStockLevel: in.MinimumStockLevel,
		Tracked:           in.Tracked,
		CreatedAt:         now,
	}

	var emitted []domain.LedgerEntry
	var box *outbox
	var owned bool
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)
		emitted = emitted[:0]

		if err := s.repo.CreateVariant(txCtx, v); err != nil {
			return err
		}
		if in.InitialOnHand > 0 {
			entry := domain.LedgerEntry{
				ID:             newID(),
				VariantID:      v.VariantID,
				QuantityChange: in.InitialOnHand,
				Reason:         domain.ReasonRestock,
				CreatedAt:      now,
			}
			if err := s.repo.AppendLedger(txCtx, entry); err != nil {
				return err
			}
			emitted = append(emitted, entry)
		}
		return nil
	})
	if err != nil {
		return domain.VariantStock{}, err
	}

	box.stage(func(pubCtx context.Context) { s.publish(pubCtx, emitted, v) })
	if owned {
		box.flush(ctx)
	}
	return v, nil
}

// Availability serves the read-heavy display path. It reads outside the
// variant lock; reserve and commit re-read fresh state inside it.
func (s *StockService) Availability(ctx context.Context, variantID string) (domain.Availability, error) {
	v, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.Availability{
		VariantID: v.VariantID,
		Available: v.Available(),
		Tracked:   v.Tracked,
	}, nil
}

func (s *StockService) Variants(ctx context.Context) ([]domain.VariantStock, error) {
	return s.repo.ListVariants(ctx)
}

// Ledger returns the variant's full audit trail in append order.
func (s *StockService) Ledger(ctx context.Context, variantID string) ([]domain.LedgerEntry, error) {
	if _, err := s.repo.GetVariant(ctx, variantID); err != nil {
		return nil, err
	}
	return s.repo.ListLedger(ctx, variantID)
}

type AdjustInput struct {
	VariantID string
	Delta     int
	Reason    domain.LedgerReason
	OrderID   string
	UserID    string
}

// Adjust applies a restock or manual correction. A manual adjustment may
// force on_hand below reserved; the engine then releases the oldest active
// reservations until the invariant holds again, each release attributed to
// the adjusting user.
func (s *StockService) Adjust(ctx context.Context, in AdjustInput) (domain.VariantStock, error) {
	switch in.Reason {
	case domain.ReasonRestock:
		if in.Delta <= 0 {
			return domain.VariantStock{}, domain.ErrInvalidQuantity
		}
	case domain.ReasonManualAdjustment:
		if in.Delta == 0 {
			return domain.VariantStock{}, domain.ErrInvalidQuantity
		}
	default:
		return domain.VariantStock{}, domain.ErrInvalidReason
	}

	now := s.clock.Now()
	var result domain.VariantStock
	var emitted []domain.LedgerEntry
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

		onHand := v.OnHand + in.Delta
		if onHand < 0 {
			return domain.ErrInsufficientStock
		}

		entry := domain.LedgerEntry{
			ID:             newID(),
			VariantID:      v.VariantID,
			QuantityChange: in.Delta,
			Reason:         in.Reason,
			OrderID:        in.OrderID,
			UserID:         in.UserID,
			CreatedAt:      now,
		}
		if err := s.repo.AppendLedger(txCtx, entry); err != nil {
			return err
		}
		emitted = append(emitted, entry)

		reserved := v.Reserved
		if v.Tracked && reserved > onHand {
			released, entries, err := s.recoverOverReserved(txCtx, v.VariantID, onHand, reserved, in.UserID, now)
			if err != nil {
				return err
			}
			reserved = released
			emitted = append(emitted, entries...)
		}

		if err := s.repo.UpdateCounters(txCtx, v.VariantID, onHand, reserved); err != nil {
			return err
		}

		v.OnHand = onHand
		v.Reserved = reserved
		result = v
		return nil
	})
	if err != nil {
		return domain.VariantStock{}, err
	}

	box.stage(func(pubCtx context.Context) { s.publish(pubCtx, emitted, result) })
	if owned {
		box.flush(ctx)
	}
	return result, nil
}

// recoverOverReserved releases the oldest active holds until reserved fits
// under onHand, returning the new reserved count and the release entries.
func (s *StockService) recoverOverReserved(ctx context.Context, variantID string, onHand, reserved int, userID string, now time.Time) (int, []domain.LedgerEntry, error) {
	holds, err := s.repo.OldestActiveReservations(ctx, variantID, now)
	if err != nil {
		return 0, nil, err
	}

	var entries []domain.LedgerEntry
	for _, hold := range holds {
		if reserved <= onHand {
			break
		}
		if err := s.repo.UpdateReservationStatus(ctx, hold.ID, domain.ReservationReleased); err != nil {
			return 0, nil, err
		}
		entry := domain.LedgerEntry{
			ID:             newID(),
			VariantID:      variantID,
			QuantityChange: hold.Quantity,
			Reason:         domain.ReasonReserveRelease,
			UserID:         userID,
			CreatedAt:      now,
		}
		if err := s.repo.AppendLedger(ctx, entry); err != nil {
			return 0, nil, err
		}
		entries = append(entries, entry)
		reserved -= hold.Quantity

		s.logger.Warn("released reservation to recover over-reserved variant",
			zap.String("variant_id", variantID),
			zap.String("reservation_id", hold.ID),
			zap.Int("quantity", hold.Quantity),
		)
	}
	return reserved, entries, nil
}

type ReturnCreditInput struct {
	VariantID string
	Quantity  int
	OrderID   string
	UserID    string
}

// ReturnCredit re-enters returned or pre-shipment-cancelled units as fresh
// stock. It only ever touches on_hand; the original reservation is long
// gone by the time a return happens.
func (s *StockService) ReturnCredit(ctx context.Context, in ReturnCreditInput) (domain.VariantStock, error) {
	if in.Quantity <= 0 {
		return domain.VariantStock{}, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	var result domain.VariantStock
	var emitted []domain.LedgerEntry
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
		if !v.Tracked {
			result = v
			return nil
		}

		entry := domain.LedgerEntry{
			ID:             newID(),
			VariantID:      v.VariantID,
			QuantityChange: in.Quantity,
			Reason:         domain.ReasonReturnCredit,
			OrderID:        in.OrderID,
			UserID:         in.UserID,
			CreatedAt:      now,
		}
		if err := s.repo.AppendLedger(txCtx, entry); err != nil {
			return err
		}
		emitted = append(emitted, entry)

		v.OnHand += in.Quantity
		if err := s.repo.UpdateCounters(txCtx, v.VariantID, v.OnHand, v.Reserved); err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return domain.VariantStock{}, err
	}

	box.stage(func(pubCtx context.Context) { s.publish(pubCtx, emitted, result) })
	if owned {
		box.flush(ctx)
	}
	return result, nil
}

// CheckConsistency replays the variant's ledger under the row lock and
// compares the fold against the cached counters. A mismatch signals a bug,
// not a business error: the variant is frozen against further writes and
// the full context is logged for operators.
func (s *StockService) CheckConsistency(ctx context.Context, variantID string) (domain.VariantStock, error) {
	var result domain.VariantStock
	var mismatch bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		v, err := s.repo.GetVariantForUpdate(txCtx, variantID)
		if err != nil {
			return err
		}

		entries, err := s.repo.ListLedger(txCtx, variantID)
		if err != nil {
			return err
		}

		onHand, reserved := domain.Replay(entries)
		if v.Tracked && (onHand != v.OnHand || reserved != v.Reserved) {
			// The freeze must survive the transaction, so the error is
			// reported only after commit.
			if err := s.repo.SetFrozen(txCtx, variantID, true); err != nil {
				return err
			}
			mismatch = true
			s.logger.Error("ledger replay mismatch, freezing variant",
				zap.String("variant_id", variantID),
				zap.Int("cached_on_hand", v.OnHand),
				zap.Int("cached_reserved", v.Reserved),
				zap.Int("replayed_on_hand", onHand),
				zap.Int("replayed_reserved", reserved),
				zap.Int("ledger_entries", len(entries)),
			)
		}
		result = v
		return nil
	})
	if err != nil {
		return domain.VariantStock{}, err
	}
	if mismatch {
		return domain.VariantStock{}, domain.ErrLedgerMismatch
	}
	return result, nil
}

func (s *StockService) publish(ctx context.Context, entries []domain.LedgerEntry, v domain.VariantStock) {
	for _, e := range entries {
		s.publisher.LedgerAppended(ctx, e)
	}
	if v.LowStock() {
		s.publisher.LowStock(ctx, v)
	}
}
