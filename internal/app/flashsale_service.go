package app

import (
	"context"
	"errors"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/clock"
	"github.com/qh20812/shopnest-inventory/internal/domain"
)

type FlashSaleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateFlashSale(ctx context.Context, sale domain.FlashSale) error
	ListFlashSales(ctx context.Context) ([]domain.FlashSale, error)
	LatestSaleForVariant(ctx context.Context, variantID string, now time.Time) (*domain.FlashSale, error)
	GetSaleForUpdate(ctx context.Context, id string) (domain.FlashSale, error)
	IncrementSoldCount(ctx context.Context, id string, qty int) (bool, error)
	SumHolderPending(ctx context.Context, saleID, holder string, now time.Time) (int, error)
	SumUserCommitted(ctx context.Context, saleID, userID string) (int, error)
	RecordUserPurchase(ctx context.Context, saleID, userID string, qty int) error
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
}

// Reserver is the generic reservation path the enforcer wraps.
type Reserver interface {
	Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error)
	Commit(ctx context.Context, in CommitInput) (domain.Reservation, error)
	Release(ctx context.Context, id string, reason domain.LedgerReason) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
}

// FlashSaleService intercepts reserve and commit for variants enrolled in a
// flash sale window. The reserve-time cap check is advisory; the commit-time
// sold_count increment is authoritative and closes the TOCTOU window.
type FlashSaleService struct {
	repo  FlashSaleRepository
	resv  Reserver
	clock clock.Clock
}

func NewFlashSaleService(repo FlashSaleRepository, resv Reserver, clk clock.Clock) *FlashSaleService {
	return &FlashSaleService{
		repo:  repo,
		resv:  resv,
		clock: clk,
	}
}

type CreateSaleInput struct {
	VariantID     string
	QuantityLimit int
	MaxPerUser    int
	StartsAt      time.Time
	EndsAt        time.Time
}

func (s *FlashSaleService) CreateSale(ctx context.Context, in CreateSaleInput) (domain.FlashSale, error) {
	if in.VariantID == "" {
		return domain.FlashSale{}, domain.ErrInvalidID
	}
	if in.QuantityLimit <= 0 || in.MaxPerUser < 0 {
		return domain.FlashSale{}, domain.ErrInvalidQuantity
	}
	if !in.EndsAt.After(in.StartsAt) {
		return domain.FlashSale{}, domain.ErrInvalidQuantity
	}

	sale := domain.FlashSale{
		ID:            newID(),
		VariantID:     in.VariantID,
		QuantityLimit: in.QuantityLimit,
		MaxPerUser:    in.MaxPerUser,
		StartsAt:      in.StartsAt,
		EndsAt:        in.EndsAt,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.CreateFlashSale(ctx, sale); err != nil {
		return domain.FlashSale{}, err
	}
	return sale, nil
}

func (s *FlashSaleService) ListSales(ctx context.Context) ([]domain.FlashSale, error) {
	return s.repo.ListFlashSales(ctx)
}

// Reserve routes uncapped variants straight through and pre-checks capped
// ones: committed units plus the holder's pending holds plus the request
// must fit under the limit, and the buyer must still be under the per-user
// cap. Both checks are advisory; commit re-checks under the sale lock.
func (s *FlashSaleService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	now := s.clock.Now()

	sale, err := s.repo.LatestSaleForVariant(ctx, in.VariantID, now)
	if err != nil {
		return domain.Reservation{}, err
	}
	if sale == nil {
		return s.resv.Reserve(ctx, in)
	}
	if !sale.WindowOpen(now) {
		return domain.Reservation{}, domain.ErrSaleEnded
	}
	// The per-user cap is enforced against the buyer recorded on the hold,
	// so a sale-bound hold cannot be anonymous.
	if in.UserID == "" {
		return domain.Reservation{}, domain.ErrUserRequired
	}

	pending, err := s.repo.SumHolderPending(ctx, sale.ID, in.Holder, now)
	if err != nil {
		return domain.Reservation{}, err
	}
	if sale.SoldCount+pending+in.Quantity > sale.QuantityLimit {
		return domain.Reservation{}, domain.ErrCapExceeded
	}

	if sale.MaxPerUser > 0 {
		committed, err := s.repo.SumUserCommitted(ctx, sale.ID, in.UserID)
		if err != nil {
			return domain.Reservation{}, err
		}
		if committed+in.Quantity > sale.MaxPerUser {
			return domain.Reservation{}, domain.ErrCapExceeded
		}
	}

	in.SaleID = sale.ID
	return s.resv.Reserve(ctx, in)
}

// Commit enforces the cap authoritatively: sold_count is incremented only
// while it stays under quantity_limit, atomically with the SALE_COMMIT. On
// cap exhaustion the underlying reservation is released (that release is
// persisted, not rolled back) and CapExceeded tells checkout the deal sold
// out while the buyer was paying. The per-user cap keys on the buyer
// recorded at reserve time, so omitting the user on commit cannot dodge it.
func (s *FlashSaleService) Commit(ctx context.Context, in CommitInput) (domain.Reservation, error) {
	r, err := s.resv.Get(ctx, in.ReservationID)
	if err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return domain.Reservation{}, domain.ErrReservationInvalid
		}
		return domain.Reservation{}, err
	}
	if r.SaleID == "" {
		return s.resv.Commit(ctx, in)
	}

	now := s.clock.Now()
	var result domain.Reservation
	var capHit bool
	var box *outbox
	var owned bool

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		txCtx, box, owned = openOutbox(txCtx)
		capHit = false

		locked, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if locked.Status == domain.ReservationCommitted {
			if locked.OrderID == in.OrderID {
				result = locked
				return nil
			}
			return domain.ErrReservationInvalid
		}
		if locked.Terminal() || locked.ExpiredAt(now) {
			return domain.ErrReservationInvalid
		}

		sale, err := s.repo.GetSaleForUpdate(txCtx, locked.SaleID)
		if err != nil {
			return err
		}

		buyer := locked.UserID
		overUserCap := false
		if sale.MaxPerUser > 0 && buyer != "" {
			committed, err := s.repo.SumUserCommitted(txCtx, sale.ID, buyer)
			if err != nil {
				return err
			}
			overUserCap = committed+locked.Quantity > sale.MaxPerUser
		}

		ok := false
		if !overUserCap {
			ok, err = s.repo.IncrementSoldCount(txCtx, sale.ID, locked.Quantity)
			if err != nil {
				return err
			}
		}
		if !ok {
			// Keep the release even though the commit is refused.
			if err := s.resv.Release(txCtx, locked.ID, domain.ReasonReserveRelease); err != nil {
				return err
			}
			capHit = true
			return nil
		}

		committed, err := s.resv.Commit(txCtx, in)
		if err != nil {
			return err
		}
		if buyer != "" {
			if err := s.repo.RecordUserPurchase(txCtx, sale.ID, buyer, locked.Quantity); err != nil {
				return err
			}
		}
		result = committed
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	if owned {
		box.flush(ctx)
	}
	if capHit {
		return domain.Reservation{}, domain.ErrCapExceeded
	}
	return result, nil
}

// Release and Get pass straight through; caps only gate reserve and commit.
func (s *FlashSaleService) Release(ctx context.Context, id string, reason domain.LedgerReason) error {
	return s.resv.Release(ctx, id, reason)
}

func (s *FlashSaleService) Get(ctx context.Context, id string) (domain.Reservation, error) {
	return s.resv.Get(ctx, id)
}
