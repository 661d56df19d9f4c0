package app

import (
	"context"
	"sort"
	"time"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

// fakeStore is an in-memory stand-in for the postgres store, implementing
// every repository interface the services consume so tests can wire the
// full service graph without a database.
type fakeStore struct {
	variants     map[string]*domain.VariantStock
	ledger       []domain.LedgerEntry
	reservations map[string]*domain.Reservation
	resvOrder    []string
	sales        map[string]*domain.FlashSale
	purchases    map[string]int
	purchaseErr  error
	lines        map[string]*domain.OrderLine
	seq          int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		variants:     make(map[string]*domain.VariantStock),
		reservations: make(map[string]*domain.Reservation),
		sales:        make(map[string]*domain.FlashSale),
		purchases:    make(map[string]int),
		lines:        make(map[string]*domain.OrderLine),
	}
}

func (f *fakeStore) addVariant(v domain.VariantStock) {
	cp := v
	f.variants[v.VariantID] = &cp
}

func (f *fakeStore) addReservation(r domain.Reservation) {
	cp := r
	f.reservations[r.ID] = &cp
	f.resvOrder = append(f.resvOrder, r.ID)
}

func (f *fakeStore) addSale(s domain.FlashSale) {
	cp := s
	f.sales[s.ID] = &cp
}

func (f *fakeStore) ledgerFor(variantID string) []domain.LedgerEntry {
	var out []domain.LedgerEntry
	for _, e := range f.ledger {
		if e.VariantID == variantID {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) CreateVariant(_ context.Context, v domain.VariantStock) error {
	for _, existing := range f.variants {
		if existing.SKU == v.SKU {
			return domain.ErrVariantExists
		}
	}
	f.addVariant(v)
	return nil
}

func (f *fakeStore) GetVariant(_ context.Context, variantID string) (domain.VariantStock, error) {
	v, ok := f.variants[variantID]
	if !ok {
		return domain.VariantStock{}, domain.ErrVariantNotFound
	}
	return *v, nil
}

func (f *fakeStore) GetVariantForUpdate(ctx context.Context, variantID string) (domain.VariantStock, error) {
	return f.GetVariant(ctx, variantID)
}

func (f *fakeStore) UpdateCounters(_ context.Context, variantID string, onHand, reserved int) error {
	v, ok := f.variants[variantID]
	if !ok {
		return domain.ErrVariantNotFound
	}
	v.OnHand = onHand
	v.Reserved = reserved
	return nil
}

func (f *fakeStore) SetFrozen(_ context.Context, variantID string, frozen bool) error {
	v, ok := f.variants[variantID]
	if !ok {
		return domain.ErrVariantNotFound
	}
	v.Frozen = frozen
	return nil
}

func (f *fakeStore) AppendLedger(_ context.Context, e domain.LedgerEntry) error {
	f.seq++
	e.Seq = f.seq
	f.ledger = append(f.ledger, e)
	return nil
}

func (f *fakeStore) ListLedger(_ context.Context, variantID string) ([]domain.LedgerEntry, error) {
	return f.ledgerFor(variantID), nil
}

func (f *fakeStore) ListVariants(_ context.Context) ([]domain.VariantStock, error) {
	out := make([]domain.VariantStock, 0, len(f.variants))
	for _, v := range f.variants {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (f *fakeStore) OldestActiveReservations(_ context.Context, variantID string, now time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, id := range f.resvOrder {
		r := f.reservations[id]
		if r.VariantID != variantID || r.Status != domain.ReservationActive {
			continue
		}
		if r.ExpiredAt(now) {
			continue
		}
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) CreateReservation(_ context.Context, r domain.Reservation) error {
	f.addReservation(r)
	return nil
}

func (f *fakeStore) GetReservation(_ context.Context, id string) (domain.Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return *r, nil
}

func (f *fakeStore) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return f.GetReservation(ctx, id)
}

func (f *fakeStore) UpdateReservationStatus(_ context.Context, id string, status domain.ReservationStatus) error {
	r, ok := f.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeStore) MarkReservationCommitted(_ context.Context, id, orderID string) error {
	r, ok := f.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	r.Status = domain.ReservationCommitted
	r.OrderID = orderID
	return nil
}

func (f *fakeStore) UpdateReservationExpiry(_ context.Context, id string, expiresAt time.Time) error {
	r, ok := f.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	r.ExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) DueReservations(_ context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	for _, id := range f.resvOrder {
		r := f.reservations[id]
		if r.Status != domain.ReservationActive || !r.ExpiredAt(now) {
			continue
		}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (f *fakeStore) CreateFlashSale(_ context.Context, sale domain.FlashSale) error {
	f.addSale(sale)
	return nil
}

func (f *fakeStore) ListFlashSales(_ context.Context) ([]domain.FlashSale, error) {
	sales := make([]domain.FlashSale, 0, len(f.sales))
	for _, s := range f.sales {
		sales = append(sales, *s)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].StartsAt.After(sales[j].StartsAt) })
	return sales, nil
}

func (f *fakeStore) LatestSaleForVariant(_ context.Context, variantID string, now time.Time) (*domain.FlashSale, error) {
	var latest *domain.FlashSale
	for _, s := range f.sales {
		if s.VariantID != variantID || now.Before(s.StartsAt) {
			continue
		}
		if latest == nil || s.StartsAt.After(latest.StartsAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeStore) GetSaleForUpdate(_ context.Context, id string) (domain.FlashSale, error) {
	s, ok := f.sales[id]
	if !ok {
		return domain.FlashSale{}, domain.ErrSaleNotFound
	}
	return *s, nil
}

func (f *fakeStore) IncrementSoldCount(_ context.Context, id string, qty int) (bool, error) {
	s, ok := f.sales[id]
	if !ok {
		return false, domain.ErrSaleNotFound
	}
	if s.SoldCount+qty > s.QuantityLimit {
		return false, nil
	}
	s.SoldCount += qty
	return true, nil
}

func (f *fakeStore) SumHolderPending(_ context.Context, saleID, holder string, now time.Time) (int, error) {
	total := 0
	for _, r := range f.reservations {
		if r.SaleID != saleID || r.Holder != holder {
			continue
		}
		if r.Status != domain.ReservationActive || r.ExpiredAt(now) {
			continue
		}
		total += r.Quantity
	}
	return total, nil
}

func (f *fakeStore) SumUserCommitted(_ context.Context, saleID, userID string) (int, error) {
	return f.purchases[saleID+"|"+userID], nil
}

func (f *fakeStore) RecordUserPurchase(_ context.Context, saleID, userID string, qty int) error {
	if f.purchaseErr != nil {
		return f.purchaseErr
	}
	f.purchases[saleID+"|"+userID] += qty
	return nil
}

func (f *fakeStore) CreateOrderLine(_ context.Context, line domain.OrderLine) error {
	for _, existing := range f.lines {
		if existing.ReservationID == line.ReservationID {
			return domain.ErrReservationInvalid
		}
	}
	cp := line
	f.lines[line.ID] = &cp
	return nil
}

func (f *fakeStore) GetOrderLineForUpdate(_ context.Context, id string) (domain.OrderLine, error) {
	line, ok := f.lines[id]
	if !ok {
		return domain.OrderLine{}, domain.ErrOrderLineNotFound
	}
	return *line, nil
}

func (f *fakeStore) UpdateOrderLineState(_ context.Context, id string, state domain.OrderLineState, updatedAt time.Time) error {
	line, ok := f.lines[id]
	if !ok {
		return domain.ErrOrderLineNotFound
	}
	line.State = state
	line.UpdatedAt = updatedAt
	return nil
}

// recordingPublisher captures emitted events for assertions.
type recordingPublisher struct {
	entries  []domain.LedgerEntry
	lowStock []domain.VariantStock
}

func (p *recordingPublisher) LedgerAppended(_ context.Context, e domain.LedgerEntry) {
	p.entries = append(p.entries, e)
}

func (p *recordingPublisher) LowStock(_ context.Context, v domain.VariantStock) {
	p.lowStock = append(p.lowStock, v)
}
