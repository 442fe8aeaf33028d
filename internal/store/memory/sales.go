package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

type deduction struct {
	materialID int64
	amount     decimal.Decimal
}

type saleTx struct {
	store   *Store
	allowed map[int64]struct{}
	applied []deduction
	pending []domain.Sale
}

func (tx *saleTx) DeductStock(ctx context.Context, materialID int64, amount decimal.Decimal) (domain.Material, error) {
	if err := ctx.Err(); err != nil {
		return domain.Material{}, err
	}
	if _, ok := tx.allowed[materialID]; !ok {
		return domain.Material{}, store.Invalid("material_id", "material %d was not locked for this sale", materialID)
	}
	if !amount.IsPositive() {
		return domain.Material{}, store.Invalid("amount", "must be greater than 0")
	}

	before, err := tx.store.deductLocked(materialID, amount)
	if err != nil {
		return domain.Material{}, err
	}
	tx.applied = append(tx.applied, deduction{materialID: materialID, amount: amount})
	return before, nil
}

func (tx *saleTx) InsertSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx.store.mu.Lock()
	tx.store.nextSaleID++
	sale.ID = tx.store.nextSaleID
	tx.store.mu.Unlock()

	sale.Lines = slices.Clone(sale.Lines)
	tx.pending = append(tx.pending, sale)
	return &sale, nil
}

func (tx *saleTx) rollback() {
	for i := len(tx.applied) - 1; i >= 0; i-- {
		d := tx.applied[i]
		tx.store.restockLocked(d.materialID, d.amount)
	}
	tx.applied = nil
	tx.pending = nil
}

func (tx *saleTx) commit() {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	for _, sale := range tx.pending {
		tx.store.salesByID[sale.ID] = sale
	}
}

// RunSaleTx holds the lock-table slots of every listed material for the whole
// call. Deductions made by fn are reversed when fn fails; staged sales only
// become visible after fn succeeds.
func (s *Store) RunSaleTx(ctx context.Context, materialIDs []int64, fn func(tx store.SaleTx) error) error {
	ids := slices.Clone(materialIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	release, err := s.locks.acquire(ctx, ids)
	if err != nil {
		return err
	}
	defer release()

	tx := &saleTx{store: s, allowed: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		tx.allowed[id] = struct{}{}
	}

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.NotFound("sale", id)
	}
	sale.Lines = slices.Clone(sale.Lines)
	return &sale, nil
}

// ListSales returns sales dated within [from, to]. A zero bound is open.
func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	return s.filterSales(func(sale domain.Sale) bool {
		return inWindow(sale.SaleDate, from, to)
	}), nil
}

func (s *Store) ListSalesByFoodItem(_ context.Context, foodItemID int64) ([]domain.Sale, error) {
	return s.filterSales(func(sale domain.Sale) bool {
		return sale.FoodItemID == foodItemID
	}), nil
}

func (s *Store) SumSales(ctx context.Context, from time.Time, to time.Time) (domain.SalesTotals, error) {
	sales, err := s.ListSales(ctx, from, to)
	if err != nil {
		return domain.SalesTotals{}, err
	}

	totals := domain.SalesTotals{Revenue: decimal.Zero, Profit: decimal.Zero}
	for _, sale := range sales {
		totals.Count++
		totals.Revenue = totals.Revenue.Add(sale.Revenue())
		totals.Profit = totals.Profit.Add(sale.Profit)
	}
	return totals, nil
}

func (s *Store) TopSellingItems(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopSellingItem, error) {
	sales, err := s.ListSales(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byItem := make(map[int64]*domain.TopSellingItem)
	for _, sale := range sales {
		entry, ok := byItem[sale.FoodItemID]
		if !ok {
			entry = &domain.TopSellingItem{FoodItemID: sale.FoodItemID}
			byItem[sale.FoodItemID] = entry
		}
		// sales are date ordered, so the newest name wins
		entry.FoodItemName = sale.FoodItemName
		entry.TotalQuantitySold = entry.TotalQuantitySold.Add(sale.QuantitySold)
	}

	ranked := make([]domain.TopSellingItem, 0, len(byItem))
	for _, entry := range byItem {
		ranked = append(ranked, *entry)
	}
	slices.SortFunc(ranked, func(a, b domain.TopSellingItem) int {
		if c := b.TotalQuantitySold.Cmp(a.TotalQuantitySold); c != 0 {
			return c
		}
		return cmp.Compare(a.FoodItemID, b.FoodItemID)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *Store) filterSales(keep func(domain.Sale) bool) []domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if keep(sale) {
			sale.Lines = slices.Clone(sale.Lines)
			out = append(out, sale)
		}
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		if c := a.SaleDate.Compare(b.SaleDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func inWindow(at time.Time, from time.Time, to time.Time) bool {
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && at.After(to) {
		return false
	}
	return true
}
