package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

type saleTx struct {
	tx      *sql.Tx
	allowed map[int64]struct{}
}

func (t *saleTx) DeductStock(ctx context.Context, materialID int64, amount decimal.Decimal) (domain.Material, error) {
	if _, ok := t.allowed[materialID]; !ok {
		return domain.Material{}, store.Invalid("material_id", "material %d was not locked for this sale", materialID)
	}
	if !amount.IsPositive() {
		return domain.Material{}, store.Invalid("amount", "must be greater than 0")
	}

	before, err := scanMaterial(t.tx.QueryRowContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE id = $1
		FOR UPDATE
	`, materialID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Material{}, store.NotFound("material", materialID)
	}
	if err != nil {
		return domain.Material{}, err
	}

	remaining := before.Quantity.Sub(amount)
	if remaining.IsNegative() {
		return domain.Material{}, &store.StockShortageError{
			MaterialID:   before.ID,
			MaterialName: before.Name,
			Available:    before.Quantity,
			Required:     amount,
		}
	}
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE materials
		SET quantity = $2, updated_at = now()
		WHERE id = $1
	`, materialID, remaining); err != nil {
		return domain.Material{}, err
	}
	return before, nil
}

func (t *saleTx) InsertSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if err := t.tx.QueryRowContext(ctx, `
		INSERT INTO sales (food_item_id, food_item_name, quantity_sold, sale_price, sale_date, cost_of_ingredients, profit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, sale.FoodItemID, sale.FoodItemName, sale.QuantitySold, sale.SalePrice, sale.SaleDate.UTC(), sale.CostOfIngredients, sale.Profit).Scan(&sale.ID); err != nil {
		return nil, err
	}

	for i, line := range sale.Lines {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, position, material_id, material_name, unit, quantity, unit_price, cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, sale.ID, i, line.MaterialID, line.MaterialName, line.Unit, line.Quantity, line.UnitPrice, line.Cost); err != nil {
			return nil, err
		}
	}
	sale.Lines = slices.Clone(sale.Lines)
	return &sale, nil
}

// RunSaleTx locks the listed material rows in ascending id order before
// handing the transaction to fn. Commit happens only when fn succeeds.
func (s *Store) RunSaleTx(ctx context.Context, materialIDs []int64, fn func(tx store.SaleTx) error) error {
	ids := slices.Clone(materialIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	if len(ids) > 0 {
		rows, err := pgTx.QueryContext(ctx, `
			SELECT id
			FROM materials
			WHERE id = ANY($1)
			ORDER BY id
			FOR UPDATE
		`, ids)
		if err != nil {
			return err
		}
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
	}

	tx := &saleTx{tx: pgTx, allowed: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		tx.allowed[id] = struct{}{}
	}
	if err := fn(tx); err != nil {
		return err
	}
	return pgTx.Commit()
}

const saleColumns = `id, food_item_id, food_item_name, quantity_sold, sale_price, sale_date, cost_of_ingredients, profit`

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	sales, err := s.querySales(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.NotFound("sale", id)
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	where, args := windowClause(from, to)
	return s.querySales(ctx, `SELECT `+saleColumns+` FROM sales`+where+` ORDER BY sale_date, id`, args...)
}

func (s *Store) ListSalesByFoodItem(ctx context.Context, foodItemID int64) ([]domain.Sale, error) {
	return s.querySales(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE food_item_id = $1
		ORDER BY sale_date, id
	`, foodItemID)
}

func (s *Store) SumSales(ctx context.Context, from time.Time, to time.Time) (domain.SalesTotals, error) {
	where, args := windowClause(from, to)
	var totals domain.SalesTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(sale_price * quantity_sold), 0), COALESCE(SUM(profit), 0)
		FROM sales`+where, args...).Scan(&totals.Count, &totals.Revenue, &totals.Profit)
	if err != nil {
		return domain.SalesTotals{}, err
	}
	return totals, nil
}

func (s *Store) TopSellingItems(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopSellingItem, error) {
	where, args := windowClause(from, to)
	query := `
		SELECT food_item_id,
			(array_agg(food_item_name ORDER BY sale_date DESC, id DESC))[1],
			SUM(quantity_sold)
		FROM sales` + where + `
		GROUP BY food_item_id
		ORDER BY SUM(quantity_sold) DESC, food_item_id ASC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TopSellingItem, 0, 16)
	for rows.Next() {
		var item domain.TopSellingItem
		if err := rows.Scan(&item.FoodItemID, &item.FoodItemName, &item.TotalQuantitySold); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	index := make(map[int64]int)
	ids := make([]int64, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.FoodItemID, &sale.FoodItemName, &sale.QuantitySold, &sale.SalePrice, &sale.SaleDate, &sale.CostOfIngredients, &sale.Profit); err != nil {
			return nil, err
		}
		sale.SaleDate = sale.SaleDate.UTC()
		index[sale.ID] = len(sales)
		ids = append(ids, sale.ID)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return sales, nil
	}

	lineRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, material_id, material_name, unit, quantity, unit_price, cost
		FROM sale_lines
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var saleID int64
		var line domain.SaleLine
		if err := lineRows.Scan(&saleID, &line.MaterialID, &line.MaterialName, &line.Unit, &line.Quantity, &line.UnitPrice, &line.Cost); err != nil {
			return nil, err
		}
		i := index[saleID]
		sales[i].Lines = append(sales[i].Lines, line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

// windowClause renders the inclusive sale_date bounds; a zero bound is open.
func windowClause(from time.Time, to time.Time) (string, []any) {
	conds := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if !from.IsZero() {
		args = append(args, from.UTC())
		conds = append(conds, fmt.Sprintf("sale_date >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to.UTC())
		conds = append(conds, fmt.Sprintf("sale_date <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
