package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

// RecordSale deducts every material the food item's recipe needs for the
// sold servings, prices them at the unit prices read during deduction and
// stores the sale. Either all of that happens or none of it does.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if !req.QuantitySold.IsPositive() {
		return domain.Sale{}, store.Invalid("quantity_sold", "must be greater than 0")
	}
	if !req.SalePrice.IsPositive() {
		return domain.Sale{}, store.Invalid("sale_price", "must be greater than 0")
	}

	item, err := s.repo.GetFoodItem(ctx, req.FoodItemID)
	if err != nil {
		return domain.Sale{}, err
	}

	saleDate := s.now().UTC()
	if req.SaleDate != nil && !req.SaleDate.IsZero() {
		saleDate = req.SaleDate.UTC()
	}
	servings := req.QuantitySold

	var recorded *domain.Sale
	err = s.repo.RunSaleTx(ctx, store.RecipeMaterialIDs(item.Ingredients), func(tx store.SaleTx) error {
		cost := decimal.Zero
		lines := make([]domain.SaleLine, 0, len(item.Ingredients))
		for _, ingredient := range item.Ingredients {
			required := ingredient.QuantityRequired.Mul(servings)
			material, err := tx.DeductStock(ctx, ingredient.MaterialID, required)
			if err != nil {
				return err
			}
			lineCost := material.PricePerUnit.Mul(required)
			cost = cost.Add(lineCost)
			lines = append(lines, domain.SaleLine{
				MaterialID:   material.ID,
				MaterialName: material.Name,
				Unit:         material.Unit,
				Quantity:     required,
				UnitPrice:    material.PricePerUnit,
				Cost:         lineCost,
			})
		}

		sale := domain.Sale{
			FoodItemID:        item.ID,
			FoodItemName:      item.Name,
			QuantitySold:      req.QuantitySold,
			SalePrice:         req.SalePrice,
			SaleDate:          saleDate,
			CostOfIngredients: cost,
			Lines:             lines,
		}
		sale.Profit = sale.Revenue().Sub(cost)

		inserted, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		recorded = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			log.Printf("[service] sale rejected food_item=%d qty=%s: %v", item.ID, req.QuantitySold, err)
		}
		return domain.Sale{}, err
	}

	log.Printf("[service] sale recorded id=%d food_item=%d qty=%s cost=%s profit=%s by=%s",
		recorded.ID, recorded.FoodItemID, recorded.QuantitySold, recorded.CostOfIngredients, recorded.Profit, actorName(ctx))
	return *recorded, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// ListSales returns every sale when both bounds are nil, otherwise the sales
// dated within the inclusive range.
func (s *Service) ListSales(ctx context.Context, from *time.Time, to *time.Time) ([]domain.Sale, error) {
	if (from == nil) != (to == nil) {
		return nil, store.Invalid("start_date", "start and end dates must be given together")
	}
	if from == nil {
		return s.repo.ListSales(ctx, time.Time{}, time.Time{})
	}
	if to.Before(*from) {
		return nil, store.Invalid("end_date", "must not be before start date")
	}
	return s.repo.ListSales(ctx, *from, *to)
}

func (s *Service) ListSalesByFoodItem(ctx context.Context, foodItemID int64) ([]domain.Sale, error) {
	return s.repo.ListSalesByFoodItem(ctx, foodItemID)
}
