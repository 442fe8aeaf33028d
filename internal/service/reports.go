package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

const DefaultTopSellingLimit = 10

// Periods lists the accepted report period keywords.
var Periods = []string{"today", "2days", "week", "month", "year"}

// periodWindow maps a period keyword onto a window ending at now. "today"
// starts at local midnight; the others step back the named duration.
func periodWindow(period string, now time.Time) (string, time.Time, error) {
	key := strings.ToLower(strings.TrimSpace(period))
	var start time.Time
	switch key {
	case "today":
		y, m, d := now.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "2days":
		start = now.AddDate(0, 0, -2)
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = now.AddDate(0, -1, 0)
	case "year":
		start = now.AddDate(-1, 0, 0)
	default:
		return "", time.Time{}, store.Invalid("period", "invalid period %q, valid values: %s", period, strings.Join(Periods, ", "))
	}
	return key, start, nil
}

func (s *Service) TotalProfit(ctx context.Context, period string) (decimal.Decimal, error) {
	summary, err := s.SalesSummary(ctx, period)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.TotalProfit, nil
}

func (s *Service) SalesSummary(ctx context.Context, period string) (domain.SalesSummary, error) {
	now := s.now()
	key, start, err := periodWindow(period, now)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	var cached domain.SalesSummary
	cacheKey := "summary:" + key
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	totals, err := s.repo.SumSales(ctx, start, now)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	summary := domain.SalesSummary{
		Period:       key,
		StartDate:    start,
		EndDate:      now,
		SalesCount:   totals.Count,
		TotalProfit:  totals.Profit,
		TotalRevenue: totals.Revenue,
		TotalCost:    totals.Revenue.Sub(totals.Profit),
	}
	s.cacheSet(ctx, cacheKey, summary)
	return summary, nil
}

// TopSellingItems ranks food items by servings sold in the period. A
// non-positive limit falls back to DefaultTopSellingLimit.
func (s *Service) TopSellingItems(ctx context.Context, period string, limit int) (domain.TopSellingReport, error) {
	now := s.now()
	key, start, err := periodWindow(period, now)
	if err != nil {
		return domain.TopSellingReport{}, err
	}
	if limit <= 0 {
		limit = DefaultTopSellingLimit
	}

	var cached domain.TopSellingReport
	cacheKey := fmt.Sprintf("top:%s:%d", key, limit)
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	items, err := s.repo.TopSellingItems(ctx, start, now, limit)
	if err != nil {
		return domain.TopSellingReport{}, err
	}
	report := domain.TopSellingReport{
		Period:    key,
		StartDate: start,
		EndDate:   now,
		Limit:     limit,
		Items:     items,
	}
	s.cacheSet(ctx, cacheKey, report)
	return report, nil
}

// MaterialsStockReport lists every material plus those strictly below the
// threshold. A nil threshold uses the configured default.
func (s *Service) MaterialsStockReport(ctx context.Context, threshold *decimal.Decimal) (domain.MaterialsStockReport, error) {
	limit := s.lowStockThreshold
	if threshold != nil {
		if threshold.IsNegative() {
			return domain.MaterialsStockReport{}, store.Invalid("low_stock_threshold", "must not be negative")
		}
		limit = *threshold
	}

	materials, err := s.repo.ListMaterials(ctx)
	if err != nil {
		return domain.MaterialsStockReport{}, err
	}
	low, err := s.repo.ListMaterialsBelow(ctx, limit)
	if err != nil {
		return domain.MaterialsStockReport{}, err
	}
	return domain.MaterialsStockReport{
		TotalMaterials:    len(materials),
		LowStockCount:     len(low),
		LowStockThreshold: limit,
		Materials:         materials,
		LowStockMaterials: low,
	}, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	hit, err := s.reports.Get(ctx, key, dest)
	if err != nil {
		log.Printf("[service] WARN: report cache get %s: %v", key, err)
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if err := s.reports.Set(ctx, key, value, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache set %s: %v", key, err)
	}
}
