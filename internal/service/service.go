package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/cache"
	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ErrForbidden is returned when a signed-in actor without the owner role
// tries to change the catalogue.
var ErrForbidden = errors.New("owner role required")

// requireOwner lets calls without an actor through; those come from
// in-process callers such as seeding and tests.
func requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role == domain.RoleOwner {
		return nil
	}
	return ErrForbidden
}

var DefaultLowStockThreshold = decimal.NewFromInt(10)

type Service struct {
	repo              store.Repository
	reports           cache.ReportCache
	reportTTL         time.Duration
	lowStockThreshold decimal.Decimal
	now               func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache, reportTTL time.Duration, lowStockThreshold decimal.Decimal) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = 15 * time.Second
	}
	if !lowStockThreshold.IsPositive() {
		lowStockThreshold = DefaultLowStockThreshold
	}

	return &Service{
		repo:              repo,
		reports:           reports,
		reportTTL:         reportTTL,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

func (s *Service) ListMaterials(ctx context.Context, search string) ([]domain.Material, error) {
	if strings.TrimSpace(search) == "" {
		return s.repo.ListMaterials(ctx)
	}
	return s.repo.SearchMaterials(ctx, search)
}

func (s *Service) GetMaterial(ctx context.Context, id int64) (domain.Material, error) {
	m, err := s.repo.GetMaterial(ctx, id)
	if err != nil {
		return domain.Material{}, err
	}
	return *m, nil
}

func (s *Service) CreateMaterial(ctx context.Context, req domain.MaterialRequest) (domain.Material, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Material{}, err
	}
	m, err := materialFromRequest(req)
	if err != nil {
		return domain.Material{}, err
	}
	created, err := s.repo.CreateMaterial(ctx, m)
	if err != nil {
		return domain.Material{}, err
	}
	log.Printf("[service] material created id=%d name=%q qty=%s %s by=%s", created.ID, created.Name, created.Quantity, created.Unit, actorName(ctx))
	return *created, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, id int64, req domain.MaterialRequest) (domain.Material, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Material{}, err
	}
	m, err := materialFromRequest(req)
	if err != nil {
		return domain.Material{}, err
	}
	m.ID = id
	updated, err := s.repo.UpdateMaterial(ctx, m)
	if err != nil {
		return domain.Material{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteMaterial(ctx context.Context, id int64) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteMaterial(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] material deleted id=%d by=%s", id, actorName(ctx))
	return nil
}

func materialFromRequest(req domain.MaterialRequest) (domain.Material, error) {
	m := domain.Material{
		Name:         strings.TrimSpace(req.Name),
		Unit:         strings.TrimSpace(req.Unit),
		PricePerUnit: req.PricePerUnit,
		Quantity:     req.Quantity,
	}
	if raw := strings.TrimSpace(req.DatePurchased); raw != "" {
		purchased, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return domain.Material{}, store.Invalid("date_purchased", "must use YYYY-MM-DD format")
		}
		m.DatePurchased = purchased
	}
	if err := store.ValidateMaterial(m); err != nil {
		return domain.Material{}, err
	}
	return m, nil
}

func (s *Service) ListFoodItems(ctx context.Context, search string) ([]domain.FoodItem, error) {
	if strings.TrimSpace(search) == "" {
		return s.repo.ListFoodItems(ctx)
	}
	return s.repo.SearchFoodItems(ctx, search)
}

func (s *Service) GetFoodItem(ctx context.Context, id int64) (domain.FoodItem, error) {
	item, err := s.repo.GetFoodItem(ctx, id)
	if err != nil {
		return domain.FoodItem{}, err
	}
	return *item, nil
}

// FindFoodItemByName returns the item whose name matches exactly, ignoring
// case, or the only item containing name when there is a single candidate.
func (s *Service) FindFoodItemByName(ctx context.Context, name string) (domain.FoodItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.FoodItem{}, store.Invalid("food_item_name", "is required")
	}
	candidates, err := s.repo.SearchFoodItems(ctx, name)
	if err != nil {
		return domain.FoodItem{}, err
	}
	for _, item := range candidates {
		if strings.EqualFold(item.Name, name) {
			return item, nil
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if len(candidates) > 1 {
		return domain.FoodItem{}, store.Invalid("food_item_name", "%q matches %d food items", name, len(candidates))
	}
	return domain.FoodItem{}, fmtNotFoundName("food item", name)
}

func (s *Service) CreateFoodItem(ctx context.Context, req domain.FoodItemRequest) (domain.FoodItem, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.FoodItem{}, err
	}
	item := foodItemFromRequest(req)
	created, err := s.repo.CreateFoodItem(ctx, item)
	if err != nil {
		return domain.FoodItem{}, err
	}
	log.Printf("[service] food item created id=%d name=%q lines=%d by=%s", created.ID, created.Name, len(created.Ingredients), actorName(ctx))
	return *created, nil
}

// UpdateFoodItem replaces the item's fields and its whole recipe.
func (s *Service) UpdateFoodItem(ctx context.Context, id int64, req domain.FoodItemRequest) (domain.FoodItem, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.FoodItem{}, err
	}
	item := foodItemFromRequest(req)
	item.ID = id
	updated, err := s.repo.ReplaceFoodItem(ctx, item)
	if err != nil {
		return domain.FoodItem{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteFoodItem(ctx context.Context, id int64) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteFoodItem(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] food item deleted id=%d by=%s", id, actorName(ctx))
	return nil
}

func (s *Service) AddIngredient(ctx context.Context, foodItemID int64, req domain.RecipeLineRequest) (domain.FoodItem, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.FoodItem{}, err
	}
	item, err := s.repo.GetFoodItem(ctx, foodItemID)
	if err != nil {
		return domain.FoodItem{}, err
	}
	item.Ingredients = append(item.Ingredients, domain.RecipeLine{
		MaterialID:       req.MaterialID,
		QuantityRequired: req.QuantityRequired,
	})
	updated, err := s.repo.ReplaceFoodItem(ctx, *item)
	if err != nil {
		return domain.FoodItem{}, err
	}
	return *updated, nil
}

func (s *Service) RemoveIngredient(ctx context.Context, foodItemID int64, lineID int64) (domain.FoodItem, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.FoodItem{}, err
	}
	item, err := s.repo.GetFoodItem(ctx, foodItemID)
	if err != nil {
		return domain.FoodItem{}, err
	}
	idx := slices.IndexFunc(item.Ingredients, func(line domain.RecipeLine) bool {
		return line.ID == lineID
	})
	if idx < 0 {
		return domain.FoodItem{}, store.NotFound("recipe line", lineID)
	}
	item.Ingredients = slices.Delete(item.Ingredients, idx, idx+1)
	updated, err := s.repo.ReplaceFoodItem(ctx, *item)
	if err != nil {
		return domain.FoodItem{}, err
	}
	return *updated, nil
}

func foodItemFromRequest(req domain.FoodItemRequest) domain.FoodItem {
	item := domain.FoodItem{
		Name:            strings.TrimSpace(req.Name),
		PricePerServing: req.PricePerServing,
		Ingredients:     make([]domain.RecipeLine, 0, len(req.Ingredients)),
	}
	for _, line := range req.Ingredients {
		item.Ingredients = append(item.Ingredients, domain.RecipeLine{
			MaterialID:       line.MaterialID,
			QuantityRequired: line.QuantityRequired,
		})
	}
	return item
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username
	}
	return "system"
}

func fmtNotFoundName(entity string, name string) error {
	return fmt.Errorf("%s %q: %w", entity, name, store.ErrNotFound)
}
