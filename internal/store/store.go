package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
)

// FieldError reports the first input field that broke a rule.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

func Invalid(field string, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type StockShortageError struct {
	MaterialID   int64
	MaterialName string
	Available    decimal.Decimal
	Required     decimal.Decimal
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for material %s: available %s, required %s",
		e.MaterialName, e.Available.String(), e.Required.String())
}

func (e *StockShortageError) Unwrap() error { return ErrInsufficientStock }

func NotFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

type MaterialStore interface {
	GetMaterial(ctx context.Context, id int64) (*domain.Material, error)
	ListMaterials(ctx context.Context) ([]domain.Material, error)
	SearchMaterials(ctx context.Context, name string) ([]domain.Material, error)
	ListMaterialsBelow(ctx context.Context, threshold decimal.Decimal) ([]domain.Material, error)
	CreateMaterial(ctx context.Context, material domain.Material) (*domain.Material, error)
	UpdateMaterial(ctx context.Context, material domain.Material) (*domain.Material, error)
	DeleteMaterial(ctx context.Context, id int64) error
	DeductStock(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Material, error)
}

type FoodItemStore interface {
	GetFoodItem(ctx context.Context, id int64) (*domain.FoodItem, error)
	ListFoodItems(ctx context.Context) ([]domain.FoodItem, error)
	SearchFoodItems(ctx context.Context, name string) ([]domain.FoodItem, error)
	CreateFoodItem(ctx context.Context, item domain.FoodItem) (*domain.FoodItem, error)
	ReplaceFoodItem(ctx context.Context, item domain.FoodItem) (*domain.FoodItem, error)
	DeleteFoodItem(ctx context.Context, id int64) error
}

// SaleTx is the unit of work handed to RunSaleTx. Every material it touches
// must have been named when the transaction was opened.
type SaleTx interface {
	// DeductStock lowers a material balance and returns the material as it
	// was read before the deduction.
	DeductStock(ctx context.Context, materialID int64, amount decimal.Decimal) (domain.Material, error)
	InsertSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
}

type SaleStore interface {
	// RunSaleTx locks materialIDs in ascending order, runs fn, and commits
	// only when fn returns nil. Any error undoes every change made by fn.
	RunSaleTx(ctx context.Context, materialIDs []int64, fn func(tx SaleTx) error) error
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	ListSalesByFoodItem(ctx context.Context, foodItemID int64) ([]domain.Sale, error)
	SumSales(ctx context.Context, from time.Time, to time.Time) (domain.SalesTotals, error)
	TopSellingItems(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopSellingItem, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type Repository interface {
	MaterialStore
	FoodItemStore
	SaleStore
	UserStore
}
