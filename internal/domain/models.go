package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

type Material struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	Quantity      decimal.Decimal `json:"quantity"`
	DatePurchased time.Time       `json:"date_purchased"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MaterialRequest is used for both create and full update. DatePurchased is
// a calendar date (YYYY-MM-DD); empty means today.
type MaterialRequest struct {
	Name          string          `json:"name" validate:"required,max=120"`
	Unit          string          `json:"unit" validate:"required,max=32"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit" validate:"decimal_gt0"`
	Quantity      decimal.Decimal `json:"quantity" validate:"decimal_gte0"`
	DatePurchased string          `json:"date_purchased,omitempty"`
}

type RecipeLine struct {
	ID               int64           `json:"id"`
	MaterialID       int64           `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	Unit             string          `json:"unit"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
}

type FoodItem struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	PricePerServing decimal.Decimal `json:"price_per_serving"`
	Ingredients     []RecipeLine    `json:"ingredients"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type RecipeLineRequest struct {
	MaterialID       int64           `json:"material_id" validate:"gt=0"`
	QuantityRequired decimal.Decimal `json:"quantity_required" validate:"decimal_gt0"`
}

type FoodItemRequest struct {
	Name            string              `json:"name" validate:"required,max=120"`
	PricePerServing decimal.Decimal     `json:"price_per_serving" validate:"decimal_gt0"`
	Ingredients     []RecipeLineRequest `json:"ingredients" validate:"dive"`
}

// SaleLine records one material deduction applied by a sale, priced at the
// unit price read while the deduction was made.
type SaleLine struct {
	MaterialID   int64           `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Cost         decimal.Decimal `json:"cost"`
}

type Sale struct {
	ID                int64           `json:"id"`
	FoodItemID        int64           `json:"food_item_id"`
	FoodItemName      string          `json:"food_item_name"`
	QuantitySold      decimal.Decimal `json:"quantity_sold"`
	SalePrice         decimal.Decimal `json:"sale_price"`
	SaleDate          time.Time       `json:"sale_date"`
	CostOfIngredients decimal.Decimal `json:"cost_of_ingredients"`
	Profit            decimal.Decimal `json:"profit"`
	Lines             []SaleLine      `json:"lines,omitempty"`
}

// Revenue is sale price per serving times servings sold.
func (s Sale) Revenue() decimal.Decimal {
	return s.SalePrice.Mul(s.QuantitySold)
}

type SaleCreateRequest struct {
	FoodItemID   int64           `json:"food_item_id" validate:"gt=0"`
	QuantitySold decimal.Decimal `json:"quantity_sold" validate:"decimal_gt0"`
	SalePrice    decimal.Decimal `json:"sale_price" validate:"decimal_gt0"`
	SaleDate     *time.Time      `json:"sale_date,omitempty"`
}

type SalesTotals struct {
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type SalesSummary struct {
	Period       string          `json:"period"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	SalesCount   int             `json:"sales_count"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}

type TopSellingItem struct {
	FoodItemID        int64           `json:"food_item_id"`
	FoodItemName      string          `json:"food_item_name"`
	TotalQuantitySold decimal.Decimal `json:"total_quantity_sold"`
}

type TopSellingReport struct {
	Period    string           `json:"period"`
	StartDate time.Time        `json:"start_date"`
	EndDate   time.Time        `json:"end_date"`
	Limit     int              `json:"limit"`
	Items     []TopSellingItem `json:"items"`
}

type MaterialsStockReport struct {
	TotalMaterials    int             `json:"total_materials"`
	LowStockCount     int             `json:"low_stock_count"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	Materials         []Material      `json:"materials"`
	LowStockMaterials []Material      `json:"low_stock_materials"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type ChatResponse struct {
	Message           string `json:"message"`
	Action            string `json:"action"`
	Data              any    `json:"data,omitempty"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
}

// Command is a structured intent, either parsed from a model reply or sent
// directly by a client.
type Command struct {
	Action     string         `json:"action" validate:"required"`
	Parameters map[string]any `json:"parameters"`
}

type AssistantStatus struct {
	Available bool   `json:"available"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Provider  string `json:"provider"`
}

type AssistantHelp struct {
	Description  string   `json:"description"`
	Examples     []string `json:"examples"`
	Capabilities []string `json:"capabilities"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
