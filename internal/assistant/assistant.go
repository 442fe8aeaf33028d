package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/llm"
	"tindahan/backend/internal/store"
)

const (
	ActionAddMaterial   = "ADD_MATERIAL"
	ActionViewMaterials = "VIEW_MATERIALS"
	ActionRecordSale    = "RECORD_SALE"
	ActionViewProfit    = "VIEW_PROFIT"
	ActionViewStock     = "VIEW_STOCK"
	ActionViewTopItems  = "VIEW_TOP_ITEMS"
	ActionError         = "ERROR"
)

const (
	unavailableMessage   = "Sorry, ang AI service ay hindi available ngayon. Siguraduhin na naka-run ang Ollama."
	notUnderstoodMessage = "Sorry, hindi ko naintindihan yung request. Pwede mo bang ulitin?"

	defaultPeriod       = "today"
	defaultTopItemLimit = 5
)

// Operations is the slice of the service layer the assistant can call.
type Operations interface {
	ListMaterials(ctx context.Context, search string) ([]domain.Material, error)
	CreateMaterial(ctx context.Context, req domain.MaterialRequest) (domain.Material, error)
	GetFoodItem(ctx context.Context, id int64) (domain.FoodItem, error)
	FindFoodItemByName(ctx context.Context, name string) (domain.FoodItem, error)
	RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error)
	SalesSummary(ctx context.Context, period string) (domain.SalesSummary, error)
	MaterialsStockReport(ctx context.Context, threshold *decimal.Decimal) (domain.MaterialsStockReport, error)
	TopSellingItems(ctx context.Context, period string, limit int) (domain.TopSellingReport, error)
}

type Assistant struct {
	ops   Operations
	model llm.Client
	now   func() time.Time
}

func New(ops Operations, model llm.Client) *Assistant {
	return &Assistant{
		ops:   ops,
		model: model,
		now:   time.Now,
	}
}

type modelReply struct {
	Action        string         `json:"action"`
	Parameters    map[string]any `json:"parameters"`
	Message       string         `json:"message"`
	NeedsMoreInfo bool           `json:"needsMoreInfo"`
}

// Chat forwards free text to the model and runs the action it picks. Model
// and operation failures are folded into the response.
func (a *Assistant) Chat(ctx context.Context, req domain.ChatRequest) domain.ChatResponse {
	reply, err := a.model.Generate(ctx, BuildPrompt(req.Message))
	if err != nil {
		log.Printf("[assistant] model call failed provider=%s: %v", a.model.Name(), err)
		return domain.ChatResponse{Message: unavailableMessage, Action: ActionError}
	}

	parsed, err := parseReply(reply)
	if err != nil {
		log.Printf("[assistant] unparseable model reply: %v", err)
		return domain.ChatResponse{Message: notUnderstoodMessage, Action: ActionError}
	}

	if parsed.NeedsMoreInfo {
		return domain.ChatResponse{
			Message:           parsed.Message,
			Action:            parsed.Action,
			NeedsConfirmation: true,
		}
	}

	data, err := a.Dispatch(ctx, domain.Command{Action: parsed.Action, Parameters: parsed.Parameters})
	if err != nil {
		log.Printf("[assistant] action %s failed: %v", parsed.Action, err)
		data = "Error: " + err.Error()
	}
	return domain.ChatResponse{
		Message: parsed.Message,
		Action:  parsed.Action,
		Data:    data,
	}
}

func parseReply(reply string) (modelReply, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(llm.StripCodeFences(reply))))
	dec.UseNumber()

	var out modelReply
	if err := dec.Decode(&out); err != nil {
		return modelReply{}, err
	}
	out.Action = strings.ToUpper(strings.TrimSpace(out.Action))
	if out.Action == "" {
		return modelReply{}, errors.New("reply has no action")
	}
	if out.Parameters == nil {
		out.Parameters = map[string]any{}
	}
	return out, nil
}

// Dispatch runs one structured command. Unknown actions are answered with a
// note instead of an error.
func (a *Assistant) Dispatch(ctx context.Context, cmd domain.Command) (any, error) {
	p := params(cmd.Parameters)
	if p == nil {
		p = params{}
	}

	action := strings.ToUpper(strings.TrimSpace(cmd.Action))
	switch action {
	case ActionViewMaterials:
		return a.ops.ListMaterials(ctx, p.str("search", "name"))

	case ActionViewProfit:
		return a.ops.SalesSummary(ctx, periodOrDefault(p))

	case ActionViewStock:
		threshold, ok, err := p.dec("threshold", "threshold", "low_stock_threshold", "lowStockThreshold")
		if err != nil {
			return nil, err
		}
		if !ok {
			return a.ops.MaterialsStockReport(ctx, nil)
		}
		return a.ops.MaterialsStockReport(ctx, &threshold)

	case ActionViewTopItems:
		limit, ok, err := p.whole("limit", "limit")
		if err != nil {
			return nil, err
		}
		if !ok || limit <= 0 {
			limit = defaultTopItemLimit
		}
		return a.ops.TopSellingItems(ctx, periodOrDefault(p), int(limit))

	case ActionAddMaterial:
		return a.addMaterial(ctx, p)

	case ActionRecordSale:
		return a.recordSale(ctx, p)

	default:
		return "Action not yet implemented: " + cmd.Action, nil
	}
}

func periodOrDefault(p params) string {
	if period := p.str("period"); period != "" {
		return period
	}
	return defaultPeriod
}

func (a *Assistant) addMaterial(ctx context.Context, p params) (domain.Material, error) {
	req := domain.MaterialRequest{
		Name:          p.str("name", "material_name", "materialName"),
		Unit:          p.str("unit"),
		DatePurchased: p.str("date_purchased", "datePurchased"),
	}
	if req.Name == "" {
		return domain.Material{}, store.Invalid("name", "is required")
	}
	if req.Unit == "" {
		return domain.Material{}, store.Invalid("unit", "is required")
	}

	quantity, ok, err := p.dec("quantity", "quantity")
	if err != nil {
		return domain.Material{}, err
	}
	if !ok {
		return domain.Material{}, store.Invalid("quantity", "is required")
	}
	price, ok, err := p.dec("price_per_unit", "price_per_unit", "pricePerUnit", "price")
	if err != nil {
		return domain.Material{}, err
	}
	if !ok {
		return domain.Material{}, store.Invalid("price_per_unit", "is required")
	}
	req.Quantity = quantity
	req.PricePerUnit = price
	if req.DatePurchased == "" {
		req.DatePurchased = a.now().Format(time.DateOnly)
	}
	return a.ops.CreateMaterial(ctx, req)
}

func (a *Assistant) recordSale(ctx context.Context, p params) (domain.Sale, error) {
	var item domain.FoodItem
	id, hasID, err := p.whole("food_item_id", "food_item_id", "foodItemId")
	if err != nil {
		return domain.Sale{}, err
	}
	switch {
	case hasID:
		item, err = a.ops.GetFoodItem(ctx, id)
	default:
		name := p.str("food_item_name", "foodItemName", "food_item", "name")
		if name == "" {
			return domain.Sale{}, store.Invalid("food_item_name", "is required")
		}
		item, err = a.ops.FindFoodItemByName(ctx, name)
	}
	if err != nil {
		return domain.Sale{}, err
	}

	quantity, ok, err := p.dec("quantity", "quantity", "quantity_sold", "quantitySold")
	if err != nil {
		return domain.Sale{}, err
	}
	if !ok || !quantity.IsPositive() {
		return domain.Sale{}, store.Invalid("quantity", "must be greater than 0")
	}

	price, ok, err := p.dec("sale_price", "sale_price", "salePrice", "price")
	if err != nil {
		return domain.Sale{}, err
	}
	if !ok {
		price = item.PricePerServing
	}

	return a.ops.RecordSale(ctx, domain.SaleCreateRequest{
		FoodItemID:   item.ID,
		QuantitySold: quantity,
		SalePrice:    price,
	})
}

// Status reports whether the model endpoint answers right now.
func (a *Assistant) Status(ctx context.Context) domain.AssistantStatus {
	if err := a.model.Ping(ctx); err != nil {
		log.Printf("[assistant] WARN: %s is not available: %v", a.model.Name(), err)
		message := "Ollama is not running. Please start Ollama first."
		if a.model.Name() != "ollama" {
			message = fmt.Sprintf("The %s model endpoint is not reachable. Check its API key and model name.", a.model.Name())
		}
		return domain.AssistantStatus{
			Available: false,
			Status:    "OFFLINE",
			Message:   message,
			Provider:  a.model.Name(),
		}
	}
	return domain.AssistantStatus{
		Available: true,
		Status:    "READY",
		Message:   "AI service is ready!",
		Provider:  a.model.Name(),
	}
}

func (a *Assistant) Help() domain.AssistantHelp {
	return domain.AssistantHelp{
		Description: "AI-powered inventory and sales assistant (Taglish)",
		Examples: []string{
			"bumili ako ng 10 eggs",
			"magkano kinita ko today?",
			"ano ang low stock items?",
			"ano ang best selling items ngayong linggo?",
			"pa-show ng lahat ng materials",
			"nagbenta ako ng 5 chocolate cakes",
		},
		Capabilities: []string{
			"Add materials to inventory",
			"View profit reports",
			"Check stock levels",
			"View top-selling items",
			"Record sales",
		},
	}
}
