package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tindahan/backend/internal/assistant"
	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/service"
	"tindahan/backend/internal/store/memory"
)

type stubModel struct {
	reply string
	err   error
}

func (m *stubModel) Generate(context.Context, string) (string, error) { return m.reply, m.err }

func (m *stubModel) Ping(context.Context) error { return m.err }

func (m *stubModel) Name() string { return "ollama" }

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T, model *stubModel) *API {
	t.Helper()

	if model == nil {
		model = &stubModel{}
	}
	repo := memory.NewSeeded()
	svc := service.New(repo, nil, 0, decimal.Zero)
	auth := NewAuthManager("test-secret-key-with-enough-length", time.Hour, repo)

	return New(svc, assistant.New(svc, model), auth, "*")
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s failed: %d %s", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		var raw []byte
		switch v := body.(type) {
		case string:
			raw = []byte(v)
		default:
			var err error
			raw, err = json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v (raw %q)", err, rec.Body.String())
	}
	return body
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-abc_123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "trace-abc_123" {
		t.Fatalf("expected caller request id to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); !strings.HasPrefix(got, "req-") {
		t.Fatalf("expected generated request id, got %q", got)
	}
}

func TestHandleLogin(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	if token := login(t, handler, "Owner", "owner123"); token == "" {
		t.Fatalf("expected access token")
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "owner",
		"password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "owner"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", rec.Code)
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	// The loginLimiter allows 5 attempts per minute per client address.
	payload, _ := json.Marshal(map[string]string{
		"username": "owner",
		"password": "badpass",
	})

	var lastCode int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after 6 attempts, got %d", lastCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()

	for _, path := range []string{"/api/v1/materials", "/api/v1/sales", "/api/v1/reports/profit", "/api/v1/ai/help"} {
		rec := doJSON(t, handler, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/materials", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestMaterialLifecycle(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/materials", token, map[string]any{
		"name":           "Rice",
		"unit":           "kg",
		"price_per_unit": "45.50",
		"quantity":       "25",
		"date_purchased": "2026-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Material domain.Material `json:"material"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Material.ID
	if id == 0 || !created.Material.PricePerUnit.Equal(decimal.RequireFromString("45.5")) {
		t.Fatalf("unexpected material %+v", created.Material)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/materials?search=ric", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", rec.Code)
	}
	var listed struct {
		Materials []domain.Material `json:"materials"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Materials) != 1 || listed.Materials[0].Name != "Rice" {
		t.Fatalf("unexpected search result %+v", listed.Materials)
	}

	path := "/api/v1/materials/" + itoa(id)
	rec = doJSON(t, handler, http.MethodPut, path, token, map[string]any{
		"name":           "Rice",
		"unit":           "kg",
		"price_per_unit": "48",
		"quantity":       "30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestMaterialValidationReportsField(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/materials", token, map[string]any{
		"name":           "Salt",
		"unit":           "kg",
		"price_per_unit": "0",
		"quantity":       "5",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["field"] != "price_per_unit" {
		t.Fatalf("expected field price_per_unit, got %v", body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/materials", token, `{"name":"Salt","colour":"white"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/materials/abc", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestStaffCannotChangeCatalogue(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/materials", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("staff list: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/materials", token, map[string]any{
		"name":           "Salt",
		"unit":           "kg",
		"price_per_unit": "20",
		"quantity":       "5",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff create: expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/food-items/1", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff delete: expected 403, got %d", rec.Code)
	}
}

func TestFoodItemIngredients(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/food-items", token, map[string]any{
		"name":              "Pandesal",
		"price_per_serving": "5",
		"ingredients": []map[string]any{
			{"material_id": 1, "quantity_required": "0.05"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		FoodItem domain.FoodItem `json:"food_item"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	base := "/api/v1/food-items/" + itoa(created.FoodItem.ID)

	rec = doJSON(t, handler, http.MethodPost, base+"/ingredients", token, map[string]any{
		"material_id":       2,
		"quantity_required": "0.01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add ingredient: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var updated struct {
		FoodItem domain.FoodItem `json:"food_item"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(updated.FoodItem.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %+v", updated.FoodItem.Ingredients)
	}

	lineID := updated.FoodItem.Ingredients[1].ID
	rec = doJSON(t, handler, http.MethodDelete, base+"/ingredients/"+itoa(lineID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove ingredient: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/ingredients", token, map[string]any{
		"material_id":       1,
		"quantity_required": "-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative quantity: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, base+"/recipe", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action: expected 404, got %d", rec.Code)
	}
}

func TestRecordSaleAndShortage(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "staff", "staff123")

	// Cheese Pizza: 0.3 kg flour at 50, 0.2 kg cheese at 350, 0.15 kg sauce at 120.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"food_item_id":  3,
		"quantity_sold": 2,
		"sale_price":    "200",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record sale: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Sale domain.Sale `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Sale.CostOfIngredients.Equal(decimal.RequireFromString("206")) {
		t.Fatalf("expected cost 206, got %s", created.Sale.CostOfIngredients)
	}
	if !created.Sale.Profit.Equal(decimal.RequireFromString("194")) {
		t.Fatalf("expected profit 194, got %s", created.Sale.Profit)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales/"+itoa(created.Sale.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get sale: expected 200, got %d", rec.Code)
	}

	// Cappuccino needs 0.02 kg coffee per cup; 10 kg are in stock.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"food_item_id":  4,
		"quantity_sold": 1000,
		"sale_price":    "80",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("shortage: expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["material_name"] != "Coffee Beans" {
		t.Fatalf("expected Coffee Beans shortage, got %v", body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/materials/10", token, nil)
	var coffee struct {
		Material domain.Material `json:"material"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&coffee); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !coffee.Material.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected coffee stock untouched at 10, got %s", coffee.Material.Quantity)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"food_item_id":  999,
		"quantity_sold": 1,
		"sale_price":    "80",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown item: expected 404, got %d", rec.Code)
	}
}

func TestRecordFractionalSale(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "staff", "staff123")

	// Chocolate Cake costs 200 per serving in ingredients.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, `{"food_item_id":1,"quantity_sold":1.5,"sale_price":"150.00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record sale: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Sale domain.Sale `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Sale.QuantitySold.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected 1.5 servings, got %s", created.Sale.QuantitySold)
	}
	if !created.Sale.CostOfIngredients.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("expected cost 300, got %s", created.Sale.CostOfIngredients)
	}
	if !created.Sale.Profit.Equal(decimal.RequireFromString("-75")) {
		t.Fatalf("expected profit -75, got %s", created.Sale.Profit)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/materials/1", token, nil)
	var flour struct {
		Material domain.Material `json:"material"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&flour); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !flour.Material.Quantity.Equal(decimal.RequireFromString("99.25")) {
		t.Fatalf("expected flour 99.25, got %s", flour.Material.Quantity)
	}
}

func TestWrongFieldTypeReportsField(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, `{"food_item_id":"cake","quantity_sold":1,"sale_price":"150"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	raw := rec.Body.String()
	if strings.Contains(raw, "Go") || strings.Contains(raw, "int64") {
		t.Fatalf("decoder detail leaked: %s", raw)
	}
	if body := decodeBody(t, rec); body["field"] != "food_item_id" {
		t.Fatalf("expected food_item_id field error, got %v", body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, `{"food_item_id":1,"quantity_sold":1,"sale_price":"150"`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("truncated body: expected 400, got %d", rec.Code)
	}
}

func TestListSalesFilters(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/sales?foodItemId=1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listed struct {
		Sales []domain.Sale `json:"sales"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Sales) != 2 {
		t.Fatalf("expected 2 chocolate cake sales, got %d", len(listed.Sales))
	}
	for _, sale := range listed.Sales {
		if sale.FoodItemID != 1 {
			t.Fatalf("unexpected sale %+v", sale)
		}
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales?startDate=2026-03-10", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("half-open range: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales?startDate=yesterday&endDate=2026-03-10", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", rec.Code)
	}
}

func TestParseDateParamEndOfDay(t *testing.T) {
	end, err := parseDateParam("2026-03-14", "endDate", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 3, 14, 23, 59, 59, 999999999, time.UTC)
	if !end.Equal(want) {
		t.Fatalf("expected %s, got %s", want, end)
	}

	start, err := parseDateParam("2026-03-14T08:00:00+08:00", "startDate", false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !start.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", start)
	}

	if got, err := parseDateParam("  ", "startDate", false); err != nil || got != nil {
		t.Fatalf("expected nil bound for blank input, got %v %v", got, err)
	}
}

func TestReports(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/reports/profit?period=week", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profit: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var summary domain.SalesSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Period != "week" || summary.SalesCount != 6 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/profit?period=decade", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid period: expected 400, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["field"] != "period" {
		t.Fatalf("expected period field error, got %v", body)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/top-items?period=week&limit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("top items: expected 200, got %d", rec.Code)
	}
	var top domain.TopSellingReport
	if err := json.NewDecoder(rec.Body).Decode(&top); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Vanilla Cupcake 18, Cappuccino 15.
	if len(top.Items) != 2 || top.Items[0].FoodItemName != "Vanilla Cupcake" || !top.Items[0].TotalQuantitySold.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("unexpected top items %+v", top.Items)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/materials?lowStockThreshold=20", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("materials: expected 200, got %d", rec.Code)
	}
	var stock domain.MaterialsStockReport
	if err := json.NewDecoder(rec.Body).Decode(&stock); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Butter 20 is not below 20; Chocolate 15 and Coffee Beans 10 are.
	if stock.TotalMaterials != 10 || stock.LowStockCount != 2 {
		t.Fatalf("unexpected stock report %+v", stock)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/materials?lowStockThreshold=lots", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad threshold: expected 400, got %d", rec.Code)
	}
}

func TestChatAlwaysAnswers200(t *testing.T) {
	model := &stubModel{reply: `{"action":"VIEW_PROFIT","parameters":{"period":"week"},"message":"Heto ang kita mo this week!","needsMoreInfo":false}`}
	handler := newTestAPI(t, model).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/ai/chat", token, map[string]string{"message": "magkano kinita ko this week?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", rec.Code)
	}
	var resp domain.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Action != assistant.ActionViewProfit || resp.Data == nil {
		t.Fatalf("unexpected chat response %+v", resp)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/ai/chat", token, map[string]string{"message": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("empty chat: expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["action"] != assistant.ActionError {
		t.Fatalf("expected ERROR action, got %v", body)
	}
}

func TestCommandDispatch(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/ai/commands", token, map[string]any{
		"action":     "RECORD_SALE",
		"parameters": map[string]any{"food_item_name": "vanilla cupcake", "quantity": 2},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("command: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["action"] != "RECORD_SALE" || body["data"] == nil {
		t.Fatalf("unexpected command response %v", body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/ai/commands", token, map[string]any{
		"action":     "RECORD_SALE",
		"parameters": map[string]any{"food_item_name": "Cappuccino", "quantity": 1000},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("shortage command: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/ai/commands", token, map[string]any{"parameters": map[string]any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing action: expected 400, got %d", rec.Code)
	}
}

func TestAssistantStatusAndHelp(t *testing.T) {
	handler := newTestAPI(t, nil).Handler()
	token := login(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/ai/status", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var status domain.AssistantStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Available || status.Status != "READY" {
		t.Fatalf("unexpected status %+v", status)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/ai/help", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("help: expected 200, got %d", rec.Code)
	}
	var help domain.AssistantHelp
	if err := json.NewDecoder(rec.Body).Decode(&help); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(help.Examples) == 0 {
		t.Fatalf("expected help examples")
	}
}

func TestMustHashPassword(t *testing.T) {
	hash := mustHashPassword(t, "secret")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Fatalf("hash verification failed: %v", err)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
