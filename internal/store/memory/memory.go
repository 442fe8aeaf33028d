package memory

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	materials       map[int64]domain.Material
	foodItems       map[int64]domain.FoodItem
	salesByID       map[int64]domain.Sale
	usersByUsername map[string]domain.UserAccount

	nextMaterialID int64
	nextFoodItemID int64
	nextLineID     int64
	nextSaleID     int64

	locks *lockTable
}

func New() *Store {
	return &Store{
		materials:       make(map[int64]domain.Material),
		foodItems:       make(map[int64]domain.FoodItem),
		salesByID:       make(map[int64]domain.Sale),
		usersByUsername: make(map[string]domain.UserAccount),
		locks:           newLockTable(),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD.
// If unset, dev defaults are used with a warning. These accounts are never
// used when the backend runs on PostgreSQL.
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store holding a small bakery-cafe catalogue, a few
// historical sales and the dev user accounts.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	today := dateOnly(now)
	ids := make(map[string]int64)
	for _, m := range []struct {
		name, unit, price, qty string
		daysAgo                int
	}{
		{"Flour", "kg", "50.00", "100", 5},
		{"Sugar", "kg", "60.00", "50", 3},
		{"Eggs", "pieces", "8.00", "200", 2},
		{"Milk", "liters", "80.00", "30", 1},
		{"Butter", "kg", "300.00", "20", 4},
		{"Chocolate", "kg", "400.00", "15", 6},
		{"Vanilla Extract", "ml", "5.00", "500", 7},
		{"Cheese", "kg", "350.00", "25", 2},
		{"Tomato Sauce", "kg", "120.00", "40", 3},
		{"Coffee Beans", "kg", "600.00", "10", 8},
	} {
		s.nextMaterialID++
		s.materials[s.nextMaterialID] = domain.Material{
			ID:            s.nextMaterialID,
			Name:          m.name,
			Unit:          m.unit,
			PricePerUnit:  decimal.RequireFromString(m.price),
			Quantity:      decimal.RequireFromString(m.qty),
			DatePurchased: today.AddDate(0, 0, -m.daysAgo),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		ids[m.name] = s.nextMaterialID
	}

	type line struct {
		material string
		qty      string
	}
	items := make(map[string]domain.FoodItem)
	for _, f := range []struct {
		name  string
		price string
		lines []line
	}{
		{"Chocolate Cake", "150.00", []line{{"Flour", "0.5"}, {"Sugar", "0.3"}, {"Eggs", "4"}, {"Chocolate", "0.2"}, {"Butter", "0.15"}}},
		{"Vanilla Cupcake", "50.00", []line{{"Flour", "0.1"}, {"Sugar", "0.05"}, {"Eggs", "1"}, {"Vanilla Extract", "5"}, {"Milk", "0.05"}}},
		{"Cheese Pizza", "200.00", []line{{"Flour", "0.3"}, {"Cheese", "0.2"}, {"Tomato Sauce", "0.15"}}},
		{"Cappuccino", "80.00", []line{{"Coffee Beans", "0.02"}, {"Milk", "0.15"}, {"Sugar", "0.01"}}},
	} {
		s.nextFoodItemID++
		item := domain.FoodItem{
			ID:              s.nextFoodItemID,
			Name:            f.name,
			PricePerServing: decimal.RequireFromString(f.price),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for _, l := range f.lines {
			s.nextLineID++
			item.Ingredients = append(item.Ingredients, domain.RecipeLine{
				ID:               s.nextLineID,
				MaterialID:       ids[l.material],
				QuantityRequired: decimal.RequireFromString(l.qty),
			})
		}
		s.foodItems[item.ID] = item
		items[f.name] = item
	}

	// Historical sales are priced from current recipes without touching stock.
	for _, h := range []struct {
		item string
		qty  int64
		ago  time.Duration
	}{
		{"Chocolate Cake", 2, 48 * time.Hour},
		{"Vanilla Cupcake", 10, 24 * time.Hour},
		{"Cheese Pizza", 5, 24 * time.Hour},
		{"Cappuccino", 15, 5 * time.Hour},
		{"Chocolate Cake", 3, 3 * time.Hour},
		{"Vanilla Cupcake", 8, time.Hour},
	} {
		item := items[h.item]
		sale := domain.Sale{
			FoodItemID:   item.ID,
			FoodItemName: item.Name,
			QuantitySold: decimal.NewFromInt(h.qty),
			SalePrice:    item.PricePerServing,
			SaleDate:     now.Add(-h.ago),
		}
		cost := decimal.Zero
		for _, l := range item.Ingredients {
			m := s.materials[l.MaterialID]
			required := l.QuantityRequired.Mul(sale.QuantitySold)
			lineCost := m.PricePerUnit.Mul(required)
			cost = cost.Add(lineCost)
			sale.Lines = append(sale.Lines, domain.SaleLine{
				MaterialID:   m.ID,
				MaterialName: m.Name,
				Unit:         m.Unit,
				Quantity:     required,
				UnitPrice:    m.PricePerUnit,
				Cost:         lineCost,
			})
		}
		sale.CostOfIngredients = cost
		sale.Profit = sale.Revenue().Sub(cost)
		s.nextSaleID++
		sale.ID = s.nextSaleID
		s.salesByID[sale.ID] = sale
	}

	return s
}

func (s *Store) GetMaterial(_ context.Context, id int64) (*domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.materials[id]
	if !ok {
		return nil, store.NotFound("material", id)
	}
	return &m, nil
}

func (s *Store) ListMaterials(_ context.Context) ([]domain.Material, error) {
	return s.filterMaterials(func(domain.Material) bool { return true }), nil
}

func (s *Store) SearchMaterials(_ context.Context, name string) ([]domain.Material, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	return s.filterMaterials(func(m domain.Material) bool {
		return strings.Contains(strings.ToLower(m.Name), query)
	}), nil
}

func (s *Store) ListMaterialsBelow(_ context.Context, threshold decimal.Decimal) ([]domain.Material, error) {
	return s.filterMaterials(func(m domain.Material) bool {
		return m.Quantity.LessThan(threshold)
	}), nil
}

func (s *Store) filterMaterials(keep func(domain.Material) bool) []domain.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Material, 0, len(s.materials))
	for _, m := range s.materials {
		if keep(m) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b domain.Material) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) CreateMaterial(_ context.Context, m domain.Material) (*domain.Material, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Unit = strings.TrimSpace(m.Unit)
	if err := store.ValidateMaterial(m); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.nextMaterialID++
	m.ID = s.nextMaterialID
	if m.DatePurchased.IsZero() {
		m.DatePurchased = dateOnly(now)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	s.materials[m.ID] = m
	return &m, nil
}

// UpdateMaterial overwrites every editable field, quantity included.
func (s *Store) UpdateMaterial(ctx context.Context, m domain.Material) (*domain.Material, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Unit = strings.TrimSpace(m.Unit)
	if err := store.ValidateMaterial(m); err != nil {
		return nil, err
	}

	release, err := s.locks.acquire(ctx, []int64{m.ID})
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.materials[m.ID]
	if !ok {
		return nil, store.NotFound("material", m.ID)
	}
	if m.DatePurchased.IsZero() {
		m.DatePurchased = existing.DatePurchased
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	s.materials[m.ID] = m
	return &m, nil
}

func (s *Store) DeleteMaterial(ctx context.Context, id int64) error {
	release, err := s.locks.acquire(ctx, []int64{id})
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.materials[id]; !ok {
		return store.NotFound("material", id)
	}
	for _, item := range s.foodItems {
		for _, line := range item.Ingredients {
			if line.MaterialID == id {
				return store.Invalid("id", "material is used by food item %q", item.Name)
			}
		}
	}
	delete(s.materials, id)
	return nil
}

func (s *Store) DeductStock(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Material, error) {
	if !amount.IsPositive() {
		return nil, store.Invalid("amount", "must be greater than 0")
	}

	release, err := s.locks.acquire(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.deductLocked(id, amount); err != nil {
		return nil, err
	}
	return s.GetMaterial(ctx, id)
}

// deductLocked applies one guarded deduction. The caller holds the lock-table
// slot for id. It returns the material as read before the change.
func (s *Store) deductLocked(id int64, amount decimal.Decimal) (domain.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.materials[id]
	if !ok {
		return domain.Material{}, store.NotFound("material", id)
	}
	remaining := m.Quantity.Sub(amount)
	if remaining.IsNegative() {
		return domain.Material{}, &store.StockShortageError{
			MaterialID:   m.ID,
			MaterialName: m.Name,
			Available:    m.Quantity,
			Required:     amount,
		}
	}
	before := m
	m.Quantity = remaining
	m.UpdatedAt = time.Now().UTC()
	s.materials[id] = m
	return before, nil
}

// restockLocked reverses a deduction made under the same lock-table slot.
func (s *Store) restockLocked(id int64, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.materials[id]
	if !ok {
		return
	}
	m.Quantity = m.Quantity.Add(amount)
	s.materials[id] = m
}

func (s *Store) GetFoodItem(_ context.Context, id int64) (*domain.FoodItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.foodItems[id]
	if !ok {
		return nil, store.NotFound("food item", id)
	}
	resolved := s.resolveLocked(item)
	return &resolved, nil
}

func (s *Store) ListFoodItems(_ context.Context) ([]domain.FoodItem, error) {
	return s.filterFoodItems(func(domain.FoodItem) bool { return true }), nil
}

func (s *Store) SearchFoodItems(_ context.Context, name string) ([]domain.FoodItem, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	return s.filterFoodItems(func(item domain.FoodItem) bool {
		return strings.Contains(strings.ToLower(item.Name), query)
	}), nil
}

func (s *Store) filterFoodItems(keep func(domain.FoodItem) bool) []domain.FoodItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FoodItem, 0, len(s.foodItems))
	for _, item := range s.foodItems {
		if keep(item) {
			out = append(out, s.resolveLocked(item))
		}
	}
	slices.SortFunc(out, func(a, b domain.FoodItem) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// resolveLocked copies an item and fills material names and units into its
// recipe lines. The caller holds s.mu.
func (s *Store) resolveLocked(item domain.FoodItem) domain.FoodItem {
	lines := make([]domain.RecipeLine, len(item.Ingredients))
	for i, line := range item.Ingredients {
		if m, ok := s.materials[line.MaterialID]; ok {
			line.MaterialName = m.Name
			line.Unit = m.Unit
		}
		lines[i] = line
	}
	item.Ingredients = lines
	return item
}

func (s *Store) CreateFoodItem(_ context.Context, item domain.FoodItem) (*domain.FoodItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := store.ValidateFoodItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMaterialsLocked(item.Ingredients); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s.nextFoodItemID++
	item.ID = s.nextFoodItemID
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Ingredients = s.numberLinesLocked(item.Ingredients)
	s.foodItems[item.ID] = item

	resolved := s.resolveLocked(item)
	return &resolved, nil
}

// ReplaceFoodItem swaps the item's fields and whole recipe in one step.
func (s *Store) ReplaceFoodItem(_ context.Context, item domain.FoodItem) (*domain.FoodItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := store.ValidateFoodItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.foodItems[item.ID]
	if !ok {
		return nil, store.NotFound("food item", item.ID)
	}
	if err := s.checkMaterialsLocked(item.Ingredients); err != nil {
		return nil, err
	}

	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	item.Ingredients = s.numberLinesLocked(item.Ingredients)
	s.foodItems[item.ID] = item

	resolved := s.resolveLocked(item)
	return &resolved, nil
}

func (s *Store) DeleteFoodItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.foodItems[id]; !ok {
		return store.NotFound("food item", id)
	}
	delete(s.foodItems, id)
	return nil
}

func (s *Store) checkMaterialsLocked(lines []domain.RecipeLine) error {
	for _, line := range lines {
		if _, ok := s.materials[line.MaterialID]; !ok {
			return store.NotFound("material", line.MaterialID)
		}
	}
	return nil
}

// numberLinesLocked keeps ids of lines carried over from the previous recipe
// and assigns fresh ids to the rest.
func (s *Store) numberLinesLocked(lines []domain.RecipeLine) []domain.RecipeLine {
	out := make([]domain.RecipeLine, len(lines))
	for i, line := range lines {
		if line.ID == 0 {
			s.nextLineID++
			line.ID = s.nextLineID
		}
		line.MaterialName = ""
		line.Unit = ""
		out[i] = line
	}
	return out
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.Invalid("username", "username and password are required")
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.Invalid("username", "already exists")
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.Invalid("password", "is required")
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
