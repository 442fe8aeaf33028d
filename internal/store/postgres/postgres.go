package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate creates any missing tables and indexes. It is safe to run on every
// start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const materialColumns = `id, name, unit, price_per_unit, quantity, date_purchased, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (domain.Material, error) {
	var m domain.Material
	err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.PricePerUnit, &m.Quantity, &m.DatePurchased, &m.CreatedAt, &m.UpdatedAt)
	m.DatePurchased = m.DatePurchased.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, err
}

func (s *Store) GetMaterial(ctx context.Context, id int64) (*domain.Material, error) {
	m, err := scanMaterial(s.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("material", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	return s.queryMaterials(ctx, `SELECT `+materialColumns+` FROM materials ORDER BY name, id`)
}

func (s *Store) SearchMaterials(ctx context.Context, name string) ([]domain.Material, error) {
	return s.queryMaterials(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE name ILIKE $1 ESCAPE '\'
		ORDER BY name, id
	`, containsPattern(name))
}

func (s *Store) ListMaterialsBelow(ctx context.Context, threshold decimal.Decimal) ([]domain.Material, error) {
	return s.queryMaterials(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE quantity < $1
		ORDER BY name, id
	`, threshold)
}

func (s *Store) queryMaterials(ctx context.Context, query string, args ...any) ([]domain.Material, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := make([]domain.Material, 0, 32)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

func (s *Store) CreateMaterial(ctx context.Context, m domain.Material) (*domain.Material, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Unit = strings.TrimSpace(m.Unit)
	if err := store.ValidateMaterial(m); err != nil {
		return nil, err
	}
	if m.DatePurchased.IsZero() {
		m.DatePurchased = dateOnly(time.Now())
	}

	created, err := scanMaterial(s.db.QueryRowContext(ctx, `
		INSERT INTO materials (name, unit, price_per_unit, quantity, date_purchased, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+materialColumns,
		m.Name, m.Unit, m.PricePerUnit, m.Quantity, dateOnly(m.DatePurchased)))
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateMaterial(ctx context.Context, m domain.Material) (*domain.Material, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Unit = strings.TrimSpace(m.Unit)
	if err := store.ValidateMaterial(m); err != nil {
		return nil, err
	}

	var purchased any
	if !m.DatePurchased.IsZero() {
		purchased = dateOnly(m.DatePurchased)
	}

	updated, err := scanMaterial(s.db.QueryRowContext(ctx, `
		UPDATE materials
		SET name = $2, unit = $3, price_per_unit = $4, quantity = $5,
			date_purchased = COALESCE($6, date_purchased), updated_at = now()
		WHERE id = $1
		RETURNING `+materialColumns,
		m.ID, m.Name, m.Unit, m.PricePerUnit, m.Quantity, purchased))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound("material", m.ID)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteMaterial(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.Invalid("id", "material is used by a food item recipe")
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.NotFound("material", id)
	}
	return nil
}

func (s *Store) DeductStock(ctx context.Context, id int64, amount decimal.Decimal) (*domain.Material, error) {
	if !amount.IsPositive() {
		return nil, store.Invalid("amount", "must be greater than 0")
	}
	err := s.RunSaleTx(ctx, []int64{id}, func(tx store.SaleTx) error {
		_, err := tx.DeductStock(ctx, id, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetMaterial(ctx, id)
}

func (s *Store) GetFoodItem(ctx context.Context, id int64) (*domain.FoodItem, error) {
	items, err := s.queryFoodItems(ctx, `
		SELECT id, name, price_per_serving, created_at, updated_at
		FROM food_items
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, store.NotFound("food item", id)
	}
	return &items[0], nil
}

func (s *Store) ListFoodItems(ctx context.Context) ([]domain.FoodItem, error) {
	return s.queryFoodItems(ctx, `
		SELECT id, name, price_per_serving, created_at, updated_at
		FROM food_items
		ORDER BY name, id
	`)
}

func (s *Store) SearchFoodItems(ctx context.Context, name string) ([]domain.FoodItem, error) {
	return s.queryFoodItems(ctx, `
		SELECT id, name, price_per_serving, created_at, updated_at
		FROM food_items
		WHERE name ILIKE $1 ESCAPE '\'
		ORDER BY name, id
	`, containsPattern(name))
}

// queryFoodItems loads items and then all of their recipe lines in a single
// round trip. Both statements read one snapshot so a concurrent replace never
// pairs a header with another version's lines.
func (s *Store) queryFoodItems(ctx context.Context, query string, args ...any) ([]domain.FoodItem, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	rows, err := pgTx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.FoodItem, 0, 16)
	index := make(map[int64]int)
	ids := make([]int64, 0, 16)
	for rows.Next() {
		var item domain.FoodItem
		if err := rows.Scan(&item.ID, &item.Name, &item.PricePerServing, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()
		item.Ingredients = []domain.RecipeLine{}
		index[item.ID] = len(items)
		ids = append(ids, item.ID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return items, pgTx.Commit()
	}

	lineRows, err := pgTx.QueryContext(ctx, `
		SELECT rl.food_item_id, rl.id, rl.material_id, m.name, m.unit, rl.quantity_required
		FROM recipe_lines rl
		JOIN materials m ON m.id = rl.material_id
		WHERE rl.food_item_id = ANY($1)
		ORDER BY rl.food_item_id, rl.position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var foodItemID int64
		var line domain.RecipeLine
		if err := lineRows.Scan(&foodItemID, &line.ID, &line.MaterialID, &line.MaterialName, &line.Unit, &line.QuantityRequired); err != nil {
			return nil, err
		}
		i := index[foodItemID]
		items[i].Ingredients = append(items[i].Ingredients, line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}
	lineRows.Close()
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateFoodItem(ctx context.Context, item domain.FoodItem) (*domain.FoodItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := store.ValidateFoodItem(item); err != nil {
		return nil, err
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if err := checkMaterials(ctx, pgTx, item.Ingredients); err != nil {
		return nil, err
	}

	var id int64
	if err := pgTx.QueryRowContext(ctx, `
		INSERT INTO food_items (name, price_per_serving, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING id
	`, item.Name, item.PricePerServing).Scan(&id); err != nil {
		return nil, err
	}
	if err := insertRecipeLines(ctx, pgTx, id, item.Ingredients); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetFoodItem(ctx, id)
}

func (s *Store) ReplaceFoodItem(ctx context.Context, item domain.FoodItem) (*domain.FoodItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := store.ValidateFoodItem(item); err != nil {
		return nil, err
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	res, err := pgTx.ExecContext(ctx, `
		UPDATE food_items
		SET name = $2, price_per_serving = $3, updated_at = now()
		WHERE id = $1
	`, item.ID, item.Name, item.PricePerServing)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.NotFound("food item", item.ID)
	}
	if err := checkMaterials(ctx, pgTx, item.Ingredients); err != nil {
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM recipe_lines WHERE food_item_id = $1`, item.ID); err != nil {
		return nil, err
	}
	if err := insertRecipeLines(ctx, pgTx, item.ID, item.Ingredients); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetFoodItem(ctx, item.ID)
}

func (s *Store) DeleteFoodItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM food_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.NotFound("food item", id)
	}
	return nil
}

func checkMaterials(ctx context.Context, pgTx *sql.Tx, lines []domain.RecipeLine) error {
	ids := store.RecipeMaterialIDs(lines)
	if len(ids) == 0 {
		return nil
	}

	rows, err := pgTx.QueryContext(ctx, `SELECT id FROM materials WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, line := range lines {
		if _, ok := found[line.MaterialID]; !ok {
			return store.NotFound("material", line.MaterialID)
		}
	}
	return nil
}

// insertRecipeLines keeps the id of lines carried over from an earlier
// version of the recipe.
func insertRecipeLines(ctx context.Context, pgTx *sql.Tx, foodItemID int64, lines []domain.RecipeLine) error {
	for i, line := range lines {
		var err error
		if line.ID > 0 {
			_, err = pgTx.ExecContext(ctx, `
				INSERT INTO recipe_lines (id, food_item_id, position, material_id, quantity_required)
				VALUES ($1, $2, $3, $4, $5)
			`, line.ID, foodItemID, i, line.MaterialID, line.QuantityRequired)
		} else {
			_, err = pgTx.ExecContext(ctx, `
				INSERT INTO recipe_lines (food_item_id, position, material_id, quantity_required)
				VALUES ($1, $2, $3, $4)
			`, foodItemID, i, line.MaterialID, line.QuantityRequired)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.Invalid("username", "username and password are required")
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.Invalid("username", "already exists")
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.Invalid("password", "is required")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// containsPattern builds a case-insensitive ILIKE pattern matching names that
// contain query, with LIKE wildcards in query taken literally.
func containsPattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(query))
	return "%" + escaped + "%"
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
