package store

import (
	"fmt"
	"slices"
	"strings"

	"tindahan/backend/internal/domain"
)

// ValidateMaterial checks the rules every persisted material must satisfy.
func ValidateMaterial(m domain.Material) error {
	if strings.TrimSpace(m.Name) == "" {
		return Invalid("name", "is required")
	}
	if strings.TrimSpace(m.Unit) == "" {
		return Invalid("unit", "is required")
	}
	if !m.PricePerUnit.IsPositive() {
		return Invalid("price_per_unit", "must be greater than 0")
	}
	if m.Quantity.IsNegative() {
		return Invalid("quantity", "must not be negative")
	}
	return nil
}

func ValidateFoodItem(item domain.FoodItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return Invalid("name", "is required")
	}
	if !item.PricePerServing.IsPositive() {
		return Invalid("price_per_serving", "must be greater than 0")
	}
	for i, line := range item.Ingredients {
		if line.MaterialID <= 0 {
			return Invalid(fmt.Sprintf("ingredients[%d].material_id", i), "is required")
		}
		if !line.QuantityRequired.IsPositive() {
			return Invalid(fmt.Sprintf("ingredients[%d].quantity_required", i), "must be greater than 0")
		}
	}
	return nil
}

// RecipeMaterialIDs returns the distinct material ids of a recipe in
// ascending order, the order in which their locks must be taken.
func RecipeMaterialIDs(lines []domain.RecipeLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.MaterialID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
