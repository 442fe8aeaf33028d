package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/store"
)

func (a *API) handleMaterials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		materials, err := a.service.ListMaterials(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"materials": materials})
	case http.MethodPost:
		var req domain.MaterialRequest
		if err := a.decodeValid(r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		material, err := a.service.CreateMaterial(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"material": material})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleMaterialActions(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/api/v1/materials/", "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if len(rest) > 0 {
		writeError(w, http.StatusNotFound, errors.New("unknown material action"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		material, err := a.service.GetMaterial(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"material": material})
	case http.MethodPut:
		var req domain.MaterialRequest
		if err := a.decodeValid(r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		material, err := a.service.UpdateMaterial(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"material": material})
	case http.MethodDelete:
		if err := a.service.DeleteMaterial(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleFoodItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.service.ListFoodItems(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"food_items": items})
	case http.MethodPost:
		var req domain.FoodItemRequest
		if err := a.decodeValid(r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		item, err := a.service.CreateFoodItem(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"food_item": item})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleFoodItemActions serves /food-items/{id}, /food-items/{id}/ingredients
// and /food-items/{id}/ingredients/{lineId}.
func (a *API) handleFoodItemActions(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/api/v1/food-items/", "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch {
	case len(rest) == 0:
		a.handleFoodItem(w, r, id)
	case rest[0] == "ingredients" && len(rest) == 1:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.RecipeLineRequest
		if err := a.decodeValid(r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		item, err := a.service.AddIngredient(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"food_item": item})
	case rest[0] == "ingredients" && len(rest) == 2:
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w)
			return
		}
		lineID, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil || lineID <= 0 {
			writeServiceError(w, store.Invalid("line_id", "must be a positive integer"))
			return
		}
		item, err := a.service.RemoveIngredient(r.Context(), id, lineID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"food_item": item})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown food item action"))
	}
}

func (a *API) handleFoodItem(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		item, err := a.service.GetFoodItem(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"food_item": item})
	case http.MethodPut:
		var req domain.FoodItemRequest
		if err := a.decodeValid(r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		item, err := a.service.UpdateFoodItem(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"food_item": item})
	case http.MethodDelete:
		if err := a.service.DeleteFoodItem(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}
