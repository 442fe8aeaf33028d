package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tindahan/backend/internal/domain"
	"tindahan/backend/internal/service"
	"tindahan/backend/internal/store"
)

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listSales(w, r)
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := a.decodeValid(r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		sale, err := a.service.RecordSale(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) listSales(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("foodItemId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeServiceError(w, store.Invalid("foodItemId", "must be a positive integer"))
			return
		}
		sales, err := a.service.ListSalesByFoodItem(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
		return
	}

	from, err := parseDateParam(query.Get("startDate"), "startDate", false)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	to, err := parseDateParam(query.Get("endDate"), "endDate", true)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sales, err := a.service.ListSales(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

// parseDateParam accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDateParam(raw string, field string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, store.Invalid(field, "must be YYYY-MM-DD or an RFC 3339 timestamp")
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	id, rest, err := pathID(r.URL.Path, "/api/v1/sales/", "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if len(rest) > 0 {
		writeError(w, http.StatusNotFound, errors.New("unknown sale action"))
		return
	}
	sale, err := a.service.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleProfitReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	summary, err := a.service.SalesSummary(r.Context(), periodParam(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleMaterialsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	var threshold *decimal.Decimal
	if raw := strings.TrimSpace(r.URL.Query().Get("lowStockThreshold")); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			writeServiceError(w, store.Invalid("lowStockThreshold", "must be a number"))
			return
		}
		threshold = &parsed
	}

	report, err := a.service.MaterialsStockReport(r.Context(), threshold)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleTopItemsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), service.DefaultTopSellingLimit, 100)
	report, err := a.service.TopSellingItems(r.Context(), periodParam(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func periodParam(r *http.Request) string {
	if period := strings.TrimSpace(r.URL.Query().Get("period")); period != "" {
		return period
	}
	return "today"
}
