package reports

import (
	"net/http"
	"time"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes report endpoints.
type Handler struct {
	Svc *Service
}

// parseBound accepts RFC3339 timestamps or plain dates.
func parseBound(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// Sales handles GET /api/v1/reports/sales?from=&to= or ?days=.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_NOT_CONFIGURED", "reports service not configured", nil)
		return
	}
	query := r.URL.Query()
	fromStr := query.Get("from")
	toStr := query.Get("to")
	var (
		from time.Time
		to   time.Time
		err  error
	)
	if fromStr != "" && toStr != "" {
		from, err = parseBound(fromStr)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from date", nil)
			return
		}
		to, err = parseBound(toStr)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to date", nil)
			return
		}
	} else {
		days := h.Svc.DefaultRange
		if days <= 0 {
			days = 30
		}
		days = common.QueryInt(r, "days", days)
		to = h.Svc.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
		from = to.AddDate(0, 0, -days)
	}
	if !from.Before(to) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be before to", nil)
		return
	}
	report, err := h.Svc.SalesRange(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORTS_ERROR", "failed to build sales report", nil)
		return
	}
	common.Data(w, http.StatusOK, report)
}
