package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// ReportsHandler serves administrative reports.
type ReportsHandler struct {
	DB *sql.DB
}

// ChainOfCustody handles GET /api/reports/chain-of-custody: every
// responsibility with its resolved holder, approver, equipment, and full
// transfer history.
func (h *ReportsHandler) ChainOfCustody(w http.ResponseWriter, r *http.Request) {
	records, err := store.ChainOfCustodyReport(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to build chain-of-custody report", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	if records == nil {
		records = []model.CustodyRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}
