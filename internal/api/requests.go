package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// RequestsHandler handles the custody lifecycle: admission, staff decisions,
// force returns, peer transfers, and the overdue scan. Now is injectable so
// the request-window and due-date logic is testable.
type RequestsHandler struct {
	DB       *sql.DB
	Window   store.Window
	LoanDays int
	Now      func() time.Time
}

func (h *RequestsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type createRequestBody struct {
	EquipmentID int64  `json:"equipment_id"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes"`
}

type setStatusBody struct {
	Status string `json:"status"`
}

type transferBody struct {
	TargetUserID int64 `json:"target_user_id"`
}

// Create handles POST /api/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createRequestBody
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EquipmentID <= 0 || req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "equipment_id and quantity are required and must be positive")
		return
	}

	resp, err := store.CreateRequest(r.Context(), h.DB, store.CreateRequestParams{
		UserID:      claims.UserID,
		Role:        claims.Role,
		EquipmentID: req.EquipmentID,
		Quantity:    req.Quantity,
		Notes:       req.Notes,
		Now:         h.now(),
		Window:      h.Window,
		LoanDays:    h.LoanDays,
	})
	if err != nil {
		custodyError(w, err)
		return
	}

	slog.Info("equipment requested", "user", claims.Username,
		"equipment", resp.EquipmentName, "quantity", resp.Quantity, "status", resp.Status)
	jsonResponse(w, http.StatusCreated, resp)
}

// List handles GET /api/requests. Regular members see their own
// responsibilities; moderators and above see everyone's.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var userID int64
	if !model.RoleAtLeast(claims.Role, model.RoleModerator) {
		userID = claims.UserID
	}

	responsibilities, err := store.ListResponsibilities(r.Context(), h.DB, userID)
	if err != nil {
		slog.Error("failed to list responsibilities", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if responsibilities == nil {
		responsibilities = []model.Responsibility{}
	}
	jsonResponse(w, http.StatusOK, responsibilities)
}

// Get handles GET /api/requests/{id}. Only the holder or staff may view.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	resp, err := store.GetResponsibility(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get responsibility", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if resp == nil {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}

	claims := GetClaims(r.Context())
	if resp.UserID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleModerator) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	jsonResponse(w, http.StatusOK, resp)
}

// SetStatus handles PUT /api/requests/{id}/status (staff decision:
// approve, reject, return, overdue).
func (h *RequestsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req setStatusBody
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	claims := GetClaims(r.Context())
	resp, err := store.SetResponsibilityStatus(r.Context(), h.DB, id, req.Status, claims.UserID, h.now(), h.LoanDays)
	if err != nil {
		custodyError(w, err)
		return
	}

	slog.Info("responsibility status changed", "user", claims.Username,
		"responsibility", resp.Reference, "status", resp.Status)
	jsonResponse(w, http.StatusOK, resp)
}

// ForceReturn handles POST /api/requests/{id}/force-return (privileged
// override: return a held responsibility on the holder's behalf).
func (h *RequestsHandler) ForceReturn(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	claims := GetClaims(r.Context())
	resp, err := store.ForceReturn(r.Context(), h.DB, id, claims.Username, h.now())
	if err != nil {
		custodyError(w, err)
		return
	}

	slog.Warn("responsibility force-returned", "user", claims.Username,
		"responsibility", resp.Reference, "holder", resp.Username)
	jsonResponse(w, http.StatusOK, resp)
}

// Transfer handles POST /api/requests/{id}/transfer: the current holder
// hands their approved responsibility to a waitlisted member.
func (h *RequestsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req transferBody
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetUserID <= 0 {
		jsonError(w, http.StatusBadRequest, "target_user_id is required")
		return
	}

	claims := GetClaims(r.Context())
	target, err := store.TransferResponsibility(r.Context(), h.DB, id, req.TargetUserID, claims.UserID, h.now())
	if err != nil {
		custodyError(w, err)
		return
	}

	slog.Info("responsibility transferred", "from", claims.Username,
		"to", target.Username, "equipment", target.EquipmentName)
	jsonResponse(w, http.StatusOK, target)
}

// OverdueScan handles POST /api/requests/overdue-scan. Meant to be hit by an
// external scheduler; flips approved responsibilities past their due date to
// overdue.
func (h *RequestsHandler) OverdueScan(w http.ResponseWriter, r *http.Request) {
	count, err := store.MarkOverdue(r.Context(), h.DB, h.now())
	if err != nil {
		slog.Error("overdue scan failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "overdue scan failed")
		return
	}

	if count > 0 {
		slog.Info("overdue scan", "marked", count)
	}
	jsonResponse(w, http.StatusOK, map[string]int{"marked": count})
}
