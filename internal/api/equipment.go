package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// MaxImageUpload limits equipment photo upload size (pre-processing).
const MaxImageUpload = 10 << 20 // 10 MiB

// EquipmentHandler handles catalog endpoints.
type EquipmentHandler struct {
	DB *sql.DB
}

type equipmentRequest struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Kind              string `json:"kind"`
	LinkedEquipmentID *int64 `json:"linked_equipment_id"`
	Quantity          int    `json:"quantity"`
	Condition         string `json:"condition"`
	Description       string `json:"description"`
}

func (req *equipmentRequest) validate() string {
	if req.Name == "" || req.Category == "" {
		return "name and category required"
	}
	if req.Kind == "" {
		req.Kind = model.KindPrimary
	}
	if !model.ValidKind(req.Kind) {
		return "invalid kind"
	}
	if req.Kind == model.KindPrimary && req.LinkedEquipmentID != nil {
		return "only secondary equipment can link to another item"
	}
	if req.Condition == "" {
		req.Condition = model.ConditionGood
	}
	if !model.ValidCondition(req.Condition) {
		return "invalid condition"
	}
	if req.Quantity < 0 {
		return "quantity must not be negative"
	}
	return ""
}

// List handles GET /api/equipment.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	items, err := store.ListEquipment(r.Context(), h.DB, category)
	if err != nil {
		slog.Error("failed to list equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list equipment")
		return
	}
	if items == nil {
		items = []model.Equipment{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/equipment.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := store.CreateEquipment(r.Context(), h.DB, store.EquipmentParams{
		Name:              req.Name,
		Category:          req.Category,
		Kind:              req.Kind,
		LinkedEquipmentID: req.LinkedEquipmentID,
		Quantity:          req.Quantity,
		Condition:         req.Condition,
		Description:       req.Description,
	})
	if err != nil {
		slog.Error("failed to create equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create equipment")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment created", "user", claims.Username, "equipment", item.Name, "quantity", item.Quantity)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/equipment/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	item, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get equipment")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "equipment not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/equipment/{id}.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	if err := store.UpdateEquipment(r.Context(), h.DB, id, store.EquipmentParams{
		Name:              req.Name,
		Category:          req.Category,
		Kind:              req.Kind,
		LinkedEquipmentID: req.LinkedEquipmentID,
		Condition:         req.Condition,
		Description:       req.Description,
	}); err != nil {
		slog.Error("failed to update equipment", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update equipment")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "equipment updated"})
}

// AdjustQuantity handles POST /api/equipment/{id}/adjust: restocking or
// writing off available units outside the custody flow.
func (h *EquipmentHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta must not be zero")
		return
	}

	if err := store.AdjustEquipmentQuantity(r.Context(), h.DB, id, req.Delta); err != nil {
		custodyError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment quantity adjusted", "user", claims.Username, "equipment_id", id, "delta", req.Delta)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "quantity adjusted"})
}

// Delete handles DELETE /api/equipment/{id}.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	if err := store.DeleteEquipment(r.Context(), h.DB, id); err != nil {
		custodyError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("equipment deleted", "user", claims.Username, "equipment_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "equipment deleted"})
}

// UploadImage handles PUT /api/equipment/{id}/image.
func (h *EquipmentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	item, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil || item == nil {
		jsonError(w, http.StatusNotFound, "equipment not found")
		return
	}

	result, err := imaging.Process(http.MaxBytesReader(w, r.Body, MaxImageUpload))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetEquipmentImage(r.Context(), h.DB, id, result.Data, result.MIME); err != nil {
		slog.Error("failed to store equipment image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/equipment/{id}/image.
func (h *EquipmentHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	data, mime, err := store.GetEquipmentImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get equipment image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image for this equipment")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetWaitlist handles GET /api/equipment/{id}/waitlist.
func (h *EquipmentHandler) GetWaitlist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	waitlist, err := store.GetWaitlist(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get waitlist", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get waitlist")
		return
	}
	if waitlist == nil {
		waitlist = []model.Responsibility{}
	}
	jsonResponse(w, http.StatusOK, waitlist)
}
