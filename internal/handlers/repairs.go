package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/servicelab/portal/internal/logging"
	"github.com/servicelab/portal/internal/models"
	"github.com/servicelab/portal/internal/services"
)

func (h *Handlers) CreateRepair(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	var req services.CreateRepairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repair, err := h.repairs.CreateRepair(r.Context(), identity.UserID, req)
	if err != nil {
		logging.FromContext(r.Context()).Error("repair creation failed", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"repair": repair})
}

func (h *Handlers) ListRepairs(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	repairs, err := h.repairs.ListRepairs(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repairs": repairs})
}

func (h *Handlers) GetRepair(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	repair, err := h.repairs.GetRepair(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repair": repair})
}

// AdminListRepairs lists every repair for back-office staff.
func (h *Handlers) AdminListRepairs(w http.ResponseWriter, r *http.Request) {
	repairs, err := h.repairs.ListAllRepairs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repairs": repairs})
}

// AdminUpdateRepairStatus moves a repair through its lifecycle.
func (h *Handlers) AdminUpdateRepairStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req struct {
		Status         string `json:"status"`
		TrackingNumber string `json:"tracking_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	repair, err := h.repairs.UpdateStatus(r.Context(), id, models.RepairStatus(req.Status), req.TrackingNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repair": repair})
}
