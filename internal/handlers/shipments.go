package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/servicelab/portal/internal/logging"
	"github.com/servicelab/portal/internal/services"
)

// CreateShipment books a carrier shipment for an order. A repeated call
// for the same order returns the existing shipment with 200 instead of
// booking again.
func (h *Handlers) CreateShipment(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	var req services.CreateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.shipments.CreateShipment(r.Context(), identity.UserID, req)
	if err != nil {
		logging.FromContext(r.Context()).Error("shipment creation failed", "error", err)
		writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"shipment": result.Shipment,
		"reused":   result.Reused,
	})
}

func (h *Handlers) ListShipments(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	shipments, err := h.shipments.ListShipments(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": shipments})
}

func (h *Handlers) GetShipment(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	shipment, err := h.shipments.GetShipment(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipment": shipment})
}

// ShipmentLabel serves the label PDF inline.
func (h *Handlers) ShipmentLabel(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	body, err := h.shipments.Label(r.Context(), identity.UserID, id)
	if err != nil {
		logging.FromContext(r.Context()).Error("label retrieval failed", "shipment_id", id, "error", err)
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "label-"+id.String()+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
