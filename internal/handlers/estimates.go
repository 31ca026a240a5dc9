package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/servicelab/portal/internal/services"
)

// AdminCreateEstimate attaches a cost estimate to a repair.
func (h *Handlers) AdminCreateEstimate(w http.ResponseWriter, r *http.Request) {
	repairID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req services.CreateEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	estimate, err := h.estimates.CreateEstimate(r.Context(), repairID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"estimate": estimate})
}

func (h *Handlers) ListEstimates(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	repairID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	estimates, err := h.estimates.ListEstimates(r.Context(), identity.UserID, repairID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"estimates": estimates})
}

// DecideEstimate accepts or rejects a pending estimate.
func (h *Handlers) DecideEstimate(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req struct {
		Accept bool `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	estimate, err := h.estimates.Decide(r.Context(), identity.UserID, id, req.Accept)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"estimate": estimate})
}

// PayEstimate starts a Stripe checkout for an accepted estimate and
// returns the session URL.
func (h *Handlers) PayEstimate(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	checkoutURL, err := h.estimates.Pay(r.Context(), identity.UserID, identity.Email, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": checkoutURL})
}
