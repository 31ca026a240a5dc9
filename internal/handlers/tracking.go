package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/servicelab/portal/internal/logging"
)

// Tracking returns carrier tracking data for a tracking number. Numbers
// that match one of our shipments also get their status synced.
func (h *Handlers) Tracking(w http.ResponseWriter, r *http.Request) {
	if !h.allowRate(w, r, "tracking") {
		return
	}
	if _, ok := identityOrAbort(w, r); !ok {
		return
	}

	info, err := h.shipments.Track(r.Context(), mux.Vars(r)["tracking"])
	if err != nil {
		logging.FromContext(r.Context()).Error("tracking lookup failed", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking": info})
}
