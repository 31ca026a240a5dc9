package handlers

import (
	"encoding/json"
	"net/http"

	stripe "github.com/stripe/stripe-go/v84"

	"github.com/servicelab/portal/internal/logging"
)

// StripeWebhook marks estimates paid when their checkout session
// completes. Other event types are acknowledged and ignored.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if h.stripe == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	event, err := h.stripe.ReadWebhookEvent(r)
	if err != nil {
		logger.Warn("rejected stripe webhook", "error", err)
		writeError(w, http.StatusBadRequest, "invalid webhook")
		return
	}

	if event.Type != "checkout.session.completed" {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		logger.Error("failed to decode checkout session", "error", err)
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	if err := h.estimates.MarkPaid(r.Context(), session.ID); err != nil {
		logger.Error("failed to mark estimate paid", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
