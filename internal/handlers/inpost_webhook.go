package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/servicelab/portal/internal/logging"
	"github.com/servicelab/portal/internal/services"
)

// InpostWebhook ingests carrier status pushes. The body is verified with
// HMAC-SHA256 against the x-inpost-signature header; when no webhook
// secret is configured verification is skipped (a warning is logged at
// startup). Processed events always answer {ok:true}.
func (h *Handlers) InpostWebhook(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if secret := h.config.InpostWebhookSecret; secret != "" {
		if !validSignature(body, r.Header.Get("x-inpost-signature"), secret) {
			logger.Warn("carrier webhook signature mismatch")
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		logger.Error("carrier webhook body is not valid JSON", "error", err)
		writeError(w, http.StatusInternalServerError, "invalid payload")
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Error("carrier webhook body has unexpected shape", "error", err)
		writeError(w, http.StatusInternalServerError, "invalid payload")
		return
	}
	event.Raw = raw

	if err := h.shipments.HandleWebhookEvent(r.Context(), event); err != nil {
		logger.Error("failed to process carrier webhook", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func validSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
