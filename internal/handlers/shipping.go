package handlers

import (
	"net/http"

	"github.com/servicelab/portal/internal/inpost"
	"github.com/servicelab/portal/internal/logging"
	"github.com/servicelab/portal/internal/ratelimit"
	"github.com/servicelab/portal/internal/validate"
)

// allowRate applies the fixed-window limiter for a public endpoint. On
// limiter backend failures the request is allowed through.
func (h *Handlers) allowRate(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	key := ratelimit.Key(endpoint, clientIP(r))
	allowed, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		logging.FromContext(r.Context()).Warn("rate limiter failed, allowing request", "error", err)
		return true
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	return true
}

// ShippingMethods lists the carrier's service options, featured first.
func (h *Handlers) ShippingMethods(w http.ResponseWriter, r *http.Request) {
	if !h.allowRate(w, r, "shipping-methods") {
		return
	}

	methods, err := h.gateway.ListMethods(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list shipping methods", "error", err)
		writeError(w, http.StatusBadGateway, "carrier unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": methods})
}

// PickupPoints searches lockers and partner points near a query or a
// coordinate pair.
func (h *Handlers) PickupPoints(w http.ResponseWriter, r *http.Request) {
	if !h.allowRate(w, r, "pickup-points") {
		return
	}

	params := r.URL.Query()
	query := inpost.PointQuery{
		Query: validate.SanitizeQuery(params.Get("q")),
		Type:  validate.SanitizeQuery(params.Get("type")),
	}
	if lat, ok := validate.ParseNumber(params.Get("lat")); ok {
		if lng, okLng := validate.ParseNumber(params.Get("lng")); okLng {
			query.Lat = &lat
			query.Lng = &lng
		}
	}

	points, err := h.gateway.SearchPoints(r.Context(), query)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to search pickup points", "error", err)
		writeError(w, http.StatusBadGateway, "carrier unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}
