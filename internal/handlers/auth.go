package handlers

import (
	"net/http"

	"github.com/servicelab/portal/internal/auth"
	"github.com/servicelab/portal/internal/logging"
)

// RequireUser verifies the bearer token and stores the identity in the
// request context.
func (h *Handlers) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.verifier.FromRequest(r)
		if err != nil {
			logging.FromContext(r.Context()).Debug("rejected unauthenticated request", "error", err)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin runs after RequireUser and gates admin-only routes.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok || !identity.Admin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityOrAbort(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return identity, ok
}
