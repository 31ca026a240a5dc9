// Package handlers provides the portal's HTTP request handlers.
package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/servicelab/portal/internal/auth"
	"github.com/servicelab/portal/internal/config"
	"github.com/servicelab/portal/internal/inpost"
	"github.com/servicelab/portal/internal/payments"
	"github.com/servicelab/portal/internal/ratelimit"
	"github.com/servicelab/portal/internal/services"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

type Handlers struct {
	config    *config.Config
	gateway   inpost.Gateway
	limiter   ratelimit.Limiter
	verifier  *auth.Verifier
	shipments *services.ShipmentService
	repairs   *services.RepairService
	estimates *services.EstimateService
	stripe    *payments.Client
	logger    *slog.Logger
}

type Dependencies struct {
	Config    *config.Config
	Gateway   inpost.Gateway
	Limiter   ratelimit.Limiter
	Verifier  *auth.Verifier
	Shipments *services.ShipmentService
	Repairs   *services.RepairService
	Estimates *services.EstimateService
	Stripe    *payments.Client
	Logger    *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("handlers dependencies: gateway is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("handlers dependencies: limiter is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}
	if deps.Shipments == nil {
		return nil, fmt.Errorf("handlers dependencies: shipments service is required")
	}
	if deps.Repairs == nil {
		return nil, fmt.Errorf("handlers dependencies: repairs service is required")
	}
	if deps.Estimates == nil {
		return nil, fmt.Errorf("handlers dependencies: estimates service is required")
	}

	return &Handlers{
		config:    deps.Config,
		gateway:   deps.Gateway,
		limiter:   deps.Limiter,
		verifier:  deps.Verifier,
		shipments: deps.Shipments,
		repairs:   deps.Repairs,
		estimates: deps.Estimates,
		stripe:    deps.Stripe,
		logger:    logger,
	}, nil
}

// Health responds to load balancer health checks.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
