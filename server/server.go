package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/servicelab/portal/internal/config"
	"github.com/servicelab/portal/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/webhooks/inpost", h.InpostWebhook).Methods("POST").Name("webhooks.inpost")
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")

	// Public carrier lookups, rate limited per client inside the handlers.
	r.HandleFunc("/api/shipping/methods", h.ShippingMethods).Methods("GET").Name("shipping.methods")
	r.HandleFunc("/api/shipping/points", h.PickupPoints).Methods("GET").Name("shipping.points")

	// Authenticated customer routes.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireUser)
	api.HandleFunc("/shipments", h.CreateShipment).Methods("POST").Name("shipments.create")
	api.HandleFunc("/shipments", h.ListShipments).Methods("GET").Name("shipments.list")
	api.HandleFunc("/shipments/{id}", h.GetShipment).Methods("GET").Name("shipments.get")
	api.HandleFunc("/shipments/{id}/label", h.ShipmentLabel).Methods("GET").Name("shipments.label")
	api.HandleFunc("/tracking/{tracking}", h.Tracking).Methods("GET").Name("tracking")
	api.HandleFunc("/repairs", h.CreateRepair).Methods("POST").Name("repairs.create")
	api.HandleFunc("/repairs", h.ListRepairs).Methods("GET").Name("repairs.list")
	api.HandleFunc("/repairs/{id}", h.GetRepair).Methods("GET").Name("repairs.get")
	api.HandleFunc("/repairs/{id}/estimates", h.ListEstimates).Methods("GET").Name("estimates.list")
	api.HandleFunc("/estimates/{id}/decision", h.DecideEstimate).Methods("POST").Name("estimates.decide")
	api.HandleFunc("/estimates/{id}/pay", h.PayEstimate).Methods("POST").Name("estimates.pay")

	// Back-office routes, admin claim required.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.RequireAdmin)
	admin.HandleFunc("/repairs", h.AdminListRepairs).Methods("GET").Name("admin.repairs.list")
	admin.HandleFunc("/repairs/{id}/status", h.AdminUpdateRepairStatus).Methods("POST").Name("admin.repairs.status")
	admin.HandleFunc("/repairs/{id}/estimates", h.AdminCreateEstimate).Methods("POST").Name("admin.estimates.create")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})

	return r
}
