package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicelab/portal/internal/auth"
	"github.com/servicelab/portal/internal/cache"
	"github.com/servicelab/portal/internal/config"
	"github.com/servicelab/portal/internal/db"
	"github.com/servicelab/portal/internal/email"
	"github.com/servicelab/portal/internal/handlers"
	"github.com/servicelab/portal/internal/inpost"
	"github.com/servicelab/portal/internal/payments"
	"github.com/servicelab/portal/internal/ratelimit"
	"github.com/servicelab/portal/internal/services"
	"github.com/servicelab/portal/internal/storage"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Limiter       ratelimit.Limiter
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		Provider:              cfg.RateLimitProvider,
		RedisConnectionString: cfg.RedisConnectionString,
		Limit:                 cfg.RateLimitRequests,
		Window:                time.Duration(cfg.RateLimitWindowS) * time.Second,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	gateway, err := newGateway(cfg, cacheProvider, logger)
	if err != nil {
		closeLimiter(logger, limiter)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize carrier gateway: %w", err)
	}

	if !cfg.MockInpost && cfg.InpostWebhookSecret == "" {
		logger.Warn("INPOST_WEBHOOK_SECRET is not set, carrier webhooks will be accepted unverified")
	}

	labels, err := newLabelStore(startupCtx, cfg)
	if err != nil {
		closeLimiter(logger, limiter)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize label storage: %w", err)
	}

	mailer, err := email.NewProvider(email.Config{
		APIKey: cfg.ResendAPIKey,
		From:   cfg.EmailFrom,
	})
	if err != nil {
		closeLimiter(logger, limiter)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	var stripeClient *payments.Client
	if cfg.PaymentsEnabled() {
		stripeClient = payments.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.BaseURL)
	}

	shipmentStore := db.NewShipmentStore(database)
	repairStore := db.NewRepairStore(database)
	estimateStore := db.NewEstimateStore(database)

	shipmentService := services.NewShipmentService(shipmentStore, gateway, labels, cfg)
	repairService := services.NewRepairService(repairStore, mailer, cfg.BaseURL)
	estimateService := services.NewEstimateService(estimateStore, repairStore, stripeClient)

	h, err := handlers.New(handlers.Dependencies{
		Config:    cfg,
		Gateway:   gateway,
		Limiter:   limiter,
		Verifier:  auth.NewVerifier(cfg.AuthJWTSecret),
		Shipments: shipmentService,
		Repairs:   repairService,
		Estimates: estimateService,
		Stripe:    stripeClient,
		Logger:    logger,
	})
	if err != nil {
		closeLimiter(logger, limiter)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Limiter:       limiter,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Limiter != nil {
		closeLimiter(a.Logger, a.Limiter)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// newGateway picks the carrier implementation once at startup. Everything
// downstream only sees the Gateway interface.
func newGateway(cfg *config.Config, cacheProvider cache.Provider, logger *slog.Logger) (inpost.Gateway, error) {
	if cfg.MockInpost {
		logger.Info("using mock carrier gateway")
		gateway, err := inpost.NewMockGateway()
		if err != nil {
			return nil, err
		}
		return gateway, nil
	}

	client := inpost.NewClient(cfg.InpostAPIURL, cfg.InpostToken, cfg.InpostOrgID)
	gateway, err := inpost.NewLiveGateway(client, cacheProvider, logger.With("component", "inpost_gateway"))
	if err != nil {
		return nil, err
	}
	return gateway, nil
}

func newLabelStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.LabelStorageProvider {
	case "s3":
		store, err := storage.NewS3Store(ctx, cfg.LabelBucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if strings.ToLower(strings.TrimSpace(cfg.LogFormat)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel,
	}))
}

func closeLimiter(logger *slog.Logger, limiter ratelimit.Limiter) {
	if err := limiter.Close(); err != nil && logger != nil {
		logger.Warn("failed to close rate limiter", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
