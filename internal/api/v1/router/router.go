package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/heic2pdf/backend/docs"
	"github.com/heic2pdf/backend/internal/api/v1/handler"
	"github.com/heic2pdf/backend/internal/bootstrap"
	"github.com/heic2pdf/backend/internal/config"
	"github.com/heic2pdf/backend/internal/convertapi"
	"github.com/heic2pdf/backend/internal/middleware"
	"github.com/heic2pdf/backend/internal/repository"
	"github.com/heic2pdf/backend/internal/service"
	"github.com/heic2pdf/backend/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
)

// New wires the API on top of an open pool. The returned Billing must be closed by the caller.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (http.Handler, *bootstrap.Billing, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	billing, err := bootstrap.NewBilling(ctx, cfg, pool, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:  cfg.S3URL,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		billing.Close()
		return nil, nil, err
	}
	converter := convertapi.New(cfg.ConvertAPIBaseURL, cfg.ConvertAPISecret, cfg.ConvertAPITimeout)
	if cfg.ConvertAPISecret == "" {
		logger.Warn().Msg("CONVERTAPI_SECRET not set; conversions will fail")
	}

	subSvc := service.NewSubscriptionService(billing.Subs, billing.Providers, billing.Reconciler, billing.Resolver, logger, billing.Options)
	convSvc := service.NewConversionService(
		billing.Resolver,
		billing.Ledger,
		repository.NewConversionRepo(pool),
		converter,
		store,
		service.ConversionConfig{MaxUploadBytes: cfg.MaxUploadSizeBytes(), DownloadURLTTL: cfg.DownloadURLTTL},
		logger,
		billing.Options,
	)

	usageHandler := handler.NewUsageHandler(billing.Resolver, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(billing.Resolver, subSvc, logger)
	conversionHandler := handler.NewConversionHandler(convSvc, cfg.MaxUploadSizeBytes(), logger)
	webhookHandler := handler.NewWebhookHandler(billing.Providers, billing.Reconciler, logger)
	dlqHandler := handler.NewDLQHandler(service.NewDLQService(repository.NewDLQRepository(pool), logger), logger)
	healthHandler := handler.NewHealthHandler(pool)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.DLQEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	usageHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	conversionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	webhookHandler.RegisterRoutes(apiV1Mux)
	dlqHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	healthHandler.RegisterRoutes(mux)

	mux.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
		if err != nil {
			http.Error(w, "swagger doc unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})

	// Redirect /api/* to /v1/* for older clients
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusPermanentRedirect)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), billing, nil
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
