package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tutorhub/internal/api/v1/handler"
	"tutorhub/internal/config"
	"tutorhub/internal/middleware"
	"tutorhub/internal/pubsub"
	"tutorhub/internal/repository"
	"tutorhub/internal/service"
	"tutorhub/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires repositories, services and handlers. The returned cleanup func
// releases the database pool and the Pub/Sub client.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB pool
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")
	cleanup := []func(){pool.Close}
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	// 2. Optional integrations. Nil interfaces switch the feature off.
	var signer service.ThumbnailSigner
	thumbs, err := storage.NewThumbnailStore(ctx, cfg)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Info().Msg("S3 bucket not configured; course thumbnails disabled")
	case err != nil:
		closeAll()
		return nil, nil, fmt.Errorf("init thumbnail store: %w", err)
	default:
		signer = thumbs
	}

	var publisher service.EventPublisher
	if cfg.PubSubEnrollmentTopic != "" {
		p, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		cleanup = append(cleanup, func() {
			if err := p.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close Pub/Sub client")
			}
		})
		publisher = p
	} else {
		logger.Info().Msg("PUBSUB_ENROLLMENT_TOPIC not set; enrollment events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	// 3. Repositories, services, handlers
	courseRepo := repository.NewCourseRepo(pool)
	cohortRepo := repository.NewCohortRepo(pool)
	userRepo := repository.NewUserRepo(pool)
	enrollmentRepo := repository.NewEnrollmentRepo(pool)
	dlqRepo := repository.NewDLQRepository(pool)

	resolver := service.NewCourseResolver(courseRepo, cfg.LegacyCourseAliases, logger)
	gate := service.NewAccessGate(cohortRepo, userRepo, logger)
	courseSvc := service.NewCourseService(courseRepo, resolver, signer, logger)
	enrollmentSvc := service.NewEnrollmentService(resolver, courseRepo, gate, enrollmentRepo, publisher, cfg.PubSubEnrollmentTopic, logger)
	rosterSvc := service.NewRosterService(cohortRepo, validate, logger)
	dlqSvc := service.NewDLQService(dlqRepo, logger)
	checkoutSvc := service.NewCheckoutService(service.NewStripeAPI(cfg.StripeSecretKey), enrollmentSvc, userRepo,
		cfg.StripeWebhookSecret, cfg.CheckoutReturnURL, logger)

	courseHandler := handler.NewCourseHandler(courseSvc, enrollmentSvc, logger)
	userHandler := handler.NewUserHandler(enrollmentSvc, logger)
	cohortHandler := handler.NewCohortHandler(rosterSvc, dlqSvc, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, logger)

	// 4. Middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.RegistrationPushAudience, cfg.PubSubPushServiceAccountEmail, logger)

	// 5. Routes
	r := chi.NewRouter()
	r.Use(middleware.LoggerMiddleware(logger))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/v1", func(v1 chi.Router) {
		courseHandler.RegisterRoutes(v1, authMiddleware)
		checkoutHandler.RegisterRoutes(v1, authMiddleware)
		userHandler.RegisterRoutes(v1, authMiddleware)
		cohortHandler.RegisterRoutes(v1, pubsubAuthMiddleware)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})

	return c.Handler(r), closeAll, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
