package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/laocinema/lao-cinema-api/docs" // Swagger docs (generated)
	"github.com/laocinema/lao-cinema-api/internal/activity"
	"github.com/laocinema/lao-cinema-api/internal/auth"
	"github.com/laocinema/lao-cinema-api/internal/authz"
	"github.com/laocinema/lao-cinema-api/internal/catalog"
	"github.com/laocinema/lao-cinema-api/internal/config"
	"github.com/laocinema/lao-cinema-api/internal/database"
	"github.com/laocinema/lao-cinema-api/internal/email"
	httpServer "github.com/laocinema/lao-cinema-api/internal/http"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/ratelimit"
	"github.com/laocinema/lao-cinema-api/internal/storage"
	"github.com/laocinema/lao-cinema-api/internal/tmdb"
	"github.com/laocinema/lao-cinema-api/internal/user"
)

// @title           Lao Cinema API
// @version         1.0
// @description     Catalog, accounts and viewing activity for the Lao Cinema streaming platform.

// @contact.name   Lao Cinema
// @contact.email  dev@laocinema.com

// @host      localhost:3001
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

const sessionPruneInterval = time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(cfg.Database.URL(), logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	files, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix)
	if err != nil {
		return fmt.Errorf("failed to initialize upload storage: %w", err)
	}

	pasetoService, err := auth.NewPasetoService(cfg.Auth.PasetoKey)
	if err != nil {
		return fmt.Errorf("failed to initialize PASETO service: %w", err)
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return fmt.Errorf("failed to initialize authorization: %w", err)
	}

	// Repositories
	userRepo := user.NewRepository(db)
	sessionRepo := auth.NewRepository(db)
	passwordResetRepo := auth.NewPasswordResetRepository(redisClient)
	activityRepo := activity.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)

	// Services
	authService := auth.NewService(
		userRepo,
		sessionRepo,
		passwordResetRepo,
		pasetoService,
		email.NewService(cfg.Email, logger),
		logger,
		auth.Options{
			SessionDuration:   cfg.Auth.SessionDuration,
			MinPasswordLength: cfg.Auth.MinPasswordLength,
		},
	)
	activityService := activity.NewService(activityRepo, logger, cfg.Rental.Duration)
	catalogService := catalog.NewService(catalogRepo, files, logger)
	syncService := catalog.NewSyncService(catalogService, tmdb.NewClient(cfg.TMDB, logger), logger)

	if cfg.TMDB.APIKey == "" {
		logger.Warn("TMDB_API_KEY not set, tmdb import and sync will fail")
	}

	router := httpServer.NewRouter(cfg,
		httpServer.Handlers{
			Auth:     auth.NewHandler(authService, ratelimit.NewLimiter(redisClient)),
			Activity: activity.NewHandler(activityService),
			Catalog:  catalog.NewHandler(catalogService, syncService),
			Admin:    user.NewAdminHandler(userRepo),
		},
		httpServer.Guards{
			Auth:  auth.NewMiddleware(authService),
			Authz: authz.NewMiddleware(enforcer),
		},
		httpServer.Uploads{Dir: files.Dir(), Prefix: files.Prefix()},
		logger,
	)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	go pruneSessions(ctx, authService, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		// let queued verification and reset emails go out
		authService.Wait()
	}

	return nil
}

// pruneSessions deletes expired sessions until ctx is done.
func pruneSessions(ctx context.Context, svc *auth.Service, logger *logging.Logger) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PruneExpiredSessions(ctx)
			if err != nil {
				logger.Warn("failed to prune sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions pruned", "count", n)
			}
		}
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
