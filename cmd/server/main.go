package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/adapters/event"
	"github.com/khoahotran/devconnector/adapters/githubapi"
	httpAdapter "github.com/khoahotran/devconnector/adapters/http"
	"github.com/khoahotran/devconnector/adapters/media_storage"
	"github.com/khoahotran/devconnector/adapters/persistence"
	"github.com/khoahotran/devconnector/adapters/persistence/memory"
	"github.com/khoahotran/devconnector/internal/application/service"
	authUC "github.com/khoahotran/devconnector/internal/application/usecase/auth"
	githubUC "github.com/khoahotran/devconnector/internal/application/usecase/github"
	profileUC "github.com/khoahotran/devconnector/internal/application/usecase/profile"
	userUC "github.com/khoahotran/devconnector/internal/application/usecase/user"
	"github.com/khoahotran/devconnector/internal/config"
	"github.com/khoahotran/devconnector/internal/domain/profile"
	"github.com/khoahotran/devconnector/internal/domain/user"
	"github.com/khoahotran/devconnector/pkg/auth"
	"github.com/khoahotran/devconnector/pkg/keylock"
	"github.com/khoahotran/devconnector/pkg/logger"
	"github.com/khoahotran/devconnector/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()

	appLogger.Info("Start DevConnector API Server...", zap.String("env", cfg.App.Env), zap.String("store", cfg.Store.Driver))

	if cfg.Auth.JWTSecret == "" {
		appLogger.Fatal("JWT secret is not configured", errors.New("JWT_SECRET is empty"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg, appLogger, "devconnector-api")
	if err != nil {
		appLogger.Fatal("Cannot init tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			appLogger.Error("Failed to flush traces", err)
		}
	}()

	// Repositories
	userRepo, profileRepo, closeStore, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot open store", err, zap.String("driver", cfg.Store.Driver))
	}
	defer closeStore()

	// Redis backs the shared profile lock and the GitHub repo cache. Without it
	// locking is in-process and repos are fetched on every request.
	var locker service.Locker = keylock.New()
	var repoCache service.RepoCache
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot connect Redis", err)
		}
		defer redisClient.Close()
		locker = persistence.NewRedisLocker(redisClient, appLogger)
		repoCache = persistence.NewRedisRepoCache(redisClient, cfg.Github.CacheTTL)
	}

	var events service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		events = kafkaClient
	}

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	githubClient := githubapi.NewClient(cfg, appLogger)

	// Use Cases
	registerUseCase := authUC.NewRegisterUseCase(userRepo, jwtSvc, appLogger)
	loginUseCase := authUC.NewLoginUseCase(userRepo, jwtSvc, appLogger)
	currentUserUseCase := authUC.NewCurrentUserUseCase(userRepo)
	profileUseCase := profileUC.NewProfileUseCase(profileRepo, userRepo, locker, events, appLogger)
	githubUseCase := githubUC.NewGithubUseCase(githubClient, repoCache, appLogger)

	// HTTP Handlers
	deps := httpAdapter.RouterDeps{
		JWTService:     jwtSvc,
		AuthHandler:    httpAdapter.NewAuthHandler(registerUseCase, loginUseCase, currentUserUseCase, appLogger),
		ProfileHandler: httpAdapter.NewProfileHandler(profileUseCase, appLogger),
		GithubHandler:  httpAdapter.NewGithubHandler(githubUseCase, appLogger),
		RateLimiter:    httpAdapter.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Logger:         appLogger,
	}

	uploader, err := media_storage.NewCloudinaryAdapter(cfg, appLogger)
	switch {
	case err == nil:
		deps.UserHandler = httpAdapter.NewUserHandler(userUC.NewUploadAvatarUseCase(userRepo, uploader, appLogger), appLogger)
	case errors.Is(err, media_storage.ErrNotConfigured):
		appLogger.Info("Avatar upload disabled, Cloudinary is not configured")
	default:
		appLogger.Fatal("Failed to initialize uploader", err)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
}

// openStore connects the configured store driver and returns its repositories
// with a func that releases the connection.
func openStore(ctx context.Context, cfg config.Config, log logger.Logger) (user.Repository, profile.Repository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		dbPool, err := persistence.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return persistence.NewPostgresUserRepo(dbPool, log), persistence.NewPostgresProfileRepo(dbPool, log), dbPool.Close, nil

	case config.StoreDriverMongo:
		client, err := persistence.NewMongoClient(ctx, cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := persistence.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error("Failed to disconnect MongoDB", err)
			}
		}
		return persistence.NewMongoUserRepo(db, log), persistence.NewMongoProfileRepo(db, log), closeFn, nil

	case config.StoreDriverMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return store.Users(), store.Profiles(), func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
