package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"research-repository-api/config"
	"research-repository-api/middleware"
	"research-repository-api/routes"
	"research-repository-api/services"
	"research-repository-api/storage"
	"research-repository-api/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	logFile, logger := config.InitLogging(settings.LogFile, settings.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}

	if err := run(settings, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(settings config.Settings, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	papers, users, err := openStore(settings)
	if err != nil {
		return err
	}

	files, err := openFileStore(ctx, settings)
	if err != nil {
		return err
	}

	authService, err := services.NewAuthService(users, services.TokenConfig{
		Secret: []byte(settings.JWTSecret),
		Issuer: settings.JWTIssuer,
		TTL:    settings.TokenTTL(),
	})
	if err != nil {
		return err
	}

	if err := bootstrapAdmin(ctx, authService, settings, logger); err != nil {
		return err
	}

	limiter, err := openLimiter(ctx, settings)
	if err != nil {
		return err
	}

	if settings.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := routes.NewRouter(routes.Dependencies{
		Auth:        authService,
		Papers:      services.NewPaperService(papers, files),
		AuthLimiter: limiter,
	}, routes.Options{
		AllowedOrigins: settings.AllowedOrigins,
		TrustedProxies: settings.TrustedProxies,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			"port", settings.Port,
			"db_driver", settings.DBDriver,
			"storage_driver", settings.StorageDriver,
			"rate_limit", limiter != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("server shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(settings config.Settings) (services.PaperRepository, services.UserRepository, error) {
	if settings.DBDriver == "memory" {
		slog.Warn("using in-memory store, data is lost on restart")
		mem := store.NewMemoryStore()
		return mem, mem, nil
	}

	db, err := config.InitDB(settings)
	if err != nil {
		return nil, nil, err
	}
	gormStore := store.NewGormStore(db)
	if err := gormStore.Migrate(); err != nil {
		return nil, nil, err
	}
	return gormStore, gormStore, nil
}

func openFileStore(ctx context.Context, settings config.Settings) (services.FileStore, error) {
	if settings.StorageDriver == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  settings.MinioEndpoint,
			AccessKey: settings.MinioAccessKey,
			SecretKey: settings.MinioSecretKey,
			Bucket:    settings.MinioBucket,
			UseSSL:    settings.MinioUseSSL,
		})
	}
	return storage.NewDiskStore(settings.UploadPath)
}

// bootstrapAdmin creates the configured admin account on first start. An
// existing account with that email is left alone.
func bootstrapAdmin(ctx context.Context, auth *services.AuthService, settings config.Settings, logger *slog.Logger) error {
	if settings.AdminEmail == "" {
		return nil
	}
	admin, err := auth.CreateAdmin(ctx, settings.AdminName, settings.AdminEmail, settings.AdminPassword)
	if errors.Is(err, services.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.Info("admin account created", "user_id", admin.ID, "email", admin.Email)
	return nil
}

func openLimiter(ctx context.Context, settings config.Settings) (*middleware.FixedWindowLimiter, error) {
	client, err := config.NewRedisClient(ctx, settings)
	if err != nil || client == nil {
		return nil, err
	}
	return middleware.NewFixedWindowLimiter(client, "research:auth", settings.AuthRateLimit, settings.AuthRateWindow())
}
