package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"restaurant-directory-api/auth"
	"restaurant-directory-api/config"
	"restaurant-directory-api/middleware"
	"restaurant-directory-api/notify"
	"restaurant-directory-api/routes"
	"restaurant-directory-api/services"
	"restaurant-directory-api/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs a JSON slog handler at the configured level.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

// bootstrap loads configuration and opens the migrated database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	db, err := config.OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Migrate(db); err != nil {
		closeDB(db)
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, string, error) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.StoragePublicURL)
		return store, "", err
	}
	store, err := storage.NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicURL)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.SMTPHost == "" {
		slog.Warn("SMTP_HOST not set, notifications are logged only")
		return notify.LogNotifier{Logger: slog.Default()}
	}
	return notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
}

func serve(ctx context.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	store, uploadsDir, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(newNotifier(cfg), slog.Default())
	defer dispatcher.Wait()

	creds := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	mailer := services.NewMailer(dispatcher, creds, cfg.FrontendURL)

	gin.SetMode(cfg.RouterMode())
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(slog.Default()))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler(!cfg.IsProduction()))

	err = routes.SetupRoutes(r, routes.Deps{
		DB:          db,
		Creds:       creds,
		Users:       services.NewUserService(db, creds, mailer),
		Restaurants: services.NewRestaurantService(db, store, mailer, cfg.UploadMaxBytes),
		Reviews:     services.NewReviewService(db),
		AuthLimiter: middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateLimit),
		UploadsDir:  uploadsDir,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	return nil
}
