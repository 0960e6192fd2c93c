package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"inventoryflow/internal/caching"
	"inventoryflow/internal/common"
	"inventoryflow/internal/config"
	"inventoryflow/internal/handlers"
	"inventoryflow/internal/jobs"
	"inventoryflow/internal/jobs/background"
	"inventoryflow/internal/logger"
	"inventoryflow/internal/mailer"
	"inventoryflow/internal/metrics"
	"inventoryflow/internal/middleware"
	"inventoryflow/internal/repositories"
	"inventoryflow/pkg/database"
)

const version = "1.0.0"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Server.AppName, cfg.Logger.Level, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, zl)
	stop()
	if code := exitCode(zl, err); code != 0 {
		os.Exit(code)
	}
}

// exitCode logs a fatal run error and flushes the logger before the process exits.
func exitCode(zl *zap.Logger, err error) int {
	if err != nil {
		zl.Error("Server exited with error", zap.Error(err))
	}
	_ = zl.Sync()
	if err != nil {
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	pool, err := database.NewPool(ctx, cfg.Postgres.URL, zl)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = caching.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, zl)
		defer redisClient.Close()
	} else {
		zl.Info("REDIS_ADDR not set, sweeps are serialised per process only")
	}

	// Create repositories
	productRepo := repositories.NewProductRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	notificationRepo := repositories.NewNotificationRepo(pool)

	var sender mailer.Sender
	if cfg.SMTP.Host != "" {
		smtpSender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return err
		}
		sender = smtpSender
	} else {
		zl.Warn("SMTP_HOST not set, low stock emails are written to the log")
		sender = mailer.NewLogSender(zl)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sweepMetrics := metrics.NewSweepMetrics(registry)

	alertSvc := jobs.NewLowStockAlertService(productRepo, userRepo, notificationRepo, sender, jobs.AlertConfig{
		Threshold:   cfg.Alerts.Threshold,
		AppName:     cfg.Server.AppName,
		SupportMail: cfg.Alerts.SupportMail,
		SendTimeout: cfg.Alerts.SendTimeout,
		Concurrency: cfg.Alerts.Concurrency,
	}, zl)

	var runnerOpts []jobs.RunnerOption
	if redisClient != nil {
		runnerOpts = append(runnerOpts, jobs.WithLocker(caching.NewRedisLocker(redisClient), jobs.DefaultSweepLockKey, cfg.Alerts.LockTTL))
	}
	runner := jobs.NewSweepRunner(alertSvc, sweepMetrics, zl, runnerOpts...)

	scheduler, err := background.NewJobScheduler(runner, cfg.Alerts.Cron, cfg.Alerts.Location, zl)
	if err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			zl.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}()

	// Create handlers
	var healthHandlers *handlers.HealthHandlers
	if redisClient != nil {
		healthHandlers = handlers.NewHealthHandlers(pool, redisClient)
	} else {
		healthHandlers = handlers.NewHealthHandlers(pool, nil)
	}
	alertHandlers := handlers.NewAlertHandlers(runner, alertSvc, zl)
	jobHandlers := handlers.NewJobHandlers(scheduler)
	productHandlers := handlers.NewProductHandlers(productRepo, cfg.Alerts.Threshold, zl)
	notificationHandlers := handlers.NewNotificationHandlers(notificationRepo, zl)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = common.HTTPErrorHandler(zl)

	// Global middleware
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.RequestLoggerWithConfig(requestLoggerConfig(zl.Named("http"))))
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	versionMiddleware := middleware.NewVersionMiddleware(cfg.Server.AppName)
	auditMiddleware := middleware.NewAuditMiddleware(zl)
	v1 := versionMiddleware.VersionRoute(e, "v1", middleware.JWTMiddleware(cfg.JWT.Secret), auditMiddleware.AuditRequest())
	adminOnly := middleware.RequireAdmin()

	// Low stock sweep
	v1.POST("/alerts/low-stock", alertHandlers.TriggerLowStockAlerts, adminOnly)
	v1.GET("/alerts/low-stock", alertHandlers.PreviewLowStock, adminOnly)
	v1.GET("/alerts/low-stock/last", alertHandlers.LastSweep, adminOnly)

	// Jobs
	v1.GET("/jobs", jobHandlers.ListJobs, adminOnly)
	v1.POST("/jobs/:name/run", jobHandlers.RunJob, adminOnly)

	// Product routes
	v1.GET("/products", productHandlers.ListProducts)
	v1.GET("/products/:id", productHandlers.GetProduct)
	v1.PUT("/products/:id/stock", productHandlers.UpdateStock, adminOnly)

	// Notification routes
	v1.GET("/notifications", notificationHandlers.ListNotifications)
	v1.PUT("/notifications/:id", notificationHandlers.MarkRead)
	v1.PUT("/notifications", notificationHandlers.MarkAllRead)
	v1.DELETE("/notifications", notificationHandlers.ClearNotifications)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		zl.Info("Server starting",
			zap.String("version", version),
			zap.String("addr", addr),
			zap.Int("low_stock_threshold", cfg.Alerts.Threshold),
			zap.String("low_stock_cron", cfg.Alerts.Cron),
			zap.String("timezone", cfg.Alerts.Location.String()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func requestLoggerConfig(zl *zap.Logger) echoMiddleware.RequestLoggerConfig {
	return echoMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				zl.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zl.Info("request", fields...)
			return nil
		},
	}
}
