package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/composedeck/backend/internal/config"
	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/core/services"
	"github.com/composedeck/backend/internal/infrastructure/db"
	"github.com/composedeck/backend/internal/infrastructure/docker"
	"github.com/composedeck/backend/internal/infrastructure/filestore"
	"github.com/composedeck/backend/internal/infrastructure/hoststats"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/infrastructure/metrics"
	"github.com/composedeck/backend/internal/infrastructure/process"
	transporthttp "github.com/composedeck/backend/internal/transport/http"
	httpmw "github.com/composedeck/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func main() {
	configPath := os.Getenv("COMPOSEDECK_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "../config/config.yaml"
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	database, auditLog := openAuditLog(cfg, log)

	manifestRepo, err := filestore.NewManifestRepository(cfg.Manifests.DataDir, log.Named("manifests"))
	if err != nil {
		log.Fatalf("failed to open manifest directory: %v", err)
	}
	if err := manifestRepo.EnsureDirs(cfg.Manifests.SystemTypes); err != nil {
		log.Fatalf("failed to prepare manifest directories: %v", err)
	}

	runtime, err := docker.New(cfg.Docker.Host)
	if err != nil {
		log.Fatalf("failed to create docker client: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := runtime.Ping(pingCtx); err != nil {
		log.Warnf("docker engine is not reachable; container routes will fail until it is: %v", err)
	}
	cancelPing()

	var recorder *metrics.Recorder
	if cfg.Features.EnableMetrics {
		recorder = metrics.New(prometheus.DefaultRegisterer)
	}

	runner := process.NewRunner()
	store := services.NewJobStore()
	probe := services.NewComposeProbeService(runner, cfg.Deploy.ProbeTimeout, log.Named("probe"))
	engine := services.NewDeploymentEngine(services.DeploymentEngineConfig{
		Store:           store,
		Probe:           probe,
		Runner:          runner,
		Manifests:       manifestRepo,
		AuditLog:        auditLog,
		Metrics:         deploymentMetrics(recorder),
		Logger:          log.Named("deploy"),
		InitialProgress: cfg.Deploy.InitialProgress,
		ProgressStep:    cfg.Deploy.ProgressStep,
		ProgressCeiling: cfg.Deploy.ProgressCeiling,
		StopTimeout:     cfg.Deploy.StopTimeout,
	})
	sweeper := services.NewSweeper(store, cfg.Deploy.Retention, cfg.Deploy.SweepInterval, log.Named("sweeper")).
		WithHistory(auditLog, cfg.Deploy.HistoryRetention)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          httpmw.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token",
		AllowMethods: "GET, POST, HEAD, PUT, DELETE",
	}))

	app.Use(httpmw.RequestID(cfg.Features.RequestIDHeader))
	if cfg.Features.EnableRequestLogging {
		var rec httpmw.RequestRecorder
		if recorder != nil {
			rec = recorder
		}
		app.Use(httpmw.AccessLog(log.Named("http"), rec))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if recorder != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Config:      cfg,
		Logger:      log,
		Deployments: engine,
		Status:      services.NewStatusQueryService(store, statusHistory(cfg, auditLog)),
		Containers:  services.NewContainerService(runtime, log.Named("containers")),
		Manifests:   services.NewManifestService(manifestRepo, cfg.Manifests.SystemTypes, log.Named("manifests")),
		System: services.NewSystemInfoService(services.SystemServiceConfig{
			Probe:      probe,
			Runtime:    runtime,
			Host:       hoststats.NewCollector(500 * time.Millisecond),
			Mirrors:    cfg.System.Mirrors,
			AppVersion: cfg.System.AppVersion,
			Logger:     log.Named("system"),
		}),
	})

	addr := cfg.Server.Address()
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()
	log.Infof("server started on %s", addr)

	gracefulShutdown(app, log, func(ctx context.Context) {
		stopSweeper()
		if err := engine.Wait(ctx); err != nil {
			log.Warnw("deployments_still_running_at_shutdown", "active", len(engine.ActiveJobs()))
		}
		if err := runtime.Close(); err != nil {
			log.Errorf("failed to close docker client: %v", err)
		}
		if database != nil {
			if err := db.Close(database); err != nil {
				log.Errorf("failed to close database connection: %v", err)
			}
		}
	})
}

// openAuditLog returns a nil *gorm.DB for the memory driver.
func openAuditLog(cfg *config.Config, log *logger.Logger) (*gorm.DB, ports.DeploymentLogRepository) {
	if cfg.Database.Driver == "memory" {
		log.Warn("deployment history is kept in memory and lost on restart")
		return nil, db.NewMemoryLogRepository(log.Named("history"))
	}

	database, err := db.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Infow("database connection established", "driver", cfg.Database.Driver)

	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Info("database migrations completed")

	return database, db.NewDeploymentLogRepository(database, log.Named("history"))
}

// statusHistory returns nil unless status polls may fall back to the log.
func statusHistory(cfg *config.Config, auditLog ports.DeploymentLogRepository) ports.DeploymentLogRepository {
	if !cfg.Deploy.StatusFromHistory {
		return nil
	}
	return auditLog
}

func deploymentMetrics(r *metrics.Recorder) ports.DeploymentMetrics {
	if r == nil {
		return nil
	}
	return r
}

func gracefulShutdown(app *fiber.App, log *logger.Logger, cleanup func(ctx context.Context)) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	cleanup(ctx)

	log.Info("server exited gracefully")
}
