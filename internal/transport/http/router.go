package http

import (
	"github.com/composedeck/backend/internal/config"
	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/transport/http/handlers"
	httpmw "github.com/composedeck/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type RouterConfig struct {
	Config      *config.Config
	Logger      *logger.Logger
	Deployments ports.DeploymentService
	Status      ports.StatusService
	Containers  ports.ContainerService
	Manifests   ports.ManifestService
	System      ports.SystemService
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	deploymentHandler := handlers.NewDeploymentHandler(cfg.Deployments, cfg.Status, cfg.Logger)
	containerHandler := handlers.NewContainerHandler(cfg.Containers, cfg.Logger)
	manifestHandler := handlers.NewManifestHandler(cfg.Manifests, cfg.Logger)
	systemHandler := handlers.NewSystemHandler(cfg.System, cfg.Logger)

	api := app.Group("/api/v1", httpmw.AdminAuth(cfg.Config))

	// Deployment routes
	deployments := api.Group("/deployments")
	deployments.Post("/", deploymentHandler.Deploy)
	deployments.Get("/", deploymentHandler.ListHistory)
	deployments.Get("/active", deploymentHandler.ListActive)
	deployments.Post("/stop", deploymentHandler.Stop)
	deployments.Get("/:id/status", deploymentHandler.GetStatus)

	// Container routes
	containers := api.Group("/containers")
	containers.Post("/:id/stop", containerHandler.Stop)
	containers.Post("/:id/start", containerHandler.Start)
	containers.Get("/:id/logs", containerHandler.Logs)

	// Manifest routes
	manifests := api.Group("/manifests")
	manifests.Get("/", manifestHandler.List)
	manifests.Get("/content", manifestHandler.Read)
	manifests.Put("/content", manifestHandler.Save)
	manifests.Delete("/", manifestHandler.Delete)
	api.Get("/systems", manifestHandler.SystemTypes)

	// System routes
	system := api.Group("/system")
	system.Get("/info", systemHandler.Info)
	system.Get("/docker-stats", systemHandler.DockerStats)
}
