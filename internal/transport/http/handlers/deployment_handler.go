package handlers

import (
	"errors"
	"strings"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/core/services"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

const historyLimit = 100

type DeploymentHandler struct {
	deployments ports.DeploymentService
	status      ports.StatusService
	logger      *logger.Logger
}

func NewDeploymentHandler(deployments ports.DeploymentService, status ports.StatusService, logger *logger.Logger) *DeploymentHandler {
	return &DeploymentHandler{deployments: deployments, status: status, logger: logger}
}

func (h *DeploymentHandler) Deploy(c *fiber.Ctx) error {
	var req dto.DeployRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("deployment_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("deployment_request", "file_path", req.FilePath)
	job, err := h.deployments.Submit(c.UserContext(), req.FilePath)
	if err != nil {
		return h.writeDeployError(c, "deployment_submit", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.JobToDeployResponse(job))
}

func (h *DeploymentHandler) GetStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	view, err := h.status.GetStatus(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: "job not found",
			})
		}
		h.logger.Errorw("deployment_status_failed", "job_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(view)
}

func (h *DeploymentHandler) ListHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", historyLimit)
	entries, err := h.deployments.History(c.UserContext(), limit)
	if err != nil {
		h.logger.Errorw("deployment_history_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.LogsToResponse(entries))
}

func (h *DeploymentHandler) ListActive(c *fiber.Ctx) error {
	return c.JSON(dto.JobsToActiveResponse(h.deployments.ActiveJobs()))
}

func (h *DeploymentHandler) Stop(c *fiber.Ctx) error {
	var req dto.DeployRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("deployment_stop_request", "file_path", req.FilePath)
	out, err := h.deployments.Stop(c.UserContext(), req.FilePath)
	if err != nil {
		return h.writeDeployError(c, "deployment_stop", err)
	}
	return c.JSON(dto.StopResponse{Message: "stack stopped", Output: out})
}

func (h *DeploymentHandler) writeDeployError(c *fiber.Ctx, event string, err error) error {
	switch {
	case errors.Is(err, services.ErrManifestNotFound):
		h.logger.Warnw(event+"_not_found", "error", err)
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "manifest not found",
		})
	case errors.Is(err, services.ErrToolUnavailable):
		h.logger.Errorw(event+"_tool_unavailable", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "docker compose is not available",
		})
	default:
		h.logger.Errorw(event+"_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
}
