package handlers

import (
	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type SystemHandler struct {
	system ports.SystemService
	logger *logger.Logger
}

func NewSystemHandler(system ports.SystemService, logger *logger.Logger) *SystemHandler {
	return &SystemHandler{system: system, logger: logger}
}

func (h *SystemHandler) Info(c *fiber.Ctx) error {
	info, err := h.system.Info(c.UserContext())
	if err != nil {
		h.logger.Errorw("system_info_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(info)
}

func (h *SystemHandler) DockerStats(c *fiber.Ctx) error {
	stats, err := h.system.DockerStats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(stats)
}
