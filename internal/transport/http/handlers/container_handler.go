package handlers

import (
	"errors"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/core/services"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type ContainerHandler struct {
	containers ports.ContainerService
	logger     *logger.Logger
}

func NewContainerHandler(containers ports.ContainerService, logger *logger.Logger) *ContainerHandler {
	return &ContainerHandler{containers: containers, logger: logger}
}

func (h *ContainerHandler) Stop(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.containers.Stop(c.UserContext(), id); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ContainerActionResponse{Success: true, Message: "container " + id + " stopped"})
}

func (h *ContainerHandler) Start(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.containers.Start(c.UserContext(), id); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ContainerActionResponse{Success: true, Message: "container " + id + " started"})
}

func (h *ContainerHandler) Logs(c *fiber.Ctx) error {
	id := c.Params("id")
	logs, err := h.containers.Logs(c.UserContext(), id, c.QueryInt("tail", 0))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ContainerLogsResponse{ContainerID: id, Logs: logs})
}

func (h *ContainerHandler) writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrContainerInvalidID) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
}
