package handlers

import (
	"errors"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/core/services"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type ManifestHandler struct {
	manifests ports.ManifestService
	logger    *logger.Logger
}

func NewManifestHandler(manifests ports.ManifestService, logger *logger.Logger) *ManifestHandler {
	return &ManifestHandler{manifests: manifests, logger: logger}
}

func (h *ManifestHandler) List(c *fiber.Ctx) error {
	files, err := h.manifests.List(c.UserContext())
	if err != nil {
		h.logger.Errorw("manifest_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.ManifestListResponse{Total: len(files), Files: files})
}

func (h *ManifestHandler) Read(c *fiber.Ctx) error {
	content, err := h.manifests.Read(c.UserContext(), c.Query("path"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(content)
}

func (h *ManifestHandler) Save(c *fiber.Ctx) error {
	var req dto.SaveManifestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}
	if err := h.manifests.Save(c.UserContext(), req.FilePath, req.Content); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Message: "manifest saved"})
}

func (h *ManifestHandler) Delete(c *fiber.Ctx) error {
	if err := h.manifests.Delete(c.UserContext(), c.Query("path")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Message: "manifest deleted"})
}

func (h *ManifestHandler) SystemTypes(c *fiber.Ctx) error {
	return c.JSON(dto.SystemTypesResponse{SystemTypes: h.manifests.SystemTypes()})
}

func (h *ManifestHandler) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrManifestNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "manifest not found"})
	case errors.Is(err, services.ErrManifestOutsideRoot),
		errors.Is(err, services.ErrInvalidManifest),
		errors.Is(err, services.ErrManifestInvalidName):
		h.logger.Warnw("manifest_request_rejected", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		h.logger.Errorw("manifest_request_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}
