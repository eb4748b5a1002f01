package handler

import (
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DocumentHandler struct {
	service service.DocumentService
}

func NewDocumentHandler(s service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: s}
}

func (h *DocumentHandler) Post(c *fiber.Ctx) error {
	var req service.PostDocumentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	doc, err := h.service.Post(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Document posted", "data": doc})
}

func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	doc, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": doc})
}

func (h *DocumentHandler) Void(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	doc, err := h.service.Void(c.UserContext(), id, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Document voided", "data": doc})
}
