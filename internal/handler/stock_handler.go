package handler

import (
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StockHandler struct {
	service service.StockService
}

func NewStockHandler(s service.StockService) *StockHandler {
	return &StockHandler{service: s}
}

// GetStocks handles GET /stock?branch_id=&alerts=true, or a single lookup
// when product_id is given as well.
func (h *StockHandler) GetStocks(c *fiber.Ctx) error {
	branchID, err := queryUUID(c, "branch_id")
	if err != nil {
		return err
	}
	if branchID == nil {
		return badRequest("branch_id is required")
	}

	productID, err := queryUUID(c, "product_id")
	if err != nil {
		return err
	}
	if productID != nil {
		entry, err := h.service.Get(c.UserContext(), *branchID, *productID, c.Query("location"))
		if err != nil {
			return err
		}
		if entry == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stock entry not found", "code": "NOT_FOUND"})
		}
		return c.JSON(fiber.Map{"data": entry})
	}

	entries, err := h.service.ListByBranch(c.UserContext(), *branchID, c.QueryBool("alerts", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries, "count": len(entries)})
}

func (h *StockHandler) GetStock(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	entry, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entry})
}

func (h *StockHandler) CreateStock(c *fiber.Ctx) error {
	var req service.CreateStockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.service.Create(c.UserContext(), &req, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Stock entry created", "data": entry})
}

func (h *StockHandler) UpdateStock(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateStockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.service.Update(c.UserContext(), id, &req, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Stock entry updated", "data": entry})
}

func (h *StockHandler) AdjustStock(c *fiber.Ctx) error {
	var req service.AdjustStockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.service.AdjustQuantity(c.UserContext(), &req, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": entry})
}

func (h *StockHandler) DeleteStock(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Stock entry deleted"})
}
