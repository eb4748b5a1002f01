package handler

import (
	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

func (h *CatalogHandler) CreateBranch(c *fiber.Ctx) error {
	var req service.CreateBranchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	branch, err := h.service.CreateBranch(c.UserContext(), &req, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Branch created", "data": branch})
}

func (h *CatalogHandler) UpdateBranch(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateBranchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	branch, err := h.service.UpdateBranch(c.UserContext(), id, &req, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Branch updated", "data": branch})
}

func (h *CatalogHandler) GetBranch(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	branch, err := h.service.GetBranch(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": branch})
}

func (h *CatalogHandler) ListBranches(c *fiber.Ctx) error {
	branches, err := h.service.ListBranches(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": branches})
}

func (h *CatalogHandler) SetPrimaryBranch(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	branch, err := h.service.SetPrimaryBranch(c.UserContext(), id, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Primary branch set", "data": branch})
}

func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CreateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.service.CreateCategory(c.UserContext(), &req, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Category created", "data": category})
}

func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.service.UpdateCategory(c.UserContext(), id, &req, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Category updated", "data": category})
}

func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Category deleted"})
}

func (h *CatalogHandler) CategoryTree(c *fiber.Ctx) error {
	tree, err := h.service.CategoryTree(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tree})
}

func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.service.CreateProduct(c.UserContext(), &req, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateProductRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.service.UpdateProduct(c.UserContext(), id, &req, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": product})
}

// GetProductByBarcode handles GET /products/barcode/:code
func (h *CatalogHandler) GetProductByBarcode(c *fiber.Ctx) error {
	product, err := h.service.GetProductByBarcode(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": product})
}

func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *CatalogHandler) CreateCounterparty(c *fiber.Ctx) error {
	var req service.CounterpartyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cp, err := h.service.CreateCounterparty(c.UserContext(), &req, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Counterparty created", "data": cp})
}

func (h *CatalogHandler) UpdateCounterparty(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateCounterpartyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cp, err := h.service.UpdateCounterparty(c.UserContext(), id, &req, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Counterparty updated", "data": cp})
}

// GetCounterparty handles GET /counterparties/:id, and ?tax_id= lookups on /counterparties.
func (h *CatalogHandler) GetCounterparty(c *fiber.Ctx) error {
	if taxID := c.Query("tax_id"); taxID != "" {
		cp, err := h.service.GetCounterpartyByTaxID(c.UserContext(), taxID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": cp})
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	cp, err := h.service.GetCounterparty(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cp})
}

func (h *CatalogHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.service.CreateUser(c.UserContext(), &req, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User created", "data": user})
}

func (h *CatalogHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.service.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}
