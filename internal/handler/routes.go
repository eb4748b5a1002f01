package handler

import (
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Catalog  *CatalogHandler
	Stock    *StockHandler
	Document *DocumentHandler
	Cash     *CashHandler
	Report   *ReportHandler
}

// Register mounts the REST API under /api/v1 and the event stream on /ws.
func Register(app *fiber.App, h Handlers, users repository.UserRepository, hub *ws.Hub) {
	api := app.Group("/api/v1", middleware.IdentifyActor(users))
	admin := middleware.RequireRole(model.RoleSuperAdmin, model.RoleAdmin)

	api.Get("/branches", h.Catalog.ListBranches)
	api.Get("/branches/:id", h.Catalog.GetBranch)
	api.Post("/branches", admin, h.Catalog.CreateBranch)
	api.Put("/branches/:id", admin, h.Catalog.UpdateBranch)
	api.Post("/branches/:id/primary", admin, h.Catalog.SetPrimaryBranch)

	api.Get("/categories", h.Catalog.CategoryTree)
	api.Post("/categories", h.Catalog.CreateCategory)
	api.Put("/categories/:id", h.Catalog.UpdateCategory)
	api.Delete("/categories/:id", h.Catalog.DeleteCategory)

	api.Get("/products/barcode/:code", h.Catalog.GetProductByBarcode)
	api.Get("/products/:id", h.Catalog.GetProduct)
	api.Post("/products", h.Catalog.CreateProduct)
	api.Put("/products/:id", h.Catalog.UpdateProduct)
	api.Delete("/products/:id", h.Catalog.DeleteProduct)

	api.Get("/counterparties", h.Catalog.GetCounterparty)
	api.Get("/counterparties/:id", h.Catalog.GetCounterparty)
	api.Post("/counterparties", h.Catalog.CreateCounterparty)
	api.Put("/counterparties/:id", h.Catalog.UpdateCounterparty)

	api.Get("/users/:id", h.Catalog.GetUser)
	api.Post("/users", admin, h.Catalog.CreateUser)

	api.Get("/stock", h.Stock.GetStocks)
	api.Get("/stock/:id", h.Stock.GetStock)
	api.Post("/stock", h.Stock.CreateStock)
	api.Post("/stock/adjust", h.Stock.AdjustStock)
	api.Put("/stock/:id", h.Stock.UpdateStock)
	api.Delete("/stock/:id", h.Stock.DeleteStock)

	api.Post("/documents", h.Document.Post)
	api.Get("/documents/:id", h.Document.Get)
	api.Post("/documents/:id/void", h.Document.Void)

	api.Post("/cash/open", h.Cash.Open)
	api.Get("/cash/status/:branch", h.Cash.Status)
	api.Post("/cash/close", h.Cash.Close)
	api.Post("/cash/movements", h.Cash.RecordMovement)
	api.Get("/cash/summary/:branch", h.Cash.Summary)
	api.Get("/cash/sessions/:id", h.Cash.SessionDetail)
	api.Get("/cash/history", h.Cash.History)

	api.Get("/reports/dashboard", h.Report.Dashboard)
	api.Get("/reports/sales-chart", h.Report.SalesChart)
	api.Get("/reports/products", h.Report.ProductActivity)
	api.Get("/reports/stock/:branch", h.Report.GroupedStock)
	api.Get("/reports/orphans", h.Report.OrphanedDocuments)

	if hub == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		hub.Register <- c
		defer func() { hub.Unregister <- c }()

		// clients only listen; reading detects disconnects
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
