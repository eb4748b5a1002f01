package handler

import (
	"time"

	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
	loc     *time.Location
}

func NewReportHandler(s service.ReportService, loc *time.Location) *ReportHandler {
	return &ReportHandler{service: s, loc: loc}
}

// Dashboard handles GET /reports/dashboard?branch_id= (all branches when omitted)
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	branchID, err := queryUUID(c, "branch_id")
	if err != nil {
		return err
	}
	stats, err := h.service.Dashboard(c.UserContext(), branchID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

func (h *ReportHandler) SalesChart(c *fiber.Ctx) error {
	branchID, err := queryUUID(c, "branch_id")
	if err != nil {
		return err
	}
	chart, err := h.service.SalesChart(c.UserContext(), branchID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chart})
}

// ProductActivity handles GET /reports/products?branch_id=&from=&to=
func (h *ReportHandler) ProductActivity(c *fiber.Ctx) error {
	branchID, err := queryUUID(c, "branch_id")
	if err != nil {
		return err
	}
	if branchID == nil {
		return badRequest("branch_id is required")
	}
	from, to, err := h.period(c)
	if err != nil {
		return err
	}
	rows, err := h.service.ProductActivity(c.UserContext(), *branchID, from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows, "count": len(rows)})
}

func (h *ReportHandler) GroupedStock(c *fiber.Ctx) error {
	branchID, err := paramUUID(c, "branch")
	if err != nil {
		return err
	}
	rows, err := h.service.GroupedStock(c.UserContext(), branchID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows, "count": len(rows)})
}

func (h *ReportHandler) OrphanedDocuments(c *fiber.Ctx) error {
	branchID, err := queryUUID(c, "branch_id")
	if err != nil {
		return err
	}
	from, to, err := h.period(c)
	if err != nil {
		return err
	}
	docs, err := h.service.OrphanedDocuments(c.UserContext(), branchID, from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": docs, "count": len(docs)})
}

// period defaults to the last 30 days ending now.
func (h *ReportHandler) period(c *fiber.Ctx) (time.Time, time.Time, error) {
	from, err := queryTime(c, "from", h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryEnd(c, "to", h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, badRequest("from must be before to")
	}
	return from, to, nil
}
