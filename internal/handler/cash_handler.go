package handler

import (
	"time"

	"go-inventory-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CashHandler struct {
	service service.CashService
	loc     *time.Location
}

func NewCashHandler(s service.CashService, loc *time.Location) *CashHandler {
	return &CashHandler{service: s, loc: loc}
}

func (h *CashHandler) Open(c *fiber.Ctx) error {
	var req service.OpenSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	mv, err := h.service.Open(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Cash session opened", "data": mv})
}

func (h *CashHandler) Status(c *fiber.Ctx) error {
	branchID, err := paramUUID(c, "branch")
	if err != nil {
		return err
	}
	status, err := h.service.Status(c.UserContext(), branchID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": status})
}

func (h *CashHandler) Close(c *fiber.Ctx) error {
	var req service.CloseSessionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rec, err := h.service.Close(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Cash session closed", "data": rec})
}

func (h *CashHandler) RecordMovement(c *fiber.Ctx) error {
	var req service.RecordMovementRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	mv, err := h.service.RecordMovement(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Cash movement recorded", "data": mv})
}

// Summary handles GET /cash/summary/:branch?session_id=
func (h *CashHandler) Summary(c *fiber.Ctx) error {
	branchID, err := paramUUID(c, "branch")
	if err != nil {
		return err
	}
	sessionID, err := queryUUID(c, "session_id")
	if err != nil {
		return err
	}
	rec, err := h.service.Summary(c.UserContext(), branchID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec})
}

func (h *CashHandler) SessionDetail(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.service.SessionDetail(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": detail})
}

// History handles GET /cash/history?from=&to=&branch_id=&user_id=
func (h *CashHandler) History(c *fiber.Ctx) error {
	from, err := queryTime(c, "from", h.loc)
	if err != nil {
		return err
	}
	to, err := queryEnd(c, "to", h.loc)
	if err != nil {
		return err
	}
	req := service.HistoryRequest{From: from, To: to}
	if req.BranchID, err = queryUUID(c, "branch_id"); err != nil {
		return err
	}
	if req.UserID, err = queryUUID(c, "user_id"); err != nil {
		return err
	}

	sessions, err := h.service.History(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessions, "count": len(sessions)})
}
