package handler

import (
	"errors"
	"time"

	"go-inventory-pos/internal/logger"
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindNotFound:          fiber.StatusNotFound,
	apperror.KindDuplicateKey:      fiber.StatusConflict,
	apperror.KindValidation:        fiber.StatusBadRequest,
	apperror.KindExceedsMaximum:    fiber.StatusUnprocessableEntity,
	apperror.KindInsufficientStock: fiber.StatusUnprocessableEntity,
	apperror.KindNoOpenSession:     fiber.StatusConflict,
	apperror.KindAlreadyOpen:       fiber.StatusConflict,
	apperror.KindPendingClose:      fiber.StatusConflict,
	apperror.KindHasPhysicalStock:  fiber.StatusConflict,
	apperror.KindHasHistory:        fiber.StatusConflict,
	apperror.KindForbidden:         fiber.StatusForbidden,
	apperror.KindConflict:          fiber.StatusConflict,
	apperror.KindStoreUnavailable:  fiber.StatusServiceUnavailable,
}

// ErrorHandler renders classified errors as {"error", "code"}. Unclassified
// errors are logged and reported as an unavailable store.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": "HTTP"})
		}

		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			appErr = apperror.Store(err).(*apperror.Error)
		}
		status, ok := statusByKind[appErr.Kind]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		if status >= fiber.StatusInternalServerError {
			logger.For(c.UserContext(), log).Error("request failed", zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{"error": appErr.Message, "code": appErr.Kind})
	}
}

func badRequest(msg string) error {
	return apperror.New(apperror.KindValidation, msg)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid " + name + " format")
	}
	return id, nil
}

// queryUUID returns nil when the query parameter is absent.
func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest("invalid " + name + " format")
	}
	return &id, nil
}

// queryTime accepts RFC 3339 instants or YYYY-MM-DD dates (midnight in loc).
func queryTime(c *fiber.Ctx, name string, loc *time.Location) (time.Time, error) {
	t, _, err := parseQueryTime(c, name, loc)
	return t, err
}

// queryEnd is queryTime for exclusive range ends: a bare date covers that whole day.
func queryEnd(c *fiber.Ctx, name string, loc *time.Location) (time.Time, error) {
	t, dateOnly, err := parseQueryTime(c, name, loc)
	if err != nil || !dateOnly {
		return t, err
	}
	return t.In(loc).AddDate(0, 0, 1).UTC(), nil
}

func parseQueryTime(c *fiber.Ctx, name string, loc *time.Location) (time.Time, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, false, badRequest("invalid " + name + ", use YYYY-MM-DD or RFC 3339")
	}
	return t.UTC(), true, nil
}

// actor identifies the caller in audit columns.
func actor(c *fiber.Ctx) string {
	if id := middleware.ActorID(c); id != "" {
		return id
	}
	return "api"
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return badRequest("invalid JSON body")
	}
	return nil
}
