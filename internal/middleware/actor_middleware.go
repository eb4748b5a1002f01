package middleware

import (
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	ActorHeader = "X-User-ID"

	localUserID = "user_id"
	localRole   = "user_role"
)

// IdentifyActor resolves the optional X-User-ID header to an active user and
// stores its id and role in the request locals. Requests without the header
// pass through anonymous.
func IdentifyActor(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(ActorHeader)
		if raw == "" {
			return c.Next()
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.New(apperror.KindValidation, "invalid "+ActorHeader+" header")
		}
		user, err := users.FindByID(c.UserContext(), id)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return apperror.New(apperror.KindForbidden, "user is inactive")
		}

		c.Locals(localUserID, user.ID.String())
		c.Locals(localRole, user.Role)
		return c.Next()
	}
}

// RequireRole lets the request through only when IdentifyActor resolved a
// user holding one of roles.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(localRole).(model.Role)
		if !ok {
			return apperror.New(apperror.KindForbidden, "an identified user is required")
		}
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return apperror.Newf(apperror.KindForbidden, "role %s may not perform this operation", role)
	}
}

// ActorID returns the identified user id, or "" for anonymous requests.
func ActorID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
