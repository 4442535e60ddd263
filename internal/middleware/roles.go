package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jokeworks/joker-api/internal/dto"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/store"
)

// RoleRequired gates a route group on the caller holding at least one of the
// given roles. The role set is read from the store on every request; roles
// change between calls and a cache here would hand out stale permissions.
func RoleRequired(st *store.Store, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Authentication required",
			})
		}

		held, err := st.GetUserRoles(c.UserContext(), *userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Error: true, Message: "Unknown user",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}

		for _, h := range held {
			for _, want := range roles {
				if h == want {
					return c.Next()
				}
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Insufficient role",
		})
	}
}
