package exts

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/gofiber/fiber/v2"
)

// EnsureAuthenticated guards handlers that need a signed-in account. The
// auth middleware runs app-wide and stores the account in locals when the
// request carried a valid token.
func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user").(models.Account); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "you are not authenticated")
	}

	return nil
}
