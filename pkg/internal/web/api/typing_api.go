package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func listTyping(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	access, err := services.ResolveDestinationAccessCached(user, requestDestination(c))
	if err != nil {
		return exts.TranslateError(err)
	}

	accounts, err := services.ListTypingAccount(user, access.Destination)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"count": len(accounts),
		"data":  accounts,
	})
}

func setTyping(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	access, err := services.ResolveDestinationAccessCached(user, requestDestination(c))
	if err != nil {
		return exts.TranslateError(err)
	}

	services.SetTypingStatus(access.Destination, user)

	return c.SendStatus(fiber.StatusOK)
}

func clearTyping(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	access, err := services.ResolveDestinationAccessCached(user, requestDestination(c))
	if err != nil {
		return exts.TranslateError(err)
	}

	services.ClearTypingStatus(access.Destination, user.ID)

	return c.SendStatus(fiber.StatusOK)
}
