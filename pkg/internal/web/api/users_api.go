package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func getUserinfo(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	account, err := services.GetAccount(user.ID)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(account)
}

func getOtherUserinfo(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	account, err := services.GetAccountWithName(c.Params("name"))
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(account)
}
