package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func listConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	conversations, err := services.ListConversation(user)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(conversations)
}

// openConversation finds or starts the direct conversation with another
// account.
func openConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Name string `json:"name" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	other, err := services.GetAccountWithName(data.Name)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "no such account")
	}

	conversation, err := services.GetOrCreateConversation(user, other)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(conversation)
}
