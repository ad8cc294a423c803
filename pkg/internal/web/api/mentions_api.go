package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func listMentions(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 0)
	offset := c.QueryInt("offset", 0)

	organization, err := resolveOrganization(c)
	if err != nil {
		return exts.TranslateError(err)
	}

	count, err := services.CountUnreadMention(user, organization.ID)
	if err != nil {
		return exts.TranslateError(err)
	}
	messages, err := services.ListUnreadMention(user, organization.ID, take, offset)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  messages,
	})
}

func readAllMentions(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	organization, err := resolveOrganization(c)
	if err != nil {
		return exts.TranslateError(err)
	}

	count, err := services.MarkAllMentionsRead(user, organization.ID)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"count": count,
	})
}
