package api

import (
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func unfurlLink(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	url := c.Query("url")
	if len(url) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}

	embed := services.FetchLinkMetadata(c.UserContext(), url)

	return c.JSON(embed)
}
