package api

import (
	"context"
	"strconv"
	"time"

	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// requestDestination reads whichever destination id the route carries.
func requestDestination(c *fiber.Ctx) models.Destination {
	if id, err := c.ParamsInt("channelId"); err == nil && id > 0 {
		return models.ChannelDestination(uint(id))
	}
	id, _ := c.ParamsInt("conversationId")
	return models.ConversationDestination(uint(id))
}

// parseCursor accepts the timestamp exactly as the listing handed it out,
// or unix milliseconds for hand-written clients.
func parseCursor(raw string) (*time.Time, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &ts, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return lo.ToPtr(time.UnixMilli(ms)), nil
	}
	return nil, fiber.NewError(fiber.StatusBadRequest, "cursor must be an RFC3339 timestamp or unix milliseconds")
}

func listMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 0)

	cursor, err := parseCursor(c.Query("cursor"))
	if err != nil {
		return err
	}

	messages, hasMore, err := services.ListMessage(user, requestDestination(c), take, cursor)
	if err != nil {
		return exts.TranslateError(err)
	}

	var next *time.Time
	if len(messages) > 0 {
		next = lo.ToPtr(messages[0].CreatedAt)
	}

	return c.JSON(fiber.Map{
		"data":     messages,
		"has_more": hasMore,
		"cursor":   next,
	})
}

func newMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Uuid        string              `json:"uuid"`
		Content     string              `json:"content"`
		Attachments []models.Attachment `json:"attachments"`
		ParentID    *uint               `json:"parent_id"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	access, err := services.ResolveDestinationAccess(user, requestDestination(c))
	if err != nil {
		return exts.TranslateError(err)
	}

	message, err := services.NewMessage(user, access, services.NewMessageOpts{
		Uuid:        data.Uuid,
		Content:     data.Content,
		Attachments: data.Attachments,
		ParentID:    data.ParentID,
	})
	if err != nil {
		return exts.TranslateError(err)
	}

	go services.AttachLinkEmbed(context.Background(), message)

	return c.JSON(message)
}

func searchMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 0)
	probe := c.Query("probe")

	messages, err := services.SearchMessage(user, requestDestination(c), probe, take)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"count": len(messages),
		"data":  messages,
	})
}

func listPinnedMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	messages, err := services.ListPinnedMessage(user, requestDestination(c))
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(messages)
}

func markDestinationRead(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	dest := requestDestination(c)
	if _, err := services.ResolveDestinationAccess(user, dest); err != nil {
		return exts.TranslateError(err)
	}

	if err := services.MarkDestinationReadAt(dest, user.ID, time.Now()); err != nil {
		return exts.TranslateError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}
