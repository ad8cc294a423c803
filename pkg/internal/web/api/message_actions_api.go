package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// resolveMessage loads the target message and proves the caller can see
// the place it lives in.
func resolveMessage(c *fiber.Ctx, user models.Account) (models.Message, services.DestinationAccess, error) {
	messageId, _ := c.ParamsInt("messageId")

	message, err := services.GetMessageWithSender(uint(messageId))
	if err != nil {
		return message, services.DestinationAccess{}, exts.TranslateError(err)
	}

	access, err := services.ResolveDestinationAccess(user, message.Destination())
	if err != nil {
		return message, access, exts.TranslateError(err)
	}

	return message, access, nil
}

func getMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	message, _, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	view, err := services.GetMessageView(user, message)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(view)
}

func listThreadReply(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	message, _, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	replies, err := services.ListThreadReply(user, message)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(replies)
}

func editMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Content     string              `json:"content"`
		Attachments []models.Attachment `json:"attachments"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	message, _, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	message, err = services.EditMessage(user, message, data.Content, data.Attachments)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(message)
}

func deleteMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	message, _, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	if err := services.DeleteMessage(user, message); err != nil {
		return exts.TranslateError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func toggleReaction(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Symbol string `json:"symbol" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	message, _, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	added, err := services.ToggleReaction(user, message, data.Symbol)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"symbol": data.Symbol,
		"added":  added,
	})
}

func togglePin(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	message, access, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	message, err = services.TogglePin(user, access.Perm, message)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"id":     message.ID,
		"pinned": message.Pinned,
	})
}

func saveMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	message, _, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	already, err := services.SaveMessage(user, message)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"saved":         true,
		"already_saved": already,
	})
}

func unsaveMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	message, _, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	missing, err := services.UnsaveMessage(user, message)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"saved":     false,
		"was_saved": !missing,
	})
}

func forwardMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		ChannelID      *uint `json:"channel_id"`
		ConversationID *uint `json:"conversation_id"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}
	if (data.ChannelID == nil) == (data.ConversationID == nil) {
		return fiber.NewError(fiber.StatusBadRequest, "exactly one forward target is required")
	}

	message, from, err := resolveMessage(c, user)
	if err != nil {
		return err
	}

	var targetDest models.Destination
	if data.ChannelID != nil {
		targetDest = models.ChannelDestination(*data.ChannelID)
	} else {
		targetDest = models.ConversationDestination(*data.ConversationID)
	}

	target, err := services.ResolveDestinationAccess(user, targetDest)
	if err != nil {
		return exts.TranslateError(err)
	}

	forwarded, err := services.ForwardMessage(user, message, from, target)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"message_id":  forwarded.ID,
		"target_kind": lo.Ternary(target.Destination.IsChannel(), "channel", "conversation"),
		"target_name": target.DisplayText(user),
		"message":     forwarded,
	})
}

func markMentionRead(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	messageId, _ := c.ParamsInt("messageId")

	alreadyRead, err := services.MarkMentionRead(user, uint(messageId))
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"already_read": alreadyRead,
	})
}

func listSavedMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 0)
	offset := c.QueryInt("offset", 0)

	messages, count, err := services.ListSavedMessage(user, take, offset)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  messages,
	})
}
