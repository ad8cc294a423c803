package api

import (
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

// quickReply posts a threaded reply authorized by a reply token instead
// of a session, so push notification actions can answer without a login
// round trip.
func quickReply(c *fiber.Ctx) error {
	channelId, _ := c.ParamsInt("channelId")
	messageId, _ := c.ParamsInt("messageId")

	token := c.Query("replyToken")
	if len(token) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "replyToken is required")
	}

	claims, err := services.ParseReplyToken(token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid reply token")
	}
	if claims.MessageID != uint(messageId) {
		return fiber.NewError(fiber.StatusForbidden, "reply token does not match this message")
	}

	var data struct {
		Content string `json:"content" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	user, err := services.GetAccount(claims.UserID)
	if err != nil {
		return exts.TranslateError(err)
	}

	parent, err := services.GetMessageWithSender(claims.MessageID)
	if err != nil {
		return exts.TranslateError(err)
	}
	if parent.ChannelID == nil || *parent.ChannelID != uint(channelId) {
		return fiber.NewError(fiber.StatusNotFound, "message does not belong to this channel")
	}

	access, err := services.ResolveDestinationAccess(user, parent.Destination())
	if err != nil {
		return exts.TranslateError(err)
	}

	message, err := services.NewMessage(user, access, services.NewMessageOpts{
		Content:  data.Content,
		ParentID: &parent.ID,
	})
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(message)
}
