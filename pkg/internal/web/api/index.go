package api

import (
	"time"

	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// mapDestinationAPIs registers the routes shared by both message
// destinations; the group carries either :channelId or :conversationId.
func mapDestinationAPIs(group fiber.Router) {
	group.Get("/messages", listMessage)
	group.Post("/messages", newMessage)
	group.Get("/messages/search", searchMessage)
	group.Get("/messages/typing", listTyping)
	group.Post("/messages/typing", setTyping)
	group.Delete("/messages/typing", clearTyping)
	group.Post("/read", markDestinationRead)
}

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		api.Get("/ws", func(c *fiber.Ctx) error {
			if err := exts.EnsureAuthenticated(c); err != nil {
				return err
			}
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		}, websocket.New(gateway))

		users := api.Group("/users").Name("Users API")
		{
			users.Get("/me", getUserinfo)
			users.Get("/:name", getOtherUserinfo)
		}

		organizations := api.Group("/organizations").Name("Organizations API")
		{
			organizations.Post("/", createOrganization)
			organizations.Get("/me", listOwnedOrganization)

			org := organizations.Group("/:org")
			{
				org.Get("/members", listOrganizationMember)
				org.Post("/members", addOrganizationMember)

				org.Get("/categories", listChannelCategory)
				org.Post("/categories", createChannelCategory)
				org.Put("/categories/:categoryId", editChannelCategory)
				org.Delete("/categories/:categoryId", deleteChannelCategory)

				org.Get("/channels", listAvailableChannel)
				org.Post("/channels", createChannel)

				org.Get("/mentions", listMentions)
				org.Post("/mentions/read-all", readAllMentions)
			}
		}

		channels := api.Group("/channels").Name("Channels API")
		{
			channel := channels.Group("/:channelId")
			{
				channel.Get("/", getChannel)
				channel.Put("/", editChannel)
				channel.Delete("/", deleteChannel)

				channel.Get("/members", listChannelMember)
				channel.Post("/members", addChannelMember)
				channel.Delete("/members/:accountId", removeChannelMember)
				channel.Put("/members/me/notify", editChannelNotify)

				channel.Get("/messages/pins", listPinnedMessage)
				mapDestinationAPIs(channel)
			}
		}

		conversations := api.Group("/conversations").Name("Conversations API")
		{
			conversations.Get("/", listConversation)
			conversations.Post("/", openConversation)

			conversation := conversations.Group("/:conversationId")
			{
				mapDestinationAPIs(conversation)
			}
		}

		messages := api.Group("/messages").Name("Messages API")
		{
			messages.Get("/saved", listSavedMessage)

			message := messages.Group("/:messageId")
			{
				message.Get("/", getMessage)
				message.Put("/", editMessage)
				message.Delete("/", deleteMessage)
				message.Get("/replies", listThreadReply)
				message.Post("/reactions/toggle", toggleReaction)
				message.Post("/pin", togglePin)
				message.Post("/save", saveMessage)
				message.Delete("/save", unsaveMessage)
				message.Post("/forward", forwardMessage)
				message.Post("/read", markMentionRead)
			}
		}

		api.Get("/links/unfurl", unfurlLink)
		api.Get("/whats-new", getWhatsNew)

		api.Post("/quick/:channelId/reply/:messageId", quickReply)

		attachments := api.Group("/attachments").Name("Attachments API")
		{
			attachments.Get("/o/:storageId", cache.New(cache.Config{
				Expiration:   365 * 24 * time.Hour,
				CacheControl: true,
			}), readAttachment)
			attachments.Post("/", uploadAttachment)
			attachments.Delete("/:storageId", deleteAttachment)
		}
	}
}
