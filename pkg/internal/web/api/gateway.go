package api

import (
	"fmt"

	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

func gateway(c *websocket.Conn) {
	user := c.Locals("user").(models.Account)
	clientId := uuid.NewString()

	// Push connection
	services.ClientRegister(user, c)
	log.Debug().Uint("user", user.ID).Str("client", clientId).
		Msg("New websocket connection established...")

	// Event loop
	var task models.UnifiedCommand

	var messageType int
	var packet []byte
	var err error

	for {
		if messageType, packet, err = c.ReadMessage(); err != nil {
			break
		} else if err = jsoniter.Unmarshal(packet, &task); err != nil {
			_ = c.WriteMessage(messageType, models.UnifiedCommand{
				Action:  "error",
				Message: "unable to unmarshal your command, requires json request",
			}.Marshal())
			continue
		}

		if reply := dealCommand(task, user, clientId); reply != nil {
			if err = c.WriteMessage(messageType, reply.Marshal()); err != nil {
				break
			}
		}
	}

	// Pop connection
	services.ClientUnregister(user, c)
	services.UnsubscribeAllWithClient(clientId)
	log.Debug().Uint("user", user.ID).Str("client", clientId).
		Msg("A websocket connection disconnected...")
}

func payloadDestination(payload any) (models.Destination, error) {
	var req struct {
		ChannelID      *uint `json:"channel_id"`
		ConversationID *uint `json:"conversation_id"`
	}
	models.FitStruct(payload, &req)

	if (req.ChannelID == nil) == (req.ConversationID == nil) {
		return models.Destination{}, fmt.Errorf("%w: exactly one of channel_id or conversation_id is required", services.ErrInvalidRequest)
	}
	if req.ChannelID != nil {
		return models.ChannelDestination(*req.ChannelID), nil
	}
	return models.ConversationDestination(*req.ConversationID), nil
}

func dealCommand(task models.UnifiedCommand, user models.Account, clientId string) *models.UnifiedCommand {
	switch task.Action {
	case "destinations.subscribe":
		dest, err := payloadDestination(task.Payload)
		if err != nil {
			return lo.ToPtr(models.UnifiedCommandFromError(err))
		}
		access, err := services.ResolveDestinationAccessCached(user, dest)
		if err != nil {
			return lo.ToPtr(models.UnifiedCommandFromError(err))
		}
		services.SubscribeDestination(user.ID, access.Destination, clientId)
		return nil
	case "destinations.unsubscribe":
		dest, err := payloadDestination(task.Payload)
		if err != nil {
			return lo.ToPtr(models.UnifiedCommandFromError(err))
		}
		services.UnsubscribeDestination(user.ID, dest)
		return nil
	case "status.typing":
		dest, err := payloadDestination(task.Payload)
		if err != nil {
			return lo.ToPtr(models.UnifiedCommandFromError(err))
		}
		access, err := services.ResolveDestinationAccessCached(user, dest)
		if err != nil {
			return lo.ToPtr(models.UnifiedCommandFromError(err))
		}
		services.SetTypingStatus(access.Destination, user)
		return nil
	case "status.typing.done":
		dest, err := payloadDestination(task.Payload)
		if err != nil {
			return lo.ToPtr(models.UnifiedCommandFromError(err))
		}
		services.ClearTypingStatus(dest, user.ID)
		return nil
	default:
		return &models.UnifiedCommand{
			Action:  "error",
			Message: "command not found",
		}
	}
}
