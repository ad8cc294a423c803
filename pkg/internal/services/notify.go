package services

import (
	"fmt"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ChangeEvent describes one thing that happened to an entity, optionally
// scoped to a destination. Hooks fan these out to whoever cares; the
// default hook forwards them to websocket subscribers.
type ChangeEvent struct {
	Entity      string              `json:"entity"`
	Action      string              `json:"action"`
	Payload     any                 `json:"payload"`
	Destination *models.Destination `json:"destination,omitempty"`
}

type NotifyHook func(event ChangeEvent)

var notifyHooks []NotifyHook

// AddNotifyHook registers a delivery hook. Call during startup only,
// the slice is read without locking afterwards.
func AddNotifyHook(hook NotifyHook) {
	notifyHooks = append(notifyHooks, hook)
}

func Notify(event ChangeEvent) {
	for _, hook := range notifyHooks {
		hook(event)
	}
}

func NotifyDestination(dest models.Destination, entity, action string, payload any) {
	Notify(ChangeEvent{
		Entity:      entity,
		Action:      action,
		Payload:     payload,
		Destination: &dest,
	})
}

// PushChangeToSubscribers is the default notify hook. Events without a
// destination are not routable and silently dropped.
func PushChangeToSubscribers(event ChangeEvent) {
	if event.Destination == nil {
		return
	}

	task := models.UnifiedCommand{
		Action: fmt.Sprintf("%s.%s", event.Entity, event.Action),
		Payload: map[string]any{
			"destination": event.Destination.String(),
			"data":        event.Payload,
		},
	}

	PushCommandBatch(ListSubscriberID(*event.Destination), task)
}

// DeliverMessagePushes notifies everyone who should hear about a new
// message but is not watching the destination stream right now.
// Subscribed clients already got the message event itself, so they are
// skipped. Mentioned receivers get a reply token for the quick reply
// endpoint baked into their notification.
func DeliverMessagePushes(message models.Message, access DestinationAccess) {
	dest := access.Destination

	type receiver struct {
		account models.Account
		notify  models.NotifyLevel
	}

	var receivers []receiver
	switch {
	case access.Channel != nil:
		var members []models.ChannelMember
		if err := database.C.Where("channel_id = ?", access.Channel.ID).
			Preload("Account").
			Find(&members).Error; err != nil {
			log.Error().Err(err).Uint("channel_id", access.Channel.ID).
				Msg("An error occurred when listing members to notify...")
			return
		}
		for _, member := range members {
			receivers = append(receivers, receiver{member.Account, member.Notify})
		}
	case access.Conversation != nil:
		peer := access.Conversation.Participant1
		if peer.ID == message.SenderID {
			peer = access.Conversation.Participant2
		}
		receivers = append(receivers, receiver{peer, models.NotifyLevelAll})
	}

	for _, item := range receivers {
		if item.account.ID == message.SenderID {
			continue
		}
		if CheckSubscribed(item.account.ID, dest) {
			continue
		}

		mentioned := lo.Contains(message.Mentions, item.account.Name) ||
			lo.Contains(message.Mentions, models.MentionEveryone)

		if item.notify == models.NotifyLevelNone {
			continue
		} else if item.notify == models.NotifyLevelMentioned && !mentioned {
			continue
		}

		payload := map[string]any{
			"message":     message,
			"destination": dest.String(),
			"source":      access.DisplayText(item.account),
		}
		action := "notifications.new"
		if mentioned {
			action = "notifications.mention"
			if tk, err := CreateReplyToken(message.ID, item.account.ID); err == nil {
				payload["reply_token"] = tk
			} else {
				log.Warn().Err(err).Uint("message_id", message.ID).
					Msg("An error occurred when issuing reply token...")
			}
		}

		PushCommand(item.account.ID, models.UnifiedCommand{
			Action:  action,
			Payload: payload,
		})
	}
}
