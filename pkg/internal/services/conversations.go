package services

import (
	"fmt"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/samber/lo"
)

// GetOrCreateConversation finds the direct conversation between two
// accounts, creating it on first contact. The participant pair is stored
// in ascending id order so the unique index holds regardless of who
// started it.
func GetOrCreateConversation(user models.Account, other models.Account) (models.Conversation, error) {
	var conversation models.Conversation
	if user.ID == other.ID {
		return conversation, fmt.Errorf("%w: cannot start a conversation with yourself", ErrInvalidRequest)
	}

	first, second := user.ID, other.ID
	if first > second {
		first, second = second, first
	}

	if err := database.C.Where("participant1_id = ? AND participant2_id = ?", first, second).
		Preload("Participant1").Preload("Participant2").
		First(&conversation).Error; err == nil {
		return conversation, nil
	}

	conversation = models.Conversation{
		Participant1ID: first,
		Participant2ID: second,
	}
	if err := database.C.Create(&conversation).Error; err != nil {
		return conversation, err
	}

	return GetConversation(conversation.ID)
}

func GetConversation(id uint) (models.Conversation, error) {
	var conversation models.Conversation
	if err := database.C.Where("id = ?", id).
		Preload("Participant1").Preload("Participant2").
		First(&conversation).Error; err != nil {
		return conversation, err
	}
	return conversation, nil
}

// ConversationView is a conversation plus the viewer's unread counter.
type ConversationView struct {
	models.Conversation
	UnreadCount int64 `json:"unread_count"`
}

// ListConversation returns the user's conversations, most recently active
// first, with the count of messages from the other side that landed after
// the user's read marker.
func ListConversation(user models.Account) ([]ConversationView, error) {
	var conversations []models.Conversation
	if err := database.C.
		Where("participant1_id = ? OR participant2_id = ?", user.ID, user.ID).
		Preload("Participant1").Preload("Participant2").
		Order("last_message_at DESC NULLS LAST").
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	idx := lo.Map(conversations, func(item models.Conversation, index int) uint {
		return item.ID
	})

	counts := make(map[uint]int64)
	if len(idx) > 0 {
		var rows []struct {
			ConversationID uint
			Count          int64
		}
		if err := database.C.Model(&models.Message{}).
			Select("conversation_id, COUNT(id) AS count").
			Where("conversation_id IN ?", idx).
			Where("sender_id != ?", user.ID).
			Where("created_at > COALESCE((SELECT last_read_at FROM conversation_read_statuses WHERE conversation_id = messages.conversation_id AND account_id = ?), to_timestamp(0))", user.ID).
			Group("conversation_id").
			Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts[row.ConversationID] = row.Count
		}
	}

	return lo.Map(conversations, func(item models.Conversation, index int) ConversationView {
		return ConversationView{
			Conversation: item,
			UnreadCount:  counts[item.ID],
		}
	}), nil
}
