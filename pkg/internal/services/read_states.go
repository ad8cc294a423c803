package services

import (
	"time"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkChannelReadAt moves the user's read marker in a channel, but never
// backwards. Concurrent markers race safely through the GREATEST upsert.
func MarkChannelReadAt(channelId, accountId uint, at time.Time) error {
	status := models.ChannelReadStatus{
		ChannelID:  channelId,
		AccountID:  accountId,
		LastReadAt: at,
	}

	return database.C.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}, {Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_read_at": gorm.Expr("GREATEST(channel_read_statuses.last_read_at, EXCLUDED.last_read_at)"),
			"updated_at":   time.Now(),
		}),
	}).Create(&status).Error
}

func MarkConversationReadAt(conversationId, accountId uint, at time.Time) error {
	status := models.ConversationReadStatus{
		ConversationID: conversationId,
		AccountID:      accountId,
		LastReadAt:     at,
	}

	return database.C.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_read_at": gorm.Expr("GREATEST(conversation_read_statuses.last_read_at, EXCLUDED.last_read_at)"),
			"updated_at":   time.Now(),
		}),
	}).Create(&status).Error
}

// MarkDestinationReadAt fans out on the destination kind. Used after a
// send so the author never counts their own message as unread.
func MarkDestinationReadAt(dest models.Destination, accountId uint, at time.Time) error {
	if dest.IsChannel() {
		return MarkChannelReadAt(dest.ID, accountId, at)
	}
	return MarkConversationReadAt(dest.ID, accountId, at)
}
