package services

import (
	"fmt"
	"strings"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExtractMentions pulls @name tokens out of message content. Tokens keep
// their original casing and first-seen order, duplicates collapse, and
// trailing punctuation is stripped so "@joan," still mentions joan.
func ExtractMentions(content string) []string {
	var mentions []string
	seen := make(map[string]bool)

	for _, field := range strings.Fields(content) {
		if !strings.HasPrefix(field, "@") {
			continue
		}
		token := strings.TrimRight(field[1:], ".,!?;:")
		if len(token) < 2 || len(token) > 32 {
			continue
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		mentions = append(mentions, token)
	}

	return mentions
}

// unreadMentionScope builds the query for messages in one organization
// that mention the user (by name or @everyone) and have no read receipt
// yet. Muted channels are skipped entirely, and non-admins only see
// mentions from channels they could open themselves.
func unreadMentionScope(user models.Account, organizationId uint) (*gorm.DB, error) {
	membership, err := GetOrganizationMember(organizationId, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: you are not a member of this organization", ErrPermissionDenied)
	}

	selfToken, _ := jsoniter.Marshal([]string{user.Name})
	everyoneToken, _ := jsoniter.Marshal([]string{models.MentionEveryone})

	tx := database.C.Model(&models.Message{}).
		Joins("JOIN channels ON channels.id = messages.channel_id AND channels.deleted_at IS NULL").
		Where("channels.organization_id = ?", organizationId).
		Where("messages.sender_id != ?", user.ID).
		Where("(messages.mentions @> ?::jsonb OR messages.mentions @> ?::jsonb)", string(selfToken), string(everyoneToken)).
		Where("NOT EXISTS (SELECT 1 FROM mention_read_statuses WHERE mention_read_statuses.message_id = messages.id AND mention_read_statuses.account_id = ?)", user.ID).
		Where("NOT EXISTS (SELECT 1 FROM channel_members WHERE channel_members.channel_id = messages.channel_id AND channel_members.account_id = ? AND channel_members.notify = ? AND channel_members.deleted_at IS NULL)", user.ID, models.NotifyLevelNone)

	if membership.Role < models.OrganizationRoleAdmin {
		tx = tx.Where(
			"((channels.is_private = false AND (channels.category_id IS NULL OR channels.category_id NOT IN (SELECT id FROM channel_categories WHERE is_private = true AND deleted_at IS NULL))) OR EXISTS (SELECT 1 FROM channel_members WHERE channel_members.channel_id = channels.id AND channel_members.account_id = ? AND channel_members.deleted_at IS NULL))",
			user.ID,
		)
	}

	return tx, nil
}

func CountUnreadMention(user models.Account, organizationId uint) (int64, error) {
	tx, err := unreadMentionScope(user, organizationId)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func ListUnreadMention(user models.Account, organizationId uint, take int, offset int) ([]models.Message, error) {
	if take <= 0 || take > 100 {
		take = 50
	}

	tx, err := unreadMentionScope(user, organizationId)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := tx.Select("messages.*").
		Preload("Sender").
		Order("messages.created_at DESC").
		Limit(take).Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkMentionRead drops a read receipt for one message. Calling it again
// is harmless and reported through the alreadyRead flag.
func MarkMentionRead(user models.Account, messageId uint) (alreadyRead bool, err error) {
	message, err := GetMessage(messageId)
	if err != nil {
		return false, err
	}
	if _, err := ResolveDestinationAccess(user, message.Destination()); err != nil {
		return false, err
	}

	status := models.MentionReadStatus{
		MessageID: messageId,
		AccountID: user.ID,
	}

	result := database.C.Clauses(clause.OnConflict{DoNothing: true}).Create(&status)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 0, nil
}

// MarkAllMentionsRead clears the user's mention backlog in one
// organization and reports how many receipts it actually wrote.
func MarkAllMentionsRead(user models.Account, organizationId uint) (int64, error) {
	tx, err := unreadMentionScope(user, organizationId)
	if err != nil {
		return 0, err
	}

	var idx []uint
	if err := tx.Pluck("messages.id", &idx).Error; err != nil {
		return 0, err
	}
	if len(idx) == 0 {
		return 0, nil
	}

	statuses := lo.Map(idx, func(id uint, index int) models.MentionReadStatus {
		return models.MentionReadStatus{
			MessageID: id,
			AccountID: user.ID,
		}
	})

	result := database.C.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses)
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
