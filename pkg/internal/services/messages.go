package services

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func GetMessage(id uint) (models.Message, error) {
	var message models.Message
	if err := database.C.Where("id = ?", id).First(&message).Error; err != nil {
		return message, err
	}
	return message, nil
}

func GetMessageWithSender(id uint) (models.Message, error) {
	var message models.Message
	if err := database.C.Where("id = ?", id).Preload("Sender").First(&message).Error; err != nil {
		return message, err
	}
	return message, nil
}

func scopeDestination(tx *gorm.DB, dest models.Destination) *gorm.DB {
	if dest.IsChannel() {
		return tx.Where("channel_id = ?", dest.ID)
	}
	return tx.Where("conversation_id = ?", dest.ID)
}

// nextMessageTimestamp picks a creation stamp strictly above every message
// already in the destination, so the timestamp cursor never sees two rows
// share an instant. Soft-deleted rows count too.
func nextMessageTimestamp(tx *gorm.DB, dest models.Destination) time.Time {
	now := time.Now()

	var latest sql.NullTime
	query := tx.Model(&models.Message{}).Unscoped().Select("MAX(created_at)")
	query = scopeDestination(query, dest)
	if err := query.Scan(&latest).Error; err == nil && latest.Valid && !latest.Time.Before(now) {
		now = latest.Time.Add(time.Microsecond)
	}

	return now
}

// insertMessage writes the row inside a transaction that holds the
// destination's row lock, serializing concurrent sends so the per
// destination timestamp stays strictly increasing.
func insertMessage(message *models.Message, dest models.Destination) error {
	return database.C.Transaction(func(tx *gorm.DB) error {
		if dest.IsChannel() {
			var channel models.Channel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", dest.ID).First(&channel).Error; err != nil {
				return err
			}
		} else {
			var conversation models.Conversation
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", dest.ID).First(&conversation).Error; err != nil {
				return err
			}
		}

		stamp := nextMessageTimestamp(tx, dest)
		message.CreatedAt = stamp
		message.UpdatedAt = stamp

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		if !dest.IsChannel() {
			return tx.Model(&models.Conversation{}).
				Where("id = ?", dest.ID).
				Update("last_message_at", stamp).Error
		}
		return nil
	})
}

// composeMentions re-parses the content and tacks the parent's author on
// when replying to someone else, so thread roots always hear about their
// replies.
func composeMentions(content string, parentId *uint, senderId uint) ([]string, error) {
	mentions := ExtractMentions(content)
	if parentId == nil {
		return mentions, nil
	}

	parent, err := GetMessageWithSender(*parentId)
	if err != nil {
		return mentions, err
	}
	if parent.SenderID != senderId && !lo.Contains(mentions, parent.Sender.Name) {
		mentions = append(mentions, parent.Sender.Name)
	}

	return mentions, nil
}

type NewMessageOpts struct {
	Uuid        string
	Content     string
	Attachments []models.Attachment
	ParentID    *uint
	LinkEmbed   *models.LinkEmbed
}

// NewMessage validates, stores and announces one message. The caller must
// have resolved destination access beforehand.
func NewMessage(user models.Account, access DestinationAccess, opts NewMessageOpts) (models.Message, error) {
	var message models.Message

	if len(strings.TrimSpace(opts.Content)) == 0 && len(opts.Attachments) == 0 {
		return message, fmt.Errorf("%w: message must carry content or attachments", ErrInvalidRequest)
	}
	if err := ValidateAttachments(opts.Attachments); err != nil {
		return message, err
	}
	if access.Channel != nil && access.Channel.Permission == models.ChannelPermissionReadOnly && !access.Perm.IsAdmin {
		return message, fmt.Errorf("%w: this channel is read-only", ErrPermissionDenied)
	}

	dest := access.Destination

	if opts.ParentID != nil {
		parent, err := GetMessage(*opts.ParentID)
		if err != nil {
			return message, fmt.Errorf("%w: parent message not found", ErrInvalidRequest)
		}
		if parent.Destination() != dest {
			return message, fmt.Errorf("%w: parent message belongs to another destination", ErrInvalidRequest)
		}
	}

	mentions, err := composeMentions(opts.Content, opts.ParentID, user.ID)
	if err != nil {
		return message, err
	}

	message = models.Message{
		Uuid:        opts.Uuid,
		Content:     opts.Content,
		Mentions:    datatypes.NewJSONSlice(mentions),
		Attachments: datatypes.NewJSONSlice(opts.Attachments),
		ParentID:    opts.ParentID,
		LinkEmbed:   opts.LinkEmbed,
		SenderID:    user.ID,
		Sender:      user,
	}
	if len(message.Uuid) == 0 {
		message.Uuid = uuid.NewString()
	}
	if dest.IsChannel() {
		message.ChannelID = lo.ToPtr(dest.ID)
	} else {
		message.ConversationID = lo.ToPtr(dest.ID)
	}

	if err := insertMessage(&message, dest); err != nil {
		return message, err
	}

	ClearTypingStatus(dest, user.ID)
	if err := MarkDestinationReadAt(dest, user.ID, message.CreatedAt); err != nil {
		log.Warn().Err(err).Uint("sender_id", user.ID).
			Msg("An error occurred when moving sender read marker...")
	}

	NotifyDestination(dest, "messages", "new", message)
	go DeliverMessagePushes(message, access)

	return message, nil
}

// EditMessage rewrites content and attachments in place. Mentions are
// parsed again from the new content, the implicit reply mention included.
func EditMessage(user models.Account, message models.Message, content string, attachments []models.Attachment) (models.Message, error) {
	if message.SenderID != user.ID {
		return message, fmt.Errorf("%w: only the author can edit a message", ErrPermissionDenied)
	}
	if len(strings.TrimSpace(content)) == 0 && len(attachments) == 0 {
		return message, fmt.Errorf("%w: message must carry content or attachments", ErrInvalidRequest)
	}
	if err := ValidateAttachments(attachments); err != nil {
		return message, err
	}

	mentions, err := composeMentions(content, message.ParentID, message.SenderID)
	if err != nil {
		return message, err
	}

	message.Content = content
	message.Mentions = datatypes.NewJSONSlice(mentions)
	message.Attachments = datatypes.NewJSONSlice(attachments)
	message.EditedAt = lo.ToPtr(time.Now())

	if err := database.C.Save(&message).Error; err != nil {
		return message, err
	}

	NotifyDestination(message.Destination(), "messages", "update", message)

	return message, nil
}

// DeleteMessage tombstones the message and hard-deletes every dependent
// row so saved lists and mention counters never resurrect it. Blob
// removal happens first and is best-effort, a dangling blob is cheaper
// than a dangling database row.
func DeleteMessage(user models.Account, message models.Message) error {
	if message.SenderID != user.ID {
		return fmt.Errorf("%w: only the author can delete a message", ErrPermissionDenied)
	}

	if Blobs != nil {
		for _, attachment := range message.Attachments {
			if err := Blobs.Remove(attachment.StorageID); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("storage_id", attachment.StorageID).
					Msg("An error occurred when removing attachment blob...")
			}
		}
	}

	err := database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", message.ID).Delete(&models.SavedMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", message.ID).Delete(&models.MentionReadStatus{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", message.ID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&message).Error
	})
	if err != nil {
		return err
	}

	NotifyDestination(message.Destination(), "messages", "delete", map[string]any{
		"id":   message.ID,
		"uuid": message.Uuid,
	})

	return nil
}

// ToggleReaction adds the user's reaction, or removes it when it is
// already there. The insert-first dance keeps double taps idempotent
// under concurrency.
func ToggleReaction(user models.Account, message models.Message, symbol string) (added bool, err error) {
	if len(symbol) == 0 || len(symbol) > 32 {
		return false, fmt.Errorf("%w: reaction symbol must be 1 to 32 characters", ErrInvalidRequest)
	}

	err = database.C.Transaction(func(tx *gorm.DB) error {
		reaction := models.Reaction{
			Symbol:    symbol,
			MessageID: message.ID,
			AccountID: user.ID,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reaction)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			added = true
			return nil
		}
		return tx.Where("symbol = ? AND message_id = ? AND account_id = ?", symbol, message.ID, user.ID).
			Delete(&models.Reaction{}).Error
	})
	if err != nil {
		return false, err
	}

	NotifyDestination(message.Destination(), "reactions", "toggle", map[string]any{
		"id":         message.ID,
		"symbol":     symbol,
		"account_id": user.ID,
		"added":      added,
	})

	return added, nil
}

// TogglePin flips the pinned flag. Pinning is a channel affair and an
// admin privilege.
func TogglePin(user models.Account, perm ChannelPerm, message models.Message) (models.Message, error) {
	if message.ChannelID == nil {
		return message, fmt.Errorf("%w: only channel messages can be pinned", ErrInvalidRequest)
	}
	if !perm.IsAdmin {
		return message, fmt.Errorf("%w: only organization admins can pin messages", ErrPermissionDenied)
	}

	message.Pinned = !message.Pinned
	if err := database.C.Model(&models.Message{}).
		Where("id = ?", message.ID).
		Update("pinned", message.Pinned).Error; err != nil {
		return message, err
	}

	action := "unpin"
	if message.Pinned {
		action = "pin"
	}
	NotifyDestination(message.Destination(), "messages", action, map[string]any{
		"id":     message.ID,
		"pinned": message.Pinned,
	})

	return message, nil
}

// SaveMessage bookmarks the message for the user. Saving twice succeeds
// and reports it was already there.
func SaveMessage(user models.Account, message models.Message) (already bool, err error) {
	saved := models.SavedMessage{
		MessageID: message.ID,
		AccountID: user.ID,
	}

	result := database.C.Clauses(clause.OnConflict{DoNothing: true}).Create(&saved)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 0, nil
}

// UnsaveMessage drops the bookmark, reporting whether there was one.
func UnsaveMessage(user models.Account, message models.Message) (missing bool, err error) {
	result := database.C.Where("message_id = ? AND account_id = ?", message.ID, user.ID).
		Delete(&models.SavedMessage{})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 0, nil
}

// ForwardMessage re-posts an accessible message into another destination
// the user can write to, stamped with where and who it came from.
// Mentions do not travel along.
func ForwardMessage(user models.Account, source models.Message, from DestinationAccess, target DestinationAccess) (models.Message, error) {
	var message models.Message

	if from.Destination == target.Destination {
		return message, fmt.Errorf("%w: cannot forward a message into its own destination", ErrInvalidRequest)
	}
	if target.Channel != nil && target.Channel.Permission == models.ChannelPermissionReadOnly && !target.Perm.IsAdmin {
		return message, fmt.Errorf("%w: the target channel is read-only", ErrPermissionDenied)
	}

	authorName := source.Sender.Nick
	if len(authorName) == 0 {
		authorName = source.Sender.Name
	}

	message = models.Message{
		Uuid:        uuid.NewString(),
		Content:     source.Content,
		Mentions:    datatypes.NewJSONSlice([]string{}),
		Attachments: source.Attachments,
		LinkEmbed:   source.LinkEmbed,
		ForwardedFrom: &models.ForwardSource{
			MessageID:  source.ID,
			SourceName: from.DisplayText(user),
			AuthorName: authorName,
		},
		SenderID: user.ID,
		Sender:   user,
	}
	if target.Destination.IsChannel() {
		message.ChannelID = lo.ToPtr(target.Destination.ID)
	} else {
		message.ConversationID = lo.ToPtr(target.Destination.ID)
	}

	if err := insertMessage(&message, target.Destination); err != nil {
		return message, err
	}

	if err := MarkDestinationReadAt(target.Destination, user.ID, message.CreatedAt); err != nil {
		log.Warn().Err(err).Uint("sender_id", user.ID).
			Msg("An error occurred when moving sender read marker...")
	}

	NotifyDestination(target.Destination, "messages", "new", message)
	go DeliverMessagePushes(message, target)

	return message, nil
}
