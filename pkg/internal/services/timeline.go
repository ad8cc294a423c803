package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/samber/lo"
)

const (
	DefaultPageSize    = 50
	MaxPageSize        = 100
	DefaultSearchLimit = 20
)

// ReactionGroup folds individual reaction rows into one chip per symbol.
type ReactionGroup struct {
	Symbol      string `json:"symbol"`
	Count       int64  `json:"count"`
	AccountIDs  []uint `json:"account_ids"`
	ReactedByMe bool   `json:"reacted_by_me"`
}

type AttachmentView struct {
	models.Attachment
	URL string `json:"url"`
}

// MessageView is a message dressed up for one specific viewer. The
// attachment and reaction fields shadow the raw columns with resolved
// URLs and grouped chips.
type MessageView struct {
	models.Message
	Attachments    []AttachmentView `json:"attachments"`
	ReactionList   []ReactionGroup  `json:"reactions"`
	ReplyCount     int64            `json:"reply_count"`
	RecentRepliers []models.Account `json:"recent_repliers,omitempty"`
	IsSaved        bool             `json:"is_saved"`
	IsOwn          bool             `json:"is_own"`
}

type enrichOptions struct {
	ResolveParents bool
	ThreadSummary  bool
}

// enrichMessages decorates a batch with everything the client renders
// alongside the raw rows. Every lookup here is batched over the whole
// page, never per message.
func enrichMessages(viewer models.Account, messages []models.Message, opts enrichOptions) ([]MessageView, error) {
	if len(messages) == 0 {
		return []MessageView{}, nil
	}

	idx := lo.Map(messages, func(item models.Message, index int) uint {
		return item.ID
	})

	if opts.ResolveParents {
		parentIdx := lo.Uniq(lo.FilterMap(messages, func(item models.Message, index int) (uint, bool) {
			if item.ParentID != nil {
				return *item.ParentID, true
			}
			return 0, false
		}))
		if len(parentIdx) > 0 {
			var parents []models.Message
			if err := database.C.Where("id IN ?", parentIdx).
				Preload("Sender").
				Find(&parents).Error; err != nil {
				return nil, err
			}
			parentMap := lo.SliceToMap(parents, func(item models.Message) (uint, models.Message) {
				return item.ID, item
			})
			for i, item := range messages {
				if item.ParentID == nil {
					continue
				}
				if parent, ok := parentMap[*item.ParentID]; ok {
					messages[i].Parent = &parent
				}
			}
		}
	}

	var reactions []models.Reaction
	if err := database.C.Where("message_id IN ?", idx).
		Order("id ASC").
		Find(&reactions).Error; err != nil {
		return nil, err
	}

	groupIndex := make(map[uint]map[string]*ReactionGroup)
	orderIndex := make(map[uint][]string)
	for _, reaction := range reactions {
		if groupIndex[reaction.MessageID] == nil {
			groupIndex[reaction.MessageID] = make(map[string]*ReactionGroup)
		}
		group, ok := groupIndex[reaction.MessageID][reaction.Symbol]
		if !ok {
			group = &ReactionGroup{Symbol: reaction.Symbol}
			groupIndex[reaction.MessageID][reaction.Symbol] = group
			orderIndex[reaction.MessageID] = append(orderIndex[reaction.MessageID], reaction.Symbol)
		}
		group.Count++
		group.AccountIDs = append(group.AccountIDs, reaction.AccountID)
		if reaction.AccountID == viewer.ID {
			group.ReactedByMe = true
		}
	}

	replyCount := make(map[uint]int64)
	recentRepliers := make(map[uint][]uint)
	replierProfiles := make(map[uint]models.Account)
	if opts.ThreadSummary {
		var replyRows []struct {
			ParentID  uint
			SenderID  uint
			CreatedAt time.Time
		}
		if err := database.C.Model(&models.Message{}).
			Select("parent_id, sender_id, created_at").
			Where("parent_id IN ?", idx).
			Order("created_at DESC").
			Scan(&replyRows).Error; err != nil {
			return nil, err
		}
		for _, row := range replyRows {
			replyCount[row.ParentID]++
			if len(recentRepliers[row.ParentID]) < 3 && !lo.Contains(recentRepliers[row.ParentID], row.SenderID) {
				recentRepliers[row.ParentID] = append(recentRepliers[row.ParentID], row.SenderID)
			}
		}

		replierIdx := lo.Uniq(lo.Flatten(lo.Values(recentRepliers)))
		if len(replierIdx) > 0 {
			profiles, err := ListAccount(replierIdx)
			if err != nil {
				return nil, err
			}
			replierProfiles = profiles
		}
	}

	var savedRows []models.SavedMessage
	if err := database.C.Where("account_id = ? AND message_id IN ?", viewer.ID, idx).
		Find(&savedRows).Error; err != nil {
		return nil, err
	}
	savedSet := make(map[uint]bool, len(savedRows))
	for _, row := range savedRows {
		savedSet[row.MessageID] = true
	}

	views := make([]MessageView, 0, len(messages))
	for _, item := range messages {
		view := MessageView{
			Message:      item,
			Attachments:  make([]AttachmentView, 0, len(item.Attachments)),
			ReactionList: make([]ReactionGroup, 0),
			ReplyCount:   replyCount[item.ID],
			IsSaved:      savedSet[item.ID],
			IsOwn:        item.SenderID == viewer.ID,
		}
		for _, attachment := range item.Attachments {
			var url string
			if Blobs != nil {
				url = Blobs.Resolve(attachment.StorageID)
			}
			view.Attachments = append(view.Attachments, AttachmentView{attachment, url})
		}
		for _, symbol := range orderIndex[item.ID] {
			view.ReactionList = append(view.ReactionList, *groupIndex[item.ID][symbol])
		}
		for _, replier := range recentRepliers[item.ID] {
			if profile, ok := replierProfiles[replier]; ok {
				view.RecentRepliers = append(view.RecentRepliers, profile)
			}
		}
		views = append(views, view)
	}

	return views, nil
}

// hideDeniedDestination decides whether a denied lookup should pretend the
// place is simply empty. Private channels are concealed that way so
// outsiders cannot probe for their existence.
func hideDeniedDestination(access DestinationAccess, err error) bool {
	return errors.Is(err, ErrPermissionDenied) &&
		access.Channel != nil && IsChannelPrivate(*access.Channel)
}

// ListMessage pages through a destination's main timeline, newest page
// first, each page ordered oldest to newest. The cursor is the creation
// stamp of the oldest message the client already has. Thread replies stay
// out of the main timeline.
func ListMessage(user models.Account, dest models.Destination, take int, cursor *time.Time) ([]MessageView, bool, error) {
	access, err := ResolveDestinationAccess(user, dest)
	if err != nil {
		if hideDeniedDestination(access, err) {
			return []MessageView{}, false, nil
		}
		return nil, false, err
	}

	if take <= 0 {
		take = DefaultPageSize
	}
	if take > MaxPageSize {
		take = MaxPageSize
	}

	tx := scopeDestination(database.C, dest).
		Where("parent_id IS NULL").
		Preload("Sender").
		Order("created_at DESC").
		Limit(take + 1)
	if cursor != nil {
		tx = tx.Where("created_at < ?", *cursor)
	}

	var messages []models.Message
	if err := tx.Find(&messages).Error; err != nil {
		return nil, false, err
	}

	hasMore := len(messages) > take
	if hasMore {
		messages = messages[:take]
	}
	messages = lo.Reverse(messages)

	views, err := enrichMessages(user, messages, enrichOptions{ResolveParents: true, ThreadSummary: true})
	if err != nil {
		return nil, false, err
	}

	return views, hasMore, nil
}

// ListThreadReply returns a thread in chronological order. Access to the
// parent was checked by the caller.
func ListThreadReply(user models.Account, parent models.Message) ([]MessageView, error) {
	var messages []models.Message
	if err := database.C.Where("parent_id = ?", parent.ID).
		Preload("Sender").
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return enrichMessages(user, messages, enrichOptions{})
}

// SearchMessage greps one destination's history, newest hits first.
// Parent previews are skipped, hits render on their own.
func SearchMessage(user models.Account, dest models.Destination, probe string, take int) ([]MessageView, error) {
	access, err := ResolveDestinationAccess(user, dest)
	if err != nil {
		if hideDeniedDestination(access, err) {
			return []MessageView{}, nil
		}
		return nil, err
	}

	probe = strings.TrimSpace(probe)
	if len(probe) == 0 {
		return nil, fmt.Errorf("%w: search keyword cannot be blank", ErrInvalidRequest)
	}
	if take <= 0 || take > MaxPageSize {
		take = DefaultSearchLimit
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(probe)

	var messages []models.Message
	if err := scopeDestination(database.C, dest).
		Where("content ILIKE ?", "%"+escaped+"%").
		Preload("Sender").
		Order("created_at DESC").
		Limit(take).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return enrichMessages(user, messages, enrichOptions{ThreadSummary: true})
}

func ListPinnedMessage(user models.Account, dest models.Destination) ([]MessageView, error) {
	access, err := ResolveDestinationAccess(user, dest)
	if err != nil {
		if hideDeniedDestination(access, err) {
			return []MessageView{}, nil
		}
		return nil, err
	}

	var messages []models.Message
	if err := scopeDestination(database.C, dest).
		Where("pinned = true").
		Preload("Sender").
		Order("created_at DESC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	return enrichMessages(user, messages, enrichOptions{ResolveParents: true})
}

// ListSavedMessage walks the viewer's bookmarks, newest bookmark first.
// Bookmarks pointing at deleted messages are filtered out by the join.
func ListSavedMessage(user models.Account, take int, offset int) ([]MessageView, int64, error) {
	if take <= 0 || take > MaxPageSize {
		take = DefaultPageSize
	}

	var count int64
	if err := database.C.Model(&models.SavedMessage{}).
		Joins("JOIN messages ON messages.id = saved_messages.message_id AND messages.deleted_at IS NULL").
		Where("saved_messages.account_id = ?", user.ID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var saved []models.SavedMessage
	if err := database.C.
		Joins("JOIN messages ON messages.id = saved_messages.message_id AND messages.deleted_at IS NULL").
		Where("saved_messages.account_id = ?", user.ID).
		Order("saved_messages.created_at DESC").
		Limit(take).Offset(offset).
		Preload("Message").Preload("Message.Sender").
		Find(&saved).Error; err != nil {
		return nil, 0, err
	}

	messages := lo.Map(saved, func(item models.SavedMessage, index int) models.Message {
		return item.Message
	})

	views, err := enrichMessages(user, messages, enrichOptions{ResolveParents: true})
	if err != nil {
		return nil, 0, err
	}

	return views, count, nil
}

// GetMessageView renders a single message the way list endpoints do.
func GetMessageView(user models.Account, message models.Message) (MessageView, error) {
	views, err := enrichMessages(user, []models.Message{message}, enrichOptions{ResolveParents: true, ThreadSummary: true})
	if err != nil {
		return MessageView{}, err
	}
	return views[0], nil
}
