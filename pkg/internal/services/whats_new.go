package services

import (
	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/samber/lo"
)

// WhatsNewEntry pairs a channel with how much landed there since the user
// last read it.
type WhatsNewEntry struct {
	Channel     models.Channel `json:"channel"`
	UnreadCount int64          `json:"unread_count"`
}

// ListWhatsNew walks the user's joined channels and keeps the ones with
// messages newer than their read marker. Channels never read at all count
// from the beginning.
func ListWhatsNew(user models.Account) ([]WhatsNewEntry, error) {
	channels, err := ListChannel(user)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return []WhatsNewEntry{}, nil
	}

	idx := lo.Map(channels, func(item models.Channel, index int) uint {
		return item.ID
	})

	var rows []struct {
		ChannelID uint
		Count     int64
	}
	if err := database.C.Model(&models.Message{}).
		Select("channel_id, COUNT(id) AS count").
		Where("channel_id IN ?", idx).
		Where("sender_id != ?", user.ID).
		Where("created_at > COALESCE((SELECT last_read_at FROM channel_read_statuses WHERE channel_read_statuses.channel_id = messages.channel_id AND channel_read_statuses.account_id = ?), to_timestamp(0))", user.ID).
		Group("channel_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.ChannelID] = row.Count
	}

	entries := make([]WhatsNewEntry, 0, len(rows))
	for _, channel := range channels {
		if counts[channel.ID] > 0 {
			entries = append(entries, WhatsNewEntry{
				Channel:     channel,
				UnreadCount: counts[channel.ID],
			})
		}
	}

	return entries, nil
}
