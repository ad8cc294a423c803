package models

import "time"

// ChannelReadStatus remembers how far an account has read a channel.
// LastReadAt only ever moves forward.
type ChannelReadStatus struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChannelID  uint      `json:"channel_id" gorm:"uniqueIndex:idx_channel_read"`
	AccountID  uint      `json:"account_id" gorm:"uniqueIndex:idx_channel_read"`
	LastReadAt time.Time `json:"last_read_at"`
}

type ConversationReadStatus struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConversationID uint      `json:"conversation_id" gorm:"uniqueIndex:idx_conversation_read"`
	AccountID      uint      `json:"account_id" gorm:"uniqueIndex:idx_conversation_read"`
	LastReadAt     time.Time `json:"last_read_at"`
}
