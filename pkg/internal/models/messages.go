package models

import (
	"time"

	"gorm.io/datatypes"
)

// MentionEveryone is the reserved mention token that addresses every member
// of the destination without naming a real account.
const MentionEveryone = "everyone"

type Attachment struct {
	StorageID string `json:"storage_id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
}

type LinkEmbed struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

type ForwardSource struct {
	MessageID  uint   `json:"message_id"`
	SourceName string `json:"source_name"`
	AuthorName string `json:"author_name"`
}

type Message struct {
	BaseModel

	Uuid        string                          `json:"uuid" gorm:"index"`
	Content     string                          `json:"content"`
	Mentions    datatypes.JSONSlice[string]     `json:"mentions"`
	Attachments datatypes.JSONSlice[Attachment] `json:"attachments"`
	Pinned      bool                            `json:"pinned"`
	EditedAt    *time.Time                      `json:"edited_at"`

	LinkEmbed     *LinkEmbed     `json:"link_embed,omitempty" gorm:"serializer:json"`
	ForwardedFrom *ForwardSource `json:"forwarded_from,omitempty" gorm:"serializer:json"`

	ParentID       *uint    `json:"parent_id"`
	Parent         *Message `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	ChannelID      *uint    `json:"channel_id,omitempty" gorm:"index"`
	ConversationID *uint    `json:"conversation_id,omitempty" gorm:"index"`
	SenderID       uint     `json:"sender_id"`

	Sender    Account    `json:"sender"`
	Reactions []Reaction `json:"reactions,omitempty"`
}

// Destination reports the message target. Exactly one of the two columns is
// set for every persisted row.
func (v Message) Destination() Destination {
	if v.ConversationID != nil {
		return ConversationDestination(*v.ConversationID)
	}
	if v.ChannelID != nil {
		return ChannelDestination(*v.ChannelID)
	}
	return Destination{}
}

// Reaction rows are toggled with a unique-index guarded insert or delete,
// so they carry no soft deletion state.
type Reaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Symbol    string `json:"symbol" gorm:"uniqueIndex:idx_reaction_toggle"`
	MessageID uint   `json:"message_id" gorm:"uniqueIndex:idx_reaction_toggle"`
	AccountID uint   `json:"account_id" gorm:"uniqueIndex:idx_reaction_toggle"`
}

// SavedMessage is a personal bookmark. The pair is unique and rows are hard
// deleted so a bookmark can be re-created after removal.
type SavedMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	MessageID uint `json:"message_id" gorm:"uniqueIndex:idx_saved_message"`
	AccountID uint `json:"account_id" gorm:"uniqueIndex:idx_saved_message"`

	Message Message `json:"message"`
}

// MentionReadStatus marks a mention as acknowledged. Existence is the only
// state it carries.
type MentionReadStatus struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	MessageID uint `json:"message_id" gorm:"uniqueIndex:idx_mention_read"`
	AccountID uint `json:"account_id" gorm:"uniqueIndex:idx_mention_read"`
}
