package models

import "fmt"

type ChannelPermission = uint8

const (
	ChannelPermissionNormal = ChannelPermission(iota)
	ChannelPermissionReadOnly
)

type ChannelCategory struct {
	BaseModel

	Name           string `json:"name"`
	IsPrivate      bool   `json:"is_private"`
	OrganizationID uint   `json:"organization_id"`

	Channels []Channel `json:"channels" gorm:"foreignKey:CategoryID"`
}

type Channel struct {
	BaseModel

	Alias       string            `json:"alias" gorm:"index"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Permission  ChannelPermission `json:"permission"`
	IsPrivate   bool              `json:"is_private"`
	AccountID   uint              `json:"account_id"`

	OrganizationID uint             `json:"organization_id"`
	Organization   Organization     `json:"organization"`
	CategoryID     *uint            `json:"category_id"`
	Category       *ChannelCategory `json:"category"`

	Members  []ChannelMember `json:"members"`
	Messages []Message       `json:"messages"`
}

func (v Channel) DisplayText() string {
	if len(v.Organization.Name) > 0 {
		return fmt.Sprintf("%s, %s", v.Name, v.Organization.Name)
	}
	return v.Name
}

type NotifyLevel = int8

const (
	NotifyLevelAll = NotifyLevel(iota)
	NotifyLevelMentioned
	NotifyLevelNone
)

// ChannelMember is the explicit allow-list entry for private channels and
// the holder of per-channel personal settings everywhere else.
type ChannelMember struct {
	BaseModel

	ChannelID uint        `json:"channel_id" gorm:"uniqueIndex:idx_channel_member"`
	AccountID uint        `json:"account_id" gorm:"uniqueIndex:idx_channel_member"`
	Notify    NotifyLevel `json:"notify"`

	Channel Channel `json:"channel"`
	Account Account `json:"account"`
}
