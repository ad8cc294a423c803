package models

type OrganizationRole = uint8

const (
	OrganizationRoleMember = OrganizationRole(iota)
	OrganizationRoleAdmin
)

type Organization struct {
	BaseModel

	Alias       string `json:"alias" gorm:"uniqueIndex"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AccountID   uint   `json:"account_id"`

	Members    []OrganizationMember `json:"members"`
	Channels   []Channel            `json:"channels"`
	Categories []ChannelCategory    `json:"categories"`
}

type OrganizationMember struct {
	BaseModel

	OrganizationID uint             `json:"organization_id" gorm:"uniqueIndex:idx_organization_member"`
	AccountID      uint             `json:"account_id" gorm:"uniqueIndex:idx_organization_member"`
	Role           OrganizationRole `json:"role"`

	Account Account `json:"account"`
}
