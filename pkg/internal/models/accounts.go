package models

// Account profiles basically fetched from the identity provider.
// But cache at here for better usage and database relations.
type Account struct {
	BaseModel

	Name   string `json:"name" gorm:"uniqueIndex"`
	Nick   string `json:"nick"`
	Avatar string `json:"avatar"`

	Channels []Channel `json:"channels" gorm:"foreignKey:AccountID"`
}
