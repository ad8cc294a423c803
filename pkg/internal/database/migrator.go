package database

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"gorm.io/gorm"
)

// AutoMaintainRange lists the soft-deletable models swept by the hourly
// database cleanup.
var AutoMaintainRange = []any{
	&models.Account{},
	&models.Organization{},
	&models.OrganizationMember{},
	&models.ChannelCategory{},
	&models.Channel{},
	&models.ChannelMember{},
	&models.Conversation{},
	&models.Message{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(append(AutoMaintainRange,
		&models.Reaction{},
		&models.SavedMessage{},
		&models.MentionReadStatus{},
		&models.ChannelReadStatus{},
		&models.ConversationReadStatus{},
	)...); err != nil {
		return err
	}

	return nil
}
