package services

import (
	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
)

func GetChannelCategory(id uint) (models.ChannelCategory, error) {
	var category models.ChannelCategory
	if err := database.C.Where("id = ?", id).First(&category).Error; err != nil {
		return category, err
	}
	return category, nil
}

func ListChannelCategory(organizationId uint) ([]models.ChannelCategory, error) {
	var categories []models.ChannelCategory
	if err := database.C.Where("organization_id = ?", organizationId).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return categories, err
	}
	return categories, nil
}

func NewChannelCategory(category models.ChannelCategory) (models.ChannelCategory, error) {
	err := database.C.Create(&category).Error
	return category, err
}

func EditChannelCategory(category models.ChannelCategory, name string, isPrivate bool) (models.ChannelCategory, error) {
	category.Name = name
	category.IsPrivate = isPrivate

	err := database.C.Save(&category).Error

	if err == nil {
		var idx []uint
		database.C.Model(&models.Channel{}).
			Where("category_id = ?", category.ID).
			Pluck("id", &idx)
		for _, id := range idx {
			InvalidateChannelIdentity(id)
		}
	}

	return category, err
}

// DeleteChannelCategory detaches the channels rather than deleting them.
func DeleteChannelCategory(category models.ChannelCategory) error {
	if err := database.C.Delete(&category).Error; err != nil {
		return err
	}

	database.C.Model(&models.Channel{}).
		Where("category_id = ?", category.ID).
		Update("category_id", nil)

	return nil
}
