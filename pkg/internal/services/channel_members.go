package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
)

func CountChannelMember(channelId uint) (int64, error) {
	var count int64
	if err := database.C.Where(&models.ChannelMember{
		ChannelID: channelId,
	}).Model(&models.ChannelMember{}).Count(&count).Error; err != nil {
		return 0, err
	} else {
		return count, nil
	}
}

func ListChannelMember(channelId uint, take int, offset int) ([]models.ChannelMember, error) {
	var members []models.ChannelMember

	if err := database.C.
		Limit(take).Offset(offset).
		Where(&models.ChannelMember{ChannelID: channelId}).
		Preload("Account").
		Find(&members).Error; err != nil {
		return members, err
	}

	return members, nil
}

func GetChannelMember(user models.Account, channelId uint) (models.ChannelMember, error) {
	var member models.ChannelMember

	if err := database.C.
		Where(&models.ChannelMember{AccountID: user.ID, ChannelID: channelId}).
		First(&member).Error; err != nil {
		return member, err
	}

	return member, nil
}

// AddChannelMemberWithCheck lets organization admins add anyone while
// regular members may only join themselves, and only into channels they
// can already see.
func AddChannelMemberWithCheck(user, op models.Account, target models.Channel, perm ChannelPerm) error {
	if user.ID != op.ID && !perm.IsAdmin {
		return fmt.Errorf("%w: only organization admins can add other members", ErrPermissionDenied)
	}
	if _, err := GetOrganizationMember(target.OrganizationID, user.ID); err != nil {
		return fmt.Errorf("%w: that user does not belong to this organization", ErrPermissionDenied)
	}

	return AddChannelMember(user, target)
}

// AddChannelMember is idempotent, joining twice is a no-op.
func AddChannelMember(user models.Account, target models.Channel) error {
	var member models.ChannelMember
	if err := database.C.Where(&models.ChannelMember{
		AccountID: user.ID,
		ChannelID: target.ID,
	}).First(&member).Error; err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}

	member = models.ChannelMember{
		ChannelID: target.ID,
		AccountID: user.ID,
		Notify:    models.NotifyLevelAll,
	}

	err := database.C.Save(&member).Error

	if err == nil {
		InvalidateAccountIdentity(user.ID)
	}

	return err
}

func EditChannelMember(membership models.ChannelMember) (models.ChannelMember, error) {
	if err := database.C.Save(&membership).Error; err != nil {
		return membership, err
	}

	InvalidateAccountIdentity(membership.AccountID)

	return membership, nil
}

// RemoveChannelMember drops the row for real. A tombstone would collide
// with the unique membership pair if the account rejoined later.
func RemoveChannelMember(member models.ChannelMember, target models.Channel) error {
	if err := database.C.Unscoped().Delete(&member).Error; err != nil {
		return err
	}

	database.C.Where("channel_id = ? AND account_id = ?", target.ID, member.AccountID).
		Delete(&models.ChannelReadStatus{})

	InvalidateAccountIdentity(member.AccountID)

	return nil
}
