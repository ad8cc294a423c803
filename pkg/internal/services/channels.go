package services

import (
	"context"
	"fmt"
	"regexp"

	localCache "github.com/chorushq/chorus/pkg/internal/cache"
	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type channelIdentityCacheEntry struct {
	Channel models.Channel
	Perm    ChannelPerm
}

func GetChannelIdentityCacheKey(channelId, user uint) string {
	return fmt.Sprintf("channel-identity-%d#%d", channelId, user)
}

func CacheChannelIdentity(channel models.Channel, perm ChannelPerm, user uint) {
	if localCache.S == nil {
		return
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Set(
		contx,
		GetChannelIdentityCacheKey(channel.ID, user),
		channelIdentityCacheEntry{channel, perm},
		store.WithTags([]string{"channel-identity", fmt.Sprintf("channel#%d", channel.ID), fmt.Sprintf("user#%d", user)}),
	)
}

// GetChannelIdentity is the cached flavor of ResolveChannelAccess, meant
// for hot read paths such as typing heartbeats and gateway subscriptions.
// Only successful resolutions are cached; entries are invalidated by tag
// whenever the channel or the caller's memberships change.
func GetChannelIdentity(user models.Account, channelId uint) (models.Channel, ChannelPerm, error) {
	if localCache.S == nil {
		return ResolveChannelAccess(user, channelId)
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	if val, err := marshal.Get(contx, GetChannelIdentityCacheKey(channelId, user.ID), new(channelIdentityCacheEntry)); err == nil {
		entry := val.(*channelIdentityCacheEntry)
		return entry.Channel, entry.Perm, nil
	}

	channel, perm, err := ResolveChannelAccess(user, channelId)
	if err == nil {
		CacheChannelIdentity(channel, perm, user.ID)
	}

	return channel, perm, err
}

func InvalidateChannelIdentity(channelId uint) {
	if localCache.S == nil {
		return
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Invalidate(
		contx,
		store.WithInvalidateTags([]string{fmt.Sprintf("channel#%d", channelId)}),
	)
}

// ResolveDestinationAccessCached is ResolveDestinationAccess backed by
// the channel identity cache, for paths hit on every keystroke.
func ResolveDestinationAccessCached(user models.Account, dest models.Destination) (DestinationAccess, error) {
	if dest.Kind != models.DestinationChannel {
		return ResolveDestinationAccess(user, dest)
	}

	out := DestinationAccess{Destination: dest}
	channel, perm, err := GetChannelIdentity(user, dest.ID)
	out.Perm = perm
	if channel.ID != 0 {
		out.Channel = &channel
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

func InvalidateAccountIdentity(accountId uint) {
	if localCache.S == nil {
		return
	}

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	contx := context.Background()

	_ = marshal.Invalidate(
		contx,
		store.WithInvalidateTags([]string{fmt.Sprintf("user#%d", accountId)}),
	)
}

func GetChannelAliasAvailability(organizationId uint, alias string) error {
	if !regexp.MustCompile("^[a-z0-9-]+$").MatchString(alias) {
		return fmt.Errorf("channel alias should only contains lowercase letters, numbers, and hyphens")
	}

	var count int64
	if err := database.C.Model(&models.Channel{}).
		Where("organization_id = ? AND alias = ?", organizationId, alias).
		Count(&count).Error; err != nil {
		return err
	} else if count > 0 {
		return fmt.Errorf("channel alias is already taken")
	}

	return nil
}

func GetChannel(id uint) (models.Channel, error) {
	var channel models.Channel
	if err := database.C.Where("id = ?", id).
		Preload("Category").Preload("Organization").
		First(&channel).Error; err != nil {
		return channel, err
	}

	return channel, nil
}

func GetChannelWithAlias(organizationId uint, alias string) (models.Channel, error) {
	var channel models.Channel
	if err := database.C.Where("organization_id = ? AND alias = ?", organizationId, alias).
		Preload("Category").Preload("Organization").
		First(&channel).Error; err != nil {
		return channel, err
	}

	return channel, nil
}

// ListChannel returns every channel the user joined explicitly, across all
// organizations. Used by the unread digest.
func ListChannel(user models.Account) ([]models.Channel, error) {
	var members []models.ChannelMember
	if err := database.C.Where("account_id = ?", user.ID).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("unable to get channel identities: %v", err)
	}

	idx := lo.Map(members, func(item models.ChannelMember, index int) uint {
		return item.ChannelID
	})

	var channels []models.Channel
	if err := database.C.Where("id IN ?", idx).
		Preload("Category").Preload("Organization").
		Find(&channels).Error; err != nil {
		return channels, err
	}

	return channels, nil
}

// ListAvailableChannel lists the channels inside one organization that the
// user is allowed to see. Organization admins see everything, others see
// public channels plus the private ones they were added to.
func ListAvailableChannel(user models.Account, organizationId uint) ([]models.Channel, error) {
	var channels []models.Channel

	membership, err := GetOrganizationMember(organizationId, user.ID)
	if err != nil {
		return channels, fmt.Errorf("%w: you are not a member of this organization", ErrPermissionDenied)
	}

	tx := database.C.Where("organization_id = ?", organizationId).
		Preload("Category").
		Order("name ASC")

	if membership.Role < models.OrganizationRoleAdmin {
		var members []models.ChannelMember
		if err := database.C.Where("account_id = ?", user.ID).Find(&members).Error; err != nil {
			return channels, err
		}
		idx := lo.Map(members, func(item models.ChannelMember, index int) uint {
			return item.ChannelID
		})

		var hiddenCategories []uint
		if err := database.C.Model(&models.ChannelCategory{}).
			Where("organization_id = ? AND is_private = true", organizationId).
			Pluck("id", &hiddenCategories).Error; err != nil {
			return channels, err
		}

		tx = tx.Where(
			"(is_private = false AND (category_id IS NULL OR category_id NOT IN (?)) ) OR id IN ?",
			append(hiddenCategories, 0),
			idx,
		)
	}

	if err := tx.Find(&channels).Error; err != nil {
		return channels, err
	}

	return channels, nil
}

// NewChannel creates the channel and joins the creator in one stroke.
func NewChannel(channel models.Channel) (models.Channel, error) {
	err := database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&channel).Error; err != nil {
			return err
		}
		member := models.ChannelMember{
			ChannelID: channel.ID,
			AccountID: channel.AccountID,
			Notify:    models.NotifyLevelAll,
		}
		return tx.Create(&member).Error
	})

	return channel, err
}

func EditChannel(channel models.Channel, alias, name, description string, permission models.ChannelPermission, isPrivate bool, categoryId *uint) (models.Channel, error) {
	channel.Alias = alias
	channel.Name = name
	channel.Description = description
	channel.Permission = permission
	channel.IsPrivate = isPrivate
	channel.CategoryID = categoryId

	err := database.C.Save(&channel).Error

	if err == nil {
		InvalidateChannelIdentity(channel.ID)
	}

	return channel, err
}

func DeleteChannel(channel models.Channel) error {
	if err := database.C.Delete(&channel).Error; err != nil {
		return err
	}

	database.C.Where("channel_id = ?", channel.ID).Delete(&models.Message{})
	database.C.Where("channel_id = ?", channel.ID).Delete(&models.ChannelMember{})
	database.C.Where("channel_id = ?", channel.ID).Delete(&models.ChannelReadStatus{})

	InvalidateChannelIdentity(channel.ID)

	return nil
}
