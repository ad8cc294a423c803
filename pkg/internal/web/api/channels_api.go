package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func listAvailableChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	organization, err := resolveOrganization(c)
	if err != nil {
		return exts.TranslateError(err)
	}

	channels, err := services.ListAvailableChannel(user, organization.ID)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(channels)
}

func createChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Alias       string                   `json:"alias" validate:"required,min=2,max=32"`
		Name        string                   `json:"name" validate:"required"`
		Description string                   `json:"description"`
		Permission  models.ChannelPermission `json:"permission"`
		IsPrivate   bool                     `json:"is_private"`
		CategoryID  *uint                    `json:"category_id"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	organization, err := resolveOrganization(c)
	if err != nil {
		return exts.TranslateError(err)
	}
	member, err := services.GetOrganizationMember(organization.ID, user.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusForbidden, "you are not a member of this organization")
	}
	if err := services.GetChannelAliasAvailability(organization.ID, data.Alias); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	isAdmin := member.Role >= models.OrganizationRoleAdmin
	if data.IsPrivate && !isAdmin {
		return fiber.NewError(fiber.StatusForbidden, "only organization admins can create private channels")
	}
	if data.CategoryID != nil {
		category, err := services.GetChannelCategory(*data.CategoryID)
		if err != nil || category.OrganizationID != organization.ID {
			return fiber.NewError(fiber.StatusBadRequest, "no such category in this organization")
		}
		if category.IsPrivate && !isAdmin {
			return fiber.NewError(fiber.StatusForbidden, "only organization admins can create channels in private categories")
		}
	}

	channel, err := services.NewChannel(models.Channel{
		Alias:          data.Alias,
		Name:           data.Name,
		Description:    data.Description,
		Permission:     data.Permission,
		IsPrivate:      data.IsPrivate,
		CategoryID:     data.CategoryID,
		AccountID:      user.ID,
		OrganizationID: organization.ID,
	})
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(channel)
}

func getChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	channelId, _ := c.ParamsInt("channelId")

	channel, perm, err := services.ResolveChannelAccess(user, uint(channelId))
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"channel": channel,
		"perm":    perm,
	})
}

// canManageChannel allows the creator and organization admins through.
func canManageChannel(channel models.Channel, user models.Account, perm services.ChannelPerm) bool {
	return perm.IsAdmin || channel.AccountID == user.ID
}

func editChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	channelId, _ := c.ParamsInt("channelId")

	var data struct {
		Alias       string                   `json:"alias" validate:"required,min=2,max=32"`
		Name        string                   `json:"name" validate:"required"`
		Description string                   `json:"description"`
		Permission  models.ChannelPermission `json:"permission"`
		IsPrivate   bool                     `json:"is_private"`
		CategoryID  *uint                    `json:"category_id"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, perm, err := services.ResolveChannelAccess(user, uint(channelId))
	if err != nil {
		return exts.TranslateError(err)
	}
	if !canManageChannel(channel, user, perm) {
		return fiber.NewError(fiber.StatusForbidden, "you cannot manage this channel")
	}
	if data.Alias != channel.Alias {
		if err := services.GetChannelAliasAvailability(channel.OrganizationID, data.Alias); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if data.CategoryID != nil {
		category, err := services.GetChannelCategory(*data.CategoryID)
		if err != nil || category.OrganizationID != channel.OrganizationID {
			return fiber.NewError(fiber.StatusBadRequest, "no such category in this organization")
		}
	}

	channel, err = services.EditChannel(channel, data.Alias, data.Name, data.Description, data.Permission, data.IsPrivate, data.CategoryID)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(channel)
}

func deleteChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	channelId, _ := c.ParamsInt("channelId")

	channel, perm, err := services.ResolveChannelAccess(user, uint(channelId))
	if err != nil {
		return exts.TranslateError(err)
	}
	if !canManageChannel(channel, user, perm) {
		return fiber.NewError(fiber.StatusForbidden, "you cannot manage this channel")
	}

	if err := services.DeleteChannel(channel); err != nil {
		return exts.TranslateError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}
