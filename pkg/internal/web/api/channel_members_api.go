package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func listChannelMember(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	channelId, _ := c.ParamsInt("channelId")
	take := c.QueryInt("take", 100)
	offset := c.QueryInt("offset", 0)

	if _, _, err := services.ResolveChannelAccess(user, uint(channelId)); err != nil {
		return exts.TranslateError(err)
	}

	count, err := services.CountChannelMember(uint(channelId))
	if err != nil {
		return exts.TranslateError(err)
	}
	members, err := services.ListChannelMember(uint(channelId), take, offset)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  members,
	})
}

func addChannelMember(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	channelId, _ := c.ParamsInt("channelId")

	var data struct {
		Name string `json:"name"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, perm, err := services.ResolveChannelAccess(user, uint(channelId))
	if err != nil {
		return exts.TranslateError(err)
	}

	target := user
	if len(data.Name) > 0 && data.Name != user.Name {
		if target, err = services.GetAccountWithName(data.Name); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no such account")
		}
	}

	if err := services.AddChannelMemberWithCheck(target, user, channel, perm); err != nil {
		return exts.TranslateError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func removeChannelMember(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	channelId, _ := c.ParamsInt("channelId")
	accountId, _ := c.ParamsInt("accountId")

	channel, perm, err := services.ResolveChannelAccess(user, uint(channelId))
	if err != nil {
		return exts.TranslateError(err)
	}
	if uint(accountId) != user.ID && !perm.IsAdmin {
		return fiber.NewError(fiber.StatusForbidden, "only organization admins can remove other members")
	}

	target, err := services.GetAccount(uint(accountId))
	if err != nil {
		return exts.TranslateError(err)
	}
	member, err := services.GetChannelMember(target, channel.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "that account is not a member of this channel")
	}

	if err := services.RemoveChannelMember(member, channel); err != nil {
		return exts.TranslateError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func editChannelNotify(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	channelId, _ := c.ParamsInt("channelId")

	var data struct {
		Notify models.NotifyLevel `json:"notify" validate:"min=0,max=2"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if _, _, err := services.ResolveChannelAccess(user, uint(channelId)); err != nil {
		return exts.TranslateError(err)
	}

	member, err := services.GetChannelMember(user, uint(channelId))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "you are not a member of this channel")
	}

	member.Notify = data.Notify
	member, err = services.EditChannelMember(member)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(member)
}
