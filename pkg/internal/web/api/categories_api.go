package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

func requireOrganizationAdmin(c *fiber.Ctx, user models.Account) (models.Organization, error) {
	organization, err := resolveOrganization(c)
	if err != nil {
		return organization, exts.TranslateError(err)
	}

	member, err := services.GetOrganizationMember(organization.ID, user.ID)
	if err != nil {
		return organization, fiber.NewError(fiber.StatusForbidden, "you are not a member of this organization")
	}
	if member.Role < models.OrganizationRoleAdmin {
		return organization, fiber.NewError(fiber.StatusForbidden, "this action requires organization admin")
	}

	return organization, nil
}

func listChannelCategory(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	organization, err := resolveOrganization(c)
	if err != nil {
		return exts.TranslateError(err)
	}
	if _, err := services.GetOrganizationMember(organization.ID, user.ID); err != nil {
		return fiber.NewError(fiber.StatusForbidden, "you are not a member of this organization")
	}

	categories, err := services.ListChannelCategory(organization.ID)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(categories)
}

func createChannelCategory(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Name      string `json:"name" validate:"required"`
		IsPrivate bool   `json:"is_private"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	organization, err := requireOrganizationAdmin(c, user)
	if err != nil {
		return err
	}

	category, err := services.NewChannelCategory(models.ChannelCategory{
		Name:           data.Name,
		IsPrivate:      data.IsPrivate,
		OrganizationID: organization.ID,
	})
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(category)
}

func editChannelCategory(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	categoryId, _ := c.ParamsInt("categoryId")

	var data struct {
		Name      string `json:"name" validate:"required"`
		IsPrivate bool   `json:"is_private"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	organization, err := requireOrganizationAdmin(c, user)
	if err != nil {
		return err
	}

	category, err := services.GetChannelCategory(uint(categoryId))
	if err != nil {
		return exts.TranslateError(err)
	}
	if category.OrganizationID != organization.ID {
		return fiber.NewError(fiber.StatusNotFound, "no such category in this organization")
	}

	category, err = services.EditChannelCategory(category, data.Name, data.IsPrivate)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(category)
}

func deleteChannelCategory(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	categoryId, _ := c.ParamsInt("categoryId")

	organization, err := requireOrganizationAdmin(c, user)
	if err != nil {
		return err
	}

	category, err := services.GetChannelCategory(uint(categoryId))
	if err != nil {
		return exts.TranslateError(err)
	}
	if category.OrganizationID != organization.ID {
		return fiber.NewError(fiber.StatusNotFound, "no such category in this organization")
	}

	if err := services.DeleteChannelCategory(category); err != nil {
		return exts.TranslateError(err)
	}

	return c.SendStatus(fiber.StatusOK)
}
