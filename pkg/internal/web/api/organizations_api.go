package api

import (
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
)

// resolveOrganization accepts either a numeric id or an alias in the :org
// path segment.
func resolveOrganization(c *fiber.Ctx) (models.Organization, error) {
	if id, err := c.ParamsInt("org"); err == nil && id > 0 {
		return services.GetOrganization(uint(id))
	}
	return services.GetOrganizationWithAlias(c.Params("org"))
}

func createOrganization(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Alias       string `json:"alias" validate:"required,min=2,max=32"`
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}
	if err := services.GetOrganizationAliasAvailability(data.Alias); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	organization, err := services.NewOrganization(user, data.Alias, data.Name, data.Description)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(organization)
}

func listOwnedOrganization(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	organizations, err := services.ListOrganization(user)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(organizations)
}

func listOrganizationMember(c *fiber.Ctx) error {
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

	members, err := services.ListOrganizationMember(organization.ID)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(members)
}

func addOrganizationMember(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Name string                  `json:"name" validate:"required"`
		Role models.OrganizationRole `json:"role"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	organization, err := resolveOrganization(c)
	if err != nil {
		return exts.TranslateError(err)
	}
	account, err := services.GetAccountWithName(data.Name)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "no such account")
	}

	member, err := services.AddOrganizationMember(user, organization, account, data.Role)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(member)
}
