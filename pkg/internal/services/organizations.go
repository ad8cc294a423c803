package services

import (
	"fmt"
	"regexp"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
)

func GetOrganizationAliasAvailability(alias string) error {
	if !regexp.MustCompile("^[a-z0-9-]+$").MatchString(alias) {
		return fmt.Errorf("organization alias should only contains lowercase letters, numbers, and hyphens")
	}
	var count int64
	if err := database.C.Model(&models.Organization{}).Where("alias = ?", alias).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("organization alias is already taken")
	}
	return nil
}

func NewOrganization(user models.Account, alias, name, description string) (models.Organization, error) {
	organization := models.Organization{
		Alias:       alias,
		Name:        name,
		Description: description,
		AccountID:   user.ID,
		Members: []models.OrganizationMember{
			{AccountID: user.ID, Role: models.OrganizationRoleAdmin},
		},
	}

	if err := database.C.Create(&organization).Error; err != nil {
		return organization, err
	}
	return organization, nil
}

func GetOrganization(id uint) (models.Organization, error) {
	var organization models.Organization
	if err := database.C.Where("id = ?", id).First(&organization).Error; err != nil {
		return organization, err
	}
	return organization, nil
}

func GetOrganizationWithAlias(alias string) (models.Organization, error) {
	var organization models.Organization
	if err := database.C.Where("alias = ?", alias).First(&organization).Error; err != nil {
		return organization, err
	}
	return organization, nil
}

// ListOrganization returns every organization the user belongs to.
func ListOrganization(user models.Account) ([]models.Organization, error) {
	var organizations []models.Organization
	if err := database.C.
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.account_id = ? AND organization_members.deleted_at IS NULL", user.ID).
		Find(&organizations).Error; err != nil {
		return organizations, err
	}
	return organizations, nil
}

func GetOrganizationMember(organizationId, accountId uint) (models.OrganizationMember, error) {
	var member models.OrganizationMember
	if err := database.C.Where(models.OrganizationMember{
		OrganizationID: organizationId,
		AccountID:      accountId,
	}).First(&member).Error; err != nil {
		return member, err
	}
	return member, nil
}

func ListOrganizationMember(organizationId uint) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	if err := database.C.
		Where("organization_id = ?", organizationId).
		Preload("Account").
		Find(&members).Error; err != nil {
		return members, err
	}
	return members, nil
}

// AddOrganizationMember enrolls an account; only admins may do this. Adding
// an existing member returns the current row untouched.
func AddOrganizationMember(operator models.Account, organization models.Organization, account models.Account, role models.OrganizationRole) (models.OrganizationMember, error) {
	var member models.OrganizationMember
	if op, err := GetOrganizationMember(organization.ID, operator.ID); err != nil || op.Role != models.OrganizationRoleAdmin {
		return member, fmt.Errorf("%w: only organization admins can add members", ErrPermissionDenied)
	}

	if existing, err := GetOrganizationMember(organization.ID, account.ID); err == nil {
		return existing, nil
	}

	member = models.OrganizationMember{
		OrganizationID: organization.ID,
		AccountID:      account.ID,
		Role:           role,
	}
	if err := database.C.Create(&member).Error; err != nil {
		return member, err
	}
	return member, nil
}
