package services

import (
	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/samber/lo"
)

func GetAccount(id uint) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("id = ?", id).First(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

func GetAccountWithName(name string) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("name = ?", name).First(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

// UpsertAccount mirrors the identity provider's profile into the local
// accounts table. Rows are matched by the stable unique name.
func UpsertAccount(name, nick, avatar string) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("name = ?", name).First(&account).Error; err == nil {
		if account.Nick == nick && account.Avatar == avatar {
			return account, nil
		}
		account.Nick = nick
		account.Avatar = avatar
		err := database.C.Save(&account).Error
		return account, err
	}

	account = models.Account{Name: name, Nick: nick, Avatar: avatar}
	if err := database.C.Create(&account).Error; err != nil {
		return account, err
	}
	return account, nil
}

// ListAccount loads the given accounts in one query, keyed by id.
func ListAccount(idRange []uint) (map[uint]models.Account, error) {
	out := make(map[uint]models.Account)
	if len(idRange) == 0 {
		return out, nil
	}

	var accounts []models.Account
	if err := database.C.Where("id IN ?", lo.Uniq(idRange)).Find(&accounts).Error; err != nil {
		return out, err
	}
	for _, account := range accounts {
		out[account.ID] = account
	}
	return out, nil
}
