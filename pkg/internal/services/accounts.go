package services

import (
	"errors"
	"fmt"
	"strings"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func GetAccountWithID(tx *gorm.DB, id uint) (models.Account, error) {
	var account models.Account
	if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, ErrUserNotFound
		}
		return account, fmt.Errorf("unable to get account by id: %v", err)
	}
	return account, nil
}

func GetAccountWithName(tx *gorm.DB, name string) (models.Account, error) {
	var account models.Account
	if err := tx.Where("name = ?", name).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, ErrUserNotFound
		}
		return account, fmt.Errorf("unable to get account by name: %v", err)
	}
	return account, nil
}

func GetAccountIDWithName(name string) (uint, error) {
	account, err := GetAccountWithName(database.C, name)
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

func NewAccount(name, email, password string) (models.Account, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(password) == 0 {
		return models.Account{}, fmt.Errorf("%w: name and password are required", ErrBadInput)
	}

	var count int64
	if err := database.C.Model(&models.Account{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return models.Account{}, fmt.Errorf("unable to count existing account: %v", err)
	} else if count > 0 {
		return models.Account{}, fmt.Errorf("%w: name %s was already taken", ErrBadInput, name)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("unable to hash password: %v", err)
	}

	account := models.Account{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     models.AccountRoleUser,
	}
	if lo.Contains(viper.GetStringSlice("security.admins"), name) {
		account.Role = models.AccountRoleAdmin
	}

	if err := database.C.Create(&account).Error; err != nil {
		return account, fmt.Errorf("unable to create account: %v", err)
	}

	log.Info().Uint("id", account.ID).Str("name", account.Name).Str("role", account.Role).Msg("A new account was registered.")
	return account, nil
}

func CheckAccountPassword(name, password string) (models.Account, error) {
	account, err := GetAccountWithName(database.C, name)
	if errors.Is(err, ErrUserNotFound) {
		return account, ErrBadCredentials
	} else if err != nil {
		return account, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return account, ErrBadCredentials
	}
	return account, nil
}

func ListAccounts(user models.Account) ([]models.Account, error) {
	if err := RequireAdmin(user); err != nil {
		return nil, err
	}

	var accounts []models.Account
	if err := database.C.Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("unable to list accounts: %v", err)
	}
	return accounts, nil
}

// bumpAccountVersion claims the account aggregate for the current transaction.
// The account must have been loaded inside the same transaction.
func bumpAccountVersion(tx *gorm.DB, account *models.Account) error {
	result := tx.Model(&models.Account{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Update("version", gorm.Expr("version + 1"))
	if result.Error != nil {
		return fmt.Errorf("unable to update account version: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	account.Version++
	return nil
}

func bumpChatVersion(tx *gorm.DB, chat *models.Chat) error {
	result := tx.Model(&models.Chat{}).
		Where("id = ? AND version = ?", chat.ID, chat.Version).
		Update("version", gorm.Expr("version + 1"))
	if result.Error != nil {
		return fmt.Errorf("unable to update chat version: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	chat.Version++
	return nil
}
