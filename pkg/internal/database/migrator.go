package database

import (
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.Friendship{},
	&models.Follower{},
	&models.FriendRequest{},
	&models.Chat{},
	&models.ChatMember{},
	&models.Message{},
	&models.Post{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.SetupJoinTable(&models.Chat{}, "Members", &models.ChatMember{}); err != nil {
		return err
	}

	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
