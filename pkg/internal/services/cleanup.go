package services

import (
	"time"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DoAutoDatabaseCleanup removes chats nobody belongs to and messages whose chat is gone.
func DoAutoDatabaseCleanup() {
	log.Debug().Time("now", time.Now()).Msg("Now cleaning up entire database...")

	var chatIds []uint
	if err := database.C.Model(&models.Chat{}).
		Where("id NOT IN (?)", database.C.Model(&models.ChatMember{}).Select("chat_id")).
		Pluck("id", &chatIds).Error; err != nil {
		log.Error().Err(err).Msg("An error occurred when looking up empty chats...")
		return
	}
	for _, id := range chatIds {
		if err := database.C.Transaction(func(tx *gorm.DB) error {
			return deleteChatInTx(tx, id)
		}); err != nil {
			log.Error().Err(err).Uint("chat", id).Msg("An error occurred when deleting empty chat...")
			continue
		}
		EvictChatCache(id)
	}

	tx := database.C.
		Where("chat_id NOT IN (?)", database.C.Model(&models.Chat{}).Select("id")).
		Delete(&models.Message{})
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("An error occurred when deleting dangling messages...")
		return
	}

	log.Debug().Int("chats", len(chatIds)).Int64("messages", tx.RowsAffected).Msg("Clean up entire database accomplished.")
}
