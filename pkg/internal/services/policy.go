package services

import (
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"gorm.io/gorm"
)

func RequireSelf(user models.Account, target uint) error {
	if user.ID != target {
		return ErrAccessDenied
	}
	return nil
}

func RequireAdmin(user models.Account) error {
	if !user.IsAdmin() {
		return ErrAccessDenied
	}
	return nil
}

func RequireChatMember(user models.Account, chat models.Chat) error {
	if !chat.HasMember(user.ID) {
		return ErrAccessDenied
	}
	return nil
}

func RequirePostOwner(user models.Account, post models.Post) error {
	if post.AccountID != user.ID {
		return ErrAccessDenied
	}
	return nil
}

// EnsureChatMember checks the membership against the store instead of a loaded chat.
func EnsureChatMember(tx *gorm.DB, chatId, userId uint) error {
	var chat models.Chat
	if err := tx.Select("id").Where("id = ?", chatId).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("unable to get chat: %v", err)
	}

	var count int64
	if err := tx.Model(&models.ChatMember{}).
		Where("chat_id = ? AND account_id = ?", chatId, userId).
		Count(&count).Error; err != nil {
		return fmt.Errorf("unable to check chat member: %v", err)
	}
	if count == 0 {
		return ErrAccessDenied
	}
	return nil
}
