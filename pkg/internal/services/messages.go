package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/realtime"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func GetMessageWithID(tx *gorm.DB, id uint) (models.Message, error) {
	var message models.Message
	if err := tx.Where("id = ?", id).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message, ErrMessageNotFound
		}
		return message, fmt.Errorf("unable to get message: %v", err)
	}
	return message, nil
}

// GetLastMessageText returns the text of the newest message in the chat, nil for an empty chat.
// Messages sent at the same instant are ordered by id.
func GetLastMessageText(tx *gorm.DB, chatId uint) (*string, error) {
	var messages []models.Message
	if err := tx.Where("chat_id = ?", chatId).
		Order("sent_at DESC").Order("id DESC").
		Limit(1).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("unable to get last message: %v", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0].Text, nil
}

func recomputeLastMessage(tx *gorm.DB, chatId uint) error {
	last, err := GetLastMessageText(tx, chatId)
	if err != nil {
		return err
	}
	if err := tx.Model(&models.Chat{}).
		Where("id = ?", chatId).
		Update("last_message", last).Error; err != nil {
		return fmt.Errorf("unable to update last message: %v", err)
	}
	return nil
}

func listChatMemberIDs(tx *gorm.DB, chatId uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.ChatMember{}).
		Where("chat_id = ?", chatId).
		Pluck("account_id", &ids).Error; err != nil {
		return ids, fmt.Errorf("unable to list chat members: %v", err)
	}
	return ids, nil
}

// participant resolves the sender by name and checks it is a member of the chat.
func participant(tx *gorm.DB, chatId uint, senderName string) (models.Account, error) {
	sender, err := GetAccountWithName(tx, senderName)
	if err != nil {
		return sender, err
	}
	if err := EnsureChatMember(tx, chatId, sender.ID); errors.Is(err, ErrAccessDenied) {
		return sender, ErrNotParticipant
	} else if err != nil {
		return sender, err
	}
	return sender, nil
}

func NewMessage(chatId uint, senderName, text string) (models.Message, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return models.Message{}, fmt.Errorf("%w: message text cannot be empty", ErrBadInput)
	}

	var message models.Message
	var members []uint
	err := database.C.Transaction(func(tx *gorm.DB) error {
		sender, err := participant(tx, chatId, senderName)
		if err != nil {
			return err
		}

		message = models.Message{
			Text:     text,
			SentAt:   time.Now(),
			SenderID: sender.ID,
			ChatID:   chatId,
		}
		if err := tx.Create(&message).Error; err != nil {
			return fmt.Errorf("unable to create message: %v", err)
		}
		message.Sender = sender
		if members, err = listChatMemberIDs(tx, chatId); err != nil {
			return err
		}
		return recomputeLastMessage(tx, chatId)
	})
	if err != nil {
		return message, err
	}

	EvictChatCache(chatId)
	realtime.H.Publish(members, realtime.Event{Type: realtime.EventMessageNew, ChatID: chatId, Message: &message})
	log.Debug().Uint("chat", chatId).Uint("message", message.ID).Msg("Message sent.")
	return message, nil
}

// EditMessage replaces the text and moves the message to the end of the chat.
// Membership is checked before the message is looked up.
func EditMessage(chatId, messageId uint, senderName, text string) (models.Message, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return models.Message{}, fmt.Errorf("%w: message text cannot be empty", ErrBadInput)
	}

	var message models.Message
	var members []uint
	err := database.C.Transaction(func(tx *gorm.DB) error {
		sender, err := participant(tx, chatId, senderName)
		if err != nil {
			return err
		}
		message, err = GetMessageWithID(tx, messageId)
		if err != nil {
			return err
		}
		if message.ChatID != chatId {
			return ErrMessageNotFound
		}

		message.Text = text
		message.SentAt = time.Now()
		if err := tx.Model(&message).Updates(map[string]any{
			"text":    message.Text,
			"sent_at": message.SentAt,
		}).Error; err != nil {
			return fmt.Errorf("unable to update message: %v", err)
		}

		message.Sender = sender
		if members, err = listChatMemberIDs(tx, chatId); err != nil {
			return err
		}

		log.Debug().Uint("message", message.ID).Uint("editor", sender.ID).Msg("Message edited.")
		return recomputeLastMessage(tx, chatId)
	})
	if err != nil {
		return message, err
	}

	EvictChatCache(chatId)
	realtime.H.Publish(members, realtime.Event{Type: realtime.EventMessageUpdate, ChatID: chatId, Message: &message})
	return message, nil
}

func DeleteMessage(user models.Account, messageId, chatId uint) error {
	var members []uint
	err := database.C.Transaction(func(tx *gorm.DB) error {
		if err := EnsureChatMember(tx, chatId, user.ID); err != nil {
			return err
		}

		message, err := GetMessageWithID(tx, messageId)
		if err != nil {
			return err
		}
		if message.ChatID != chatId {
			return ErrMessageNotFound
		}

		if err := tx.Delete(&message).Error; err != nil {
			return fmt.Errorf("unable to delete message: %v", err)
		}
		if members, err = listChatMemberIDs(tx, chatId); err != nil {
			return err
		}
		return recomputeLastMessage(tx, chatId)
	})
	if err != nil {
		return err
	}

	EvictChatCache(chatId)
	realtime.H.Publish(members, realtime.Event{Type: realtime.EventMessageDelete, ChatID: chatId, MessageID: messageId})
	log.Debug().Uint("chat", chatId).Uint("message", messageId).Msg("Message deleted.")
	return nil
}

func ListMessages(user models.Account, chatId uint) ([]models.Message, error) {
	if err := EnsureChatMember(database.C, chatId, user.ID); err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0)
	if err := database.C.Where("chat_id = ?", chatId).
		Preload("Sender").
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return messages, fmt.Errorf("unable to list messages: %v", err)
	}
	return messages, nil
}
