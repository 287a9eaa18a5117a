package services

import (
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func loadChat(tx *gorm.DB, id uint) (models.Chat, error) {
	var chat models.Chat
	if err := tx.Where("id = ?", id).Preload("Members").First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat, ErrChatNotFound
		}
		return chat, fmt.Errorf("unable to get chat: %v", err)
	}
	return chat, nil
}

// GetChatWithCache is the read-through lookup behind chat detail, it does not check access.
func GetChatWithCache(id uint) (models.Chat, error) {
	if chat, ok := getCached[models.Chat](cacheKindChat, KeyForChat(id)); ok {
		return chat, nil
	}

	chat, err := loadChat(database.C, id)
	if err != nil {
		return chat, err
	}
	setCached(cacheKindChat, KeyForChat(id), chat)
	return chat, nil
}

// GetChat checks the membership against the store, a cached member list may lag behind.
func GetChat(user models.Account, id uint) (models.Chat, error) {
	if err := EnsureChatMember(database.C, id, user.ID); err != nil {
		return models.Chat{}, err
	}

	chat, err := GetChatWithCache(id)
	if err != nil {
		return chat, err
	}
	if !chat.HasMember(user.ID) {
		EvictChatCache(id)
		if chat, err = loadChat(database.C, id); err != nil {
			return chat, err
		}
	}
	return chat, nil
}

// ListSharedChatIDs returns the chats both users are members of.
func ListSharedChatIDs(tx *gorm.DB, userId, otherId uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.ChatMember{}).
		Where("account_id = ?", userId).
		Where("chat_id IN (?)", tx.Model(&models.ChatMember{}).Select("chat_id").Where("account_id = ?", otherId)).
		Pluck("chat_id", &ids).Error; err != nil {
		return ids, fmt.Errorf("unable to list shared chats: %v", err)
	}
	return ids, nil
}

func NewChat(user models.Account, firstId, secondId uint) (models.Chat, error) {
	var chat models.Chat
	err := retryOnConflict(func() error {
		chat = models.Chat{}
		return database.C.Transaction(func(tx *gorm.DB) error {
			first, err := GetAccountWithID(tx, firstId)
			if err != nil {
				return err
			}
			second, err := GetAccountWithID(tx, secondId)
			if err != nil {
				return err
			}

			if user.ID != first.ID && user.ID != second.ID {
				return ErrAccessDenied
			}

			if friend, err := IsFriend(tx, first.ID, second.ID); err != nil {
				return err
			} else if !friend {
				return ErrNotFriends
			}

			if shared, err := ListSharedChatIDs(tx, first.ID, second.ID); err != nil {
				return err
			} else if len(shared) > 0 {
				return ErrChatAlreadyExists
			}

			if err := tx.Create(&chat).Error; err != nil {
				return fmt.Errorf("unable to create chat: %v", err)
			}
			if err := tx.Create([]models.ChatMember{
				{ChatID: chat.ID, AccountID: first.ID},
				{ChatID: chat.ID, AccountID: second.ID},
			}).Error; err != nil {
				return fmt.Errorf("unable to add chat members: %v", err)
			}

			// Both accounts are claimed so two concurrent creations for the same pair cannot both pass.
			if err := bumpAccountVersion(tx, &first); err != nil {
				return err
			}
			if err := bumpAccountVersion(tx, &second); err != nil {
				return err
			}

			chat.Members = []models.Account{first, second}
			return nil
		})
	})
	if err != nil {
		return chat, err
	}

	log.Debug().Uint("chat", chat.ID).Uints("members", chat.MemberIDs()).Msg("Chat created.")
	return chat, nil
}

func JoinChat(user models.Account, id uint) (models.Chat, error) {
	var chat models.Chat
	err := retryOnConflict(func() error {
		return database.C.Transaction(func(tx *gorm.DB) error {
			var err error
			chat, err = loadChat(tx, id)
			if err != nil {
				return err
			}

			if len(chat.Members) >= models.ChatMemberLimit {
				return ErrChatFull
			}
			if len(chat.Members) == 0 {
				return ErrChatNotFound
			}
			if chat.HasMember(user.ID) {
				return ErrAlreadyMember
			}

			member := chat.Members[0]
			joiner, err := GetAccountWithID(tx, user.ID)
			if err != nil {
				return err
			}

			if friend, err := IsFriend(tx, member.ID, joiner.ID); err != nil {
				return err
			} else if !friend {
				return ErrNotFriends
			}

			if err := tx.Create(&models.ChatMember{ChatID: chat.ID, AccountID: joiner.ID}).Error; err != nil {
				return fmt.Errorf("unable to add chat member: %v", err)
			}
			if err := bumpChatVersion(tx, &chat); err != nil {
				return err
			}
			// Claiming both accounts makes a concurrent unfriending of the pair conflict with the join.
			if err := bumpAccountVersion(tx, &member); err != nil {
				return err
			}
			if err := bumpAccountVersion(tx, &joiner); err != nil {
				return err
			}

			chat.Members = []models.Account{member, joiner}
			return nil
		})
	})
	if err != nil {
		return chat, err
	}

	EvictChatCache(chat.ID)
	log.Debug().Uint("chat", chat.ID).Uint("user", user.ID).Msg("User joined chat.")
	return chat, nil
}

// LeaveChat removes the user from the chat, the last one leaving deletes the chat.
func LeaveChat(user models.Account, id uint) error {
	var deleted bool
	err := retryOnConflict(func() error {
		return database.C.Transaction(func(tx *gorm.DB) error {
			chat, err := loadChat(tx, id)
			if err != nil {
				return err
			}
			if err := RequireChatMember(user, chat); err != nil {
				return err
			}

			if err := tx.Where("chat_id = ? AND account_id = ?", chat.ID, user.ID).
				Delete(&models.ChatMember{}).Error; err != nil {
				return fmt.Errorf("unable to remove chat member: %v", err)
			}

			if len(chat.Members) <= 1 {
				deleted = true
				return deleteChatInTx(tx, chat.ID)
			}

			deleted = false
			return bumpChatVersion(tx, &chat)
		})
	})
	if err != nil {
		return err
	}

	EvictChatCache(id)
	log.Debug().Uint("chat", id).Uint("user", user.ID).Bool("deleted", deleted).Msg("User left chat.")
	return nil
}

// deleteChatInTx removes the chat with its members and messages.
func deleteChatInTx(tx *gorm.DB, id uint) error {
	if err := tx.Where("chat_id = ?", id).Delete(&models.Message{}).Error; err != nil {
		return fmt.Errorf("unable to delete chat messages: %v", err)
	}
	if err := tx.Where("chat_id = ?", id).Delete(&models.ChatMember{}).Error; err != nil {
		return fmt.Errorf("unable to delete chat members: %v", err)
	}
	if err := tx.Where("id = ?", id).Delete(&models.Chat{}).Error; err != nil {
		return fmt.Errorf("unable to delete chat: %v", err)
	}
	return nil
}

func DeleteChat(user models.Account, id uint) error {
	err := database.C.Transaction(func(tx *gorm.DB) error {
		chat, err := loadChat(tx, id)
		if err != nil {
			return err
		}
		if !user.IsAdmin() {
			if err := RequireChatMember(user, chat); err != nil {
				return err
			}
		}
		return deleteChatInTx(tx, chat.ID)
	})
	if err != nil {
		return err
	}

	EvictChatCache(id)
	log.Debug().Uint("chat", id).Uint("user", user.ID).Msg("Chat deleted.")
	return nil
}

func ListChats(user models.Account) ([]models.Chat, error) {
	if err := RequireAdmin(user); err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0)
	if err := database.C.Preload("Members").Order("id ASC").Find(&chats).Error; err != nil {
		return chats, fmt.Errorf("unable to list chats: %v", err)
	}
	return chats, nil
}

func ListOwnedChats(user models.Account) ([]models.Chat, error) {
	chats := make([]models.Chat, 0)
	if err := database.C.
		Where("id IN (?)", database.C.Model(&models.ChatMember{}).Select("chat_id").Where("account_id = ?", user.ID)).
		Preload("Members").
		Order("id ASC").
		Find(&chats).Error; err != nil {
		return chats, fmt.Errorf("unable to list chats: %v", err)
	}
	return chats, nil
}

func GetChatLastMessage(user models.Account, id uint) (*string, error) {
	if err := EnsureChatMember(database.C, id, user.ID); err != nil {
		return nil, err
	}
	return GetLastMessageText(database.C, id)
}
