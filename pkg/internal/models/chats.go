package models

import (
	"time"

	"github.com/samber/lo"
)

const ChatMemberLimit = 2

type Chat struct {
	BaseModel

	LastMessage *string   `json:"last_message"`
	Members     []Account `json:"members" gorm:"many2many:chat_members"`
	Messages    []Message `json:"-"`

	Version uint `json:"-" gorm:"not null;default:0"`
}

func (v Chat) HasMember(id uint) bool {
	return lo.ContainsBy(v.Members, func(item Account) bool {
		return item.ID == id
	})
}

func (v Chat) MemberIDs() []uint {
	return lo.Map(v.Members, func(item Account, _ int) uint {
		return item.ID
	})
}

type ChatMember struct {
	ChatID    uint      `json:"chat_id" gorm:"primaryKey"`
	AccountID uint      `json:"account_id" gorm:"primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	BaseModel

	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at" gorm:"index"`
	SenderID uint      `json:"sender_id"`
	Sender   Account   `json:"sender"`
	ChatID   uint      `json:"chat_id" gorm:"index"`
}
