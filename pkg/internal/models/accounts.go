package models

import "time"

const (
	AccountRoleUser  = "USER"
	AccountRoleAdmin = "ADMIN"
)

type Account struct {
	BaseModel

	Name     string `json:"name" gorm:"uniqueIndex"`
	Password string `json:"-"`
	Email    string `json:"email"`
	Role     string `json:"role"`

	// Version is bumped by every relation change touching this account.
	Version uint `json:"-" gorm:"not null;default:0"`
}

func (v Account) IsAdmin() bool {
	return v.Role == AccountRoleAdmin
}

// Friendship is stored once per direction, so a friendship between A and B is two rows.
type Friendship struct {
	AccountID uint      `json:"account_id" gorm:"primaryKey"`
	FriendID  uint      `json:"friend_id" gorm:"primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`
}

// Follower means FollowerID follows AccountID.
type Follower struct {
	AccountID  uint      `json:"account_id" gorm:"primaryKey"`
	FollowerID uint      `json:"follower_id" gorm:"primaryKey;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// FriendRequest is held by the receiver (AccountID) until accepted or refused.
type FriendRequest struct {
	AccountID   uint      `json:"account_id" gorm:"primaryKey"`
	RequesterID uint      `json:"requester_id" gorm:"primaryKey;index"`
	CreatedAt   time.Time `json:"created_at"`
}
