package services

import (
	"fmt"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func countRelation(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, fmt.Errorf("unable to check relation: %v", err)
	}
	return count > 0, nil
}

func IsFriend(tx *gorm.DB, userId, otherId uint) (bool, error) {
	return countRelation(tx, &models.Friendship{}, "account_id = ? AND friend_id = ?", userId, otherId)
}

func HasFriendRequest(tx *gorm.DB, receiverId, requesterId uint) (bool, error) {
	return countRelation(tx, &models.FriendRequest{}, "account_id = ? AND requester_id = ?", receiverId, requesterId)
}

func IsFollower(tx *gorm.DB, userId, followerId uint) (bool, error) {
	return countRelation(tx, &models.Follower{}, "account_id = ? AND follower_id = ?", userId, followerId)
}

func checkSelfReference(user models.Account, target uint) error {
	if user.ID == target {
		return ErrSelfReference
	}
	return nil
}

// NewFriendRequest makes the user follow the target and leaves a pending request on the target side.
// Repeating a pending request is not an error.
func NewFriendRequest(user models.Account, targetId uint) error {
	if err := checkSelfReference(user, targetId); err != nil {
		return err
	}

	return retryOnConflict(func() error {
		return database.C.Transaction(func(tx *gorm.DB) error {
			target, err := GetAccountWithID(tx, targetId)
			if err != nil {
				return err
			}

			if friend, err := IsFriend(tx, user.ID, target.ID); err != nil {
				return err
			} else if friend {
				return ErrAlreadyFriends
			}

			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follower{
				AccountID:  target.ID,
				FollowerID: user.ID,
			}).Error; err != nil {
				return fmt.Errorf("unable to add follower: %v", err)
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.FriendRequest{
				AccountID:   target.ID,
				RequesterID: user.ID,
			}).Error; err != nil {
				return fmt.Errorf("unable to add friend request: %v", err)
			}

			if err := bumpAccountVersion(tx, &target); err != nil {
				return err
			}

			log.Debug().Uint("from", user.ID).Uint("to", target.ID).Msg("Friend request sent.")
			return nil
		})
	})
}

// pendingRequester loads the requester and checks the request is still pending and unresolved.
func pendingRequester(tx *gorm.DB, user models.Account, requesterId uint) (models.Account, error) {
	requester, err := GetAccountWithID(tx, requesterId)
	if err != nil {
		return requester, err
	}

	if pending, err := HasFriendRequest(tx, user.ID, requester.ID); err != nil {
		return requester, err
	} else if !pending {
		return requester, fmt.Errorf("%w: %s", ErrNoPendingRequest, requester.Name)
	}

	if friend, err := IsFriend(tx, user.ID, requester.ID); err != nil {
		return requester, err
	} else if friend {
		return requester, ErrAlreadyFriends
	}

	return requester, nil
}

func deleteFriendRequest(tx *gorm.DB, receiverId, requesterId uint) error {
	if err := tx.Where("account_id = ? AND requester_id = ?", receiverId, requesterId).
		Delete(&models.FriendRequest{}).Error; err != nil {
		return fmt.Errorf("unable to delete friend request: %v", err)
	}
	return nil
}

func AcceptFriendRequest(user models.Account, requesterId uint) error {
	if err := checkSelfReference(user, requesterId); err != nil {
		return err
	}

	return retryOnConflict(func() error {
		return database.C.Transaction(func(tx *gorm.DB) error {
			self, err := GetAccountWithID(tx, user.ID)
			if err != nil {
				return err
			}
			requester, err := pendingRequester(tx, self, requesterId)
			if err != nil {
				return err
			}

			// A crossed request in the other direction is resolved by the friendship as well.
			if err := deleteFriendRequest(tx, self.ID, requester.ID); err != nil {
				return err
			}
			if err := deleteFriendRequest(tx, requester.ID, self.ID); err != nil {
				return err
			}
			if err := tx.Create([]models.Friendship{
				{AccountID: self.ID, FriendID: requester.ID},
				{AccountID: requester.ID, FriendID: self.ID},
			}).Error; err != nil {
				return fmt.Errorf("unable to add friendship: %v", err)
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follower{
				AccountID:  requester.ID,
				FollowerID: self.ID,
			}).Error; err != nil {
				return fmt.Errorf("unable to add follower: %v", err)
			}

			if err := bumpAccountVersion(tx, &self); err != nil {
				return err
			}
			if err := bumpAccountVersion(tx, &requester); err != nil {
				return err
			}

			log.Debug().Uint("user", self.ID).Uint("requester", requester.ID).Msg("Friend request accepted.")
			return nil
		})
	})
}

func RefuseFriendRequest(user models.Account, requesterId uint) error {
	if err := checkSelfReference(user, requesterId); err != nil {
		return err
	}

	return retryOnConflict(func() error {
		return database.C.Transaction(func(tx *gorm.DB) error {
			self, err := GetAccountWithID(tx, user.ID)
			if err != nil {
				return err
			}
			requester, err := pendingRequester(tx, self, requesterId)
			if err != nil {
				return err
			}

			if err := deleteFriendRequest(tx, self.ID, requester.ID); err != nil {
				return err
			}
			if err := bumpAccountVersion(tx, &self); err != nil {
				return err
			}

			log.Debug().Uint("user", self.ID).Uint("requester", requester.ID).Msg("Friend request refused.")
			return nil
		})
	})
}

// RefuseFollower removes a single follower edge from the user, friendships stay untouched.
func RefuseFollower(user models.Account, followerId uint) error {
	if err := checkSelfReference(user, followerId); err != nil {
		return err
	}

	return retryOnConflict(func() error {
		return database.C.Transaction(func(tx *gorm.DB) error {
			self, err := GetAccountWithID(tx, user.ID)
			if err != nil {
				return err
			}
			follower, err := GetAccountWithID(tx, followerId)
			if err != nil {
				return err
			}

			if following, err := IsFollower(tx, self.ID, follower.ID); err != nil {
				return err
			} else if !following {
				return ErrNotAFollower
			}

			if err := tx.Where("account_id = ? AND follower_id = ?", self.ID, follower.ID).
				Delete(&models.Follower{}).Error; err != nil {
				return fmt.Errorf("unable to delete follower: %v", err)
			}
			if err := bumpAccountVersion(tx, &self); err != nil {
				return err
			}

			log.Debug().Uint("user", self.ID).Uint("follower", follower.ID).Msg("Follower refused.")
			return nil
		})
	})
}

// DeleteFriend breaks the friendship in both directions, drops the user's follow on the former friend
// and deletes the chat the two shared.
func DeleteFriend(user models.Account, friendId uint) error {
	if err := checkSelfReference(user, friendId); err != nil {
		return err
	}

	var removedChats []uint
	err := retryOnConflict(func() error {
		removedChats = nil
		return database.C.Transaction(func(tx *gorm.DB) error {
			self, err := GetAccountWithID(tx, user.ID)
			if err != nil {
				return err
			}
			friend, err := GetAccountWithID(tx, friendId)
			if err != nil {
				return err
			}

			if isFriend, err := IsFriend(tx, self.ID, friend.ID); err != nil {
				return err
			} else if !isFriend {
				return ErrNotFriends
			}

			if err := tx.Where(
				"(account_id = ? AND friend_id = ?) OR (account_id = ? AND friend_id = ?)",
				self.ID, friend.ID, friend.ID, self.ID,
			).Delete(&models.Friendship{}).Error; err != nil {
				return fmt.Errorf("unable to delete friendship: %v", err)
			}
			if err := tx.Where("account_id = ? AND follower_id = ?", friend.ID, self.ID).
				Delete(&models.Follower{}).Error; err != nil {
				return fmt.Errorf("unable to delete follower: %v", err)
			}

			shared, err := ListSharedChatIDs(tx, self.ID, friend.ID)
			if err != nil {
				return err
			}
			for _, chatId := range shared {
				if err := deleteChatInTx(tx, chatId); err != nil {
					return err
				}
			}
			removedChats = shared

			if err := bumpAccountVersion(tx, &self); err != nil {
				return err
			}
			if err := bumpAccountVersion(tx, &friend); err != nil {
				return err
			}

			log.Debug().Uint("user", self.ID).Uint("friend", friend.ID).Int("chats", len(shared)).Msg("Friend deleted.")
			return nil
		})
	})
	if err != nil {
		return err
	}

	for _, chatId := range removedChats {
		EvictChatCache(chatId)
	}
	return nil
}

func listRelatedAccounts(joinTable, ownerColumn, relatedColumn string, userId uint) ([]models.Account, error) {
	accounts := make([]models.Account, 0)
	if err := database.C.
		Joins(fmt.Sprintf("JOIN %s ON %s.%s = accounts.id", joinTable, joinTable, relatedColumn)).
		Where(fmt.Sprintf("%s.%s = ?", joinTable, ownerColumn), userId).
		Order("accounts.id ASC").
		Find(&accounts).Error; err != nil {
		return accounts, fmt.Errorf("unable to list %s: %v", joinTable, err)
	}
	return accounts, nil
}

func ListFriends(user models.Account) ([]models.Account, error) {
	return listRelatedAccounts("friendships", "account_id", "friend_id", user.ID)
}

func ListFollowers(user models.Account) ([]models.Account, error) {
	return listRelatedAccounts("followers", "account_id", "follower_id", user.ID)
}

func ListFriendRequests(user models.Account) ([]models.Account, error) {
	return listRelatedAccounts("friend_requests", "account_id", "requester_id", user.ID)
}

// ListFollowing returns the ids of the accounts the user follows.
func ListFollowing(tx *gorm.DB, userId uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.Follower{}).
		Where("follower_id = ?", userId).
		Pluck("account_id", &ids).Error; err != nil {
		return ids, fmt.Errorf("unable to list following: %v", err)
	}
	return ids, nil
}
