package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/gap"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultNotifyTopic = "topic-notification-user"

func loadPost(tx *gorm.DB, id uint) (models.Post, error) {
	var item models.Post
	if err := tx.Where("id = ?", id).Preload("Account").First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item, ErrPostNotFound
		}
		return item, fmt.Errorf("unable to get post: %v", err)
	}
	return item, nil
}

// GetPost reads through the cache, any authenticated user may read any post.
func GetPost(id uint) (models.Post, error) {
	if item, ok := getCached[models.Post](cacheKindPost, KeyForPost(id)); ok {
		return item, nil
	}

	item, err := loadPost(database.C, id)
	if err != nil {
		return item, err
	}
	setCached(cacheKindPost, KeyForPost(id), item)
	return item, nil
}

// uploadPostImage stores the image and returns its name and link, nil pair for no image.
func uploadPostImage(image *models.PostImage) (*string, *string, error) {
	if image == nil {
		return nil, nil, nil
	}

	name, err := ValidatePostImage(*image)
	if err != nil {
		return nil, nil, err
	}
	if gap.Storage == nil {
		return nil, nil, fmt.Errorf("%w: image storage is unavailable", ErrBadInput)
	}

	link, err := gap.Storage.Store(context.Background(), name, image.Data, image.ContentType)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unable to upload image: %v", ErrBadInput, err)
	}
	return &name, &link, nil
}

func deletePostImage(name *string) {
	if name == nil || gap.Storage == nil {
		return
	}
	if err := gap.Storage.Delete(context.Background(), *name); err != nil {
		log.Warn().Err(err).Str("image", *name).Msg("Unable to delete post image...")
	}
}

func notifyPost(item models.Post) {
	notifier := gap.Notifier
	if notifier == nil {
		return
	}

	payload, err := jsoniter.Marshal(models.PostNotification{
		ID:          item.ID,
		Description: item.Description,
		Message:     item.Message,
		ImageLink:   item.ImageLink,
		PublishedAt: item.PublishedAt,
		AccountID:   item.AccountID,
	})
	if err != nil {
		log.Error().Err(err).Uint("post", item.ID).Msg("Unable to encode post notification...")
		return
	}

	topic := viper.GetString("notify.topic")
	if len(topic) == 0 {
		topic = defaultNotifyTopic
	}

	go func() {
		if err := notifier.Publish(topic, strconv.Itoa(int(item.AccountID)), payload); err != nil {
			log.Error().Err(err).Uint("post", item.ID).Msg("An error occurred when notifying followers...")
		}
	}()
}

func NewPost(user models.Account, authorId uint, description, message string, image *models.PostImage) (models.Post, error) {
	if err := RequireSelf(user, authorId); err != nil {
		return models.Post{}, err
	}

	author, err := GetAccountWithID(database.C, authorId)
	if err != nil {
		return models.Post{}, err
	}

	imageName, imageLink, err := uploadPostImage(image)
	if err != nil {
		return models.Post{}, err
	}

	item := models.Post{
		Description: description,
		Message:     message,
		Language:    DetectLanguage(message),
		ImageName:   imageName,
		ImageLink:   imageLink,
		PublishedAt: time.Now(),
		AccountID:   author.ID,
	}
	if err := database.C.Create(&item).Error; err != nil {
		deletePostImage(imageName)
		return item, fmt.Errorf("unable to create post: %v", err)
	}
	item.Account = author

	notifyPost(item)
	log.Debug().Uint("post", item.ID).Uint("author", author.ID).Msg("Post created.")
	return item, nil
}

// EditPost replaces the whole content of the post, a nil image removes the current one.
func EditPost(user models.Account, id uint, description, message string, image *models.PostImage) (models.Post, error) {
	item, err := loadPost(database.C, id)
	if err != nil {
		return item, err
	}
	if err := RequirePostOwner(user, item); err != nil {
		return item, err
	}

	imageName, imageLink, err := uploadPostImage(image)
	if err != nil {
		return item, err
	}

	var oldImage *string
	var cached bool
	err = database.C.Transaction(func(tx *gorm.DB) error {
		current, err := loadPost(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if err := RequirePostOwner(user, current); err != nil {
			return err
		}

		item = current
		oldImage = item.ImageName
		item.Description = description
		item.Message = message
		item.Language = DetectLanguage(message)
		item.ImageName = imageName
		item.ImageLink = imageLink
		item.PublishedAt = time.Now()

		result := tx.Model(&models.Post{}).Where("id = ?", item.ID).Updates(map[string]any{
			"description":  item.Description,
			"message":      item.Message,
			"language":     item.Language,
			"image_name":   item.ImageName,
			"image_link":   item.ImageLink,
			"published_at": item.PublishedAt,
		})
		if result.Error != nil {
			return fmt.Errorf("unable to update post: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}

		// Filled while the row is locked, a deletion can only evict after this.
		setCached(cacheKindPost, KeyForPost(item.ID), item)
		cached = true
		return nil
	})
	if err != nil {
		if cached {
			EvictPostCache(id)
		}
		deletePostImage(imageName)
		return item, err
	}

	if oldImage != nil && (imageName == nil || *oldImage != *imageName) {
		deletePostImage(oldImage)
	}

	notifyPost(item)
	log.Debug().Uint("post", item.ID).Msg("Post edited.")
	return item, nil
}

func DeletePost(user models.Account, id uint) error {
	var item models.Post
	err := database.C.Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = loadPost(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if err := RequirePostOwner(user, item); err != nil {
			return err
		}

		result := tx.Delete(&models.Post{}, item.ID)
		if result.Error != nil {
			return fmt.Errorf("unable to delete post: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	EvictPostCache(item.ID)
	deletePostImage(item.ImageName)
	log.Debug().Uint("post", item.ID).Msg("Post deleted.")
	return nil
}

func ListPosts(user models.Account) ([]models.Post, error) {
	if err := RequireAdmin(user); err != nil {
		return nil, err
	}

	items := make([]models.Post, 0)
	if err := database.C.Preload("Account").Order("id ASC").Find(&items).Error; err != nil {
		return items, fmt.Errorf("unable to list posts: %v", err)
	}
	return items, nil
}
