package services

import (
	"fmt"

	"git.solsynth.dev/hypernet/circle/pkg/internal/database"
	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
)

const (
	DefaultFeedSize = 2
	MaxFeedSize     = 100
	MaxFeedPage     = 1 << 20
)

// GetFeed returns one page of posts written by the accounts the viewer follows.
// Pages start at zero.
func GetFeed(user models.Account, viewerId uint, page, size int, desc bool) ([]models.Post, error) {
	if err := RequireSelf(user, viewerId); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, fmt.Errorf("%w: page cannot be negative", ErrBadInput)
	}
	if page > MaxFeedPage {
		return nil, fmt.Errorf("%w: page cannot exceed %d", ErrBadInput, MaxFeedPage)
	}
	if size <= 0 {
		size = DefaultFeedSize
	} else if size > MaxFeedSize {
		size = MaxFeedSize
	}

	items := make([]models.Post, 0)

	following, err := ListFollowing(database.C, viewerId)
	if err != nil {
		return items, err
	}
	if len(following) == 0 {
		return items, nil
	}

	order := "ASC"
	if desc {
		order = "DESC"
	}

	if err := database.C.
		Where("account_id IN ?", following).
		Preload("Account").
		Order("published_at " + order).
		Order("id " + order).
		Offset(page * size).
		Limit(size).
		Find(&items).Error; err != nil {
		return items, fmt.Errorf("unable to list feed: %v", err)
	}
	return items, nil
}
