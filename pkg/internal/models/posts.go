package models

import (
	"time"
)

var PostImageContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpeg",
}

type Post struct {
	BaseModel

	Description string  `json:"description"`
	Message     string  `json:"message"`
	Language    string  `json:"language"`
	ImageName   *string `json:"image_name"`
	ImageLink   *string `json:"image_link"`

	// PublishedAt is refreshed on every edit, feeds are ordered by it.
	PublishedAt time.Time `json:"published_at" gorm:"index"`

	AccountID uint    `json:"account_id" gorm:"index"`
	Account   Account `json:"account"`
}

// PostImage is an image uploaded alongside a post before it is handed to the object storage.
type PostImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

type PostNotification struct {
	ID          uint      `json:"id"`
	Description string    `json:"description"`
	Message     string    `json:"message"`
	ImageLink   *string   `json:"image_link"`
	PublishedAt time.Time `json:"published_at"`
	AccountID   uint      `json:"account_id"`
}
