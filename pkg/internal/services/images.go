package services

import (
	"fmt"
	"strings"

	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"github.com/google/uuid"
)

// ValidatePostImage checks the content type and returns the object name the image will be stored under.
func ValidatePostImage(image models.PostImage) (string, error) {
	contentType := strings.ToLower(strings.TrimSpace(image.ContentType))
	ext, ok := models.PostImageContentTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, image.ContentType)
	}
	if len(image.Data) == 0 {
		return "", fmt.Errorf("%w: image is empty", ErrBadInput)
	}
	return uuid.NewString() + ext, nil
}
