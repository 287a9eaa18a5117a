package exts

import (
	"errors"

	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func StatusOf(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch services.KindOf(err) {
	case services.ErrorKindNotFound:
		return fiber.StatusNotFound
	case services.ErrorKindAccessDenied:
		return fiber.StatusForbidden
	case services.ErrorKindBadInput:
		return fiber.StatusBadRequest
	case services.ErrorKindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler turns service errors into responses a client can branch on.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("An error occurred when handling request...")
		message = "internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
	})
}
