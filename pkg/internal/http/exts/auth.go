package exts

import (
	"strings"

	"git.solsynth.dev/hypernet/circle/pkg/internal/models"
	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ContextMiddleware puts the account of a valid bearer token into the "user" local.
// Browsers cannot set headers on a websocket handshake, so the tk query parameter is accepted too.
// Requests without a usable token continue anonymously.
func ContextMiddleware(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || len(token) == 0 {
		token = c.Query("tk")
	}
	if len(token) == 0 {
		return c.Next()
	}

	user, err := services.Authenticate(token)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected bearer token.")
		return c.Next()
	}

	c.Locals("user", user)
	return c.Next()
}

func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user").(models.Account); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return nil
}
