package exts

import (
	"errors"
	"fmt"
	"testing"

	"git.solsynth.dev/hypernet/circle/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		services.ErrChatNotFound:                                 fiber.StatusNotFound,
		services.ErrAccessDenied:                                 fiber.StatusForbidden,
		services.ErrChatFull:                                     fiber.StatusBadRequest,
		services.ErrConflict:                                     fiber.StatusConflict,
		fmt.Errorf("%w: alice", services.ErrNoPendingRequest):    fiber.StatusBadRequest,
		fiber.NewError(fiber.StatusUnauthorized, "unauthorized"): fiber.StatusUnauthorized,
		errors.New("unable to get chat: connection refused"):     fiber.StatusInternalServerError,
	}

	for err, status := range cases {
		assert.Equal(t, status, StatusOf(err), err.Error())
	}
}

func TestBindAndValidateRejectsInvalidBody(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
	}

	assert.Error(t, ValidateStruct(payload{}))
	assert.NoError(t, ValidateStruct(payload{Name: "alice"}))
}
